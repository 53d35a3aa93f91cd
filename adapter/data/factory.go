package data

import (
	"errors"

	"github.com/goccy/go-reflect"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/docproj/domain"
	"github.com/vinicius-lino-figueiredo/docproj/pkg/structure"
)

// NewDocument returns a new instance of [domain.Document]. Maps, structs,
// ordered literals and existing documents are accepted and copied
// recursively, so the result never shares containers with the input. Nested
// values are normalized to the document value model: sub-objects become
// documents, lists become []any and [primitive.DateTime] becomes
// [time.Time].
func NewDocument(in any) (domain.Document, error) {
	if in == nil {
		return newDoc(0), nil
	}
	seq, l, err := structure.Seq2(in)
	if err != nil {
		if errors.Is(err, structure.ErrNilObj) {
			return newDoc(0), nil
		}
		return nil, domain.ErrDocumentType{Value: in}
	}
	res := newDoc(l)
	for k, v := range seq {
		nv, err := Normalize(v)
		if err != nil {
			return nil, err
		}
		res.Set(k, nv)
	}
	return res, nil
}

// Normalize converts a single value into the document value model.
func Normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case primitive.DateTime:
		return t.Time().UTC(), nil
	case primitive.Null, primitive.Undefined:
		return nil, nil
	case []byte:
		return t, nil
	}
	if structure.IsPrimitive(v) {
		return v, nil
	}
	if _, ok := v.(domain.Document); !ok && isNilContainer(v) {
		return nil, nil
	}
	if _, _, err := structure.Seq2(v); err == nil {
		return NewDocument(v)
	}
	if seq, l, err := structure.Seq(v); err == nil {
		res := make([]any, 0, l)
		for item := range seq {
			ni, err := Normalize(item)
			if err != nil {
				return nil, err
			}
			res = append(res, ni)
		}
		return res, nil
	}

	r := reflect.ValueNoEscapeOf(v)
	switch r.Kind() {
	case reflect.Ptr, reflect.Interface:
		if r.IsNil() {
			return nil, nil
		}
		return Normalize(r.Elem().Interface())
	case reflect.Map:
		return nil, domain.ErrDocumentType{Value: v}
	case reflect.Bool:
		return r.Bool(), nil
	case reflect.String:
		return r.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return r.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(r.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return r.Float(), nil
	}
	return v, nil
}

func isNilContainer(v any) bool {
	r := reflect.ValueNoEscapeOf(v)
	switch r.Kind() {
	case reflect.Map, reflect.Slice:
		return r.IsNil()
	}
	return false
}
