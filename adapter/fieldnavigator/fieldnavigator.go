// Package fieldnavigator resolves dotted field addresses inside documents.
package fieldnavigator

import (
	"strconv"
	"strings"

	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

// FieldNavigator implements [domain.FieldNavigator].
type FieldNavigator struct{}

// NewFieldNavigator returns a new instance of [domain.FieldNavigator].
func NewFieldNavigator() domain.FieldNavigator {
	return &FieldNavigator{}
}

// GetAddress implements [domain.FieldNavigator]. Empty segments are not
// allowed.
func (fn *FieldNavigator) GetAddress(field string) ([]string, error) {
	addr := strings.Split(field, ".")
	for _, part := range addr {
		if part == "" {
			return nil, domain.ErrInvalidFieldPath{
				Path:   addr,
				Reason: "empty field name",
			}
		}
	}
	return addr, nil
}

// GetField implements [domain.FieldNavigator].
//
// A numeric part selects an array position. Any other part applied to an
// array is resolved inside each document element; arrays nested directly in
// arrays are not expanded. The result always has at least one value, which
// is undefined when nothing was found.
func (fn *FieldNavigator) GetField(obj any, fieldParts ...string) ([]domain.FieldValue, bool, error) {
	if obj == nil || len(fieldParts) == 0 {
		return []domain.FieldValue{NewUndefined()}, false, nil
	}

	r := resolver{parts: fieldParts}
	r.resolve(obj, 0, nil)

	if len(r.res) == 0 {
		r.res = append(r.res, NewUndefined())
	}
	return r.res, r.expanded, nil
}

type resolver struct {
	parts    []string
	res      []domain.FieldValue
	expanded bool
}

// resolve walks parts[idx:] from v. origin is the value carrying the first
// array crossed so far, if any.
func (r *resolver) resolve(v any, idx int, origin *Value) {
	if idx == len(r.parts) {
		val := &Value{V: v, Defined: true}
		if origin != nil {
			val.origin, val.index, val.hasOrigin = origin.origin, origin.index, true
		}
		r.res = append(r.res, val)
		return
	}

	part := r.parts[idx]
	switch t := v.(type) {
	case domain.Document:
		if !t.Has(part) {
			return
		}
		r.resolve(t.Get(part), idx+1, origin)
	case []any:
		if i, err := strconv.Atoi(part); err == nil {
			if i >= 0 && i < len(t) {
				r.resolve(t[i], idx+1, origin)
			}
			return
		}
		r.expanded = true
		for n, item := range t {
			doc, ok := item.(domain.Document)
			if !ok {
				continue
			}
			o := origin
			if o == nil {
				o = &Value{origin: r.parts[:idx:idx], index: n}
			}
			r.resolve(doc, idx, o)
		}
	}
}
