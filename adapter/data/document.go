// Package data contains the default [domain.Document] implementation and the
// literal types used to build documents.
package data

import (
	"iter"
	"slices"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

// M is an unordered document literal. Documents created from it have their
// keys sorted.
type M map[string]any

// E is a single key-value pair of a [D].
type E struct {
	Key   string
	Value any
}

// D is an ordered document literal. Documents created from it keep the
// declared key order.
type D []E

// Iter returns the pairs of d in order.
func (d D) Iter() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, e := range d {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

// Len returns the number of pairs in d.
func (d D) Len() int { return len(d) }

// Doc implements [domain.Document], keeping keys in insertion order.
type Doc struct {
	keys   []string
	values map[string]any
}

func newDoc(size int) *Doc {
	return &Doc{
		keys:   make([]string, 0, size),
		values: make(map[string]any, size),
	}
}

// ID implements [domain.Document].
func (d *Doc) ID() any {
	return d.values["_id"]
}

// Get implements [domain.Document].
func (d *Doc) Get(key string) any {
	return d.values[key]
}

// Set implements [domain.Document].
func (d *Doc) Set(key string, value any) {
	if _, ok := d.values[key]; !ok {
		d.keys = append(d.keys, key)
	}
	d.values[key] = value
}

// Unset implements [domain.Document].
func (d *Doc) Unset(key string) {
	if _, ok := d.values[key]; !ok {
		return
	}
	delete(d.values, key)
	d.keys = slices.DeleteFunc(d.keys, func(k string) bool { return k == key })
}

// D implements [domain.Document].
func (d *Doc) D(key string) domain.Document {
	if doc, ok := d.values[key].(domain.Document); ok {
		return doc
	}
	return nil
}

// Iter implements [domain.Document].
func (d *Doc) Iter() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, k := range d.keys {
			if !yield(k, d.values[k]) {
				return
			}
		}
	}
}

// Keys implements [domain.Document].
func (d *Doc) Keys() iter.Seq[string] {
	return slices.Values(d.keys)
}

// Values implements [domain.Document].
func (d *Doc) Values() iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, k := range d.keys {
			if !yield(d.values[k]) {
				return
			}
		}
	}
}

// Has implements [domain.Document].
func (d *Doc) Has(key string) bool {
	_, has := d.values[key]
	return has
}

// Len implements [domain.Document].
func (d *Doc) Len() int {
	return len(d.keys)
}

// ToMap converts a document into nested plain maps and slices. It is used to
// hand documents to decoders that know nothing about [domain.Document].
func ToMap(doc domain.Document) map[string]any {
	if doc == nil {
		return nil
	}
	res := make(map[string]any, doc.Len())
	for k, v := range doc.Iter() {
		res[k] = toPlain(v)
	}
	return res
}

func toPlain(v any) any {
	switch t := v.(type) {
	case domain.Document:
		return ToMap(t)
	case []any:
		res := make([]any, len(t))
		for n, item := range t {
			res[n] = toPlain(item)
		}
		return res
	default:
		return v
	}
}

// ToBSON converts a document into an ordered [primitive.D], so it can be
// written with the mongo driver encoders.
func ToBSON(doc domain.Document) primitive.D {
	if doc == nil {
		return nil
	}
	res := make(primitive.D, 0, doc.Len())
	for k, v := range doc.Iter() {
		res = append(res, primitive.E{Key: k, Value: toBSONValue(v)})
	}
	return res
}

func toBSONValue(v any) any {
	switch t := v.(type) {
	case domain.Document:
		return ToBSON(t)
	case []any:
		res := make(primitive.A, len(t))
		for n, item := range t {
			res[n] = toBSONValue(item)
		}
		return res
	default:
		return v
	}
}
