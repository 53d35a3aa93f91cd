package fieldnavigator

import "github.com/vinicius-lino-figueiredo/docproj/domain"

// Value is a read-only [domain.FieldValue].
type Value struct {
	V       any
	Defined bool

	origin    []string
	index     int
	hasOrigin bool
}

// NewValue returns a defined [domain.FieldValue] that was not reached by
// crossing an array.
func NewValue(v any) domain.FieldValue {
	return &Value{V: v, Defined: true}
}

// NewUndefined returns a [domain.FieldValue] representing a missing value.
func NewUndefined() domain.FieldValue {
	return &Value{}
}

// Get implements [domain.FieldValue].
func (v *Value) Get() (any, bool) {
	return v.V, v.Defined
}

// Origin implements [domain.FieldValue].
func (v *Value) Origin() ([]string, int, bool) {
	return v.origin, v.index, v.hasOrigin
}
