// Package structure contains type-related operations, such as iterating over a
// value of type any in a deterministic order and converting numbers.
package structure

import (
	"errors"
	"iter"
	"math"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/goccy/go-reflect"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

// TagName is the struct tag read when iterating over struct fields.
const TagName = "docproj"

var (
	// ErrNilObj may be returned by [Seq] or [Seq2] when a nil value is
	// passed as argument.
	ErrNilObj = errors.New("nil object")
)

// Ordered is implemented by key-value containers that keep their own
// iteration order, such as ordered document literals.
type Ordered interface {
	Iter() iter.Seq2[string, any]
	Len() int
}

// ErrorNonObject is returned by [Seq2] when a value that is neither a struct,
// map nor a [domain.Document] is passed as argument.
type ErrorNonObject struct {
	Type reflect.Type
}

func (e ErrorNonObject) Error() string {
	if e.Type == nil {
		return "expected object"
	}
	return "expected object, got " + e.Type.String()
}

// ErrorNonList is returned by [Seq] when a value that is neither a slice
// nor a array is passed as argument.
type ErrorNonList struct {
	Type reflect.Type
}

func (e ErrorNonList) Error() string {
	if e.Type == nil {
		return "expected list"
	}
	return "expected list, got " + e.Type.String()
}

// Seq2 returns an iterator over the key-value pairs of obj, along with the
// number of pairs. Documents and ordered containers keep their order, struct
// fields follow declaration order and maps are read in sorted key order, so
// the result is always deterministic.
func Seq2(obj any) (iter.Seq2[string, any], int, error) {
	if obj == nil {
		return nil, 0, ErrNilObj
	}
	if IsPrimitive(obj) {
		return nil, 0, ErrorNonObject{Type: reflect.TypeOf(obj)}
	}
	switch t := obj.(type) {
	case domain.Document:
		return t.Iter(), t.Len(), nil
	case Ordered:
		return t.Iter(), t.Len(), nil
	case primitive.D:
		return iterD(t), len(t), nil
	case map[string]any:
		return iterMap(t), len(t), nil
	case primitive.M:
		return iterMap(t), len(t), nil
	}
	return iterReflect(obj)
}

// IsPrimitive reports whether v is a leaf value of the document model, which
// means it can neither be iterated as an object nor as a list.
func IsPrimitive(v any) bool {
	switch v.(type) {
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64,
		time.Time, *regexp.Regexp, []byte,
		primitive.ObjectID, primitive.DateTime, primitive.Regex,
		primitive.Binary, primitive.Timestamp, primitive.Decimal128:
		return true
	default:
		return false
	}
}

func iterD(d primitive.D) iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		for _, e := range d {
			if !yield(e.Key, e.Value) {
				return
			}
		}
	}
}

func iterMap[T any](m map[string]T) iter.Seq2[string, any] {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return func(yield func(string, any) bool) {
		for _, k := range keys {
			if !yield(k, m[k]) {
				return
			}
		}
	}
}

func iterReflect(obj any) (iter.Seq2[string, any], int, error) {
	v := reflect.ValueNoEscapeOf(obj)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, 0, ErrNilObj
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, 0, ErrorNonObject{Type: v.Type()}
		}
		return iterReflectMap(v), v.Len(), nil
	case reflect.Struct:
		i, l := iterReflectStruct(v)
		return i, l, nil
	}
	return nil, 0, ErrorNonObject{Type: v.Type()}
}

func iterReflectMap(v reflect.Value) iter.Seq2[string, any] {
	keys := v.MapKeys()
	slices.SortFunc(keys, func(a, b reflect.Value) int {
		return strings.Compare(a.String(), b.String())
	})
	return func(yield func(string, any) bool) {
		for _, k := range keys {
			if !yield(k.String(), v.MapIndex(k).Interface()) {
				return
			}
		}
	}
}

func iterReflectStruct(v reflect.Value) (iter.Seq2[string, any], int) {
	type field struct {
		Key   string
		Value any
	}
	fields := make([]field, 0, v.NumField())
	for k, v := range listStructFields(v) {
		fields = append(fields, field{Key: k, Value: v})
	}
	return func(yield func(string, any) bool) {
		for _, f := range fields {
			if !yield(f.Key, f.Value) {
				return
			}
		}
	}, len(fields)
}

func listStructFields(v reflect.Value) iter.Seq2[string, any] {
	var tag string
	var ok bool
	var field reflect.StructField
	var omitEmpty bool
	var omitZero bool
	return func(yield func(string, any) bool) {
		typ := v.Type()
		for n := range typ.NumField() {
			omitEmpty, omitZero = false, false
			field = typ.Field(n)

			if field.PkgPath != "" {
				continue
			}

			if tag, ok = field.Tag.Lookup(TagName); ok {
				if tag == "-" {
					continue
				}
				found := strings.IndexRune(tag, ',')
				if found >= 0 {
					for sub := range strings.SplitSeq(tag[found:], ",") {
						switch sub {
						case "omitempty":
							omitEmpty = true
						case "omitzero":
							omitZero = true
						}
					}
					tag = tag[:found]
				}
				if tag == "" {
					tag = field.Name
				}
			} else {
				tag = field.Name
			}
			switch {
			case omitZero:
				if v.Field(n).IsZero() {
					continue
				}
			case omitEmpty:
				switch field.Type.Kind() {
				case reflect.Chan, reflect.Func, reflect.Map,
					reflect.Ptr, reflect.UnsafePointer,
					reflect.Interface, reflect.Slice:
					if v.Field(n).IsNil() {
						continue
					}
				}
			}
			if !yield(tag, v.Field(n).Interface()) {
				return
			}
		}
	}
}

// Seq returns an iterator over a slice or array of any type, along with its
// length.
func Seq(obj any) (iter.Seq[any], int, error) {
	if obj == nil {
		return nil, 0, ErrNilObj
	}
	if IsPrimitive(obj) {
		return nil, 0, ErrorNonList{Type: reflect.TypeOf(obj)}
	}
	switch t := obj.(type) {
	case []any:
		return iterSlice(t), len(t), nil
	case primitive.A:
		return iterSlice(t), len(t), nil
	case []string:
		return iterSlice(t), len(t), nil
	case []int:
		return iterSlice(t), len(t), nil
	case []float64:
		return iterSlice(t), len(t), nil
	case primitive.D:
		return nil, 0, ErrorNonList{Type: reflect.TypeOf(obj)}
	}
	return seqReflect(obj)
}

func seqReflect(obj any) (iter.Seq[any], int, error) {
	v := reflect.ValueNoEscapeOf(obj)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, 0, ErrNilObj
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, 0, ErrorNonList{Type: v.Type()}
	}
	if _, ok := obj.(Ordered); ok {
		return nil, 0, ErrorNonList{Type: v.Type()}
	}
	l := v.Len()
	return func(yield func(any) bool) {
		for i := range l {
			if !yield(v.Index(i).Interface()) {
				return
			}
		}
	}, l, nil
}

func iterSlice[T any](m []T) iter.Seq[any] {
	return func(yield func(any) bool) {
		for _, v := range m {
			if !yield(v) {
				return
			}
		}
	}
}

// AsInteger converts any built-in number to int and returns a flag that informs
// if the argument is a valid integer.
func AsInteger(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int8:
		return int(t), true
	case int16:
		return int(t), true
	case int32:
		return int(t), true
	case int64:
		return int(t), true
	case uint:
		return int(t), true
	case uint8:
		return int(t), true
	case uint16:
		return int(t), true
	case uint32:
		return int(t), true
	case uint64:
		return int(t), true
	case float32:
		return floatAsInteger(float64(t))
	case float64:
		return floatAsInteger(t)
	default:
		return 0, false
	}
}

// floatAsInteger accepts whole numbers within the range of int.
func floatAsInteger(f float64) (int, bool) {
	if math.Trunc(f) != f || f < math.MinInt || f >= -math.MinInt {
		return 0, false
	}
	return int(f), true
}

// Truthy reports whether a projection or flag value counts as true: booleans
// are used as they are, numbers are true when non-zero and nil is false.
// Anything else is reported with ok set to false.
func Truthy(v any) (value bool, ok bool) {
	switch t := v.(type) {
	case nil:
		return false, true
	case bool:
		return t, true
	}
	if i, isInt := AsInteger(v); isInt {
		return i != 0, true
	}
	switch t := v.(type) {
	case float32:
		return t != 0, true
	case float64:
		return t != 0, true
	}
	return false, false
}
