// Package comparer contains the default implementation of [domain.Comparer].
package comparer

import (
	"bytes"
	"cmp"
	"math"
	"math/big"
	"regexp"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

// Comparer implements domain.Comparer. Values of different families are
// ordered as follows: undefined, null, numbers, strings, documents, arrays,
// binary data, booleans, dates, object ids and regular expressions.
type Comparer struct{}

// NewComparer returns a new implementation of domain.Comparer.
func NewComparer() domain.Comparer {
	return &Comparer{}
}

// Comparable implements domain.Comparer. Only families with a natural order
// are comparable, so null, documents, arrays and regular expressions are
// never comparable, not even to themselves.
func (c *Comparer) Comparable(a, b any) bool {
	if !c.isSet(a) || !c.isSet(b) {
		return false
	}
	a, b = c.getVal(a), c.getVal(b)

	if _, ok := c.asNumber(a); ok {
		_, ok = c.asNumber(b)
		return ok
	}

	equal := false
	switch a.(type) {
	case string:
		_, equal = b.(string)
	case time.Time:
		_, equal = b.(time.Time)
	case primitive.ObjectID:
		_, equal = b.(primitive.ObjectID)
	case bool:
		_, equal = b.(bool)
	case []byte, primitive.Binary:
		_, equal = c.asBinary(b)
	}
	return equal
}

// Compare implements domain.Comparer.
func (c *Comparer) Compare(a any, b any) (int, error) {

	// [domain.Getter], a missing value
	if c, ok := c.checkUndefined(a, b); ok {
		return c, nil
	}

	a, b = c.getVal(a), c.getVal(b)
	a, b = c.normalize(a), c.normalize(b)

	// [nil] (null)
	if c, ok := c.checkNil(a, b); ok {
		return c, nil
	}

	// Numbers
	if c, ok := c.checkNumbers(a, b); ok {
		return c, nil
	}

	// Strings
	if c, ok := c.checkStrings(a, b); ok {
		return c, nil
	}

	// Objects
	if c, ok, err := c.checkDocs(a, b); err != nil || ok {
		return c, err
	}

	// Arrays
	if c, ok, err := c.checkArrays(a, b); err != nil || ok {
		return c, err
	}

	// Binary data
	if c, ok := c.checkBinary(a, b); ok {
		return c, nil
	}

	// Booleans
	if c, ok := c.checkBooleans(a, b); ok {
		return c, nil
	}

	// Dates
	if c, ok := c.checkTime(a, b); ok {
		return c, nil
	}

	// Object ids
	if c, ok := c.checkObjectIDs(a, b); ok {
		return c, nil
	}

	// Regular expressions
	if c, ok := c.checkRegex(a, b); ok {
		return c, nil
	}

	return 0, domain.ErrCannotCompare{A: a, B: b}
}

func (c *Comparer) normalize(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time()
	case primitive.A:
		return []any(t)
	}
	return v
}

func (c *Comparer) checkUndefined(a, b any) (int, bool) {
	if !c.isSet(a) {
		if !c.isSet(b) {
			return 0, true
		}
		return -1, true
	}
	if !c.isSet(b) {
		return 1, true
	}
	return 0, false
}

func (c *Comparer) checkNil(a, b any) (int, bool) {
	if a == nil {
		if b == nil {
			return 0, true
		}
		return -1, true
	}
	if b == nil {
		return 1, true
	}
	return 0, false
}

func (c *Comparer) checkNumbers(a, b any) (int, bool) {
	// NaN is the smallest number
	if aNaN, bNaN := c.isNaN(a), c.isNaN(b); aNaN || bNaN {
		switch {
		case aNaN && bNaN:
			return 0, true
		case aNaN:
			return -1, true
		default:
			return 1, true
		}
	}
	if a, ok := c.asNumber(a); ok {
		// big.Float compares float64 and int64 without precision loss
		if b, ok := c.asNumber(b); ok {
			return a.Cmp(b), true
		}
		return -1, true
	}
	if _, ok := c.asNumber(b); ok {
		return 1, true
	}
	return 0, false
}

func (c *Comparer) checkStrings(a, b any) (int, bool) {
	if a, ok := a.(string); ok {
		if b, ok := b.(string); ok {
			return cmp.Compare(a, b), true
		}
		return -1, true
	}
	if _, ok := b.(string); ok {
		return 1, true
	}
	return 0, false
}

func (c *Comparer) checkDocs(a, b any) (int, bool, error) {
	if a, ok := a.(domain.Document); ok {
		if b, ok := b.(domain.Document); ok {
			comp, err := c.compareDoc(a, b)
			return comp, true, err
		}
		return -1, true, nil
	}
	if _, ok := b.(domain.Document); ok {
		return 1, true, nil
	}
	return 0, false, nil
}

func (c *Comparer) checkArrays(a, b any) (int, bool, error) {
	if a, ok := a.([]any); ok {
		if b, ok := b.([]any); ok {
			comp, err := c.compareArray(a, b)
			return comp, true, err
		}
		return -1, true, nil
	}
	if _, ok := b.([]any); ok {
		return 1, true, nil
	}
	return 0, false, nil
}

func (c *Comparer) checkBinary(a, b any) (int, bool) {
	if a, ok := c.asBinary(a); ok {
		if b, ok := c.asBinary(b); ok {
			return c.compareBinary(a, b), true
		}
		return -1, true
	}
	if _, ok := c.asBinary(b); ok {
		return 1, true
	}
	return 0, false
}

func (c *Comparer) checkBooleans(a, b any) (int, bool) {
	if a, ok := a.(bool); ok {
		if b, ok := b.(bool); ok {
			return c.compareBool(a, b), true
		}
		return -1, true
	}
	if _, ok := b.(bool); ok {
		return 1, true
	}
	return 0, false
}

func (c *Comparer) checkTime(a, b any) (int, bool) {
	if a, ok := a.(time.Time); ok {
		if b, ok := b.(time.Time); ok {
			return a.Compare(b), true
		}
		return -1, true
	}
	if _, ok := b.(time.Time); ok {
		return 1, true
	}
	return 0, false
}

func (c *Comparer) checkObjectIDs(a, b any) (int, bool) {
	if a, ok := a.(primitive.ObjectID); ok {
		if b, ok := b.(primitive.ObjectID); ok {
			return bytes.Compare(a[:], b[:]), true
		}
		return -1, true
	}
	if _, ok := b.(primitive.ObjectID); ok {
		return 1, true
	}
	return 0, false
}

func (c *Comparer) checkRegex(a, b any) (int, bool) {
	ap, ao, aok := c.asRegex(a)
	bp, bo, bok := c.asRegex(b)
	if aok && bok {
		if comp := cmp.Compare(ap, bp); comp != 0 {
			return comp, true
		}
		return cmp.Compare(ao, bo), true
	}
	return 0, false
}

func (c *Comparer) compareArray(a, b []any) (int, error) {
	var comp int
	var err error
	for i := range min(len(a), len(b)) {
		comp, err = c.Compare(a[i], b[i])
		if err != nil {
			return 0, err
		}

		if comp != 0 {
			return comp, nil
		}
	}

	// Common section was identical, longest one wins
	return cmp.Compare(len(a), len(b)), nil
}

// compareDoc compares documents field by field, in order, using the field
// name first and then the value.
func (c *Comparer) compareDoc(a domain.Document, b domain.Document) (int, error) {
	bKeys := slices.Collect(b.Keys())

	i := 0
	for ak, av := range a.Iter() {
		if i >= len(bKeys) {
			return 1, nil
		}
		bk := bKeys[i]
		bv := b.Get(bk)
		i++
		if comp := cmp.Compare(ak, bk); comp != 0 {
			return comp, nil
		}
		comp, err := c.Compare(av, bv)
		if err != nil {
			return 0, err
		}
		if comp != 0 {
			return comp, nil
		}
	}

	return cmp.Compare(a.Len(), b.Len()), nil
}

func (c *Comparer) compareBool(a, b bool) int {
	if a == b {
		return 0
	}
	if a {
		return 1
	}
	return -1
}

// compareBinary orders binary values by length, then subtype and then
// content.
func (c *Comparer) compareBinary(a, b primitive.Binary) int {
	if comp := cmp.Compare(len(a.Data), len(b.Data)); comp != 0 {
		return comp
	}
	if comp := cmp.Compare(a.Subtype, b.Subtype); comp != 0 {
		return comp
	}
	return bytes.Compare(a.Data, b.Data)
}

func (c *Comparer) asBinary(v any) (primitive.Binary, bool) {
	switch t := v.(type) {
	case []byte:
		return primitive.Binary{Data: t}, true
	case primitive.Binary:
		return t, true
	}
	return primitive.Binary{}, false
}

func (c *Comparer) asRegex(v any) (pattern string, options string, ok bool) {
	switch t := v.(type) {
	case *regexp.Regexp:
		if t == nil {
			return "", "", false
		}
		return t.String(), "", true
	case primitive.Regex:
		return t.Pattern, t.Options, true
	}
	return "", "", false
}

func (c *Comparer) isNaN(v any) bool {
	switch n := v.(type) {
	case float32:
		return math.IsNaN(float64(n))
	case float64:
		return math.IsNaN(n)
	}
	return false
}

func (c *Comparer) asNumber(v any) (*big.Float, bool) {
	r := new(big.Float)
	switch n := v.(type) {
	case int:
		r.SetInt64(int64(n))
	case int8:
		r.SetInt64(int64(n))
	case int16:
		r.SetInt64(int64(n))
	case int32:
		r.SetInt64(int64(n))
	case int64:
		r.SetInt64(n)
	case uint:
		r.SetUint64(uint64(n))
	case uint8:
		r.SetUint64(uint64(n))
	case uint16:
		r.SetUint64(uint64(n))
	case uint32:
		r.SetUint64(uint64(n))
	case uint64:
		r.SetUint64(n)
	case float32:
		r.SetFloat64(float64(n))
	case float64:
		r.SetFloat64(n)
	default:
		return nil, false
	}
	return r, true
}

func (c *Comparer) isSet(v any) bool {
	if g, ok := v.(domain.Getter); ok {
		_, isSet := g.Get()
		return isSet
	}
	return true
}

func (c *Comparer) getVal(v any) any {
	if g, ok := v.(domain.Getter); ok {
		val, _ := g.Get()
		return val
	}
	return v
}
