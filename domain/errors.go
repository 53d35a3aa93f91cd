package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrCursorClosed is returned when trying to perform operations on a
	// closed [Cursor].
	ErrCursorClosed = errors.New("cursor is closed")
	// ErrScanBeforeNext is returned when calling [Cursor.Scan] before
	// calling [Cursor.Next].
	ErrScanBeforeNext = errors.New("called Scan before calling Next")
	// ErrNotFound is returned when a single result is requested but no
	// document matched.
	ErrNotFound = errors.New("no document found")
	// ErrMixedProjection is returned when a projection mixes included and
	// excluded fields. _id is the only field that can be excluded in an
	// inclusion projection.
	ErrMixedProjection = errors.New("cannot mix including and excluding fields")
	// ErrNilSource is returned when a query is run without a document
	// source.
	ErrNilSource = errors.New("nil document source")
	// ErrNonPointer is returned when the target of a decoding is not a
	// pointer.
	ErrNonPointer = errors.New("target must be a pointer")
)

// ErrTargetNil is returned when the passed target, which should be a pointer,
// is passed as a nil value.
type ErrTargetNil struct{}

func (e ErrTargetNil) Error() string { return "target interface is nil" }

// ErrUnsupportedProjection is returned when a projection requests a shape the
// engine explicitly does not support, such as two positional operators, a
// positional operator followed by a sub-field or element filtering across two
// nested arrays.
type ErrUnsupportedProjection struct {
	Field  string
	Reason string
}

func (e ErrUnsupportedProjection) Error() string {
	if e.Field == "" {
		return "projection not supported: " + e.Reason
	}
	return fmt.Sprintf("projection not supported on %q: %s", e.Field, e.Reason)
}

// ErrInvalidFieldPath is returned when a dotted path cannot be resolved, for
// example when an $elemMatch projection targets a value that is not an
// array.
type ErrInvalidFieldPath struct {
	Path   []string
	Reason string
}

func (e ErrInvalidFieldPath) Error() string {
	return fmt.Sprintf("invalid field path %q: %s", strings.Join(e.Path, "."), e.Reason)
}

// ErrTypeMismatch is returned when a predicate is built with an argument of
// the wrong kind, such as a $type code outside the known type table.
// Comparing values of different types is never an error.
type ErrTypeMismatch struct {
	Operator string
	Value    any
}

func (e ErrTypeMismatch) Error() string {
	return fmt.Sprintf("invalid argument for %s: %v (%T)", e.Operator, e.Value, e.Value)
}

// ErrPositionalRequiresFilter is returned when a positional projection is
// requested on a field the filter does not reference.
type ErrPositionalRequiresFilter struct {
	Field string
}

func (e ErrPositionalRequiresFilter) Error() string {
	return fmt.Sprintf("positional operator (%s.$) requires corresponding field in filter", e.Field)
}

// ErrInvalidSlice is returned when a $slice projection has an invalid
// argument.
type ErrInvalidSlice struct {
	Field  string
	Reason string
}

func (e ErrInvalidSlice) Error() string {
	return fmt.Sprintf("invalid $slice on %q: %s", e.Field, e.Reason)
}

// ErrCannotCompare is returned by [Comparer.Compare] when one of the values
// is not part of the document value model.
type ErrCannotCompare struct {
	A, B any
}

func (e ErrCannotCompare) Error() string {
	return fmt.Sprintf("cannot compare unexpected types %T and %T", e.A, e.B)
}

// ErrDocumentType is returned when a value cannot be converted into a
// document.
type ErrDocumentType struct {
	Value any
}

func (e ErrDocumentType) Error() string {
	return fmt.Sprintf("expected map or struct, got %T", e.Value)
}

// ErrDecode wraps third party decoding errors.
type ErrDecode struct {
	Source error
}

func (e ErrDecode) Error() string { return "decoding: " + e.Source.Error() }

// Unwrap returns the decoding error.
func (e ErrDecode) Unwrap() error { return e.Source }
