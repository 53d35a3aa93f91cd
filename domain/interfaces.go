// Package domain contains the interfaces, entities and errors shared by the
// docproj adapters.
//
// Every component of the projection engine (matcher, element matcher,
// planner, projector, querier) is declared here as an interface so it can be
// replaced or mocked independently.
package domain

import (
	"context"
	"iter"
)

// Decoder converts between different data representations.
type Decoder interface {
	// Decode copies the content of the first argument into the target
	// pointed by the second one.
	Decode(any, any) error
}

// Comparer provides ordering and comparison operations for document values.
type Comparer interface {
	// Compare returns -1, 0, or 1 based on the comparison of two values.
	// Values of different type families are ordered by the type ranking.
	Compare(any, any) (int, error)
	// Comparable returns true if two values belong to the same ordered
	// type family, so range operators such as $lt can be applied to them.
	Comparable(any, any) bool
}

// Getter represents a value that can be treated as undefined.
type Getter interface {
	// Get returns the value for the given address and a bool that indicates
	// whether the value counts as defined or not. If an address points to
	// an unset key in a document, an out of bounds index in an array or
	// any address within a primitive value, it counts as undefined. An
	// explicit nil value is defined.
	Get() (value any, defined bool)
}

// FieldValue is a value reached by following an address through a
// document. Besides the value itself, it remembers the first array crossed
// on the way there.
type FieldValue interface {
	Getter
	// Origin returns the address of the first array crossed while
	// resolving the value and the position of the element used. ok is
	// false when no array was crossed.
	Origin() (addr []string, index int, ok bool)
}

// FieldNavigator provides field access operations with dot notation support.
type FieldNavigator interface {
	// GetAddress splits a dotted field name into its address parts.
	GetAddress(field string) ([]string, error)
	// GetField extracts values from nested documents, following address
	// parts. When an array is found in the middle of the address, the
	// remaining parts are resolved for every element and the bool result
	// is true.
	GetField(any, ...string) ([]FieldValue, bool, error)
}

// Document is an ordered mapping from field name to value. Keys are unique
// and iteration follows insertion order. Document is read by one goroutine
// at a time and doesn't need to be concurrency safe, but documents handed
// to the engine are never modified by it.
type Document interface {
	// ID returns the document ID, if any, or nil.
	ID() any
	// D returns the subdocument for the given key, if any.
	D(string) Document
	// Get returns the value under the given key, or nil if unset.
	Get(string) any
	// Set sets the value under the given key. New keys are appended.
	Set(string, any)
	// Unset unsets the value under the given key.
	Unset(string)
	// Iter returns an ordered sequence of key-value pairs.
	Iter() iter.Seq2[string, any]
	// Keys returns an ordered sequence of keys.
	Keys() iter.Seq[string]
	// Values returns an ordered sequence of values.
	Values() iter.Seq[any]
	// Has reports whether a value is set under the given key.
	Has(string) bool
	// Len returns the number of set fields in the document.
	Len() int
}

// Predicate is a compiled, immutable query. It can be shared by goroutines.
type Predicate interface {
	// Match reports whether the value satisfies the predicate.
	Match(any) (bool, error)
	// MatchDetails works like Match, also recording in details the
	// array positions that made the predicate succeed. details may be
	// nil.
	MatchDetails(any, *MatchDetails) (bool, error)
	// Fields returns the addresses of every field referenced by the
	// predicate, including the ones inside logic operators.
	Fields() [][]string
}

// Matcher compiles query documents into predicates.
type Matcher interface {
	// Compile parses a query once, returning a reusable [Predicate]. A
	// document query is a field sub-query; an operator document (such as
	// {$gte: 2}) is a conditional predicate applied to the value itself
	// and any other value is compared for equality.
	Compile(any) (Predicate, error)
}

// ElementMatcher applies predicates to the elements of array fields.
type ElementMatcher interface {
	// Compile builds the [ElemMatchSpec] for a $elemMatch clause on the
	// given field.
	Compile(field string, arg any) (ElemMatchSpec, error)
	// Match resolves the compiled field path in the document and returns the
	// positions of the array elements that satisfy its condition.
	Match(spec ElemMatchSpec, doc Document) (MatchResult, error)
}

// Planner turns a projection document into a [Plan].
type Planner interface {
	// Plan validates the projection against the already compiled filter
	// and returns the field plans, in declared order.
	Plan(filter Predicate, projection any) (*Plan, error)
}

// Projector applies a [Plan] to matched documents.
type Projector interface {
	// Project returns a new document containing the projected fields of
	// doc. details holds the array positions recorded while matching the
	// filter and is used by positional rules.
	Project(doc Document, plan *Plan, details *MatchDetails) (Document, error)
}

// Source provides the candidate documents of a query.
type Source interface {
	// Documents returns a sequence of documents. Consumers may stop
	// early; sources release their resources when the iteration ends.
	Documents(ctx context.Context) iter.Seq2[Document, error]
}

// Querier filters and projects documents provided by a [Source].
type Querier interface {
	// Find compiles the filter and the projection, returning a lazy
	// sequence of projected documents. Compilation errors are returned
	// before any document is read.
	Find(ctx context.Context, src Source, filter any, opts ...FindOption) (iter.Seq2[Document, error], error)
}

// Cursor provides iteration over query results.
type Cursor interface {
	// Scan decodes the current document into the target.
	Scan(ctx context.Context, target any) error
	// Next advances the cursor to the next document, returning true if
	// available.
	Next() bool
	// Err returns any error that occurred during iteration.
	Err() error
	// Close releases cursor resources and should be called when done.
	Close() error
}
