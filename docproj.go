// Package docproj filters and reshapes MongoDB-like documents.
//
// Queries are run by an [Engine] against any [Source]: a filter selects the
// documents and a projection decides which of their fields are returned.
// Besides including and excluding fields, projections can narrow arrays to
// the elements matching a query ($elemMatch), to the element matched by the
// filter (the positional `field.$` operator) or to a window ($slice).
//
// The basic usage starts with creating a new [Engine], which can be done by
// calling [New].
package docproj

import (
	"context"
	"iter"

	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/docproj/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/cursor"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/data"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/decoder"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/elemmatcher"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/planner"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/projector"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/querier"
	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

var (
	// ErrCursorClosed is returned when trying to perform operations on a
	// closed [Cursor].
	ErrCursorClosed = domain.ErrCursorClosed
	// ErrScanBeforeNext is returned when calling [Cursor.Scan] before
	// calling [Cursor.Next].
	ErrScanBeforeNext = domain.ErrScanBeforeNext
	// ErrNotFound is returned when [Engine.FindOne] cannot find any matching
	// result for the given query.
	ErrNotFound = domain.ErrNotFound
	// ErrMixedProjection is returned when a projection mixes included and
	// excluded fields.
	ErrMixedProjection = domain.ErrMixedProjection
	// ErrNilSource is returned when a query is run without a [Source].
	ErrNilSource = domain.ErrNilSource
	// ErrNonPointer is returned when a decoding target is not a pointer.
	ErrNonPointer = domain.ErrNonPointer
	// ErrMixedOperators is returned when a filter mixes operators and
	// normal fields in the same object.
	ErrMixedOperators = matcher.ErrMixedOperators
)

// ErrTargetNil is returned when user provides a nil value as a target to
// decode data, for example, calling [Engine.FindOne].
type ErrTargetNil = domain.ErrTargetNil

// ErrUnsupportedProjection is returned when a projection requests a shape
// that is not supported, like two positional operators in the same
// projection.
type ErrUnsupportedProjection = domain.ErrUnsupportedProjection

// ErrInvalidFieldPath is returned when a field path cannot be resolved.
// Documents failing with it during a query are skipped.
type ErrInvalidFieldPath = domain.ErrInvalidFieldPath

// ErrTypeMismatch is returned when an operator receives an argument of the
// wrong kind.
type ErrTypeMismatch = domain.ErrTypeMismatch

// ErrPositionalRequiresFilter is returned when a positional projection is
// used on a field the filter does not reference.
type ErrPositionalRequiresFilter = domain.ErrPositionalRequiresFilter

// ErrInvalidSlice is returned when a $slice projection has an invalid
// argument.
type ErrInvalidSlice = domain.ErrInvalidSlice

// ErrUnknownOperator is returned when a filter uses an unknown dollar field.
type ErrUnknownOperator = matcher.ErrUnknownOperator

// ErrCannotCompare is returned when [Comparer.Compare] is called with two
// values that cannot be compared by the current [Comparer] interface.
type ErrCannotCompare = domain.ErrCannotCompare

// ErrDocumentType is returned when an user passes a value that is invalid or
// contains an invalid sub value for creating a document.
type ErrDocumentType = domain.ErrDocumentType

// ErrDecode is returned by [Decoder.Decode] to easily wrap third party
// decoding errors.
type ErrDecode = domain.ErrDecode

// Engine runs queries against document sources. It holds no state between
// queries and can be safely used by multiple goroutines.
type Engine struct {
	querier domain.Querier
	decoder domain.Decoder
}

// New creates a new Engine with the provided configuration options:
//
// - [WithAllMatches]: makes $elemMatch projections keep every matching
// element instead of the first one.
//
// - [WithLogger]: sets the logger used by every component.
//
// - [WithComparer]: sets the comparer for value comparison operations.
//
// - [WithFieldNavigator]: sets the field getter for accessing document fields.
//
// - [WithDocumentFactory]: sets the function for creating [Document] instances.
//
// - [WithDecoder]: sets the decoder used to scan results.
//
// - [WithMatcher]: sets the matcher implementation for query evaluation.
//
// - [WithElementMatcher]: sets the $elemMatch projection implementation.
//
// - [WithPlanner]: sets the projection planner.
//
// - [WithProjector]: sets the document projector.
//
// - [WithQuerier]: replaces the whole query pipeline.
//
// Nil values are ignored, keeping the default implementation.
func New(options ...Option) *Engine {
	var opts engineOptions
	for _, option := range options {
		option(&opts)
	}

	if opts.log == nil {
		opts.log = zap.NewNop()
	}
	if opts.comparer == nil {
		opts.comparer = comparer.NewComparer()
	}
	if opts.fieldNavigator == nil {
		opts.fieldNavigator = fieldnavigator.NewFieldNavigator()
	}
	if opts.documentFactory == nil {
		opts.documentFactory = data.NewDocument
	}
	if opts.decoder == nil {
		opts.decoder = decoder.NewDecoder(
			decoder.WithDocumentFactory(opts.documentFactory),
		)
	}
	if opts.matcher == nil {
		opts.matcher = matcher.NewMatcher(
			matcher.WithComparer(opts.comparer),
			matcher.WithDocumentFactory(opts.documentFactory),
			matcher.WithFieldNavigator(opts.fieldNavigator),
		)
	}
	if opts.elementMatcher == nil {
		opts.elementMatcher = elemmatcher.NewElementMatcher(
			elemmatcher.WithMatcher(opts.matcher),
			elemmatcher.WithFieldNavigator(opts.fieldNavigator),
			elemmatcher.WithAllMatches(opts.allMatches),
			elemmatcher.WithLogger(opts.log),
		)
	}
	if opts.planner == nil {
		opts.planner = planner.NewPlanner(
			planner.WithElementMatcher(opts.elementMatcher),
			planner.WithFieldNavigator(opts.fieldNavigator),
			planner.WithDocumentFactory(opts.documentFactory),
			planner.WithLogger(opts.log),
		)
	}
	if opts.projector == nil {
		opts.projector = projector.NewProjector(
			projector.WithElementMatcher(opts.elementMatcher),
			projector.WithDocumentFactory(opts.documentFactory),
			projector.WithLogger(opts.log),
		)
	}
	if opts.querier == nil {
		opts.querier = querier.NewQuerier(
			querier.WithDocumentFactory(opts.documentFactory),
			querier.WithMatcher(opts.matcher),
			querier.WithComparer(opts.comparer),
			querier.WithFieldNavigator(opts.fieldNavigator),
			querier.WithElementMatcher(opts.elementMatcher),
			querier.WithPlanner(opts.planner),
			querier.WithProjector(opts.projector),
			querier.WithLogger(opts.log),
		)
	}

	return &Engine{
		querier: opts.querier,
		decoder: opts.decoder,
	}
}

// Iter returns the projected documents of src matching filter as a lazy
// sequence. Malformed filters and projections are reported before any
// document is read. The following options can be provided:
// - [WithProjection]
// - [WithSkip]
// - [WithLimit]
// - [WithSort]
func (e *Engine) Iter(ctx context.Context, src Source, filter any, options ...FindOption) (iter.Seq2[Document, error], error) {
	return e.querier.Find(ctx, src, filter, options...)
}

// Find works like [Engine.Iter], returning a [Cursor] over the results. The
// cursor must be closed when no longer needed.
func (e *Engine) Find(ctx context.Context, src Source, filter any, options ...FindOption) (Cursor, error) {
	seq, err := e.Iter(ctx, src, filter, options...)
	if err != nil {
		return nil, err
	}
	return cursor.NewCursor(ctx, seq, domain.WithCursorDecoder(e.decoder))
}

// FindOne decodes the first result into target. It accepts the same options
// as [Engine.Find], but the limit is replaced with 1. If no document
// matches, [ErrNotFound] is returned.
func (e *Engine) FindOne(ctx context.Context, src Source, filter any, target any, options ...FindOption) error {
	options = append(options, WithLimit(1))
	seq, err := e.Iter(ctx, src, filter, options...)
	if err != nil {
		return err
	}
	for doc, err := range seq {
		if err != nil {
			return err
		}
		return e.decoder.Decode(doc, target)
	}
	return ErrNotFound
}
