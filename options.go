package docproj

import (
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

// Document represents a document-like structure with key-value operations.
type Document = domain.Document

// Source provides the documents a query runs against.
type Source = domain.Source

// Cursor provides iteration over query results.
type Cursor = domain.Cursor

// Decoder converts documents into user types.
type Decoder = domain.Decoder

// Comparer provides ordering and comparison operations for document values.
type Comparer = domain.Comparer

// FieldNavigator resolves dotted field paths within documents.
type FieldNavigator = domain.FieldNavigator

// Matcher compiles filters into predicates.
type Matcher = domain.Matcher

// ElementMatcher evaluates $elemMatch projections.
type ElementMatcher = domain.ElementMatcher

// Planner turns projections into plans.
type Planner = domain.Planner

// Projector applies plans to documents.
type Projector = domain.Projector

// Querier filters and projects documents provided by a [Source].
type Querier = domain.Querier

// DocumentFactory represents a function that constructs [Document]
// instances.
type DocumentFactory = domain.DocumentFactory

// Sort defines the sorting criteria for query results.
type Sort = domain.Sort

// SortName specifies a field name and sort order. Order is ascending when
// positive and descending when negative.
type SortName = domain.SortName

// FindOption configures query behavior through the functional options
// pattern.
type FindOption = domain.FindOption

// WithProjection specifies which fields to include, exclude or narrow in
// query results.
func WithProjection(p any) FindOption {
	return domain.WithFindProjection(p)
}

// WithSkip sets the number of documents to skip in query results.
func WithSkip(s int64) FindOption {
	return domain.WithFindSkip(s)
}

// WithLimit sets the maximum number of documents to return.
func WithLimit(l int64) FindOption {
	return domain.WithFindLimit(l)
}

// WithSort specifies the sort order for query results.
func WithSort(s Sort) FindOption {
	return domain.WithFindSort(s)
}

type engineOptions struct {
	allMatches      bool
	log             *zap.Logger
	comparer        domain.Comparer
	fieldNavigator  domain.FieldNavigator
	documentFactory domain.DocumentFactory
	decoder         domain.Decoder
	matcher         domain.Matcher
	elementMatcher  domain.ElementMatcher
	planner         domain.Planner
	projector       domain.Projector
	querier         domain.Querier
}

// Option configures an [Engine].
type Option func(*engineOptions)

// WithAllMatches makes $elemMatch projections return every matching element
// instead of only the first one.
func WithAllMatches(a bool) Option {
	return func(o *engineOptions) {
		o.allMatches = a
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *zap.Logger) Option {
	return func(o *engineOptions) {
		o.log = l
	}
}

// WithComparer sets the comparer for value comparison operations.
func WithComparer(c Comparer) Option {
	return func(o *engineOptions) {
		o.comparer = c
	}
}

// WithFieldNavigator sets the field getter for accessing document fields.
func WithFieldNavigator(f FieldNavigator) Option {
	return func(o *engineOptions) {
		o.fieldNavigator = f
	}
}

// WithDocumentFactory sets the function for creating [Document] instances.
func WithDocumentFactory(d DocumentFactory) Option {
	return func(o *engineOptions) {
		o.documentFactory = d
	}
}

// WithDecoder sets the decoder used to scan results.
func WithDecoder(d Decoder) Option {
	return func(o *engineOptions) {
		o.decoder = d
	}
}

// WithMatcher sets the matcher implementation for query evaluation.
func WithMatcher(m Matcher) Option {
	return func(o *engineOptions) {
		o.matcher = m
	}
}

// WithElementMatcher sets the $elemMatch projection implementation. It
// overrides [WithAllMatches].
func WithElementMatcher(e ElementMatcher) Option {
	return func(o *engineOptions) {
		o.elementMatcher = e
	}
}

// WithPlanner sets the projection planner.
func WithPlanner(p Planner) Option {
	return func(o *engineOptions) {
		o.planner = p
	}
}

// WithProjector sets the document projector.
func WithProjector(p Projector) Option {
	return func(o *engineOptions) {
		o.projector = p
	}
}

// WithQuerier replaces the whole query pipeline. Components set by other
// options are not used when a querier is given.
func WithQuerier(q Querier) Option {
	return func(o *engineOptions) {
		o.querier = q
	}
}
