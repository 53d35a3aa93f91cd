package querier

import (
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

// WithDocumentFactory sets the factory function for creating documents.
func WithDocumentFactory(df domain.DocumentFactory) Option {
	return func(q *Querier) {
		q.docFac = df
	}
}

// WithMatcher sets the matcher implementation used to compile filters.
func WithMatcher(m domain.Matcher) Option {
	return func(q *Querier) {
		q.mtchr = m
	}
}

// WithComparer sets the comparer implementation for sorting operations.
func WithComparer(c domain.Comparer) Option {
	return func(q *Querier) {
		q.cmpr = c
	}
}

// WithFieldNavigator sets the field getter for accessing document
// fields.
func WithFieldNavigator(f domain.FieldNavigator) Option {
	return func(q *Querier) {
		q.fn = f
	}
}

// WithElementMatcher sets the element matcher used by the default planner
// and projector.
func WithElementMatcher(em domain.ElementMatcher) Option {
	return func(q *Querier) {
		q.em = em
	}
}

// WithPlanner sets the implementation used to plan projections.
func WithPlanner(p domain.Planner) Option {
	return func(q *Querier) {
		q.plnr = p
	}
}

// WithProjector sets the implementation what will be used to project
// the resultant documents.
func WithProjector(p domain.Projector) Option {
	return func(q *Querier) {
		q.proj = p
	}
}

// WithLogger sets the logger. Every query logs with its own id.
func WithLogger(l *zap.Logger) Option {
	return func(q *Querier) {
		q.log = l
	}
}

// Option configures querier behavior through the functional options
// pattern.
type Option func(*Querier)
