package planner

import (
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

// WithElementMatcher sets the [domain.ElementMatcher] used to compile
// $elemMatch projections.
func WithElementMatcher(em domain.ElementMatcher) Option {
	return func(p *Planner) {
		p.elemMatcher = em
	}
}

// WithFieldNavigator sets the [domain.FieldNavigator] used to parse
// projected field names.
func WithFieldNavigator(fn domain.FieldNavigator) Option {
	return func(p *Planner) {
		p.fieldNavigator = fn
	}
}

// WithDocumentFactory sets the factory used to read the projection
// document.
func WithDocumentFactory(df domain.DocumentFactory) Option {
	return func(p *Planner) {
		p.documentFactory = df
	}
}

// WithLogger sets the logger used for debug messages.
func WithLogger(l *zap.Logger) Option {
	return func(p *Planner) {
		p.log = l
	}
}

// Option configures planner behavior through the functional options pattern.
type Option func(*Planner)
