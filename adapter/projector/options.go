package projector

import (
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

// WithElementMatcher sets the [domain.ElementMatcher] that will be used by
// [Projector] to evaluate $elemMatch rules.
func WithElementMatcher(em domain.ElementMatcher) Option {
	return func(p *Projector) {
		p.em = em
	}
}

// WithDocumentFactory sets the [domain.Document] factory function that will be
// used by [Projector].
func WithDocumentFactory(df domain.DocumentFactory) Option {
	return func(p *Projector) {
		p.docFac = df
	}
}

// WithLogger sets the logger used for debug messages.
func WithLogger(l *zap.Logger) Option {
	return func(p *Projector) {
		p.log = l
	}
}

// Option configures projector behavior through the functional options pattern.
type Option func(*Projector)
