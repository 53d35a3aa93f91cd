package elemmatcher

import (
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

// WithMatcher sets the [domain.Matcher] used to compile $elemMatch
// arguments.
func WithMatcher(m domain.Matcher) Option {
	return func(e *ElementMatcher) {
		e.matcher = m
	}
}

// WithFieldNavigator sets the [domain.FieldNavigator] used to parse field
// names.
func WithFieldNavigator(fn domain.FieldNavigator) Option {
	return func(e *ElementMatcher) {
		e.fieldNavigator = fn
	}
}

// WithAllMatches makes [ElementMatcher.Match] return every matching position
// instead of only the first one.
func WithAllMatches(all bool) Option {
	return func(e *ElementMatcher) {
		e.allMatches = all
	}
}

// WithLogger sets the logger used for debug messages.
func WithLogger(l *zap.Logger) Option {
	return func(e *ElementMatcher) {
		e.log = l
	}
}

// Option configures element matcher behavior through the functional options
// pattern.
type Option func(*ElementMatcher)
