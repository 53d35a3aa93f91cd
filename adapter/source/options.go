package source

import (
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

type collectionOptions struct {
	indexes         []string
	comparer        domain.Comparer
	fieldNavigator  domain.FieldNavigator
	documentFactory domain.DocumentFactory
}

// CollectionOption configures a [Collection].
type CollectionOption func(*collectionOptions)

// WithIndex adds secondary indexes on the given fields.
func WithIndex(fields ...string) CollectionOption {
	return func(o *collectionOptions) {
		o.indexes = append(o.indexes, fields...)
	}
}

// WithComparer sets the comparer used to order index keys.
func WithComparer(c domain.Comparer) CollectionOption {
	return func(o *collectionOptions) {
		o.comparer = c
	}
}

// WithFieldNavigator sets the field navigator used to read indexed fields.
func WithFieldNavigator(fn domain.FieldNavigator) CollectionOption {
	return func(o *collectionOptions) {
		o.fieldNavigator = fn
	}
}

// WithDocumentFactory sets the factory used to store and copy documents.
func WithDocumentFactory(df domain.DocumentFactory) CollectionOption {
	return func(o *collectionOptions) {
		o.documentFactory = df
	}
}

// ReaderOption configures a [Reader].
type ReaderOption func(*Reader)

// WithCorruptAlertThreshold sets the ratio of undecodable lines tolerated
// before the stream fails. With the default of zero, the first bad line ends
// the stream.
func WithCorruptAlertThreshold(t float64) ReaderOption {
	return func(r *Reader) {
		r.corruptAlertThreshold = t
	}
}

// WithReaderLogger sets the logger used to report skipped lines.
func WithReaderLogger(l *zap.Logger) ReaderOption {
	return func(r *Reader) {
		r.log = l
	}
}

// WithReaderDocumentFactory sets the factory used to build the decoded
// documents.
func WithReaderDocumentFactory(df domain.DocumentFactory) ReaderOption {
	return func(r *Reader) {
		r.docFac = df
	}
}
