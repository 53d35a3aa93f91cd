// Package source contains [domain.Source] implementations: in-memory lists,
// indexed collections, extended JSON streams and SQL tables.
package source

import (
	"context"
	"iter"

	"github.com/vinicius-lino-figueiredo/docproj/adapter/data"
	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

// Slice is a [domain.Source] over an in-memory list of documents.
type Slice struct {
	docs []domain.Document
}

// NewSlice returns a source that yields docs in order.
func NewSlice(docs ...domain.Document) *Slice {
	return &Slice{docs: docs}
}

// FromValues converts every value into a document with [data.NewDocument]
// and returns a source over them.
func FromValues(values ...any) (*Slice, error) {
	docs := make([]domain.Document, len(values))
	for n, v := range values {
		doc, err := data.NewDocument(v)
		if err != nil {
			return nil, err
		}
		docs[n] = doc
	}
	return NewSlice(docs...), nil
}

// Documents implements [domain.Source].
func (s *Slice) Documents(ctx context.Context) iter.Seq2[domain.Document, error] {
	return func(yield func(domain.Document, error) bool) {
		for _, doc := range s.docs {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(doc, nil) {
				return
			}
		}
	}
}

// Len returns the number of documents.
func (s *Slice) Len() int { return len(s.docs) }

// Func adapts a function to [domain.Source].
type Func func(ctx context.Context) iter.Seq2[domain.Document, error]

// Documents implements [domain.Source].
func (f Func) Documents(ctx context.Context) iter.Seq2[domain.Document, error] {
	return f(ctx)
}
