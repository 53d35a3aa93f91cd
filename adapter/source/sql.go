package source

import (
	"context"
	"database/sql"
	"fmt"
	"iter"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/vinicius-lino-figueiredo/docproj/adapter/data"
	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

// SQL is a [domain.Source] over the rows of a SQL query. The query must
// return a single column holding one extended JSON document per row.
type SQL struct {
	db     *sql.DB
	query  string
	args   []any
	docFac domain.DocumentFactory
}

// NewSQL returns a source that runs query with args on every call.
func NewSQL(db *sql.DB, query string, args ...any) *SQL {
	return &SQL{db: db, query: query, args: args, docFac: data.NewDocument}
}

// Documents implements [domain.Source]. Rows are released when the consumer
// stops pulling documents.
func (s *SQL) Documents(ctx context.Context) iter.Seq2[domain.Document, error] {
	return func(yield func(domain.Document, error) bool) {
		rows, err := s.db.QueryContext(ctx, s.query, s.args...)
		if err != nil {
			yield(nil, fmt.Errorf("querying documents: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var raw []byte
			if err := rows.Scan(&raw); err != nil {
				yield(nil, fmt.Errorf("scanning row: %w", err))
				return
			}
			var d bson.D
			if err := bson.UnmarshalExtJSON(raw, false, &d); err != nil {
				yield(nil, domain.ErrDecode{Source: err})
				return
			}
			doc, err := s.docFac(d)
			if !yield(doc, err) || err != nil {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}
