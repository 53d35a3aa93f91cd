package source

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/vinicius-lino-figueiredo/bst"
	"github.com/vinicius-lino-figueiredo/bst/adapter/avl"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/docproj/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/data"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/docproj/domain"
	"github.com/vinicius-lino-figueiredo/docproj/pkg/ctxsync"
)

var (
	// ErrDuplicateID is returned when a document is inserted with an _id
	// already present in the collection.
	ErrDuplicateID = errors.New("duplicate _id")
)

// ErrNoIndex is returned when a lookup is requested on a field that is not
// indexed.
type ErrNoIndex struct {
	Field string
}

func (e ErrNoIndex) Error() string {
	return fmt.Sprintf("field %q is not indexed", e.Field)
}

// ErrUnknownBound is returned when a range lookup uses something other than
// $gt, $gte, $lt and $lte.
type ErrUnknownBound struct {
	Operator string
}

func (e ErrUnknownBound) Error() string {
	return fmt.Sprintf("unknown range operator %q", e.Operator)
}

type index struct {
	field string
	addr  []string
	tree  bst.BST[any, domain.Document]
}

// Collection is an in-memory set of documents indexed by _id and,
// optionally, by secondary fields. It can be safely used by multiple
// goroutines. Every lookup returns a [domain.Source] that yields copies of
// the stored documents.
type Collection struct {
	mu             *ctxsync.RWMutex
	primary        *index
	indexes        map[string]*index
	comparer       domain.Comparer
	bstComparer    bst.Comparer[any, domain.Document]
	fieldNavigator domain.FieldNavigator
	docFac         domain.DocumentFactory
}

// NewCollection returns an empty [Collection].
func NewCollection(opts ...CollectionOption) (*Collection, error) {
	options := collectionOptions{
		comparer:        comparer.NewComparer(),
		documentFactory: data.NewDocument,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.fieldNavigator == nil {
		options.fieldNavigator = fieldnavigator.NewFieldNavigator()
	}

	c := &Collection{
		mu:             ctxsync.NewRWMutex(),
		indexes:        make(map[string]*index, len(options.indexes)),
		comparer:       options.comparer,
		bstComparer:    newBSTComparer(options.comparer),
		fieldNavigator: options.fieldNavigator,
		docFac:         options.documentFactory,
	}
	c.primary = &index{
		field: "_id",
		addr:  []string{"_id"},
		tree:  avl.NewBST(true, 8, c.bstComparer),
	}
	for _, field := range options.indexes {
		if field == "_id" {
			continue
		}
		addr, err := c.fieldNavigator.GetAddress(field)
		if err != nil {
			return nil, err
		}
		c.indexes[field] = &index{
			field: field,
			addr:  addr,
			tree:  avl.NewBST(false, 8, c.bstComparer),
		}
	}
	return c, nil
}

// Insert adds documents to the collection. Documents without _id get a new
// [primitive.ObjectID]. Either every document is inserted or none is.
func (c *Collection) Insert(ctx context.Context, values ...any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	docs := make([]domain.Document, len(values))
	for n, v := range values {
		doc, err := c.docFac(v)
		if err != nil {
			return err
		}
		if !doc.Has("_id") || doc.ID() == nil {
			doc.Set("_id", primitive.NewObjectID())
		}
		docs[n] = doc
	}

	if err := c.mu.LockWithContext(ctx); err != nil {
		return err
	}
	defer c.mu.Unlock()

	type kv struct {
		idx *index
		key any
		doc domain.Document
	}
	inserted := make([]kv, 0, len(docs))

	var err error
DocInsertion:
	for _, doc := range docs {
		if err = c.checkDuplicate(doc); err != nil {
			break
		}
		for _, idx := range c.allIndexes() {
			var keys []any
			if keys, err = c.getKeys(idx, doc); err != nil {
				break DocInsertion
			}
			for _, k := range keys {
				if err = idx.tree.Insert(k, doc); err != nil {
					if e := new(bst.ErrUniqueViolated); errors.As(err, e) {
						err = fmt.Errorf("%w: %w", ErrDuplicateID, err)
					}
					break DocInsertion
				}
				inserted = append(inserted, kv{idx: idx, key: k, doc: doc})
			}
		}
	}
	if err != nil {
		errs := []error{err}
		for _, v := range inserted {
			if dErr := v.idx.tree.Delete(v.key, &v.doc); dErr != nil {
				errs = append(errs, dErr)
			}
		}
		return errors.Join(errs...)
	}
	return nil
}

func (c *Collection) checkDuplicate(doc domain.Document) error {
	found, err := c.primary.tree.Search(doc.ID())
	if err != nil {
		return err
	}
	if found != nil && len(found.Values()) > 0 {
		return fmt.Errorf("%w: %v", ErrDuplicateID, doc.ID())
	}
	return nil
}

func (c *Collection) allIndexes() []*index {
	res := make([]*index, 0, len(c.indexes)+1)
	res = append(res, c.primary)
	for _, idx := range c.indexes {
		res = append(res, idx)
	}
	return res
}

// getKeys returns the distinct keys of doc in idx. Every element of an
// array value is a key on its own and a missing value is indexed as null.
func (c *Collection) getKeys(idx *index, doc domain.Document) ([]any, error) {
	values, _, err := c.fieldNavigator.GetField(doc, idx.addr...)
	if err != nil {
		return nil, err
	}

	var keys []any
	for _, fv := range values {
		v, ok := fv.Get()
		if !ok {
			continue
		}
		if l, isList := v.([]any); isList && idx != c.primary {
			keys = append(keys, l...)
			continue
		}
		keys = append(keys, v)
	}
	if len(keys) == 0 {
		return []any{nil}, nil
	}

	slices.SortFunc(keys, c.compareThings)
	return slices.CompactFunc(keys, func(a, b any) bool { return c.compareThings(a, b) == 0 }), nil
}

// Len returns the number of documents in the collection.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.primary.tree.GetNumberOfKeys()
}

// Documents implements [domain.Source], yielding every document in _id
// order.
func (c *Collection) Documents(ctx context.Context) iter.Seq2[domain.Document, error] {
	return func(yield func(domain.Document, error) bool) {
		if err := c.mu.RLockWithContext(ctx); err != nil {
			yield(nil, err)
			return
		}
		docs := slices.Collect(c.primary.tree.GetAll())
		c.mu.RUnlock()
		c.yieldCopies(ctx, slices.Values(docs), yield)
	}
}

// Equal returns a source with the documents whose field equals one of the
// given values. Field must be _id or an indexed field.
func (c *Collection) Equal(field string, values ...any) (domain.Source, error) {
	idx, err := c.index(field)
	if err != nil {
		return nil, err
	}
	keys := make([]any, len(values))
	for n, v := range values {
		if keys[n], err = data.Normalize(v); err != nil {
			return nil, err
		}
	}
	slices.SortFunc(keys, c.compareThings)
	keys = slices.CompactFunc(keys, func(a, b any) bool { return c.compareThings(a, b) == 0 })

	return Func(func(ctx context.Context) iter.Seq2[domain.Document, error] {
		return func(yield func(domain.Document, error) bool) {
			if err := c.mu.RLockWithContext(ctx); err != nil {
				yield(nil, err)
				return
			}
			var docs []domain.Document
			for _, k := range keys {
				found, err := idx.tree.Search(k)
				if err != nil {
					c.mu.RUnlock()
					yield(nil, err)
					return
				}
				if found == nil {
					continue
				}
				docs = append(docs, found.Values()...)
			}
			c.mu.RUnlock()
			c.yieldCopies(ctx, unique(docs), yield)
		}
	}), nil
}

// Range returns a source with the documents whose field is within the bounds
// given as a document of $gt, $gte, $lt and $lte operators. Field must be
// _id or an indexed field.
func (c *Collection) Range(field string, bounds any) (domain.Source, error) {
	idx, err := c.index(field)
	if err != nil {
		return nil, err
	}
	doc, err := c.docFac(bounds)
	if err != nil {
		return nil, err
	}

	var qry bst.Query[any]
	for k, v := range doc.Iter() {
		if v, err = data.Normalize(v); err != nil {
			return nil, err
		}
		switch k {
		case "$gt":
			qry.GreaterThan = &bst.Bound[any]{Value: v, IncludeEqual: false}
		case "$gte":
			qry.GreaterThan = &bst.Bound[any]{Value: v, IncludeEqual: true}
		case "$lt":
			qry.LowerThan = &bst.Bound[any]{Value: v, IncludeEqual: false}
		case "$lte":
			qry.LowerThan = &bst.Bound[any]{Value: v, IncludeEqual: true}
		default:
			return nil, ErrUnknownBound{Operator: k}
		}
	}

	return Func(func(ctx context.Context) iter.Seq2[domain.Document, error] {
		return func(yield func(domain.Document, error) bool) {
			if err := c.mu.RLockWithContext(ctx); err != nil {
				yield(nil, err)
				return
			}
			var docs []domain.Document
			for d, err := range idx.tree.Query(qry) {
				if err != nil {
					c.mu.RUnlock()
					yield(nil, err)
					return
				}
				docs = append(docs, d)
			}
			c.mu.RUnlock()
			c.yieldCopies(ctx, unique(docs), yield)
		}
	}), nil
}

func (c *Collection) index(field string) (*index, error) {
	if field == "_id" {
		return c.primary, nil
	}
	idx, ok := c.indexes[field]
	if !ok {
		return nil, ErrNoIndex{Field: field}
	}
	return idx, nil
}

// yieldCopies yields a copy of every document, so consumers can't change the
// stored ones.
func (c *Collection) yieldCopies(ctx context.Context, docs iter.Seq[domain.Document], yield func(domain.Document, error) bool) {
	for d := range docs {
		if err := ctx.Err(); err != nil {
			yield(nil, err)
			return
		}
		cp, err := c.docFac(d)
		if !yield(cp, err) || err != nil {
			return
		}
	}
}

func (c *Collection) compareThings(a any, b any) int {
	comp, _ := c.comparer.Compare(a, b)
	return comp
}

// unique removes repeated documents, which happen when several keys of an
// array field point to the same document.
func unique(docs []domain.Document) iter.Seq[domain.Document] {
	return func(yield func(domain.Document) bool) {
		seen := make(map[domain.Document]struct{}, len(docs))
		for _, d := range docs {
			if _, ok := seen[d]; ok {
				continue
			}
			seen[d] = struct{}{}
			if !yield(d) {
				return
			}
		}
	}
}
