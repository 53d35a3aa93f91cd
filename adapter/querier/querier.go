// Package querier contains the default [domain.Querier] implementation.
package querier

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/docproj/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/data"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/elemmatcher"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/planner"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/projector"
	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

// Querier implements [domain.Querier].
type Querier struct {
	mtchr  domain.Matcher
	cmpr   domain.Comparer
	fn     domain.FieldNavigator
	em     domain.ElementMatcher
	plnr   domain.Planner
	proj   domain.Projector
	docFac domain.DocumentFactory
	log    *zap.Logger
}

// NewQuerier returns a new implementation of [domain.Querier].
func NewQuerier(opts ...Option) domain.Querier {
	q := Querier{
		docFac: data.NewDocument,
		cmpr:   comparer.NewComparer(),
	}
	for _, opt := range opts {
		opt(&q)
	}
	if q.log == nil {
		q.log = zap.NewNop()
	}
	if q.fn == nil {
		q.fn = fieldnavigator.NewFieldNavigator()
	}
	if q.mtchr == nil {
		q.mtchr = matcher.NewMatcher(
			matcher.WithComparer(q.cmpr),
			matcher.WithDocumentFactory(q.docFac),
			matcher.WithFieldNavigator(q.fn),
		)
	}
	if q.em == nil {
		q.em = elemmatcher.NewElementMatcher(
			elemmatcher.WithMatcher(q.mtchr),
			elemmatcher.WithFieldNavigator(q.fn),
			elemmatcher.WithLogger(q.log),
		)
	}
	if q.plnr == nil {
		q.plnr = planner.NewPlanner(
			planner.WithElementMatcher(q.em),
			planner.WithFieldNavigator(q.fn),
			planner.WithDocumentFactory(q.docFac),
			planner.WithLogger(q.log),
		)
	}
	if q.proj == nil {
		q.proj = projector.NewProjector(
			projector.WithElementMatcher(q.em),
			projector.WithDocumentFactory(q.docFac),
			projector.WithLogger(q.log),
		)
	}
	return &q
}

// candidate is a matched document along with the positions that matched.
type candidate struct {
	doc     domain.Document
	details *domain.MatchDetails
}

// query is a compiled Find call.
type query struct {
	*Querier
	src     domain.Source
	pred    domain.Predicate
	plan    *domain.Plan
	options domain.FindOptions
	log     *zap.Logger
}

// Find implements [domain.Querier]. Filter and projection are compiled
// before returning, so malformed queries fail before any document is read.
// Documents whose shape does not fit the projection are skipped.
func (q *Querier) Find(ctx context.Context, src domain.Source, filter any, opts ...domain.FindOption) (iter.Seq2[domain.Document, error], error) {
	if src == nil {
		return nil, domain.ErrNilSource
	}

	var options domain.FindOptions
	for _, opt := range opts {
		opt(&options)
	}

	pred, err := q.mtchr.Compile(filter)
	if err != nil {
		return nil, fmt.Errorf("compiling filter: %w", err)
	}

	plan, err := q.plnr.Plan(pred, options.Projection)
	if err != nil {
		return nil, fmt.Errorf("planning projection: %w", err)
	}

	if options.Sort != nil {
		for _, crit := range options.Sort {
			if _, err := q.fn.GetAddress(crit.Key); err != nil {
				return nil, fmt.Errorf("getting sort address: %w", err)
			}
		}
	}

	qry := &query{
		Querier: q,
		src:     src,
		pred:    pred,
		plan:    plan,
		options: options,
		log:     q.log.With(zap.String("query", uuid.NewString())),
	}
	qry.log.Debug("compiled query",
		zap.Int("projectedFields", len(plan.Fields)),
		zap.Int64("skip", options.Skip),
		zap.Int64("limit", options.Limit),
		zap.Int("sort", len(options.Sort)),
	)

	return func(yield func(domain.Document, error) bool) {
		qry.run(ctx, yield)
	}, nil
}

func (qry *query) run(ctx context.Context, yield func(domain.Document, error) bool) {
	var candidates iter.Seq2[candidate, error]
	if qry.options.Sort != nil {
		sorted, err := qry.sorted(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		candidates = func(yield func(candidate, error) bool) {
			for _, c := range sorted {
				if !yield(c, nil) {
					return
				}
			}
		}
	} else {
		candidates = qry.filter(ctx)
	}

	var skipped, sent int64
	for c, err := range candidates {
		if err != nil {
			yield(nil, err)
			return
		}

		res, err := qry.proj.Project(c.doc, qry.plan, c.details)
		if err != nil {
			if errors.As(err, &domain.ErrInvalidFieldPath{}) {
				qry.log.Debug("skipping document", zap.Any("id", c.doc.ID()), zap.Error(err))
				continue
			}
			yield(nil, fmt.Errorf("projecting: %w", err))
			return
		}

		if skipped < qry.options.Skip {
			skipped++
			continue
		}
		if !yield(res, nil) {
			return
		}
		sent++
		if qry.options.Limit > 0 && sent >= qry.options.Limit {
			return
		}
	}
	qry.log.Debug("query finished", zap.Int64("sent", sent), zap.Int64("skipped", skipped))
}

// filter streams the source documents that match the query.
func (qry *query) filter(ctx context.Context) iter.Seq2[candidate, error] {
	return func(yield func(candidate, error) bool) {
		for doc, err := range qry.src.Documents(ctx) {
			if err == nil {
				err = ctx.Err()
			}
			if err != nil {
				yield(candidate{}, err)
				return
			}
			details := domain.NewMatchDetails()
			matches, err := qry.pred.MatchDetails(doc, details)
			if err != nil {
				yield(candidate{}, fmt.Errorf("matching document: %w", err))
				return
			}
			if !matches {
				continue
			}
			if !yield(candidate{doc: doc, details: details}, nil) {
				return
			}
		}
	}
}

// sorted reads every matching document before ordering them.
func (qry *query) sorted(ctx context.Context) ([]candidate, error) {
	var res []candidate
	for c, err := range qry.filter(ctx) {
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}

	var err error
	slices.SortStableFunc(res, func(a, b candidate) int {
		if err != nil {
			return 0
		}
		for _, crit := range qry.options.Sort {
			comp, cErr := qry.compareByCriterion(a.doc, b.doc, crit)
			if cErr != nil {
				err = cErr
				return 0
			}
			if comp != 0 {
				return comp
			}
		}
		return 0
	})
	if err != nil {
		return nil, fmt.Errorf("sorting: %w", err)
	}
	return res, nil
}

func (qry *query) compareByCriterion(a, b domain.Document, crit domain.SortName) (int, error) {
	addr, err := qry.fn.GetAddress(crit.Key)
	if err != nil {
		return 0, fmt.Errorf("getting address: %w", err)
	}

	criterionA, err := qry.sortValue(a, addr)
	if err != nil {
		return 0, err
	}
	criterionB, err := qry.sortValue(b, addr)
	if err != nil {
		return 0, err
	}

	comp, err := qry.cmpr.Compare(criterionA, criterionB)
	if err != nil {
		return 0, fmt.Errorf("comparing: %w", err)
	}
	if crit.Order < 0 {
		return -comp, nil
	}
	return comp, nil
}

// sortValue returns the value used to sort doc. When the address crosses an
// array, the defined values found are compared as a list.
func (qry *query) sortValue(doc domain.Document, addr []string) (any, error) {
	values, expanded, err := qry.fn.GetField(doc, addr...)
	if err != nil {
		return nil, fmt.Errorf("getting field: %w", err)
	}
	if !expanded {
		return values[0], nil
	}
	res := make([]any, 0, len(values))
	for _, v := range values {
		if val, ok := v.Get(); ok {
			res = append(res, val)
		}
	}
	return res, nil
}
