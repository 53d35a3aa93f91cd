// Package planner contains the default [domain.Planner] implementation.
package planner

import (
	"math"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/docproj/adapter/data"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/elemmatcher"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/docproj/domain"
	"github.com/vinicius-lino-figueiredo/docproj/pkg/structure"
)

const positional = "$"

// Planner implements [domain.Planner].
type Planner struct {
	elemMatcher     domain.ElementMatcher
	fieldNavigator  domain.FieldNavigator
	documentFactory domain.DocumentFactory
	log             *zap.Logger
}

// NewPlanner returns a new implementation of [domain.Planner].
func NewPlanner(opts ...Option) domain.Planner {
	p := &Planner{documentFactory: data.NewDocument}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	if p.fieldNavigator == nil {
		p.fieldNavigator = fieldnavigator.NewFieldNavigator()
	}
	if p.elemMatcher == nil {
		p.elemMatcher = elemmatcher.NewElementMatcher(
			elemmatcher.WithFieldNavigator(p.fieldNavigator),
			elemmatcher.WithLogger(p.log),
		)
	}
	return p
}

// planState accumulates what was seen while reading a projection.
type planState struct {
	plan      domain.Plan
	included  int
	excluded  int
	narrowing int
	hasPos    bool
	keepID    bool
}

// Plan implements [domain.Planner]. The filter is needed to validate
// positional projections and can be nil otherwise.
func (p *Planner) Plan(filter domain.Predicate, projection any) (*domain.Plan, error) {
	if projection == nil {
		return &domain.Plan{}, nil
	}

	proj, err := p.documentFactory(projection)
	if err != nil {
		return nil, err
	}

	var st planState
	for field, value := range proj.Iter() {
		if field == "_id" {
			if err := p.planID(&st, value); err != nil {
				return nil, err
			}
			continue
		}
		fp, err := p.planField(&st, filter, field, value)
		if err != nil {
			return nil, err
		}
		if err := checkCollision(st.plan.Fields, fp); err != nil {
			return nil, err
		}
		st.plan.Fields = append(st.plan.Fields, fp)
	}

	if st.excluded > 0 && (st.included > 0 || st.narrowing > 0) {
		return nil, domain.ErrMixedProjection
	}
	st.plan.Inclusion = st.included > 0 || st.narrowing > 0 || (st.keepID && st.excluded == 0)

	p.log.Debug("planned projection",
		zap.Int("fields", len(st.plan.Fields)),
		zap.Bool("inclusion", st.plan.Inclusion),
		zap.Bool("excludeID", st.plan.ExcludeID),
	)

	return &st.plan, nil
}

func (p *Planner) planID(st *planState, value any) error {
	keep, ok := structure.Truthy(value)
	if !ok {
		return domain.ErrUnsupportedProjection{
			Field:  "_id",
			Reason: "_id can only be included or excluded",
		}
	}
	st.plan.ExcludeID = !keep
	st.keepID = keep
	return nil
}

func (p *Planner) planField(st *planState, filter domain.Predicate, field string, value any) (domain.FieldPlan, error) {
	addr, err := p.fieldNavigator.GetAddress(field)
	if err != nil {
		return domain.FieldPlan{}, err
	}

	if i := slices.Index(addr, positional); i >= 0 {
		return p.planPositional(st, filter, field, addr, i, value)
	}
	for _, part := range addr {
		if strings.HasPrefix(part, "$") {
			return domain.FieldPlan{}, domain.ErrInvalidFieldPath{
				Path:   addr,
				Reason: "field names cannot start with '$'",
			}
		}
	}

	if doc, ok := value.(domain.Document); ok {
		return p.planOperator(st, field, addr, doc)
	}

	keep, ok := structure.Truthy(value)
	if !ok {
		return domain.FieldPlan{}, domain.ErrUnsupportedProjection{
			Field:  field,
			Reason: "projection values must be numbers, booleans or operators",
		}
	}
	if keep {
		st.included++
		return domain.FieldPlan{Field: field, Path: addr, Rule: domain.RuleInclude}, nil
	}
	st.excluded++
	return domain.FieldPlan{Field: field, Path: addr, Rule: domain.RuleExclude}, nil
}

func (p *Planner) planPositional(st *planState, filter domain.Predicate, field string, addr []string, at int, value any) (domain.FieldPlan, error) {
	if at != len(addr)-1 {
		return domain.FieldPlan{}, domain.ErrUnsupportedProjection{
			Field:  field,
			Reason: "sub-field positional projection not supported",
		}
	}
	if at == 0 {
		return domain.FieldPlan{}, domain.ErrInvalidFieldPath{
			Path:   addr,
			Reason: "positional operator needs an array field",
		}
	}
	if keep, ok := structure.Truthy(value); !ok || !keep {
		return domain.FieldPlan{}, domain.ErrUnsupportedProjection{
			Field:  field,
			Reason: "positional projection cannot be used in an exclusion",
		}
	}
	if st.hasPos {
		return domain.FieldPlan{}, domain.ErrUnsupportedProjection{
			Field:  field,
			Reason: "multiple positional operators not supported",
		}
	}

	path := addr[:at]
	name := strings.Join(path, ".")
	if !filterReferences(filter, path) {
		return domain.FieldPlan{}, domain.ErrPositionalRequiresFilter{Field: name}
	}

	st.hasPos = true
	st.narrowing++
	return domain.FieldPlan{Field: name, Path: path, Rule: domain.RulePositional}, nil
}

func (p *Planner) planOperator(st *planState, field string, addr []string, doc domain.Document) (domain.FieldPlan, error) {
	if doc.Len() != 1 {
		return domain.FieldPlan{}, domain.ErrUnsupportedProjection{
			Field:  field,
			Reason: "projection operators must be used alone",
		}
	}

	var op string
	var arg any
	for k, v := range doc.Iter() {
		op, arg = k, v
		break
	}

	switch op {
	case "$elemMatch":
		spec, err := p.elemMatcher.Compile(field, arg)
		if err != nil {
			return domain.FieldPlan{}, err
		}
		st.narrowing++
		return domain.FieldPlan{
			Field:     field,
			Path:      addr,
			Rule:      domain.RuleElemMatch,
			ElemMatch: &spec,
		}, nil
	case "$slice":
		skip, limit, err := sliceArgs(field, arg)
		if err != nil {
			return domain.FieldPlan{}, err
		}
		return domain.FieldPlan{
			Field: field,
			Path:  addr,
			Rule:  domain.RuleSlice,
			Skip:  skip,
			Limit: limit,
		}, nil
	default:
		return domain.FieldPlan{}, domain.ErrUnsupportedProjection{
			Field:  field,
			Reason: "unknown projection operator " + op,
		}
	}
}

// sliceArgs reads either a count, negative to count from the end, or a
// [skip, limit] pair.
func sliceArgs(field string, arg any) (skip, limit int, err error) {
	if n, ok := structure.AsInteger(arg); ok {
		if n == math.MinInt {
			return n, math.MaxInt, nil
		}
		if n < 0 {
			return n, -n, nil
		}
		return 0, n, nil
	}

	list, ok := arg.([]any)
	if !ok {
		return 0, 0, domain.ErrInvalidSlice{Field: field, Reason: "expected a number or an array"}
	}
	if len(list) != 2 {
		return 0, 0, domain.ErrInvalidSlice{Field: field, Reason: "array argument must have two elements"}
	}
	skip, ok = structure.AsInteger(list[0])
	if !ok {
		return 0, 0, domain.ErrInvalidSlice{Field: field, Reason: "skip must be an integer"}
	}
	limit, ok = structure.AsInteger(list[1])
	if !ok {
		return 0, 0, domain.ErrInvalidSlice{Field: field, Reason: "limit must be an integer"}
	}
	if limit <= 0 {
		return 0, 0, domain.ErrInvalidSlice{Field: field, Reason: "limit must be positive"}
	}
	return skip, limit, nil
}

// filterReferences reports whether the filter tests path or one of its
// sub-paths.
func filterReferences(filter domain.Predicate, path []string) bool {
	if filter == nil {
		return false
	}
	for _, addr := range filter.Fields() {
		if len(addr) >= len(path) && slices.Equal(addr[:len(path)], path) {
			return true
		}
	}
	return false
}

func checkCollision(fields []domain.FieldPlan, fp domain.FieldPlan) error {
	for _, other := range fields {
		if isPrefix(other.Path, fp.Path) || isPrefix(fp.Path, other.Path) {
			return domain.ErrInvalidFieldPath{
				Path:   fp.Path,
				Reason: "collides with " + other.Field,
			}
		}
	}
	return nil
}

func isPrefix(prefix, path []string) bool {
	return len(prefix) <= len(path) && slices.Equal(prefix, path[:len(prefix)])
}
