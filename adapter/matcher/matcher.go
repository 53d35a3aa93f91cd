// Package matcher contains the default implementation of [domain.Matcher]
// using a mongo-like query API.
package matcher

import (
	"errors"
	"fmt"
	"iter"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vinicius-lino-figueiredo/docproj/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/data"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/docproj/domain"
	"github.com/vinicius-lino-figueiredo/docproj/pkg/structure"
)

var (
	// ErrMixedOperators is returned when user provides a query with mixed
	// use of normal fields and operators.
	ErrMixedOperators = errors.New("cannot mix operators and normal fields")
)

// ErrUnknownOperator is returned when user provides an unknown dollar field.
type ErrUnknownOperator struct {
	Operator string
}

// Error implements [error].
func (e ErrUnknownOperator) Error() string {
	return fmt.Sprintf("unknown operator %q", e.Operator)
}

// Matcher implements [domain.Matcher].
type Matcher struct {
	documentFactory domain.DocumentFactory
	comparer        domain.Comparer
	fieldNavigator  domain.FieldNavigator
}

// NewMatcher returns a new implementation of domain.Matcher.
func NewMatcher(options ...Option) domain.Matcher {

	m := &Matcher{
		documentFactory: data.NewDocument,
		comparer:        comparer.NewComparer(),
		fieldNavigator:  fieldnavigator.NewFieldNavigator(),
	}

	for _, option := range options {
		option(m)
	}

	return m
}

// Compile implements [domain.Matcher].
func (m *Matcher) Compile(query any) (domain.Predicate, error) {
	qry, err := m.makeQuery(query)
	if err != nil {
		return nil, err
	}
	return &Predicate{Query: qry, m: m}, nil
}

type pair struct {
	key   string
	value any
}

func isLogic(key string) bool {
	switch key {
	case "$and", "$or", "$nor", "$where":
		return true
	}
	return false
}

func (m *Matcher) makeQuery(query any) (qry Query, err error) {
	if query == nil {
		return qry, nil
	}
	if isRegex(query) || structure.IsPrimitive(query) {
		return m.valueQuery(query)
	}
	i, l, err := structure.Seq2(query)
	if err != nil {
		return m.valueQuery(query)
	}

	pairs, cond, err := m.ensureNotMixed(i, l)
	if err != nil {
		return qry, err
	}

	if cond {
		rule, err := m.makeDollarRule(nil, pairs)
		if err != nil {
			return qry, err
		}
		qry.Sub = true
		qry.Lo = []LogicOp{{Type: And, Rules: []FieldRule{rule}}}
		return qry, nil
	}

	lo, err := m.makeAnd(pairs)
	if err != nil {
		return qry, err
	}
	qry.Lo = []LogicOp{lo}
	return qry, nil
}

// valueQuery creates a query comparing the matched value itself with v.
func (m *Matcher) valueQuery(v any) (Query, error) {
	cond, err := m.eqCond(v)
	if err != nil {
		return Query{}, err
	}
	return Query{Sub: true, Lo: []LogicOp{
		{Type: And, Rules: []FieldRule{{Conds: []Cond{cond}}}},
	}}, nil
}

// ensureNotMixed collects the query pairs in order. It reports whether the
// query is made of conditional operators, which cannot be combined with
// fields or logic operators.
func (m *Matcher) ensureNotMixed(i iter.Seq2[string, any], l int) ([]pair, bool, error) {
	pairs := make([]pair, 0, l)
	var cond, other int
	for k, v := range i {
		if strings.HasPrefix(k, "$") && !isLogic(k) {
			cond++
		} else {
			other++
		}
		if cond > 0 && other > 0 {
			return nil, false, ErrMixedOperators
		}
		pairs = append(pairs, pair{key: k, value: v})
	}
	return pairs, cond > 0, nil
}

func (m *Matcher) makeAnd(pairs []pair) (lo LogicOp, err error) {
	lo.Type = And
	for _, p := range pairs {
		if !isLogic(p.key) {
			fr, err := m.makeFieldRule(p.key, p.value)
			if err != nil {
				return lo, err
			}
			lo.Rules = append(lo.Rules, fr)
			continue
		}
		sub, err := m.makeLogicOp(p.key, p.value)
		if err != nil {
			return lo, err
		}
		lo.Sub = append(lo.Sub, sub)
	}
	return lo, nil
}

func (m *Matcher) makeLogicOp(name string, v any) (LogicOp, error) {
	switch name {
	case "$and":
		return m.makeLogicList(And, name, v)
	case "$or":
		return m.makeLogicList(Or, name, v)
	case "$nor":
		return m.makeLogicList(Nor, name, v)
	default:
		where, ok := v.(func(any) (bool, error))
		if !ok {
			return LogicOp{}, domain.ErrTypeMismatch{Operator: name, Value: v}
		}
		return LogicOp{Type: Where, Where: where}, nil
	}
}

func (m *Matcher) makeLogicList(typ uint8, name string, v any) (LogicOp, error) {
	lo := LogicOp{Type: typ}
	items, l, err := structure.Seq(v)
	if err != nil || l == 0 {
		return lo, domain.ErrTypeMismatch{Operator: name, Value: v}
	}
	lo.Sub = make([]LogicOp, 0, l)

	for item := range items {
		i, l, err := structure.Seq2(item)
		if err != nil || structure.IsPrimitive(item) {
			return lo, domain.ErrTypeMismatch{Operator: name, Value: item}
		}
		pairs, cond, err := m.ensureNotMixed(i, l)
		if err != nil {
			return lo, err
		}
		if cond {
			return lo, ErrUnknownOperator{Operator: pairs[0].key}
		}
		sub, err := m.makeAnd(pairs)
		if err != nil {
			return lo, err
		}
		lo.Sub = append(lo.Sub, sub)
	}
	return lo, nil
}

func (m *Matcher) makeFieldRule(field string, obj any) (fr FieldRule, err error) {
	addr, err := m.fieldNavigator.GetAddress(field)
	if err != nil {
		return fr, err
	}

	if isRegex(obj) || structure.IsPrimitive(obj) {
		cond, err := m.eqCond(obj)
		return FieldRule{Addr: addr, Conds: []Cond{cond}}, err
	}

	i, l, err := structure.Seq2(obj)
	if err != nil || l == 0 {
		cond, err := m.eqCond(obj)
		return FieldRule{Addr: addr, Conds: []Cond{cond}}, err
	}

	pairs, cond, err := m.ensureNotMixed(i, l)
	if err != nil {
		return fr, err
	}

	if cond {
		return m.makeDollarRule(addr, pairs)
	}

	c, err := m.eqCond(obj)
	return FieldRule{Addr: addr, Conds: []Cond{c}}, err
}

// eqCond creates an equality condition, or a regex condition when v is a
// regular expression.
func (m *Matcher) eqCond(v any) (Cond, error) {
	if isRegex(v) {
		rgx, err := m.compileRegex(v, "")
		return Cond{Op: Regex, Val: rgx}, err
	}
	val, err := m.normalize(v)
	return Cond{Op: Eq, Val: val}, err
}

func (m *Matcher) normalize(v any) (any, error) {
	if structure.IsPrimitive(v) || v == nil {
		return data.Normalize(v)
	}
	if _, _, err := structure.Seq2(v); err == nil {
		return m.documentFactory(v)
	}
	return data.Normalize(v)
}

func (m *Matcher) makeDollarRule(addr []string, pairs []pair) (fr FieldRule, err error) {
	rule := FieldRule{
		Addr:  addr,
		Conds: make([]Cond, 0, len(pairs)),
	}

	var options string
	var hasOptions bool
	for _, p := range pairs {
		if p.key == "$options" {
			if options, hasOptions = p.value.(string); !hasOptions {
				return fr, domain.ErrTypeMismatch{Operator: "$options", Value: p.value}
			}
		}
	}

	var cond Cond
	var hasRegex bool
	for _, p := range pairs {
		switch p.key {
		case "$options":
			continue
		case "$regex":
			hasRegex = true
			var rgx *regexp.Regexp
			if rgx, err = m.compileRegex(p.value, options); err != nil {
				return fr, err
			}
			cond = Cond{Op: Regex, Val: rgx}
		default:
			if cond, err = m.makeCond(p.key, p.value); err != nil {
				return fr, err
			}
		}
		rule.Conds = append(rule.Conds, cond)
	}

	if hasOptions && !hasRegex {
		return fr, domain.ErrTypeMismatch{Operator: "$options", Value: options}
	}

	return rule, nil
}

func (m *Matcher) makeCond(k string, v any) (cond Cond, err error) {
	switch k {
	case "$eq":
		return m.makeComparison(Eq, v)
	case "$ne":
		return m.makeComparison(Ne, v)
	case "$lt":
		return m.makeComparison(Lt, v)
	case "$lte":
		return m.makeComparison(Lte, v)
	case "$gt":
		return m.makeComparison(Gt, v)
	case "$gte":
		return m.makeComparison(Gte, v)
	case "$in":
		return m.makeList(In, k, v)
	case "$nin":
		return m.makeList(Nin, k, v)
	case "$exists":
		return m.makeExists(v)
	case "$size":
		return m.makeSize(v)
	case "$type":
		return m.makeType(v)
	case "$elemMatch":
		return m.makeElemMatch(v)
	case "$not":
		return m.makeNot(v)
	default:
		return cond, ErrUnknownOperator{Operator: k}
	}
}

func (m *Matcher) makeComparison(op uint8, v any) (Cond, error) {
	val, err := m.normalize(v)
	if err != nil {
		return Cond{}, err
	}
	return Cond{Op: op, Val: val}, nil
}

func (m *Matcher) makeList(op uint8, name string, v any) (cond Cond, err error) {
	seq, l, err := structure.Seq(v)
	if err != nil || isRegex(v) {
		return cond, domain.ErrTypeMismatch{Operator: name, Value: v}
	}
	list := make([]any, 0, l)
	for item := range seq {
		if isRegex(item) {
			rgx, err := m.compileRegex(item, "")
			if err != nil {
				return cond, err
			}
			list = append(list, rgx)
			continue
		}
		val, err := m.normalize(item)
		if err != nil {
			return cond, err
		}
		list = append(list, val)
	}
	return Cond{Op: op, Val: list}, nil
}

func (m *Matcher) makeExists(v any) (Cond, error) {
	exists, ok := structure.Truthy(v)
	if !ok {
		exists = true
	}
	return Cond{Op: Exists, Val: exists}, nil
}

func (m *Matcher) makeSize(v any) (cond Cond, err error) {
	i, ok := structure.AsInteger(v)
	if !ok || i < 0 {
		return cond, domain.ErrTypeMismatch{Operator: "$size", Value: v}
	}
	return Cond{Op: Size, Val: i}, nil
}

func (m *Matcher) makeType(v any) (cond Cond, err error) {
	codes, err := typeCodes(v)
	if err != nil {
		return cond, err
	}
	return Cond{Op: Type, Val: codes}, nil
}

func (m *Matcher) makeElemMatch(v any) (cond Cond, err error) {
	if _, _, err := structure.Seq2(v); err != nil || structure.IsPrimitive(v) {
		return cond, domain.ErrTypeMismatch{Operator: "$elemMatch", Value: v}
	}
	qry, err := m.makeQuery(v)
	if err != nil {
		return cond, err
	}
	return Cond{Op: ElemMatch, Val: qry}, nil
}

// makeNot accepts a regular expression or an operator document.
func (m *Matcher) makeNot(v any) (cond Cond, err error) {
	if isRegex(v) {
		rgx, err := m.compileRegex(v, "")
		if err != nil {
			return cond, err
		}
		return Cond{Op: Not, Val: []Cond{{Op: Regex, Val: rgx}}}, nil
	}
	i, l, err := structure.Seq2(v)
	if err != nil || structure.IsPrimitive(v) || l == 0 {
		return cond, domain.ErrTypeMismatch{Operator: "$not", Value: v}
	}
	pairs, isCond, err := m.ensureNotMixed(i, l)
	if err != nil {
		return cond, err
	}
	if !isCond {
		return cond, domain.ErrTypeMismatch{Operator: "$not", Value: v}
	}
	rule, err := m.makeDollarRule(nil, pairs)
	if err != nil {
		return cond, err
	}
	return Cond{Op: Not, Val: rule.Conds}, nil
}

func isRegex(v any) bool {
	switch v.(type) {
	case *regexp.Regexp, primitive.Regex:
		return true
	}
	return false
}

// compileRegex builds a regular expression from a pattern string, a
// [primitive.Regex] or an already compiled expression. Options given in
// $options replace the ones carried by the value.
func (m *Matcher) compileRegex(v any, options string) (*regexp.Regexp, error) {
	var pattern string
	switch t := v.(type) {
	case *regexp.Regexp:
		if options == "" {
			return t, nil
		}
		pattern = t.String()
	case primitive.Regex:
		pattern = t.Pattern
		if options == "" {
			options = t.Options
		}
	case string:
		pattern = t
	default:
		return nil, domain.ErrTypeMismatch{Operator: "$regex", Value: v}
	}

	var flags strings.Builder
	for _, o := range options {
		switch o {
		case 'i', 'm', 's':
			flags.WriteRune(o)
		default:
			return nil, domain.ErrTypeMismatch{Operator: "$options", Value: options}
		}
	}
	if flags.Len() > 0 {
		pattern = "(?" + flags.String() + ")" + pattern
	}

	rgx, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTypeMismatch{Operator: "$regex", Value: v}, err)
	}
	return rgx, nil
}
