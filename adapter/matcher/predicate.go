package matcher

import (
	"regexp"
	"slices"

	"go.mongodb.org/mongo-driver/bson/bsontype"

	"github.com/vinicius-lino-figueiredo/docproj/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

// Predicate implements [domain.Predicate]. It holds no state besides the
// compiled query, so it can be shared by goroutines.
type Predicate struct {
	Query Query
	m     *Matcher
}

// Match implements [domain.Predicate].
func (p *Predicate) Match(value any) (bool, error) {
	return p.m.matchQuery(value, p.Query, nil)
}

// MatchDetails implements [domain.Predicate].
func (p *Predicate) MatchDetails(value any, details *domain.MatchDetails) (bool, error) {
	return p.m.matchQuery(value, p.Query, details)
}

// Fields implements [domain.Predicate].
func (p *Predicate) Fields() [][]string {
	var res [][]string
	for _, lo := range p.Query.Lo {
		res = appendFields(res, lo)
	}
	return res
}

func appendFields(res [][]string, lo LogicOp) [][]string {
	for _, rule := range lo.Rules {
		if len(rule.Addr) == 0 {
			continue
		}
		if !slices.ContainsFunc(res, func(a []string) bool { return slices.Equal(a, rule.Addr) }) {
			res = append(res, rule.Addr)
		}
	}
	for _, sub := range lo.Sub {
		res = appendFields(res, sub)
	}
	return res
}

// valueMode tells which values are tested by a condition: the resolved
// values, the elements of resolved arrays, or both.
type valueMode uint8

const (
	wholeAndElements valueMode = iota
	wholeOnly
	elementsOnly
	// elementsOrScalar tests the elements of arrays and any other value
	// as a whole.
	elementsOrScalar
)

func (m *Matcher) matchQuery(value any, query Query, details *domain.MatchDetails) (bool, error) {
	if !query.Sub {
		if _, ok := value.(domain.Document); !ok && len(query.Lo) > 0 {
			return false, nil
		}
	}

	var matches bool
	var err error
	for _, lo := range query.Lo {
		matches, err = m.matchLogicOp(value, lo, details)
		if err != nil || !matches {
			return matches, err
		}
	}
	return true, nil
}

// matchLogicOp only commits positions to details when the operator matches.
func (m *Matcher) matchLogicOp(value any, lo LogicOp, details *domain.MatchDetails) (bool, error) {
	var scratch *domain.MatchDetails
	if details != nil {
		scratch = domain.NewMatchDetails()
	}

	var matches bool
	var err error
	switch lo.Type {
	case And:
		for _, rule := range lo.Rules {
			matches, err = m.matchRule(value, rule, scratch)
			if err != nil || !matches {
				return matches, err
			}
		}
		for _, sub := range lo.Sub {
			matches, err = m.matchLogicOp(value, sub, scratch)
			if err != nil || !matches {
				return matches, err
			}
		}
		details.Merge(scratch)
		return true, nil
	case Or:
		for _, sub := range lo.Sub {
			matches, err = m.matchLogicOp(value, sub, scratch)
			if err != nil {
				return false, err
			}
			if matches {
				details.Merge(scratch)
				return true, nil
			}
			scratch.Reset()
		}
		return false, nil
	case Nor:
		for _, sub := range lo.Sub {
			matches, err = m.matchLogicOp(value, sub, nil)
			if err != nil || matches {
				return false, err
			}
		}
		return true, nil
	case Where:
		return lo.Where(value)
	default:
		return false, nil
	}
}

func (m *Matcher) matchRule(value any, rule FieldRule, details *domain.MatchDetails) (bool, error) {
	var values []domain.FieldValue
	if len(rule.Addr) == 0 {
		values = []domain.FieldValue{fieldnavigator.NewValue(value)}
	} else {
		var err error
		values, _, err = m.fieldNavigator.GetField(value, rule.Addr...)
		if err != nil {
			return false, err
		}
	}

	for _, cond := range rule.Conds {
		matches, err := m.matchCond(values, rule.Addr, cond, details)
		if err != nil || !matches {
			return matches, err
		}
	}
	return true, nil
}

func (m *Matcher) matchCond(values []domain.FieldValue, addr []string, cond Cond, details *domain.MatchDetails) (bool, error) {
	switch cond.Op {
	case Eq:
		return m.anyValue(values, addr, details, wholeAndElements, func(v any) (bool, error) {
			return m.equal(v, cond.Val), nil
		})
	case Ne:
		matches, err := m.matchCond(values, addr, Cond{Op: Eq, Val: cond.Val}, nil)
		return !matches, err
	case Lt, Lte, Gt, Gte:
		mode := elementsOrScalar
		if _, ok := cond.Val.([]any); ok {
			mode = wholeAndElements
		}
		return m.anyValue(values, addr, details, mode, func(v any) (bool, error) {
			return m.order(v, cond), nil
		})
	case In:
		return m.anyValue(values, addr, details, wholeAndElements, func(v any) (bool, error) {
			return m.in(v, cond.Val.([]any)), nil
		})
	case Nin:
		matches, err := m.matchCond(values, addr, Cond{Op: In, Val: cond.Val}, nil)
		return !matches, err
	case Regex:
		rgx := cond.Val.(*regexp.Regexp)
		return m.anyValue(values, addr, details, wholeAndElements, func(v any) (bool, error) {
			return m.regex(v, rgx), nil
		})
	case Exists:
		return m.exists(values) == cond.Val.(bool), nil
	case Size:
		return m.anyValue(values, addr, details, wholeOnly, func(v any) (bool, error) {
			arr, ok := v.([]any)
			return ok && len(arr) == cond.Val.(int), nil
		})
	case Type:
		codes := cond.Val.([]bsontype.Type)
		return m.anyValue(values, addr, details, wholeAndElements, func(v any) (bool, error) {
			t, ok := typeOf(v)
			return ok && slices.Contains(codes, t), nil
		})
	case ElemMatch:
		qry := cond.Val.(Query)
		return m.anyValue(values, addr, details, elementsOnly, func(v any) (bool, error) {
			return m.matchQuery(v, qry, nil)
		})
	case Not:
		for _, sub := range cond.Val.([]Cond) {
			matches, err := m.matchCond(values, addr, sub, nil)
			if err != nil {
				return false, err
			}
			if !matches {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, nil
	}
}

// anyValue reports whether fn succeeds for any defined value. Positions are
// recorded in details for the first array crossed while resolving the value
// or, when no array was crossed, for the matching element of the value.
func (m *Matcher) anyValue(values []domain.FieldValue, addr []string, details *domain.MatchDetails, mode valueMode, fn func(any) (bool, error)) (bool, error) {
	for _, value := range values {
		v, ok := value.Get()
		if !ok {
			continue
		}
		originAddr, originIdx, hasOrigin := value.Origin()
		arr, isArr := v.([]any)

		if mode != elementsOnly && (mode != elementsOrScalar || !isArr) {
			matches, err := fn(v)
			if err != nil {
				return false, err
			}
			if matches {
				if hasOrigin {
					details.Record(originAddr, originIdx)
				}
				return true, nil
			}
		}

		if mode == wholeOnly || !isArr {
			continue
		}
		for n, item := range arr {
			matches, err := fn(item)
			if err != nil {
				return false, err
			}
			if !matches {
				continue
			}
			switch {
			case hasOrigin:
				details.Record(originAddr, originIdx)
			case len(addr) > 0:
				details.Record(addr, n)
			}
			return true, nil
		}
	}
	return false, nil
}

func (m *Matcher) exists(values []domain.FieldValue) bool {
	for _, value := range values {
		if _, ok := value.Get(); ok {
			return true
		}
	}
	return false
}

// equal compares values of the same family. Values that cannot be compared
// are never equal.
func (m *Matcher) equal(a, b any) bool {
	c, err := m.comparer.Compare(a, b)
	return err == nil && c == 0
}

// order applies a range operator. Values of different families are ordered
// by the comparer ranking.
func (m *Matcher) order(v any, cond Cond) bool {
	c, err := m.comparer.Compare(v, cond.Val)
	if err != nil {
		return false
	}
	switch cond.Op {
	case Lt:
		return c < 0
	case Lte:
		return c <= 0
	case Gt:
		return c > 0
	default:
		return c >= 0
	}
}

func (m *Matcher) in(v any, list []any) bool {
	for _, item := range list {
		if rgx, ok := item.(*regexp.Regexp); ok {
			if m.regex(v, rgx) {
				return true
			}
			continue
		}
		if m.equal(v, item) {
			return true
		}
	}
	return false
}

func (m *Matcher) regex(v any, rgx *regexp.Regexp) bool {
	str, ok := v.(string)
	return ok && rgx.MatchString(str)
}
