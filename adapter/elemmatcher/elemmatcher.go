// Package elemmatcher contains the default [domain.ElementMatcher]
// implementation, used by $elemMatch projections.
package elemmatcher

import (
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/docproj/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/docproj/domain"
	"github.com/vinicius-lino-figueiredo/docproj/pkg/structure"
)

// ElementMatcher implements [domain.ElementMatcher].
type ElementMatcher struct {
	matcher        domain.Matcher
	fieldNavigator domain.FieldNavigator
	allMatches     bool
	log            *zap.Logger
}

// NewElementMatcher returns a new implementation of [domain.ElementMatcher].
// Unless [WithAllMatches] is given, only the first matching position of an
// array is reported.
func NewElementMatcher(opts ...Option) domain.ElementMatcher {
	e := &ElementMatcher{}
	for _, opt := range opts {
		opt(e)
	}
	if e.fieldNavigator == nil {
		e.fieldNavigator = fieldnavigator.NewFieldNavigator()
	}
	if e.matcher == nil {
		e.matcher = matcher.NewMatcher(matcher.WithFieldNavigator(e.fieldNavigator))
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	return e
}

// Compile implements [domain.ElementMatcher].
func (e *ElementMatcher) Compile(field string, arg any) (domain.ElemMatchSpec, error) {
	addr, err := e.fieldNavigator.GetAddress(field)
	if err != nil {
		return domain.ElemMatchSpec{}, err
	}

	if isList(arg) {
		return domain.ElemMatchSpec{}, domain.ErrUnsupportedProjection{
			Field:  field,
			Reason: "$elemMatch takes a value or a query, not an array",
		}
	}

	pred, err := e.matcher.Compile(arg)
	if err != nil {
		return domain.ElemMatchSpec{}, err
	}

	e.log.Debug("compiled $elemMatch", zap.String("field", field))

	return domain.ElemMatchSpec{
		Field:     field,
		Path:      addr,
		Predicate: pred,
		Scalar:    isScalar(arg),
	}, nil
}

// Match implements [domain.ElementMatcher]. The first array found along the
// spec path is the one narrowed. If the path goes on past it, the rest of the
// path must lead to an array inside each element, and an element is kept
// when that inner array has a matching element.
func (e *ElementMatcher) Match(spec domain.ElemMatchSpec, doc domain.Document) (domain.MatchResult, error) {
	var cur any = doc
	for n, part := range spec.Path {
		switch v := cur.(type) {
		case domain.Document:
			if !v.Has(part) {
				return domain.MatchResult{}, nil
			}
			cur = v.Get(part)
		case []any:
			return e.matchNested(spec, v, n)
		default:
			return domain.MatchResult{}, nil
		}
	}

	switch v := cur.(type) {
	case nil:
		return domain.MatchResult{}, nil
	case []any:
		idx, err := e.matchElements(spec, v)
		if err != nil {
			return domain.MatchResult{}, err
		}
		return e.result(spec.Path, idx), nil
	default:
		return domain.MatchResult{}, domain.ErrInvalidFieldPath{
			Path:   spec.Path,
			Reason: "$elemMatch target is not an array",
		}
	}
}

// matchNested handles paths that go past the array found at spec.Path[:at].
func (e *ElementMatcher) matchNested(spec domain.ElemMatchSpec, arr []any, at int) (domain.MatchResult, error) {
	rest := spec.Path[at:]
	var idx []int
	for n, item := range arr {
		inner, ok, err := e.resolve(spec, item, rest)
		if err != nil {
			return domain.MatchResult{}, err
		}
		if !ok {
			continue
		}
		matched, err := e.matchElements(spec, inner)
		if err != nil {
			return domain.MatchResult{}, err
		}
		if len(matched) == 0 {
			continue
		}
		idx = append(idx, n)
		if !e.allMatches {
			break
		}
	}
	return e.result(spec.Path[:at], idx), nil
}

// resolve follows path inside an array element. Elements that do not have
// the path, or where it ends in something other than an array, are not
// candidates. Crossing another array is not supported.
func (e *ElementMatcher) resolve(spec domain.ElemMatchSpec, item any, path []string) ([]any, bool, error) {
	cur := item
	for _, part := range path {
		switch v := cur.(type) {
		case domain.Document:
			if !v.Has(part) {
				return nil, false, nil
			}
			cur = v.Get(part)
		case []any:
			return nil, false, domain.ErrUnsupportedProjection{
				Field:  spec.Field,
				Reason: "$elemMatch cannot cross more than one array",
			}
		default:
			return nil, false, nil
		}
	}
	arr, ok := cur.([]any)
	return arr, ok, nil
}

// matchElements returns the positions of arr accepted by the spec predicate.
// A field query only looks at embedded documents and arrays.
func (e *ElementMatcher) matchElements(spec domain.ElemMatchSpec, arr []any) ([]int, error) {
	var idx []int
	for n, item := range arr {
		if !spec.Scalar && !isContainer(item) {
			continue
		}
		ok, err := spec.Predicate.Match(item)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		idx = append(idx, n)
		if !e.allMatches {
			break
		}
	}
	return idx, nil
}

// result keeps the array path even when nothing matched, so callers know
// which array has to be dropped.
func (e *ElementMatcher) result(path []string, idx []int) domain.MatchResult {
	return domain.MatchResult{Path: slices.Clone(path), Indexes: idx}
}

func isList(v any) bool {
	if v == nil || structure.IsPrimitive(v) {
		return false
	}
	if _, ok := v.(domain.Document); ok {
		return false
	}
	_, _, err := structure.Seq(v)
	return err == nil
}

func isContainer(v any) bool {
	switch v.(type) {
	case domain.Document, []any:
		return true
	}
	return false
}

// isScalar reports whether arg tests elements themselves: a literal or a
// document made only of condition operators.
func isScalar(arg any) bool {
	if arg == nil || structure.IsPrimitive(arg) {
		return true
	}
	seq, l, err := structure.Seq2(arg)
	if err != nil {
		return true
	}
	if l == 0 {
		return false
	}
	for k := range seq {
		if !strings.HasPrefix(k, "$") {
			return false
		}
		switch k {
		case "$and", "$or", "$nor", "$where":
			return false
		}
	}
	return true
}
