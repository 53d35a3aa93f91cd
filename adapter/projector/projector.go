// Package projector contains the default [domain.Projector] implementation.
package projector

import (
	"strings"

	"go.uber.org/zap"

	"github.com/vinicius-lino-figueiredo/docproj/adapter/data"
	"github.com/vinicius-lino-figueiredo/docproj/adapter/elemmatcher"
	"github.com/vinicius-lino-figueiredo/docproj/domain"
)

// Projector implements [domain.Projector].
type Projector struct {
	em     domain.ElementMatcher
	docFac domain.DocumentFactory
	log    *zap.Logger
}

// NewProjector returns a new implementation of [domain.Projector].
func NewProjector(opts ...Option) domain.Projector {
	p := Projector{docFac: data.NewDocument}
	for _, opt := range opts {
		opt(&p)
	}
	if p.em == nil {
		p.em = elemmatcher.NewElementMatcher()
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	return &p
}

// node is a projected path segment. Leaves hold the field plan.
type node struct {
	plan     *domain.FieldPlan
	children map[string]*node
}

func newTree(plan *domain.Plan) *node {
	root := &node{}
	for i := range plan.Fields {
		fp := &plan.Fields[i]
		cur := root
		for _, part := range fp.Path {
			if cur.children == nil {
				cur.children = make(map[string]*node)
			}
			next, ok := cur.children[part]
			if !ok {
				next = &node{}
				cur.children[part] = next
			}
			cur = next
		}
		cur.plan = fp
	}
	return root
}

// projection holds the state used to project a single document.
type projection struct {
	*Projector
	plan *domain.Plan
	// narrow maps array paths to the positions that survive.
	narrow map[string][]int
	// omit holds the paths of narrowing rules that selected nothing.
	omit map[string]struct{}
	// whole holds narrowed arrays above their $elemMatch field. Their
	// elements are not projected any further.
	whole map[string]struct{}
}

// Project implements [domain.Projector]. The document is never modified;
// fields outside the projected paths are shared with the result.
func (q *Projector) Project(doc domain.Document, plan *domain.Plan, details *domain.MatchDetails) (domain.Document, error) {
	if plan.Empty() {
		return doc, nil
	}

	pr := projection{
		Projector: q,
		plan:      plan,
		narrow:    make(map[string][]int),
		omit:      make(map[string]struct{}),
		whole:     make(map[string]struct{}),
	}
	if err := pr.resolveNarrowing(doc, details); err != nil {
		return nil, err
	}

	tree := newTree(plan)
	if plan.Inclusion {
		return pr.positiveProject(doc, tree, "")
	}
	return pr.negativeProject(doc, tree, "")
}

// resolveNarrowing evaluates the $elemMatch and positional rules of the plan
// against doc.
func (pr *projection) resolveNarrowing(doc domain.Document, details *domain.MatchDetails) error {
	for _, fp := range pr.plan.Fields {
		switch fp.Rule {
		case domain.RuleElemMatch:
			res, err := pr.em.Match(*fp.ElemMatch, doc)
			if err != nil {
				return err
			}
			if res.Path == nil {
				pr.omit[key(fp.Path)] = struct{}{}
				continue
			}
			if res.Empty() {
				pr.omit[key(res.Path)] = struct{}{}
				continue
			}
			pr.narrow[key(res.Path)] = res.Indexes
			if len(res.Path) < len(fp.Path) {
				pr.whole[key(res.Path)] = struct{}{}
			}
		case domain.RulePositional:
			pos, ok := details.Position(fp.Path)
			if !ok {
				pr.log.Debug("no position recorded", zap.String("field", fp.Field))
				pr.omit[key(fp.Path)] = struct{}{}
				continue
			}
			pr.narrow[key(fp.Path)] = []int{pos}
		}
	}
	return nil
}

func (pr *projection) positiveProject(doc domain.Document, n *node, prefix string) (domain.Document, error) {
	res, err := pr.docFac(nil)
	if err != nil {
		return nil, err
	}
	for k, v := range doc.Iter() {
		if prefix == "" && k == "_id" {
			if !pr.plan.ExcludeID {
				res.Set(k, v)
			}
			continue
		}
		child, ok := n.children[k]
		if !ok {
			continue
		}
		path := join(prefix, k)
		if _, omitted := pr.omit[path]; omitted {
			continue
		}
		v = pr.applyNarrowing(v, path)
		if _, ok := pr.whole[path]; ok {
			res.Set(k, v)
			continue
		}

		if child.plan != nil {
			res.Set(k, pr.leafValue(v, child.plan))
			continue
		}

		switch t := v.(type) {
		case domain.Document:
			sub, err := pr.positiveProject(t, child, path)
			if err != nil {
				return nil, err
			}
			res.Set(k, sub)
		case []any:
			arr, err := pr.positiveArray(t, child, path)
			if err != nil {
				return nil, err
			}
			res.Set(k, arr)
		}
	}
	return res, nil
}

// positiveArray applies a nested inclusion to every document of arr. Any
// other element is dropped.
func (pr *projection) positiveArray(arr []any, n *node, path string) ([]any, error) {
	res := make([]any, 0, len(arr))
	for _, item := range arr {
		switch t := item.(type) {
		case domain.Document:
			sub, err := pr.positiveProject(t, n, path)
			if err != nil {
				return nil, err
			}
			res = append(res, sub)
		case []any:
			sub, err := pr.positiveArray(t, n, path)
			if err != nil {
				return nil, err
			}
			res = append(res, sub)
		}
	}
	return res, nil
}

func (pr *projection) negativeProject(doc domain.Document, n *node, prefix string) (domain.Document, error) {
	res, err := pr.docFac(nil)
	if err != nil {
		return nil, err
	}
	for k, v := range doc.Iter() {
		if prefix == "" && k == "_id" {
			if !pr.plan.ExcludeID {
				res.Set(k, v)
			}
			continue
		}
		child, ok := n.children[k]
		if !ok {
			res.Set(k, v)
			continue
		}
		if child.plan != nil {
			if child.plan.Rule != domain.RuleExclude {
				res.Set(k, pr.leafValue(v, child.plan))
			}
			continue
		}

		path := join(prefix, k)
		switch t := v.(type) {
		case domain.Document:
			sub, err := pr.negativeProject(t, child, path)
			if err != nil {
				return nil, err
			}
			res.Set(k, sub)
		case []any:
			arr, err := pr.negativeArray(t, child, path)
			if err != nil {
				return nil, err
			}
			res.Set(k, arr)
		default:
			res.Set(k, v)
		}
	}
	return res, nil
}

func (pr *projection) negativeArray(arr []any, n *node, path string) ([]any, error) {
	res := make([]any, len(arr))
	for i, item := range arr {
		switch t := item.(type) {
		case domain.Document:
			sub, err := pr.negativeProject(t, n, path)
			if err != nil {
				return nil, err
			}
			res[i] = sub
		case []any:
			sub, err := pr.negativeArray(t, n, path)
			if err != nil {
				return nil, err
			}
			res[i] = sub
		default:
			res[i] = item
		}
	}
	return res, nil
}

// applyNarrowing keeps only the selected elements when path holds a narrowed
// array. Surviving elements are kept whole.
func (pr *projection) applyNarrowing(v any, path string) any {
	idx, ok := pr.narrow[path]
	if !ok {
		return v
	}
	arr, ok := v.([]any)
	if !ok {
		return v
	}
	res := make([]any, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(arr) {
			res = append(res, arr[i])
		}
	}
	return res
}

func (pr *projection) leafValue(v any, fp *domain.FieldPlan) any {
	if fp.Rule != domain.RuleSlice {
		return v
	}
	arr, ok := v.([]any)
	if !ok {
		return v
	}
	return slice(arr, fp.Skip, fp.Limit)
}

// slice returns limit elements of arr starting at skip. A negative skip
// counts from the end.
func slice(arr []any, skip, limit int) []any {
	l := len(arr)
	start := skip
	if start < 0 {
		start = max(l+start, 0)
	}
	start = min(start, l)
	end := l
	if limit < l-start {
		end = start + limit
	}
	return arr[start:end:end]
}

func join(prefix, k string) string {
	if prefix == "" {
		return k
	}
	return prefix + "." + k
}

func key(path []string) string {
	return strings.Join(path, ".")
}
