package domain

import "strings"

// Sort represents an ordered list of fields which should be used to sort query
// results, applied in sequence.
type Sort = []SortName

// SortName represents a single field and the order which should be used to sort
// it. A positive Order value means ascending order and a negative value means
// descending order.
type SortName struct {
	Key   string
	Order int64
}

// DocumentFactory represents a function that constructs [Document] instances
// from structured data types. If nil is provided, returns an empty document.
type DocumentFactory = func(any) (Document, error)

// ProjectionRule identifies what a projection does with a field.
type ProjectionRule uint8

// Supported projection rules.
const (
	RuleInclude ProjectionRule = iota
	RuleExclude
	RuleElemMatch
	RulePositional
	RuleSlice
)

func (r ProjectionRule) String() string {
	switch r {
	case RuleInclude:
		return "include"
	case RuleExclude:
		return "exclude"
	case RuleElemMatch:
		return "elemMatch"
	case RulePositional:
		return "positional"
	case RuleSlice:
		return "slice"
	default:
		return "unknown"
	}
}

// ElemMatchSpec is a compiled $elemMatch clause.
type ElemMatchSpec struct {
	// Field is the field name as written by the user.
	Field string
	// Path is the address of the field.
	Path []string
	// Predicate is applied to every array element.
	Predicate Predicate
	// Scalar is true when the predicate applies to the element itself
	// (literal or operator form) instead of to its fields.
	Scalar bool
}

// MatchResult holds the ordered positions of the elements that satisfied an
// element match, together with the address of the array they belong to. Path
// is nil when no array was found.
type MatchResult struct {
	Path    []string
	Indexes []int
}

// Empty reports whether no element matched.
func (m MatchResult) Empty() bool { return len(m.Indexes) == 0 }

// FieldPlan is the action decided for one projected field.
type FieldPlan struct {
	// Field is the field name without any positional suffix.
	Field string
	// Path is the address of Field.
	Path []string
	// Rule is what should be done with the field.
	Rule ProjectionRule
	// ElemMatch is set for [RuleElemMatch].
	ElemMatch *ElemMatchSpec
	// Skip and Limit are set for [RuleSlice]. A negative Skip counts from
	// the end of the array.
	Skip  int
	Limit int
}

// Plan is the compiled form of a projection. It is built once per query and
// is never modified afterwards.
type Plan struct {
	// Fields holds the field plans in declared order. _id is never part
	// of it.
	Fields []FieldPlan
	// Inclusion is true when unlisted fields are dropped.
	Inclusion bool
	// ExcludeID is true when the identity field should be omitted.
	ExcludeID bool
}

// Empty reports whether the plan keeps documents untouched.
func (p *Plan) Empty() bool {
	return p == nil || (len(p.Fields) == 0 && !p.ExcludeID && !p.Inclusion)
}

// MatchDetails records, for every array crossed while matching a filter, the
// position of the first element that satisfied it. The zero value is ready
// to use.
type MatchDetails struct {
	positions map[string]int
}

// NewMatchDetails returns an empty [MatchDetails].
func NewMatchDetails() *MatchDetails {
	return &MatchDetails{}
}

// Record stores index as the matching position of the array at addr, unless
// a position was already recorded for it.
func (m *MatchDetails) Record(addr []string, index int) {
	if m == nil {
		return
	}
	key := strings.Join(addr, ".")
	if _, ok := m.positions[key]; ok {
		return
	}
	if m.positions == nil {
		m.positions = make(map[string]int)
	}
	m.positions[key] = index
}

// Position returns the position recorded for the array at addr.
func (m *MatchDetails) Position(addr []string) (int, bool) {
	if m == nil {
		return 0, false
	}
	i, ok := m.positions[strings.Join(addr, ".")]
	return i, ok
}

// Merge copies the positions of other that are not yet set in m.
func (m *MatchDetails) Merge(other *MatchDetails) {
	if m == nil || other == nil {
		return
	}
	for k, v := range other.positions {
		if _, ok := m.positions[k]; ok {
			continue
		}
		if m.positions == nil {
			m.positions = make(map[string]int, len(other.positions))
		}
		m.positions[k] = v
	}
}

// Reset forgets every recorded position.
func (m *MatchDetails) Reset() {
	if m != nil {
		clear(m.positions)
	}
}

// Len returns the number of recorded positions.
func (m *MatchDetails) Len() int {
	if m == nil {
		return 0
	}
	return len(m.positions)
}
