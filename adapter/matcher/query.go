package matcher

// Numeric representations of supported logic operators.
const (
	And uint8 = iota
	Or
	Nor
	Where
)

// Numeric representations of supported operators.
const (
	Eq uint8 = iota
	Ne
	Exists
	Lt
	Lte
	Gt
	Gte
	Size
	In
	Nin
	ElemMatch
	Regex
	Type
	Not
)

// Query stores a compiled query in a typed and easier to iterate struct. All
// logic operators must match.
type Query struct {
	// Sub is true when the query applies conditions to the matched value
	// itself instead of to its fields.
	Sub bool
	Lo  []LogicOp
}

// LogicOp stores a logic operator (and, or, nor, where) and its children,
// which can be either a set of rules or a nested set of LogicOps.
type LogicOp struct {
	Type  uint8
	Rules []FieldRule
	Sub   []LogicOp
	Where func(v any) (bool, error)
}

// FieldRule stores a set of conditions used to match a given object field. An
// empty Addr points to the matched value itself.
type FieldRule struct {
	Addr  []string
	Conds []Cond
}

// Cond stores a single operation on a document field (such as $gt, $size).
// Val holds the normalized argument: a value for comparisons, []any for $in
// and $nin, *regexp.Regexp for $regex, []bsontype.Type for $type, int for
// $size, bool for $exists, Query for $elemMatch and []Cond for $not.
type Cond struct {
	Op  uint8
	Val any
}
