package filter

// Operator is a field predicate operator.
type Operator string

// The fixed operator set. Anything else fails parsing.
const (
	OpEq      Operator = "$eq"
	OpNe      Operator = "$ne"
	OpLt      Operator = "$lt"
	OpLte     Operator = "$lte"
	OpGt      Operator = "$gt"
	OpGte     Operator = "$gte"
	OpIn      Operator = "$in"
	OpNotIn   Operator = "$nin"
	OpLike    Operator = "$like"
	OpBetween Operator = "$between"
)

// comparisonOps are the operators that compare against a single scalar.
var comparisonOps = map[Operator]bool{
	OpEq: true, OpNe: true, OpLt: true, OpLte: true, OpGt: true, OpGte: true,
}

// listOps are the operators that take a list of scalars.
var listOps = map[Operator]bool{
	OpIn: true, OpNotIn: true, OpBetween: true,
}

// IsNumeric reports whether the operator compares numerically.
func (o Operator) IsNumeric() bool {
	return o == OpLt || o == OpLte || o == OpGt || o == OpGte
}

// Node is one node of a validated predicate tree.
// Implementations: Predicate, And, Or. Trees are immutable once parsed.
type Node interface {
	isNode()
}

// Predicate is a single field comparison.
type Predicate struct {
	field string
	op    Operator
	value Value
}

func (Predicate) isNode() {}

// Field returns the validated field name.
func (p Predicate) Field() string { return p.field }

// Op returns the operator.
func (p Predicate) Op() Operator { return p.op }

// Value returns the comparison value.
func (p Predicate) Value() Value { return p.value }

// And is a conjunction of child nodes (non-empty).
type And struct {
	children []Node
}

func (And) isNode() {}

// Children returns the ordered child nodes.
func (a And) Children() []Node { return a.children }

// Or is a disjunction of child nodes (non-empty).
type Or struct {
	children []Node
}

func (Or) isNode() {}

// Children returns the ordered child nodes.
func (o Or) Children() []Node { return o.children }

// Value is a tagged scalar-or-list comparison value. Scalars are normalized
// to string, int64, float64 or bool at parse time.
type Value struct {
	scalar any
	list   []any
	isList bool
}

// IsList reports whether the value is a list of scalars.
func (v Value) IsList() bool { return v.isList }

// Scalar returns the scalar value (nil for lists).
func (v Value) Scalar() any { return v.scalar }

// List returns the list elements (nil for scalars).
func (v Value) List() []any { return v.list }

// IsString reports whether the scalar value is a string. Numeric operators
// skip the numeric cast for string values (comparison stays textual).
func (v Value) IsString() bool {
	_, ok := v.scalar.(string)
	return ok
}
