package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/corvus-cloud/vecgate/internal/domain"
	"github.com/corvus-cloud/vecgate/internal/domain/search/filter"
)

// fieldTokens is the token-level surface a dialect exposes to the filter
// compiler: how a metadata field is extracted, how the extracted value is
// cast to a fixed-precision numeric, and how a bound parameter is referenced.
type fieldTokens interface {
	// FieldExpr renders access to a metadata field. The field name has
	// already passed identifier validation.
	FieldExpr(field string) string
	// NumericCast wraps a field expression in the dialect's numeric cast.
	NumericCast(expr string) string
	// Placeholder renders a reference to the named parameter.
	Placeholder(name string) string
}

// fragment is one renderable boolean condition or connective.
type fragment struct {
	text   string
	params []Param
}

// paramGen hands out sequential parameter names so values bound by the
// predicate never collide with the builder's reserved names.
type paramGen struct {
	n int
}

func (g *paramGen) next() string {
	name := "p" + strconv.Itoa(g.n)
	g.n++
	return name
}

// compileFilter renders a validated predicate tree into a dialect-specific
// fragment. Values are always bound, never interpolated.
func compileFilter(node filter.Node, d fieldTokens, gen *paramGen) (fragment, error) {
	switch n := node.(type) {
	case filter.Predicate:
		return compilePredicate(n, d, gen)
	case filter.And:
		return compileConnective(n.Children(), " AND ", d, gen)
	case filter.Or:
		return compileConnective(n.Children(), " OR ", d, gen)
	default:
		return fragment{}, fmt.Errorf("%w: unknown filter node %T", domain.ErrUnsupportedOperator, node)
	}
}

func compileConnective(children []filter.Node, sep string, d fieldTokens, gen *paramGen) (fragment, error) {
	if len(children) == 0 {
		return fragment{}, domain.ErrEmptyConjunction
	}

	parts := make([]string, 0, len(children))
	var params []Param
	for _, child := range children {
		frag, err := compileFilter(child, d, gen)
		if err != nil {
			return fragment{}, err
		}
		parts = append(parts, frag.text)
		params = append(params, frag.params...)
	}

	// A single-child connective degenerates to the child fragment.
	if len(parts) == 1 {
		return fragment{text: parts[0], params: params}, nil
	}
	return fragment{text: "(" + strings.Join(parts, sep) + ")", params: params}, nil
}

func compilePredicate(p filter.Predicate, d fieldTokens, gen *paramGen) (fragment, error) {
	field := d.FieldExpr(p.Field())
	value := p.Value()

	switch op := p.Op(); op {
	case filter.OpEq, filter.OpNe:
		// Equality compares against the JSON-extracted value as text.
		name := gen.next()
		cmp := "="
		if op == filter.OpNe {
			cmp = "<>"
		}
		return fragment{
			text:   fmt.Sprintf("%s %s %s", field, cmp, d.Placeholder(name)),
			params: []Param{{Name: name, Value: stringifyScalar(value.Scalar())}},
		}, nil

	case filter.OpLt, filter.OpLte, filter.OpGt, filter.OpGte:
		name := gen.next()
		expr := field
		bound := value.Scalar()
		if !value.IsString() {
			// Numeric filter value: cast the extracted text so the store
			// compares numerically instead of lexically.
			expr = d.NumericCast(field)
		}
		return fragment{
			text:   fmt.Sprintf("%s %s %s", expr, comparisonToken(op), d.Placeholder(name)),
			params: []Param{{Name: name, Value: bound}},
		}, nil

	case filter.OpBetween:
		bounds := value.List()
		if len(bounds) != 2 {
			return fragment{}, fmt.Errorf("%w: $between expects exactly 2 values", domain.ErrOperatorArity)
		}
		expr := field
		if !betweenIsTextual(bounds) {
			expr = d.NumericCast(field)
		}
		lowName, highName := gen.next(), gen.next()
		return fragment{
			text: fmt.Sprintf("(%s >= %s AND %s <= %s)",
				expr, d.Placeholder(lowName), expr, d.Placeholder(highName)),
			params: []Param{
				{Name: lowName, Value: bounds[0]},
				{Name: highName, Value: bounds[1]},
			},
		}, nil

	case filter.OpIn, filter.OpNotIn:
		elems := value.List()
		if len(elems) == 0 {
			return fragment{}, fmt.Errorf("%w: %s expects a non-empty list", domain.ErrOperatorArity, op)
		}
		placeholders := make([]string, 0, len(elems))
		params := make([]Param, 0, len(elems))
		for _, elem := range elems {
			name := gen.next()
			placeholders = append(placeholders, d.Placeholder(name))
			params = append(params, Param{Name: name, Value: stringifyScalar(elem)})
		}
		keyword := "IN"
		if op == filter.OpNotIn {
			keyword = "NOT IN"
		}
		return fragment{
			text:   fmt.Sprintf("%s %s (%s)", field, keyword, strings.Join(placeholders, ", ")),
			params: params,
		}, nil

	case filter.OpLike:
		// The pattern passes through unmodified; wildcard syntax is the
		// caller's responsibility.
		name := gen.next()
		return fragment{
			text:   fmt.Sprintf("%s LIKE %s", field, d.Placeholder(name)),
			params: []Param{{Name: name, Value: value.Scalar()}},
		}, nil

	default:
		return fragment{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedOperator, p.Op())
	}
}

func comparisonToken(op filter.Operator) string {
	switch op {
	case filter.OpLt:
		return "<"
	case filter.OpLte:
		return "<="
	case filter.OpGt:
		return ">"
	default:
		return ">="
	}
}

// betweenIsTextual reports whether both bounds are strings, in which case
// the comparison stays lexical and no numeric cast is applied.
func betweenIsTextual(bounds []any) bool {
	for _, b := range bounds {
		if _, ok := b.(string); !ok {
			return false
		}
	}
	return true
}

// stringifyScalar coerces a scalar to its text form for comparison against
// JSON-extracted values.
func stringifyScalar(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case float64:
		return strconv.FormatFloat(s, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", s)
	}
}
