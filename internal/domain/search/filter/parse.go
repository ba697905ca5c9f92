package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/corvus-cloud/vecgate/internal/domain"
)

// Parse builds a validated predicate tree from a caller-supplied nested
// mapping. At the top level a key is an operator when it carries the `$`
// sigil, otherwise a field; a bare multi-key mapping is an implicit And of
// per-key predicates. Field keys compile in sorted order so the rendered
// statement is deterministic.
func Parse(raw map[string]any) (Node, error) {
	if raw == nil {
		return nil, nil
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: got an empty filter mapping", domain.ErrEmptyConjunction)
	}

	if len(raw) == 1 {
		for key, value := range raw {
			if strings.HasPrefix(key, "$") {
				return parseLogical(key, value)
			}
			return parseFieldPredicate(key, value)
		}
	}

	// Multiple keys: all must be fields, combined with And.
	keys := make([]string, 0, len(raw))
	for key := range raw {
		if strings.HasPrefix(key, "$") {
			return nil, fmt.Errorf("%w: expected a field but got %q in a multi-key filter", domain.ErrInvalidFieldName, key)
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	children := make([]Node, 0, len(keys))
	for _, key := range keys {
		child, err := parseFieldPredicate(key, raw[key])
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return And{children: children}, nil
}

// parseLogical handles $and / $or. Any other $-key is rejected.
func parseLogical(key string, value any) (Node, error) {
	lower := strings.ToLower(key)
	if lower != "$and" && lower != "$or" {
		return nil, fmt.Errorf("%w: %q is not a logical connective", domain.ErrUnsupportedOperator, key)
	}

	elems, ok := value.([]any)
	if !ok {
		if typed, okTyped := value.([]map[string]any); okTyped {
			elems = make([]any, len(typed))
			for i, m := range typed {
				elems[i] = m
			}
		} else {
			return nil, fmt.Errorf("%w: %s expects a list, got %T", domain.ErrUnsupportedValueType, lower, value)
		}
	}
	if len(elems) == 0 {
		return nil, fmt.Errorf("%w: %s has no children", domain.ErrEmptyConjunction, lower)
	}

	children := make([]Node, 0, len(elems))
	for i, elem := range elems {
		m, ok := elem.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s child %d is %T, expected a mapping", domain.ErrUnsupportedValueType, lower, i, elem)
		}
		child, err := Parse(m)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	if lower == "$and" {
		return And{children: children}, nil
	}
	return Or{children: children}, nil
}

// parseFieldPredicate handles a field key. A mapping value is an explicit
// operator spec with exactly one operator key; anything else is implicit Eq.
func parseFieldPredicate(field string, value any) (Node, error) {
	if err := ValidateIdentifier(field); err != nil {
		return nil, err
	}

	if spec, ok := value.(map[string]any); ok {
		if len(spec) != 1 {
			return nil, fmt.Errorf("%w: field %q expects exactly one operator key, got %d", domain.ErrOperatorArity, field, len(spec))
		}
		for opKey, opValue := range spec {
			op := Operator(strings.ToLower(opKey))
			if !comparisonOps[op] && !listOps[op] && op != OpLike {
				return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedOperator, opKey)
			}
			v, err := parseValue(field, op, opValue)
			if err != nil {
				return nil, err
			}
			return Predicate{field: field, op: op, value: v}, nil
		}
	}

	v, err := parseValue(field, OpEq, value)
	if err != nil {
		return nil, err
	}
	return Predicate{field: field, op: OpEq, value: v}, nil
}

// parseValue normalizes and validates the comparison value for one operator.
func parseValue(field string, op Operator, raw any) (Value, error) {
	switch {
	case listOps[op]:
		elems, ok := toList(raw)
		if !ok {
			return Value{}, fmt.Errorf("%w: %s on field %q expects a list, got %T", domain.ErrUnsupportedValueType, op, field, raw)
		}
		if op == OpBetween && len(elems) != 2 {
			return Value{}, fmt.Errorf("%w: $between on field %q expects exactly 2 values, got %d", domain.ErrOperatorArity, field, len(elems))
		}
		if len(elems) == 0 {
			return Value{}, fmt.Errorf("%w: %s on field %q expects a non-empty list", domain.ErrOperatorArity, op, field)
		}
		list := make([]any, len(elems))
		for i, elem := range elems {
			scalar, ok := normalizeScalar(elem)
			if !ok {
				return Value{}, fmt.Errorf("%w: %s element %d on field %q is %T", domain.ErrUnsupportedValueType, op, i, field, elem)
			}
			if _, isBool := scalar.(bool); isBool {
				// List elements must be string, integer or float.
				return Value{}, fmt.Errorf("%w: %s element %d on field %q is a bool", domain.ErrUnsupportedValueType, op, i, field)
			}
			list[i] = scalar
		}
		return Value{list: list, isList: true}, nil

	case op == OpLike:
		s, ok := raw.(string)
		if !ok {
			return Value{}, fmt.Errorf("%w: $like on field %q expects a string pattern, got %T", domain.ErrUnsupportedValueType, field, raw)
		}
		return Value{scalar: s}, nil

	default:
		scalar, ok := normalizeScalar(raw)
		if !ok {
			return Value{}, fmt.Errorf("%w: %s on field %q got %T", domain.ErrUnsupportedValueType, op, field, raw)
		}
		if op.IsNumeric() {
			if _, isBool := scalar.(bool); isBool {
				return Value{}, fmt.Errorf("%w: %s on field %q got a bool", domain.ErrUnsupportedValueType, op, field)
			}
		}
		return Value{scalar: scalar}, nil
	}
}

// toList accepts the common slice shapes a caller may hand over.
func toList(raw any) ([]any, bool) {
	switch v := raw.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, true
	case []float64:
		out := make([]any, len(v))
		for i, f := range v {
			out[i] = f
		}
		return out, true
	default:
		return nil, false
	}
}

// normalizeScalar coerces supported scalar types to string, int64, float64 or bool.
func normalizeScalar(raw any) (any, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case bool:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return nil, false
	}
}

// ValidateIdentifier enforces the field identifier grammar: letters, digits
// and underscore, not starting with a digit, never starting with the `$`
// operator sigil. Validated names are the only caller-controlled content
// ever placed directly into statement text.
func ValidateIdentifier(field string) error {
	if field == "" {
		return fmt.Errorf("%w: empty field name", domain.ErrInvalidFieldName)
	}
	if strings.HasPrefix(field, "$") {
		return fmt.Errorf("%w: %q looks like an operator", domain.ErrInvalidFieldName, field)
	}
	for i, r := range field {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return fmt.Errorf("%w: %q starts with a digit", domain.ErrInvalidFieldName, field)
			}
		default:
			return fmt.Errorf("%w: %q", domain.ErrInvalidFieldName, field)
		}
	}
	return nil
}
