package policy

import (
	"fmt"
	"reflect"
	"strings"
)

// Condition keys.
const (
	keyAllOf    = "all_of"
	keyAnyOf    = "any_of"
	keyNot      = "not"
	keyField    = "field"
	keyOperator = "operator"
	keyValue    = "value"
)

// Operator names a comparison.
type Operator string

// Supported operators.
const (
	OpEq         Operator = "eq"
	OpNe         Operator = "ne"
	OpGt         Operator = "gt"
	OpGte        Operator = "gte"
	OpLt         Operator = "lt"
	OpLte        Operator = "lte"
	OpIn         Operator = "in"
	OpNotIn      Operator = "not_in"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
	OpRegex      Operator = "regex"
)

var validOperators = map[Operator]struct{}{
	OpEq: {}, OpNe: {}, OpGt: {}, OpGte: {}, OpLt: {}, OpLte: {},
	OpIn: {}, OpNotIn: {}, OpContains: {}, OpStartsWith: {}, OpEndsWith: {}, OpRegex: {},
}

// ValidateConditions checks the shape of a condition tree without evaluating it.
func ValidateConditions(cond map[string]any) error {
	if len(cond) == 0 {
		return fmt.Errorf("%w: empty condition", ErrInvalidCondition)
	}
	if sub, ok, err := group(cond); ok || err != nil {
		if err != nil {
			return err
		}
		for _, c := range sub.children {
			if err := ValidateConditions(c); err != nil {
				return err
			}
		}
		return nil
	}

	field, _ := cond[keyField].(string)
	if field == "" {
		return fmt.Errorf("%w: missing field", ErrInvalidCondition)
	}
	op, _ := cond[keyOperator].(string)
	if _, ok := validOperators[Operator(op)]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownOperator, op)
	}
	if _, ok := cond[keyValue]; !ok {
		return fmt.Errorf("%w: %s: missing value", ErrInvalidCondition, field)
	}
	switch Operator(op) {
	case OpIn, OpNotIn:
		if _, ok := asList(cond[keyValue]); !ok {
			return fmt.Errorf("%w: %s: %s needs a list value", ErrInvalidCondition, field, op)
		}
	case OpRegex, OpStartsWith, OpEndsWith:
		if _, ok := cond[keyValue].(string); !ok {
			return fmt.Errorf("%w: %s: %s needs a string value", ErrInvalidCondition, field, op)
		}
	}
	return nil
}

type logicalGroup struct {
	kind     string
	children []map[string]any
}

// group recognises all_of / any_of / not. ok is false for a single condition.
func group(cond map[string]any) (logicalGroup, bool, error) {
	for _, kind := range []string{keyAllOf, keyAnyOf} {
		raw, ok := cond[kind]
		if !ok {
			continue
		}
		items, ok := asList(raw)
		if !ok || len(items) == 0 {
			return logicalGroup{}, true, fmt.Errorf("%w: %s needs a non-empty list", ErrInvalidCondition, kind)
		}
		children := make([]map[string]any, 0, len(items))
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				return logicalGroup{}, true, fmt.Errorf("%w: %s item is %T", ErrInvalidCondition, kind, item)
			}
			children = append(children, m)
		}
		return logicalGroup{kind: kind, children: children}, true, nil
	}
	if raw, ok := cond[keyNot]; ok {
		m, ok := raw.(map[string]any)
		if !ok {
			return logicalGroup{}, true, fmt.Errorf("%w: not needs a condition object", ErrInvalidCondition)
		}
		return logicalGroup{kind: keyNot, children: []map[string]any{m}}, true, nil
	}
	return logicalGroup{}, false, nil
}

func (e *Engine) evalCondition(cond map[string]any, fields map[string]any) (bool, error) {
	g, ok, err := group(cond)
	if err != nil {
		return false, err
	}
	if ok {
		switch g.kind {
		case keyAllOf:
			for _, c := range g.children {
				matched, err := e.evalCondition(c, fields)
				if err != nil || !matched {
					return false, err
				}
			}
			return true, nil
		case keyAnyOf:
			for _, c := range g.children {
				matched, err := e.evalCondition(c, fields)
				if err != nil {
					return false, err
				}
				if matched {
					return true, nil
				}
			}
			return false, nil
		default:
			matched, err := e.evalCondition(g.children[0], fields)
			return !matched, err
		}
	}

	field, _ := cond[keyField].(string)
	op, _ := cond[keyOperator].(string)
	actual, err := lookupField(fields, field)
	if err != nil {
		return false, err
	}
	matched, err := e.compare(Operator(op), actual, cond[keyValue])
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", field, op, err)
	}
	return matched, nil
}

// lookupField walks a dot path through nested objects.
func lookupField(fields map[string]any, path string) (any, error) {
	var cur any = fields
	for part := range strings.SplitSeq(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, path)
		}
		cur, ok = m[part]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, path)
		}
	}
	return cur, nil
}

func (e *Engine) compare(op Operator, actual, expected any) (bool, error) {
	switch op {
	case OpEq:
		return equal(actual, expected), nil
	case OpNe:
		return !equal(actual, expected), nil
	case OpGt, OpGte, OpLt, OpLte:
		a, okA := asFloat(actual)
		b, okB := asFloat(expected)
		if !okA || !okB {
			return false, fmt.Errorf("%w: %T %s %T", ErrTypeMismatch, actual, op, expected)
		}
		switch op {
		case OpGt:
			return a > b, nil
		case OpGte:
			return a >= b, nil
		case OpLt:
			return a < b, nil
		default:
			return a <= b, nil
		}
	case OpIn, OpNotIn:
		list, ok := asList(expected)
		if !ok {
			return false, fmt.Errorf("%w: %s needs a list", ErrTypeMismatch, op)
		}
		found := false
		for _, v := range list {
			if equal(actual, v) {
				found = true
				break
			}
		}
		return found == (op == OpIn), nil
	case OpContains:
		if s, ok := actual.(string); ok {
			sub, ok := expected.(string)
			if !ok {
				return false, fmt.Errorf("%w: contains on string needs a string", ErrTypeMismatch)
			}
			return strings.Contains(s, sub), nil
		}
		if list, ok := asList(actual); ok {
			for _, v := range list {
				if equal(v, expected) {
					return true, nil
				}
			}
			return false, nil
		}
		return false, fmt.Errorf("%w: contains on %T", ErrTypeMismatch, actual)
	case OpStartsWith, OpEndsWith, OpRegex:
		s, okA := actual.(string)
		pattern, okB := expected.(string)
		if !okA || !okB {
			return false, fmt.Errorf("%w: %s needs strings", ErrTypeMismatch, op)
		}
		switch op {
		case OpStartsWith:
			return strings.HasPrefix(s, pattern), nil
		case OpEndsWith:
			return strings.HasSuffix(s, pattern), nil
		default:
			re, err := e.regex(pattern)
			if err != nil {
				return false, err
			}
			return re.MatchString(s), nil
		}
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownOperator, op)
	}
}

func equal(a, b any) bool {
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func asList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	case []float64:
		out := make([]any, len(l))
		for i, f := range l {
			out[i] = f
		}
		return out, true
	case []int:
		out := make([]any, len(l))
		for i, n := range l {
			out[i] = n
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(l))
		for i, m := range l {
			out[i] = m
		}
		return out, true
	default:
		return nil, false
	}
}
