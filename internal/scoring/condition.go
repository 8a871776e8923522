package scoring

import (
	"encoding/json"
	"fmt"
)

// Condition is a parsed rule condition. Conditions are parsed once at config
// load and evaluated as pure functions of the context; evaluation never
// errors. A condition that failed to parse evaluates to false.
type Condition interface {
	Eval(ctx Context) bool
}

// Context holds the named values a condition is evaluated against.
type Context map[string]interface{}

// Literal is a constant boolean condition.
type Literal bool

func (l Literal) Eval(Context) bool { return bool(l) }

// Cmp compares a context value against a literal operand.
type Cmp struct {
	Op    string
	Key   string
	Value interface{}
}

func (c Cmp) Eval(ctx Context) bool {
	v, ok := ctx[c.Key]
	if !ok {
		return false
	}
	switch c.Op {
	case "==", "===":
		return looseEqual(v, c.Value)
	case "!=":
		return !looseEqual(v, c.Value)
	case ">", ">=", "<", "<=":
		a, aok := asNumber(v)
		b, bok := asNumber(c.Value)
		if !aok || !bok {
			return false
		}
		switch c.Op {
		case ">":
			return a > b
		case ">=":
			return a >= b
		case "<":
			return a < b
		case "<=":
			return a <= b
		}
	}
	return false
}

// In tests membership of a context value in a literal list.
type In struct {
	Key  string
	List []interface{}
}

func (c In) Eval(ctx Context) bool {
	v, ok := ctx[c.Key]
	if !ok {
		return false
	}
	for _, item := range c.List {
		if looseEqual(v, item) {
			return true
		}
	}
	return false
}

// And is satisfied when every sub-condition is satisfied.
type And []Condition

func (c And) Eval(ctx Context) bool {
	for _, sub := range c {
		if !sub.Eval(ctx) {
			return false
		}
	}
	return true
}

// Or is satisfied when any sub-condition is satisfied.
type Or []Condition

func (c Or) Eval(ctx Context) bool {
	for _, sub := range c {
		if sub.Eval(ctx) {
			return true
		}
	}
	return false
}

// Not negates its inner condition.
type Not struct {
	Inner Condition
}

func (c Not) Eval(ctx Context) bool { return !c.Inner.Eval(ctx) }

// ParseCondition builds a Condition AST from a JSON logic tree:
// a literal boolean, or a single-key object whose key is an operator and
// whose value is [contextKey, literal] for comparison/membership operators,
// or a sub-condition list for and/or/not.
//
// On malformed input it returns Literal(false) alongside the parse error so
// the caller can surface the problem during config validation while scoring
// stays fail-closed.
func ParseCondition(raw json.RawMessage) (Condition, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return Literal(b), nil
	}

	var node map[string]json.RawMessage
	if err := json.Unmarshal(raw, &node); err != nil {
		return Literal(false), fmt.Errorf("condition is neither bool nor object: %w", err)
	}
	if len(node) != 1 {
		return Literal(false), fmt.Errorf("condition object must have exactly one key, has %d", len(node))
	}

	var op string
	var operand json.RawMessage
	for k, v := range node {
		op, operand = k, v
	}

	switch op {
	case ">", ">=", "<", "<=", "==", "===", "!=":
		key, value, err := parseComparisonOperand(operand)
		if err != nil {
			return Literal(false), fmt.Errorf("operator %q: %w", op, err)
		}
		return Cmp{Op: op, Key: key, Value: value}, nil

	case "in":
		key, value, err := parseComparisonOperand(operand)
		if err != nil {
			return Literal(false), fmt.Errorf("operator in: %w", err)
		}
		list, ok := value.([]interface{})
		if !ok {
			return Literal(false), fmt.Errorf("operator in: second operand must be a list")
		}
		return In{Key: key, List: list}, nil

	case "and", "or":
		subs, err := parseConditionList(operand)
		if err != nil {
			return Literal(false), fmt.Errorf("operator %q: %w", op, err)
		}
		if op == "and" {
			return And(subs), nil
		}
		return Or(subs), nil

	case "not":
		// Accept either a single sub-condition or a one-element list.
		if subs, err := parseConditionList(operand); err == nil && len(subs) == 1 {
			return Not{Inner: subs[0]}, nil
		}
		inner, err := ParseCondition(operand)
		if err != nil {
			return Literal(false), fmt.Errorf("operator not: %w", err)
		}
		return Not{Inner: inner}, nil

	default:
		return Literal(false), fmt.Errorf("unknown operator %q", op)
	}
}

// MustParse parses a condition and swallows the error, honoring the
// fail-closed contract. Used on the scoring path where a single malformed
// rule must not abort the run.
func MustParse(raw json.RawMessage) Condition {
	cond, _ := ParseCondition(raw)
	return cond
}

func parseComparisonOperand(raw json.RawMessage) (string, interface{}, error) {
	var pair []interface{}
	if err := json.Unmarshal(raw, &pair); err != nil {
		return "", nil, fmt.Errorf("operand must be [key, literal]: %w", err)
	}
	if len(pair) != 2 {
		return "", nil, fmt.Errorf("operand must have exactly 2 elements, has %d", len(pair))
	}
	key, ok := pair[0].(string)
	if !ok {
		return "", nil, fmt.Errorf("first operand must be a context key string")
	}
	return key, pair[1], nil
}

func parseConditionList(raw json.RawMessage) ([]Condition, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("operand must be a condition list: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("condition list is empty")
	}
	subs := make([]Condition, 0, len(items))
	for _, item := range items {
		sub, err := ParseCondition(item)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// looseEqual matches numbers, strings, and bools across JSON decoding
// variants (all JSON numbers arrive as float64).
func looseEqual(a, b interface{}) bool {
	if an, aok := asNumber(a); aok {
		if bn, bok := asNumber(b); bok {
			return an == bn
		}
		return false
	}
	return a == b
}

func asNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
