package rules

import (
	"fmt"
	"strconv"
	"strings"
)

// Facts is the flat fact map a condition tree is evaluated against. Values
// are booleans, numbers, or strings. Built fresh per assessment run.
type Facts map[string]any

// Evaluate evaluates a condition tree against a fact map. It is pure and
// total for well-formed trees: same inputs, same answer, no side effects.
//
// Leaf semantics:
//   - a fact key missing from the map makes the leaf false, not an error
//   - eq/neq compare string representations case-insensitively, so boolean
//     true and string "true" compare equal (documented leniency)
//   - contains is a case-insensitive substring test
//   - gt/gte/lt/lte parse both sides as floats; unparseable means false
//   - unknown operators evaluate to false
func Evaluate(c *Condition, facts Facts) bool {
	if c == nil {
		return false
	}

	switch strings.ToLower(c.Op) {
	case "and":
		for _, child := range c.Conditions {
			if !Evaluate(child, facts) {
				return false
			}
		}
		return len(c.Conditions) > 0
	case "or":
		for _, child := range c.Conditions {
			if Evaluate(child, facts) {
				return true
			}
		}
		return false
	case "not":
		return c.Child != nil && !Evaluate(c.Child, facts)
	}

	left, ok := facts[c.Field]
	if !ok {
		return false
	}

	op := strings.ToLower(c.Operator)
	if op == "" {
		op = "eq"
	}

	switch op {
	case "eq":
		return strings.EqualFold(stringify(left), stringify(c.Value))
	case "neq":
		return !strings.EqualFold(stringify(left), stringify(c.Value))
	case "contains":
		return strings.Contains(strings.ToLower(stringify(left)), strings.ToLower(stringify(c.Value)))
	case "gt":
		l, r, ok := numericPair(left, c.Value)
		return ok && l > r
	case "gte":
		l, r, ok := numericPair(left, c.Value)
		return ok && l >= r
	case "lt":
		l, r, ok := numericPair(left, c.Value)
		return ok && l < r
	case "lte":
		l, r, ok := numericPair(left, c.Value)
		return ok && l <= r
	default:
		return false
	}
}

// stringify renders a fact or literal value the way comparisons see it.
// Floats that hold whole numbers print without a fractional part so that a
// JSON literal 30 and an int fact 30 agree.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}

// numericPair parses both sides as float64. ok is false when either side
// does not parse, which callers must treat as a failed comparison.
func numericPair(left, right any) (l, r float64, ok bool) {
	l, err := strconv.ParseFloat(stringify(left), 64)
	if err != nil {
		return 0, 0, false
	}
	r, err = strconv.ParseFloat(stringify(right), 64)
	if err != nil {
		return 0, 0, false
	}
	return l, r, true
}
