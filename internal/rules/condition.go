package rules

import (
	"fmt"
	"strings"

	"github.com/evigdal/assayer/internal/model"
)

// Condition is one node of a rule's condition tree. A node is either a
// composite (Op set to and/or/not) or a leaf comparison (Field + Operator).
// Trees are immutable once parsed.
type Condition struct {
	// Composite form.
	Op         string       `json:"op,omitempty"`
	Conditions []*Condition `json:"conditions,omitempty"`
	Child      *Condition   `json:"condition,omitempty"`

	// Leaf form.
	Field    string `json:"field,omitempty"`
	Operator string `json:"operator,omitempty"`
	Value    any    `json:"value,omitempty"`
}

// validate checks the structural invariants of a condition tree:
// and/or need at least one child, not needs exactly one.
func (c *Condition) validate() error {
	if c == nil {
		return fmt.Errorf("condition is null")
	}

	switch strings.ToLower(c.Op) {
	case "and", "or":
		if len(c.Conditions) == 0 {
			return fmt.Errorf("%s node has no children", strings.ToLower(c.Op))
		}
		for _, child := range c.Conditions {
			if err := child.validate(); err != nil {
				return err
			}
		}
		return nil
	case "not":
		if c.Child == nil {
			return fmt.Errorf("not node has no child")
		}
		return c.Child.validate()
	case "":
		if c.Field == "" {
			return fmt.Errorf("leaf condition has no field")
		}
		return nil
	default:
		return fmt.Errorf("unknown boolean operator %q", c.Op)
	}
}

// Rule is one parsed policy rule from a rule-set file.
type Rule struct {
	Key               string
	Description       string
	Severity          model.Severity
	Condition         *Condition
	OutputControlKeys []string
}
