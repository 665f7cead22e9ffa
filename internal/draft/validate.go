package draft

import (
	"fmt"
	"strings"
)

// ValidationError lists every shape problem found in a generated draft.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("draft validation failed: %s", strings.Join(e.Errors, "; "))
}

func (e *ValidationError) add(msg string) {
	e.Errors = append(e.Errors, msg)
}

// validatePlan checks an action plan: at least one action, and every action
// carries a non-empty priority, owner role, and acceptance criteria.
func validatePlan(p *ActionPlan) error {
	ve := &ValidationError{}

	if len(p.Actions) == 0 {
		ve.add("actions[] must not be empty")
	}
	for i, a := range p.Actions {
		if strings.TrimSpace(a.Priority) == "" {
			ve.add(fmt.Sprintf("actions[%d]: priority is required", i))
		}
		if strings.TrimSpace(a.OwnerRole) == "" {
			ve.add(fmt.Sprintf("actions[%d]: ownerRole is required", i))
		}
		if strings.TrimSpace(a.AcceptanceCriteria) == "" {
			ve.add(fmt.Sprintf("actions[%d]: acceptanceCriteria is required", i))
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateDpia checks a DPIA draft: at least one section, all titled.
func validateDpia(d *DpiaDraft) error {
	ve := &ValidationError{}

	if len(d.Sections) == 0 {
		ve.add("sections[] must not be empty")
	}
	for i, s := range d.Sections {
		if strings.TrimSpace(s.Title) == "" {
			ve.add(fmt.Sprintf("sections[%d]: title is required", i))
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}
