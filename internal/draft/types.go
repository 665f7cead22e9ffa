// Package draft produces the remediation action plan and DPIA outline for an
// assessment run: guardrail first, then external generation when enabled,
// with validation and a deterministic fallback so the caller always receives
// a complete, usable draft or an explicit blocking error.
package draft

// ActionPlan is a validated remediation plan. Values of this type exist only
// after validation has passed; unvalidated provider output stays an opaque
// string until then.
type ActionPlan struct {
	Actions []ActionItem `json:"actions"`
}

// ActionItem is one remediation step in an action plan.
type ActionItem struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Priority           string   `json:"priority"`
	OwnerRole          string   `json:"ownerRole"`
	AcceptanceCriteria string   `json:"acceptanceCriteria"`
	EvidenceNeeded     []string `json:"evidenceNeeded"`
}

// DpiaDraft is a validated impact-assessment outline.
type DpiaDraft struct {
	Sections []DpiaSection `json:"sections"`
}

// DpiaSection is one section of a DPIA draft.
type DpiaSection struct {
	Title         string   `json:"title"`
	Claims        []string `json:"claims"`
	Uncertainties []string `json:"uncertainties"`
}
