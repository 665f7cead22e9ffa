package assess

import (
	"encoding/json"
	"fmt"

	"github.com/evigdal/assayer/internal/draft"
	"github.com/evigdal/assayer/internal/model"
	"github.com/evigdal/assayer/internal/rules"
)

// buildBatch assembles everything one run persists: the assessment record
// with its serialized summary/DPIA and risk-score blobs, one finding per
// draft, one action item per plan action (linked to the finding at the same
// index when one exists), and one control instance per unique control key
// referenced by matched rules.
func buildBatch(versionID, ranByUserID string, summary *model.Summary, findings []model.FindingDraft,
	plan *draft.ActionPlan, dpia *draft.DpiaDraft, matches []rules.Rule) (*model.AssessmentBatch, error) {

	summaryJSON, err := json.Marshal(struct {
		Summary *model.Summary   `json:"summary"`
		Dpia    *draft.DpiaDraft `json:"dpiaDraft"`
	}{summary, dpia})
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}

	riskScoresJSON, err := json.Marshal(struct {
		AiActClass string `json:"aiActClass"`
		GdprScore  int    `json:"gdprScore"`
		Nis2Score  int    `json:"nis2Score"`
		TotalScore int    `json:"totalScore"`
	}{
		AiActClass: summary.AiActRiskClass,
		GdprScore:  regScore(summary.GdprFlags),
		Nis2Score:  regScore(summary.Nis2Flags),
		TotalScore: summary.ComplianceScore,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal risk scores: %w", err)
	}

	assessment := model.Assessment{
		ID:             newID(),
		VersionID:      versionID,
		RanByUserID:    ranByUserID,
		RanAt:          now(),
		Provider:       providerName,
		PolicyPackRefs: summary.PolicyPackVersionRefs,
		SummaryJSON:    string(summaryJSON),
		RiskScoresJSON: string(riskScoresJSON),
	}

	persisted := make([]model.Finding, 0, len(findings))
	for _, f := range findings {
		persisted = append(persisted, model.Finding{
			ID:                   newID(),
			AssessmentID:         assessment.ID,
			Type:                 f.Type,
			Severity:             f.Severity,
			Title:                f.Title,
			Description:          f.Description,
			AffectedComponentIDs: f.AffectedComponentIDs,
		})
	}

	actions := make([]model.ActionItem, 0, len(plan.Actions))
	for i, a := range plan.Actions {
		sourceID := ""
		if i < len(persisted) {
			sourceID = persisted[i].ID
		}
		actions = append(actions, model.ActionItem{
			ID:                 newID(),
			VersionID:          versionID,
			SourceFindingID:    sourceID,
			Title:              a.Title,
			Description:        a.Description,
			Priority:           a.Priority,
			OwnerRole:          a.OwnerRole,
			Status:             model.ActionStatusNew,
			AcceptanceCriteria: a.AcceptanceCriteria,
		})
	}

	controls := make([]model.ControlInstance, 0)
	seen := make(map[string]bool)
	for _, m := range matches {
		for _, key := range m.OutputControlKeys {
			if seen[key] {
				continue
			}
			seen[key] = true
			controls = append(controls, model.ControlInstance{
				ID:         newID(),
				VersionID:  versionID,
				ControlKey: key,
				Status:     model.ControlStatusPendingReview,
				Notes:      "Generated from policy rule evaluation",
			})
		}
	}

	return &model.AssessmentBatch{
		Assessment: assessment,
		Findings:   persisted,
		Actions:    actions,
		Controls:   controls,
	}, nil
}
