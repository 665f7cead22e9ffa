package assess

import (
	"strings"

	"github.com/evigdal/assayer/internal/facts"
	"github.com/evigdal/assayer/internal/model"
	"github.com/evigdal/assayer/internal/rules"
)

// buildFindings turns matched policy rules and derived signals into the full
// findings list: rule-matched findings first, then the heuristic AI Act,
// GDPR, and NIS2 findings.
func buildFindings(matches []rules.Rule, derived facts.Derived) []model.FindingDraft {
	var findings []model.FindingDraft

	for _, m := range matches {
		findings = append(findings, model.FindingDraft{
			Type:                 model.FindingPolicyRule,
			Severity:             m.Severity,
			Title:                m.Key,
			Description:          m.Description,
			AffectedComponentIDs: []string{},
			RuleKeys:             []string{m.Key},
			EvidenceSuggestions:  []string{"Linked evidence excerpt"},
		})
	}

	if derived.Signals.Prohibited {
		findings = append(findings, model.FindingDraft{
			Type:                 model.FindingAIAct,
			Severity:             model.SeverityCritical,
			Title:                "Prohibited AI use pattern",
			Description:          "System description contains prohibited AI use signal.",
			AffectedComponentIDs: []string{},
			RuleKeys:             []string{"AIACT-PROHIBITED"},
			EvidenceSuggestions:  []string{"Use-case policy"},
		})
	} else if derived.RiskClass == model.RiskHigh {
		findings = append(findings, model.FindingDraft{
			Type:                 model.FindingAIAct,
			Severity:             model.SeverityHigh,
			Title:                "High-risk AI classification",
			Description:          "System appears in high-risk use domain.",
			AffectedComponentIDs: []string{},
			RuleKeys:             []string{"AIACT-HIGHRISK"},
			EvidenceSuggestions:  []string{"Risk management process", "Conformity assessment process"},
		})
	}

	for _, flag := range derived.GdprFlags {
		severity := model.SeverityMedium
		if strings.Contains(flag, "Missing") {
			severity = model.SeverityHigh
		}
		findings = append(findings, model.FindingDraft{
			Type:                 model.FindingGDPR,
			Severity:             severity,
			Title:                flag,
			Description:          flag,
			AffectedComponentIDs: []string{},
			RuleKeys:             []string{"GDPR-TRIGGER"},
			EvidenceSuggestions:  []string{"RoPA", "DPIA section"},
		})
	}

	for _, flag := range derived.Nis2Flags {
		findings = append(findings, model.FindingDraft{
			Type:                 model.FindingNIS2,
			Severity:             model.SeverityMedium,
			Title:                flag,
			Description:          flag,
			AffectedComponentIDs: []string{},
			RuleKeys:             []string{"NIS2-BASELINE"},
			EvidenceSuggestions:  []string{"Incident response plan", "Monitoring evidence"},
		})
	}

	return findings
}

// complianceScore is 100 minus the severity-weighted findings, clamped at 0.
// Adding findings can only lower it.
func complianceScore(findings []model.FindingDraft) int {
	score := 100
	for _, f := range findings {
		score -= f.Severity.Weight()
	}
	if score < 0 {
		score = 0
	}
	return score
}

// triggeredRuleKeys is the ordered, de-duplicated union of every finding's
// provenance keys.
func triggeredRuleKeys(findings []model.FindingDraft) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, f := range findings {
		for _, k := range f.RuleKeys {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

// regScore derates a 100-point regulation score by 10 per triggered flag.
func regScore(flags []string) int {
	score := 100 - 10*len(flags)
	if score < 0 {
		score = 0
	}
	return score
}
