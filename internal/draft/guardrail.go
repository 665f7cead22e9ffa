package draft

import (
	"errors"
	"fmt"
	"strings"

	"github.com/evigdal/assayer/internal/model"
)

// ErrGuardrail marks a blocking, non-retryable guardrail violation. Callers
// must surface it; no draft is produced and no fallback is attempted.
var ErrGuardrail = errors.New("guardrail blocked request: evidence fabrication is not allowed")

// blockedPhrases is the fixed deny-list of evidence-fabrication language.
// Matching is a case-insensitive substring test over the whole corpus.
var blockedPhrases = []string{
	"fake evidence",
	"fabricate evidence",
	"invent evidence",
	"forged evidence",
	"backdate evidence",
}

// enforceGuardrail screens the generation input. It runs before anything
// else, including the fallback path: a run that asks for fabricated evidence
// gets no draft at all.
func enforceGuardrail(summary *model.Summary, findings []model.FindingDraft) error {
	parts := []string{
		summary.Rationale,
		summary.AiActRiskClass,
		strings.Join(summary.GdprFlags, " "),
		strings.Join(summary.Nis2Flags, " "),
	}
	for _, f := range findings {
		parts = append(parts, f.Title+" "+f.Description)
	}
	corpus := strings.ToLower(strings.Join(parts, "\n"))

	for _, phrase := range blockedPhrases {
		if strings.Contains(corpus, phrase) {
			return fmt.Errorf("%w (matched %q)", ErrGuardrail, phrase)
		}
	}
	return nil
}
