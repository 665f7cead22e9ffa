// Package facts turns a version's declared configuration into the flat fact
// map the rule engine evaluates, plus the derived risk classification.
package facts

import "strings"

// Signals are the keyword-derived booleans extracted from a system
// description.
type Signals struct {
	Prohibited     bool
	HighRiskDomain bool
	Profiling      bool
	Conversational bool
}

// Classifier extracts risk signals from free-text system descriptions. It is
// an interface so the keyword heuristic can be swapped out without touching
// the orchestrator's control flow.
type Classifier interface {
	Classify(description string) Signals
}

// KeywordClassifier matches fixed, case-insensitive English substrings.
// Inherently approximate, and blind to non-English descriptions; that is a
// known limitation, not something to paper over with partial translation.
type KeywordClassifier struct {
	prohibited     []string
	highRisk       []string
	profiling      []string
	conversational []string
}

// NewKeywordClassifier returns the built-in keyword classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		prohibited:     []string{"social scoring", "biometric surveillance", "emotion recognition"},
		highRisk:       []string{"credit", "loan", "employment", "health", "critical infrastructure"},
		profiling:      []string{"profil", "automated decision"},
		conversational: []string{"chatbot", "llm"},
	}
}

// Classify scans the description for each signal category.
func (c *KeywordClassifier) Classify(description string) Signals {
	lower := strings.ToLower(description)
	return Signals{
		Prohibited:     containsAny(lower, c.prohibited),
		HighRiskDomain: containsAny(lower, c.highRisk),
		Profiling:      containsAny(lower, c.profiling),
		Conversational: containsAny(lower, c.conversational),
	}
}

func containsAny(lower string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
