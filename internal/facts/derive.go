package facts

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/evigdal/assayer/internal/model"
	"github.com/evigdal/assayer/internal/rules"
)

// retentionBaselineDays is the retention threshold (5 years) beyond which an
// inventory item raises the excessive-retention flag.
const retentionBaselineDays = 1825

// Input is everything fact derivation reads for one run.
type Input struct {
	Description string
	Components  []model.Component
	Inventory   []model.InventoryItem
	Vendors     []model.Vendor
	Answers     map[string]string
}

// Derived holds every boolean and aggregate computed from the input, the
// resulting AI Act risk class, and the regulation flag lists.
type Derived struct {
	HasPersonalData    bool
	HasSpecialCategory bool
	TransferOutsideEU  bool
	MissingLawfulBasis bool
	LongRetention      bool
	MaxRetentionDays   int

	Signals           Signals
	AutomatedDecision bool
	CriticalSector    bool

	RiskClass     string
	GdprFlags     []string
	Nis2Flags     []string
	ComponentRisk map[string]string
}

// Derive computes all assessment inputs. Questionnaire answers take
// precedence but keyword signals still OR into the same boolean, so an
// explicit "no" cannot hide a matching description.
func Derive(in Input, classifier Classifier) Derived {
	d := Derived{ComponentRisk: make(map[string]string, len(in.Components))}

	for _, item := range in.Inventory {
		if item.ContainsPersonalData {
			d.HasPersonalData = true
		}
		if item.SpecialCategory {
			d.HasSpecialCategory = true
		}
		if item.TransferOutsideEU {
			d.TransferOutsideEU = true
		}
		if strings.TrimSpace(item.LawfulBasis) == "" {
			d.MissingLawfulBasis = true
		}
		if item.RetentionDays > retentionBaselineDays {
			d.LongRetention = true
		}
		if item.RetentionDays > d.MaxRetentionDays {
			d.MaxRetentionDays = item.RetentionDays
		}
	}

	for _, v := range in.Vendors {
		if strings.Contains(strings.ToLower(v.Region), "us") {
			d.TransferOutsideEU = true
		}
	}

	d.Signals = classifier.Classify(in.Description)
	d.AutomatedDecision = boolAnswer(in.Answers, "automatedDecisionMaking") || d.Signals.Profiling
	d.CriticalSector = boolAnswer(in.Answers, "criticalSector") || d.Signals.HighRiskDomain

	d.RiskClass = classifyRisk(d)
	d.GdprFlags = gdprFlags(d)
	d.Nis2Flags = nis2Flags(d, in)

	for _, c := range in.Components {
		d.ComponentRisk[c.ID] = componentRisk(c)
	}

	return d
}

// Facts flattens the derived values into the fact map consumed by the rule
// engine.
func (d Derived) Facts() rules.Facts {
	return rules.Facts{
		"inventory.personal_data":          d.HasPersonalData,
		"inventory.special_category":       d.HasSpecialCategory,
		"inventory.transfer_outside_eu":    d.TransferOutsideEU,
		"inventory.missing_lawful_basis":   d.MissingLawfulBasis,
		"inventory.max_retention_days":     d.MaxRetentionDays,
		"system.prohibited_pattern":        d.Signals.Prohibited,
		"system.high_risk_domain":          d.Signals.HighRiskDomain,
		"questionnaire.automated_decision": d.AutomatedDecision,
		"questionnaire.critical_sector":    d.CriticalSector,
	}
}

// classifyRisk picks the overall AI Act tier, worst signal first.
func classifyRisk(d Derived) string {
	switch {
	case d.Signals.Prohibited:
		return model.RiskProhibited
	case d.Signals.HighRiskDomain || d.HasSpecialCategory || d.AutomatedDecision:
		return model.RiskHigh
	case d.HasPersonalData || d.Signals.Conversational:
		return model.RiskLimited
	default:
		return model.RiskMinimal
	}
}

func gdprFlags(d Derived) []string {
	var flags []string
	if d.HasPersonalData {
		flags = append(flags, "Personal data processed")
	}
	if d.HasSpecialCategory {
		flags = append(flags, "Special category data processed")
	}
	if d.TransferOutsideEU {
		flags = append(flags, "Transfer outside EU detected")
	}
	if d.MissingLawfulBasis {
		flags = append(flags, "Missing lawful basis")
	}
	if d.LongRetention {
		flags = append(flags, "Retention period exceeds baseline")
	}
	if d.AutomatedDecision {
		flags = append(flags, "Automated decision/profiling pattern")
	}
	return flags
}

func nis2Flags(d Derived, in Input) []string {
	var flags []string
	if d.CriticalSector {
		flags = append(flags, "Critical sector relevance")
	}
	if len(in.Vendors) > 0 {
		flags = append(flags, "Supplier risk and third-party controls required")
	}
	for _, c := range in.Components {
		if c.IsExternal {
			flags = append(flags, "External-facing components require stronger monitoring")
			break
		}
	}
	return flags
}

func componentRisk(c model.Component) string {
	switch {
	case strings.EqualFold(c.DataSensitivityLevel, "High"):
		return "High"
	case c.IsExternal:
		return "Medium"
	default:
		return "Low"
	}
}

// ParseAnswers decodes a questionnaire's raw answers JSON. Malformed or
// empty input yields an empty map: questionnaire data is advisory, never a
// reason to fail a run.
func ParseAnswers(answersJSON string) map[string]string {
	if strings.TrimSpace(answersJSON) == "" {
		return map[string]string{}
	}

	var answers map[string]string
	if err := json.Unmarshal([]byte(answersJSON), &answers); err != nil || answers == nil {
		return map[string]string{}
	}
	return answers
}

func boolAnswer(answers map[string]string, key string) bool {
	raw, ok := answers[key]
	if !ok {
		return false
	}
	parsed, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(raw)))
	return err == nil && parsed
}
