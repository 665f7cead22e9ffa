package model

import (
	"strings"
	"time"
)

// Severity classifies how serious a finding is.
type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

// ParseSeverity maps a raw string to a Severity, case-insensitively.
// Unparseable input defaults to Medium: rule files are configuration and a
// typo'd severity must not silently drop the rule below the radar.
func ParseSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return SeverityLow
	case "medium":
		return SeverityMedium
	case "high":
		return SeverityHigh
	case "critical":
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

// Weight returns the compliance-score penalty for a finding of this severity.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 20
	case SeverityHigh:
		return 12
	case SeverityMedium:
		return 6
	default:
		return 3
	}
}

// AI Act risk tiers, ordered from worst to best.
const (
	RiskProhibited = "prohibited"
	RiskHigh       = "high-risk"
	RiskLimited    = "limited"
	RiskMinimal    = "minimal"
)

// Finding categories produced by an assessment run.
const (
	FindingPolicyRule = "PolicyRule"
	FindingAIAct      = "AI_ACT"
	FindingGDPR       = "GDPR"
	FindingNIS2       = "NIS2"
)

// FindingDraft is an unpersisted finding assembled during a run. It feeds
// both draft generation and persistence.
type FindingDraft struct {
	Type                 string   `json:"type"`
	Severity             Severity `json:"severity"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	AffectedComponentIDs []string `json:"affectedComponentIds"`
	RuleKeys             []string `json:"ruleKeys"`
	EvidenceSuggestions  []string `json:"evidenceSuggestions"`
}

// Summary is the aggregate result of one assessment run, embedded in the
// persisted assessment record.
type Summary struct {
	AiActRiskClass        string            `json:"aiActRiskClass"`
	TriggeredRuleKeys     []string          `json:"triggeredRuleKeys"`
	GdprFlags             []string          `json:"gdprFlags"`
	DpiaRequired          bool              `json:"dpiaRequired"`
	Nis2Flags             []string          `json:"nis2Flags"`
	ComponentRisk         map[string]string `json:"componentRisk"`
	ComplianceScore       int               `json:"complianceScore"`
	PolicyPackVersionRefs []string          `json:"policyPackVersionRefs"`
	Rationale             string            `json:"rationale"`
}

// RunResult is what the orchestrator hands back to its caller.
type RunResult struct {
	AssessmentID    string `json:"assessment_id"`
	AiActRiskClass  string `json:"ai_act_risk_class"`
	ComplianceScore int    `json:"compliance_score"`
	FindingsCount   int    `json:"findings_count"`
	ActionsCount    int    `json:"actions_count"`
}

// Version is an assessable snapshot of an AI system's declared configuration.
// SystemName and Description are denormalized from the owning system so the
// pipeline never reaches back for them.
type Version struct {
	ID          string
	TenantID    string
	SystemID    string
	SystemName  string
	Description string
	Label       string
}

// Component is one architectural piece of a system version.
type Component struct {
	ID                   string
	VersionID            string
	Name                 string
	IsExternal           bool
	DataSensitivityLevel string
}

// InventoryItem describes one category of data the system processes.
type InventoryItem struct {
	ID                   string
	VersionID            string
	Name                 string
	ContainsPersonalData bool
	SpecialCategory      bool
	TransferOutsideEU    bool
	LawfulBasis          string
	RetentionDays        int
}

// Vendor is a third party involved in operating the system.
type Vendor struct {
	ID        string
	VersionID string
	Name      string
	Region    string
}

// Questionnaire holds the latest compliance questionnaire answers for a
// version, as a raw JSON object of string answers.
type Questionnaire struct {
	ID          string
	VersionID   string
	AnswersJSON string
	SubmittedAt time.Time
}

// Assessment is the persisted record of one completed run. Summary and risk
// scores are stored as opaque serialized blobs.
type Assessment struct {
	ID             string
	VersionID      string
	RanByUserID    string
	RanAt          time.Time
	Provider       string
	PolicyPackRefs []string
	SummaryJSON    string
	RiskScoresJSON string
}

// Finding is a persisted finding belonging to an assessment.
type Finding struct {
	ID                   string
	AssessmentID         string
	Type                 string
	Severity             Severity
	Title                string
	Description          string
	AffectedComponentIDs []string
}

// Action item statuses.
const (
	ActionStatusNew  = "new"
	ActionStatusDone = "done"
)

// ActionItem is a persisted remediation action derived from the action plan.
// SourceFindingID is empty when no finding exists at the action's index.
type ActionItem struct {
	ID                 string
	VersionID          string
	SourceFindingID    string
	Title              string
	Description        string
	Priority           string
	OwnerRole          string
	Status             string
	AcceptanceCriteria string
}

// Control instance statuses.
const (
	ControlStatusPendingReview = "pending_review"
	ControlStatusImplemented   = "implemented"
)

// ControlInstance activates one control key for a version, created per unique
// control referenced by matched policy rules.
type ControlInstance struct {
	ID         string
	VersionID  string
	ControlKey string
	Status     string
	Notes      string
}

// AssessmentBatch is everything one run persists. The data store must write
// it atomically: no finding, action, or control may exist without its
// assessment record.
type AssessmentBatch struct {
	Assessment Assessment
	Findings   []Finding
	Actions    []ActionItem
	Controls   []ControlInstance
}
