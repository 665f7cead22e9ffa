// Package assess orchestrates one assessment run: serialize per target,
// load the declared configuration, derive facts, evaluate policy rules,
// synthesize findings, score, draft remediation, persist atomically.
package assess

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/evigdal/assayer/internal/audit"
	"github.com/evigdal/assayer/internal/draft"
	"github.com/evigdal/assayer/internal/facts"
	"github.com/evigdal/assayer/internal/guard"
	"github.com/evigdal/assayer/internal/model"
	"github.com/evigdal/assayer/internal/rules"
)

// providerName is recorded on each assessment so exports can say where the
// draft came from.
const providerName = "StructuredDraftGenerator"

// DataStore is everything the orchestrator needs from persistence. The
// SQLite store implements it; tests supply fakes.
type DataStore interface {
	VersionForTenant(ctx context.Context, tenantID, versionID string) (*model.Version, error)
	ComponentsByVersion(ctx context.Context, versionID string) ([]model.Component, error)
	InventoryByVersion(ctx context.Context, versionID string) ([]model.InventoryItem, error)
	VendorsByVersion(ctx context.Context, versionID string) ([]model.Vendor, error)
	LatestQuestionnaire(ctx context.Context, versionID string) (*model.Questionnaire, error)
	PolicyPackRefs(ctx context.Context, tenantID string) ([]string, error)
	SaveAssessmentBatch(ctx context.Context, batch *model.AssessmentBatch) error
}

// DraftService produces the remediation drafts for a run.
type DraftService interface {
	GenerateActionPlan(ctx context.Context, summary *model.Summary, findings []model.FindingDraft) (*draft.ActionPlan, error)
	GenerateDpiaDraft(ctx context.Context, summary *model.Summary, findings []model.FindingDraft) (*draft.DpiaDraft, error)
}

// Runner ties the pipeline together. Many runners may share one rule store
// and one guard; both are safe under concurrent runs.
type Runner struct {
	store      DataStore
	rules      *rules.Store
	ruleRoots  []string
	guard      *guard.Guard
	drafts     DraftService
	classifier facts.Classifier
	auditLog   *audit.Log // optional
}

// Options configures a Runner. Store, Rules, Guard, and Drafts are required;
// Classifier defaults to the keyword classifier, AuditLog may be nil.
type Options struct {
	Store      DataStore
	Rules      *rules.Store
	RuleRoots  []string
	Guard      *guard.Guard
	Drafts     DraftService
	Classifier facts.Classifier
	AuditLog   *audit.Log
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	classifier := opts.Classifier
	if classifier == nil {
		classifier = facts.NewKeywordClassifier()
	}
	return &Runner{
		store:      opts.Store,
		rules:      opts.Rules,
		ruleRoots:  opts.RuleRoots,
		guard:      opts.Guard,
		drafts:     opts.Drafts,
		classifier: classifier,
		auditLog:   opts.AuditLog,
	}
}

// Run executes one assessment for (tenantID, versionID). Runs for the same
// pair are strictly serialized; any failure before persistence aborts the
// whole run with nothing written.
func (r *Runner) Run(ctx context.Context, tenantID, versionID, ranByUserID string) (*model.RunResult, error) {
	release, err := r.guard.Acquire(ctx, tenantID, versionID)
	if err != nil {
		return nil, err
	}
	defer release()

	version, err := r.store.VersionForTenant(ctx, tenantID, versionID)
	if err != nil {
		return nil, err
	}

	components, err := r.store.ComponentsByVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	inventory, err := r.store.InventoryByVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	vendors, err := r.store.VendorsByVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	questionnaire, err := r.store.LatestQuestionnaire(ctx, versionID)
	if err != nil {
		return nil, err
	}

	answers := map[string]string{}
	if questionnaire != nil {
		answers = facts.ParseAnswers(questionnaire.AnswersJSON)
	}

	derived := facts.Derive(facts.Input{
		Description: version.Description,
		Components:  components,
		Inventory:   inventory,
		Vendors:     vendors,
		Answers:     answers,
	}, r.classifier)

	matches, err := r.matchRules(derived.Facts())
	if err != nil {
		return nil, err
	}

	findings := buildFindings(matches, derived)
	score := complianceScore(findings)

	packRefs, err := r.store.PolicyPackRefs(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	summary := &model.Summary{
		AiActRiskClass:        derived.RiskClass,
		TriggeredRuleKeys:     triggeredRuleKeys(findings),
		GdprFlags:             derived.GdprFlags,
		DpiaRequired:          derived.HasSpecialCategory || (derived.AutomatedDecision && derived.HasPersonalData),
		Nis2Flags:             derived.Nis2Flags,
		ComponentRisk:         derived.ComponentRisk,
		ComplianceScore:       score,
		PolicyPackVersionRefs: packRefs,
		Rationale:             "Deterministic policy evaluation + structured draft generation",
	}

	plan, err := r.drafts.GenerateActionPlan(ctx, summary, findings)
	if err != nil {
		return nil, err
	}
	dpia, err := r.drafts.GenerateDpiaDraft(ctx, summary, findings)
	if err != nil {
		return nil, err
	}

	batch, err := buildBatch(versionID, ranByUserID, summary, findings, plan, dpia, matches)
	if err != nil {
		return nil, err
	}
	if err := r.store.SaveAssessmentBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("persist assessment: %w", err)
	}

	result := &model.RunResult{
		AssessmentID:    batch.Assessment.ID,
		AiActRiskClass:  summary.AiActRiskClass,
		ComplianceScore: summary.ComplianceScore,
		FindingsCount:   len(batch.Findings),
		ActionsCount:    len(batch.Actions),
	}

	r.recordAudit(tenantID, versionID, result)
	return result, nil
}

// matchRules loads every configured rule root through the cache and returns
// the rules whose condition holds against the fact map.
func (r *Runner) matchRules(f rules.Facts) ([]rules.Rule, error) {
	var matched []rules.Rule
	for _, root := range r.ruleRoots {
		loaded, err := r.rules.Load(root)
		if err != nil {
			return nil, fmt.Errorf("load rules from %s: %w", root, err)
		}
		for _, rule := range loaded {
			if rules.Evaluate(rule.Condition, f) {
				matched = append(matched, rule)
			}
		}
	}
	return matched, nil
}

// recordAudit appends the run to the audit log, best effort: a failed audit
// write must not fail an already-persisted run.
func (r *Runner) recordAudit(tenantID, versionID string, res *model.RunResult) {
	if r.auditLog == nil {
		return
	}
	err := r.auditLog.Record(audit.Entry{
		TenantID:        tenantID,
		VersionID:       versionID,
		AssessmentID:    res.AssessmentID,
		RiskClass:       res.AiActRiskClass,
		ComplianceScore: res.ComplianceScore,
		Findings:        res.FindingsCount,
		Actions:         res.ActionsCount,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "assayer: audit record failed: %v\n", err)
	}
}

// newID is swapped in tests for deterministic IDs.
var newID = uuid.NewString

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }
