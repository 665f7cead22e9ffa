package assess

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/evigdal/assayer/internal/draft"
	"github.com/evigdal/assayer/internal/guard"
	"github.com/evigdal/assayer/internal/model"
	"github.com/evigdal/assayer/internal/prompt"
	"github.com/evigdal/assayer/internal/provider"
	"github.com/evigdal/assayer/internal/rules"
	"github.com/evigdal/assayer/internal/store"
)

// fakeStore is an in-memory DataStore for orchestrator tests.
type fakeStore struct {
	mu sync.Mutex

	version       *model.Version
	components    []model.Component
	inventory     []model.InventoryItem
	vendors       []model.Vendor
	questionnaire *model.Questionnaire
	packRefs      []string

	versionErr error
	saveErr    error

	saved []*model.AssessmentBatch

	// inFlight counts entries between the first load and the save, to detect
	// overlapping runs.
	inFlight   atomic.Int32
	overlapped atomic.Bool
	saveDelay  time.Duration
}

func (f *fakeStore) VersionForTenant(_ context.Context, tenantID, versionID string) (*model.Version, error) {
	if f.inFlight.Add(1) > 1 {
		f.overlapped.Store(true)
	}
	if f.versionErr != nil {
		f.inFlight.Add(-1)
		return nil, f.versionErr
	}
	if f.version == nil || f.version.TenantID != tenantID || f.version.ID != versionID {
		f.inFlight.Add(-1)
		return nil, store.ErrNotFound
	}
	return f.version, nil
}

func (f *fakeStore) ComponentsByVersion(context.Context, string) ([]model.Component, error) {
	return f.components, nil
}

func (f *fakeStore) InventoryByVersion(context.Context, string) ([]model.InventoryItem, error) {
	return f.inventory, nil
}

func (f *fakeStore) VendorsByVersion(context.Context, string) ([]model.Vendor, error) {
	return f.vendors, nil
}

func (f *fakeStore) LatestQuestionnaire(context.Context, string) (*model.Questionnaire, error) {
	return f.questionnaire, nil
}

func (f *fakeStore) PolicyPackRefs(context.Context, string) ([]string, error) {
	return f.packRefs, nil
}

func (f *fakeStore) SaveAssessmentBatch(_ context.Context, batch *model.AssessmentBatch) error {
	if f.saveDelay > 0 {
		time.Sleep(f.saveDelay)
	}
	f.inFlight.Add(-1)
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	f.saved = append(f.saved, batch)
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) lastSaved() *model.AssessmentBatch {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.saved) == 0 {
		return nil
	}
	return f.saved[len(f.saved)-1]
}

const testRuleSet = `{
  "rules": [
    {
      "ruleKey": "retention-over-baseline",
      "description": "Personal data retained longer than the baseline",
      "severity": "High",
      "condition": {
        "op": "and",
        "conditions": [
          {"field": "inventory.personal_data", "operator": "eq", "value": true},
          {"field": "inventory.max_retention_days", "operator": "gt", "value": 1825}
        ]
      },
      "outputControlKeys": ["ctrl.retention", "ctrl.dpia"]
    }
  ]
}`

func writeRules(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "rules.json"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func localDrafts() *draft.Generator {
	return draft.New(provider.Local{}, prompt.NewRepository(""), draft.Config{LocalMode: true})
}

func demoStore() *fakeStore {
	return &fakeStore{
		version: &model.Version{
			ID:          "v1",
			TenantID:    "t1",
			SystemID:    "s1",
			SystemName:  "Credit Scoring Assistant",
			Description: "Credit scoring chatbot for loan applicants",
		},
		components: []model.Component{
			{ID: "c1", VersionID: "v1", Name: "scoring-api", IsExternal: true, DataSensitivityLevel: "High"},
		},
		inventory: []model.InventoryItem{
			{ID: "i1", VersionID: "v1", ContainsPersonalData: true, RetentionDays: 4000},
		},
		vendors: []model.Vendor{
			{ID: "ven1", VersionID: "v1", Name: "CloudCo", Region: "US-East"},
		},
		questionnaire: &model.Questionnaire{
			ID: "q1", VersionID: "v1", AnswersJSON: `{"automatedDecisionMaking": "true"}`,
		},
		packRefs: []string{"eu-ai-act@1", "gdpr-core@2"},
	}
}

func newTestRunner(t *testing.T, fs *fakeStore, ruleSet string) *Runner {
	t.Helper()
	return NewRunner(Options{
		Store:     fs,
		Rules:     rules.NewStore(),
		RuleRoots: []string{writeRules(t, ruleSet)},
		Guard:     guard.New(),
		Drafts:    localDrafts(),
	})
}

func TestRunEndToEnd(t *testing.T) {
	fs := demoStore()
	r := newTestRunner(t, fs, testRuleSet)

	res, err := r.Run(context.Background(), "t1", "v1", "user-1")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.AiActRiskClass != model.RiskHigh {
		t.Errorf("AiActRiskClass = %q, want %q", res.AiActRiskClass, model.RiskHigh)
	}

	// One policy rule match, one AI Act finding, five GDPR flags (personal
	// data, transfer, missing basis, retention, automated decision), three
	// NIS2 flags (critical sector, supplier, external component).
	if res.FindingsCount != 10 {
		t.Errorf("FindingsCount = %d, want 10", res.FindingsCount)
	}
	// Local mode: one fallback action per finding.
	if res.ActionsCount != res.FindingsCount {
		t.Errorf("ActionsCount = %d, want %d", res.ActionsCount, res.FindingsCount)
	}
	// 100 minus two High rule/AI Act findings (12 each), one High and four
	// Medium GDPR findings, three Medium NIS2 findings.
	if res.ComplianceScore != 22 {
		t.Errorf("ComplianceScore = %d, want 22", res.ComplianceScore)
	}

	batch := fs.lastSaved()
	if batch == nil {
		t.Fatal("no batch persisted")
	}
	if batch.Assessment.ID != res.AssessmentID {
		t.Error("result assessment ID does not match the persisted record")
	}
	if batch.Assessment.Provider != providerName {
		t.Errorf("Provider = %q", batch.Assessment.Provider)
	}
	if len(batch.Assessment.PolicyPackRefs) != 2 {
		t.Errorf("PolicyPackRefs = %v", batch.Assessment.PolicyPackRefs)
	}
	if len(batch.Controls) != 2 {
		t.Errorf("got %d controls, want 2 (ctrl.retention, ctrl.dpia)", len(batch.Controls))
	}
	for _, c := range batch.Controls {
		if c.Status != model.ControlStatusPendingReview {
			t.Errorf("control %s status = %q", c.ControlKey, c.Status)
		}
	}
}

func TestRunUnknownVersion(t *testing.T) {
	fs := demoStore()
	r := newTestRunner(t, fs, testRuleSet)

	_, err := r.Run(context.Background(), "t1", "no-such-version", "user-1")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if fs.lastSaved() != nil {
		t.Error("nothing must be persisted for an unknown version")
	}
}

func TestRunWrongTenant(t *testing.T) {
	fs := demoStore()
	r := newTestRunner(t, fs, testRuleSet)

	_, err := r.Run(context.Background(), "other-tenant", "v1", "user-1")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("cross-tenant access must look like not-found, got %v", err)
	}
}

func TestRunGuardrailAbortsWithoutPersisting(t *testing.T) {
	fs := demoStore()
	// A matched rule whose description carries fabrication language flows
	// into a finding and must trip the guardrail.
	r := newTestRunner(t, fs, `{
  "rules": [{
    "ruleKey": "bad-rule",
    "description": "Teams must never fabricate evidence for audits",
    "severity": "Low",
    "condition": {"field": "inventory.personal_data", "operator": "eq", "value": true}
  }]
}`)

	_, err := r.Run(context.Background(), "t1", "v1", "user-1")
	if !errors.Is(err, draft.ErrGuardrail) {
		t.Fatalf("err = %v, want ErrGuardrail", err)
	}
	if fs.lastSaved() != nil {
		t.Error("a guardrail-blocked run must persist nothing")
	}
}

func TestRunMalformedRulesAbort(t *testing.T) {
	fs := demoStore()
	r := newTestRunner(t, fs, `{"rules": [{"description": "missing everything"}]}`)

	if _, err := r.Run(context.Background(), "t1", "v1", "user-1"); err == nil {
		t.Fatal("a malformed rule file must abort the run")
	}
	if fs.lastSaved() != nil {
		t.Error("nothing must be persisted when rule loading fails")
	}
}

func TestRunPersistFailurePropagates(t *testing.T) {
	fs := demoStore()
	fs.saveErr = errors.New("disk full")
	r := newTestRunner(t, fs, testRuleSet)

	if _, err := r.Run(context.Background(), "t1", "v1", "user-1"); err == nil {
		t.Fatal("persistence failure must surface")
	}
}

func TestConcurrentRunsSameTargetSerialize(t *testing.T) {
	fs := demoStore()
	fs.saveDelay = 2 * time.Millisecond
	r := newTestRunner(t, fs, testRuleSet)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Run(context.Background(), "t1", "v1", "user-1"); err != nil {
				t.Errorf("Run: %v", err)
			}
		}()
	}
	wg.Wait()

	if fs.overlapped.Load() {
		t.Error("two runs for the same tenant/version overlapped")
	}
	fs.mu.Lock()
	n := len(fs.saved)
	fs.mu.Unlock()
	if n != 8 {
		t.Errorf("persisted %d batches, want 8", n)
	}
}

func TestRunWithoutQuestionnaire(t *testing.T) {
	fs := demoStore()
	fs.questionnaire = nil
	r := newTestRunner(t, fs, testRuleSet)

	res, err := r.Run(context.Background(), "t1", "v1", "user-1")
	if err != nil {
		t.Fatalf("Run without questionnaire: %v", err)
	}
	// Still high-risk via the credit keyword; only the questionnaire-driven
	// automated-decision GDPR flag disappears.
	if res.AiActRiskClass != model.RiskHigh {
		t.Errorf("AiActRiskClass = %q", res.AiActRiskClass)
	}
	if res.FindingsCount != 9 {
		t.Errorf("FindingsCount = %d, want 9", res.FindingsCount)
	}
}
