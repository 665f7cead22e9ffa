package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/evigdal/assayer/internal/model"
)

// SeedResult identifies the demo records so the CLI can print runnable IDs.
type SeedResult struct {
	TenantID  string `json:"tenant_id"`
	SystemID  string `json:"system_id"`
	VersionID string `json:"version_id"`
}

// Seed inserts a demo tenant with one high-risk-looking system version, so a
// fresh database supports an end-to-end assessment run immediately.
func (s *SQLite) Seed(ctx context.Context) (*SeedResult, error) {
	res := &SeedResult{
		TenantID:  uuid.NewString(),
		SystemID:  uuid.NewString(),
		VersionID: uuid.NewString(),
	}

	if err := s.CreateTenant(ctx, res.TenantID, "Demo Tenant"); err != nil {
		return nil, err
	}
	if err := s.CreateSystem(ctx, res.SystemID, res.TenantID, "Credit Scoring Assistant",
		"LLM chatbot that supports credit decisions and automated decision workflows for loan applicants."); err != nil {
		return nil, err
	}
	if err := s.CreateVersion(ctx, res.VersionID, res.SystemID, "v1"); err != nil {
		return nil, err
	}

	components := []model.Component{
		{ID: uuid.NewString(), VersionID: res.VersionID, Name: "scoring-api", IsExternal: true, DataSensitivityLevel: "High"},
		{ID: uuid.NewString(), VersionID: res.VersionID, Name: "feature-store", IsExternal: false, DataSensitivityLevel: "Medium"},
	}
	for _, c := range components {
		if err := s.CreateComponent(ctx, c); err != nil {
			return nil, err
		}
	}

	inventory := []model.InventoryItem{
		{
			ID: uuid.NewString(), VersionID: res.VersionID, Name: "applicant records",
			ContainsPersonalData: true, LawfulBasis: "contract", RetentionDays: 3650,
		},
		{
			ID: uuid.NewString(), VersionID: res.VersionID, Name: "behavioral signals",
			ContainsPersonalData: true, RetentionDays: 365,
		},
	}
	for _, it := range inventory {
		if err := s.CreateInventoryItem(ctx, it); err != nil {
			return nil, err
		}
	}

	if err := s.CreateVendor(ctx, model.Vendor{
		ID: uuid.NewString(), VersionID: res.VersionID, Name: "CloudHost Inc", Region: "US-East",
	}); err != nil {
		return nil, err
	}

	if err := s.CreateQuestionnaire(ctx, model.Questionnaire{
		ID:          uuid.NewString(),
		VersionID:   res.VersionID,
		AnswersJSON: `{"automatedDecisionMaking":"true","criticalSector":"false"}`,
		SubmittedAt: time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	packs := []struct{ name, version string }{
		{"EU AI Act Baseline", "2025.1"},
		{"GDPR Core", "2024.2"},
	}
	for _, p := range packs {
		if err := s.CreatePolicyPack(ctx, uuid.NewString(), p.name, p.version); err != nil {
			return nil, fmt.Errorf("seed policy pack %s: %w", p.name, err)
		}
	}

	return res, nil
}
