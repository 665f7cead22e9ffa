package store

import (
	"context"
	"fmt"
	"time"

	"github.com/evigdal/assayer/internal/model"
)

// timeLayout is RFC 3339 with sub-second precision, sortable as text.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// CreateTenant inserts a tenant.
func (s *SQLite) CreateTenant(ctx context.Context, id, name string) error {
	return s.exec(ctx, `INSERT INTO tenants (id, name) VALUES (?, ?)`, id, name)
}

// CreateSystem inserts an AI system owned by a tenant.
func (s *SQLite) CreateSystem(ctx context.Context, id, tenantID, name, description string) error {
	return s.exec(ctx, `INSERT INTO ai_systems (id, tenant_id, name, description) VALUES (?, ?, ?, ?)`,
		id, tenantID, name, description)
}

// CreateVersion inserts a version of a system.
func (s *SQLite) CreateVersion(ctx context.Context, id, systemID, label string) error {
	return s.exec(ctx, `INSERT INTO system_versions (id, system_id, label) VALUES (?, ?, ?)`, id, systemID, label)
}

// CreateComponent inserts a component.
func (s *SQLite) CreateComponent(ctx context.Context, c model.Component) error {
	return s.exec(ctx, `INSERT INTO components (id, version_id, name, is_external, sensitivity) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.VersionID, c.Name, c.IsExternal, c.DataSensitivityLevel)
}

// CreateInventoryItem inserts a data-inventory item.
func (s *SQLite) CreateInventoryItem(ctx context.Context, it model.InventoryItem) error {
	return s.exec(ctx, `
		INSERT INTO inventory_items (id, version_id, name, personal_data, special_category, transfer_outside, lawful_basis, retention_days)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.VersionID, it.Name, it.ContainsPersonalData, it.SpecialCategory, it.TransferOutsideEU, it.LawfulBasis, it.RetentionDays)
}

// CreateVendor inserts a vendor.
func (s *SQLite) CreateVendor(ctx context.Context, v model.Vendor) error {
	return s.exec(ctx, `INSERT INTO vendors (id, version_id, name, region) VALUES (?, ?, ?, ?)`,
		v.ID, v.VersionID, v.Name, v.Region)
}

// CreateQuestionnaire inserts a questionnaire submission.
func (s *SQLite) CreateQuestionnaire(ctx context.Context, q model.Questionnaire) error {
	return s.exec(ctx, `INSERT INTO questionnaires (id, version_id, answers_json, submitted_at) VALUES (?, ?, ?, ?)`,
		q.ID, q.VersionID, q.AnswersJSON, formatTime(q.SubmittedAt))
}

// CreatePolicyPack registers a policy pack.
func (s *SQLite) CreatePolicyPack(ctx context.Context, id, name, version string) error {
	return s.exec(ctx, `INSERT INTO policy_packs (id, name, version) VALUES (?, ?, ?)`, id, name, version)
}

// EnablePolicyPack enables a pack for a tenant.
func (s *SQLite) EnablePolicyPack(ctx context.Context, tenantID, packID string) error {
	return s.exec(ctx, `
		INSERT INTO tenant_policy_packs (tenant_id, pack_id, enabled) VALUES (?, ?, 1)
		ON CONFLICT (tenant_id, pack_id) DO UPDATE SET enabled = 1`, tenantID, packID)
}

func (s *SQLite) exec(ctx context.Context, query string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store write: %w", err)
	}
	return nil
}
