// Package store persists the compliance domain in SQLite. It implements the
// read/write contracts the assessment pipeline consumes; routing, auth, and
// everything else above it never see SQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/evigdal/assayer/internal/model"
)

// ErrNotFound is returned when a record does not exist or does not belong to
// the requesting tenant. Callers surface it as a client-visible not-found.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS tenants (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS ai_systems (
	id          TEXT PRIMARY KEY,
	tenant_id   TEXT NOT NULL REFERENCES tenants(id),
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS system_versions (
	id        TEXT PRIMARY KEY,
	system_id TEXT NOT NULL REFERENCES ai_systems(id),
	label     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS components (
	id          TEXT PRIMARY KEY,
	version_id  TEXT NOT NULL REFERENCES system_versions(id),
	name        TEXT NOT NULL,
	is_external INTEGER NOT NULL DEFAULT 0,
	sensitivity TEXT NOT NULL DEFAULT 'Low'
);

CREATE TABLE IF NOT EXISTS inventory_items (
	id               TEXT PRIMARY KEY,
	version_id       TEXT NOT NULL REFERENCES system_versions(id),
	name             TEXT NOT NULL,
	personal_data    INTEGER NOT NULL DEFAULT 0,
	special_category INTEGER NOT NULL DEFAULT 0,
	transfer_outside INTEGER NOT NULL DEFAULT 0,
	lawful_basis     TEXT NOT NULL DEFAULT '',
	retention_days   INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS vendors (
	id         TEXT PRIMARY KEY,
	version_id TEXT NOT NULL REFERENCES system_versions(id),
	name       TEXT NOT NULL,
	region     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS questionnaires (
	id           TEXT PRIMARY KEY,
	version_id   TEXT NOT NULL REFERENCES system_versions(id),
	answers_json TEXT NOT NULL DEFAULT '{}',
	submitted_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS policy_packs (
	id      TEXT PRIMARY KEY,
	name    TEXT NOT NULL,
	version TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tenant_policy_packs (
	tenant_id TEXT NOT NULL REFERENCES tenants(id),
	pack_id   TEXT NOT NULL REFERENCES policy_packs(id),
	enabled   INTEGER NOT NULL DEFAULT 1,
	PRIMARY KEY (tenant_id, pack_id)
);

CREATE TABLE IF NOT EXISTS assessments (
	id               TEXT PRIMARY KEY,
	version_id       TEXT NOT NULL REFERENCES system_versions(id),
	ran_by_user_id   TEXT NOT NULL,
	ran_at           TEXT NOT NULL,
	provider         TEXT NOT NULL,
	pack_refs_json   TEXT NOT NULL DEFAULT '[]',
	summary_json     TEXT NOT NULL,
	risk_scores_json TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS findings (
	id             TEXT PRIMARY KEY,
	assessment_id  TEXT NOT NULL REFERENCES assessments(id),
	type           TEXT NOT NULL,
	severity       TEXT NOT NULL,
	title          TEXT NOT NULL,
	description    TEXT NOT NULL,
	component_json TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS action_items (
	id                  TEXT PRIMARY KEY,
	version_id          TEXT NOT NULL REFERENCES system_versions(id),
	source_finding_id   TEXT,
	title               TEXT NOT NULL,
	description         TEXT NOT NULL,
	priority            TEXT NOT NULL,
	owner_role          TEXT NOT NULL,
	status              TEXT NOT NULL,
	acceptance_criteria TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS control_instances (
	id          TEXT PRIMARY KEY,
	version_id  TEXT NOT NULL REFERENCES system_versions(id),
	control_key TEXT NOT NULL,
	status      TEXT NOT NULL,
	notes       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_versions_system ON system_versions(system_id);
CREATE INDEX IF NOT EXISTS idx_findings_assessment ON findings(assessment_id);
CREATE INDEX IF NOT EXISTS idx_actions_version ON action_items(version_id);
`

// SQLite is the SQLite-backed data store.
type SQLite struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
// Path ":memory:" gives an ephemeral store for tests.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: the modernc driver serializes writers anyway, and a
	// single conn keeps :memory: databases from splitting per-conn.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// VersionForTenant loads a version with its owning system's name and
// description, enforcing tenant ownership. Returns ErrNotFound when the
// version does not exist or belongs to another tenant.
func (s *SQLite) VersionForTenant(ctx context.Context, tenantID, versionID string) (*model.Version, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT v.id, sys.tenant_id, sys.id, sys.name, sys.description, v.label
		FROM system_versions v
		JOIN ai_systems sys ON sys.id = v.system_id
		WHERE v.id = ? AND sys.tenant_id = ?`, versionID, tenantID)

	var v model.Version
	if err := row.Scan(&v.ID, &v.TenantID, &v.SystemID, &v.SystemName, &v.Description, &v.Label); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("version %s: %w", versionID, ErrNotFound)
		}
		return nil, fmt.Errorf("load version: %w", err)
	}
	return &v, nil
}

// ComponentsByVersion returns all components of a version.
func (s *SQLite) ComponentsByVersion(ctx context.Context, versionID string) ([]model.Component, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, version_id, name, is_external, sensitivity
		FROM components WHERE version_id = ? ORDER BY id`, versionID)
	if err != nil {
		return nil, fmt.Errorf("load components: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Component
	for rows.Next() {
		var c model.Component
		if err := rows.Scan(&c.ID, &c.VersionID, &c.Name, &c.IsExternal, &c.DataSensitivityLevel); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InventoryByVersion returns all data-inventory items of a version.
func (s *SQLite) InventoryByVersion(ctx context.Context, versionID string) ([]model.InventoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, version_id, name, personal_data, special_category, transfer_outside, lawful_basis, retention_days
		FROM inventory_items WHERE version_id = ? ORDER BY id`, versionID)
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.InventoryItem
	for rows.Next() {
		var it model.InventoryItem
		if err := rows.Scan(&it.ID, &it.VersionID, &it.Name, &it.ContainsPersonalData, &it.SpecialCategory, &it.TransferOutsideEU, &it.LawfulBasis, &it.RetentionDays); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// VendorsByVersion returns all vendors of a version.
func (s *SQLite) VendorsByVersion(ctx context.Context, versionID string) ([]model.Vendor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, version_id, name, region
		FROM vendors WHERE version_id = ? ORDER BY id`, versionID)
	if err != nil {
		return nil, fmt.Errorf("load vendors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Vendor
	for rows.Next() {
		var v model.Vendor
		if err := rows.Scan(&v.ID, &v.VersionID, &v.Name, &v.Region); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// LatestQuestionnaire returns the most recently submitted questionnaire for
// a version, or nil when none exists.
func (s *SQLite) LatestQuestionnaire(ctx context.Context, versionID string) (*model.Questionnaire, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, version_id, answers_json, submitted_at
		FROM questionnaires WHERE version_id = ?
		ORDER BY submitted_at DESC LIMIT 1`, versionID)

	var q model.Questionnaire
	var submitted string
	if err := row.Scan(&q.ID, &q.VersionID, &q.AnswersJSON, &submitted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load questionnaire: %w", err)
	}
	q.SubmittedAt = parseTime(submitted)
	return &q, nil
}

// PolicyPackRefs returns the "name version" references of the tenant's
// enabled policy packs. When the tenant has enabled none, every known pack
// applies (fail-open default: an unconfigured tenant is assessed against the
// full corpus rather than nothing).
func (s *SQLite) PolicyPackRefs(ctx context.Context, tenantID string) ([]string, error) {
	refs, err := s.queryRefs(ctx, `
		SELECT DISTINCT p.name || ' ' || p.version
		FROM tenant_policy_packs t
		JOIN policy_packs p ON p.id = t.pack_id
		WHERE t.tenant_id = ? AND t.enabled = 1
		ORDER BY 1`, tenantID)
	if err != nil {
		return nil, err
	}
	if len(refs) > 0 {
		return refs, nil
	}

	return s.queryRefs(ctx, `SELECT DISTINCT name || ' ' || version FROM policy_packs ORDER BY 1`)
}

func (s *SQLite) queryRefs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load policy pack refs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// SaveAssessmentBatch writes one assessment with its findings, action items,
// and control instances in a single transaction. Either the whole run
// persists or none of it does: no finding, action, or control may exist
// without its assessment record.
func (s *SQLite) SaveAssessmentBatch(ctx context.Context, batch *model.AssessmentBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	a := batch.Assessment
	packRefs, err := json.Marshal(a.PolicyPackRefs)
	if err != nil {
		return fmt.Errorf("marshal pack refs: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO assessments (id, version_id, ran_by_user_id, ran_at, provider, pack_refs_json, summary_json, risk_scores_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.VersionID, a.RanByUserID, formatTime(a.RanAt), a.Provider, string(packRefs), a.SummaryJSON, a.RiskScoresJSON); err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}

	for _, f := range batch.Findings {
		components, err := json.Marshal(f.AffectedComponentIDs)
		if err != nil {
			return fmt.Errorf("marshal finding components: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO findings (id, assessment_id, type, severity, title, description, component_json)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			f.ID, f.AssessmentID, f.Type, string(f.Severity), f.Title, f.Description, string(components)); err != nil {
			return fmt.Errorf("insert finding: %w", err)
		}
	}

	for _, item := range batch.Actions {
		var sourceID any
		if item.SourceFindingID != "" {
			sourceID = item.SourceFindingID
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO action_items (id, version_id, source_finding_id, title, description, priority, owner_role, status, acceptance_criteria)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, item.VersionID, sourceID, item.Title, item.Description, item.Priority, item.OwnerRole, item.Status, item.AcceptanceCriteria); err != nil {
			return fmt.Errorf("insert action item: %w", err)
		}
	}

	for _, c := range batch.Controls {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO control_instances (id, version_id, control_key, status, notes)
			VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.VersionID, c.ControlKey, c.Status, c.Notes); err != nil {
			return fmt.Errorf("insert control instance: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// FindingsByAssessment returns the persisted findings of one assessment.
func (s *SQLite) FindingsByAssessment(ctx context.Context, assessmentID string) ([]model.Finding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, assessment_id, type, severity, title, description, component_json
		FROM findings WHERE assessment_id = ? ORDER BY rowid`, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("load findings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Finding
	for rows.Next() {
		var f model.Finding
		var severity, components string
		if err := rows.Scan(&f.ID, &f.AssessmentID, &f.Type, &severity, &f.Title, &f.Description, &components); err != nil {
			return nil, err
		}
		f.Severity = model.Severity(severity)
		_ = json.Unmarshal([]byte(components), &f.AffectedComponentIDs)
		out = append(out, f)
	}
	return out, rows.Err()
}
