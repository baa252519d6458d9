// Package postgres persists audit aggregates in PostgreSQL. Documents live in
// JSONB columns and partial updates are applied with jsonb concatenation, so
// "set these named fields without touching others" is a single atomic
// statement rather than a read-modify-write in the caller.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vulnreport/internal/audit"
	"vulnreport/internal/audit/store"
)

// Schema creates the audit tables. Applied at startup and by integration
// tests; every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS audits (
    id         UUID PRIMARY KEY,
    owner_name TEXT NOT NULL,
    general    JSONB NOT NULL DEFAULT '{}'::jsonb,
    network    JSONB NOT NULL DEFAULT '{}'::jsonb,
    summary    TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS audit_findings (
    id       UUID PRIMARY KEY,
    audit_id UUID NOT NULL REFERENCES audits (id) ON DELETE CASCADE,
    position BIGINT GENERATED ALWAYS AS IDENTITY,
    data     JSONB NOT NULL DEFAULT '{}'::jsonb
);
CREATE INDEX IF NOT EXISTS audit_findings_audit_id_idx ON audit_findings (audit_id);

CREATE TABLE IF NOT EXISTS audit_sections (
    id       UUID PRIMARY KEY,
    audit_id UUID NOT NULL REFERENCES audits (id) ON DELETE CASCADE,
    position BIGINT GENERATED ALWAYS AS IDENTITY,
    data     JSONB NOT NULL DEFAULT '{}'::jsonb
);
CREATE INDEX IF NOT EXISTS audit_sections_audit_id_idx ON audit_sections (audit_id);
`

// Store is the PostgreSQL-backed audit store.
type Store struct {
	pool *pgxpool.Pool
}

// New constructs a Store on top of an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema applies the schema DDL.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply audit schema: %w", err)
	}
	return nil
}

const summaryColumns = `a.id, a.owner_name, a.general, a.created_at`

func (s *Store) ListAll(ctx context.Context, filter audit.ListFilter) ([]audit.Summary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+summaryColumns+`
		FROM audits a
		WHERE ($1 = '' OR EXISTS (
			SELECT 1 FROM audit_findings f
			WHERE f.audit_id = a.id AND f.data->>'title' ILIKE '%' || $1 || '%'
		))
		ORDER BY a.created_at, a.id`,
		filter.FindingTitle)
	if err != nil {
		return nil, fmt.Errorf("list audits: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func (s *Store) ListForUser(ctx context.Context, username string, filter audit.ListFilter) ([]audit.Summary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+summaryColumns+`
		FROM audits a
		WHERE (a.owner_name = $1 OR a.general->'collaborators' @> to_jsonb($1::text))
		  AND ($2 = '' OR EXISTS (
			SELECT 1 FROM audit_findings f
			WHERE f.audit_id = a.id AND f.data->>'title' ILIKE '%' || $2 || '%'
		  ))
		ORDER BY a.created_at, a.id`,
		username, filter.FindingTitle)
	if err != nil {
		return nil, fmt.Errorf("list audits for user: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// scanSummaries collects list rows (id, owner_name, general, created_at)
// into summaries, lifting the listed fields out of the general document.
func scanSummaries(rows pgx.Rows) ([]audit.Summary, error) {
	summaries := []audit.Summary{}
	for rows.Next() {
		var (
			sum         audit.Summary
			generalJSON []byte
		)
		if err := rows.Scan(&sum.ID, &sum.Owner, &generalJSON, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit summary: %w", err)
		}
		var g audit.General
		if err := json.Unmarshal(generalJSON, &g); err != nil {
			return nil, fmt.Errorf("decode general: %w", err)
		}
		sum.Name = g.Name
		sum.Language = g.Language
		sum.AuditType = g.AuditType
		sum.Collaborators = g.Collaborators
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audits: %w", err)
	}
	return summaries, nil
}

func (s *Store) Create(ctx context.Context, general audit.General, owner string) (string, error) {
	generalJSON, err := json.Marshal(general)
	if err != nil {
		return "", fmt.Errorf("marshal general: %w", err)
	}
	id := uuid.NewString()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO audits (id, owner_name, general) VALUES ($1, $2, $3)`,
		id, owner, generalJSON)
	if err != nil {
		return "", fmt.Errorf("create audit: %w", err)
	}
	return id, nil
}

func (s *Store) Delete(ctx context.Context, auditID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM audits WHERE id = $1`, auditID)
	if err != nil {
		return fmt.Errorf("delete audit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetAccess(ctx context.Context, auditID string) (audit.Access, error) {
	var (
		owner         string
		collaborators []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT owner_name, COALESCE(general->'collaborators', '[]'::jsonb)
		FROM audits WHERE id = $1`,
		auditID).Scan(&owner, &collaborators)
	if errors.Is(err, pgx.ErrNoRows) {
		return audit.Access{}, store.ErrNotFound
	}
	if err != nil {
		return audit.Access{}, fmt.Errorf("get audit access: %w", err)
	}
	access := audit.Access{Owner: owner}
	if err := json.Unmarshal(collaborators, &access.Collaborators); err != nil {
		return audit.Access{}, fmt.Errorf("decode collaborators: %w", err)
	}
	return access, nil
}

func (s *Store) GetAudit(ctx context.Context, auditID string) (audit.Audit, error) {
	var (
		a                    audit.Audit
		generalJSON, netJSON []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, owner_name, general, network, summary, created_at, updated_at
		FROM audits WHERE id = $1`,
		auditID).Scan(&a.ID, &a.Owner, &generalJSON, &netJSON, &a.Summary, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return audit.Audit{}, store.ErrNotFound
	}
	if err != nil {
		return audit.Audit{}, fmt.Errorf("get audit: %w", err)
	}
	if err := json.Unmarshal(generalJSON, &a.General); err != nil {
		return audit.Audit{}, fmt.Errorf("decode general: %w", err)
	}
	if err := json.Unmarshal(netJSON, &a.Network); err != nil {
		return audit.Audit{}, fmt.Errorf("decode network: %w", err)
	}

	a.Findings = []audit.Finding{}
	if err := s.collectEmbedded(ctx, `audit_findings`, auditID, &a.Findings); err != nil {
		return audit.Audit{}, err
	}
	a.Sections = []audit.Section{}
	if err := s.collectEmbedded(ctx, `audit_sections`, auditID, &a.Sections); err != nil {
		return audit.Audit{}, err
	}
	return a, nil
}

func (s *Store) GetGeneral(ctx context.Context, auditID string) (audit.General, error) {
	var generalJSON []byte
	err := s.pool.QueryRow(ctx, `SELECT general FROM audits WHERE id = $1`, auditID).Scan(&generalJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return audit.General{}, store.ErrNotFound
	}
	if err != nil {
		return audit.General{}, fmt.Errorf("get general: %w", err)
	}
	var g audit.General
	if err := json.Unmarshal(generalJSON, &g); err != nil {
		return audit.General{}, fmt.Errorf("decode general: %w", err)
	}
	return g, nil
}

func (s *Store) UpdateGeneral(ctx context.Context, auditID string, patch audit.Patch) (audit.General, error) {
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return audit.General{}, fmt.Errorf("marshal patch: %w", err)
	}
	var generalJSON []byte
	err = s.pool.QueryRow(ctx, `
		UPDATE audits SET general = general || $2::jsonb, updated_at = now()
		WHERE id = $1
		RETURNING general`,
		auditID, patchJSON).Scan(&generalJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return audit.General{}, store.ErrNotFound
	}
	if err != nil {
		return audit.General{}, fmt.Errorf("update general: %w", err)
	}
	var g audit.General
	if err := json.Unmarshal(generalJSON, &g); err != nil {
		return audit.General{}, fmt.Errorf("decode general: %w", err)
	}
	return g, nil
}

func (s *Store) GetNetwork(ctx context.Context, auditID string) (audit.Network, error) {
	var netJSON []byte
	err := s.pool.QueryRow(ctx, `SELECT network FROM audits WHERE id = $1`, auditID).Scan(&netJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return audit.Network{}, store.ErrNotFound
	}
	if err != nil {
		return audit.Network{}, fmt.Errorf("get network: %w", err)
	}
	var n audit.Network
	if err := json.Unmarshal(netJSON, &n); err != nil {
		return audit.Network{}, fmt.Errorf("decode network: %w", err)
	}
	return n, nil
}

func (s *Store) UpdateNetwork(ctx context.Context, auditID string, patch audit.Patch) (audit.Network, error) {
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return audit.Network{}, fmt.Errorf("marshal patch: %w", err)
	}
	var netJSON []byte
	err = s.pool.QueryRow(ctx, `
		UPDATE audits SET network = network || $2::jsonb, updated_at = now()
		WHERE id = $1
		RETURNING network`,
		auditID, patchJSON).Scan(&netJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return audit.Network{}, store.ErrNotFound
	}
	if err != nil {
		return audit.Network{}, fmt.Errorf("update network: %w", err)
	}
	var n audit.Network
	if err := json.Unmarshal(netJSON, &n); err != nil {
		return audit.Network{}, fmt.Errorf("decode network: %w", err)
	}
	return n, nil
}

func (s *Store) CreateFinding(ctx context.Context, auditID string, f audit.Finding) (audit.Finding, error) {
	f.ID = uuid.NewString()
	data, err := json.Marshal(f)
	if err != nil {
		return audit.Finding{}, fmt.Errorf("marshal finding: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_findings (id, audit_id, data) VALUES ($1, $2, $3)`,
		f.ID, auditID, data)
	if err != nil {
		if exists, checkErr := s.auditExists(ctx, auditID); checkErr == nil && !exists {
			return audit.Finding{}, store.ErrNotFound
		}
		return audit.Finding{}, fmt.Errorf("create finding: %w", err)
	}
	if err := s.touch(ctx, auditID); err != nil {
		return audit.Finding{}, err
	}
	return f, nil
}

func (s *Store) ListFindingTitles(ctx context.Context, auditID string) ([]audit.FindingTitle, error) {
	exists, err := s.auditExists(ctx, auditID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(data->>'title', '')
		FROM audit_findings WHERE audit_id = $1
		ORDER BY position`,
		auditID)
	if err != nil {
		return nil, fmt.Errorf("list finding titles: %w", err)
	}
	defer rows.Close()

	titles := []audit.FindingTitle{}
	for rows.Next() {
		var t audit.FindingTitle
		if err := rows.Scan(&t.ID, &t.Title); err != nil {
			return nil, fmt.Errorf("scan finding title: %w", err)
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

func (s *Store) GetFinding(ctx context.Context, auditID, findingID string) (audit.Finding, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `
		SELECT data FROM audit_findings WHERE audit_id = $1 AND id = $2`,
		auditID, findingID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return audit.Finding{}, s.embeddedNotFound(ctx, auditID, store.ErrFindingNotFound)
	}
	if err != nil {
		return audit.Finding{}, fmt.Errorf("get finding: %w", err)
	}
	var f audit.Finding
	if err := json.Unmarshal(data, &f); err != nil {
		return audit.Finding{}, fmt.Errorf("decode finding: %w", err)
	}
	return f, nil
}

func (s *Store) UpdateFinding(ctx context.Context, auditID, findingID string, patch audit.Patch) (audit.Finding, error) {
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return audit.Finding{}, fmt.Errorf("marshal patch: %w", err)
	}
	var data []byte
	err = s.pool.QueryRow(ctx, `
		UPDATE audit_findings SET data = data || $3::jsonb
		WHERE audit_id = $1 AND id = $2
		RETURNING data`,
		auditID, findingID, patchJSON).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return audit.Finding{}, s.embeddedNotFound(ctx, auditID, store.ErrFindingNotFound)
	}
	if err != nil {
		return audit.Finding{}, fmt.Errorf("update finding: %w", err)
	}
	if err := s.touch(ctx, auditID); err != nil {
		return audit.Finding{}, err
	}
	var f audit.Finding
	if err := json.Unmarshal(data, &f); err != nil {
		return audit.Finding{}, fmt.Errorf("decode finding: %w", err)
	}
	return f, nil
}

func (s *Store) DeleteFinding(ctx context.Context, auditID, findingID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM audit_findings WHERE audit_id = $1 AND id = $2`,
		auditID, findingID)
	if err != nil {
		return fmt.Errorf("delete finding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.embeddedNotFound(ctx, auditID, store.ErrFindingNotFound)
	}
	return s.touch(ctx, auditID)
}

func (s *Store) CreateSection(ctx context.Context, auditID string, sec audit.Section) (audit.Section, error) {
	sec.ID = uuid.NewString()
	data, err := json.Marshal(sec)
	if err != nil {
		return audit.Section{}, fmt.Errorf("marshal section: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO audit_sections (id, audit_id, data) VALUES ($1, $2, $3)`,
		sec.ID, auditID, data)
	if err != nil {
		if exists, checkErr := s.auditExists(ctx, auditID); checkErr == nil && !exists {
			return audit.Section{}, store.ErrNotFound
		}
		return audit.Section{}, fmt.Errorf("create section: %w", err)
	}
	if err := s.touch(ctx, auditID); err != nil {
		return audit.Section{}, err
	}
	return sec, nil
}

func (s *Store) GetSection(ctx context.Context, auditID, sectionID string) (audit.Section, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `
		SELECT data FROM audit_sections WHERE audit_id = $1 AND id = $2`,
		auditID, sectionID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return audit.Section{}, s.embeddedNotFound(ctx, auditID, store.ErrSectionNotFound)
	}
	if err != nil {
		return audit.Section{}, fmt.Errorf("get section: %w", err)
	}
	var sec audit.Section
	if err := json.Unmarshal(data, &sec); err != nil {
		return audit.Section{}, fmt.Errorf("decode section: %w", err)
	}
	return sec, nil
}

func (s *Store) UpdateSection(ctx context.Context, auditID, sectionID string, patch audit.Patch) (audit.Section, error) {
	patchJSON, err := json.Marshal(patch)
	if err != nil {
		return audit.Section{}, fmt.Errorf("marshal patch: %w", err)
	}
	var data []byte
	err = s.pool.QueryRow(ctx, `
		UPDATE audit_sections SET data = data || $3::jsonb
		WHERE audit_id = $1 AND id = $2
		RETURNING data`,
		auditID, sectionID, patchJSON).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return audit.Section{}, s.embeddedNotFound(ctx, auditID, store.ErrSectionNotFound)
	}
	if err != nil {
		return audit.Section{}, fmt.Errorf("update section: %w", err)
	}
	if err := s.touch(ctx, auditID); err != nil {
		return audit.Section{}, err
	}
	var sec audit.Section
	if err := json.Unmarshal(data, &sec); err != nil {
		return audit.Section{}, fmt.Errorf("decode section: %w", err)
	}
	return sec, nil
}

func (s *Store) DeleteSection(ctx context.Context, auditID, sectionID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM audit_sections WHERE audit_id = $1 AND id = $2`,
		auditID, sectionID)
	if err != nil {
		return fmt.Errorf("delete section: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.embeddedNotFound(ctx, auditID, store.ErrSectionNotFound)
	}
	return s.touch(ctx, auditID)
}

func (s *Store) GetSummary(ctx context.Context, auditID string) (string, error) {
	var summary string
	err := s.pool.QueryRow(ctx, `SELECT summary FROM audits WHERE id = $1`, auditID).Scan(&summary)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get summary: %w", err)
	}
	return summary, nil
}

func (s *Store) UpdateSummary(ctx context.Context, auditID, summary string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE audits SET summary = $2, updated_at = now() WHERE id = $1`,
		auditID, summary)
	if err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) auditExists(ctx context.Context, auditID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM audits WHERE id = $1)`, auditID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check audit exists: %w", err)
	}
	return exists, nil
}

// embeddedNotFound distinguishes a missing parent audit from a missing
// embedded item so the service can report the right resource.
func (s *Store) embeddedNotFound(ctx context.Context, auditID string, itemErr error) error {
	exists, err := s.auditExists(ctx, auditID)
	if err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}
	return itemErr
}

func (s *Store) touch(ctx context.Context, auditID string) error {
	if _, err := s.pool.Exec(ctx, `UPDATE audits SET updated_at = now() WHERE id = $1`, auditID); err != nil {
		return fmt.Errorf("touch audit: %w", err)
	}
	return nil
}

// collectEmbedded loads the ordered rows of an embedded collection into out,
// which must be a pointer to a slice of the item type.
func (s *Store) collectEmbedded(ctx context.Context, table, auditID string, out any) error {
	rows, err := s.pool.Query(ctx, `SELECT data FROM `+table+` WHERE audit_id = $1 ORDER BY position`, auditID)
	if err != nil {
		return fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	items := []json.RawMessage{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return fmt.Errorf("scan %s: %w", table, err)
		}
		items = append(items, json.RawMessage(data))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate %s: %w", table, err)
	}
	combined, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("combine %s: %w", table, err)
	}
	if err := json.Unmarshal(combined, out); err != nil {
		return fmt.Errorf("decode %s: %w", table, err)
	}
	return nil
}
