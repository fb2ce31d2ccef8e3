package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	domain "github.com/complykit/privacy-comply/internal/domain/findings"
)

type FindingRepository struct{ db *sql.DB }

func NewFindingRepository(db *sql.DB) *FindingRepository { return &FindingRepository{db: db} }

// Save inserts or updates a finding record. Steps go into a jsonb column.
func (r *FindingRepository) Save(ctx context.Context, f *domain.Finding) error {
	const q = `
INSERT INTO compliance_findings
(id, tenant_id, scan_id, regulation, title, description,
 severity, status, steps, created_at, updated_at, resolved_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
 regulation = EXCLUDED.regulation,
 title = EXCLUDED.title,
 description = EXCLUDED.description,
 severity = EXCLUDED.severity,
 status = EXCLUDED.status,
 steps = EXCLUDED.steps,
 updated_at = EXCLUDED.updated_at,
 resolved_at = EXCLUDED.resolved_at;`
	steps := "[]"
	if len(f.Steps) > 0 {
		steps = jsonOrEmpty(f.Steps)
	}
	_, err := r.db.ExecContext(ctx, q,
		f.ID, stringOrDash(f.TenantID), f.ScanID, f.Regulation, stringOrDash(f.Title), f.Description,
		f.Severity, f.Status, steps, timeOrNow(f.CreatedAt), timeOrNow(f.UpdatedAt), nullableTime(f.ResolvedAt),
	)
	return err
}

const findingColumns = `id, tenant_id, scan_id, regulation, title, description,
       severity, status, steps, created_at, updated_at, resolved_at`

func findingRow(scanner interface{ Scan(...any) error }) (*domain.Finding, error) {
	var f domain.Finding
	var steps string
	var resolved sql.NullTime
	if err := scanner.Scan(
		&f.ID, &f.TenantID, &f.ScanID, &f.Regulation, &f.Title, &f.Description,
		&f.Severity, &f.Status, &steps, &f.CreatedAt, &f.UpdatedAt, &resolved,
	); err != nil {
		return nil, err
	}
	if steps != "" {
		_ = json.Unmarshal([]byte(steps), &f.Steps)
	}
	if resolved.Valid {
		f.ResolvedAt = resolved.Time
	}
	return &f, nil
}

// Get by ID + Tenant
func (r *FindingRepository) Get(ctx context.Context, tenant string, id domain.FindingID) (*domain.Finding, error) {
	q := `SELECT ` + findingColumns + `
FROM compliance_findings
WHERE tenant_id=$1 AND id=$2
LIMIT 1;`
	return findingRow(r.db.QueryRowContext(ctx, q, tenant, id))
}

// List findings, optionally filtered by status, newest first
func (r *FindingRepository) List(ctx context.Context, tenant string, status domain.Status, limit int) ([]*domain.Finding, error) {
	if limit <= 0 {
		limit = 50
	}
	var (
		rows *sql.Rows
		err  error
	)
	if status != "" {
		q := `SELECT ` + findingColumns + `
FROM compliance_findings
WHERE tenant_id=$1 AND status=$2
ORDER BY created_at DESC LIMIT $3;`
		rows, err = r.db.QueryContext(ctx, q, tenant, status, limit)
	} else {
		q := `SELECT ` + findingColumns + `
FROM compliance_findings
WHERE tenant_id=$1
ORDER BY created_at DESC LIMIT $2;`
		rows, err = r.db.QueryContext(ctx, q, tenant, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Finding
	for rows.Next() {
		f, err := findingRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UpdateStatus flips only the status column, stamping resolved_at on resolve
func (r *FindingRepository) UpdateStatus(ctx context.Context, tenant string, id domain.FindingID, status domain.Status) error {
	const q = `
UPDATE compliance_findings
SET status = $1,
    resolved_at = CASE WHEN $1 IN ('resolved','closed') THEN NOW() ELSE resolved_at END,
    updated_at = NOW()
WHERE tenant_id = $2 AND id = $3;`
	_, err := r.db.ExecContext(ctx, q, status, tenant, id)
	return err
}

var _ domain.Repository = (*FindingRepository)(nil)
