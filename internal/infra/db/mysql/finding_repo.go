package mysql

import (
	"context"
	"database/sql"
	"encoding/json"

	domain "github.com/complykit/privacy-comply/internal/domain/findings"
)

type FindingRepository struct {
	db *sql.DB
}

func NewFindingRepository(db *sql.DB) *FindingRepository {
	return &FindingRepository{db: db}
}

// Save insert/update finding. Remediation steps are a JSON column.
func (r *FindingRepository) Save(ctx context.Context, f *domain.Finding) error {
	const q = `
INSERT INTO compliance_findings
(id, tenant_id, scan_id, regulation, title, description,
 severity, status, steps, created_at, updated_at, resolved_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 regulation=VALUES(regulation), title=VALUES(title), description=VALUES(description),
 severity=VALUES(severity), status=VALUES(status), steps=VALUES(steps),
 updated_at=VALUES(updated_at), resolved_at=VALUES(resolved_at);
`
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
WHERE tenant_id=? AND id=? LIMIT 1;`
	return findingRow(r.db.QueryRowContext(ctx, q, tenant, id))
}

// List findings, optionally filtered by status, newest first
func (r *FindingRepository) List(ctx context.Context, tenant string, status domain.Status, limit int) ([]*domain.Finding, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + findingColumns + `
FROM compliance_findings
WHERE tenant_id=?`
	args := []any{tenant}
	if status != "" {
		query += " AND status=?"
		args = append(args, status)
	}
	query += "\nORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
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
SET status = ?,
    resolved_at = CASE WHEN ? IN ('resolved','closed') THEN NOW() ELSE resolved_at END,
    updated_at = NOW()
WHERE tenant_id = ? AND id = ?;`
	_, err := r.db.ExecContext(ctx, q, status, status, tenant, id)
	return err
}

type AlertRepository struct {
	db *sql.DB
}

func NewAlertRepository(db *sql.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Save insert/update alert
func (r *AlertRepository) Save(ctx context.Context, a *domain.Alert) error {
	const q = `
INSERT INTO risk_alerts
(id, tenant_id, resource_kind, resource_id, message, severity,
 acknowledged, acknowledged_by, created_at)
VALUES (?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 message=VALUES(message), severity=VALUES(severity),
 acknowledged=VALUES(acknowledged), acknowledged_by=VALUES(acknowledged_by);
`
	_, err := r.db.ExecContext(ctx, q,
		a.ID, stringOrDash(a.TenantID), a.ResourceKind, a.ResourceID, a.Message, a.Severity,
		a.Acknowledged, a.AcknowledgedBy, timeOrNow(a.CreatedAt),
	)
	return err
}

const alertColumns = `id, tenant_id, resource_kind, resource_id, message, severity,
       acknowledged, acknowledged_by, created_at`

func alertRow(scanner interface{ Scan(...any) error }) (*domain.Alert, error) {
	var a domain.Alert
	if err := scanner.Scan(
		&a.ID, &a.TenantID, &a.ResourceKind, &a.ResourceID, &a.Message, &a.Severity,
		&a.Acknowledged, &a.AcknowledgedBy, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// Get by ID + Tenant
func (r *AlertRepository) Get(ctx context.Context, tenant string, id domain.AlertID) (*domain.Alert, error) {
	q := `SELECT ` + alertColumns + `
FROM risk_alerts
WHERE tenant_id=? AND id=? LIMIT 1;`
	return alertRow(r.db.QueryRowContext(ctx, q, tenant, id))
}

// ListUnacknowledged returns open alerts, newest first
func (r *AlertRepository) ListUnacknowledged(ctx context.Context, tenant string, limit int) ([]*domain.Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + alertColumns + `
FROM risk_alerts
WHERE tenant_id=? AND acknowledged=FALSE
ORDER BY created_at DESC LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, tenant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Alert
	for rows.Next() {
		a, err := alertRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Acknowledge marks an alert handled and records who did it
func (r *AlertRepository) Acknowledge(ctx context.Context, tenant string, id domain.AlertID, by string) error {
	const q = `
UPDATE risk_alerts
SET acknowledged = TRUE, acknowledged_by = ?
WHERE tenant_id = ? AND id = ?;`
	res, err := r.db.ExecContext(ctx, q, by, tenant, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
