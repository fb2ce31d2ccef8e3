package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domain "github.com/complykit/privacy-comply/internal/domain/scans"
)

type ScanRepository struct {
	db *sql.DB
}

func NewScanRepository(db *sql.DB) *ScanRepository {
	return &ScanRepository{db: db}
}

// Save insert/update Scan record
func (r *ScanRepository) Save(ctx context.Context, s *domain.Scan) error {
	const q = `
INSERT INTO privacy_scans
(id, tenant_id, triggered_at, connector, kind, scope, status,
 critical, high, medium, low, findings_total, records_scanned,
 report_url, raw_format, duration_ms, source)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 status=VALUES(status),
 critical=VALUES(critical), high=VALUES(high), medium=VALUES(medium), low=VALUES(low),
 findings_total=VALUES(findings_total), records_scanned=VALUES(records_scanned),
 report_url=VALUES(report_url), raw_format=VALUES(raw_format), duration_ms=VALUES(duration_ms);
`
	tenant := stringOrDash(s.TenantID)
	connector := stringOrDash(s.Connector)
	status := stringOrDash(string(s.Status))
	triggered := timeOrNow(s.TriggeredAt)

	_, err := r.db.ExecContext(ctx, q,
		s.ID, tenant, triggered, connector, s.Kind, s.Scope, status,
		s.Counts.Critical, s.Counts.High, s.Counts.Medium, s.Counts.Low, s.Counts.Total, s.RecordsScanned,
		s.ReportURL, s.RawFormat, s.DurationMS, s.Source,
	)
	return err
}

const scanColumns = `id, tenant_id, triggered_at, connector, kind, scope, status,
       critical, high, medium, low, findings_total, records_scanned,
       report_url, raw_format, duration_ms, source`

func scanRow(scanner interface{ Scan(...any) error }) (*domain.Scan, error) {
	var s domain.Scan
	var crit, hi, med, lo, tot int
	if err := scanner.Scan(
		&s.ID, &s.TenantID, &s.TriggeredAt, &s.Connector, &s.Kind, &s.Scope, &s.Status,
		&crit, &hi, &med, &lo, &tot, &s.RecordsScanned,
		&s.ReportURL, &s.RawFormat, &s.DurationMS, &s.Source,
	); err != nil {
		return nil, err
	}
	s.Counts = domain.SeverityCounts{Critical: crit, High: hi, Medium: med, Low: lo, Total: tot}
	return &s, nil
}

// Get by ID + Tenant
func (r *ScanRepository) Get(ctx context.Context, tenant string, id domain.ScanID) (*domain.Scan, error) {
	q := `SELECT ` + scanColumns + `
FROM privacy_scans
WHERE tenant_id=? AND id=? LIMIT 1;`
	return scanRow(r.db.QueryRowContext(ctx, q, tenant, id))
}

// Latest scans per tenant
func (r *ScanRepository) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Scan, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + scanColumns + `
FROM privacy_scans
WHERE tenant_id=? ORDER BY triggered_at DESC LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, tenant, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Scan
	for rows.Next() {
		s, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Summary counts scan results since N days
func (r *ScanRepository) Summary(ctx context.Context, tenant string, sinceDays int) (int, int, int, int, error) {
	if sinceDays <= 0 {
		sinceDays = 7
	}
	cut := time.Now().AddDate(0, 0, -sinceDays)

	const q = `
SELECT COUNT(*) AS total_scans,
       COALESCE(SUM(critical),0) AS critical,
       COALESCE(SUM(high),0)     AS high,
       COALESCE(SUM(medium),0)   AS medium
FROM privacy_scans
WHERE tenant_id=? AND triggered_at >= ?;
`
	var t, c, h, m int
	if err := r.db.QueryRowContext(ctx, q, tenant, cut).Scan(&t, &c, &h, &m); err != nil {
		return 0, 0, 0, 0, err
	}
	return t, c, h, m, nil
}

// Paginate with offset + limit (classic pagination)
func (r *ScanRepository) Paginate(ctx context.Context, tenant string, page, pageSize int, filters map[string]any) (domain.PaginatedResult, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := `SELECT ` + scanColumns + `
FROM privacy_scans
WHERE tenant_id=?`
	args := []any{tenant}
	query, args = applyScanFilters(query, args, filters)

	query += "\nORDER BY triggered_at DESC LIMIT ? OFFSET ?"
	args = append(args, pageSize, offset)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("querying scans: %w", err)
	}
	defer rows.Close()

	var scansOut []*domain.Scan
	for rows.Next() {
		s, err := scanRow(rows)
		if err != nil {
			return domain.PaginatedResult{}, fmt.Errorf("scanning row: %w", err)
		}
		scansOut = append(scansOut, s)
	}
	if err = rows.Err(); err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("iterating rows: %w", err)
	}

	total, err := r.Count(ctx, tenant, filters)
	if err != nil {
		return domain.PaginatedResult{}, fmt.Errorf("getting total count: %w", err)
	}

	return domain.NewPaginatedResult(scansOut, page, pageSize, total), nil
}

// UpdateStatus only updates the status column for a specific scan id
func (r *ScanRepository) UpdateStatus(ctx context.Context, tenant string, id domain.ScanID, status domain.Status) error {
	const q = `
UPDATE privacy_scans
SET status = ?
WHERE tenant_id = ? AND id = ?;`
	_, err := r.db.ExecContext(ctx, q, status, tenant, id)
	return err
}

// UpdateResult updates a scan's final result (status, report_url, counts)
func (r *ScanRepository) UpdateResult(ctx context.Context, tenant string, id domain.ScanID, status domain.Status, reportURL string, counts domain.SeverityCounts) error {
	const q = `
UPDATE privacy_scans
SET status = ?,
    critical = ?,
    high = ?,
    medium = ?,
    low = ?,
    findings_total = ?,
    report_url = ?
WHERE tenant_id = ? AND id = ?;`
	_, err := r.db.ExecContext(ctx, q,
		status,
		counts.Critical, counts.High, counts.Medium, counts.Low, counts.Total,
		reportURL,
		tenant, id,
	)
	return err
}

// Cursor-based pagination (after cursorTime, cursorID)
func (r *ScanRepository) Cursor(ctx context.Context, tenant string, cursorTime time.Time, cursorID string, pageSize int) ([]*domain.Scan, error) {
	if pageSize <= 0 {
		pageSize = 20
	}

	q := `SELECT ` + scanColumns + `
FROM privacy_scans
WHERE tenant_id=?
  AND (triggered_at < ? OR (triggered_at = ? AND id < ?))
ORDER BY triggered_at DESC, id DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, tenant, cursorTime, cursorTime, cursorID, pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Scan
	for rows.Next() {
		s, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Count returns the total number of records matching the given filters
func (r *ScanRepository) Count(ctx context.Context, tenant string, filters map[string]any) (int64, error) {
	query := "SELECT COUNT(*) FROM privacy_scans WHERE tenant_id = ?"
	args := []any{tenant}
	query, args = applyScanFilters(query, args, filters)

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func applyScanFilters(query string, args []any, filters map[string]any) (string, []any) {
	if filters == nil {
		return query, args
	}
	for key, value := range filters {
		switch key {
		case "connector":
			query += " AND connector = ?"
			args = append(args, value)
		case "kind":
			query += " AND kind = ?"
			args = append(args, value)
		case "status":
			query += " AND status = ?"
			args = append(args, value)
		case "scope":
			// LIKE with escaped wildcards to prevent injection
			query += " AND scope LIKE ?"
			term, _ := value.(string)
			args = append(args, "%"+escapeLikePattern(term)+"%")
		}
	}
	return query, args
}
