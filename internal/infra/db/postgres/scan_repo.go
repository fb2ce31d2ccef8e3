package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	domain "github.com/complykit/privacy-comply/internal/domain/scans"
)

type ScanRepository struct{ db *sql.DB }

func NewScanRepository(db *sql.DB) *ScanRepository { return &ScanRepository{db: db} }

// Save insert/update Scan record
func (r *ScanRepository) Save(ctx context.Context, s *domain.Scan) error {
	const q = `
INSERT INTO privacy_scans
(id, tenant_id, triggered_at, connector, kind, scope, status,
 critical, high, medium, low, findings_total, records_scanned,
 report_url, raw_format, duration_ms, source)
VALUES ($1,$2,$3,$4,$5,$6,$7,
        $8,$9,$10,$11,$12,$13,
        $14,$15,$16,$17)
ON CONFLICT (id) DO UPDATE SET
 status = EXCLUDED.status,
 critical = EXCLUDED.critical,
 high = EXCLUDED.high,
 medium = EXCLUDED.medium,
 low = EXCLUDED.low,
 findings_total = EXCLUDED.findings_total,
 records_scanned = EXCLUDED.records_scanned,
 report_url = EXCLUDED.report_url,
 raw_format = EXCLUDED.raw_format,
 duration_ms = EXCLUDED.duration_ms;`
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
WHERE tenant_id=$1 AND id=$2
LIMIT 1;`
	return scanRow(r.db.QueryRowContext(ctx, q, tenant, id))
}

// Latest scans per tenant
func (r *ScanRepository) Latest(ctx context.Context, tenant string, limit int) ([]*domain.Scan, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `SELECT ` + scanColumns + `
FROM privacy_scans
WHERE tenant_id=$1 ORDER BY triggered_at DESC
LIMIT $2;`
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
WHERE tenant_id=$1 AND triggered_at >= $2;`
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
WHERE tenant_id=$1`
	args := []any{tenant}
	next := 2
	query, args, next = applyScanFilters(query, args, next, filters)

	query += fmt.Sprintf("\nORDER BY triggered_at DESC LIMIT $%d OFFSET $%d", next, next+1)
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
SET status = $1
WHERE tenant_id = $2 AND id = $3;`
	_, err := r.db.ExecContext(ctx, q, status, tenant, id)
	return err
}

// UpdateResult updates a scan's final result (status, report_url, counts)
func (r *ScanRepository) UpdateResult(ctx context.Context, tenant string, id domain.ScanID, status domain.Status, reportURL string, counts domain.SeverityCounts) error {
	const q = `
UPDATE privacy_scans
SET status = $1,
    critical = $2,
    high = $3,
    medium = $4,
    low = $5,
    findings_total = $6,
    report_url = $7
WHERE tenant_id = $8 AND id = $9;`
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
WHERE tenant_id=$1
  AND (triggered_at < $2 OR (triggered_at = $2 AND id < $3))
ORDER BY triggered_at DESC, id DESC
LIMIT $4;`
	rows, err := r.db.QueryContext(ctx, q, tenant, cursorTime, cursorID, pageSize)
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
	query := "SELECT COUNT(*) FROM privacy_scans WHERE tenant_id = $1"
	args := []any{tenant}
	query, args, _ = applyScanFilters(query, args, 2, filters)

	var count int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func applyScanFilters(query string, args []any, next int, filters map[string]any) (string, []any, int) {
	if filters == nil {
		return query, args, next
	}
	for key, value := range filters {
		switch key {
		case "connector":
			query += fmt.Sprintf(" AND connector = $%d", next)
			args = append(args, value)
			next++
		case "kind":
			query += fmt.Sprintf(" AND kind = $%d", next)
			args = append(args, value)
			next++
		case "status":
			query += fmt.Sprintf(" AND status = $%d", next)
			args = append(args, value)
			next++
		case "scope":
			term, _ := value.(string)
			query += fmt.Sprintf(" AND scope ILIKE $%d", next)
			args = append(args, "%"+term+"%")
			next++
		}
	}
	return query, args, next
}

var _ domain.Repository = (*ScanRepository)(nil)
