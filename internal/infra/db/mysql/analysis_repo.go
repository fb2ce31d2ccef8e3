package mysql

import (
	"context"
	"database/sql"

	domain "github.com/complykit/privacy-comply/internal/domain/agent"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Save insert analysis record. Results are write-once, so no upsert clause.
func (r *AnalysisRepository) Save(ctx context.Context, a *domain.Analysis) error {
	const q = `
INSERT INTO agent_analyses
(id, tenant_id, scan_id, kind, input, result, created_at)
VALUES (?,?,?,?,?,?,?);
`
	_, err := r.db.ExecContext(ctx, q,
		a.ID, stringOrDash(a.TenantID), a.ScanID, stringOrDash(a.Kind), a.Input, a.Result, timeOrNow(a.CreatedAt),
	)
	return err
}

const analysisColumns = `id, tenant_id, scan_id, kind, input, result, created_at`

func analysisRow(scanner interface{ Scan(...any) error }) (*domain.Analysis, error) {
	var a domain.Analysis
	if err := scanner.Scan(
		&a.ID, &a.TenantID, &a.ScanID, &a.Kind, &a.Input, &a.Result, &a.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &a, nil
}

// Paginate analyses, newest first
func (r *AnalysisRepository) Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*domain.Analysis, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	q := `SELECT ` + analysisColumns + `
FROM agent_analyses
WHERE tenant_id=?
ORDER BY created_at DESC LIMIT ? OFFSET ?;`
	rows, err := r.db.QueryContext(ctx, q, tenant, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Analysis
	for rows.Next() {
		a, err := analysisRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LatestByScan returns the most recent analysis attached to a scan
func (r *AnalysisRepository) LatestByScan(ctx context.Context, tenant string, scanID string) (*domain.Analysis, error) {
	q := `SELECT ` + analysisColumns + `
FROM agent_analyses
WHERE tenant_id=? AND scan_id=?
ORDER BY created_at DESC LIMIT 1;`
	return analysisRow(r.db.QueryRowContext(ctx, q, tenant, scanID))
}

var _ domain.Repository = (*AnalysisRepository)(nil)
