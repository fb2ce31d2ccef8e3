package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	domain "github.com/complykit/privacy-comply/internal/domain/risks"
)

type RiskRepository struct {
	db *sql.DB
}

func NewRiskRepository(db *sql.DB) *RiskRepository {
	return &RiskRepository{db: db}
}

// Save insert/update assessment. Mitigation measures live in a JSON column
// since they have no lifecycle outside their assessment.
func (r *RiskRepository) Save(ctx context.Context, a *domain.Assessment) error {
	const q = `
INSERT INTO risk_assessments
(id, tenant_id, category, description,
 impact_score, likelihood_score, overall_score, status, measures,
 last_reviewed_at, next_review_at, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 category=VALUES(category), description=VALUES(description),
 impact_score=VALUES(impact_score), likelihood_score=VALUES(likelihood_score),
 overall_score=VALUES(overall_score), status=VALUES(status), measures=VALUES(measures),
 last_reviewed_at=VALUES(last_reviewed_at), next_review_at=VALUES(next_review_at),
 updated_at=VALUES(updated_at);
`
	measures := "[]"
	if len(a.Measures) > 0 {
		measures = jsonOrEmpty(a.Measures)
	}
	_, err := r.db.ExecContext(ctx, q,
		a.ID, stringOrDash(a.TenantID), stringOrDash(a.Category), a.Description,
		a.ImpactScore, a.LikelihoodScore, a.OverallScore, a.Status, measures,
		nullableTime(a.LastReviewedAt), nullableTime(a.NextReviewAt),
		timeOrNow(a.CreatedAt), timeOrNow(a.UpdatedAt),
	)
	return err
}

const riskColumns = `id, tenant_id, category, description,
       impact_score, likelihood_score, overall_score, status, measures,
       last_reviewed_at, next_review_at, created_at, updated_at`

func riskRow(scanner interface{ Scan(...any) error }) (*domain.Assessment, error) {
	var a domain.Assessment
	var measures string
	var reviewed, next sql.NullTime
	if err := scanner.Scan(
		&a.ID, &a.TenantID, &a.Category, &a.Description,
		&a.ImpactScore, &a.LikelihoodScore, &a.OverallScore, &a.Status, &measures,
		&reviewed, &next, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if measures != "" {
		_ = json.Unmarshal([]byte(measures), &a.Measures)
	}
	if reviewed.Valid {
		a.LastReviewedAt = reviewed.Time
	}
	if next.Valid {
		a.NextReviewAt = next.Time
	}
	return &a, nil
}

// Get by ID + Tenant
func (r *RiskRepository) Get(ctx context.Context, tenant string, id domain.AssessmentID) (*domain.Assessment, error) {
	q := `SELECT ` + riskColumns + `
FROM risk_assessments
WHERE tenant_id=? AND id=? LIMIT 1;`
	return riskRow(r.db.QueryRowContext(ctx, q, tenant, id))
}

// List assessments, optionally filtered by status, highest score first
func (r *RiskRepository) List(ctx context.Context, tenant string, status domain.Status, limit int) ([]*domain.Assessment, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + riskColumns + `
FROM risk_assessments
WHERE tenant_id=?`
	args := []any{tenant}
	if status != "" {
		query += " AND status=?"
		args = append(args, status)
	}
	query += "\nORDER BY overall_score DESC, updated_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Assessment
	for rows.Next() {
		a, err := riskRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DueForReview returns active assessments whose next review date has passed
func (r *RiskRepository) DueForReview(ctx context.Context, tenant string, before time.Time) ([]*domain.Assessment, error) {
	q := `SELECT ` + riskColumns + `
FROM risk_assessments
WHERE tenant_id=? AND status='active'
  AND next_review_at IS NOT NULL AND next_review_at < ?
ORDER BY next_review_at ASC;`
	rows, err := r.db.QueryContext(ctx, q, tenant, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Assessment
	for rows.Next() {
		a, err := riskRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
