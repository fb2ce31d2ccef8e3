package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/complykit/privacy-comply/internal/domain/audit"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts one audit entry. The table is append-only; the id is
// an auto-increment column assigned by the database.
func (r *AuditRepository) Append(ctx context.Context, e *domain.Entry) error {
	const q = `
INSERT INTO audit_entries
(tenant_id, actor, action, resource, details_json, at)
VALUES (?,?,?,?,?,?);
`
	res, err := r.db.ExecContext(ctx, q,
		stringOrDash(e.TenantID), stringOrDash(e.Actor), stringOrDash(e.Action),
		e.Resource, e.DetailsJSON, timeOrNow(e.At),
	)
	if err != nil {
		return err
	}
	if id, err := res.LastInsertId(); err == nil {
		e.ID = id
	}
	return nil
}

// Range returns entries within [from, to), oldest first
func (r *AuditRepository) Range(ctx context.Context, tenant string, from, to time.Time, limit int) ([]*domain.Entry, error) {
	if limit <= 0 {
		limit = 500
	}
	const q = `
SELECT id, tenant_id, actor, action, resource, details_json, at
FROM audit_entries
WHERE tenant_id=? AND at >= ? AND at < ?
ORDER BY at ASC, id ASC LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Entry
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.Actor, &e.Action, &e.Resource, &e.DetailsJSON, &e.At); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

var _ domain.Repository = (*AuditRepository)(nil)
