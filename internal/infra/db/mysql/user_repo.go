package mysql

import (
	"context"
	"database/sql"
	"encoding/json"

	domain "github.com/complykit/privacy-comply/internal/domain/users"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Save insert/update user record. Permissions are stored as a JSON column.
func (r *UserRepository) Save(ctx context.Context, u *domain.User) error {
	const q = `
INSERT INTO users
(id, tenant_id, email, name, role, permissions, status,
 password_hash, two_factor_enabled, reset_token, reset_token_expiry,
 last_login_at, created_at, updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
 email=VALUES(email), name=VALUES(name), role=VALUES(role),
 permissions=VALUES(permissions), status=VALUES(status),
 password_hash=VALUES(password_hash), two_factor_enabled=VALUES(two_factor_enabled),
 reset_token=VALUES(reset_token), reset_token_expiry=VALUES(reset_token_expiry),
 last_login_at=VALUES(last_login_at), updated_at=VALUES(updated_at);
`
	perms := "[]"
	if len(u.Permissions) > 0 {
		perms = jsonOrEmpty(u.Permissions)
	}
	_, err := r.db.ExecContext(ctx, q,
		u.ID, stringOrDash(u.TenantID), u.Email, stringOrDash(u.Name), u.Role, perms, u.Status,
		u.PasswordHash, u.TwoFactorEnabled, u.ResetToken, nullableTime(u.ResetTokenExpiry),
		nullableTime(u.LastLoginAt), timeOrNow(u.CreatedAt), timeOrNow(u.UpdatedAt),
	)
	return err
}

const userColumns = `id, tenant_id, email, name, role, permissions, status,
       password_hash, two_factor_enabled, reset_token, reset_token_expiry,
       last_login_at, created_at, updated_at`

func userRow(scanner interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	var perms string
	var resetExpiry, lastLogin sql.NullTime
	if err := scanner.Scan(
		&u.ID, &u.TenantID, &u.Email, &u.Name, &u.Role, &perms, &u.Status,
		&u.PasswordHash, &u.TwoFactorEnabled, &u.ResetToken, &resetExpiry,
		&lastLogin, &u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if perms != "" {
		_ = json.Unmarshal([]byte(perms), &u.Permissions)
	}
	if resetExpiry.Valid {
		u.ResetTokenExpiry = resetExpiry.Time
	}
	if lastLogin.Valid {
		u.LastLoginAt = lastLogin.Time
	}
	return &u, nil
}

// Get by ID + Tenant
func (r *UserRepository) Get(ctx context.Context, tenant string, id domain.UserID) (*domain.User, error) {
	q := `SELECT ` + userColumns + `
FROM users
WHERE tenant_id=? AND id=? LIMIT 1;`
	return userRow(r.db.QueryRowContext(ctx, q, tenant, id))
}

// GetByEmail looks a user up by email within a tenant
func (r *UserRepository) GetByEmail(ctx context.Context, tenant string, email string) (*domain.User, error) {
	q := `SELECT ` + userColumns + `
FROM users
WHERE tenant_id=? AND email=? LIMIT 1;`
	return userRow(r.db.QueryRowContext(ctx, q, tenant, email))
}

// List users, optionally filtered by status ("" lists all)
func (r *UserRepository) List(ctx context.Context, tenant string, status domain.Status, limit int) ([]*domain.User, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + userColumns + `
FROM users
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

	var out []*domain.User
	for rows.Next() {
		u, err := userRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateStatus flips only the status column
func (r *UserRepository) UpdateStatus(ctx context.Context, tenant string, id domain.UserID, status domain.Status) error {
	const q = `
UPDATE users
SET status = ?, updated_at = NOW()
WHERE tenant_id = ? AND id = ?;`
	_, err := r.db.ExecContext(ctx, q, status, tenant, id)
	return err
}
