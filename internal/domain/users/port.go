package users

import "context"

// Repository port for identity persistence
type Repository interface {
	Save(ctx context.Context, u *User) error
	Get(ctx context.Context, tenant string, id UserID) (*User, error)
	GetByEmail(ctx context.Context, tenant string, email string) (*User, error)
	List(ctx context.Context, tenant string, status Status, limit int) ([]*User, error)
	UpdateStatus(ctx context.Context, tenant string, id UserID, status Status) error
}
