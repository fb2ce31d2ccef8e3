package users

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complykit/privacy-comply/internal/application"
	domain "github.com/complykit/privacy-comply/internal/domain/users"
)

type memUserRepo struct {
	users map[domain.UserID]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[domain.UserID]*domain.User)}
}

func (r *memUserRepo) Save(_ context.Context, u *domain.User) error {
	cp := *u
	r.users[u.ID] = &cp
	return nil
}

func (r *memUserRepo) Get(_ context.Context, _ string, id domain.UserID) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, _ string, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *memUserRepo) List(_ context.Context, _ string, status domain.Status, _ int) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range r.users {
		if status == "" || u.Status == status {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memUserRepo) UpdateStatus(_ context.Context, _ string, id domain.UserID, status domain.Status) error {
	u, ok := r.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Status = status
	return nil
}

func newUserService() (*Service, *memUserRepo) {
	repo := newMemUserRepo()
	return &Service{Repo: repo, Clock: application.SystemClock{}}, repo
}

func register(t *testing.T, svc *Service) *domain.User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterCommand{
		TenantID: "acme",
		Email:    "Jane@Example.com",
		Name:     "Jane",
		Role:     domain.RoleCompliance,
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	return u
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, _ := newUserService()
	u := register(t, svc)

	assert.Equal(t, "jane@example.com", u.Email, "email is normalized")
	assert.Equal(t, domain.StatusActive, u.Status)
	assert.NotEqual(t, "s3cret-pass", u.PasswordHash)

	got, err := svc.Authenticate(context.Background(), "acme", "jane@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.False(t, got.LastLoginAt.IsZero())

	_, err = svc.Authenticate(context.Background(), "acme", "jane@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "acme", "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterRejectsWeakInput(t *testing.T) {
	svc, _ := newUserService()

	_, err := svc.Register(context.Background(), RegisterCommand{Email: "not-an-email", Password: "s3cret-pass"})
	assert.Error(t, err)

	_, err = svc.Register(context.Background(), RegisterCommand{Email: "a@b.c", Password: "short"})
	assert.Error(t, err)
}

func TestStatusTransitions(t *testing.T) {
	svc, repo := newUserService()
	u := register(t, svc)

	require.NoError(t, svc.ChangeStatus(context.Background(), "acme", u.ID, domain.StatusSuspended, "admin"))
	assert.Equal(t, domain.StatusSuspended, repo.users[u.ID].Status)

	// suspended users cannot be parked inactive
	err := svc.ChangeStatus(context.Background(), "acme", u.ID, domain.StatusInactive, "admin")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, svc.ChangeStatus(context.Background(), "acme", u.ID, domain.StatusActive, "admin"))

	// no-op transition is rejected
	err = svc.ChangeStatus(context.Background(), "acme", u.ID, domain.StatusActive, "admin")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSuspendedUserCannotAuthenticate(t *testing.T) {
	svc, _ := newUserService()
	u := register(t, svc)
	require.NoError(t, svc.ChangeStatus(context.Background(), "acme", u.ID, domain.StatusSuspended, "admin"))

	_, err := svc.Authenticate(context.Background(), "acme", u.Email, "s3cret-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGrantAndRevoke(t *testing.T) {
	svc, _ := newUserService()
	u := register(t, svc)

	updated, err := svc.Grant(context.Background(), "acme", u.ID, domain.Permission{
		Resource: "scans", Actions: []string{"read"},
	}, "admin")
	require.NoError(t, err)
	assert.True(t, updated.HasPermission("scans", "read"))
	assert.False(t, updated.HasPermission("scans", "write"))

	// granting again on the same resource merges actions
	updated, err = svc.Grant(context.Background(), "acme", u.ID, domain.Permission{
		Resource: "scans", Actions: []string{"write"},
	}, "admin")
	require.NoError(t, err)
	assert.True(t, updated.HasPermission("scans", "read"))
	assert.True(t, updated.HasPermission("scans", "write"))
	assert.Len(t, updated.Permissions, 1)

	updated, err = svc.Revoke(context.Background(), "acme", u.ID, "scans", "admin")
	require.NoError(t, err)
	assert.False(t, updated.HasPermission("scans", "read"))

	_, err = svc.Revoke(context.Background(), "acme", u.ID, "scans", "admin")
	assert.Error(t, err)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, _ := newUserService()
	u := register(t, svc)

	token, err := svc.RequestPasswordReset(context.Background(), "acme", u.Email)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// wrong token is rejected
	err = svc.ResetPassword(context.Background(), "acme", u.Email, "bogus", "new-password-1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	require.NoError(t, svc.ResetPassword(context.Background(), "acme", u.Email, token, "new-password-1"))

	_, err = svc.Authenticate(context.Background(), "acme", u.Email, "new-password-1")
	require.NoError(t, err)

	// token is single-use
	err = svc.ResetPassword(context.Background(), "acme", u.Email, token, "another-pass-2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestExpiredResetToken(t *testing.T) {
	repo := newMemUserRepo()
	past := &frozenClock{t: time.Now().Add(-2 * time.Hour)}
	svc := &Service{Repo: repo, Clock: past}

	u, err := svc.Register(context.Background(), RegisterCommand{
		TenantID: "acme", Email: "jane@example.com", Role: domain.RoleViewer, Password: "s3cret-pass",
	})
	require.NoError(t, err)

	token, err := svc.RequestPasswordReset(context.Background(), "acme", u.Email)
	require.NoError(t, err)

	svc.Clock = application.SystemClock{}
	err = svc.ResetPassword(context.Background(), "acme", u.Email, token, "new-password-1")
	assert.ErrorContains(t, err, "expired")
}

type frozenClock struct{ t time.Time }

func (c *frozenClock) Now() time.Time { return c.t }
