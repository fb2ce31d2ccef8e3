package users

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/complykit/privacy-comply/internal/application"
	"github.com/complykit/privacy-comply/internal/domain/audit"
	domain "github.com/complykit/privacy-comply/internal/domain/users"
)

// ErrInvalidCredentials covers both unknown email and wrong password so the
// API cannot be used to enumerate accounts.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidTransition is returned for a disallowed status change
var ErrInvalidTransition = errors.New("invalid status transition")

const resetTokenTTL = 30 * time.Minute

// Service implements the identity use-cases
type Service struct {
	Repo  domain.Repository
	Audit audit.Repository
	Clock application.Clock
}

type RegisterCommand struct {
	TenantID string
	Email    string
	Name     string
	Role     domain.Role
	Password string
	Actor    string
}

// Register creates an active user with a bcrypt password hash
func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email %q", cmd.Email)
	}
	if len(cmd.Password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	u := &domain.User{
		ID:           domain.UserID(uuid.New().String()),
		TenantID:     cmd.TenantID,
		Email:        email,
		Name:         cmd.Name,
		Role:         cmd.Role,
		Status:       domain.StatusActive,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Save(ctx, u); err != nil {
		return nil, err
	}

	s.record(ctx, cmd.TenantID, cmd.Actor, "user.create", "user:"+string(u.ID))
	return u, nil
}

// Authenticate verifies email+password for an active user and stamps the
// last login time.
func (s *Service) Authenticate(ctx context.Context, tenant, email, password string) (*domain.User, error) {
	u, err := s.Repo.GetByEmail(ctx, tenant, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if u.Status != domain.StatusActive {
		return nil, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	u.LastLoginAt = s.Clock.Now()
	u.UpdatedAt = u.LastLoginAt
	if err := s.Repo.Save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangeStatus applies a status transition after checking it is allowed
func (s *Service) ChangeStatus(ctx context.Context, tenant string, id domain.UserID, next domain.Status, actor string) error {
	u, err := s.Repo.Get(ctx, tenant, id)
	if err != nil {
		return err
	}
	if !u.CanTransitionTo(next) {
		return fmt.Errorf("%s -> %s: %w", u.Status, next, ErrInvalidTransition)
	}
	if err := s.Repo.UpdateStatus(ctx, tenant, id, next); err != nil {
		return err
	}
	s.record(ctx, tenant, actor, "user.status", "user:"+string(id))
	return nil
}

// Grant adds a permission to a user
func (s *Service) Grant(ctx context.Context, tenant string, id domain.UserID, p domain.Permission, actor string) (*domain.User, error) {
	u, err := s.Repo.Get(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	u.Grant(p)
	u.UpdatedAt = s.Clock.Now()
	if err := s.Repo.Save(ctx, u); err != nil {
		return nil, err
	}
	s.record(ctx, tenant, actor, "user.grant", "user:"+string(id))
	return u, nil
}

// Revoke removes the permission on a resource
func (s *Service) Revoke(ctx context.Context, tenant string, id domain.UserID, resource, actor string) (*domain.User, error) {
	u, err := s.Repo.Get(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	if err := u.Revoke(resource); err != nil {
		return nil, err
	}
	u.UpdatedAt = s.Clock.Now()
	if err := s.Repo.Save(ctx, u); err != nil {
		return nil, err
	}
	s.record(ctx, tenant, actor, "user.revoke", "user:"+string(id))
	return u, nil
}

// RequestPasswordReset issues a short-lived reset token. The token is
// returned to the caller for delivery; it is never logged.
func (s *Service) RequestPasswordReset(ctx context.Context, tenant, email string) (string, error) {
	u, err := s.Repo.GetByEmail(ctx, tenant, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", err
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	u.ResetToken = token
	u.ResetTokenExpiry = s.Clock.Now().Add(resetTokenTTL)
	u.UpdatedAt = s.Clock.Now()
	if err := s.Repo.Save(ctx, u); err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword consumes a valid reset token and sets a new password
func (s *Service) ResetPassword(ctx context.Context, tenant, email, token, newPassword string) error {
	u, err := s.Repo.GetByEmail(ctx, tenant, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return err
	}
	if u.ResetToken == "" || u.ResetToken != token {
		return ErrInvalidCredentials
	}
	if s.Clock.Now().After(u.ResetTokenExpiry) {
		return fmt.Errorf("reset token expired")
	}
	if len(newPassword) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	u.ResetToken = ""
	u.ResetTokenExpiry = time.Time{}
	u.UpdatedAt = s.Clock.Now()
	if err := s.Repo.Save(ctx, u); err != nil {
		return err
	}
	s.record(ctx, tenant, string(u.ID), "user.password_reset", "user:"+string(u.ID))
	return nil
}

// Get returns one user
func (s *Service) Get(ctx context.Context, tenant string, id domain.UserID) (*domain.User, error) {
	return s.Repo.Get(ctx, tenant, id)
}

// List users, optionally filtered by status
func (s *Service) List(ctx context.Context, tenant string, status domain.Status, limit int) ([]*domain.User, error) {
	return s.Repo.List(ctx, tenant, status, limit)
}

func (s *Service) record(ctx context.Context, tenant, actor, action, resource string) {
	if s.Audit == nil {
		return
	}
	_ = s.Audit.Append(ctx, &audit.Entry{
		TenantID: tenant,
		Actor:    actor,
		Action:   action,
		Resource: resource,
		At:       s.Clock.Now(),
	})
}
