package users

import (
	"fmt"
	"time"
)

// UserID identifier type
type UserID string

// Status enum
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// Role enum
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleCompliance Role = "compliance_officer"
	RoleAnalyst    Role = "analyst"
	RoleViewer     Role = "viewer"
)

// Permission grants actions on a resource, optionally constrained by
// conditions (e.g. {"tenant": "acme"}).
type Permission struct {
	Resource   string            `json:"resource"`
	Actions    []string          `json:"actions"`
	Conditions map[string]string `json:"conditions,omitempty"`
}

// User is the identity aggregate. Users are never hard-deleted; retirement
// is a transition to inactive or suspended.
type User struct {
	ID               UserID       `json:"id"`
	TenantID         string       `json:"tenant_id"`
	Email            string       `json:"email"`
	Name             string       `json:"name"`
	Role             Role         `json:"role"`
	Permissions      []Permission `json:"permissions,omitempty"`
	Status           Status       `json:"status"`
	PasswordHash     string       `json:"-"`
	TwoFactorEnabled bool         `json:"two_factor_enabled"`
	ResetToken       string       `json:"-"`
	ResetTokenExpiry time.Time    `json:"-"`
	LastLoginAt      time.Time    `json:"last_login_at,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// CanTransitionTo reports whether a status change is allowed. Suspended
// users may only return to active; any active/inactive flip is fine.
func (u *User) CanTransitionTo(next Status) bool {
	if u.Status == next {
		return false
	}
	if u.Status == StatusSuspended && next == StatusInactive {
		return false
	}
	return true
}

// Grant adds a permission, merging actions when the resource already exists
func (u *User) Grant(p Permission) {
	for i, existing := range u.Permissions {
		if existing.Resource == p.Resource {
			u.Permissions[i].Actions = mergeActions(existing.Actions, p.Actions)
			return
		}
	}
	u.Permissions = append(u.Permissions, p)
}

// Revoke removes the permission for a resource entirely
func (u *User) Revoke(resource string) error {
	for i, p := range u.Permissions {
		if p.Resource == resource {
			u.Permissions = append(u.Permissions[:i], u.Permissions[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no permission on resource %q", resource)
}

// HasPermission checks resource+action against the permission list
func (u *User) HasPermission(resource, action string) bool {
	for _, p := range u.Permissions {
		if p.Resource != resource && p.Resource != "*" {
			continue
		}
		for _, a := range p.Actions {
			if a == action || a == "*" {
				return true
			}
		}
	}
	return false
}

func mergeActions(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := append([]string(nil), a...)
	for _, v := range a {
		seen[v] = true
	}
	for _, v := range b {
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}
