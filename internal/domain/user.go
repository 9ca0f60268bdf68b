package domain

import (
	"context"
	"time"
)

// Role is a user's authorization role within their organization.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleMiniAdmin  Role = "MINI_ADMIN"
	RoleInspector  Role = "INSPECTOR"
)

// User represents a system user. Only users with RoleInspector are
// schedulable; the others exist for the management surface.
type User struct {
	ID           string // UUID
	Email        string // Unique email address
	PasswordHash string // Bcrypt hashed password (not returned in API)
	Name         string
	Role         Role
	OrgID        string // UUID of the owning organization
	DepartmentID string // optional; empty when the user is org-wide
	CreatedAt    time.Time
	UpdatedAt    time.Time
	IsActive     bool
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error
	ListByOrg(ctx context.Context, orgID string) ([]*User, error)

	// ListInspectors returns active INSPECTOR users in an organization,
	// narrowed to a department when departmentID is non-empty. Results are
	// ordered by created_at then id so assignment tie-breaks are stable
	// across passes.
	ListInspectors(ctx context.Context, orgID, departmentID string) ([]*User, error)
}
