package domain

import (
	"context"
	"time"
)

// Organization is the top-level tenancy scope. Every template, user and
// inspection belongs to exactly one organization.
type Organization struct {
	ID        string // UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	IsActive  bool
}

// Department is an optional sub-scope within an organization. Templates
// pinned to a department only schedule onto that department's inspectors.
type Department struct {
	ID        string // UUID
	OrgID     string
	Name      string
	CreatedAt time.Time
}

// OrganizationRepository defines data access for organizations and their
// departments.
type OrganizationRepository interface {
	GetByID(ctx context.Context, id string) (*Organization, error)
	List(ctx context.Context) ([]*Organization, error)
	ListDepartments(ctx context.Context, orgID string) ([]*Department, error)
}
