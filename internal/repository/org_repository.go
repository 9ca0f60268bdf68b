package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/inspectrack/inspectrack/internal/domain"
)

// PostgresOrgRepository implements domain.OrganizationRepository using PostgreSQL
type PostgresOrgRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresOrgRepository creates a new organization repository
func NewPostgresOrgRepository(db *sql.DB, logger *slog.Logger) *PostgresOrgRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresOrgRepository{
		db:     db,
		logger: logger,
	}
}

// GetByID retrieves an organization by ID
func (r *PostgresOrgRepository) GetByID(ctx context.Context, id string) (*domain.Organization, error) {
	query := `
		SELECT id, name, is_active, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`

	org := &domain.Organization{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&org.ID,
		&org.Name,
		&org.IsActive,
		&org.CreatedAt,
		&org.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

// List returns all active organizations
func (r *PostgresOrgRepository) List(ctx context.Context) ([]*domain.Organization, error) {
	query := `
		SELECT id, name, is_active, created_at, updated_at
		FROM organizations
		WHERE is_active = true
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("failed to list organizations", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var orgs []*domain.Organization
	for rows.Next() {
		org := &domain.Organization{}
		if err := rows.Scan(&org.ID, &org.Name, &org.IsActive, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}

	return orgs, rows.Err()
}

// ListDepartments returns all departments within an organization
func (r *PostgresOrgRepository) ListDepartments(ctx context.Context, orgID string) ([]*domain.Department, error) {
	query := `
		SELECT id, org_id, name, created_at
		FROM departments
		WHERE org_id = $1
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		r.logger.Error("failed to list departments",
			slog.String("org_id", orgID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	var departments []*domain.Department
	for rows.Next() {
		dep := &domain.Department{}
		if err := rows.Scan(&dep.ID, &dep.OrgID, &dep.Name, &dep.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		departments = append(departments, dep)
	}

	return departments, rows.Err()
}
