package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/inspectrack/inspectrack/internal/domain"
)

// PostgresTemplateRepository implements domain.TemplateRepository using PostgreSQL
type PostgresTemplateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTemplateRepository creates a new template repository
func NewPostgresTemplateRepository(db *sql.DB, logger *slog.Logger) *PostgresTemplateRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTemplateRepository{
		db:     db,
		logger: logger,
	}
}

const templateColumns = `id, org_id, COALESCE(department_id::text, ''), name, frequency_days, is_active, created_at, updated_at`

// GetByID retrieves a template by ID
func (r *PostgresTemplateRepository) GetByID(ctx context.Context, id string) (*domain.Template, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM templates
		WHERE id = $1
	`

	tpl := &domain.Template{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tpl.ID,
		&tpl.OrgID,
		&tpl.DepartmentID,
		&tpl.Name,
		&tpl.FrequencyDays,
		&tpl.Active,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTemplateNotFound
		}
		r.logger.Error("failed to get template by id",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return tpl, nil
}

// ListActive lists all active templates across organizations. This is the
// scheduler's working set; ordering by creation keeps passes deterministic.
func (r *PostgresTemplateRepository) ListActive(ctx context.Context) ([]*domain.Template, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM templates
		WHERE is_active = true
		ORDER BY created_at, id
	`

	return r.list(ctx, query)
}

// ListByOrg lists all templates for an organization
func (r *PostgresTemplateRepository) ListByOrg(ctx context.Context, orgID string) ([]*domain.Template, error) {
	query := `
		SELECT ` + templateColumns + `
		FROM templates
		WHERE org_id = $1
		ORDER BY created_at, id
	`

	return r.list(ctx, query, orgID)
}

func (r *PostgresTemplateRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Template, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list templates", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []*domain.Template
	for rows.Next() {
		tpl := &domain.Template{}
		err := rows.Scan(
			&tpl.ID,
			&tpl.OrgID,
			&tpl.DepartmentID,
			&tpl.Name,
			&tpl.FrequencyDays,
			&tpl.Active,
			&tpl.CreatedAt,
			&tpl.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		templates = append(templates, tpl)
	}

	return templates, rows.Err()
}
