package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/inspectrack/inspectrack/internal/domain"
)

// PostgresInspectionRepository implements domain.InspectionRepository using PostgreSQL
type PostgresInspectionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresInspectionRepository creates a new inspection repository
func NewPostgresInspectionRepository(db *sql.DB, logger *slog.Logger) *PostgresInspectionRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresInspectionRepository{
		db:     db,
		logger: logger,
	}
}

const inspectionColumns = `id, template_id, inspector_id, org_id, COALESCE(department_id::text, ''), due_date, status, completed_at, created_by, created_at, updated_at`

// Create inserts a new inspection
func (r *PostgresInspectionRepository) Create(ctx context.Context, inspection *domain.Inspection) error {
	query := `
		INSERT INTO inspections (id, template_id, inspector_id, org_id, department_id, due_date, status, completed_at, created_by)
		VALUES ($1, $2, $3, $4, NULLIF($5, '')::uuid, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		inspection.ID,
		inspection.TemplateID,
		inspection.InspectorID,
		inspection.OrgID,
		inspection.DepartmentID,
		inspection.DueDate,
		inspection.Status,
		inspection.CompletedAt,
		inspection.CreatedBy,
	).Scan(&inspection.CreatedAt, &inspection.UpdatedAt)

	if err != nil {
		r.logger.Error("failed to create inspection",
			slog.String("template_id", inspection.TemplateID),
			slog.String("inspector_id", inspection.InspectorID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create inspection: %w", err)
	}

	return nil
}

// GetByID retrieves an inspection by ID
func (r *PostgresInspectionRepository) GetByID(ctx context.Context, id string) (*domain.Inspection, error) {
	query := `
		SELECT ` + inspectionColumns + `
		FROM inspections
		WHERE id = $1
	`

	insp, err := r.scanOne(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.Error("failed to get inspection by id",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to get inspection: %w", err)
	}

	return insp, nil
}

// Update persists status and completion changes for an inspection
func (r *PostgresInspectionRepository) Update(ctx context.Context, inspection *domain.Inspection) error {
	query := `
		UPDATE inspections
		SET status = $1, completed_at = $2, updated_at = now()
		WHERE id = $3
		RETURNING updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		inspection.Status,
		inspection.CompletedAt,
		inspection.ID,
	).Scan(&inspection.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to update inspection: %w", err)
	}

	return nil
}

// ListByOrg lists all inspections for an organization, newest due first
func (r *PostgresInspectionRepository) ListByOrg(ctx context.Context, orgID string) ([]*domain.Inspection, error) {
	query := `
		SELECT ` + inspectionColumns + `
		FROM inspections
		WHERE org_id = $1
		ORDER BY due_date DESC
	`

	return r.list(ctx, query, orgID)
}

// ListByDepartment lists all inspections scoped to a department
func (r *PostgresInspectionRepository) ListByDepartment(ctx context.Context, orgID, departmentID string) ([]*domain.Inspection, error) {
	query := `
		SELECT ` + inspectionColumns + `
		FROM inspections
		WHERE org_id = $1 AND department_id = $2
		ORDER BY due_date DESC
	`

	return r.list(ctx, query, orgID, departmentID)
}

// LatestCompleted returns the most recently completed inspection for a
// template, or nil when none exists.
func (r *PostgresInspectionRepository) LatestCompleted(ctx context.Context, templateID string) (*domain.Inspection, error) {
	query := `
		SELECT ` + inspectionColumns + `
		FROM inspections
		WHERE template_id = $1 AND status = 'COMPLETED'
		ORDER BY completed_at DESC
		LIMIT 1
	`

	insp, err := r.scanOne(r.db.QueryRowContext(ctx, query, templateID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest completion: %w", err)
	}

	return insp, nil
}

// HasOpen reports whether a template has a non-completed inspection
func (r *PostgresInspectionRepository) HasOpen(ctx context.Context, templateID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM inspections
			WHERE template_id = $1 AND status <> 'COMPLETED'
		)
	`

	var open bool
	if err := r.db.QueryRowContext(ctx, query, templateID).Scan(&open); err != nil {
		return false, fmt.Errorf("failed to check open inspections: %w", err)
	}

	return open, nil
}

// CountOpen returns the total number of open inspections
func (r *PostgresInspectionRepository) CountOpen(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inspections WHERE status <> 'COMPLETED'`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count open inspections: %w", err)
	}
	return n, nil
}

// CountOpenByInspector returns open-inspection counts for the given
// inspectors in one grouped query. Inspectors with no open work are
// simply absent from the result.
func (r *PostgresInspectionRepository) CountOpenByInspector(ctx context.Context, inspectorIDs []string) (map[string]int, error) {
	if len(inspectorIDs) == 0 {
		return map[string]int{}, nil
	}

	query := `
		SELECT inspector_id, COUNT(*)
		FROM inspections
		WHERE inspector_id = ANY($1) AND status <> 'COMPLETED'
		GROUP BY inspector_id
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(inspectorIDs))
	if err != nil {
		r.logger.Error("failed to count open inspections",
			slog.Int("inspectors", len(inspectorIDs)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to count open inspections: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int, len(inspectorIDs))
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("failed to scan workload row: %w", err)
		}
		counts[id] = n
	}

	return counts, rows.Err()
}

func (r *PostgresInspectionRepository) scanOne(row *sql.Row) (*domain.Inspection, error) {
	insp := &domain.Inspection{}
	err := row.Scan(
		&insp.ID,
		&insp.TemplateID,
		&insp.InspectorID,
		&insp.OrgID,
		&insp.DepartmentID,
		&insp.DueDate,
		&insp.Status,
		&insp.CompletedAt,
		&insp.CreatedBy,
		&insp.CreatedAt,
		&insp.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return insp, nil
}

func (r *PostgresInspectionRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Inspection, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("failed to list inspections", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}
	defer rows.Close()

	var inspections []*domain.Inspection
	for rows.Next() {
		insp := &domain.Inspection{}
		err := rows.Scan(
			&insp.ID,
			&insp.TemplateID,
			&insp.InspectorID,
			&insp.OrgID,
			&insp.DepartmentID,
			&insp.DueDate,
			&insp.Status,
			&insp.CompletedAt,
			&insp.CreatedBy,
			&insp.CreatedAt,
			&insp.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan inspection: %w", err)
		}
		inspections = append(inspections, insp)
	}

	return inspections, rows.Err()
}
