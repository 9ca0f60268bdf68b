package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/inspectrack/inspectrack/internal/domain"
	"github.com/inspectrack/inspectrack/internal/featureflags"
	"github.com/inspectrack/inspectrack/internal/observability/metrics"
	"github.com/inspectrack/inspectrack/internal/status"
)

// InspectionService handles the manual inspection path and status
// transitions. The scheduled path lives in the worker package.
type InspectionService struct {
	templates   domain.TemplateRepository
	inspections domain.InspectionRepository
	users       domain.UserRepository
	logger      *slog.Logger
	bufferDays  int

	now func() time.Time
}

// NewInspectionService creates a new inspection service
func NewInspectionService(
	templates domain.TemplateRepository,
	inspections domain.InspectionRepository,
	users domain.UserRepository,
	logger *slog.Logger,
	bufferDays int,
) *InspectionService {
	return &InspectionService{
		templates:   templates,
		inspections: inspections,
		users:       users,
		logger:      logger,
		bufferDays:  bufferDays,
		now:         time.Now,
	}
}

// CreateOptions captures a manual inspection request
type CreateOptions struct {
	TemplateID  string
	InspectorID string
	DueDate     *time.Time // nil = now + template frequency

	// Force deliberately bypasses the open-instance uniqueness guard.
	// Admins use it to demand an extra inspection while one is already
	// open; it is never set implicitly.
	Force bool

	RequestedBy  string // user id, for the audit trail
	RequestedOrg string // caller's org; empty skips the tenancy check (super admin)
}

// CreateForTemplate creates an inspection outside the scheduling pass.
func (s *InspectionService) CreateForTemplate(ctx context.Context, opts CreateOptions) (*domain.Inspection, error) {
	tpl, err := s.templates.GetByID(ctx, opts.TemplateID)
	if err != nil {
		if errors.Is(err, domain.ErrTemplateNotFound) {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	if opts.RequestedOrg != "" && tpl.OrgID != opts.RequestedOrg {
		// Templates in other organizations are indistinguishable from
		// missing ones.
		return nil, domain.ErrTemplateNotFound
	}

	inspector, err := s.users.GetByID(ctx, opts.InspectorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidInspector
		}
		return nil, fmt.Errorf("failed to load inspector: %w", err)
	}
	if inspector.Role != domain.RoleInspector || !inspector.IsActive {
		return nil, domain.ErrInvalidInspector
	}
	if inspector.OrgID != tpl.OrgID {
		return nil, fmt.Errorf("%w: inspector belongs to a different organization", domain.ErrInvalidInspector)
	}

	if !opts.Force && !featureflags.Enabled(featureflags.AllowDuplicateOpen) {
		open, err := s.inspections.HasOpen(ctx, tpl.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check open inspections: %w", err)
		}
		if open {
			return nil, domain.ErrAlreadyScheduled
		}
	}

	now := s.now()
	dueDate := now.AddDate(0, 0, tpl.FrequencyDays)
	if opts.DueDate != nil {
		dueDate = *opts.DueDate
	}

	departmentID := tpl.DepartmentID
	if departmentID == "" {
		departmentID = inspector.DepartmentID
	}

	inspection := &domain.Inspection{
		ID:           uuid.NewString(),
		TemplateID:   tpl.ID,
		InspectorID:  inspector.ID,
		OrgID:        tpl.OrgID,
		DepartmentID: departmentID,
		DueDate:      dueDate,
		Status:       domain.StatusPending,
		CreatedBy:    domain.SourceManual,
	}

	if err := s.inspections.Create(ctx, inspection); err != nil {
		return nil, fmt.Errorf("failed to create inspection: %w", err)
	}

	s.logger.Info("inspection created manually",
		slog.String("inspection_id", inspection.ID),
		slog.String("template_id", tpl.ID),
		slog.String("inspector_id", inspector.ID),
		slog.String("requested_by", opts.RequestedBy),
		slog.Bool("forced", opts.Force),
	)
	metrics.ObserveInspectionCreated(domain.SourceManual)

	return inspection, nil
}

// Start moves a PENDING inspection to IN_PROGRESS. Inspectors hit this
// when they save their first checklist item.
func (s *InspectionService) Start(ctx context.Context, id string) (*domain.Inspection, error) {
	inspection, err := s.inspections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if inspection.Status != domain.StatusPending {
		return nil, fmt.Errorf("%w: %s cannot start", domain.ErrInvalidTransition, inspection.Status)
	}

	inspection.Status = domain.StatusInProgress
	if err := s.inspections.Update(ctx, inspection); err != nil {
		return nil, err
	}

	return inspection, nil
}

// Complete moves an open inspection to COMPLETED and stamps completedAt.
// Transitions are monotonic: a completed inspection never reopens.
func (s *InspectionService) Complete(ctx context.Context, id string) (*domain.Inspection, error) {
	inspection, err := s.inspections.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if inspection.Status == domain.StatusCompleted {
		return nil, fmt.Errorf("%w: already completed", domain.ErrInvalidTransition)
	}

	now := s.now()
	inspection.Status = domain.StatusCompleted
	inspection.CompletedAt = &now
	if err := s.inspections.Update(ctx, inspection); err != nil {
		return nil, err
	}

	s.logger.Info("inspection completed",
		slog.String("inspection_id", inspection.ID),
		slog.String("template_id", inspection.TemplateID),
	)

	return inspection, nil
}

// View is an inspection together with its live classification.
type View struct {
	Inspection     *domain.Inspection
	Classification status.Classification
}

// ListWithStatus returns an organization's inspections, each classified
// against the same "now" so one listing is internally consistent.
func (s *InspectionService) ListWithStatus(ctx context.Context, orgID string) ([]View, error) {
	inspections, err := s.inspections.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]View, len(inspections))
	for i, insp := range inspections {
		views[i] = View{
			Inspection:     insp,
			Classification: status.Classify(insp.DueDate, insp.CompletedAt, now, s.bufferDays),
		}
	}

	return views, nil
}

// Get returns a single inspection by id.
func (s *InspectionService) Get(ctx context.Context, id string) (*domain.Inspection, error) {
	return s.inspections.GetByID(ctx, id)
}
