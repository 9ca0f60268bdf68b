package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"

	"github.com/inspectrack/inspectrack/internal/domain"
	"github.com/inspectrack/inspectrack/internal/observability/metrics"
)

// PassLocker serializes scheduling passes across processes. When the lock
// is busy another pass is already running and this one is skipped.
type PassLocker interface {
	TryAcquire(ctx context.Context) (release func(), acquired bool, err error)
}

// SchedulerWorker periodically walks every active template, decides
// whether a new inspection is due, and assigns it to the least-loaded
// eligible inspector.
type SchedulerWorker struct {
	templates   domain.TemplateRepository
	inspections domain.InspectionRepository
	users       domain.UserRepository
	passLock    PassLocker
	logger      *slog.Logger
	interval    time.Duration
	lookahead   int // days; due dates further out are not pre-created

	// now is injected so passes are deterministic under test.
	now func() time.Time
}

// NewSchedulerWorker creates a new scheduler worker
func NewSchedulerWorker(
	templates domain.TemplateRepository,
	inspections domain.InspectionRepository,
	users domain.UserRepository,
	passLock PassLocker,
	logger *slog.Logger,
	interval time.Duration,
	lookaheadDays int,
) *SchedulerWorker {
	return &SchedulerWorker{
		templates:   templates,
		inspections: inspections,
		users:       users,
		passLock:    passLock,
		logger:      logger,
		interval:    interval,
		lookahead:   lookaheadDays,
		now:         time.Now,
	}
}

// Start begins the scheduling loop. It blocks until ctx is cancelled.
func (w *SchedulerWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("scheduler worker started",
		slog.Duration("interval", w.interval),
		slog.Int("lookahead_days", w.lookahead),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("scheduler worker stopped")
			return
		case <-ticker.C:
			w.RunPass(ctx)
		}
	}
}

// RunPass executes one scheduling pass. Failures are contained per
// template: a template that cannot be processed is logged and skipped,
// and the pass moves on. The pass never reports an error to its trigger;
// whatever could not be scheduled is reconsidered on the next run.
func (w *SchedulerWorker) RunPass(ctx context.Context) {
	ctx, span := otel.Tracer("inspectrack/scheduler").Start(ctx, "scheduler.pass")
	defer span.End()

	release, acquired, err := w.passLock.TryAcquire(ctx)
	if err != nil {
		w.logger.Error("failed to acquire pass lock", slog.String("error", err.Error()))
		metrics.ObservePass("lock_error", 0)
		return
	}
	if !acquired {
		w.logger.Info("scheduling pass already running elsewhere, skipping")
		metrics.ObservePass("lock_busy", 0)
		return
	}
	defer release()

	start := w.now()
	templates, err := w.templates.ListActive(ctx)
	if err != nil {
		w.logger.Error("failed to list active templates", slog.String("error", err.Error()))
		metrics.ObservePass("error", time.Since(start))
		return
	}

	created := 0
	for _, tpl := range templates {
		ok, err := w.scheduleTemplate(ctx, tpl)
		if err != nil {
			w.logger.Error("failed to process template",
				slog.String("template_id", tpl.ID),
				slog.String("org_id", tpl.OrgID),
				slog.String("error", err.Error()),
			)
			metrics.ObserveSkip(metrics.SkipQueryError)
			continue
		}
		if ok {
			created++
		}
	}

	if open, err := w.inspections.CountOpen(ctx); err == nil {
		metrics.SetOpenInspections(open)
	}

	w.logger.Info("scheduling pass complete",
		slog.Int("templates", len(templates)),
		slog.Int("created", created),
		slog.Duration("duration", time.Since(start)),
	)
	metrics.ObservePass("success", time.Since(start))
}

// scheduleTemplate evaluates a single template and creates at most one
// inspection for it. It returns true when an inspection was created.
func (w *SchedulerWorker) scheduleTemplate(ctx context.Context, tpl *domain.Template) (bool, error) {
	now := w.now()

	last, err := w.inspections.LatestCompleted(ctx, tpl.ID)
	if err != nil {
		return false, fmt.Errorf("resolve last completion: %w", err)
	}

	var lastCompletedAt *time.Time
	if last != nil {
		lastCompletedAt = last.CompletedAt
	}
	nextDue := tpl.NextDueDate(lastCompletedAt, now)

	open, err := w.inspections.HasOpen(ctx, tpl.ID)
	if err != nil {
		return false, fmt.Errorf("check open inspections: %w", err)
	}
	if open {
		metrics.ObserveSkip(metrics.SkipOpenInstance)
		return false, nil
	}

	// Inspections are not pre-created beyond the lookahead window.
	if nextDue.After(now.AddDate(0, 0, w.lookahead)) {
		metrics.ObserveSkip(metrics.SkipNotDue)
		return false, nil
	}

	inspectors, err := w.users.ListInspectors(ctx, tpl.OrgID, tpl.DepartmentID)
	if err != nil {
		return false, fmt.Errorf("list eligible inspectors: %w", err)
	}
	if len(inspectors) == 0 {
		w.logger.Warn("no eligible inspector for template",
			slog.String("template_id", tpl.ID),
			slog.String("org_id", tpl.OrgID),
			slog.String("department_id", tpl.DepartmentID),
		)
		metrics.ObserveSkip(metrics.SkipNoInspector)
		return false, nil
	}

	assignee, err := w.pickLeastLoaded(ctx, inspectors)
	if err != nil {
		return false, fmt.Errorf("compute inspector workloads: %w", err)
	}

	departmentID := tpl.DepartmentID
	if departmentID == "" {
		departmentID = assignee.DepartmentID
	}

	inspection := &domain.Inspection{
		ID:           uuid.NewString(),
		TemplateID:   tpl.ID,
		InspectorID:  assignee.ID,
		OrgID:        tpl.OrgID,
		DepartmentID: departmentID,
		DueDate:      nextDue,
		Status:       domain.StatusPending,
		CreatedBy:    domain.SourceScheduler,
	}

	if err := w.inspections.Create(ctx, inspection); err != nil {
		return false, fmt.Errorf("create inspection: %w", err)
	}

	w.logger.Info("inspection scheduled",
		slog.String("inspection_id", inspection.ID),
		slog.String("template_id", tpl.ID),
		slog.String("inspector_id", assignee.ID),
		slog.Time("due_date", nextDue),
	)
	metrics.ObserveInspectionCreated(domain.SourceScheduler)

	return true, nil
}

// pickLeastLoaded selects the inspector with the fewest open inspections.
// Ties go to the earlier inspector in query order; reproducibility matters
// more than fairness here, so there is no randomization.
func (w *SchedulerWorker) pickLeastLoaded(ctx context.Context, inspectors []*domain.User) (*domain.User, error) {
	ids := make([]string, len(inspectors))
	for i, insp := range inspectors {
		ids[i] = insp.ID
	}

	counts, err := w.inspections.CountOpenByInspector(ctx, ids)
	if err != nil {
		return nil, err
	}

	best := inspectors[0]
	bestLoad := counts[best.ID]
	for _, insp := range inspectors[1:] {
		if load := counts[insp.ID]; load < bestLoad {
			best = insp
			bestLoad = load
		}
	}

	return best, nil
}
