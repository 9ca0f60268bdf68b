package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/inspectrack/inspectrack/internal/domain"
	redisinfra "github.com/inspectrack/inspectrack/internal/infrastructure/redis"
	"github.com/inspectrack/inspectrack/internal/observability/metrics"
	"github.com/inspectrack/inspectrack/internal/reliability/circuitbreaker"
	"github.com/inspectrack/inspectrack/internal/status"
	"github.com/inspectrack/inspectrack/pkg/cache"
)

// SummaryCache is the external cache for dashboard summaries. Implemented
// by the Redis client; faked in tests.
type SummaryCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Summary aggregates an organization's inspections by classification.
type Summary struct {
	OrgID       string                `json:"orgId"`
	Totals      map[status.Status]int `json:"totals"`
	Departments []DepartmentSummary   `json:"departments"`
	GeneratedAt time.Time             `json:"generatedAt"`
}

// DepartmentSummary is the per-department slice of a Summary. Departments
// with no inspections still appear so dashboards render complete tables.
type DepartmentSummary struct {
	DepartmentID string                `json:"departmentId"`
	Name         string                `json:"name"`
	Counts       map[status.Status]int `json:"counts"`
}

// DashboardService computes classification summaries for dashboards.
// Summaries are cached in Redis behind a circuit breaker; when the cache
// is unavailable the service computes directly and keeps a short-lived
// process-local copy.
type DashboardService struct {
	inspections domain.InspectionRepository
	orgs        domain.OrganizationRepository
	remote      SummaryCache
	local       *cache.Cache[*Summary]
	breaker     *circuitbreaker.CircuitBreaker
	logger      *slog.Logger
	bufferDays  int
	ttl         time.Duration

	now func() time.Time
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(
	inspections domain.InspectionRepository,
	orgs domain.OrganizationRepository,
	remote SummaryCache,
	logger *slog.Logger,
	bufferDays int,
	ttl time.Duration,
) *DashboardService {
	breaker := circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
	breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("summary cache breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})

	return &DashboardService{
		inspections: inspections,
		orgs:        orgs,
		remote:      remote,
		local:       cache.New[*Summary](),
		breaker:     breaker,
		logger:      logger,
		bufferDays:  bufferDays,
		ttl:         ttl,
		now:         time.Now,
	}
}

func summaryKey(orgID string) string {
	return "summary:" + orgID
}

// Summary returns the classification summary for an organization,
// serving from cache when possible.
func (s *DashboardService) Summary(ctx context.Context, orgID string) (*Summary, error) {
	key := summaryKey(orgID)

	if cached, ok := s.local.Get(key); ok {
		metrics.ObserveSummaryCache("local_hit")
		return cached, nil
	}

	if s.remote != nil && s.breaker.AllowRequest() {
		raw, err := s.remote.Get(ctx, key)
		switch {
		case err == nil:
			s.breaker.RecordSuccess()
			summary := &Summary{}
			if jsonErr := json.Unmarshal([]byte(raw), summary); jsonErr == nil {
				metrics.ObserveSummaryCache("hit")
				s.local.Set(key, summary, s.ttl)
				return summary, nil
			}
			// Corrupt payload: fall through and recompute.
			metrics.ObserveSummaryCache("error")
		case redisinfra.IsMiss(err):
			s.breaker.RecordSuccess()
			metrics.ObserveSummaryCache("miss")
		default:
			s.breaker.RecordFailure()
			metrics.ObserveSummaryCache("error")
			s.logger.Warn("summary cache read failed",
				slog.String("org_id", orgID),
				slog.String("error", err.Error()),
			)
		}
	} else if s.remote != nil {
		metrics.ObserveSummaryCache("bypass")
	}

	summary, err := s.compute(ctx, orgID)
	if err != nil {
		return nil, err
	}

	s.local.Set(key, summary, s.ttl)

	if s.remote != nil && s.breaker.AllowRequest() {
		if payload, err := json.Marshal(summary); err == nil {
			if err := s.remote.Set(ctx, key, payload, s.ttl); err != nil {
				s.breaker.RecordFailure()
				s.logger.Warn("summary cache write failed",
					slog.String("org_id", orgID),
					slog.String("error", err.Error()),
				)
			} else {
				s.breaker.RecordSuccess()
			}
		}
	}

	return summary, nil
}

// Invalidate drops cached summaries for an organization. Handlers call it
// after mutations so dashboards converge faster than the TTL.
func (s *DashboardService) Invalidate(ctx context.Context, orgID string) {
	key := summaryKey(orgID)
	s.local.Delete(key)
	if s.remote != nil && s.breaker.AllowRequest() {
		if err := s.remote.Delete(ctx, key); err != nil {
			s.breaker.RecordFailure()
		}
	}
}

func (s *DashboardService) compute(ctx context.Context, orgID string) (*Summary, error) {
	inspections, err := s.inspections.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list inspections: %w", err)
	}

	departments, err := s.orgs.ListDepartments(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}

	now := s.now()
	summary := &Summary{
		OrgID:       orgID,
		Totals:      map[status.Status]int{},
		GeneratedAt: now,
	}

	byDept := make(map[string]map[status.Status]int, len(departments))
	for _, dep := range departments {
		byDept[dep.ID] = map[status.Status]int{}
	}

	for _, insp := range inspections {
		c := status.Classify(insp.DueDate, insp.CompletedAt, now, s.bufferDays)
		summary.Totals[c.Status]++
		if insp.DepartmentID != "" {
			if _, ok := byDept[insp.DepartmentID]; !ok {
				byDept[insp.DepartmentID] = map[status.Status]int{}
			}
			byDept[insp.DepartmentID][c.Status]++
		}
	}

	for _, dep := range departments {
		summary.Departments = append(summary.Departments, DepartmentSummary{
			DepartmentID: dep.ID,
			Name:         dep.Name,
			Counts:       byDept[dep.ID],
		})
	}

	return summary, nil
}
