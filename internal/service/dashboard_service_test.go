package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/inspectrack/inspectrack/internal/domain"
	"github.com/inspectrack/inspectrack/internal/status"
)

type fakeOrgStore struct {
	departments map[string][]*domain.Department
}

func (f *fakeOrgStore) GetByID(_ context.Context, id string) (*domain.Organization, error) {
	return &domain.Organization{ID: id}, nil
}

func (f *fakeOrgStore) List(_ context.Context) ([]*domain.Organization, error) {
	return nil, nil
}

func (f *fakeOrgStore) ListDepartments(_ context.Context, orgID string) ([]*domain.Department, error) {
	return f.departments[orgID], nil
}

type fakeSummaryCache struct {
	data     map[string]string
	getErr   error
	getCalls int
	setCalls int
}

func newFakeSummaryCache() *fakeSummaryCache {
	return &fakeSummaryCache{data: map[string]string{}}
}

func (f *fakeSummaryCache) Get(_ context.Context, key string) (string, error) {
	f.getCalls++
	if f.getErr != nil {
		return "", f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeSummaryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	f.setCalls++
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	return nil
}

func (f *fakeSummaryCache) Delete(_ context.Context, key string) error {
	delete(f.data, key)
	return nil
}

func newDashboardService(remote SummaryCache) (*DashboardService, *fakeInspectionStore, *fakeOrgStore) {
	inspections := newFakeInspectionStore()
	orgs := &fakeOrgStore{departments: map[string][]*domain.Department{
		"org-1": {
			{ID: "dept-1", OrgID: "org-1", Name: "Facilities"},
			{ID: "dept-2", OrgID: "org-1", Name: "Kitchen"},
		},
	}}

	svc := NewDashboardService(inspections, orgs, remote, slog.New(slog.DiscardHandler), status.DefaultBufferDays, 30*time.Second)
	svc.now = func() time.Time { return svcNow }
	return svc, inspections, orgs
}

func seedDashboardInspections(inspections *fakeInspectionStore) {
	completed := svcNow.AddDate(0, 0, -3)
	inspections.inspections["a"] = &domain.Inspection{
		ID: "a", TemplateID: "tpl-1", OrgID: "org-1", DepartmentID: "dept-1",
		Status: domain.StatusPending, DueDate: svcNow.AddDate(0, 0, -4),
	}
	inspections.inspections["b"] = &domain.Inspection{
		ID: "b", TemplateID: "tpl-2", OrgID: "org-1", DepartmentID: "dept-1",
		Status: domain.StatusInProgress, DueDate: svcNow.AddDate(0, 0, 1),
	}
	inspections.inspections["c"] = &domain.Inspection{
		ID: "c", TemplateID: "tpl-3", OrgID: "org-1", DepartmentID: "",
		Status: domain.StatusCompleted, DueDate: svcNow.AddDate(0, 0, -5), CompletedAt: &completed,
	}
	inspections.inspections["d"] = &domain.Inspection{
		ID: "d", TemplateID: "tpl-4", OrgID: "org-1", DepartmentID: "dept-1",
		Status: domain.StatusPending, DueDate: svcNow.AddDate(0, 0, 20),
	}
}

func TestSummaryAggregation(t *testing.T) {
	svc, inspections, _ := newDashboardService(nil)
	seedDashboardInspections(inspections)

	summary, err := svc.Summary(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	wantTotals := map[status.Status]int{
		status.Overdue:   1,
		status.DueSoon:   1,
		status.Completed: 1,
		status.Pending:   1,
	}
	for s, n := range wantTotals {
		if summary.Totals[s] != n {
			t.Errorf("totals[%s]: expected %d, got %d", s, n, summary.Totals[s])
		}
	}

	if len(summary.Departments) != 2 {
		t.Fatalf("expected 2 departments, got %d", len(summary.Departments))
	}
	var dept1, dept2 *DepartmentSummary
	for i := range summary.Departments {
		switch summary.Departments[i].DepartmentID {
		case "dept-1":
			dept1 = &summary.Departments[i]
		case "dept-2":
			dept2 = &summary.Departments[i]
		}
	}
	if dept1 == nil || dept1.Counts[status.Overdue] != 1 || dept1.Counts[status.DueSoon] != 1 || dept1.Counts[status.Pending] != 1 {
		t.Errorf("unexpected dept-1 counts: %+v", dept1)
	}
	// Departments without inspections still appear, with empty counts.
	if dept2 == nil || len(dept2.Counts) != 0 {
		t.Errorf("expected dept-2 present with no counts, got %+v", dept2)
	}
}

func TestSummaryServedFromRemoteCache(t *testing.T) {
	remote := newFakeSummaryCache()
	svc, inspections, _ := newDashboardService(remote)

	cached := &Summary{
		OrgID:       "org-1",
		Totals:      map[status.Status]int{status.Pending: 7},
		GeneratedAt: svcNow.Add(-10 * time.Second),
	}
	payload, _ := json.Marshal(cached)
	remote.data[summaryKey("org-1")] = string(payload)

	// The repository would fail loudly if consulted; a cache hit must not
	// touch it.
	seedDashboardInspections(inspections)

	summary, err := svc.Summary(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.Totals[status.Pending] != 7 {
		t.Errorf("expected cached totals, got %+v", summary.Totals)
	}
}

func TestSummaryComputesOnCacheMiss(t *testing.T) {
	remote := newFakeSummaryCache()
	svc, inspections, _ := newDashboardService(remote)
	seedDashboardInspections(inspections)

	summary, err := svc.Summary(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if summary.Totals[status.Overdue] != 1 {
		t.Errorf("expected computed summary, got %+v", summary.Totals)
	}
	if remote.setCalls != 1 {
		t.Errorf("expected summary written back to cache, setCalls=%d", remote.setCalls)
	}
}

func TestSummaryFallsBackWhenCacheFails(t *testing.T) {
	remote := newFakeSummaryCache()
	remote.getErr = errors.New("connection refused")
	svc, inspections, _ := newDashboardService(remote)
	seedDashboardInspections(inspections)

	summary, err := svc.Summary(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("Summary should compute despite cache failure: %v", err)
	}
	if summary.Totals[status.Overdue] != 1 {
		t.Errorf("expected computed summary, got %+v", summary.Totals)
	}
}

func TestSummaryLocalCacheAvoidsRecompute(t *testing.T) {
	remote := newFakeSummaryCache()
	svc, inspections, _ := newDashboardService(remote)
	seedDashboardInspections(inspections)

	if _, err := svc.Summary(context.Background(), "org-1"); err != nil {
		t.Fatalf("first Summary failed: %v", err)
	}
	if _, err := svc.Summary(context.Background(), "org-1"); err != nil {
		t.Fatalf("second Summary failed: %v", err)
	}
	if remote.getCalls != 1 {
		t.Errorf("expected second call served locally, remote getCalls=%d", remote.getCalls)
	}
}

func TestInvalidateDropsCaches(t *testing.T) {
	remote := newFakeSummaryCache()
	svc, inspections, _ := newDashboardService(remote)
	seedDashboardInspections(inspections)

	if _, err := svc.Summary(context.Background(), "org-1"); err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	svc.Invalidate(context.Background(), "org-1")

	if _, ok := remote.data[summaryKey("org-1")]; ok {
		t.Error("expected remote cache entry removed")
	}

	// Next call recomputes rather than serving the stale local copy.
	before := remote.setCalls
	if _, err := svc.Summary(context.Background(), "org-1"); err != nil {
		t.Fatalf("Summary after invalidate failed: %v", err)
	}
	if remote.setCalls != before+1 {
		t.Errorf("expected recompute and cache write after invalidate, setCalls=%d", remote.setCalls)
	}
}
