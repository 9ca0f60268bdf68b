package worker

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/inspectrack/inspectrack/internal/domain"
)

var passNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

type memTemplateRepo struct {
	templates []*domain.Template
}

func (m *memTemplateRepo) GetByID(_ context.Context, id string) (*domain.Template, error) {
	for _, t := range m.templates {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, domain.ErrTemplateNotFound
}

func (m *memTemplateRepo) ListActive(context.Context) ([]*domain.Template, error) {
	var out []*domain.Template
	for _, t := range m.templates {
		if t.Active {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memTemplateRepo) ListByOrg(_ context.Context, orgID string) ([]*domain.Template, error) {
	var out []*domain.Template
	for _, t := range m.templates {
		if t.OrgID == orgID {
			out = append(out, t)
		}
	}
	return out, nil
}

type memInspectionRepo struct {
	inspections []*domain.Inspection
	// failLatest makes LatestCompleted fail for a template, to exercise
	// per-template error isolation.
	failLatest map[string]error
}

func (m *memInspectionRepo) Create(_ context.Context, i *domain.Inspection) error {
	i.CreatedAt = passNow
	i.UpdatedAt = passNow
	m.inspections = append(m.inspections, i)
	return nil
}

func (m *memInspectionRepo) GetByID(_ context.Context, id string) (*domain.Inspection, error) {
	for _, i := range m.inspections {
		if i.ID == id {
			return i, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memInspectionRepo) Update(_ context.Context, insp *domain.Inspection) error {
	for idx, i := range m.inspections {
		if i.ID == insp.ID {
			m.inspections[idx] = insp
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memInspectionRepo) ListByOrg(_ context.Context, orgID string) ([]*domain.Inspection, error) {
	var out []*domain.Inspection
	for _, i := range m.inspections {
		if i.OrgID == orgID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (m *memInspectionRepo) ListByDepartment(_ context.Context, orgID, departmentID string) ([]*domain.Inspection, error) {
	var out []*domain.Inspection
	for _, i := range m.inspections {
		if i.OrgID == orgID && i.DepartmentID == departmentID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (m *memInspectionRepo) LatestCompleted(_ context.Context, templateID string) (*domain.Inspection, error) {
	if err := m.failLatest[templateID]; err != nil {
		return nil, err
	}
	var latest *domain.Inspection
	for _, i := range m.inspections {
		if i.TemplateID != templateID || i.Status != domain.StatusCompleted || i.CompletedAt == nil {
			continue
		}
		if latest == nil || i.CompletedAt.After(*latest.CompletedAt) {
			latest = i
		}
	}
	return latest, nil
}

func (m *memInspectionRepo) HasOpen(_ context.Context, templateID string) (bool, error) {
	for _, i := range m.inspections {
		if i.TemplateID == templateID && i.Open() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memInspectionRepo) CountOpen(context.Context) (int, error) {
	n := 0
	for _, i := range m.inspections {
		if i.Open() {
			n++
		}
	}
	return n, nil
}

func (m *memInspectionRepo) CountOpenByInspector(_ context.Context, inspectorIDs []string) (map[string]int, error) {
	wanted := map[string]bool{}
	for _, id := range inspectorIDs {
		wanted[id] = true
	}
	counts := map[string]int{}
	for _, i := range m.inspections {
		if i.Open() && wanted[i.InspectorID] {
			counts[i.InspectorID]++
		}
	}
	return counts, nil
}

type memUserRepo struct {
	users []*domain.User
}

func (m *memUserRepo) Create(_ context.Context, u *domain.User) error {
	m.users = append(m.users, u)
	return nil
}

func (m *memUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memUserRepo) Update(_ context.Context, u *domain.User) error { return nil }

func (m *memUserRepo) ListByOrg(_ context.Context, orgID string) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range m.users {
		if u.OrgID == orgID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUserRepo) ListInspectors(_ context.Context, orgID, departmentID string) ([]*domain.User, error) {
	var out []*domain.User
	for _, u := range m.users {
		if u.OrgID != orgID || u.Role != domain.RoleInspector || !u.IsActive {
			continue
		}
		if departmentID != "" && u.DepartmentID != departmentID {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

type memPassLock struct {
	busy     bool
	acquires int
}

func (m *memPassLock) TryAcquire(context.Context) (func(), bool, error) {
	if m.busy {
		return nil, false, nil
	}
	m.acquires++
	return func() {}, true, nil
}

func newWorker(templates *memTemplateRepo, inspections *memInspectionRepo, users *memUserRepo, lock *memPassLock) *SchedulerWorker {
	w := NewSchedulerWorker(
		templates,
		inspections,
		users,
		lock,
		slog.New(slog.DiscardHandler),
		time.Hour,
		7,
	)
	w.now = func() time.Time { return passNow }
	return w
}

func inspector(id, orgID, deptID string) *domain.User {
	return &domain.User{ID: id, OrgID: orgID, DepartmentID: deptID, Role: domain.RoleInspector, IsActive: true}
}

func openInspection(templateID, inspectorID string) *domain.Inspection {
	return &domain.Inspection{
		ID:          "open-" + templateID + "-" + inspectorID,
		TemplateID:  templateID,
		InspectorID: inspectorID,
		OrgID:       "org-1",
		Status:      domain.StatusPending,
		DueDate:     passNow,
	}
}

func completion(templateID string, at time.Time) *domain.Inspection {
	return &domain.Inspection{
		ID:          "done-" + templateID + "-" + at.Format("20060102"),
		TemplateID:  templateID,
		InspectorID: "i-1",
		OrgID:       "org-1",
		Status:      domain.StatusCompleted,
		DueDate:     at,
		CompletedAt: &at,
	}
}

func TestSkipsTemplateWithOpenInstance(t *testing.T) {
	tpl := &domain.Template{ID: "t-1", OrgID: "org-1", FrequencyDays: 5, Active: true}
	inspections := &memInspectionRepo{inspections: []*domain.Inspection{openInspection("t-1", "i-1")}}
	users := &memUserRepo{users: []*domain.User{inspector("i-1", "org-1", "")}}

	w := newWorker(&memTemplateRepo{templates: []*domain.Template{tpl}}, inspections, users, &memPassLock{})
	w.RunPass(context.Background())

	if len(inspections.inspections) != 1 {
		t.Fatalf("expected no new inspection, have %d total", len(inspections.inspections))
	}
}

func TestDueDateComputedFromLastCompletion(t *testing.T) {
	completedAt := passNow.AddDate(0, 0, -29)
	tpl := &domain.Template{ID: "t-1", OrgID: "org-1", FrequencyDays: 30, Active: true}
	inspections := &memInspectionRepo{inspections: []*domain.Inspection{completion("t-1", completedAt)}}
	users := &memUserRepo{users: []*domain.User{inspector("i-1", "org-1", "")}}

	w := newWorker(&memTemplateRepo{templates: []*domain.Template{tpl}}, inspections, users, &memPassLock{})
	w.RunPass(context.Background())

	created := lastCreated(t, inspections)
	want := completedAt.AddDate(0, 0, 30)
	if !created.DueDate.Equal(want) {
		t.Fatalf("dueDate = %v, want %v (completion + frequency, not now + frequency)", created.DueDate, want)
	}
	if created.Status != domain.StatusPending {
		t.Fatalf("status = %s, want PENDING", created.Status)
	}
	if created.CreatedBy != domain.SourceScheduler {
		t.Fatalf("createdBy = %s, want scheduler", created.CreatedBy)
	}
}

func TestNeverCompletedTemplateDueFromNow(t *testing.T) {
	tpl := &domain.Template{ID: "t-1", OrgID: "org-1", FrequencyDays: 5, Active: true}
	inspections := &memInspectionRepo{}
	users := &memUserRepo{users: []*domain.User{inspector("i-1", "org-1", "dept-a")}}

	w := newWorker(&memTemplateRepo{templates: []*domain.Template{tpl}}, inspections, users, &memPassLock{})
	w.RunPass(context.Background())

	created := lastCreated(t, inspections)
	want := passNow.AddDate(0, 0, 5)
	if !created.DueDate.Equal(want) {
		t.Fatalf("dueDate = %v, want now + frequency = %v", created.DueDate, want)
	}
	// Org-wide template inherits the assignee's department.
	if created.DepartmentID != "dept-a" {
		t.Fatalf("departmentID = %q, want assignee's dept-a", created.DepartmentID)
	}
}

func TestLeastLoadedAssignment(t *testing.T) {
	tpl := &domain.Template{ID: "t-1", OrgID: "org-1", FrequencyDays: 1, Active: true}
	users := &memUserRepo{users: []*domain.User{
		inspector("i-1", "org-1", ""),
		inspector("i-2", "org-1", ""),
		inspector("i-3", "org-1", ""),
	}}

	// Loads: i-1 = 3, i-2 = 1, i-3 = 2. Open work on other templates only.
	inspections := &memInspectionRepo{inspections: []*domain.Inspection{
		openInspection("x-1", "i-1"), openInspection("x-2", "i-1"), openInspection("x-3", "i-1"),
		openInspection("x-4", "i-2"),
		openInspection("x-5", "i-3"), openInspection("x-6", "i-3"),
	}}

	w := newWorker(&memTemplateRepo{templates: []*domain.Template{tpl}}, inspections, users, &memPassLock{})
	w.RunPass(context.Background())

	created := lastCreated(t, inspections)
	if created.InspectorID != "i-2" {
		t.Fatalf("assigned to %s, want least-loaded i-2", created.InspectorID)
	}
}

func TestLeastLoadedTieBreaksOnQueryOrder(t *testing.T) {
	tpl := &domain.Template{ID: "t-1", OrgID: "org-1", FrequencyDays: 1, Active: true}
	users := &memUserRepo{users: []*domain.User{
		inspector("i-1", "org-1", ""),
		inspector("i-2", "org-1", ""),
		inspector("i-3", "org-1", ""),
	}}

	// Loads: i-1 = 1, i-2 = 1, i-3 = 2 — tie between i-1 and i-2.
	inspections := &memInspectionRepo{inspections: []*domain.Inspection{
		openInspection("x-1", "i-1"),
		openInspection("x-2", "i-2"),
		openInspection("x-3", "i-3"), openInspection("x-4", "i-3"),
	}}

	w := newWorker(&memTemplateRepo{templates: []*domain.Template{tpl}}, inspections, users, &memPassLock{})
	w.RunPass(context.Background())

	created := lastCreated(t, inspections)
	if created.InspectorID != "i-1" {
		t.Fatalf("assigned to %s, want first-in-order i-1 on tie", created.InspectorID)
	}
}

func TestLookaheadGate(t *testing.T) {
	tpl := &domain.Template{ID: "t-1", OrgID: "org-1", FrequencyDays: 30, Active: true}
	users := &memUserRepo{users: []*domain.User{inspector("i-1", "org-1", "")}}

	// Due 10 days out: beyond the 7-day window, nothing created.
	inspections := &memInspectionRepo{inspections: []*domain.Inspection{
		completion("t-1", passNow.AddDate(0, 0, -20)),
	}}
	w := newWorker(&memTemplateRepo{templates: []*domain.Template{tpl}}, inspections, users, &memPassLock{})
	w.RunPass(context.Background())

	if n := countCreated(inspections); n != 0 {
		t.Fatalf("created %d inspections for a due date 10 days out", n)
	}

	// Same template, due 6 days out: inside the window.
	inspections = &memInspectionRepo{inspections: []*domain.Inspection{
		completion("t-1", passNow.AddDate(0, 0, -24)),
	}}
	w = newWorker(&memTemplateRepo{templates: []*domain.Template{tpl}}, inspections, users, &memPassLock{})
	w.RunPass(context.Background())

	if n := countCreated(inspections); n != 1 {
		t.Fatalf("created %d inspections for a due date 6 days out, want 1", n)
	}
}

func TestNoEligibleInspectorSkips(t *testing.T) {
	// Department-scoped template, but the only inspector is elsewhere.
	tpl := &domain.Template{ID: "t-1", OrgID: "org-1", DepartmentID: "dept-a", FrequencyDays: 1, Active: true}
	users := &memUserRepo{users: []*domain.User{inspector("i-1", "org-1", "dept-b")}}
	inspections := &memInspectionRepo{}

	w := newWorker(&memTemplateRepo{templates: []*domain.Template{tpl}}, inspections, users, &memPassLock{})
	w.RunPass(context.Background())

	if n := countCreated(inspections); n != 0 {
		t.Fatalf("created %d inspections with no eligible inspector", n)
	}
}

func TestDepartmentScopedAssignment(t *testing.T) {
	tpl := &domain.Template{ID: "t-1", OrgID: "org-1", DepartmentID: "dept-a", FrequencyDays: 1, Active: true}
	users := &memUserRepo{users: []*domain.User{
		inspector("i-other", "org-1", "dept-b"),
		inspector("i-dept", "org-1", "dept-a"),
	}}
	inspections := &memInspectionRepo{}

	w := newWorker(&memTemplateRepo{templates: []*domain.Template{tpl}}, inspections, users, &memPassLock{})
	w.RunPass(context.Background())

	created := lastCreated(t, inspections)
	if created.InspectorID != "i-dept" {
		t.Fatalf("assigned to %s, want department inspector i-dept", created.InspectorID)
	}
	if created.DepartmentID != "dept-a" {
		t.Fatalf("departmentID = %q, want template's dept-a", created.DepartmentID)
	}
}

func TestPerTemplateErrorIsolation(t *testing.T) {
	broken := &domain.Template{ID: "t-broken", OrgID: "org-1", FrequencyDays: 1, Active: true}
	healthy := &domain.Template{ID: "t-healthy", OrgID: "org-1", FrequencyDays: 1, Active: true}
	users := &memUserRepo{users: []*domain.User{inspector("i-1", "org-1", "")}}
	inspections := &memInspectionRepo{
		failLatest: map[string]error{"t-broken": errors.New("connection reset")},
	}

	w := newWorker(&memTemplateRepo{templates: []*domain.Template{broken, healthy}}, inspections, users, &memPassLock{})
	w.RunPass(context.Background())

	if n := countCreated(inspections); n != 1 {
		t.Fatalf("created %d inspections, want 1: the broken template must not abort the pass", n)
	}
	if inspections.inspections[0].TemplateID != "t-healthy" {
		t.Fatalf("created for %s, want t-healthy", inspections.inspections[0].TemplateID)
	}
}

func TestBusyLockSkipsEntirePass(t *testing.T) {
	tpl := &domain.Template{ID: "t-1", OrgID: "org-1", FrequencyDays: 1, Active: true}
	users := &memUserRepo{users: []*domain.User{inspector("i-1", "org-1", "")}}
	inspections := &memInspectionRepo{}

	w := newWorker(&memTemplateRepo{templates: []*domain.Template{tpl}}, inspections, users, &memPassLock{busy: true})
	w.RunPass(context.Background())

	if n := countCreated(inspections); n != 0 {
		t.Fatalf("created %d inspections while another pass held the lock", n)
	}
}

func TestInactiveTemplatesIgnored(t *testing.T) {
	tpl := &domain.Template{ID: "t-1", OrgID: "org-1", FrequencyDays: 1, Active: false}
	users := &memUserRepo{users: []*domain.User{inspector("i-1", "org-1", "")}}
	inspections := &memInspectionRepo{}

	w := newWorker(&memTemplateRepo{templates: []*domain.Template{tpl}}, inspections, users, &memPassLock{})
	w.RunPass(context.Background())

	if n := countCreated(inspections); n != 0 {
		t.Fatalf("created %d inspections for an inactive template", n)
	}
}

func lastCreated(t *testing.T, repo *memInspectionRepo) *domain.Inspection {
	t.Helper()
	for i := len(repo.inspections) - 1; i >= 0; i-- {
		if repo.inspections[i].CreatedBy == domain.SourceScheduler {
			return repo.inspections[i]
		}
	}
	t.Fatal("no inspection was created by the scheduler")
	return nil
}

func countCreated(repo *memInspectionRepo) int {
	n := 0
	for _, i := range repo.inspections {
		if i.CreatedBy == domain.SourceScheduler {
			n++
		}
	}
	return n
}
