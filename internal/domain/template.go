package domain

import (
	"context"
	"time"
)

// Template is a reusable checklist definition with a recurrence interval.
// Templates are immutable for the duration of a scheduling pass.
type Template struct {
	ID            string
	OrgID         string
	DepartmentID  string // empty = org-wide, any department's inspector is eligible
	Name          string
	FrequencyDays int // days between completions, always > 0
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NextDueDate computes when the next inspection for this template is due:
// frequencyDays after the last completion, or after now when the template
// has never been completed.
func (t *Template) NextDueDate(lastCompletedAt *time.Time, now time.Time) time.Time {
	base := now
	if lastCompletedAt != nil {
		base = *lastCompletedAt
	}
	return base.AddDate(0, 0, t.FrequencyDays)
}

// TemplateRepository defines data access for checklist templates
type TemplateRepository interface {
	GetByID(ctx context.Context, id string) (*Template, error)
	ListActive(ctx context.Context) ([]*Template, error)
	ListByOrg(ctx context.Context, orgID string) ([]*Template, error)
}
