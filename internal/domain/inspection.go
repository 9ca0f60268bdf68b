package domain

import (
	"context"
	"time"
)

// InspectionStatus tracks an inspection through its lifecycle.
// Transitions are monotonic: PENDING -> IN_PROGRESS -> COMPLETED.
type InspectionStatus string

const (
	StatusPending    InspectionStatus = "PENDING"
	StatusInProgress InspectionStatus = "IN_PROGRESS"
	StatusCompleted  InspectionStatus = "COMPLETED"
)

// CreationSource records which path created an inspection.
const (
	SourceScheduler = "scheduler"
	SourceManual    = "manual"
)

// Inspection is one scheduled occurrence of a Template, assigned to a
// single inspector. An inspection is "open" until its status reaches
// COMPLETED, and at most one open inspection may exist per template.
type Inspection struct {
	ID           string
	TemplateID   string
	InspectorID  string
	OrgID        string
	DepartmentID string
	DueDate      time.Time
	Status       InspectionStatus
	CompletedAt  *time.Time
	CreatedBy    string // scheduler | manual
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Open reports whether the inspection still counts against its template's
// single-open-instance slot and its inspector's workload.
func (i *Inspection) Open() bool {
	return i.Status != StatusCompleted
}

// InspectionRepository defines data access for inspections
type InspectionRepository interface {
	Create(ctx context.Context, inspection *Inspection) error
	GetByID(ctx context.Context, id string) (*Inspection, error)
	Update(ctx context.Context, inspection *Inspection) error
	ListByOrg(ctx context.Context, orgID string) ([]*Inspection, error)
	ListByDepartment(ctx context.Context, orgID, departmentID string) ([]*Inspection, error)

	// LatestCompleted returns the most recently completed inspection for a
	// template, or nil when the template has never been completed.
	LatestCompleted(ctx context.Context, templateID string) (*Inspection, error)

	// HasOpen reports whether any non-COMPLETED inspection exists for a template.
	HasOpen(ctx context.Context, templateID string) (bool, error)

	// CountOpen returns the total number of open inspections in the system.
	CountOpen(ctx context.Context) (int, error)

	// CountOpenByInspector returns the number of open inspections assigned to
	// each of the given inspectors in a single grouped query. Inspectors with
	// no open inspections are absent from the map.
	CountOpenByInspector(ctx context.Context, inspectorIDs []string) (map[string]int, error)
}
