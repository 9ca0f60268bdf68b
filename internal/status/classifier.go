// Package status classifies inspections against their due dates. The
// classifier is pure: callers pass the current time explicitly so
// dashboards, list endpoints and tests all agree on the result.
package status

import (
	"math"
	"time"
)

// Status is a display classification derived from an inspection's due
// date. It is never stored; it is recomputed wherever a due date is
// rendered or aggregated.
type Status string

const (
	Completed Status = "completed"
	Overdue   Status = "overdue"
	DueSoon   Status = "due-soon"
	Pending   Status = "pending"
)

// DefaultBufferDays is the threshold separating due-soon from pending.
// Every caller must use the same value or org-wide and department-wide
// views will disagree about the same inspection.
const DefaultBufferDays = 3

// Classification is the result of classifying one inspection.
// DaysUntilDue is set for due-soon and pending, DaysOverdue for overdue;
// both are zero for completed.
type Classification struct {
	Status       Status `json:"status"`
	DaysUntilDue int    `json:"daysUntilDue,omitempty"`
	DaysOverdue  int    `json:"daysOverdue,omitempty"`
}

// Classify maps a due date and optional completion time to a Classification.
//
// A non-nil completedAt always wins, no matter how late the completion was.
// Otherwise the day difference is ceil((dueDate - now) / 24h): strictly
// negative is overdue, zero through bufferDays inclusive is due-soon (an
// inspection due today is due-soon, not overdue), and anything beyond the
// buffer is pending.
func Classify(dueDate time.Time, completedAt *time.Time, now time.Time, bufferDays int) Classification {
	if completedAt != nil {
		return Classification{Status: Completed}
	}

	diffDays := int(math.Ceil(dueDate.Sub(now).Hours() / 24))

	switch {
	case diffDays < 0:
		return Classification{Status: Overdue, DaysOverdue: -diffDays}
	case diffDays <= bufferDays:
		return Classification{Status: DueSoon, DaysUntilDue: diffDays}
	default:
		return Classification{Status: Pending, DaysUntilDue: diffDays}
	}
}
