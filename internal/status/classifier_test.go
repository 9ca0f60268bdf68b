package status

import (
	"testing"
	"time"
)

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func days(n int) time.Time {
	return now.Add(time.Duration(n) * 24 * time.Hour)
}

func TestClassifyBuffers(t *testing.T) {
	tests := []struct {
		name         string
		dueDate      time.Time
		wantStatus   Status
		wantUntilDue int
		wantOverdue  int
	}{
		{"due today", days(0), DueSoon, 0, 0},
		{"due tomorrow", days(1), DueSoon, 1, 0},
		{"due in two days", days(2), DueSoon, 2, 0},
		{"due on buffer edge", days(3), DueSoon, 3, 0},
		{"due just past buffer", days(4), Pending, 4, 0},
		{"due far out", days(30), Pending, 30, 0},
		{"one day late", days(-1), Overdue, 0, 1},
		{"a week late", days(-7), Overdue, 0, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.dueDate, nil, now, DefaultBufferDays)
			if got.Status != tt.wantStatus {
				t.Fatalf("status = %s, want %s", got.Status, tt.wantStatus)
			}
			if got.DaysUntilDue != tt.wantUntilDue {
				t.Fatalf("daysUntilDue = %d, want %d", got.DaysUntilDue, tt.wantUntilDue)
			}
			if got.DaysOverdue != tt.wantOverdue {
				t.Fatalf("daysOverdue = %d, want %d", got.DaysOverdue, tt.wantOverdue)
			}
		})
	}
}

func TestClassifyPartialDaysRoundUp(t *testing.T) {
	// 12 hours out rounds up to one day.
	got := Classify(now.Add(12*time.Hour), nil, now, DefaultBufferDays)
	if got.Status != DueSoon || got.DaysUntilDue != 1 {
		t.Fatalf("got %+v, want due-soon in 1 day", got)
	}

	// One hour past due is still day zero, not overdue.
	got = Classify(now.Add(-time.Hour), nil, now, DefaultBufferDays)
	if got.Status != DueSoon || got.DaysUntilDue != 0 {
		t.Fatalf("got %+v, want due-soon day 0", got)
	}
}

func TestClassifyCompletionDominates(t *testing.T) {
	completed := now.Add(-time.Hour)

	// Even a due date a year in the past classifies as completed.
	got := Classify(days(-365), &completed, now, DefaultBufferDays)
	if got.Status != Completed {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if got.DaysUntilDue != 0 || got.DaysOverdue != 0 {
		t.Fatalf("completed classification carries day counts: %+v", got)
	}
}

func TestClassifyCustomBuffer(t *testing.T) {
	got := Classify(days(5), nil, now, 7)
	if got.Status != DueSoon {
		t.Fatalf("status = %s, want due-soon with widened buffer", got.Status)
	}

	got = Classify(days(5), nil, now, 1)
	if got.Status != Pending {
		t.Fatalf("status = %s, want pending with narrowed buffer", got.Status)
	}
}
