/*
boundary.go - Monthly boundary state transition

PURPOSE:
  Absence adjustments are month-scoped. When the calendar rolls into a new
  month the adjustment must be zeroed exactly once, however many times the
  check runs (every screen focus, every scheduler tick).

STATES:
  inSync:    LastChecked == current month. Nothing to do.
  justReset: LastChecked != current month. Absence zeroed and re-scoped,
             LastChecked advanced, previous month reported for display.

IDEMPOTENCE:
  The transition advances LastChecked as part of the reset, so a second call
  in the same month observes inSync and is a no-op.

CONCURRENCY:
  The function is pure and holds no lock. Two callers reading the same stale
  state would both reset; Tracker.CheckMonthBoundary is the serialised
  caller that reads, transitions and writes under one mutex.

SEE ALSO:
  - tracker.go: CheckMonthBoundary persists the updated state
  - api/scheduler.go: Periodic invocation
*/
package efficiency

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthState is the persisted slice of settings the transition reads and
// writes.
type MonthState struct {
	LastCheckedMonth time.Month
	LastCheckedYear  int
	Absence          AbsenceAdjustment
}

// MonthTransition is the outcome of one boundary check.
type MonthTransition struct {
	WasReset bool

	// Set only when WasReset.
	PreviousMonth time.Month
	PreviousYear  int

	CurrentMonth time.Month
	CurrentYear  int

	Updated MonthState
}

// CheckAndResetIfNewMonth compares the last checked month with now's month.
// On a change it zeroes the absence hours, scopes the absence to the new
// month and records the new month as checked. It never fails.
func CheckAndResetIfNewMonth(persisted MonthState, now time.Time) MonthTransition {
	cm, cy := now.Month(), now.Year()
	t := MonthTransition{
		CurrentMonth: cm,
		CurrentYear:  cy,
		Updated:      persisted,
	}
	if persisted.LastCheckedMonth == cm && persisted.LastCheckedYear == cy {
		return t
	}

	t.WasReset = true
	t.PreviousMonth = persisted.LastCheckedMonth
	t.PreviousYear = persisted.LastCheckedYear

	t.Updated.Absence.Hours = decimal.Zero
	t.Updated.Absence.AppliesToMonth = cm
	t.Updated.Absence.AppliesToYear = cy
	t.Updated.LastCheckedMonth = cm
	t.Updated.LastCheckedYear = cy
	return t
}
