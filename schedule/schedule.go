/*
Package schedule describes when a technician works and how many hours that
makes available in a date range.

PURPOSE:
  A WorkSchedule says which weekdays are worked, the working and lunch hours,
  and which Saturdays count. The availability functions in availability.go
  turn a schedule plus a date range into working days and available hours,
  before any absence deduction.

SATURDAYS:
  Saturday is handled by SaturdayRule rather than WorkDays so a technician can
  work every second (third, ...) Saturday. The cycle is anchored to
  ReferenceSaturday: a Saturday counts when the whole weeks elapsed since the
  reference are a multiple of the rule's interval.

SEE ALSO:
  - saturday.go: SaturdayRule evaluation
  - availability.go: AvailableHours / WorkingDays
  - efficiency/stats.go: Consumes AvailableHours for monthly stats
*/
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/aw-tracker/generic"
)

// =============================================================================
// CLOCK TIME - Time of day
// =============================================================================

// ClockTime is a time of day with minute precision.
type ClockTime struct {
	Hour   int
	Minute int
}

// ParseClockTime parses "HH:MM" in 24-hour form.
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return ClockTime{}, fmt.Errorf("parse clock time %q: %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// MustClockTime parses s and panics on error. Use for constants and tests.
func MustClockTime(s string) ClockTime {
	c, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Minutes is the number of minutes since midnight.
func (c ClockTime) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c ClockTime) Before(o ClockTime) bool {
	return c.Minutes() < o.Minutes()
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// =============================================================================
// WORK SCHEDULE
// =============================================================================

// WorkSchedule is the technician's regular working pattern.
type WorkSchedule struct {
	// WorkDays are the regular working weekdays. Saturday may be listed to
	// make every Saturday a working day regardless of SaturdayRule.
	WorkDays map[time.Weekday]bool

	WorkStart  ClockTime
	WorkEnd    ClockTime
	LunchStart ClockTime
	LunchEnd   ClockTime

	SaturdayRule SaturdayRule

	// ReferenceSaturday anchors the SaturdayRule cycle. Required unless the
	// rule is SaturdayNever.
	ReferenceSaturday generic.TimePoint
}

// DefaultWorkSchedule is Monday to Friday, 08:00-17:00 with a half-hour
// lunch, no Saturdays.
func DefaultWorkSchedule() WorkSchedule {
	return WorkSchedule{
		WorkDays:     Weekdays(time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday),
		WorkStart:    ClockTime{Hour: 8},
		WorkEnd:      ClockTime{Hour: 17},
		LunchStart:   ClockTime{Hour: 12, Minute: 30},
		LunchEnd:     ClockTime{Hour: 13},
		SaturdayRule: SaturdayNever,
	}
}

// Weekdays builds a WorkDays set.
func Weekdays(days ...time.Weekday) map[time.Weekday]bool {
	set := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		set[d] = true
	}
	return set
}

// SortedWorkDays returns WorkDays in Sunday-first order.
func (ws WorkSchedule) SortedWorkDays() []time.Weekday {
	days := make([]time.Weekday, 0, len(ws.WorkDays))
	for d, on := range ws.WorkDays {
		if on {
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// DerivedHoursPerDay is the working span minus lunch.
func (ws WorkSchedule) DerivedHoursPerDay() decimal.Decimal {
	minutes := ws.WorkEnd.Minutes() - ws.WorkStart.Minutes()
	minutes -= ws.LunchEnd.Minutes() - ws.LunchStart.Minutes()
	if minutes < 0 {
		minutes = 0
	}
	return decimal.NewFromInt(int64(minutes)).Div(generic.Sixty)
}

// Validate checks the schedule invariants.
func (ws WorkSchedule) Validate() error {
	if !ws.WorkStart.Before(ws.WorkEnd) {
		return generic.InvalidConfig("work_hours", "start %s must be before end %s", ws.WorkStart, ws.WorkEnd)
	}
	if ws.LunchEnd.Before(ws.LunchStart) {
		return generic.InvalidConfig("lunch_hours", "start %s must not be after end %s", ws.LunchStart, ws.LunchEnd)
	}
	if ws.LunchStart.Before(ws.WorkStart) || ws.WorkEnd.Before(ws.LunchEnd) {
		return generic.InvalidConfig("lunch_hours", "lunch %s-%s must fall within work hours", ws.LunchStart, ws.LunchEnd)
	}
	if !ws.SaturdayRule.Valid() {
		return generic.InvalidConfig("saturday_rule", "unknown rule %q", ws.SaturdayRule)
	}
	if ws.SaturdayRule != SaturdayNever {
		if ws.ReferenceSaturday.IsZero() {
			return generic.InvalidConfig("reference_saturday", "required for rule %q", ws.SaturdayRule)
		}
		if !ws.ReferenceSaturday.IsSaturday() {
			return generic.InvalidConfig("reference_saturday", "%s is a %s", ws.ReferenceSaturday, ws.ReferenceSaturday.Weekday())
		}
	}
	return nil
}

// IsWorkingDay reports whether day is worked: a listed weekday, or a
// Saturday selected by the Saturday rule.
func (ws WorkSchedule) IsWorkingDay(day generic.TimePoint) bool {
	if ws.WorkDays[day.Weekday()] {
		return true
	}
	return day.IsSaturday() && ws.SaturdayRule.Includes(ws.ReferenceSaturday, day)
}
