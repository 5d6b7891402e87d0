package generic

import (
	"strings"
	"time"
)

// =============================================================================
// PERIOD - The unit every availability and stats calculation is made over
// =============================================================================

// Period is an inclusive range of calendar days [Start, End].
//
// Examples:
//   - a single day: 2025-03-10 .. 2025-03-10
//   - a week starting Monday: 2025-03-10 .. 2025-03-16
//   - a calendar month: 2025-03-01 .. 2025-03-31
type Period struct {
	Start TimePoint
	End   TimePoint
}

// NewPeriod builds a day-granular period and rejects ranges whose end
// precedes their start.
func NewPeriod(start, end TimePoint) (Period, error) {
	p := Period{Start: start.Date(), End: end.Date()}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// Validate returns a *RangeError when End is before Start.
func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return &RangeError{Start: p.Start, End: p.End}
	}
	return nil
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	d := t.Date()
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// ContainsTime is Contains for a raw timestamp, judged by its calendar day.
func (p Period) ContainsTime(t time.Time) bool {
	return p.Contains(DateOf(t))
}

// Len returns the number of days in the period.
func (p Period) Len() int {
	if p.End.Before(p.Start) {
		return 0
	}
	return DaysBetween(p.Start, p.End) + 1
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	days := make([]TimePoint, 0, p.Len())
	_ = ForEachDayInRange(p, func(day TimePoint) {
		days = append(days, day)
	})
	return days
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// ForEachDayInRange calls fn once for every calendar day of p, in order.
// It is the only place that walks dates; availability counting and bucketing
// both go through it.
func ForEachDayInRange(p Period, fn func(day TimePoint)) error {
	if err := p.Validate(); err != nil {
		return err
	}
	for day := p.Start.Date(); day.BeforeOrEqual(p.End); day = day.AddDays(1) {
		fn(day)
	}
	return nil
}

// =============================================================================
// PERIOD KIND - Day / week / month / year bucketing
// =============================================================================

// PeriodKind selects the calendar granularity of a period.
type PeriodKind string

const (
	PeriodDay   PeriodKind = "day"
	PeriodWeek  PeriodKind = "week"
	PeriodMonth PeriodKind = "month"
	PeriodYear  PeriodKind = "year"
)

// ParsePeriodKind accepts the lower-case kind names.
func ParsePeriodKind(s string) (PeriodKind, bool) {
	switch k := PeriodKind(strings.ToLower(strings.TrimSpace(s))); k {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return k, true
	}
	return "", false
}

// PeriodConfig defines how to calculate periods for a granularity.
type PeriodConfig struct {
	Kind PeriodKind

	// For weeks: which weekday a week starts on. Zero value is Sunday, so
	// callers wanting Monday-start weeks must say so.
	WeekStart time.Weekday
}

// PeriodFor returns the period of the configured kind that contains date.
func (pc PeriodConfig) PeriodFor(date TimePoint) Period {
	date = date.Date()
	switch pc.Kind {
	case PeriodDay:
		return Period{Start: date, End: date}

	case PeriodWeek:
		start := StartOfWeek(date, pc.WeekStart)
		return Period{Start: start, End: start.AddDays(6)}

	case PeriodYear:
		return Period{Start: StartOfYear(date.Year()), End: EndOfYear(date.Year())}

	default:
		return MonthOf(date)
	}
}

// MonthOf returns the calendar month containing date.
func MonthOf(date TimePoint) Period {
	return Period{
		Start: StartOfMonth(date.Year(), date.Month()),
		End:   EndOfMonth(date.Year(), date.Month()),
	}
}
