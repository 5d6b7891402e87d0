package schedule

import "github.com/warp/aw-tracker/generic"

// SaturdayRule selects which Saturdays are working days.
type SaturdayRule string

const (
	SaturdayNever     SaturdayRule = "never"
	SaturdayEveryWeek SaturdayRule = "every_week"
	SaturdayEvery2    SaturdayRule = "every_2"
	SaturdayEvery3    SaturdayRule = "every_3"
	SaturdayEvery4    SaturdayRule = "every_4"
	SaturdayEvery5    SaturdayRule = "every_5"
	SaturdayEvery6    SaturdayRule = "every_6"
)

var saturdayIntervals = map[SaturdayRule]int{
	SaturdayNever:     0,
	SaturdayEveryWeek: 1,
	SaturdayEvery2:    2,
	SaturdayEvery3:    3,
	SaturdayEvery4:    4,
	SaturdayEvery5:    5,
	SaturdayEvery6:    6,
}

// Valid reports whether r is a known rule.
func (r SaturdayRule) Valid() bool {
	_, ok := saturdayIntervals[r]
	return ok
}

// Interval is the cycle length in weeks; 0 for SaturdayNever.
func (r SaturdayRule) Interval() int {
	return saturdayIntervals[r]
}

// Includes reports whether the Saturday candidate is a working Saturday when
// the cycle is anchored at reference. A reference after the candidate never
// matches.
func (r SaturdayRule) Includes(reference, candidate generic.TimePoint) bool {
	n := r.Interval()
	if n == 0 || reference.IsZero() {
		return false
	}
	days := generic.DaysBetween(reference, candidate)
	if days < 0 {
		return false
	}
	return (days/7)%n == 0
}
