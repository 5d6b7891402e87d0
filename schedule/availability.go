package schedule

import (
	"github.com/shopspring/decimal"
	"github.com/warp/aw-tracker/generic"
)

// MaxHoursPerDay bounds hoursPerDay.
var MaxHoursPerDay = decimal.NewFromInt(24)

// DayAvailability is one day of a schedule preview.
type DayAvailability struct {
	Date      generic.TimePoint
	IsWorking bool
	Hours     decimal.Decimal
}

// Availability is the raw (pre-absence) availability of a range.
type Availability struct {
	Period      generic.Period
	WorkingDays int
	Hours       decimal.Decimal
	Days        []DayAvailability
}

// ValidateHoursPerDay enforces 0 < hours <= 24.
func ValidateHoursPerDay(hours decimal.Decimal) error {
	if !hours.IsPositive() || hours.GreaterThan(MaxHoursPerDay) {
		return generic.InvalidConfig("hours_per_working_day", "must be in (0, 24], got %s", hours)
	}
	return nil
}

// Compute walks [start, end] once and returns working days, available hours
// and the per-day breakdown. Each working day contributes exactly
// hoursPerDay; there are no partial days.
func Compute(start, end generic.TimePoint, ws WorkSchedule, hoursPerDay decimal.Decimal) (Availability, error) {
	if err := ws.Validate(); err != nil {
		return Availability{}, err
	}
	if err := ValidateHoursPerDay(hoursPerDay); err != nil {
		return Availability{}, err
	}
	period, err := generic.NewPeriod(start, end)
	if err != nil {
		return Availability{}, err
	}

	result := Availability{
		Period: period,
		Hours:  decimal.Zero,
		Days:   make([]DayAvailability, 0, period.Len()),
	}
	err = generic.ForEachDayInRange(period, func(day generic.TimePoint) {
		d := DayAvailability{Date: day, Hours: decimal.Zero}
		if ws.IsWorkingDay(day) {
			d.IsWorking = true
			d.Hours = hoursPerDay
			result.WorkingDays++
			result.Hours = result.Hours.Add(hoursPerDay)
		}
		result.Days = append(result.Days, d)
	})
	if err != nil {
		return Availability{}, err
	}
	return result, nil
}

// AvailableHours returns the hours available in [start, end] before absence
// deductions.
func AvailableHours(start, end generic.TimePoint, ws WorkSchedule, hoursPerDay decimal.Decimal) (decimal.Decimal, error) {
	a, err := Compute(start, end, ws, hoursPerDay)
	if err != nil {
		return decimal.Zero, err
	}
	return a.Hours, nil
}

// WorkingDays counts the working days in [start, end].
func WorkingDays(start, end generic.TimePoint, ws WorkSchedule) (int, error) {
	if err := ws.Validate(); err != nil {
		return 0, err
	}
	period, err := generic.NewPeriod(start, end)
	if err != nil {
		return 0, err
	}
	return ws.countWorkingDays(period), nil
}

// countWorkingDays assumes a validated schedule and period.
func (ws WorkSchedule) countWorkingDays(p generic.Period) int {
	n := 0
	_ = generic.ForEachDayInRange(p, func(day generic.TimePoint) {
		if ws.IsWorkingDay(day) {
			n++
		}
	})
	return n
}

// WorkingDaysIn is WorkingDays for an already-validated schedule. Periods
// with End before Start have no working days.
func (ws WorkSchedule) WorkingDaysIn(p generic.Period) int {
	if p.Validate() != nil {
		return 0
	}
	return ws.countWorkingDays(p)
}
