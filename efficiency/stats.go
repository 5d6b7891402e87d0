/*
stats.go - Monthly time and efficiency accounting

PURPOSE:
  Turns the job ledger plus the formula and work schedule into the month's
  sold hours, available hours, utilisation and efficiency. This is the
  figure the dashboard shows: "how am I doing this month, as of today?"

KEY INSIGHT:
  Sold hours count every job logged in the month, but available hours only
  run from the 1st up to the as-of day. Mid-month, efficiency compares what
  has been sold against the time that has actually elapsed.

FORMULAS:
  SoldHours    = ΣAW × AWToMinutes / 60
  Available    = working days in [1st, min(asOf, month end)] × HoursPerWorkingDay
  Utilization  = clamp(Sold / EffectiveTarget × 100, 0, 100)
  Efficiency   = round(Sold / Available × 100)           (unclamped)

ABSENCE:
  An absence adjustment scoped to the as-of month is subtracted from exactly
  one of EffectiveTarget or Available, chosen by its DeductionTarget. Either
  result is floored at zero.

EXAMPLE:
  1000 AW at 5 min/AW, 20 working days of 8.5h:
    Sold = 83.33h, Available = 170h, Efficiency = 49% (yellow by default)

SEE ALSO:
  - aggregate.go: Day/week/month/year buckets built from the same pieces
  - schedule/availability.go: Working-day counting
*/
package efficiency

import (
	"github.com/shopspring/decimal"
	"github.com/warp/aw-tracker/generic"
	"github.com/warp/aw-tracker/schedule"
)

// StatsInput is everything ComputeStats needs. Absence may be nil.
type StatsInput struct {
	Jobs        []Job
	AsOf        generic.TimePoint
	Formula     FormulaConfig
	Schedule    schedule.WorkSchedule
	TargetHours decimal.Decimal
	Absence     *AbsenceAdjustment
}

// ComputeStats computes the monthly figures for the calendar month containing
// in.AsOf. It never fails on an empty ledger; invalid configuration fails
// before any work is done.
func ComputeStats(in StatsInput) (MonthlyStats, error) {
	if err := in.Formula.Validate(); err != nil {
		return MonthlyStats{}, err
	}
	if err := in.Schedule.Validate(); err != nil {
		return MonthlyStats{}, err
	}
	if in.TargetHours.IsNegative() {
		return MonthlyStats{}, generic.InvalidConfig("target_hours", "must not be negative, got %s", in.TargetHours)
	}
	if in.Absence != nil {
		if err := in.Absence.Validate(); err != nil {
			return MonthlyStats{}, err
		}
	}

	asOf := in.AsOf.Date()
	month := generic.MonthOf(asOf)

	// 1-2. Jobs in the month and their sold hours
	jobs := JobsIn(in.Jobs, month)
	totalAWs := 0
	for _, j := range jobs {
		totalAWs += j.AWValue
	}
	sold := in.Formula.SoldHours(totalAWs)

	// 3. Raw availability from the 1st up to the as-of day
	avail, err := schedule.Compute(month.Start, generic.MinTimePoint(asOf, month.End), in.Schedule, in.Formula.HoursPerWorkingDay)
	if err != nil {
		return MonthlyStats{}, err
	}

	// 4. Absence reduces exactly one side
	available := avail.Hours
	target := in.TargetHours
	absence := in.Absence.ActiveHours(asOf)
	var absenceTarget DeductionTarget
	if absence.IsPositive() {
		absenceTarget = in.Absence.DeductionTarget
		switch absenceTarget {
		case DeductFromAvailable:
			available = generic.NonNegative(available.Sub(absence))
		case DeductFromTarget:
			target = generic.NonNegative(target.Sub(absence))
		}
	}

	// 5-7. Ratios and band
	efficiency := Efficiency(sold, available)

	return MonthlyStats{
		Period:                month,
		AsOf:                  asOf,
		TotalJobs:             len(jobs),
		TotalAWs:              totalAWs,
		TotalSoldHours:        sold,
		TotalAvailableHours:   available,
		TargetHours:           in.TargetHours,
		UtilizationPercentage: Utilization(sold, target),
		EfficiencyPercentage:  efficiency,
		Status:                in.Formula.Classify(efficiency),
		WorkingDays:           avail.WorkingDays,
		RawAvailableHours:     avail.Hours,
		EffectiveTargetHours:  target,
		AbsenceHoursApplied:   absence,
		AbsenceTarget:         absenceTarget,
		ExpectedAWs:           in.Formula.ExpectedAWs(available),
	}, nil
}
