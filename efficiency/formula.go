package efficiency

import (
	"github.com/shopspring/decimal"
	"github.com/warp/aw-tracker/generic"
	"github.com/warp/aw-tracker/schedule"
)

// FormulaConfig holds the tunable constants of the accounting formulas. It is
// read once per calculation and never modified by the engine.
type FormulaConfig struct {
	AWToMinutes        decimal.Decimal
	HoursPerWorkingDay decimal.Decimal
	TargetAWsPerHour   decimal.Decimal

	EfficiencyGreenThreshold  int
	EfficiencyYellowThreshold int
}

// DefaultFormula: 1 AW = 5 minutes, 8.5h days, 12 AW/hour, green from 65%,
// yellow from 31%.
func DefaultFormula() FormulaConfig {
	return FormulaConfig{
		AWToMinutes:               decimal.NewFromInt(5),
		HoursPerWorkingDay:        decimal.RequireFromString("8.5"),
		TargetAWsPerHour:          decimal.NewFromInt(12),
		EfficiencyGreenThreshold:  65,
		EfficiencyYellowThreshold: 31,
	}
}

// Validate checks every formula invariant.
func (f FormulaConfig) Validate() error {
	if !f.AWToMinutes.IsPositive() {
		return generic.InvalidConfig("aw_to_minutes", "must be positive, got %s", f.AWToMinutes)
	}
	if err := schedule.ValidateHoursPerDay(f.HoursPerWorkingDay); err != nil {
		return err
	}
	if !f.TargetAWsPerHour.IsPositive() {
		return generic.InvalidConfig("target_aws_per_hour", "must be positive, got %s", f.TargetAWsPerHour)
	}
	g, y := f.EfficiencyGreenThreshold, f.EfficiencyYellowThreshold
	if g < 0 || g > 100 {
		return generic.InvalidConfig("efficiency_green_threshold", "must be within 0-100, got %d", g)
	}
	if y < 0 || y > 100 {
		return generic.InvalidConfig("efficiency_yellow_threshold", "must be within 0-100, got %d", y)
	}
	if y >= g {
		return generic.InvalidConfig("efficiency_yellow_threshold", "%d must be below green threshold %d", y, g)
	}
	return nil
}

// ResolveHoursPerDay returns f's hours per working day when set, otherwise
// the hours ws yields once lunch is taken out.
func ResolveHoursPerDay(f FormulaConfig, ws schedule.WorkSchedule) decimal.Decimal {
	if f.HoursPerWorkingDay.IsPositive() {
		return f.HoursPerWorkingDay
	}
	return ws.DerivedHoursPerDay()
}

// SoldHours converts an AW total to hours.
func (f FormulaConfig) SoldHours(aws int) decimal.Decimal {
	return decimal.NewFromInt(int64(aws)).Mul(f.AWToMinutes).Div(generic.Sixty)
}

// ExpectedAWs is how many AWs the given hours should yield at the target rate.
func (f FormulaConfig) ExpectedAWs(hours decimal.Decimal) decimal.Decimal {
	return hours.Mul(f.TargetAWsPerHour)
}

// Classify maps an efficiency percentage to its band.
func (f FormulaConfig) Classify(efficiency int) Status {
	switch {
	case efficiency >= f.EfficiencyGreenThreshold:
		return StatusGreen
	case efficiency >= f.EfficiencyYellowThreshold:
		return StatusYellow
	default:
		return StatusRed
	}
}

// Efficiency is round(sold / available × 100), or 0 without available hours.
// Not clamped: working ahead of schedule reads above 100.
func Efficiency(sold, available decimal.Decimal) int {
	if !available.IsPositive() {
		return 0
	}
	return int(generic.Percentage(sold, available).Round(0).IntPart())
}

// Utilization is sold / target × 100 clamped to [0, 100], or 0 without a
// target.
func Utilization(sold, target decimal.Decimal) decimal.Decimal {
	if !target.IsPositive() {
		return decimal.Zero
	}
	return generic.Clamp(generic.Percentage(sold, target), decimal.Zero, generic.Hundred)
}
