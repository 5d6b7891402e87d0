/*
stats_test.go - Monthly accounting behaviour

Covers:
- Month boundary filtering of jobs by DateCreated
- The 1000 AW / 20 working day worked example
- Unclamped efficiency, clamped utilisation
- Absence deduction to either side and its scoping
*/
package efficiency_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/aw-tracker/efficiency"
	"github.com/warp/aw-tracker/generic"
	"github.com/warp/aw-tracker/schedule"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

func day(y int, m time.Month, d int) generic.TimePoint {
	return generic.NewTimePoint(y, m, d)
}

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func job(t *testing.T, wip string, aw int, created time.Time) efficiency.Job {
	t.Helper()
	j, err := efficiency.NewJob(wip, "ab12 cde", aw, "", created)
	require.NoError(t, err)
	return j
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func defaultInput(jobs []efficiency.Job, asOf generic.TimePoint) efficiency.StatsInput {
	return efficiency.StatsInput{
		Jobs:        jobs,
		AsOf:        asOf,
		Formula:     efficiency.DefaultFormula(),
		Schedule:    schedule.DefaultWorkSchedule(),
		TargetHours: efficiency.DefaultMonthlyTargetHours,
	}
}

// twentyDaysOf50AW spreads 1000 AW over the 20 working days of
// 2025-03-01..2025-03-28.
func twentyDaysOf50AW(t *testing.T) []efficiency.Job {
	var jobs []efficiency.Job
	ws := schedule.DefaultWorkSchedule()
	for d := day(2025, 3, 1); d.BeforeOrEqual(day(2025, 3, 28)); d = d.AddDays(1) {
		if ws.IsWorkingDay(d) {
			jobs = append(jobs, job(t, "WIP-"+d.String(), 50, at(2025, 3, d.Day(), 10, 0)))
		}
	}
	require.Len(t, jobs, 20)
	return jobs
}

// =============================================================================
// WORKED EXAMPLE
// =============================================================================

func TestComputeStats_WorkedExample(t *testing.T) {
	// GIVEN: 1000 AW over 20 working days of 8.5h
	jobs := twentyDaysOf50AW(t)

	// WHEN: stats as of Friday the 28th
	stats, err := efficiency.ComputeStats(defaultInput(jobs, day(2025, 3, 28)))

	// THEN: 83.33h sold, 170h available, 49% efficiency
	require.NoError(t, err)
	assert.Equal(t, 20, stats.TotalJobs)
	assert.Equal(t, 1000, stats.TotalAWs)
	assert.Equal(t, "83.33", stats.TotalSoldHours.StringFixed(2))
	assert.True(t, stats.TotalAvailableHours.Equal(decimal.NewFromInt(170)), "available %s", stats.TotalAvailableHours)
	assert.Equal(t, 20, stats.WorkingDays)
	assert.Equal(t, 49, stats.EfficiencyPercentage)
	assert.Equal(t, efficiency.StatusYellow, stats.Status)
	assert.Equal(t, "46.30", stats.UtilizationPercentage.StringFixed(2))
	assert.True(t, stats.ExpectedAWs.Equal(decimal.NewFromInt(2040)))
}

func TestComputeStats_AvailabilityStopsAtAsOf(t *testing.T) {
	// GIVEN: the same ledger viewed on the 14th
	jobs := twentyDaysOf50AW(t)

	stats, err := efficiency.ComputeStats(defaultInput(jobs, day(2025, 3, 14)))

	// THEN: all month jobs count, availability covers only the first 10 working days
	require.NoError(t, err)
	assert.Equal(t, 1000, stats.TotalAWs)
	assert.Equal(t, 10, stats.WorkingDays)
	assert.True(t, stats.TotalAvailableHours.Equal(decimal.NewFromInt(85)))
	assert.Equal(t, "2025-03-01", stats.Period.Start.String())
	assert.Equal(t, "2025-03-31", stats.Period.End.String())
}

// =============================================================================
// MONTH BOUNDARY FILTERING
// =============================================================================

func TestComputeStats_MonthBoundary(t *testing.T) {
	// GIVEN: one job in the last minute of March, one in the first of April
	lastOfMarch := job(t, "WIP-1", 10, at(2025, 3, 31, 23, 59))
	firstOfApril := job(t, "WIP-2", 20, at(2025, 4, 1, 0, 0))
	jobs := []efficiency.Job{lastOfMarch, firstOfApril}

	// WHEN
	march, err := efficiency.ComputeStats(defaultInput(jobs, day(2025, 3, 31)))
	require.NoError(t, err)
	april, err := efficiency.ComputeStats(defaultInput(jobs, day(2025, 4, 1)))
	require.NoError(t, err)

	// THEN: each job is counted in exactly one month
	assert.Equal(t, 1, march.TotalJobs)
	assert.Equal(t, 10, march.TotalAWs)
	assert.Equal(t, 1, april.TotalJobs)
	assert.Equal(t, 20, april.TotalAWs)
}

// =============================================================================
// RATIOS
// =============================================================================

func TestComputeStats_EfficiencyNotClamped(t *testing.T) {
	// GIVEN: Monday 3rd is the only working day so far (8.5h), 17h sold
	jobs := []efficiency.Job{job(t, "WIP-1", 204, at(2025, 3, 3, 9, 0))}

	stats, err := efficiency.ComputeStats(defaultInput(jobs, day(2025, 3, 3)))

	require.NoError(t, err)
	assert.Equal(t, 200, stats.EfficiencyPercentage)
	assert.Equal(t, efficiency.StatusGreen, stats.Status)
}

func TestComputeStats_UtilizationClamped(t *testing.T) {
	in := defaultInput([]efficiency.Job{job(t, "WIP-1", 204, at(2025, 3, 3, 9, 0))}, day(2025, 3, 3))
	in.TargetHours = decimal.NewFromInt(10)

	stats, err := efficiency.ComputeStats(in)

	require.NoError(t, err)
	assert.True(t, stats.UtilizationPercentage.Equal(generic.Hundred), "got %s", stats.UtilizationPercentage)
}

func TestComputeStats_NoWorkingDaysYet(t *testing.T) {
	// GIVEN: March 1st 2025 is a Saturday, rule never
	stats, err := efficiency.ComputeStats(defaultInput([]efficiency.Job{job(t, "WIP-1", 12, at(2025, 3, 1, 9, 0))}, day(2025, 3, 1)))

	require.NoError(t, err)
	assert.Equal(t, 0, stats.WorkingDays)
	assert.True(t, stats.TotalAvailableHours.IsZero())
	assert.Equal(t, 0, stats.EfficiencyPercentage)
	assert.Equal(t, efficiency.StatusRed, stats.Status)
}

func TestComputeStats_ZeroTarget(t *testing.T) {
	in := defaultInput(nil, day(2025, 3, 14))
	in.TargetHours = decimal.Zero

	stats, err := efficiency.ComputeStats(in)

	require.NoError(t, err)
	assert.True(t, stats.UtilizationPercentage.IsZero())
}

func TestComputeStats_EmptyLedger(t *testing.T) {
	stats, err := efficiency.ComputeStats(defaultInput(nil, day(2025, 3, 14)))

	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalJobs)
	assert.True(t, stats.TotalSoldHours.IsZero())
	assert.Equal(t, 0, stats.EfficiencyPercentage)
}

func TestComputeStats_InvalidConfiguration(t *testing.T) {
	in := defaultInput(nil, day(2025, 3, 14))
	in.Formula.HoursPerWorkingDay = decimal.Zero

	_, err := efficiency.ComputeStats(in)
	assert.ErrorIs(t, err, generic.ErrInvalidConfiguration)

	in = defaultInput(nil, day(2025, 3, 14))
	in.TargetHours = decimal.NewFromInt(-1)
	_, err = efficiency.ComputeStats(in)
	assert.ErrorIs(t, err, generic.ErrInvalidConfiguration)
}

// =============================================================================
// ABSENCE
// =============================================================================

func TestComputeStats_AbsenceFromAvailable(t *testing.T) {
	// GIVEN: 17h absence in March deducted from available hours
	in := defaultInput(twentyDaysOf50AW(t), day(2025, 3, 28))
	in.Absence = &efficiency.AbsenceAdjustment{
		Hours:           decimal.NewFromInt(17),
		AppliesToMonth:  time.March,
		AppliesToYear:   2025,
		DeductionTarget: efficiency.DeductFromAvailable,
	}

	stats, err := efficiency.ComputeStats(in)

	// THEN: available drops by exactly 17, target untouched
	require.NoError(t, err)
	assert.True(t, stats.RawAvailableHours.Equal(decimal.NewFromInt(170)))
	assert.True(t, stats.TotalAvailableHours.Equal(decimal.NewFromInt(153)), "got %s", stats.TotalAvailableHours)
	assert.True(t, stats.EffectiveTargetHours.Equal(efficiency.DefaultMonthlyTargetHours))
	assert.True(t, stats.AbsenceHoursApplied.Equal(decimal.NewFromInt(17)))
	assert.Equal(t, efficiency.DeductFromAvailable, stats.AbsenceTarget)
	assert.Equal(t, 54, stats.EfficiencyPercentage)
}

func TestComputeStats_AbsenceFromTarget(t *testing.T) {
	in := defaultInput(twentyDaysOf50AW(t), day(2025, 3, 28))
	in.Absence = &efficiency.AbsenceAdjustment{
		Hours:           decimal.NewFromInt(17),
		AppliesToMonth:  time.March,
		AppliesToYear:   2025,
		DeductionTarget: efficiency.DeductFromTarget,
	}

	stats, err := efficiency.ComputeStats(in)

	require.NoError(t, err)
	assert.True(t, stats.TotalAvailableHours.Equal(decimal.NewFromInt(170)))
	assert.True(t, stats.EffectiveTargetHours.Equal(decimal.NewFromInt(163)))
	assert.True(t, stats.TargetHours.Equal(efficiency.DefaultMonthlyTargetHours))
	assert.Equal(t, 49, stats.EfficiencyPercentage)
}

func TestComputeStats_AbsenceFlooredAtZero(t *testing.T) {
	in := defaultInput(nil, day(2025, 3, 3))
	in.Absence = &efficiency.AbsenceAdjustment{
		Hours:           decimal.NewFromInt(40),
		AppliesToMonth:  time.March,
		AppliesToYear:   2025,
		DeductionTarget: efficiency.DeductFromAvailable,
	}

	stats, err := efficiency.ComputeStats(in)

	require.NoError(t, err)
	assert.True(t, stats.TotalAvailableHours.IsZero())
}

func TestComputeStats_AbsenceOtherMonthIgnored(t *testing.T) {
	in := defaultInput(twentyDaysOf50AW(t), day(2025, 3, 28))
	in.Absence = &efficiency.AbsenceAdjustment{
		Hours:           decimal.NewFromInt(17),
		AppliesToMonth:  time.February,
		AppliesToYear:   2025,
		DeductionTarget: efficiency.DeductFromAvailable,
	}

	stats, err := efficiency.ComputeStats(in)

	require.NoError(t, err)
	assert.True(t, stats.TotalAvailableHours.Equal(decimal.NewFromInt(170)))
	assert.True(t, stats.AbsenceHoursApplied.IsZero())
	assert.Equal(t, efficiency.DeductionTarget(""), stats.AbsenceTarget)
}

func TestComputeStats_AbsenceHasNoEffectAfterReset(t *testing.T) {
	// GIVEN: 17h absence recorded in March
	state := efficiency.MonthState{
		LastCheckedMonth: time.March,
		LastCheckedYear:  2025,
		Absence: efficiency.AbsenceAdjustment{
			Hours:           decimal.NewFromInt(17),
			AppliesToMonth:  time.March,
			AppliesToYear:   2025,
			DeductionTarget: efficiency.DeductFromAvailable,
		},
	}

	// WHEN: the calendar rolls into April
	tr := efficiency.CheckAndResetIfNewMonth(state, at(2025, 4, 1, 7, 0))
	require.True(t, tr.WasReset)

	aprilJobs := []efficiency.Job{job(t, "WIP-1", 102, at(2025, 4, 1, 9, 0))}
	in := defaultInput(aprilJobs, day(2025, 4, 1))
	in.Absence = &tr.Updated.Absence
	stats, err := efficiency.ComputeStats(in)

	// THEN: April availability is untouched
	require.NoError(t, err)
	assert.True(t, stats.TotalAvailableHours.Equal(dec("8.5")))
	assert.True(t, stats.AbsenceHoursApplied.IsZero())
	assert.Equal(t, 100, stats.EfficiencyPercentage)
}
