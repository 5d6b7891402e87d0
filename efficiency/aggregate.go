package efficiency

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/aw-tracker/generic"
	"github.com/warp/aw-tracker/schedule"
)

// =============================================================================
// PERIOD AGGREGATOR - Calendar-view buckets
// =============================================================================

// AggregateInput selects the granularity and the anchor date whose enclosing
// period is sliced into buckets.
type AggregateInput struct {
	Jobs        []Job
	Granularity generic.PeriodKind
	Anchor      generic.TimePoint
	Formula     FormulaConfig
	Schedule    schedule.WorkSchedule

	// WeekStart is the first day of a week bucket.
	WeekStart time.Weekday
}

// BucketStats is the per-bucket subset of MonthlyStats. Absence is a
// whole-month concept and is never applied here.
type BucketStats struct {
	TotalJobs            int
	TotalAWs             int
	SoldHours            decimal.Decimal
	AvailableHours       decimal.Decimal
	WorkingDays          int
	EfficiencyPercentage int
	Status               Status
}

// Bucket is one cell of a calendar view.
type Bucket struct {
	Period generic.Period
	Stats  BucketStats
	Jobs   []Job
}

// Aggregation is the result of Aggregate. Buckets are in chronological order;
// Total covers the whole aggregated period.
type Aggregation struct {
	Granularity generic.PeriodKind
	Period      generic.Period
	Buckets     []Bucket
	Total       Bucket
}

// Aggregate slices the period of in.Granularity containing in.Anchor:
//
//	day   -> one bucket for the anchor day
//	week  -> seven day buckets from the week start
//	month -> one bucket per day of the month
//	year  -> twelve month buckets
func Aggregate(in AggregateInput) (Aggregation, error) {
	if err := in.Formula.Validate(); err != nil {
		return Aggregation{}, err
	}
	if err := in.Schedule.Validate(); err != nil {
		return Aggregation{}, err
	}
	kind := in.Granularity
	if _, ok := generic.ParsePeriodKind(string(kind)); !ok {
		return Aggregation{}, generic.InvalidConfig("granularity", "unknown granularity %q", kind)
	}

	pc := generic.PeriodConfig{Kind: kind, WeekStart: in.WeekStart}
	whole := pc.PeriodFor(in.Anchor)

	// Bucketing only looks at jobs inside the aggregated period, sorted once.
	jobs := JobsIn(in.Jobs, whole)
	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].DateCreated.Before(jobs[j].DateCreated)
	})

	var periods []generic.Period
	switch kind {
	case generic.PeriodYear:
		for m := whole.Start; m.BeforeOrEqual(whole.End); m = m.AddMonths(1) {
			periods = append(periods, generic.MonthOf(m))
		}
	default:
		err := generic.ForEachDayInRange(whole, func(day generic.TimePoint) {
			periods = append(periods, generic.Period{Start: day, End: day})
		})
		if err != nil {
			return Aggregation{}, err
		}
	}

	agg := Aggregation{
		Granularity: kind,
		Period:      whole,
		Buckets:     make([]Bucket, 0, len(periods)),
	}
	for _, p := range periods {
		agg.Buckets = append(agg.Buckets, buildBucket(p, JobsIn(jobs, p), in.Formula, in.Schedule))
	}
	agg.Total = buildBucket(whole, jobs, in.Formula, in.Schedule)
	return agg, nil
}

// buildBucket assumes the jobs already belong to p.
func buildBucket(p generic.Period, jobs []Job, f FormulaConfig, ws schedule.WorkSchedule) Bucket {
	aws := 0
	for _, j := range jobs {
		aws += j.AWValue
	}
	days := ws.WorkingDaysIn(p)
	sold := f.SoldHours(aws)
	available := f.HoursPerWorkingDay.Mul(decimal.NewFromInt(int64(days)))
	eff := Efficiency(sold, available)

	if jobs == nil {
		jobs = []Job{}
	}
	return Bucket{
		Period: p,
		Jobs:   jobs,
		Stats: BucketStats{
			TotalJobs:            len(jobs),
			TotalAWs:             aws,
			SoldHours:            sold,
			AvailableHours:       available,
			WorkingDays:          days,
			EfficiencyPercentage: eff,
			Status:               f.Classify(eff),
		},
	}
}
