package efficiency

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/warp/aw-tracker/generic"
	"github.com/warp/aw-tracker/schedule"
)

// =============================================================================
// TRACKER - Storage-facing orchestration over the pure engine
// =============================================================================

// Tracker loads jobs and settings from storage and hands them to the pure
// calculations. It is also the single serialised caller of the monthly
// boundary transition.
type Tracker struct {
	Jobs     JobStore
	Settings SettingsStore

	// Now is the wall clock. Replaced in tests.
	Now func() time.Time

	boundaryMu sync.Mutex
}

func NewTracker(jobs JobStore, settings SettingsStore) *Tracker {
	return &Tracker{Jobs: jobs, Settings: settings, Now: time.Now}
}

// CurrentSettings returns the persisted settings, or defaults when nothing
// has been saved yet.
func (t *Tracker) CurrentSettings(ctx context.Context) (Settings, error) {
	s, found, err := t.Settings.GetSettings(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if !found {
		return DefaultSettings(t.Now()), nil
	}
	return s, nil
}

// UpdateSettings validates and persists s.
func (t *Tracker) UpdateSettings(ctx context.Context, s Settings) error {
	t.boundaryMu.Lock()
	defer t.boundaryMu.Unlock()
	return t.saveSettings(ctx, s)
}

// ReplaceSettings reads the current settings, hands them to merge and saves
// the result. The month boundary check cannot run in between, so a month
// state read here is never stale when written back.
func (t *Tracker) ReplaceSettings(ctx context.Context, merge func(current Settings) (Settings, error)) (Settings, error) {
	t.boundaryMu.Lock()
	defer t.boundaryMu.Unlock()

	current, err := t.CurrentSettings(ctx)
	if err != nil {
		return Settings{}, err
	}
	next, err := merge(current)
	if err != nil {
		return Settings{}, err
	}
	if err := t.saveSettings(ctx, next); err != nil {
		return Settings{}, err
	}
	return next, nil
}

func (t *Tracker) saveSettings(ctx context.Context, s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return t.Settings.SaveSettings(ctx, s)
}

// MonthlyStats computes the stats for the month containing asOf, applying
// the persisted absence adjustment.
func (t *Tracker) MonthlyStats(ctx context.Context, asOf generic.TimePoint) (MonthlyStats, error) {
	s, err := t.CurrentSettings(ctx)
	if err != nil {
		return MonthlyStats{}, err
	}
	month := generic.MonthOf(asOf)
	jobs, err := t.Jobs.ListJobs(ctx, JobFilter{Period: &month})
	if err != nil {
		return MonthlyStats{}, fmt.Errorf("load jobs: %w", err)
	}
	absence := s.Absence
	return ComputeStats(StatsInput{
		Jobs:        jobs,
		AsOf:        asOf,
		Formula:     s.Formula,
		Schedule:    s.Schedule,
		TargetHours: s.TargetHours,
		Absence:     &absence,
	})
}

// Aggregate builds calendar buckets for the period of kind containing anchor.
func (t *Tracker) Aggregate(ctx context.Context, kind generic.PeriodKind, anchor generic.TimePoint, weekStart time.Weekday) (Aggregation, error) {
	s, err := t.CurrentSettings(ctx)
	if err != nil {
		return Aggregation{}, err
	}
	whole := generic.PeriodConfig{Kind: kind, WeekStart: weekStart}.PeriodFor(anchor)
	jobs, err := t.Jobs.ListJobs(ctx, JobFilter{Period: &whole})
	if err != nil {
		return Aggregation{}, fmt.Errorf("load jobs: %w", err)
	}
	return Aggregate(AggregateInput{
		Jobs:        jobs,
		Granularity: kind,
		Anchor:      anchor,
		Formula:     s.Formula,
		Schedule:    s.Schedule,
		WeekStart:   weekStart,
	})
}

// Availability previews the configured schedule over [from, to].
func (t *Tracker) Availability(ctx context.Context, from, to generic.TimePoint) (schedule.Availability, error) {
	s, err := t.CurrentSettings(ctx)
	if err != nil {
		return schedule.Availability{}, err
	}
	return schedule.Compute(from, to, s.Schedule, s.Formula.HoursPerWorkingDay)
}

// CheckMonthBoundary runs the monthly transition against persisted settings
// and writes the result back only when a reset happened. Calls are
// serialised with each other and with settings writes, so no caller can
// observe or write back a stale month.
func (t *Tracker) CheckMonthBoundary(ctx context.Context) (MonthTransition, error) {
	t.boundaryMu.Lock()
	defer t.boundaryMu.Unlock()

	s, err := t.CurrentSettings(ctx)
	if err != nil {
		return MonthTransition{}, err
	}
	s, tr := s.CheckMonthBoundary(t.Now())
	if !tr.WasReset {
		return tr, nil
	}
	if err := t.Settings.SaveSettings(ctx, s); err != nil {
		return MonthTransition{}, fmt.Errorf("save settings after month reset: %w", err)
	}
	return tr, nil
}

// =============================================================================
// JOB LEDGER
// =============================================================================

// LogJob records a new job created now.
func (t *Tracker) LogJob(ctx context.Context, wip, registration string, aw int, notes string) (Job, error) {
	return t.LogJobAt(ctx, wip, registration, aw, notes, t.Now())
}

// LogJobAt records a new job with an explicit creation time (imports,
// back-dated entries).
func (t *Tracker) LogJobAt(ctx context.Context, wip, registration string, aw int, notes string, created time.Time) (Job, error) {
	job, err := NewJob(wip, registration, aw, notes, created)
	if err != nil {
		return Job{}, err
	}
	if err := t.Jobs.SaveJob(ctx, job); err != nil {
		return Job{}, fmt.Errorf("save job: %w", err)
	}
	return job, nil
}

// UpdateJob edits an existing job. DateCreated is always kept from the
// stored job.
func (t *Tracker) UpdateJob(ctx context.Context, job Job) (Job, error) {
	existing, err := t.Jobs.GetJob(ctx, job.ID)
	if err != nil {
		return Job{}, err
	}
	job.DateCreated = existing.DateCreated
	job.WIPNumber = strings.TrimSpace(job.WIPNumber)
	job.VehicleRegistration = strings.ToUpper(strings.TrimSpace(job.VehicleRegistration))
	if err := job.Validate(); err != nil {
		return Job{}, err
	}
	if err := t.Jobs.UpdateJob(ctx, job); err != nil {
		return Job{}, fmt.Errorf("update job: %w", err)
	}
	return job, nil
}

func (t *Tracker) DeleteJob(ctx context.Context, id string) error {
	return t.Jobs.DeleteJob(ctx, id)
}

func (t *Tracker) GetJob(ctx context.Context, id string) (Job, error) {
	return t.Jobs.GetJob(ctx, id)
}

func (t *Tracker) ListJobs(ctx context.Context, filter JobFilter) ([]Job, error) {
	return t.Jobs.ListJobs(ctx, filter)
}
