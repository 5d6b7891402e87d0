package efficiency

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/aw-tracker/generic"
	"github.com/warp/aw-tracker/schedule"
)

// =============================================================================
// SETTINGS - The persisted configuration blob
// =============================================================================

// Settings is everything the calculations read from storage. It is passed
// into each call by value; the engine never holds a shared copy.
type Settings struct {
	Formula     FormulaConfig
	Schedule    schedule.WorkSchedule
	TargetHours decimal.Decimal // monthly target

	MonthState
}

// DefaultMonthlyTargetHours is the target used when none is configured.
var DefaultMonthlyTargetHours = decimal.NewFromInt(180)

// DefaultSettings returns settings for a fresh install, scoped to now's month.
func DefaultSettings(now time.Time) Settings {
	return Settings{
		Formula:     DefaultFormula(),
		Schedule:    schedule.DefaultWorkSchedule(),
		TargetHours: DefaultMonthlyTargetHours,
		MonthState: MonthState{
			LastCheckedMonth: now.Month(),
			LastCheckedYear:  now.Year(),
			Absence: AbsenceAdjustment{
				Hours:           decimal.Zero,
				AppliesToMonth:  now.Month(),
				AppliesToYear:   now.Year(),
				DeductionTarget: DeductFromAvailable,
			},
		},
	}
}

// Validate checks every nested invariant.
func (s Settings) Validate() error {
	if err := s.Formula.Validate(); err != nil {
		return err
	}
	if err := s.Schedule.Validate(); err != nil {
		return err
	}
	if s.TargetHours.IsNegative() {
		return generic.InvalidConfig("target_hours", "must not be negative, got %s", s.TargetHours)
	}
	return s.Absence.Validate()
}

// CheckMonthBoundary runs CheckAndResetIfNewMonth over s's month state and
// returns the settings with the updated state applied.
func (s Settings) CheckMonthBoundary(now time.Time) (Settings, MonthTransition) {
	tr := CheckAndResetIfNewMonth(s.MonthState, now)
	s.MonthState = tr.Updated
	return s, tr
}

// =============================================================================
// STORAGE PORTS
// =============================================================================

// JobFilter narrows ListJobs. Zero value lists everything.
type JobFilter struct {
	// Query matches WIP number or registration, case-insensitively.
	Query string
	// Period restricts by DateCreated day when non-nil.
	Period *generic.Period
}

// JobStore persists the job ledger. The engine only reads through it.
type JobStore interface {
	// ListJobs returns jobs ordered by DateCreated ascending.
	ListJobs(ctx context.Context, filter JobFilter) ([]Job, error)

	// GetJob returns ErrJobNotFound for an unknown ID.
	GetJob(ctx context.Context, id string) (Job, error)

	SaveJob(ctx context.Context, job Job) error

	// UpdateJob replaces every field except ID and DateCreated.
	UpdateJob(ctx context.Context, job Job) error

	DeleteJob(ctx context.Context, id string) error
}

// SettingsStore persists the single settings value.
type SettingsStore interface {
	// GetSettings returns (settings, found, error).
	GetSettings(ctx context.Context) (Settings, bool, error)
	SaveSettings(ctx context.Context, s Settings) error
}
