// Package efficiency implements the technician's time and efficiency
// accounting: sold hours from logged jobs, available hours from the work
// schedule, and the utilisation and efficiency figures derived from them.
// It uses the generic calendar primitives and the schedule package for
// availability.
package efficiency

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/aw-tracker/generic"
)

// =============================================================================
// JOB - One completed work order
// =============================================================================

// Job is a logged work order. DateCreated is the job's period membership key
// and is never changed after creation.
type Job struct {
	ID                  string
	WIPNumber           string
	VehicleRegistration string
	AWValue             int
	DateCreated         time.Time
	Notes               string
}

var (
	ErrJobNotFound = errors.New("job not found")
	ErrInvalidJob  = errors.New("invalid job")
)

// NewJob assigns an ID to a freshly logged job.
func NewJob(wip, registration string, aw int, notes string, created time.Time) (Job, error) {
	j := Job{
		ID:                  uuid.NewString(),
		WIPNumber:           strings.TrimSpace(wip),
		VehicleRegistration: strings.ToUpper(strings.TrimSpace(registration)),
		AWValue:             aw,
		DateCreated:         created,
		Notes:               notes,
	}
	if err := j.Validate(); err != nil {
		return Job{}, err
	}
	return j, nil
}

// Validate enforces AW >= 0 and a non-empty WIP number.
func (j Job) Validate() error {
	if j.AWValue < 0 {
		return fmt.Errorf("%w: aw value must not be negative", ErrInvalidJob)
	}
	if j.WIPNumber == "" {
		return fmt.Errorf("%w: wip number is required", ErrInvalidJob)
	}
	if j.DateCreated.IsZero() {
		return fmt.Errorf("%w: date created is required", ErrInvalidJob)
	}
	return nil
}

// Day is the calendar day the job belongs to.
func (j Job) Day() generic.TimePoint {
	return generic.DateOf(j.DateCreated)
}

// TimeInMinutes is AWValue converted with the formula's AW factor.
func (j Job) TimeInMinutes(f FormulaConfig) decimal.Decimal {
	return decimal.NewFromInt(int64(j.AWValue)).Mul(f.AWToMinutes)
}

// JobsIn returns the jobs whose DateCreated falls within p, preserving order.
func JobsIn(jobs []Job, p generic.Period) []Job {
	var out []Job
	for _, j := range jobs {
		if p.ContainsTime(j.DateCreated) {
			out = append(out, j)
		}
	}
	return out
}

// =============================================================================
// ABSENCE ADJUSTMENT - Month-scoped deduction
// =============================================================================

// DeductionTarget decides what an absence reduces.
type DeductionTarget string

const (
	DeductFromTarget    DeductionTarget = "monthly_target_hours"
	DeductFromAvailable DeductionTarget = "total_available_hours"
)

// Valid reports whether t is a known target.
func (t DeductionTarget) Valid() bool {
	return t == DeductFromTarget || t == DeductFromAvailable
}

// AbsenceAdjustment reduces either the monthly target or the available hours
// for one calendar month.
type AbsenceAdjustment struct {
	Hours           decimal.Decimal
	AppliesToMonth  time.Month
	AppliesToYear   int
	DeductionTarget DeductionTarget
}

// ActiveHours returns the adjustment's hours if it is scoped to the month of
// asOf, otherwise zero. A nil adjustment is inactive.
func (a *AbsenceAdjustment) ActiveHours(asOf generic.TimePoint) decimal.Decimal {
	if a == nil {
		return decimal.Zero
	}
	if a.AppliesToMonth != asOf.Month() || a.AppliesToYear != asOf.Year() {
		return decimal.Zero
	}
	return generic.NonNegative(a.Hours)
}

// Validate checks hours >= 0 and a known deduction target.
func (a AbsenceAdjustment) Validate() error {
	if a.Hours.IsNegative() {
		return generic.InvalidConfig("absence_hours", "must not be negative, got %s", a.Hours)
	}
	if !a.DeductionTarget.Valid() {
		return generic.InvalidConfig("deduction_target", "unknown target %q", a.DeductionTarget)
	}
	return nil
}

// =============================================================================
// STATUS - Three-band efficiency classification
// =============================================================================

type Status string

const (
	StatusGreen  Status = "green"
	StatusYellow Status = "yellow"
	StatusRed    Status = "red"
)

// =============================================================================
// MONTHLY STATS - Output of ComputeStats
// =============================================================================

// MonthlyStats is recomputed on every call and never cached.
type MonthlyStats struct {
	Period generic.Period // the calendar month of AsOf
	AsOf   generic.TimePoint

	TotalJobs           int
	TotalAWs            int
	TotalSoldHours      decimal.Decimal
	TotalAvailableHours decimal.Decimal
	TargetHours         decimal.Decimal

	UtilizationPercentage decimal.Decimal
	EfficiencyPercentage  int
	Status                Status

	// Breakdown
	WorkingDays          int
	RawAvailableHours    decimal.Decimal
	EffectiveTargetHours decimal.Decimal
	AbsenceHoursApplied  decimal.Decimal
	AbsenceTarget        DeductionTarget
	ExpectedAWs          decimal.Decimal
}
