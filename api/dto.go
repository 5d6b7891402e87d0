/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model from the external API contract: decimals are rendered as
  numbers rounded to two places, dates as YYYY-MM-DD and timestamps as
  RFC3339.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator tags, checked by
  decodeAndValidate in validate.go before a handler sees them.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/settings.go: The settings document shape
*/
package api

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/aw-tracker/efficiency"
	"github.com/warp/aw-tracker/generic"
	"github.com/warp/aw-tracker/schedule"
)

// =============================================================================
// JOBS
// =============================================================================

// JobDTO represents a job in API responses.
type JobDTO struct {
	ID                  string  `json:"id"`
	WIPNumber           string  `json:"wip_number"`
	VehicleRegistration string  `json:"vehicle_registration"`
	AWValue             int     `json:"aw_value"`
	TimeInMinutes       float64 `json:"time_in_minutes"`
	DateCreated         string  `json:"date_created"`
	Notes               string  `json:"notes"`
}

// CreateJobRequest logs a job. DateCreated defaults to now; when given it
// must be RFC3339.
type CreateJobRequest struct {
	WIPNumber           string `json:"wip_number" validate:"required,max=64"`
	VehicleRegistration string `json:"vehicle_registration" validate:"max=16"`
	AWValue             *int   `json:"aw_value" validate:"required,gte=0"`
	Notes               string `json:"notes" validate:"max=2000"`
	DateCreated         string `json:"date_created" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// CreatedAt parses DateCreated. ok is false when it was left empty.
func (r CreateJobRequest) CreatedAt() (t time.Time, ok bool, err error) {
	if r.DateCreated == "" {
		return time.Time{}, false, nil
	}
	t, err = time.Parse(time.RFC3339, r.DateCreated)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("date_created: %w", err)
	}
	return t, true, nil
}

// UpdateJobRequest edits a job. The creation time cannot be changed.
type UpdateJobRequest struct {
	WIPNumber           string `json:"wip_number" validate:"required,max=64"`
	VehicleRegistration string `json:"vehicle_registration" validate:"max=16"`
	AWValue             *int   `json:"aw_value" validate:"required,gte=0"`
	Notes               string `json:"notes" validate:"max=2000"`
}

func toJobDTO(j efficiency.Job, f efficiency.FormulaConfig) JobDTO {
	return JobDTO{
		ID:                  j.ID,
		WIPNumber:           j.WIPNumber,
		VehicleRegistration: j.VehicleRegistration,
		AWValue:             j.AWValue,
		TimeInMinutes:       num(j.TimeInMinutes(f)),
		DateCreated:         j.DateCreated.Format(time.RFC3339),
		Notes:               j.Notes,
	}
}

func toJobDTOs(jobs []efficiency.Job, f efficiency.FormulaConfig) []JobDTO {
	dtos := make([]JobDTO, len(jobs))
	for i, j := range jobs {
		dtos[i] = toJobDTO(j, f)
	}
	return dtos
}

// =============================================================================
// STATS
// =============================================================================

// StatsDTO is the dashboard payload.
type StatsDTO struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	AsOf        string `json:"as_of"`

	TotalJobs             int     `json:"total_jobs"`
	TotalAWs              int     `json:"total_aws"`
	TotalSoldHours        float64 `json:"total_sold_hours"`
	TotalAvailableHours   float64 `json:"total_available_hours"`
	TargetHours           float64 `json:"target_hours"`
	UtilizationPercentage float64 `json:"utilization_percentage"`
	EfficiencyPercentage  int     `json:"efficiency_percentage"`
	Status                string  `json:"status"`

	WorkingDays          int     `json:"working_days"`
	RawAvailableHours    float64 `json:"raw_available_hours"`
	EffectiveTargetHours float64 `json:"effective_target_hours"`
	AbsenceHoursApplied  float64 `json:"absence_hours_applied"`
	AbsenceTarget        string  `json:"absence_target,omitempty"`
	ExpectedAWs          float64 `json:"expected_aws"`
}

func toStatsDTO(s efficiency.MonthlyStats) StatsDTO {
	return StatsDTO{
		PeriodStart:           s.Period.Start.String(),
		PeriodEnd:             s.Period.End.String(),
		AsOf:                  s.AsOf.String(),
		TotalJobs:             s.TotalJobs,
		TotalAWs:              s.TotalAWs,
		TotalSoldHours:        num(s.TotalSoldHours),
		TotalAvailableHours:   num(s.TotalAvailableHours),
		TargetHours:           num(s.TargetHours),
		UtilizationPercentage: num(s.UtilizationPercentage),
		EfficiencyPercentage:  s.EfficiencyPercentage,
		Status:                string(s.Status),
		WorkingDays:           s.WorkingDays,
		RawAvailableHours:     num(s.RawAvailableHours),
		EffectiveTargetHours:  num(s.EffectiveTargetHours),
		AbsenceHoursApplied:   num(s.AbsenceHoursApplied),
		AbsenceTarget:         string(s.AbsenceTarget),
		ExpectedAWs:           num(s.ExpectedAWs),
	}
}

// =============================================================================
// CALENDAR
// =============================================================================

// BucketDTO is one calendar cell.
type BucketDTO struct {
	Start                string   `json:"start"`
	End                  string   `json:"end"`
	TotalJobs            int      `json:"total_jobs"`
	TotalAWs             int      `json:"total_aws"`
	SoldHours            float64  `json:"sold_hours"`
	AvailableHours       float64  `json:"available_hours"`
	WorkingDays          int      `json:"working_days"`
	EfficiencyPercentage int      `json:"efficiency_percentage"`
	Status               string   `json:"status"`
	Jobs                 []JobDTO `json:"jobs,omitempty"`
}

// CalendarDTO is the response of GET /api/calendar.
type CalendarDTO struct {
	Granularity string      `json:"granularity"`
	Start       string      `json:"start"`
	End         string      `json:"end"`
	Buckets     []BucketDTO `json:"buckets"`
	Total       BucketDTO   `json:"total"`
}

func toBucketDTO(b efficiency.Bucket, f efficiency.FormulaConfig, withJobs bool) BucketDTO {
	dto := BucketDTO{
		Start:                b.Period.Start.String(),
		End:                  b.Period.End.String(),
		TotalJobs:            b.Stats.TotalJobs,
		TotalAWs:             b.Stats.TotalAWs,
		SoldHours:            num(b.Stats.SoldHours),
		AvailableHours:       num(b.Stats.AvailableHours),
		WorkingDays:          b.Stats.WorkingDays,
		EfficiencyPercentage: b.Stats.EfficiencyPercentage,
		Status:               string(b.Stats.Status),
	}
	if withJobs {
		dto.Jobs = toJobDTOs(b.Jobs, f)
	}
	return dto
}

func toCalendarDTO(a efficiency.Aggregation, f efficiency.FormulaConfig) CalendarDTO {
	// Year buckets are months; listing every job there is too much.
	withJobs := a.Granularity != generic.PeriodYear
	dto := CalendarDTO{
		Granularity: string(a.Granularity),
		Start:       a.Period.Start.String(),
		End:         a.Period.End.String(),
		Buckets:     make([]BucketDTO, len(a.Buckets)),
		Total:       toBucketDTO(a.Total, f, false),
	}
	for i, b := range a.Buckets {
		dto.Buckets[i] = toBucketDTO(b, f, withJobs)
	}
	return dto
}

// =============================================================================
// AVAILABILITY
// =============================================================================

// DayDTO is one day of the schedule preview.
type DayDTO struct {
	Date      string  `json:"date"`
	Weekday   string  `json:"weekday"`
	IsWorking bool    `json:"is_working"`
	Hours     float64 `json:"hours"`
}

// AvailabilityDTO is the response of GET /api/availability.
type AvailabilityDTO struct {
	From           string   `json:"from"`
	To             string   `json:"to"`
	WorkingDays    int      `json:"working_days"`
	AvailableHours float64  `json:"available_hours"`
	Days           []DayDTO `json:"days"`
}

func toAvailabilityDTO(a schedule.Availability) AvailabilityDTO {
	dto := AvailabilityDTO{
		From:           a.Period.Start.String(),
		To:             a.Period.End.String(),
		WorkingDays:    a.WorkingDays,
		AvailableHours: num(a.Hours),
		Days:           make([]DayDTO, len(a.Days)),
	}
	for i, d := range a.Days {
		dto.Days[i] = DayDTO{
			Date:      d.Date.String(),
			Weekday:   d.Date.Weekday().String(),
			IsWorking: d.IsWorking,
			Hours:     num(d.Hours),
		}
	}
	return dto
}

// =============================================================================
// MONTH CHECK
// =============================================================================

// MonthCheckDTO reports a boundary check. Previous* are set only on reset.
type MonthCheckDTO struct {
	WasReset      bool `json:"was_reset"`
	PreviousMonth int  `json:"previous_month,omitempty"`
	PreviousYear  int  `json:"previous_year,omitempty"`
	CurrentMonth  int  `json:"current_month"`
	CurrentYear   int  `json:"current_year"`
}

func toMonthCheckDTO(tr efficiency.MonthTransition) MonthCheckDTO {
	return MonthCheckDTO{
		WasReset:      tr.WasReset,
		PreviousMonth: int(tr.PreviousMonth),
		PreviousYear:  tr.PreviousYear,
		CurrentMonth:  int(tr.CurrentMonth),
		CurrentYear:   tr.CurrentYear,
	}
}

// =============================================================================
// COMMON
// =============================================================================

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// HealthDTO is the response of GET /healthz.
type HealthDTO struct {
	Status string `json:"status"`
}

// num renders a decimal as a JSON number with two decimal places.
func num(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
