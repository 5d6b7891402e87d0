/*
Package factory provides settings document <-> Go conversion.

PURPOSE:
  Converts JSON or YAML settings documents into efficiency.Settings and back.
  The same document shape is stored by the SQLite store, accepted by the
  settings API and read from the seed file given to the server.

JSON SCHEMA:
  {
    "target_hours": 180,
    "formula": {
      "aw_to_minutes": 5,
      "hours_per_working_day": 8.5,
      "target_aws_per_hour": 12,
      "efficiency_green_threshold": 65,
      "efficiency_yellow_threshold": 31
    },
    "schedule": {
      "work_days": ["monday", "tuesday", "wednesday", "thursday", "friday"],
      "work_start": "08:00",
      "work_end": "17:00",
      "lunch_start": "12:30",
      "lunch_end": "13:00",
      "saturday_rule": "every_2",
      "reference_saturday": "2025-01-04"
    },
    "absence": {
      "hours": 17,
      "applies_to_month": 3,
      "applies_to_year": 2025,
      "deduction_target": "total_available_hours"
    },
    "last_checked_month": 3,
    "last_checked_year": 2025
  }

DEFAULTS:
  Every omitted field takes its default. An omitted hours_per_working_day is
  derived from the schedule (work span minus lunch), so lunch is never
  subtracted twice. Omitted last_checked_* fields mean "checked this month".

SEE ALSO:
  - efficiency/store.go: Settings type
  - store/sqlite/sqlite.go: Stores the JSON form
  - api/handlers.go: GET/PUT /api/settings
*/
package factory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/aw-tracker/efficiency"
	"github.com/warp/aw-tracker/generic"
	"github.com/warp/aw-tracker/schedule"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// SettingsDocument is the serialised form of efficiency.Settings.
type SettingsDocument struct {
	TargetHours      *float64         `json:"target_hours,omitempty" yaml:"target_hours,omitempty"`
	Formula          FormulaDocument  `json:"formula" yaml:"formula"`
	Schedule         ScheduleDocument `json:"schedule" yaml:"schedule"`
	Absence          *AbsenceDocument `json:"absence,omitempty" yaml:"absence,omitempty"`
	LastCheckedMonth int              `json:"last_checked_month,omitempty" yaml:"last_checked_month,omitempty"`
	LastCheckedYear  int              `json:"last_checked_year,omitempty" yaml:"last_checked_year,omitempty"`
}

// FormulaDocument represents the formula constants.
type FormulaDocument struct {
	AWToMinutes               *float64 `json:"aw_to_minutes,omitempty" yaml:"aw_to_minutes,omitempty"`
	HoursPerWorkingDay        *float64 `json:"hours_per_working_day,omitempty" yaml:"hours_per_working_day,omitempty"`
	TargetAWsPerHour          *float64 `json:"target_aws_per_hour,omitempty" yaml:"target_aws_per_hour,omitempty"`
	EfficiencyGreenThreshold  *int     `json:"efficiency_green_threshold,omitempty" yaml:"efficiency_green_threshold,omitempty"`
	EfficiencyYellowThreshold *int     `json:"efficiency_yellow_threshold,omitempty" yaml:"efficiency_yellow_threshold,omitempty"`
}

// ScheduleDocument represents the work schedule.
type ScheduleDocument struct {
	WorkDays          []string `json:"work_days,omitempty" yaml:"work_days,omitempty"`
	WorkStart         string   `json:"work_start,omitempty" yaml:"work_start,omitempty"`
	WorkEnd           string   `json:"work_end,omitempty" yaml:"work_end,omitempty"`
	LunchStart        string   `json:"lunch_start,omitempty" yaml:"lunch_start,omitempty"`
	LunchEnd          string   `json:"lunch_end,omitempty" yaml:"lunch_end,omitempty"`
	SaturdayRule      string   `json:"saturday_rule,omitempty" yaml:"saturday_rule,omitempty"`
	ReferenceSaturday string   `json:"reference_saturday,omitempty" yaml:"reference_saturday,omitempty"` // YYYY-MM-DD
}

// AbsenceDocument represents the month-scoped absence adjustment.
type AbsenceDocument struct {
	Hours           float64 `json:"hours" yaml:"hours"`
	AppliesToMonth  int     `json:"applies_to_month" yaml:"applies_to_month"`
	AppliesToYear   int     `json:"applies_to_year" yaml:"applies_to_year"`
	DeductionTarget string  `json:"deduction_target,omitempty" yaml:"deduction_target,omitempty"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseSettings parses a JSON settings document. now scopes defaults.
func ParseSettings(data []byte, now time.Time) (efficiency.Settings, error) {
	var doc SettingsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return efficiency.Settings{}, fmt.Errorf("failed to parse settings JSON: %w", err)
	}
	return doc.ToSettings(now)
}

// ParseSettingsYAML parses a YAML settings document.
func ParseSettingsYAML(data []byte, now time.Time) (efficiency.Settings, error) {
	var doc SettingsDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return efficiency.Settings{}, fmt.Errorf("failed to parse settings YAML: %w", err)
	}
	return doc.ToSettings(now)
}

// LoadSettingsFile reads a .json, .yaml or .yml settings file.
func LoadSettingsFile(path string, now time.Time) (efficiency.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return efficiency.Settings{}, fmt.Errorf("read settings file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseSettingsYAML(data, now)
	default:
		return ParseSettings(data, now)
	}
}

// MarshalSettings renders s as a JSON document.
func MarshalSettings(s efficiency.Settings) ([]byte, error) {
	return json.Marshal(FromSettings(s))
}

// ToSettings applies defaults and validates the result.
func (doc SettingsDocument) ToSettings(now time.Time) (efficiency.Settings, error) {
	s := efficiency.DefaultSettings(now)

	ws, err := doc.Schedule.toSchedule()
	if err != nil {
		return efficiency.Settings{}, err
	}
	s.Schedule = ws

	f := doc.Formula
	if f.AWToMinutes != nil {
		s.Formula.AWToMinutes = decimal.NewFromFloat(*f.AWToMinutes)
	}
	s.Formula.HoursPerWorkingDay = decimal.Zero
	if f.HoursPerWorkingDay != nil {
		s.Formula.HoursPerWorkingDay = decimal.NewFromFloat(*f.HoursPerWorkingDay)
	}
	if f.TargetAWsPerHour != nil {
		s.Formula.TargetAWsPerHour = decimal.NewFromFloat(*f.TargetAWsPerHour)
	}
	if f.EfficiencyGreenThreshold != nil {
		s.Formula.EfficiencyGreenThreshold = *f.EfficiencyGreenThreshold
	}
	if f.EfficiencyYellowThreshold != nil {
		s.Formula.EfficiencyYellowThreshold = *f.EfficiencyYellowThreshold
	}

	if f.HoursPerWorkingDay == nil {
		s.Formula.HoursPerWorkingDay = efficiency.ResolveHoursPerDay(s.Formula, ws)
	}

	if doc.TargetHours != nil {
		s.TargetHours = decimal.NewFromFloat(*doc.TargetHours)
	}

	if doc.LastCheckedMonth != 0 || doc.LastCheckedYear != 0 {
		if doc.LastCheckedMonth < 1 || doc.LastCheckedMonth > 12 {
			return efficiency.Settings{}, generic.InvalidConfig("last_checked_month", "must be 1-12, got %d", doc.LastCheckedMonth)
		}
		s.LastCheckedMonth = time.Month(doc.LastCheckedMonth)
		s.LastCheckedYear = doc.LastCheckedYear
	}

	if a := doc.Absence; a != nil {
		s.Absence.Hours = decimal.NewFromFloat(a.Hours)
		if a.AppliesToMonth != 0 {
			if a.AppliesToMonth < 1 || a.AppliesToMonth > 12 {
				return efficiency.Settings{}, generic.InvalidConfig("applies_to_month", "must be 1-12, got %d", a.AppliesToMonth)
			}
			s.Absence.AppliesToMonth = time.Month(a.AppliesToMonth)
			s.Absence.AppliesToYear = a.AppliesToYear
		}
		if a.DeductionTarget != "" {
			s.Absence.DeductionTarget = efficiency.DeductionTarget(a.DeductionTarget)
		}
	}

	if err := s.Validate(); err != nil {
		return efficiency.Settings{}, err
	}
	return s, nil
}

func (sd ScheduleDocument) toSchedule() (schedule.WorkSchedule, error) {
	ws := schedule.DefaultWorkSchedule()

	if len(sd.WorkDays) > 0 {
		days := make([]time.Weekday, 0, len(sd.WorkDays))
		for _, name := range sd.WorkDays {
			d, ok := ParseWeekday(name)
			if !ok {
				return ws, generic.InvalidConfig("work_days", "unknown weekday %q", name)
			}
			days = append(days, d)
		}
		ws.WorkDays = schedule.Weekdays(days...)
	}

	clocks := []struct {
		field string
		raw   string
		dst   *schedule.ClockTime
	}{
		{"work_start", sd.WorkStart, &ws.WorkStart},
		{"work_end", sd.WorkEnd, &ws.WorkEnd},
		{"lunch_start", sd.LunchStart, &ws.LunchStart},
		{"lunch_end", sd.LunchEnd, &ws.LunchEnd},
	}
	for _, c := range clocks {
		if c.raw == "" {
			continue
		}
		ct, err := schedule.ParseClockTime(c.raw)
		if err != nil {
			return ws, generic.InvalidConfig(c.field, "%v", err)
		}
		*c.dst = ct
	}

	if sd.SaturdayRule != "" {
		ws.SaturdayRule = schedule.SaturdayRule(strings.ToLower(sd.SaturdayRule))
	}
	if sd.ReferenceSaturday != "" {
		ref, err := generic.ParseDate(sd.ReferenceSaturday)
		if err != nil {
			return ws, generic.InvalidConfig("reference_saturday", "%v", err)
		}
		ws.ReferenceSaturday = ref
	}
	return ws, nil
}

// =============================================================================
// SERIALISATION
// =============================================================================

// FromSettings converts settings to a fully populated document.
func FromSettings(s efficiency.Settings) SettingsDocument {
	f := s.Formula
	awToMinutes := f.AWToMinutes.InexactFloat64()
	hoursPerDay := f.HoursPerWorkingDay.InexactFloat64()
	targetRate := f.TargetAWsPerHour.InexactFloat64()
	green, yellow := f.EfficiencyGreenThreshold, f.EfficiencyYellowThreshold
	target := s.TargetHours.InexactFloat64()

	ws := s.Schedule
	days := make([]string, 0, len(ws.WorkDays))
	for _, d := range ws.SortedWorkDays() {
		days = append(days, strings.ToLower(d.String()))
	}
	sd := ScheduleDocument{
		WorkDays:     days,
		WorkStart:    ws.WorkStart.String(),
		WorkEnd:      ws.WorkEnd.String(),
		LunchStart:   ws.LunchStart.String(),
		LunchEnd:     ws.LunchEnd.String(),
		SaturdayRule: string(ws.SaturdayRule),
	}
	if !ws.ReferenceSaturday.IsZero() {
		sd.ReferenceSaturday = ws.ReferenceSaturday.String()
	}

	return SettingsDocument{
		TargetHours: &target,
		Formula: FormulaDocument{
			AWToMinutes:               &awToMinutes,
			HoursPerWorkingDay:        &hoursPerDay,
			TargetAWsPerHour:          &targetRate,
			EfficiencyGreenThreshold:  &green,
			EfficiencyYellowThreshold: &yellow,
		},
		Schedule: sd,
		Absence: &AbsenceDocument{
			Hours:           s.Absence.Hours.InexactFloat64(),
			AppliesToMonth:  int(s.Absence.AppliesToMonth),
			AppliesToYear:   s.Absence.AppliesToYear,
			DeductionTarget: string(s.Absence.DeductionTarget),
		},
		LastCheckedMonth: int(s.LastCheckedMonth),
		LastCheckedYear:  s.LastCheckedYear,
	}
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// ParseWeekday accepts full names or three-letter abbreviations, any case.
func ParseWeekday(s string) (time.Weekday, bool) {
	d, ok := weekdayNames[strings.ToLower(strings.TrimSpace(s))]
	return d, ok
}
