/*
handlers.go - HTTP request handlers

PURPOSE:
  Implements all REST API endpoints. Handlers parse and validate requests,
  delegate to efficiency.Tracker, and map results and errors to JSON.

ERROR MAPPING:
  400: request validation, invalid job, InvalidRange, InvalidConfiguration
  404: job not found
  500: everything else (logged)

ENDPOINTS:
  Jobs:         list/search, create, get, update, delete
  Stats:        monthly figures as of a day
  Calendar:     day/week/month/year buckets
  Availability: schedule preview over a range
  Settings:     get, replace, month boundary check

SEE ALSO:
  - server.go: Route definitions
  - dto.go: Request/response types
  - efficiency/tracker.go: Business operations
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/warp/aw-tracker/efficiency"
	"github.com/warp/aw-tracker/factory"
	"github.com/warp/aw-tracker/generic"
)

// MaxAvailabilityDays bounds the availability preview range.
const MaxAvailabilityDays = 3660

// MonthCheckRecorder keeps an audit trail of boundary resets. Optional.
type MonthCheckRecorder interface {
	RecordMonthCheck(ctx context.Context, tr efficiency.MonthTransition, at time.Time) error
}

// Pinger is checked by the health endpoint. Optional.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	Tracker *efficiency.Tracker
	Log     logrus.FieldLogger

	// WeekStart is the calendar default when week_start is not given.
	WeekStart time.Weekday

	Recorder MonthCheckRecorder
	Pinger   Pinger
}

// NewHandler creates a handler with Monday-start weeks.
func NewHandler(tracker *efficiency.Tracker, log logrus.FieldLogger) *Handler {
	return &Handler{
		Tracker:   tracker,
		Log:       log,
		WeekStart: time.Monday,
	}
}

// =============================================================================
// JOB HANDLERS
// =============================================================================

// ListJobs returns jobs, optionally filtered by ?q= and ?month=YYYY-MM.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := efficiency.JobFilter{Query: r.URL.Query().Get("q")}
	if m := r.URL.Query().Get("month"); m != "" {
		t, err := time.Parse("2006-01", m)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid month (use YYYY-MM)", err)
			return
		}
		p := generic.MonthOf(generic.DateOf(t))
		filter.Period = &p
	}

	ctx := r.Context()
	jobs, err := h.Tracker.ListJobs(ctx, filter)
	if err != nil {
		h.fail(w, r, "Failed to list jobs", err)
		return
	}
	settings, err := h.Tracker.CurrentSettings(ctx)
	if err != nil {
		h.fail(w, r, "Failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toJobDTOs(jobs, settings.Formula))
}

// CreateJob logs a new job.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, ok, err := req.CreatedAt()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_created (use RFC3339)", err)
		return
	}

	ctx := r.Context()
	var job efficiency.Job
	if ok {
		job, err = h.Tracker.LogJobAt(ctx, req.WIPNumber, req.VehicleRegistration, *req.AWValue, req.Notes, created)
	} else {
		job, err = h.Tracker.LogJob(ctx, req.WIPNumber, req.VehicleRegistration, *req.AWValue, req.Notes)
	}
	if err != nil {
		h.fail(w, r, "Failed to create job", err)
		return
	}

	h.logger(r).WithFields(logrus.Fields{
		"job_id":   job.ID,
		"wip":      job.WIPNumber,
		"aw_value": job.AWValue,
	}).Info("job logged")

	h.writeJob(w, r, http.StatusCreated, job)
}

// GetJob returns a single job.
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.Tracker.GetJob(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "Failed to get job", err)
		return
	}
	h.writeJob(w, r, http.StatusOK, job)
}

// UpdateJob edits a job. The creation time is kept.
func (h *Handler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	var req UpdateJobRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	job, err := h.Tracker.UpdateJob(r.Context(), efficiency.Job{
		ID:                  chi.URLParam(r, "id"),
		WIPNumber:           req.WIPNumber,
		VehicleRegistration: req.VehicleRegistration,
		AWValue:             *req.AWValue,
		Notes:               req.Notes,
	})
	if err != nil {
		h.fail(w, r, "Failed to update job", err)
		return
	}
	h.writeJob(w, r, http.StatusOK, job)
}

// DeleteJob removes a job.
func (h *Handler) DeleteJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Tracker.DeleteJob(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to delete job", err)
		return
	}
	h.logger(r).WithField("job_id", id).Info("job deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJob(w http.ResponseWriter, r *http.Request, status int, job efficiency.Job) {
	settings, err := h.Tracker.CurrentSettings(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to load settings", err)
		return
	}
	writeJSON(w, status, toJobDTO(job, settings.Formula))
}

// =============================================================================
// STATS & CALENDAR
// =============================================================================

// GetStats returns the monthly figures as of ?as_of= (default today).
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	asOf, err := h.dateParam(r, "as_of")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of (use YYYY-MM-DD)", err)
		return
	}

	stats, err := h.Tracker.MonthlyStats(r.Context(), asOf)
	if err != nil {
		h.fail(w, r, "Failed to compute stats", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsDTO(stats))
}

// GetCalendar returns buckets for ?granularity= (default month) around
// ?anchor= (default today).
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	kind := generic.PeriodMonth
	if g := q.Get("granularity"); g != "" {
		k, ok := generic.ParsePeriodKind(g)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid granularity (day, week, month, year)", nil)
			return
		}
		kind = k
	}

	anchor, err := h.dateParam(r, "anchor")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid anchor (use YYYY-MM-DD)", err)
		return
	}

	weekStart := h.WeekStart
	if ws := q.Get("week_start"); ws != "" {
		d, ok := factory.ParseWeekday(ws)
		if !ok {
			writeError(w, http.StatusBadRequest, "Invalid week_start", nil)
			return
		}
		weekStart = d
	}

	ctx := r.Context()
	agg, err := h.Tracker.Aggregate(ctx, kind, anchor, weekStart)
	if err != nil {
		h.fail(w, r, "Failed to build calendar", err)
		return
	}
	settings, err := h.Tracker.CurrentSettings(ctx)
	if err != nil {
		h.fail(w, r, "Failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, toCalendarDTO(agg, settings.Formula))
}

// GetAvailability previews the schedule over ?from= .. ?to=.
func (h *Handler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("from") == "" || q.Get("to") == "" {
		writeError(w, http.StatusBadRequest, "from and to are required (YYYY-MM-DD)", nil)
		return
	}
	from, err := generic.ParseDate(q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid from (use YYYY-MM-DD)", err)
		return
	}
	to, err := generic.ParseDate(q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid to (use YYYY-MM-DD)", err)
		return
	}
	if generic.DaysBetween(from, to) >= MaxAvailabilityDays {
		writeError(w, http.StatusBadRequest, "Range too long", nil)
		return
	}

	a, err := h.Tracker.Availability(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, "Failed to compute availability", err)
		return
	}
	writeJSON(w, http.StatusOK, toAvailabilityDTO(a))
}

// =============================================================================
// SETTINGS
// =============================================================================

// GetSettings returns the current settings document.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Tracker.CurrentSettings(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.FromSettings(s))
}

// PutSettings replaces the settings. When the document leaves out the
// absence or the last-checked month, the stored values are kept so a
// settings edit never hides a pending month reset.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var doc factory.SettingsDocument
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid settings document", err)
		return
	}

	next, err := doc.ToSettings(h.Tracker.Now())
	if err != nil {
		h.fail(w, r, "Invalid settings", err)
		return
	}

	saved, err := h.Tracker.ReplaceSettings(r.Context(), func(current efficiency.Settings) (efficiency.Settings, error) {
		if doc.LastCheckedMonth == 0 && doc.LastCheckedYear == 0 {
			next.LastCheckedMonth = current.LastCheckedMonth
			next.LastCheckedYear = current.LastCheckedYear
		}
		if doc.Absence == nil {
			next.Absence = current.Absence
		}
		return next, nil
	})
	if err != nil {
		h.fail(w, r, "Failed to save settings", err)
		return
	}
	h.logger(r).Info("settings updated")
	writeJSON(w, http.StatusOK, factory.FromSettings(saved))
}

// MonthCheck runs the monthly boundary transition. Clients call it whenever
// the dashboard gains focus.
func (h *Handler) MonthCheck(w http.ResponseWriter, r *http.Request) {
	tr, err := h.checkMonthBoundary(r.Context(), h.logger(r))
	if err != nil {
		h.fail(w, r, "Failed to check month boundary", err)
		return
	}
	writeJSON(w, http.StatusOK, toMonthCheckDTO(tr))
}

// checkMonthBoundary is shared by the endpoint and the scheduler.
func (h *Handler) checkMonthBoundary(ctx context.Context, log logrus.FieldLogger) (efficiency.MonthTransition, error) {
	tr, err := h.Tracker.CheckMonthBoundary(ctx)
	if err != nil {
		return efficiency.MonthTransition{}, err
	}
	if !tr.WasReset {
		return tr, nil
	}

	log.WithFields(logrus.Fields{
		"previous": monthLabel(tr.PreviousYear, tr.PreviousMonth),
		"current":  monthLabel(tr.CurrentYear, tr.CurrentMonth),
	}).Info("new month, absence adjustment reset")

	if h.Recorder != nil {
		if err := h.Recorder.RecordMonthCheck(ctx, tr, h.Tracker.Now()); err != nil {
			log.WithError(err).Warn("failed to record month check")
		}
	}
	return tr, nil
}

// =============================================================================
// HEALTH
// =============================================================================

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Pinger != nil {
		if err := h.Pinger.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Database unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthDTO{Status: "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// dateParam parses a YYYY-MM-DD query parameter, defaulting to today.
func (h *Handler) dateParam(r *http.Request, name string) (generic.TimePoint, error) {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return generic.DateOf(h.Tracker.Now()), nil
	}
	return generic.ParseDate(v)
}

// fail maps err to a status and logs server-side failures.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger(r).WithError(err).Error(message)
	}
	writeError(w, status, message, err)
}

func statusFor(err error) int {
	var verr *ValidationError
	switch {
	case errors.Is(err, efficiency.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, efficiency.ErrInvalidJob),
		generic.IsClientError(err),
		errors.As(err, &verr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) logger(r *http.Request) logrus.FieldLogger {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return h.Log.WithField("request_id", id)
	}
	return h.Log
}

func monthLabel(year int, month time.Month) string {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
