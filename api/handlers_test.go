/*
handlers_test.go - HTTP handler tests

Tests for:
- Job CRUD, search and validation
- Stats, calendar and availability endpoints
- Settings replace and the month-check endpoint
- Error status mapping
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/aw-tracker/efficiency"
	"github.com/warp/aw-tracker/factory"
	"github.com/warp/aw-tracker/logger"
	"github.com/warp/aw-tracker/store/sqlite"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

type testServer struct {
	t       *testing.T
	store   *sqlite.Store
	handler *Handler
	router  http.Handler
}

func newTestServer(t *testing.T, now time.Time) *testServer {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tracker := efficiency.NewTracker(store, store)
	tracker.Now = func() time.Time { return now }

	h := NewHandler(tracker, logger.Discard())
	h.Recorder = store
	h.Pinger = store
	return &testServer{t: t, store: store, handler: h, router: NewRouter(h, RouterOptions{})}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				s.t.Fatalf("encode body: %v", err)
			}
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func intPtr(i int) *int { return &i }

func (s *testServer) createJob(wip string, aw int, created string) JobDTO {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/jobs", CreateJobRequest{
		WIPNumber:           wip,
		VehicleRegistration: "ab12 cde",
		AWValue:             intPtr(aw),
		DateCreated:         created,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[JobDTO](s.t, rec)
}

var march28 = time.Date(2025, 3, 28, 17, 0, 0, 0, time.UTC)

// =============================================================================
// JOBS
// =============================================================================

func TestCreateJob(t *testing.T) {
	// GIVEN: an empty ledger
	srv := newTestServer(t, march28)

	// WHEN: logging a job without a date
	job := srv.createJob("WIP-1", 24, "")

	// THEN: it is stamped now and its minutes derived from the formula
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "AB12 CDE", job.VehicleRegistration)
	assert.Equal(t, 120.0, job.TimeInMinutes)
	assert.Equal(t, "2025-03-28T17:00:00Z", job.DateCreated)

	rec := srv.do(http.MethodGet, "/api/jobs/"+job.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateJob_Validation(t *testing.T) {
	srv := newTestServer(t, march28)

	tests := []struct {
		name string
		body any
	}{
		{"missing wip", CreateJobRequest{AWValue: intPtr(5)}},
		{"missing aw", CreateJobRequest{WIPNumber: "WIP-1"}},
		{"negative aw", CreateJobRequest{WIPNumber: "WIP-1", AWValue: intPtr(-1)}},
		{"bad date", CreateJobRequest{WIPNumber: "WIP-1", AWValue: intPtr(1), DateCreated: "28/03/2025"}},
		{"unknown field", `{"wip_number": "WIP-1", "aw_value": 1, "colour": "red"}`},
		{"malformed", `{"wip_number": `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := srv.do(http.MethodPost, "/api/jobs", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.NotEmpty(t, resp.Error)
			assert.NotEmpty(t, resp.Details)
		})
	}
}

func TestListJobs_MonthAndQuery(t *testing.T) {
	srv := newTestServer(t, march28)
	srv.createJob("WIP-100", 10, "2025-03-31T23:59:00Z")
	srv.createJob("WIP-200", 20, "2025-04-01T00:00:00Z")
	srv.createJob("WIP-101", 30, "2025-03-02T08:00:00Z")

	rec := srv.do(http.MethodGet, "/api/jobs?month=2025-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	jobs := decode[[]JobDTO](t, rec)
	require.Len(t, jobs, 2)
	assert.Equal(t, "WIP-101", jobs[0].WIPNumber)
	assert.Equal(t, "WIP-100", jobs[1].WIPNumber)

	rec = srv.do(http.MethodGet, "/api/jobs?q=wip-2", nil)
	jobs = decode[[]JobDTO](t, rec)
	require.Len(t, jobs, 1)
	assert.Equal(t, "WIP-200", jobs[0].WIPNumber)

	rec = srv.do(http.MethodGet, "/api/jobs?month=March", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodGet, "/api/jobs?q=nothing", nil)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestUpdateJob_KeepsDateCreated(t *testing.T) {
	srv := newTestServer(t, march28)
	job := srv.createJob("WIP-1", 24, "2025-03-03T09:00:00Z")

	rec := srv.do(http.MethodPut, "/api/jobs/"+job.ID, UpdateJobRequest{
		WIPNumber: "WIP-1A",
		AWValue:   intPtr(36),
		Notes:     "extra work",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[JobDTO](t, rec)
	assert.Equal(t, "WIP-1A", updated.WIPNumber)
	assert.Equal(t, 36, updated.AWValue)
	assert.Equal(t, "2025-03-03T09:00:00Z", updated.DateCreated)
}

func TestUpdateJob_DateCreatedNotAccepted(t *testing.T) {
	srv := newTestServer(t, march28)
	job := srv.createJob("WIP-1", 24, "")

	rec := srv.do(http.MethodPut, "/api/jobs/"+job.ID, `{"wip_number": "WIP-1", "aw_value": 1, "date_created": "2024-01-01T00:00:00Z"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestJobNotFound(t *testing.T) {
	srv := newTestServer(t, march28)

	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodGet, "/api/jobs/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodDelete, "/api/jobs/missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodPut, "/api/jobs/missing", UpdateJobRequest{
		WIPNumber: "WIP-1", AWValue: intPtr(1),
	}).Code)
}

func TestDeleteJob(t *testing.T) {
	srv := newTestServer(t, march28)
	job := srv.createJob("WIP-1", 24, "")

	rec := srv.do(http.MethodDelete, "/api/jobs/"+job.ID, nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodGet, "/api/jobs/"+job.ID, nil).Code)
}

// =============================================================================
// STATS / CALENDAR / AVAILABILITY
// =============================================================================

func TestGetStats_WorkedExample(t *testing.T) {
	// GIVEN: 50 AW on each of the 20 working days up to Friday 28 March 2025
	srv := newTestServer(t, march28)
	for d := 3; d <= 28; d++ {
		day := time.Date(2025, 3, d, 10, 0, 0, 0, time.UTC)
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		srv.createJob("WIP", 50, day.Format(time.RFC3339))
	}

	// WHEN
	rec := srv.do(http.MethodGet, "/api/stats?as_of=2025-03-28", nil)

	// THEN
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[StatsDTO](t, rec)
	assert.Equal(t, 1000, stats.TotalAWs)
	assert.Equal(t, 83.33, stats.TotalSoldHours)
	assert.Equal(t, 170.0, stats.TotalAvailableHours)
	assert.Equal(t, 49, stats.EfficiencyPercentage)
	assert.Equal(t, "yellow", stats.Status)
	assert.Equal(t, "2025-03-01", stats.PeriodStart)
}

func TestGetStats_DefaultsToToday(t *testing.T) {
	srv := newTestServer(t, march28)

	rec := srv.do(http.MethodGet, "/api/stats", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2025-03-28", decode[StatsDTO](t, rec).AsOf)
}

func TestGetStats_BadDate(t *testing.T) {
	srv := newTestServer(t, march28)
	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodGet, "/api/stats?as_of=2025-13-01", nil).Code)
}

func TestGetCalendar(t *testing.T) {
	srv := newTestServer(t, march28)
	srv.createJob("WIP-1", 12, "2025-03-12T09:00:00Z")

	rec := srv.do(http.MethodGet, "/api/calendar?granularity=week&anchor=2025-03-12", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	cal := decode[CalendarDTO](t, rec)
	require.Len(t, cal.Buckets, 7)
	assert.Equal(t, "2025-03-10", cal.Start)
	assert.Equal(t, 1, cal.Buckets[2].TotalJobs)
	assert.Len(t, cal.Buckets[2].Jobs, 1)
	assert.Equal(t, 42.5, cal.Total.AvailableHours)

	rec = srv.do(http.MethodGet, "/api/calendar?granularity=week&anchor=2025-03-12&week_start=sunday", nil)
	assert.Equal(t, "2025-03-09", decode[CalendarDTO](t, rec).Start)

	rec = srv.do(http.MethodGet, "/api/calendar?granularity=year&anchor=2025-03-12", nil)
	cal = decode[CalendarDTO](t, rec)
	require.Len(t, cal.Buckets, 12)
	assert.Empty(t, cal.Buckets[2].Jobs)
	assert.Equal(t, 1, cal.Buckets[2].TotalJobs)

	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodGet, "/api/calendar?granularity=fortnight", nil).Code)
	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodGet, "/api/calendar?week_start=someday", nil).Code)
}

func TestGetAvailability(t *testing.T) {
	srv := newTestServer(t, march28)

	rec := srv.do(http.MethodGet, "/api/availability?from=2025-03-07&to=2025-03-10", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	a := decode[AvailabilityDTO](t, rec)
	assert.Equal(t, 2, a.WorkingDays)
	assert.Equal(t, 17.0, a.AvailableHours)
	require.Len(t, a.Days, 4)
	assert.Equal(t, "Saturday", a.Days[1].Weekday)
	assert.False(t, a.Days[1].IsWorking)
}

func TestGetAvailability_Errors(t *testing.T) {
	srv := newTestServer(t, march28)

	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodGet, "/api/availability?from=2025-03-07", nil).Code)
	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodGet, "/api/availability?from=2025-03-10&to=2025-03-01", nil).Code)
	assert.Equal(t, http.StatusBadRequest, srv.do(http.MethodGet, "/api/availability?from=2000-01-01&to=2030-01-01", nil).Code)
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestSettings_GetDefaults(t *testing.T) {
	srv := newTestServer(t, march28)

	rec := srv.do(http.MethodGet, "/api/settings", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	doc := decode[factory.SettingsDocument](t, rec)
	require.NotNil(t, doc.TargetHours)
	assert.Equal(t, 180.0, *doc.TargetHours)
	assert.Equal(t, "never", doc.Schedule.SaturdayRule)
	assert.Equal(t, 3, doc.LastCheckedMonth)
}

func TestSettings_PutKeepsMonthStateWhenOmitted(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, march28)

	// GIVEN: a stored 17h absence
	s := efficiency.DefaultSettings(march28)
	s.Absence.Hours = decimal.NewFromInt(17)
	require.NoError(t, srv.store.SaveSettings(ctx, s))

	// WHEN: replacing the schedule only
	rec := srv.do(http.MethodPut, "/api/settings", `{"schedule": {"saturday_rule": "every_2", "reference_saturday": "2025-01-04"}}`)

	// THEN
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got, found, err := srv.store.GetSettings(ctx)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "every_2", string(got.Schedule.SaturdayRule))
	assert.Equal(t, "17", got.Absence.Hours.String())
}

func TestSettings_PutInvalid(t *testing.T) {
	srv := newTestServer(t, march28)

	rec := srv.do(http.MethodPut, "/api/settings", `{"formula": {"hours_per_working_day": 0}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[ErrorResponse](t, rec).Details, "hours_per_working_day")

	rec = srv.do(http.MethodPut, "/api/settings", `{"schedule": {"saturday_rule": "every_2"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(http.MethodPut, "/api/settings", `{"colour": "red"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMonthCheck(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t, march28)
	s := efficiency.DefaultSettings(march28)
	s.Absence.Hours = decimal.NewFromInt(17)
	require.NoError(t, srv.store.SaveSettings(ctx, s))

	// GIVEN: still March
	rec := srv.do(http.MethodPost, "/api/settings/month-check", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[MonthCheckDTO](t, rec).WasReset)

	// WHEN: the clock moves to April
	srv.handler.Tracker.Now = func() time.Time { return time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC) }
	rec = srv.do(http.MethodPost, "/api/settings/month-check", nil)

	// THEN: reset once, recorded, absence gone
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[MonthCheckDTO](t, rec)
	assert.True(t, res.WasReset)
	assert.Equal(t, 3, res.PreviousMonth)
	assert.Equal(t, 4, res.CurrentMonth)

	again := decode[MonthCheckDTO](t, srv.do(http.MethodPost, "/api/settings/month-check", nil))
	assert.False(t, again.WasReset)

	records, err := srv.store.ListMonthChecks(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	stats := decode[StatsDTO](t, srv.do(http.MethodGet, "/api/stats?as_of=2025-04-01", nil))
	assert.Equal(t, 0.0, stats.AbsenceHoursApplied)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, march28)

	rec := srv.do(http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[HealthDTO](t, rec).Status)
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))
}

// checkOnFirstRead runs one month check from inside the first settings read,
// the way a scheduler tick can land in the middle of a settings save.
type checkOnFirstRead struct {
	efficiency.SettingsStore
	handler *Handler
	once    sync.Once
	done    chan MonthCheckDTO
}

func (c *checkOnFirstRead) GetSettings(ctx context.Context) (efficiency.Settings, bool, error) {
	c.once.Do(func() {
		go func() {
			tr, _ := c.handler.checkMonthBoundary(ctx, c.handler.Log)
			c.done <- toMonthCheckDTO(tr)
		}()
		select {
		case res := <-c.done:
			c.done <- res
		case <-time.After(50 * time.Millisecond):
		}
	})
	return c.SettingsStore.GetSettings(ctx)
}

func TestSettings_PutOverlappingMonthCheckResetsOnce(t *testing.T) {
	ctx := context.Background()
	april1 := time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC)
	srv := newTestServer(t, april1)

	// GIVEN: settings last checked in March with a pending absence
	s := efficiency.DefaultSettings(march28)
	s.Absence.Hours = decimal.NewFromInt(17)
	require.NoError(t, srv.store.SaveSettings(ctx, s))
	overlap := &checkOnFirstRead{SettingsStore: srv.store, handler: srv.handler, done: make(chan MonthCheckDTO, 1)}
	srv.handler.Tracker.Settings = overlap

	// WHEN: a settings save races the month check
	rec := srv.do(http.MethodPut, "/api/settings", `{"target_hours": 170}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := <-overlap.done
	second := decode[MonthCheckDTO](t, srv.do(http.MethodPost, "/api/settings/month-check", nil))

	// THEN: April is reset once, and the new target is kept
	assert.NotEqual(t, first.WasReset, second.WasReset)
	records, err := srv.store.ListMonthChecks(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	got, _, err := srv.store.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.April, got.LastCheckedMonth)
	assert.Equal(t, "170", got.TargetHours.String())
	assert.True(t, got.Absence.Hours.IsZero())
}
