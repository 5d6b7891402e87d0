// Package memory provides in-memory JobStore and SettingsStore
// implementations for tests and local development.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/warp/aw-tracker/efficiency"
)

// ErrDuplicateJob is returned when a job ID is saved twice.
var ErrDuplicateJob = errors.New("duplicate job id")

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	jobs     []efficiency.Job // sorted by DateCreated
	byID     map[string]int
	settings *efficiency.Settings
}

var (
	_ efficiency.JobStore      = (*Memory)(nil)
	_ efficiency.SettingsStore = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{byID: make(map[string]int)}
}

func (m *Memory) SaveJob(_ context.Context, job efficiency.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byID[job.ID]; ok {
		return ErrDuplicateJob
	}

	// Binary search for the insertion point keeps the slice ordered.
	i := sort.Search(len(m.jobs), func(i int) bool {
		return m.jobs[i].DateCreated.After(job.DateCreated)
	})
	m.jobs = append(m.jobs, efficiency.Job{})
	copy(m.jobs[i+1:], m.jobs[i:])
	m.jobs[i] = job
	m.reindex()
	return nil
}

func (m *Memory) GetJob(_ context.Context, id string) (efficiency.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i, ok := m.byID[id]
	if !ok {
		return efficiency.Job{}, efficiency.ErrJobNotFound
	}
	return m.jobs[i], nil
}

func (m *Memory) ListJobs(_ context.Context, filter efficiency.JobFilter) ([]efficiency.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := strings.ToUpper(strings.TrimSpace(filter.Query))
	result := []efficiency.Job{}
	for _, j := range m.jobs {
		if filter.Period != nil && !filter.Period.ContainsTime(j.DateCreated) {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToUpper(j.WIPNumber), q) &&
			!strings.Contains(strings.ToUpper(j.VehicleRegistration), q) {
			continue
		}
		result = append(result, j)
	}
	return result, nil
}

// UpdateJob replaces the editable fields; ID and DateCreated stay.
func (m *Memory) UpdateJob(_ context.Context, job efficiency.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.byID[job.ID]
	if !ok {
		return efficiency.ErrJobNotFound
	}
	existing := &m.jobs[i]
	existing.WIPNumber = job.WIPNumber
	existing.VehicleRegistration = job.VehicleRegistration
	existing.AWValue = job.AWValue
	existing.Notes = job.Notes
	return nil
}

func (m *Memory) DeleteJob(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.byID[id]
	if !ok {
		return efficiency.ErrJobNotFound
	}
	m.jobs = append(m.jobs[:i], m.jobs[i+1:]...)
	m.reindex()
	return nil
}

func (m *Memory) reindex() {
	m.byID = make(map[string]int, len(m.jobs))
	for i, j := range m.jobs {
		m.byID[j.ID] = i
	}
}

// =============================================================================
// SETTINGS
// =============================================================================

func (m *Memory) GetSettings(_ context.Context) (efficiency.Settings, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.settings == nil {
		return efficiency.Settings{}, false, nil
	}
	return cloneSettings(*m.settings), true, nil
}

func (m *Memory) SaveSettings(_ context.Context, s efficiency.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := cloneSettings(s)
	m.settings = &c
	return nil
}

// cloneSettings copies the WorkDays map so callers never share it.
func cloneSettings(s efficiency.Settings) efficiency.Settings {
	days := make(map[time.Weekday]bool, len(s.Schedule.WorkDays))
	for d, on := range s.Schedule.WorkDays {
		days[d] = on
	}
	s.Schedule.WorkDays = days
	return s
}
