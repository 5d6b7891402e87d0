/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements efficiency.JobStore and efficiency.SettingsStore using SQLite.
  The server keeps one database file; tests open ":memory:".

INTERFACES IMPLEMENTED:
  efficiency.JobStore:      Job ledger CRUD and search
  efficiency.SettingsStore: The single settings document

KEY TABLES:
  jobs:         One row per logged job
  settings:     Exactly one row (id = 1) holding the JSON settings document
  month_checks: Audit trail of monthly boundary resets

DATES:
  date_created keeps the full RFC3339 timestamp with its offset. created_day
  is the calendar day of that timestamp ("2006-01-02") and is what period
  filters compare against, so a job's month never depends on the server's
  time zone. Neither column is touched by UpdateJob.

INDEXES:
  - idx_jobs_created_day: Month and calendar queries (hot path)
  - idx_jobs_wip: WIP number search

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./data/aw.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  tracker := efficiency.NewTracker(store, store)

SEE ALSO:
  - efficiency/store.go: Interface definitions
  - factory/settings.go: Settings document format
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/aw-tracker/efficiency"
	"github.com/warp/aw-tracker/factory"
)

// ErrDuplicateJob is returned when a job ID is saved twice.
var ErrDuplicateJob = errors.New("duplicate job id")

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ efficiency.JobStore      = (*Store)(nil)
	_ efficiency.SettingsStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to ":memory:" is its own database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection. Used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		wip_number TEXT NOT NULL,
		vehicle_registration TEXT NOT NULL DEFAULT '',
		aw_value INTEGER NOT NULL CHECK (aw_value >= 0),
		date_created TEXT NOT NULL,
		created_day TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_jobs_created_day
		ON jobs(created_day, date_created);
	CREATE INDEX IF NOT EXISTS idx_jobs_wip
		ON jobs(wip_number);

	-- Single-row settings document
	CREATE TABLE IF NOT EXISTS settings (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		document TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Monthly boundary resets
	CREATE TABLE IF NOT EXISTS month_checks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		previous_month INTEGER NOT NULL,
		previous_year INTEGER NOT NULL,
		current_month INTEGER NOT NULL,
		current_year INTEGER NOT NULL,
		checked_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// JOB STORE (efficiency.JobStore interface)
// =============================================================================

const jobColumns = "id, wip_number, vehicle_registration, aw_value, date_created, notes"

// SaveJob inserts a new job.
func (s *Store) SaveJob(ctx context.Context, job efficiency.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO jobs
		(id, wip_number, vehicle_registration, aw_value, date_created, created_day, notes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		job.ID,
		job.WIPNumber,
		job.VehicleRegistration,
		job.AWValue,
		job.DateCreated.Format(time.RFC3339Nano),
		job.Day().String(),
		job.Notes,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateJob
		}
		return fmt.Errorf("failed to save job: %w", err)
	}
	return nil
}

// GetJob retrieves a job by ID.
func (s *Store) GetJob(ctx context.Context, id string) (efficiency.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return efficiency.Job{}, efficiency.ErrJobNotFound
	}
	if err != nil {
		return efficiency.Job{}, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return job, nil
}

// ListJobs returns jobs matching filter ordered by creation time.
func (s *Store) ListJobs(ctx context.Context, filter efficiency.JobFilter) ([]efficiency.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + escapeLike(strings.ToUpper(q)) + "%"
		where = append(where, `(UPPER(wip_number) LIKE ? ESCAPE '\' OR UPPER(vehicle_registration) LIKE ? ESCAPE '\')`)
		args = append(args, like, like)
	}
	if p := filter.Period; p != nil {
		where = append(where, "created_day BETWEEN ? AND ?")
		args = append(args, p.Start.String(), p.End.String())
	}

	query := "SELECT " + jobColumns + " FROM jobs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_day, date_created, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []efficiency.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Text ordering breaks down across UTC offsets.
	sort.SliceStable(jobs, func(i, j int) bool {
		return jobs[i].DateCreated.Before(jobs[j].DateCreated)
	})
	return jobs, nil
}

// UpdateJob rewrites the editable fields. ID and creation time are kept.
func (s *Store) UpdateJob(ctx context.Context, job efficiency.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET wip_number = ?, vehicle_registration = ?, aw_value = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		job.WIPNumber,
		job.VehicleRegistration,
		job.AWValue,
		job.Notes,
		time.Now().UTC().Format(time.RFC3339),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update job %s: %w", job.ID, err)
	}
	return requireOneRow(res)
}

// DeleteJob removes a job.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete job %s: %w", id, err)
	}
	return requireOneRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (efficiency.Job, error) {
	var j efficiency.Job
	var created string
	if err := row.Scan(&j.ID, &j.WIPNumber, &j.VehicleRegistration, &j.AWValue, &created, &j.Notes); err != nil {
		return efficiency.Job{}, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return efficiency.Job{}, fmt.Errorf("job %s: bad date_created %q: %w", j.ID, created, err)
	}
	j.DateCreated = t
	return j, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return efficiency.ErrJobNotFound
	}
	return nil
}

// =============================================================================
// SETTINGS STORE (efficiency.SettingsStore interface)
// =============================================================================

// GetSettings loads the settings document. found is false on a fresh
// database.
func (s *Store) GetSettings(ctx context.Context) (efficiency.Settings, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc string
	err := s.db.QueryRowContext(ctx, "SELECT document FROM settings WHERE id = 1").Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return efficiency.Settings{}, false, nil
	}
	if err != nil {
		return efficiency.Settings{}, false, fmt.Errorf("failed to load settings: %w", err)
	}

	settings, err := factory.ParseSettings([]byte(doc), time.Now())
	if err != nil {
		return efficiency.Settings{}, false, fmt.Errorf("stored settings are invalid: %w", err)
	}
	return settings, true, nil
}

// SaveSettings replaces the settings document.
func (s *Store) SaveSettings(ctx context.Context, settings efficiency.Settings) error {
	doc, err := factory.MarshalSettings(settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (id, document, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		string(doc),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// =============================================================================
// MONTH CHECK AUDIT
// =============================================================================

// MonthCheckRecord is one recorded boundary reset.
type MonthCheckRecord struct {
	ID            int64
	PreviousMonth time.Month
	PreviousYear  int
	CurrentMonth  time.Month
	CurrentYear   int
	CheckedAt     time.Time
}

// RecordMonthCheck stores a reset. Transitions that did not reset are
// ignored.
func (s *Store) RecordMonthCheck(ctx context.Context, tr efficiency.MonthTransition, at time.Time) error {
	if !tr.WasReset {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO month_checks (previous_month, previous_year, current_month, current_year, checked_at)
		VALUES (?, ?, ?, ?, ?)`,
		int(tr.PreviousMonth), tr.PreviousYear, int(tr.CurrentMonth), tr.CurrentYear,
		at.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record month check: %w", err)
	}
	return nil
}

// ListMonthChecks returns recorded resets, most recent first.
func (s *Store) ListMonthChecks(ctx context.Context, limit int) ([]MonthCheckRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, previous_month, previous_year, current_month, current_year, checked_at
		FROM month_checks ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []MonthCheckRecord
	for rows.Next() {
		var r MonthCheckRecord
		var pm, cm int
		var checkedAt string
		if err := rows.Scan(&r.ID, &pm, &r.PreviousYear, &cm, &r.CurrentYear, &checkedAt); err != nil {
			return nil, err
		}
		r.PreviousMonth, r.CurrentMonth = time.Month(pm), time.Month(cm)
		at, err := time.Parse(time.RFC3339, checkedAt)
		if err != nil {
			return nil, fmt.Errorf("month check %d: bad checked_at %q: %w", r.ID, checkedAt, err)
		}
		r.CheckedAt = at
		records = append(records, r)
	}
	return records, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY"))
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
