/*
scheduler.go - Background monthly boundary check

PURPOSE:
  The absence adjustment must reset when a new month starts even if nobody
  opens the dashboard. This scheduler runs the same boundary check as
  POST /api/settings/month-check on a fixed interval.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Checks once immediately on Start
  - Goes through Handler.checkMonthBoundary, so it shares the Tracker's
    serialisation with the HTTP endpoint and cannot double-reset

CONFIGURATION:
  - CheckInterval: How often to check (default: 15 minutes)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewMonthBoundaryScheduler(handler)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: MonthCheck endpoint (client-triggered check)
  - efficiency/boundary.go: The transition itself
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/aw-tracker/efficiency"
)

// MonthBoundaryScheduler periodically runs the monthly boundary check.
type MonthBoundaryScheduler struct {
	Handler       *Handler
	CheckInterval time.Duration
	Enabled       bool

	// Timeout bounds a single check.
	Timeout time.Duration

	log    logrus.FieldLogger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewMonthBoundaryScheduler creates a new scheduler.
func NewMonthBoundaryScheduler(handler *Handler) *MonthBoundaryScheduler {
	return &MonthBoundaryScheduler{
		Handler:       handler,
		CheckInterval: 15 * time.Minute,
		Enabled:       true,
		Timeout:       30 * time.Second,
		log:           handler.Log.WithField("component", "month_boundary"),
	}
}

// Start begins the scheduler. Calling Start on a running scheduler does
// nothing.
func (s *MonthBoundaryScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled || s.CheckInterval <= 0 {
		s.log.Info("scheduler disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	s.log.WithField("interval", s.CheckInterval.String()).Info("scheduler started")
}

// Stop stops the scheduler and waits for a running check to finish.
func (s *MonthBoundaryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.log.Info("scheduler stopped")
}

func (s *MonthBoundaryScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	// Run immediately on start
	s.RunNow()

	for {
		select {
		case <-ticker.C:
			s.RunNow()
		case <-stop:
			return
		}
	}
}

// RunNow performs one check synchronously.
func (s *MonthBoundaryScheduler) RunNow() (efficiency.MonthTransition, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()

	tr, err := s.Handler.checkMonthBoundary(ctx, s.log)
	if err != nil {
		s.log.WithError(err).Error("month boundary check failed")
		return efficiency.MonthTransition{}, err
	}
	if !tr.WasReset {
		s.log.WithField("month", monthLabel(tr.CurrentYear, tr.CurrentMonth)).Debug("month unchanged")
	}
	return tr, nil
}
