/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the AW tracker server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, then flags)
  2. Initialize logger and SQLite store
  3. Seed settings from AWT_SETTINGS_FILE when nothing is stored yet
  4. Run the month boundary check once, then start the scheduler
  5. Configure HTTP router and start server with graceful shutdown

COMMAND-LINE FLAGS (override the environment):
  -port      HTTP server port
  -db        SQLite database path, ":memory:" for an in-memory database
  -settings  Settings document used to seed a fresh database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the month boundary scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  ./server -db="./data/aw.db"
  ./server -db=":memory:" -settings=./settings.yaml
  AWT_LOG_FORMAT=json ./server -port=3000

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/aw-tracker/api"
	"github.com/warp/aw-tracker/config"
	"github.com/warp/aw-tracker/efficiency"
	"github.com/warp/aw-tracker/factory"
	"github.com/warp/aw-tracker/logger"
	"github.com/warp/aw-tracker/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "aw-tracker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Flags
	flag.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path")
	flag.StringVar(&cfg.SettingsFile, "settings", cfg.SettingsFile, "settings document used to seed a fresh database")
	flag.Parse()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(logger.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	weekStart, err := cfg.WeekStartDay()
	if err != nil {
		return err
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()
	log.WithField("db", cfg.DBPath).Info("database ready")

	tracker := efficiency.NewTracker(store, store)
	if err := seedSettings(context.Background(), tracker, store, cfg.SettingsFile, log); err != nil {
		return err
	}

	handler := api.NewHandler(tracker, log)
	handler.WeekStart = weekStart
	handler.Recorder = store
	handler.Pinger = store

	scheduler := api.NewMonthBoundaryScheduler(handler)
	scheduler.CheckInterval = cfg.BoundaryCheckInterval()
	scheduler.Enabled = cfg.BoundaryCheckMinutes > 0
	if !scheduler.Enabled {
		scheduler.RunNow()
	}
	scheduler.Start()
	defer scheduler.Stop()

	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: cfg.AllowedOrigins()})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down server")
	case err := <-errc:
		return fmt.Errorf("server failed: %w", err)
	}

	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}

// seedSettings stores the settings file on a fresh database. An existing
// settings row always wins over the file.
func seedSettings(ctx context.Context, tracker *efficiency.Tracker, store *sqlite.Store, path string, log logrus.FieldLogger) error {
	if path == "" {
		return nil
	}
	_, found, err := store.GetSettings(ctx)
	if err != nil {
		return fmt.Errorf("read settings: %w", err)
	}
	if found {
		log.WithField("file", path).Debug("settings already stored, seed file ignored")
		return nil
	}
	s, err := factory.LoadSettingsFile(path, tracker.Now())
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	if err := tracker.UpdateSettings(ctx, s); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	log.WithField("file", path).Info("settings seeded")
	return nil
}
