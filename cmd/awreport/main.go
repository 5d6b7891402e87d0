// Command awreport prints the month summary from the tracker database.
//
//	awreport                      current month, as of today
//	awreport -month 2025-03       a past month, as of its last day
//	awreport -jobs -plain         include the job list, no colours
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/warp/aw-tracker/config"
	"github.com/warp/aw-tracker/efficiency"
	"github.com/warp/aw-tracker/generic"
	"github.com/warp/aw-tracker/report"
	"github.com/warp/aw-tracker/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "awreport: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	month := flag.String("month", "", "month to report (YYYY-MM), default current")
	withJobs := flag.Bool("jobs", false, "list the month's jobs")
	plain := flag.Bool("plain", false, "disable colours")
	flag.Parse()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	tracker := efficiency.NewTracker(store, store)
	asOf, err := reportDay(*month, generic.DateOf(tracker.Now()))
	if err != nil {
		return err
	}

	ctx := context.Background()
	stats, err := tracker.MonthlyStats(ctx, asOf)
	if err != nil {
		return err
	}
	settings, err := tracker.CurrentSettings(ctx)
	if err != nil {
		return err
	}

	sum := report.Summary{Stats: stats, Formula: settings.Formula}
	if *withJobs {
		sum.Jobs, err = tracker.ListJobs(ctx, efficiency.JobFilter{Period: &stats.Period})
		if err != nil {
			return err
		}
	}

	theme := report.DefaultTheme()
	if *plain {
		theme = report.PlainTheme()
	}
	fmt.Print(report.Render(sum, theme))
	return nil
}

// reportDay is today for the current month, otherwise the month's last day.
func reportDay(month string, today generic.TimePoint) (generic.TimePoint, error) {
	if month == "" {
		return today, nil
	}
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return generic.TimePoint{}, fmt.Errorf("invalid -month %q (use YYYY-MM)", month)
	}
	if t.Year() == today.Year() && t.Month() == today.Month() {
		return today, nil
	}
	return generic.EndOfMonth(t.Year(), t.Month()), nil
}
