/*
Package config loads the service configuration.

SOURCES (later wins):
  1. Defaults from the envDefault struct tags
  2. A .env file, when present (AWT_ENV_FILE overrides the path)
  3. Process environment
  4. Command-line flags (cmd/server only)

VARIABLES:
  AWT_PORT                   HTTP port (8080)
  AWT_DB_PATH                SQLite path, ":memory:" allowed (aw-tracker.db)
  AWT_LOG_LEVEL              logrus level (info)
  AWT_LOG_FORMAT             text | json (text)
  AWT_LOG_FILE               rotate logs into this file as well as stdout
  AWT_SETTINGS_FILE          seed settings document (.yaml/.yml/.json)
  AWT_CORS_ORIGINS           comma separated allowed origins
  AWT_BOUNDARY_CHECK_MINUTES month boundary check interval, 0 disables (15)
  AWT_WEEK_START             default first day of calendar weeks (monday)
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
	"github.com/warp/aw-tracker/factory"
	"github.com/warp/aw-tracker/generic"
)

// Configuration holds everything the binaries need to start.
type Configuration struct {
	Port   int    `env:"AWT_PORT" envDefault:"8080"`
	DBPath string `env:"AWT_DB_PATH" envDefault:"aw-tracker.db"`

	LogLevel  string `env:"AWT_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"AWT_LOG_FORMAT" envDefault:"text"`
	LogFile   string `env:"AWT_LOG_FILE"`

	SettingsFile string `env:"AWT_SETTINGS_FILE"`

	CORSOrigins string `env:"AWT_CORS_ORIGINS" envDefault:"http://localhost:5173,http://localhost:8080"`

	BoundaryCheckMinutes int    `env:"AWT_BOUNDARY_CHECK_MINUTES" envDefault:"15"`
	WeekStart            string `env:"AWT_WEEK_START" envDefault:"monday"`
}

// Load reads the optional .env file then the environment.
func Load() (*Configuration, error) {
	path := os.Getenv("AWT_ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	cfg := &Configuration{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env parsing cannot.
func (c *Configuration) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return generic.InvalidConfig("AWT_PORT", "must be 1-65535, got %d", c.Port)
	}
	if c.DBPath == "" {
		return generic.InvalidConfig("AWT_DB_PATH", "must not be empty")
	}
	if c.BoundaryCheckMinutes < 0 {
		return generic.InvalidConfig("AWT_BOUNDARY_CHECK_MINUTES", "must not be negative, got %d", c.BoundaryCheckMinutes)
	}
	if _, err := c.WeekStartDay(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return generic.InvalidConfig("AWT_LOG_FORMAT", "must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// AllowedOrigins splits CORSOrigins.
func (c *Configuration) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// BoundaryCheckInterval is zero when the scheduler is disabled.
func (c *Configuration) BoundaryCheckInterval() time.Duration {
	return time.Duration(c.BoundaryCheckMinutes) * time.Minute
}

func (c *Configuration) WeekStartDay() (time.Weekday, error) {
	d, ok := factory.ParseWeekday(c.WeekStart)
	if !ok {
		return 0, generic.InvalidConfig("AWT_WEEK_START", "unknown weekday %q", c.WeekStart)
	}
	return d, nil
}

func (c *Configuration) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
