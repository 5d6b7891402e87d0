package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/aw-tracker/config"
	"github.com/warp/aw-tracker/generic"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AWT_ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "aw-tracker.db", cfg.DBPath)
	assert.Equal(t, 15*time.Minute, cfg.BoundaryCheckInterval())
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:8080"}, cfg.AllowedOrigins())
	day, err := cfg.WeekStartDay()
	require.NoError(t, err)
	assert.Equal(t, time.Monday, day)
}

func TestLoad_EnvFileAndOverrides(t *testing.T) {
	// GIVEN: a .env file and one variable set in the process environment
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("AWT_PORT=9090\nAWT_WEEK_START=sunday\nAWT_LOG_FORMAT=json\n"), 0o600))
	t.Setenv("AWT_ENV_FILE", path)
	t.Setenv("AWT_PORT", "7070")
	t.Setenv("AWT_CORS_ORIGINS", " https://a.example , https://b.example ")
	// godotenv.Load sets variables; make sure they are cleared afterwards
	t.Setenv("AWT_WEEK_START", "")
	os.Unsetenv("AWT_WEEK_START")
	t.Setenv("AWT_LOG_FORMAT", "")
	os.Unsetenv("AWT_LOG_FORMAT")

	cfg, err := config.Load()

	// THEN: the process environment wins over the file
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins())
	day, err := cfg.WeekStartDay()
	require.NoError(t, err)
	assert.Equal(t, time.Sunday, day)
}

func TestValidate(t *testing.T) {
	base := func() *config.Configuration {
		return &config.Configuration{Port: 8080, DBPath: ":memory:", LogFormat: "text", WeekStart: "monday"}
	}
	require.NoError(t, base().Validate())

	tests := []struct {
		name string
		mod  func(*config.Configuration)
	}{
		{"port", func(c *config.Configuration) { c.Port = 0 }},
		{"db path", func(c *config.Configuration) { c.DBPath = "" }},
		{"interval", func(c *config.Configuration) { c.BoundaryCheckMinutes = -1 }},
		{"week start", func(c *config.Configuration) { c.WeekStart = "someday" }},
		{"log format", func(c *config.Configuration) { c.LogFormat = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mod(c)
			assert.ErrorIs(t, c.Validate(), generic.ErrInvalidConfiguration)
		})
	}
}
