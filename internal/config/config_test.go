package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, uint64(42), cfg.Ledger.Seed)
	assert.Equal(t, "2024-01-01", cfg.Ledger.StartDate)
	assert.Equal(t, "2025-12-31", cfg.Ledger.EndDate)
	assert.Equal(t, 300, cfg.Ledger.Customers)
	assert.Equal(t, 8, cfg.Ledger.Stores)
	assert.InDelta(t, 0.4, cfg.Ledger.ActiveFraction, 0.001)
	assert.Equal(t, 4, cfg.Segment.Clusters)
	assert.Equal(t, 10, cfg.Segment.Restarts)
	assert.Equal(t, 300, cfg.Segment.MaxIterations)
	assert.Equal(t, "none", cfg.Store.Driver)
	assert.Equal(t, []string{"parquet"}, cfg.Export.Formats)
	assert.Equal(t, "exports/", cfg.Export.Prefix)
	assert.Equal(t, 8050, cfg.Server.Port)
	assert.InDelta(t, 20.0, cfg.Server.RateLimit, 0.001)
	assert.Equal(t, 40, cfg.Server.RateBurst)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	require.NoError(t, cfg.Validate())
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
ledger:
  customers: 50
  start_date: "2024-03-01"
  end_date: "2024-03-31"
store:
  driver: sqlite
log:
  level: debug
  format: console
export:
  formats: [parquet, xlsx]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Ledger.Customers)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, []string{"parquet", "xlsx"}, cfg.Export.Formats)
	// Defaults still apply for unset values
	assert.Equal(t, 8, cfg.Ledger.Stores)

	lc, err := cfg.LedgerConfig()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), lc.Start)
	assert.Equal(t, 31, lc.Days())
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("SEGMENT_STORE_DRIVER", "postgres")
	t.Setenv("SEGMENT_LOG_LEVEL", "warn")
	t.Setenv("SEGMENT_LEDGER_SEED", "7")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, uint64(7), cfg.Ledger.Seed)
}

func TestValidate(t *testing.T) {
	chdirTemp(t)

	tests := []struct {
		name   string
		mutate func(*Config)
		msg    string
	}{
		{"bad date", func(c *Config) { c.Ledger.StartDate = "yesterday" }, "ledger.start_date"},
		{"inverted range", func(c *Config) { c.Ledger.EndDate = "2023-01-01" }, "is before start date"},
		{"zero customers", func(c *Config) { c.Ledger.Customers = 0 }, "customers must be positive"},
		{"clusters", func(c *Config) { c.Segment.Clusters = 5 }, "segment.clusters must be 4"},
		{"restarts", func(c *Config) { c.Segment.Restarts = 0 }, "segment.restarts must be positive"},
		{"driver", func(c *Config) { c.Store.Driver = "mysql" }, "unsupported store driver"},
		{"postgres url", func(c *Config) { c.Store.Driver = "postgres" }, "database_url is required"},
		{"format", func(c *Config) { c.Export.Formats = []string{"csv"} }, "unsupported export format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestKMeansAndRetryConversion(t *testing.T) {
	chdirTemp(t)
	cfg, err := Load()
	require.NoError(t, err)

	km := cfg.KMeansConfig()
	assert.Equal(t, 4, km.K)
	assert.Equal(t, uint64(42), km.Seed)
	assert.Equal(t, 10, km.Restarts)

	rp := cfg.RetryPolicy()
	assert.Equal(t, 3, rp.MaxAttempts)
	assert.Equal(t, 200*time.Millisecond, rp.InitialBackoff)
	assert.Equal(t, 5*time.Second, rp.MaxBackoff)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
}

func TestInitLoggerBadLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "loud", Format: "json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse log level")
}
