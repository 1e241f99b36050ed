package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/segment-cli/internal/ledger"
	"github.com/sells-group/segment-cli/internal/model"
	"github.com/sells-group/segment-cli/internal/resilience"
	"github.com/sells-group/segment-cli/internal/segment"
)

// Config holds the full application configuration.
type Config struct {
	Ledger  LedgerConfig  `yaml:"ledger" mapstructure:"ledger"`
	Segment SegmentConfig `yaml:"segment" mapstructure:"segment"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Retry   RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// LedgerConfig configures synthetic ledger generation.
type LedgerConfig struct {
	Seed           uint64  `yaml:"seed" mapstructure:"seed"`
	StartDate      string  `yaml:"start_date" mapstructure:"start_date"`
	EndDate        string  `yaml:"end_date" mapstructure:"end_date"`
	Customers      int     `yaml:"customers" mapstructure:"customers"`
	Stores         int     `yaml:"stores" mapstructure:"stores"`
	ActiveFraction float64 `yaml:"active_fraction" mapstructure:"active_fraction"`
}

// SegmentConfig configures customer clustering.
type SegmentConfig struct {
	Clusters      int     `yaml:"clusters" mapstructure:"clusters"`
	Seed          uint64  `yaml:"seed" mapstructure:"seed"`
	Restarts      int     `yaml:"restarts" mapstructure:"restarts"`
	MaxIterations int     `yaml:"max_iterations" mapstructure:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance" mapstructure:"tolerance"`
}

// StoreConfig configures the table sink.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // none | sqlite | postgres
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ExportConfig configures table exports to a blob bucket.
type ExportConfig struct {
	BucketURL string   `yaml:"bucket_url" mapstructure:"bucket_url"`
	Prefix    string   `yaml:"prefix" mapstructure:"prefix"`
	Formats   []string `yaml:"formats" mapstructure:"formats"`
}

// ServerConfig configures the read API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	RateLimit   float64  `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateBurst   int      `yaml:"rate_burst" mapstructure:"rate_burst"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// RetryConfig configures retries of sink and export writes.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

var (
	storeDrivers  = map[string]bool{"none": true, "sqlite": true, "postgres": true}
	exportFormats = map[string]bool{"parquet": true, "xlsx": true}
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SEGMENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("ledger.seed", 42)
	v.SetDefault("ledger.start_date", "2024-01-01")
	v.SetDefault("ledger.end_date", "2025-12-31")
	v.SetDefault("ledger.customers", 300)
	v.SetDefault("ledger.stores", 8)
	v.SetDefault("ledger.active_fraction", 0.4)
	v.SetDefault("segment.clusters", model.SegmentCount)
	v.SetDefault("segment.seed", 42)
	v.SetDefault("segment.restarts", 10)
	v.SetDefault("segment.max_iterations", 300)
	v.SetDefault("segment.tolerance", 1e-4)
	v.SetDefault("store.driver", "none")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("export.bucket_url", "file:///tmp/segment-cli")
	v.SetDefault("export.prefix", "exports/")
	v.SetDefault("export.formats", []string{"parquet"})
	v.SetDefault("server.port", 8050)
	v.SetDefault("server.rate_limit", 20.0)
	v.SetDefault("server.rate_burst", 40)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_backoff_ms", 200)
	v.SetDefault("retry.max_backoff_ms", 5000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks settings that every command depends on.
func (c *Config) Validate() error {
	lc, err := c.LedgerConfig()
	if err != nil {
		return err
	}
	if err := lc.Validate(); err != nil {
		return eris.Wrap(err, "config: ledger")
	}
	if c.Segment.Clusters != model.SegmentCount {
		return eris.Errorf("config: segment.clusters must be %d, got %d", model.SegmentCount, c.Segment.Clusters)
	}
	if c.Segment.Restarts <= 0 {
		return eris.Errorf("config: segment.restarts must be positive, got %d", c.Segment.Restarts)
	}
	if !storeDrivers[c.Store.Driver] {
		return eris.Errorf("config: unsupported store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == "postgres" && c.Store.DatabaseURL == "" {
		return eris.New("config: store.database_url is required for postgres (SEGMENT_STORE_DATABASE_URL)")
	}
	for _, f := range c.Export.Formats {
		if !exportFormats[f] {
			return eris.Errorf("config: unsupported export format %q", f)
		}
	}
	return nil
}

// LedgerConfig converts the ledger section into generator settings.
func (c *Config) LedgerConfig() (ledger.Config, error) {
	start, err := ledger.ParseDate(c.Ledger.StartDate)
	if err != nil {
		return ledger.Config{}, eris.Wrap(err, "config: ledger.start_date")
	}
	end, err := ledger.ParseDate(c.Ledger.EndDate)
	if err != nil {
		return ledger.Config{}, eris.Wrap(err, "config: ledger.end_date")
	}
	return ledger.Config{
		Seed:           c.Ledger.Seed,
		Start:          start,
		End:            end,
		Customers:      c.Ledger.Customers,
		Stores:         c.Ledger.Stores,
		ActiveFraction: c.Ledger.ActiveFraction,
	}, nil
}

// KMeansConfig converts the segment section into clustering settings.
func (c *Config) KMeansConfig() segment.KMeansConfig {
	return segment.KMeansConfig{
		K:             c.Segment.Clusters,
		Seed:          c.Segment.Seed,
		Restarts:      c.Segment.Restarts,
		MaxIterations: c.Segment.MaxIterations,
		Tolerance:     c.Segment.Tolerance,
	}
}

// RetryPolicy converts the retry section into a resilience policy.
func (c *Config) RetryPolicy() resilience.RetryConfig {
	return resilience.FromRetryConfig(c.Retry.MaxAttempts, c.Retry.InitialBackoffMs, c.Retry.MaxBackoffMs)
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
