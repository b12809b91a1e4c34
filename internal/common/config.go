package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Vendor  VendorConfig  `mapstructure:"vendor"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Batch   BatchConfig   `mapstructure:"batch"`
	Extract ExtractConfig `mapstructure:"extract"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// Vendor backends.
const (
	BackendDocIntel = "docintel"
	BackendVision   = "vision"
)

// VendorConfig holds document analysis service settings
type VendorConfig struct {
	Backend           string        `mapstructure:"backend"`
	Endpoint          string        `mapstructure:"endpoint"`
	APIKey            string        `mapstructure:"api_key"`
	APIVersion        string        `mapstructure:"api_version"`
	Locale            string        `mapstructure:"locale"`
	Timeout           time.Duration `mapstructure:"timeout"`
	PollInterval      time.Duration `mapstructure:"poll_interval"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Burst             int           `mapstructure:"burst"`
	BreakerFailures   uint32        `mapstructure:"breaker_failures"`
	BreakerCooldown   time.Duration `mapstructure:"breaker_cooldown"`
	EnhanceImages     bool          `mapstructure:"enhance_images"`
}

// RetryConfig holds the per-call retry policy
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// BatchConfig holds batch processing settings
type BatchConfig struct {
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

// ExtractConfig holds the line-item heuristics thresholds
type ExtractConfig struct {
	AmountMin         float64 `mapstructure:"amount_min"`
	QuantityMax       float64 `mapstructure:"quantity_max"`
	PageLineAmountMin float64 `mapstructure:"page_line_amount_min"`
	TaxRate           float64 `mapstructure:"tax_rate"`
	MinConfidence     float64 `mapstructure:"min_confidence"`
}

// Archive backends.
const (
	ArchiveNone     = "none"
	ArchivePostgres = "postgres"
	ArchiveSQLite   = "sqlite"
	ArchiveGCS      = "gcs"
)

// ArchiveConfig holds blob archive settings
type ArchiveConfig struct {
	Backend          string        `mapstructure:"backend"`
	DSN              string        `mapstructure:"dsn"`
	Bucket           string        `mapstructure:"bucket"`
	Prefix           string        `mapstructure:"prefix"`
	MaxConns         int32         `mapstructure:"max_conns"`
	MinConns         int32         `mapstructure:"min_conns"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `mapstructure:"max_conn_idle_time"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
}

// MetricsConfig holds the Prometheus listener settings
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoadConfig loads configuration from defaults, an optional YAML file and the environment.
// Environment variables use the DOCEXTRACT_ prefix (DOCEXTRACT_VENDOR_ENDPOINT, ...);
// AZURE_FORM_RECOGNIZER_ENDPOINT / AZURE_FORM_RECOGNIZER_KEY and DB_URL are honoured too.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("DOCEXTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string][]string{
		"vendor.endpoint": {"DOCEXTRACT_VENDOR_ENDPOINT", "AZURE_FORM_RECOGNIZER_ENDPOINT"},
		"vendor.api_key":  {"DOCEXTRACT_VENDOR_API_KEY", "AZURE_FORM_RECOGNIZER_KEY"},
		"archive.dsn":     {"DOCEXTRACT_ARCHIVE_DSN", "DB_URL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("vendor.backend", BackendDocIntel)
	v.SetDefault("vendor.endpoint", "")
	v.SetDefault("vendor.api_key", "")
	v.SetDefault("vendor.api_version", "2023-07-31")
	v.SetDefault("vendor.locale", "ja-JP")
	v.SetDefault("vendor.timeout", 60*time.Second)
	v.SetDefault("vendor.poll_interval", time.Second)
	v.SetDefault("vendor.requests_per_minute", 0)
	v.SetDefault("vendor.burst", 1)
	v.SetDefault("vendor.breaker_failures", 10)
	v.SetDefault("vendor.breaker_cooldown", 30*time.Second)
	v.SetDefault("vendor.enhance_images", false)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", time.Second)
	v.SetDefault("retry.max_delay", 10*time.Second)

	v.SetDefault("batch.max_concurrent", 5)

	v.SetDefault("extract.amount_min", 10000.0)
	v.SetDefault("extract.quantity_max", 100.0)
	v.SetDefault("extract.page_line_amount_min", 1000.0)
	v.SetDefault("extract.tax_rate", 10.0)
	v.SetDefault("extract.min_confidence", 0.8)

	v.SetDefault("archive.backend", ArchiveNone)
	v.SetDefault("archive.dsn", "")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "originals/")
	v.SetDefault("archive.max_conns", 10)
	v.SetDefault("archive.min_conns", 1)
	v.SetDefault("archive.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("archive.max_conn_idle_time", 5*time.Minute)
	v.SetDefault("archive.dial_timeout", 3*time.Second)
	v.SetDefault("archive.statement_timeout", 0)

	v.SetDefault("metrics.addr", "")
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("vendor.backend", c.Vendor.Backend, OneOf(BackendDocIntel, BackendVision)).
		Field("vendor.endpoint", c.Vendor.Endpoint, Required, HTTPURL).
		Field("vendor.api_key", c.Vendor.APIKey, Required).
		Field("vendor.timeout", c.Vendor.Timeout, Positive).
		Field("retry.max_attempts", c.Retry.MaxAttempts, Positive).
		Field("retry.base_delay", c.Retry.BaseDelay, Positive).
		Field("retry.max_delay", c.Retry.MaxDelay, Positive).
		Field("batch.max_concurrent", c.Batch.MaxConcurrent, Positive).
		Field("archive.backend", c.Archive.Backend, OneOf(ArchiveNone, ArchivePostgres, ArchiveSQLite, ArchiveGCS))

	switch c.Archive.Backend {
	case ArchivePostgres, ArchiveSQLite:
		v.Field("archive.dsn", c.Archive.DSN, Required)
	case ArchiveGCS:
		v.Field("archive.bucket", c.Archive.Bucket, Required)
	}
	return ValidateAndReturnError(v)
}
