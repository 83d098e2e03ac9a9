// Package config loads the crawler's configuration from file and
// environment via viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/syllabus-crawler/internal/catalog"
	"github.com/JakeFAU/syllabus-crawler/internal/crawler"
)

// Config is the root configuration.
type Config struct {
	Crawler CrawlerConfig `mapstructure:"crawler"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	Storage StorageConfig `mapstructure:"storage"`
	DB      DBConfig      `mapstructure:"db"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// CrawlerConfig controls discovery and fetching.
type CrawlerConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Workers  int    `mapstructure:"workers"`
	Strategy string `mapstructure:"strategy"`
	// Year overrides the academic year; 0 derives it from the clock.
	Year        int      `mapstructure:"year"`
	Departments []string `mapstructure:"departments"`
	// MaxFailureRatio is the largest share of failed courses that still
	// allows publishing.
	MaxFailureRatio   float64 `mapstructure:"max_failure_ratio"`
	RunTimeoutSeconds int     `mapstructure:"run_timeout_seconds"`
	RateLimitRPS      float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst    int     `mapstructure:"rate_limit_burst"`
	// SelectorsFile replaces the embedded selector table.
	SelectorsFile string `mapstructure:"selectors_file"`
}

// HTTPConfig controls individual requests.
type HTTPConfig struct {
	TimeoutSeconds      int `mapstructure:"timeout_seconds"`
	MaxAttempts         int `mapstructure:"max_attempts"`
	BackoffInitialMs    int `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs        int `mapstructure:"backoff_max_ms"`
	MaxIdleConnsPerHost int `mapstructure:"max_idle_conns_per_host"`
}

// Storage backends.
const (
	BackendGCS    = "gcs"
	BackendLocal  = "local"
	BackendMemory = "memory"
)

// StorageConfig selects where artifacts are published.
type StorageConfig struct {
	Backend             string `mapstructure:"backend"`
	GCSBucket           string `mapstructure:"gcs_bucket"`
	LocalDir            string `mapstructure:"local_dir"`
	Prefix              string `mapstructure:"prefix"`
	SignedURLTTLSeconds int    `mapstructure:"signed_url_ttl_seconds"`
	SignerEmail         string `mapstructure:"signer_email"`
	SignerKeyFile       string `mapstructure:"signer_key_file"`
}

// DBConfig points at the downstream course store.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int    `mapstructure:"max_conns"`
	MinConns int    `mapstructure:"min_conns"`
}

// PubSubConfig enables run status notifications when TopicName is set.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
}

// MetricsConfig exposes Prometheus metrics when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load reads path (optional) and SYLLABUS_* environment overrides.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SYLLABUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.base_url", catalog.DefaultBaseURL)
	v.SetDefault("crawler.workers", 8)
	v.SetDefault("crawler.strategy", string(crawler.StrategyWorkers))
	v.SetDefault("crawler.year", 0)
	v.SetDefault("crawler.departments", []string{})
	v.SetDefault("crawler.max_failure_ratio", 0.5)
	v.SetDefault("crawler.run_timeout_seconds", 1800)
	v.SetDefault("crawler.rate_limit_rps", 0)
	v.SetDefault("crawler.rate_limit_burst", 1)
	v.SetDefault("crawler.selectors_file", "")
	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("http.backoff_initial_ms", 250)
	v.SetDefault("http.backoff_max_ms", 5000)
	v.SetDefault("http.max_idle_conns_per_host", 16)
	v.SetDefault("storage.backend", BackendLocal)
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.local_dir", "out")
	v.SetDefault("storage.prefix", "syllabus/")
	v.SetDefault("storage.signed_url_ttl_seconds", 0)
	v.SetDefault("storage.signer_email", "")
	v.SetDefault("storage.signer_key_file", "")
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "courses")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("db.min_conns", 0)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 5)
	v.SetDefault("logging.max_age_days", 30)
	v.SetDefault("metrics.addr", "")
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.Crawler.Workers <= 0 {
		return fmt.Errorf("crawler.workers must be > 0")
	}
	if _, err := crawler.ParseStrategy(c.Crawler.Strategy); err != nil {
		return fmt.Errorf("crawler.strategy: %w", err)
	}
	if c.Crawler.MaxFailureRatio < 0 || c.Crawler.MaxFailureRatio > 1 {
		return fmt.Errorf("crawler.max_failure_ratio must be within [0, 1]")
	}
	if c.Crawler.RunTimeoutSeconds < 0 {
		return fmt.Errorf("crawler.run_timeout_seconds must be >= 0")
	}
	if c.Crawler.RateLimitRPS < 0 {
		return fmt.Errorf("crawler.rate_limit_rps must be >= 0")
	}
	for _, dept := range c.Crawler.Departments {
		if _, err := catalog.LookupSchool(dept); err != nil {
			return fmt.Errorf("crawler.departments: %w", err)
		}
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxAttempts <= 0 {
		return fmt.Errorf("http.max_attempts must be > 0")
	}
	switch c.Storage.Backend {
	case BackendGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs backend")
		}
	case BackendLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir must be set for the local backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("storage.backend %q is not one of gcs, local, memory", c.Storage.Backend)
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is")
	}
	return nil
}

// RunTimeout bounds one department run; zero disables the bound.
func (c Config) RunTimeout() time.Duration {
	return time.Duration(c.Crawler.RunTimeoutSeconds) * time.Second
}

// HTTPTimeout bounds one request.
func (c Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// Backoff returns the initial and maximum retry delays.
func (c Config) Backoff() (time.Duration, time.Duration) {
	return time.Duration(c.HTTP.BackoffInitialMs) * time.Millisecond,
		time.Duration(c.HTTP.BackoffMaxMs) * time.Millisecond
}

// SignedURLTTL returns the signed URL lifetime; zero disables signing.
func (c Config) SignedURLTTL() time.Duration {
	return time.Duration(c.Storage.SignedURLTTLSeconds) * time.Second
}
