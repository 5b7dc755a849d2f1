// Package config defines the top-level configuration for the watcher and
// provides loading and validation helpers.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure. Fields are populated from a
// YAML file and then optionally overridden by POLYWATCH_* environment
// variables.
type Config struct {
	// WindowMinutes is the lookback window: each cycle fetches trades newer
	// than now minus this many minutes.
	WindowMinutes int `yaml:"window_minutes"`

	// PollIntervalSeconds is the sleep between cycles in loop mode.
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`

	// Addresses are the wallets to watch, processed in this order.
	Addresses []string `yaml:"addresses"`

	Filters  FiltersConfig  `yaml:"filters"`
	API      APIConfig      `yaml:"api"`
	Email    EmailConfig    `yaml:"email"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Telegram TelegramConfig `yaml:"telegram"`
	Discord  DiscordConfig  `yaml:"discord"`
	Dedup    DedupConfig    `yaml:"dedup"`
	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Bus      BusConfig      `yaml:"bus"`
	Feed     FeedConfig     `yaml:"feed"`
	Server   ServerConfig   `yaml:"server"`

	LogLevel string `yaml:"log_level"`
}

// FiltersConfig narrows which trades are worth notifying about.
type FiltersConfig struct {
	// MinSize drops trades below this size. It may be written as a YAML
	// number or a numeric string; anything else fails the load.
	MinSize flexFloat `yaml:"min_size"`

	// Sides keeps only the listed trade sides, compared case-insensitively.
	// Empty means all sides pass.
	Sides []string `yaml:"sides"`
}

// APIConfig holds Polymarket data-api client parameters.
type APIConfig struct {
	BaseURL    string   `yaml:"base_url"`
	Timeout    duration `yaml:"timeout"`
	TradeLimit int      `yaml:"trade_limit"`
	MaxRetries int      `yaml:"max_retries"`
	Backoff    duration `yaml:"backoff"`
}

// EmailConfig holds the email notification settings. SMTP credentials come
// from the environment, not from here.
type EmailConfig struct {
	Enabled       bool   `yaml:"enabled"`
	To            string `yaml:"to"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// SMTPConfig holds the SMTP session behaviour.
type SMTPConfig struct {
	UseSSL      bool     `yaml:"use_ssl"`
	UseSTARTTLS *bool    `yaml:"use_starttls"`
	Timeout     duration `yaml:"timeout"`
}

// STARTTLS reports whether the session should upgrade with STARTTLS. When
// unset it defaults to the opposite of use_ssl.
func (s SMTPConfig) STARTTLS() bool {
	if s.UseSTARTTLS != nil {
		return *s.UseSTARTTLS
	}
	return !s.UseSSL
}

// TelegramConfig gates the Telegram channel. The bot token and chat IDs come
// from the environment; clearing enabled turns the channel off even when the
// environment carries credentials.
type TelegramConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DiscordConfig gates the Discord channel. The webhook URL comes from the
// environment.
type DiscordConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DedupConfig controls cross-run duplicate suppression.
type DedupConfig struct {
	// TTL bounds how long a dedup key stays marked in the seen store and how
	// far back the journal preseeds keys on startup.
	TTL duration `yaml:"ttl"`
}

// RedisConfig holds Redis connection parameters for the persistent seen
// store.
type RedisConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	PoolSize   int    `yaml:"pool_size"`
	MaxRetries int    `yaml:"max_retries"`
	TLSEnabled bool   `yaml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters for the notification
// journal.
type PostgresConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DSN           string `yaml:"dsn"`
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	Database      string `yaml:"database"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	SSLMode       string `yaml:"ssl_mode"`
	PoolMaxConns  int    `yaml:"pool_max_conns"`
	PoolMinConns  int    `yaml:"pool_min_conns"`
	RunMigrations bool   `yaml:"run_migrations"`
}

// ArchiveConfig holds S3-compatible object storage parameters for the trade
// archive. An empty endpoint uses the default AWS resolution.
type ArchiveConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Endpoint       string `yaml:"endpoint"`
	Region         string `yaml:"region"`
	Bucket         string `yaml:"bucket"`
	Prefix         string `yaml:"prefix"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	UseSSL         bool   `yaml:"use_ssl"`
	ForcePathStyle bool   `yaml:"force_path_style"`
}

// BusConfig holds Kafka parameters for publishing notified trades.
type BusConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// FeedConfig holds the optional websocket activity feed that wakes the poll
// loop early instead of waiting out the full interval.
type FeedConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`

	// MinWakeInterval rate-limits feed-triggered early polls. Zero disables
	// the limit.
	MinWakeInterval duration `yaml:"min_wake_interval"`
}

// ServerConfig holds the ops HTTP server parameters. The server only runs in
// loop mode.
type ServerConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// duration is a wrapper around time.Duration that supports YAML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalYAML implements yaml.Unmarshaler so duration strings like "5m" or
// "30s" can be parsed.
func (d *duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(node.Value))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler for round-trip encoding.
func (d duration) MarshalYAML() (any, error) {
	return d.Duration.String(), nil
}

// flexFloat is an optional float that may be written as a YAML number or a
// numeric string. An unparsable value fails the load rather than silently
// disabling the filter.
type flexFloat struct {
	set   bool
	value float64
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (f *flexFloat) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("invalid numeric filter value: %s node", node.Tag)
	}
	s := strings.TrimSpace(node.Value)
	if s == "" || node.Tag == "!!null" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid numeric filter value: %q", node.Value)
	}
	f.set = true
	f.value = v
	return nil
}

// MarshalYAML implements yaml.Marshaler for round-trip encoding.
func (f flexFloat) MarshalYAML() (any, error) {
	if !f.set {
		return nil, nil
	}
	return f.value, nil
}

// Ptr returns the value, or nil when no value was configured.
func (f flexFloat) Ptr() *float64 {
	if !f.set {
		return nil
	}
	v := f.value
	return &v
}

// Defaults returns a Config populated with reasonable default values. These
// match the values in config.example.yaml.
func Defaults() Config {
	return Config{
		WindowMinutes:       20,
		PollIntervalSeconds: 900,
		API: APIConfig{
			BaseURL:    "https://data-api.polymarket.com",
			Timeout:    duration{10 * time.Second},
			TradeLimit: 1000,
			MaxRetries: 1,
			Backoff:    duration{2 * time.Second},
		},
		Email: EmailConfig{
			SubjectPrefix: "[Polymarket Watch]",
		},
		SMTP: SMTPConfig{
			Timeout: duration{30 * time.Second},
		},
		Telegram: TelegramConfig{Enabled: true},
		Discord:  DiscordConfig{Enabled: true},
		Dedup: DedupConfig{
			TTL: duration{24 * time.Hour},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Archive: ArchiveConfig{
			Region:         "us-east-1",
			Bucket:         "polywatch-data",
			Prefix:         "trades",
			UseSSL:         true,
			ForcePathStyle: true,
		},
		Bus: BusConfig{
			Topic: "polywatch.trades",
		},
		Feed: FeedConfig{
			URL:             "wss://ws-live-data.polymarket.com",
			MinWakeInterval: duration{30 * time.Second},
		},
		Server: ServerConfig{
			Enabled: false,
			Port:    8000,
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if c.WindowMinutes <= 0 {
		errs = append(errs, "window_minutes must be > 0")
	}
	if c.PollIntervalSeconds <= 0 {
		errs = append(errs, "poll_interval_seconds must be > 0")
	}
	if len(c.Addresses) == 0 {
		errs = append(errs, "addresses must not be empty")
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.API.BaseURL == "" {
		errs = append(errs, "api: base_url must not be empty")
	}
	if c.API.TradeLimit < 1 {
		errs = append(errs, "api: trade_limit must be >= 1")
	}
	if c.API.MaxRetries < 0 {
		errs = append(errs, "api: max_retries must be >= 0")
	}

	if c.Email.Enabled && strings.TrimSpace(c.Email.To) == "" {
		errs = append(errs, "email: to must not be empty when enabled")
	}
	if c.SMTP.Timeout.Duration <= 0 {
		errs = append(errs, "smtp: timeout must be > 0")
	}

	if c.Dedup.TTL.Duration <= 0 {
		errs = append(errs, "dedup: ttl must be > 0")
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.Archive.Enabled {
		if c.Archive.Bucket == "" {
			errs = append(errs, "archive: bucket must not be empty")
		}
	}

	if c.Bus.Enabled {
		if len(c.Bus.Brokers) == 0 {
			errs = append(errs, "bus: brokers must not be empty")
		}
		if c.Bus.Topic == "" {
			errs = append(errs, "bus: topic must not be empty")
		}
	}

	if c.Feed.Enabled {
		if c.Feed.URL == "" {
			errs = append(errs, "feed: url must not be empty")
		}
		if c.Feed.MinWakeInterval.Duration < 0 {
			errs = append(errs, "feed: min_wake_interval must be >= 0")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
