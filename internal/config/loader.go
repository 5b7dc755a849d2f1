package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML configuration file at path, merges it on top of the
// built-in defaults, applies POLYWATCH_* environment variable overrides, and
// returns the final Config. ${VAR} references inside the file are expanded
// from the environment before parsing. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	// Load .env file if present (silently ignore if missing) so its values
	// are visible to ${VAR} expansion and the overrides below.
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known POLYWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators adjust a deployment without touching the
// YAML file.
func applyEnvOverrides(cfg *Config) {
	// ── Top-level ──
	setInt(&cfg.WindowMinutes, "POLYWATCH_WINDOW_MINUTES")
	setInt(&cfg.PollIntervalSeconds, "POLYWATCH_POLL_INTERVAL_SECONDS")
	setStringSlice(&cfg.Addresses, "POLYWATCH_ADDRESSES")
	setStr(&cfg.LogLevel, "LOG_LEVEL")
	setStr(&cfg.LogLevel, "POLYWATCH_LOG_LEVEL")

	// ── API ──
	setStr(&cfg.API.BaseURL, "POLYWATCH_API_BASE_URL")
	setDuration(&cfg.API.Timeout, "POLYWATCH_API_TIMEOUT")
	setInt(&cfg.API.TradeLimit, "POLYWATCH_API_TRADE_LIMIT")
	setInt(&cfg.API.MaxRetries, "POLYWATCH_API_MAX_RETRIES")
	setDuration(&cfg.API.Backoff, "POLYWATCH_API_BACKOFF")

	// ── Email / SMTP ──
	setBool(&cfg.Email.Enabled, "POLYWATCH_EMAIL_ENABLED")
	setStr(&cfg.Email.To, "POLYWATCH_EMAIL_TO")
	setStr(&cfg.Email.SubjectPrefix, "POLYWATCH_EMAIL_SUBJECT_PREFIX")
	setBool(&cfg.SMTP.UseSSL, "POLYWATCH_SMTP_USE_SSL")
	setBoolPtr(&cfg.SMTP.UseSTARTTLS, "POLYWATCH_SMTP_USE_STARTTLS")
	setDuration(&cfg.SMTP.Timeout, "POLYWATCH_SMTP_TIMEOUT")

	// ── Chat channels ──
	setBool(&cfg.Telegram.Enabled, "POLYWATCH_TELEGRAM_ENABLED")
	setBool(&cfg.Discord.Enabled, "POLYWATCH_DISCORD_ENABLED")

	// ── Dedup / Redis ──
	setDuration(&cfg.Dedup.TTL, "POLYWATCH_DEDUP_TTL")
	setBool(&cfg.Redis.Enabled, "POLYWATCH_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "POLYWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "POLYWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "POLYWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "POLYWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "POLYWATCH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "POLYWATCH_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "POLYWATCH_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "POLYWATCH_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "POLYWATCH_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POLYWATCH_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POLYWATCH_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "POLYWATCH_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POLYWATCH_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "POLYWATCH_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "POLYWATCH_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "POLYWATCH_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "POLYWATCH_POSTGRES_RUN_MIGRATIONS")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "POLYWATCH_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Endpoint, "POLYWATCH_ARCHIVE_ENDPOINT")
	setStr(&cfg.Archive.Region, "POLYWATCH_ARCHIVE_REGION")
	setStr(&cfg.Archive.Bucket, "POLYWATCH_ARCHIVE_BUCKET")
	setStr(&cfg.Archive.Prefix, "POLYWATCH_ARCHIVE_PREFIX")
	setStr(&cfg.Archive.AccessKey, "POLYWATCH_ARCHIVE_ACCESS_KEY")
	setStr(&cfg.Archive.SecretKey, "POLYWATCH_ARCHIVE_SECRET_KEY")
	setBool(&cfg.Archive.UseSSL, "POLYWATCH_ARCHIVE_USE_SSL")
	setBool(&cfg.Archive.ForcePathStyle, "POLYWATCH_ARCHIVE_FORCE_PATH_STYLE")

	// ── Bus ──
	setBool(&cfg.Bus.Enabled, "POLYWATCH_BUS_ENABLED")
	setStringSlice(&cfg.Bus.Brokers, "POLYWATCH_BUS_BROKERS")
	setStr(&cfg.Bus.Topic, "POLYWATCH_BUS_TOPIC")

	// ── Feed ──
	setBool(&cfg.Feed.Enabled, "POLYWATCH_FEED_ENABLED")
	setStr(&cfg.Feed.URL, "POLYWATCH_FEED_URL")
	setDuration(&cfg.Feed.MinWakeInterval, "POLYWATCH_FEED_MIN_WAKE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "POLYWATCH_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "POLYWATCH_SERVER_PORT")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setBoolPtr(dst **bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = &b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
