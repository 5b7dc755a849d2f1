package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// TestLoad tests the merge order: defaults, then file values, then
// environment overrides.
func TestLoad(t *testing.T) {
	t.Run("file values override defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
window_minutes: 5
addresses:
  - "0xaaa"
  - "0xbbb"
filters:
  min_size: "100"
  sides: [BUY]
api:
  timeout: 3s
log_level: debug
`)

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.WindowMinutes != 5 {
			t.Errorf("WindowMinutes = %d, want 5", cfg.WindowMinutes)
		}
		if len(cfg.Addresses) != 2 || cfg.Addresses[0] != "0xaaa" {
			t.Errorf("Addresses = %v", cfg.Addresses)
		}
		if got := cfg.Filters.MinSize.Ptr(); got == nil || *got != 100 {
			t.Errorf("MinSize = %v, want 100", got)
		}
		if cfg.API.Timeout.Duration != 3*time.Second {
			t.Errorf("API.Timeout = %v, want 3s", cfg.API.Timeout.Duration)
		}
		if cfg.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
		}
		// Untouched fields keep their defaults.
		if cfg.PollIntervalSeconds != 900 {
			t.Errorf("PollIntervalSeconds = %d, want default 900", cfg.PollIntervalSeconds)
		}
		if cfg.API.TradeLimit != 1000 {
			t.Errorf("API.TradeLimit = %d, want default 1000", cfg.API.TradeLimit)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		if err == nil || !strings.Contains(err.Error(), "read config file") {
			t.Errorf("error = %v, want read failure", err)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfigFile(t, "window_minutes: [oops")
		_, err := Load(path)
		if err == nil || !strings.Contains(err.Error(), "parse config file") {
			t.Errorf("error = %v, want parse failure", err)
		}
	})

	t.Run("expands variable references", func(t *testing.T) {
		t.Setenv("POLYWATCH_TEST_WALLET", "0x56687bf447db6ffa42ffe2204a05edaa20f55839")
		path := writeConfigFile(t, `
addresses:
  - "${POLYWATCH_TEST_WALLET}"
`)

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cfg.Addresses) != 1 || cfg.Addresses[0] != "0x56687bf447db6ffa42ffe2204a05edaa20f55839" {
			t.Errorf("Addresses = %v", cfg.Addresses)
		}
	})

	t.Run("environment overrides beat file values", func(t *testing.T) {
		t.Setenv("POLYWATCH_WINDOW_MINUTES", "42")
		t.Setenv("POLYWATCH_ADDRESSES", "0xaaa, 0xbbb ,")
		t.Setenv("POLYWATCH_EMAIL_ENABLED", "true")
		t.Setenv("POLYWATCH_DEDUP_TTL", "1h")
		path := writeConfigFile(t, `
window_minutes: 5
addresses: ["0xccc"]
`)

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.WindowMinutes != 42 {
			t.Errorf("WindowMinutes = %d, want 42", cfg.WindowMinutes)
		}
		if len(cfg.Addresses) != 2 || cfg.Addresses[0] != "0xaaa" || cfg.Addresses[1] != "0xbbb" {
			t.Errorf("Addresses = %v, want [0xaaa 0xbbb]", cfg.Addresses)
		}
		if !cfg.Email.Enabled {
			t.Error("Email.Enabled should be overridden to true")
		}
		if cfg.Dedup.TTL.Duration != time.Hour {
			t.Errorf("Dedup.TTL = %v, want 1h", cfg.Dedup.TTL.Duration)
		}
	})

	t.Run("polywatch log level wins over plain", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("POLYWATCH_LOG_LEVEL", "error")
		path := writeConfigFile(t, "log_level: info\n")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.LogLevel != "error" {
			t.Errorf("LogLevel = %q, want error", cfg.LogLevel)
		}
	})

	t.Run("unparsable numeric override is ignored", func(t *testing.T) {
		t.Setenv("POLYWATCH_WINDOW_MINUTES", "soon")
		path := writeConfigFile(t, "window_minutes: 7\n")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.WindowMinutes != 7 {
			t.Errorf("WindowMinutes = %d, want file value 7", cfg.WindowMinutes)
		}
	})
}
