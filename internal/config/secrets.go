package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// smtpEnvVars are the environment variables the email channel requires. All
// five must be set when email notifications are enabled.
var smtpEnvVars = []string{"SMTP_HOST", "SMTP_PORT", "SMTP_USER", "SMTP_PASS", "SMTP_FROM"}

// SMTPSecrets holds the SMTP credentials read from the environment.
type SMTPSecrets struct {
	Host string
	Port int
	User string
	Pass string
	From string
}

// SMTPFromEnv reads the SMTP_* environment variables. It fails when any of
// the five is missing or SMTP_PORT is not an integer.
func SMTPFromEnv() (SMTPSecrets, error) {
	var missing []string
	for _, v := range smtpEnvVars {
		if os.Getenv(v) == "" {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		return SMTPSecrets{}, fmt.Errorf("missing required SMTP environment variables: %s", strings.Join(missing, ", "))
	}

	portRaw := os.Getenv("SMTP_PORT")
	port, err := strconv.Atoi(portRaw)
	if err != nil {
		return SMTPSecrets{}, fmt.Errorf("SMTP_PORT must be an integer, got %s", portRaw)
	}

	return SMTPSecrets{
		Host: os.Getenv("SMTP_HOST"),
		Port: port,
		User: os.Getenv("SMTP_USER"),
		Pass: os.Getenv("SMTP_PASS"),
		From: os.Getenv("SMTP_FROM"),
	}, nil
}

// ChatSecrets holds the chat channel credentials read from the environment.
// Missing credentials disable the corresponding channel; they are never a
// startup failure.
type ChatSecrets struct {
	TelegramToken     string
	TelegramChatIDs   []string
	DiscordWebhookURL string
}

// ChatFromEnv reads TELEGRAM_TOKEN, TELEGRAM_CHAT_IDS (comma-separated) and
// DISCORD_WEBHOOK_URL.
func ChatFromEnv() ChatSecrets {
	var chatIDs []string
	if v := os.Getenv("TELEGRAM_CHAT_IDS"); v != "" {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				chatIDs = append(chatIDs, p)
			}
		}
	}
	return ChatSecrets{
		TelegramToken:     os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatIDs:   chatIDs,
		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
	}
}

// RedactedConfig returns a copy of cfg with sensitive fields replaced by the
// redaction placeholder "***". Use this when logging the active
// configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	redact(&out.Redis.Password)
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.Archive.AccessKey)
	redact(&out.Archive.SecretKey)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	if cfg.Addresses != nil {
		out.Addresses = make([]string, len(cfg.Addresses))
		copy(out.Addresses, cfg.Addresses)
	}
	if cfg.Filters.Sides != nil {
		out.Filters.Sides = make([]string, len(cfg.Filters.Sides))
		copy(out.Filters.Sides, cfg.Filters.Sides)
	}
	if cfg.Bus.Brokers != nil {
		out.Bus.Brokers = make([]string, len(cfg.Bus.Brokers))
		copy(out.Bus.Brokers, cfg.Bus.Brokers)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
