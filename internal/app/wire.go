package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/polywatch/internal/blob/s3"
	"github.com/alanyoungcy/polywatch/internal/bus/kafka"
	"github.com/alanyoungcy/polywatch/internal/cache/redis"
	"github.com/alanyoungcy/polywatch/internal/config"
	"github.com/alanyoungcy/polywatch/internal/feed"
	"github.com/alanyoungcy/polywatch/internal/notify"
	"github.com/alanyoungcy/polywatch/internal/pipeline"
	"github.com/alanyoungcy/polywatch/internal/platform/polymarket"
	"github.com/alanyoungcy/polywatch/internal/store/postgres"
)

// Dependencies bundles everything the run modes need to operate. It is
// constructed by Wire and torn down by the returned cleanup function.
// Optional collaborators stay nil when their config section is disabled.
type Dependencies struct {
	// Trades fetches per-address trade activity from the data API.
	Trades *polymarket.Client

	// SeenStore persists dedup keys across runs. Nil without Redis.
	SeenStore pipeline.SeenStore

	// Journal records delivered trades in PostgreSQL. Nil without Postgres.
	Journal *postgres.JournalStore

	// Archiver writes per-cycle JSONL objects. Nil without object storage.
	Archiver *s3blob.Archiver

	// Bus publishes delivered trades to Kafka. Nil without brokers.
	Bus *kafka.Publisher

	// Feed wakes the poll loop when a watched address trades. Nil when
	// disabled; only loop mode starts it.
	Feed *feed.ActivityFeed

	// Notifier fans one message out to the configured chat channels.
	Notifier *notify.Notifier

	// Email sends the per-cycle batch email. Nil when email is disabled.
	Email notify.Sender
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources. With dryRun set, every
// notification channel is wrapped so it logs instead of sending.
func Wire(ctx context.Context, cfg *config.Config, dryRun bool) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Polymarket data API ---
	deps.Trades = polymarket.NewClient(
		polymarket.WithBaseURL(cfg.API.BaseURL),
		polymarket.WithTimeout(cfg.API.Timeout.Duration),
		polymarket.WithTradeLimit(cfg.API.TradeLimit),
		polymarket.WithRetries(cfg.API.MaxRetries, cfg.API.Backoff.Duration),
		polymarket.WithLogger(logger.With(slog.String("component", "data_api"))),
	)

	// --- Redis seen store (optional) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.SeenStore = redis.NewSeenCache(redisClient, cfg.Dedup.TTL.Duration)
	}

	// --- PostgreSQL journal (optional) ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.Journal = postgres.NewJournalStore(pgClient.Pool())
	}

	// --- S3 trade archive (optional) ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.Archive.Endpoint,
			Region:         cfg.Archive.Region,
			Bucket:         cfg.Archive.Bucket,
			AccessKey:      cfg.Archive.AccessKey,
			SecretKey:      cfg.Archive.SecretKey,
			UseSSL:         cfg.Archive.UseSSL,
			ForcePathStyle: cfg.Archive.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(s3Client, cfg.Archive.Prefix)
	}

	// --- Kafka bus (optional) ---
	if cfg.Bus.Enabled {
		pub := kafka.New(cfg.Bus.Brokers, cfg.Bus.Topic)
		closers = append(closers, func() { _ = pub.Close() })
		deps.Bus = pub
	}

	// --- Activity feed (optional) ---
	if cfg.Feed.Enabled {
		deps.Feed = feed.NewActivityFeed(cfg.Feed.URL, cfg.Addresses, cfg.Feed.MinWakeInterval.Duration, logger)
	}

	// --- Notification channels ---
	chat := config.ChatFromEnv()
	var senders []notify.Sender
	if cfg.Telegram.Enabled {
		if chat.TelegramToken == "" || len(chat.TelegramChatIDs) == 0 {
			logger.Warn("telegram enabled but TELEGRAM_TOKEN or TELEGRAM_CHAT_IDS is unset, channel disabled")
		} else {
			for _, chatID := range chat.TelegramChatIDs {
				senders = append(senders, notify.NewTelegramSender(chat.TelegramToken, chatID))
			}
		}
	}
	if cfg.Discord.Enabled {
		if chat.DiscordWebhookURL == "" {
			logger.Warn("discord enabled but DISCORD_WEBHOOK_URL is unset, channel disabled")
		} else {
			senders = append(senders, notify.NewDiscordSender(chat.DiscordWebhookURL))
		}
	}

	var email notify.Sender
	if cfg.Email.Enabled {
		smtp, err := config.SMTPFromEnv()
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: email: %w", err)
		}
		sender, err := notify.NewEmailSender(notify.EmailConfig{
			Host:        smtp.Host,
			Port:        smtp.Port,
			Username:    smtp.User,
			Password:    smtp.Pass,
			From:        smtp.From,
			To:          cfg.Email.To,
			UseSSL:      cfg.SMTP.UseSSL,
			UseSTARTTLS: cfg.SMTP.STARTTLS(),
			Timeout:     cfg.SMTP.Timeout.Duration,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: email: %w", err)
		}
		email = sender
	}

	if dryRun {
		for i, s := range senders {
			senders[i] = notify.DryRun(s, logger)
		}
		if email != nil {
			email = notify.DryRun(email, logger)
		}
	}

	if email == nil && len(senders) == 0 {
		cleanup()
		return nil, nil, fmt.Errorf("wire: no notification channel configured: enable email or provide chat credentials")
	}

	deps.Notifier = notify.NewNotifier(senders, logger)
	deps.Email = email

	return deps, cleanup, nil
}
