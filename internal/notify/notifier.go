// Package notify delivers trade alerts. Chat channels (Telegram, Discord)
// implement the Sender interface and are fanned out to by Notifier with one
// message per trade; email is a Sender too but is driven separately by the
// app with one batch message per cycle. A dry-run wrapper logs intended
// messages instead of transmitting them.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification. title may be empty for channels whose
	// message body is self-contained.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender,
	// e.g. "telegram[12345]".
	Name() string
}

// Notifier dispatches one message to all registered senders. A failing
// sender is logged and skipped; the remaining senders still receive the
// message.
type Notifier struct {
	senders []Sender
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders.
func NewNotifier(senders []Sender, logger *slog.Logger) *Notifier {
	return &Notifier{
		senders: senders,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Senders reports how many destinations are registered.
func (n *Notifier) Senders() int {
	return len(n.senders)
}

// Broadcast sends the message to every sender. Errors from individual
// senders are collected and returned combined; a single failure does not
// prevent delivery to the remaining senders.
func (n *Notifier) Broadcast(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
		} else {
			n.logger.DebugContext(ctx, "notification sent",
				slog.String("sender", s.Name()),
			)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

type dryRunSender struct {
	next   Sender
	logger *slog.Logger
}

// DryRun wraps a sender so that Send logs the message instead of
// transmitting it. Newlines are flattened to keep one log line per message.
func DryRun(next Sender, logger *slog.Logger) Sender {
	return &dryRunSender{
		next:   next,
		logger: logger.With(slog.String("component", "notifier")),
	}
}

func (d *dryRunSender) Send(ctx context.Context, title, message string) error {
	d.logger.InfoContext(ctx, "[dry-run] would send",
		slog.String("sender", d.next.Name()),
		slog.String("title", title),
		slog.String("message", strings.ReplaceAll(message, "\n", " | ")),
	)
	return nil
}

func (d *dryRunSender) Name() string {
	return d.next.Name()
}
