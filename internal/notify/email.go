package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// EmailConfig holds the SMTP session parameters. Credentials come from the
// environment, the rest from the config file.
type EmailConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	To          string
	UseSSL      bool
	UseSTARTTLS bool
	Timeout     time.Duration
}

// EmailSender delivers the per-cycle batch email over SMTP. Unlike the chat
// senders it receives one Send per cycle, with the subject as title and the
// full grouped body as message.
type EmailSender struct {
	cfg    EmailConfig
	client *mail.Client
}

// NewEmailSender builds the SMTP client. The TLS mode follows the config:
// implicit TLS when UseSSL is set, mandatory STARTTLS when UseSTARTTLS is
// set, opportunistic STARTTLS otherwise.
func NewEmailSender(cfg EmailConfig) (*EmailSender, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
	}
	switch {
	case cfg.UseSSL:
		opts = append(opts, mail.WithSSL())
	case cfg.UseSTARTTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("email: create smtp client: %w", err)
	}
	return &EmailSender{cfg: cfg, client: client}, nil
}

// Send composes and delivers one plain-text email.
func (e *EmailSender) Send(ctx context.Context, title, message string) error {
	msg := mail.NewMsg()
	if err := msg.From(e.cfg.From); err != nil {
		return fmt.Errorf("email: set sender %q: %w", e.cfg.From, err)
	}
	if err := msg.To(e.cfg.To); err != nil {
		return fmt.Errorf("email: set recipient %q: %w", e.cfg.To, err)
	}
	msg.Subject(title)
	msg.SetBodyString(mail.TypeTextPlain, message)

	if err := e.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("email: send via %s:%d: %w", e.cfg.Host, e.cfg.Port, err)
	}
	return nil
}

// Name returns the sender identifier.
func (e *EmailSender) Name() string {
	return "email"
}
