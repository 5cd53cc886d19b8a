// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package notify delivers verification codes to account holders.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/wneessen/go-mail"

	"github.com/holomush/accounts/internal/auth"
)

// DefaultSubject is used when SMTPConfig.Subject is empty.
const DefaultSubject = "Verification code"

// DefaultSendTimeout bounds a single SMTP delivery.
const DefaultSendTimeout = 15 * time.Second

// SMTPConfig holds the mail relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Subject  string
}

// sender is the part of *mail.Client the notifier uses.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPNotifier mails verification codes through an SMTP relay.
type SMTPNotifier struct {
	client  sender
	from    string
	subject string
	logger  *slog.Logger
}

// SMTPOption configures an SMTPNotifier.
type SMTPOption func(*SMTPNotifier)

// WithSMTPLogger sets the logger.
func WithSMTPLogger(logger *slog.Logger) SMTPOption {
	return func(n *SMTPNotifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// withSender replaces the SMTP client. Used by tests.
func withSender(s sender) SMTPOption {
	return func(n *SMTPNotifier) {
		n.client = s
	}
}

// NewSMTPNotifier creates a notifier for the given relay. Authentication is
// enabled when a username is configured; TLS is used when the server offers it.
func NewSMTPNotifier(cfg SMTPConfig, opts ...SMTPOption) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").Errorf("smtp from address is required")
	}

	n := &SMTPNotifier{
		from:    cfg.From,
		subject: cfg.Subject,
		logger:  slog.Default(),
	}
	if n.subject == "" {
		n.subject = DefaultSubject
	}
	for _, opt := range opts {
		opt(n)
	}

	if n.client == nil {
		clientOpts := []mail.Option{
			mail.WithTLSPortPolicy(mail.TLSOpportunistic),
			mail.WithTimeout(DefaultSendTimeout),
		}
		if cfg.Port > 0 {
			clientOpts = append(clientOpts, mail.WithPort(cfg.Port))
		}
		if cfg.Username != "" {
			clientOpts = append(clientOpts,
				mail.WithSMTPAuth(mail.SMTPAuthPlain),
				mail.WithUsername(cfg.Username),
				mail.WithPassword(cfg.Password),
			)
		}
		client, err := mail.NewClient(cfg.Host, clientOpts...)
		if err != nil {
			return nil, oops.Code("NOTIFY_CONFIG_INVALID").With("host", cfg.Host).Wrap(err)
		}
		n.client = client
	}

	return n, nil
}

// SendVerificationCode mails code to email.
func (n *SMTPNotifier) SendVerificationCode(ctx context.Context, email string, code int) error {
	msg, err := n.message(email, code)
	if err != nil {
		return err
	}

	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return oops.Code("NOTIFY_SEND_FAILED").With("recipient", email).Wrap(err)
	}

	n.logger.InfoContext(ctx, "verification code sent", "transport", "smtp")
	return nil
}

func (n *SMTPNotifier) message(email string, code int) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return nil, oops.Code("NOTIFY_MESSAGE_INVALID").With("field", "from").Wrap(err)
	}
	if err := msg.To(email); err != nil {
		return nil, oops.Code("NOTIFY_MESSAGE_INVALID").With("field", "to").Wrap(err)
	}
	msg.Subject(n.subject)
	msg.SetBodyString(mail.TypeTextPlain, Body(code))
	return msg, nil
}

// Body renders the message text for a verification code.
func Body(code int) string {
	return fmt.Sprintf("Your verification code: %d", code)
}

// LogNotifier writes verification codes to the log instead of mailing
// them. Codes are logged at debug level and are live credentials: use it
// for local development only, never in production.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// SendVerificationCode logs the code at debug level.
func (n *LogNotifier) SendVerificationCode(ctx context.Context, email string, code int) error {
	n.logger.DebugContext(ctx, "verification code issued",
		"transport", "log",
		"email", email,
		"code", code)
	return nil
}

var (
	_ auth.Notifier = (*SMTPNotifier)(nil)
	_ auth.Notifier = (*LogNotifier)(nil)
)
