// Package mailer delivers transactional email over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/config"

	"github.com/wneessen/go-mail"
)

var (
	ErrInvalidSender = errors.New("invalid sender address")
	ErrDelivery      = errors.New("email delivery failed")
)

// Mailer sends a single plain text email. Ready reports configuration that
// would make every Send fail.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
	Ready() error
}

type smtpMailer struct {
	cfg  config.EmailConfig
	send func(ctx context.Context, msg *mail.Msg) error
}

// NewSMTP creates a Mailer for the configured SMTP relay
func NewSMTP(cfg config.EmailConfig) Mailer {
	m := &smtpMailer{cfg: cfg}
	m.send = m.dialAndSend
	return m
}

// Sender returns the From address: DEFAULT_FROM_EMAIL, or the SMTP user when
// that is unset
func Sender(cfg config.EmailConfig) (string, error) {
	for _, candidate := range []string{cfg.DefaultFrom, cfg.User} {
		candidate = strings.TrimSpace(candidate)
		if strings.Contains(candidate, "@") {
			return candidate, nil
		}
	}
	return "", ErrInvalidSender
}

func (m *smtpMailer) Ready() error {
	_, err := Sender(m.cfg)
	return err
}

func (m *smtpMailer) Send(ctx context.Context, to, subject, body string) error {
	from, err := Sender(m.cfg)
	if err != nil {
		return err
	}

	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSender, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}
	return nil
}

func (m *smtpMailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(15 * time.Second),
	}
	if m.cfg.UseTLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if m.cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.User),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}
