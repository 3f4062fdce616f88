package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/watchlist-backend/pkg/config"
	"gopkg.in/gomail.v2"
)

// Purpose distinguishes the two one-time code emails.
type Purpose string

const (
	PurposeRegistration Purpose = "registration"
	PurposeLogin        Purpose = "login"
)

// Sender delivers one-time codes to users.
type Sender interface {
	SendCode(ctx context.Context, to, code string, purpose Purpose, ttl time.Duration) error
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends codes through an SMTP relay.
type SMTPSender struct {
	dialer dialer
	from   string
}

// NewSMTPSender builds a sender for the configured relay.
func NewSMTPSender(cfg config.MailConfig) (*SMTPSender, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("smtp host is required")
	}
	return &SMTPSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}, nil
}

func (s *SMTPSender) SendCode(ctx context.Context, to, code string, purpose Purpose, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := buildMessage(s.from, to, code, purpose, ttl)
	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("send %s code: %w", purpose, err)
	}
	return nil
}

func buildMessage(from, to, code string, purpose Purpose, ttl time.Duration) *gomail.Message {
	subject, heading, intro := "Your sign-in code", "Sign-in code", "Your sign-in code is:"
	if purpose == PurposeRegistration {
		subject, heading, intro = "Verify your registration", "Welcome!", "Your registration verification code is:"
	}
	minutes := int(ttl / time.Minute)

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", strings.TrimSpace(to))
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", fmt.Sprintf("%s %s\nThis code expires in %d minutes.", intro, code, minutes))
	m.AddAlternative("text/html", fmt.Sprintf(`
		<h1>%s</h1>
		<p>%s</p>
		<h2 style="font-family: monospace; font-size: 24px; color: #333;">%s</h2>
		<p>This code expires in %d minutes.</p>
	`, heading, intro, code, minutes))
	return m
}

// ErrDisabled is returned by Disabled for every message.
var ErrDisabled = errors.New("mail delivery disabled: no smtp host configured")

// Disabled backs environments without an SMTP relay. Every send fails with
// ErrDisabled so callers take their normal delivery-failure path.
type Disabled struct{}

func (Disabled) SendCode(context.Context, string, string, Purpose, time.Duration) error {
	return ErrDisabled
}
