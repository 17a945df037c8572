// Package email delivers rendered notification emails.
package email

import (
	"context"
	"errors"

	"medtour_backend/platform/config"
)

// ErrDisabled is returned by NoopSender so the dispatcher records the
// notification as undeliverable instead of sent.
var ErrDisabled = errors.New("email channel is disabled")

// Message is a fully rendered email.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

type Sender interface {
	// Send delivers msg and returns the provider message id.
	Send(ctx context.Context, msg Message) (string, error)
}

type NoopSender struct{}

func (NoopSender) Send(context.Context, Message) (string, error) {
	return "", ErrDisabled
}

// NewSender returns an SMTP sender, or NoopSender when email is disabled.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(), cfg.GetEmailFromName())
}
