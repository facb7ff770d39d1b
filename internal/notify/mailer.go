// Package notify renders customer emails and delivers them off the request path.
package notify

import (
	"context"
	"errors"
	"strings"
)

// Email kinds carried on the wire so downstream mail workers can route templates.
const (
	KindOrderConfirmed = "order.confirmed"
	KindOrderShipped   = "order.shipped"
)

// Email is a rendered message ready for delivery.
type Email struct {
	Kind    string `json:"kind"`
	OrderID string `json:"orderId,omitempty"`
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Validate checks the fields every transport needs.
func (e Email) Validate() error {
	switch {
	case strings.TrimSpace(e.To) == "":
		return errors.New("notify: recipient is required")
	case strings.TrimSpace(e.Subject) == "":
		return errors.New("notify: subject is required")
	}
	return nil
}

// Mailer delivers one email. Implementations hand off to an SMTP relay, a message topic, or
// the log.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// MailerFunc adapts a function to Mailer.
type MailerFunc func(ctx context.Context, email Email) error

func (f MailerFunc) Send(ctx context.Context, email Email) error { return f(ctx, email) }

// LogMailer writes emails to the event log instead of sending them. It is the default
// transport for local development.
type LogMailer struct {
	Logger func(ctx context.Context, event string, fields map[string]any)
}

func (m LogMailer) Send(ctx context.Context, email Email) error {
	if err := email.Validate(); err != nil {
		return err
	}
	if m.Logger != nil {
		m.Logger(ctx, "notify.email.logged", map[string]any{
			"kind":    email.Kind,
			"orderId": email.OrderID,
			"to":      email.To,
			"subject": email.Subject,
			"bytes":   len(email.HTML),
		})
	}
	return nil
}
