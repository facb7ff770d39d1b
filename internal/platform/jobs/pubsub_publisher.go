package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"

	"github.com/techmall/storefront-api/internal/notify"
)

// PubSubMailPublisher hands rendered emails to the mail worker through a Pub/Sub topic.
type PubSubMailPublisher struct {
	topic   *pubsub.Topic
	marshal func(any) ([]byte, error)
}

var _ notify.Mailer = (*PubSubMailPublisher)(nil)

// NewPubSubMailPublisher constructs a Pub/Sub backed mail transport.
func NewPubSubMailPublisher(topic *pubsub.Topic) (*PubSubMailPublisher, error) {
	if topic == nil {
		return nil, errors.New("pubsub mail publisher: topic is required")
	}
	return &PubSubMailPublisher{
		topic:   topic,
		marshal: json.Marshal,
	}, nil
}

// Send publishes the email and waits for the server ack.
func (p *PubSubMailPublisher) Send(ctx context.Context, email notify.Email) error {
	if p == nil || p.topic == nil {
		return errors.New("pubsub mail publisher: not initialised")
	}
	if err := email.Validate(); err != nil {
		return err
	}
	data, err := p.marshal(email)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	attrs := make(map[string]string)
	setAttr(attrs, "kind", email.Kind)
	setAttr(attrs, "orderId", email.OrderID)

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish email: %w", err)
	}
	return nil
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
