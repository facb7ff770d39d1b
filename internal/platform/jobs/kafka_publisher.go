package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/techmall/storefront-api/internal/notify"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaMailPublisher hands rendered emails to the mail worker through a Kafka topic. Messages
// are keyed by order id so every email of one order lands on the same partition.
type KafkaMailPublisher struct {
	writer messageWriter
	clock  func() time.Time
}

var _ notify.Mailer = (*KafkaMailPublisher)(nil)

// NewKafkaMailPublisher builds a writer for topic on brokers.
func NewKafkaMailPublisher(brokers []string, topic string) (*KafkaMailPublisher, error) {
	addrs := make([]string, 0, len(brokers))
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	if len(addrs) == 0 {
		return nil, errors.New("kafka mail publisher: at least one broker is required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("kafka mail publisher: topic is required")
	}
	return newKafkaMailPublisher(&kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}), nil
}

func newKafkaMailPublisher(w messageWriter) *KafkaMailPublisher {
	return &KafkaMailPublisher{writer: w, clock: time.Now}
}

// Send writes the email synchronously.
func (p *KafkaMailPublisher) Send(ctx context.Context, email notify.Email) error {
	if p == nil || p.writer == nil {
		return errors.New("kafka mail publisher: not initialised")
	}
	if err := email.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(email)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}
	key := email.OrderID
	if key == "" {
		key = email.To
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  p.clock().UTC(),
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(email.Kind)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write email: %w", err)
	}
	return nil
}

// Close flushes pending writes.
func (p *KafkaMailPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
