package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// publisher is the subset of *amqp.Channel the sender needs.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSender publishes messages to a durable queue consumed by a mail worker.
type AMQPSender struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    publisher
	queue string
	now   func() time.Time
}

// NewAMQPSender dials the broker and declares the durable queue.
func NewAMQPSender(url, queue string) (*AMQPSender, error) {
	queue = strings.TrimSpace(queue)
	if queue == "" {
		return nil, errors.New("amqp mail queue required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp declare queue: %w", err)
	}
	return &AMQPSender{conn: conn, ch: ch, queue: queue, now: time.Now}, nil
}

// Send publishes msg as a persistent JSON delivery.
func (s *AMQPSender) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("mail recipient required")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode mail: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.ch.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    s.now().UTC(),
		Type:         "mail.message",
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

// Close shuts the broker connection.
func (s *AMQPSender) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}
