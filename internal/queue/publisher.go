package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher publishes catalog events.  Failures are returned so callers can
// log and carry on without interrupting the request.
type Publisher interface {
	Publish(ctx context.Context, ev MovieEvent) error
}

// NopPublisher drops every event.  It is used when the queue is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, MovieEvent) error { return nil }

// DefaultDialTimeout bounds the broker connect of a single publish.
const DefaultDialTimeout = 2 * time.Second

// AMQPPublisher dials the broker per publish, declares the durable queue
// and sends a persistent JSON message through the default exchange.  The
// connect is bounded by DialTimeout and by the caller's deadline.
type AMQPPublisher struct {
	URL         string
	Queue       string
	DialTimeout time.Duration
	Log         *zap.Logger
	dial        func(url string, timeout time.Duration) (*amqp.Connection, error)
}

// NewAMQPPublisher returns a publisher for the given broker and queue.
func NewAMQPPublisher(url, queue string, log *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{URL: url, Queue: queue, DialTimeout: DefaultDialTimeout, Log: log, dial: dialTimeout}
}

func dialTimeout(url string, timeout time.Duration) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
}

func (p *AMQPPublisher) connectTimeout(ctx context.Context) time.Duration {
	timeout := p.DialTimeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	return timeout
}

// Publish sends ev to the queue.
func (p *AMQPPublisher) Publish(ctx context.Context, ev MovieEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event: %w", err)
	}
	timeout := p.connectTimeout(ctx)
	if timeout <= 0 {
		return fmt.Errorf("rabbitmq: dial: %w", context.DeadlineExceeded)
	}
	conn, err := p.dial(p.URL, timeout)
	if err != nil {
		p.Log.Warn("rabbitmq: dial failed", zap.Error(err))
		return fmt.Errorf("rabbitmq: dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Declaring is idempotent; durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq: queue declare: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, msg); err != nil {
		return fmt.Errorf("rabbitmq: publish: %w", err)
	}
	return nil
}
