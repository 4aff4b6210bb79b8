package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	dc "github.com/stemyke/node-backend-sub000/data/config"
	"github.com/stemyke/node-backend-sub000/logging/logger"
	"github.com/stemyke/node-backend-sub000/metrics"
)

const (
	// DefaultExchange is used when no exchange is configured
	DefaultExchange = "assetd.jobs"

	publishTimeout = 120 * time.Second

	// breakerTimeout is how long an open breaker rejects publishes
	breakerTimeout = 30 * time.Second
)

// ErrNotConnected is returned when the broker connection is gone.
var ErrNotConnected = errors.New("rabbitmq connection is not available")

// RabbitMQ publishes jobs to a topic exchange and consumes them from durable
// queues bound by queue name.
//
// Publishes go through a circuit breaker: after repeated failures Enqueue
// fails fast with gobreaker.ErrOpenState until breakerTimeout has passed.
type RabbitMQ struct {
	conn     *amqp.Connection
	exchange string
	prefetch int
	breaker  *gobreaker.CircuitBreaker
	mu       sync.Mutex
}

// DialRabbitMQ connects using the data.rabbitmq configuration.
func DialRabbitMQ(c *dc.RabbitMQ) (*RabbitMQ, error) {
	if c == nil || c.URL == "" {
		return nil, errors.New("rabbitmq url is empty")
	}
	cfg := amqp.Config{
		Vhost:     c.Vhost,
		Heartbeat: c.HeartbeatInterval,
		Dial:      amqp.DefaultDial(c.ConnectionTimeout),
	}
	if c.Username != "" {
		cfg.SASL = []amqp.Authentication{&amqp.PlainAuth{Username: c.Username, Password: c.Password}}
	}
	conn, err := amqp.DialConfig(c.URL, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	return NewRabbitMQ(conn, c.Exchange, c.Prefetch), nil
}

// NewRabbitMQ wraps an open connection.
func NewRabbitMQ(conn *amqp.Connection, exchange string, prefetch int) *RabbitMQ {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if prefetch <= 0 {
		prefetch = 1
	}
	return &RabbitMQ{
		conn:     conn,
		exchange: exchange,
		prefetch: prefetch,
		breaker:  newPublishBreaker(exchange),
	}
}

func newPublishBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "rabbitmq publish breaker changed state", "exchange", name, "from", from.String(), "to", to.String())
		},
	})
}

// IsConnected checks if the connection is usable
func (s *RabbitMQ) IsConnected() bool {
	return s.conn != nil && !s.conn.IsClosed()
}

func (s *RabbitMQ) declare(ch *amqp.Channel, queueName string) error {
	if err := ch.ExchangeDeclare(s.exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	// routing key is the queue name
	if err := ch.QueueBind(q.Name, queueName, s.exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}
	return nil
}

// Enqueue implements Queue. It returns once the broker confirmed the message.
func (s *RabbitMQ) Enqueue(ctx context.Context, queueName, jobName string, params Params) error {
	job, err := NewJob(ctx, queueName, jobName, params)
	if err != nil {
		return err
	}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	_, err = s.breaker.Execute(func() (any, error) {
		return nil, s.publish(ctx, job.Queue, body)
	})
	if err != nil {
		return err
	}
	metrics.RecordJobEnqueued(job.Queue, job.Name)
	logger.Debug(ctx, "job published", "queue", job.Queue, "job", job.Name)
	return nil
}

func (s *RabbitMQ) publish(ctx context.Context, queueName string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.IsConnected() {
		return ErrNotConnected
	}

	ch, err := s.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := s.declare(ch, queueName); err != nil {
		return err
	}
	if err := ch.Confirm(false); err != nil {
		return fmt.Errorf("failed to put channel in confirm mode: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(ctx, s.exchange, queueName, true, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	select {
	case confirmed, ok := <-confirms:
		if !ok {
			return errors.New("confirmation channel closed")
		}
		if !confirmed.Ack {
			return errors.New("failed to receive publish confirmation")
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish confirmation: %w", ctx.Err())
	}
}

// Consume runs jobs from queueName through registry until ctx is done or the
// channel closes. Deliveries are acked after the handler returns, failed or
// not, since job failures are recorded by the jobs themselves.
func (s *RabbitMQ) Consume(ctx context.Context, queueName string, registry *Registry) error {
	if queueName == "" {
		queueName = DefaultQueue
	}
	if !s.IsConnected() {
		return ErrNotConnected
	}

	ch, err := s.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := s.declare(ch, queueName); err != nil {
		return err
	}
	if err := ch.Qos(s.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	logger.Info(ctx, "consuming jobs", "queue", queueName, "exchange", s.exchange)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return ErrNotConnected
			}
			s.handle(ctx, d, registry)
		}
	}
}

func (s *RabbitMQ) handle(ctx context.Context, d amqp.Delivery, registry *Registry) {
	var job Job
	if err := json.Unmarshal(d.Body, &job); err != nil {
		logger.Error(ctx, "dropping malformed job", "error", err)
		if err := d.Nack(false, false); err != nil {
			logger.Warnf(ctx, "failed to reject message: %v", err)
		}
		return
	}
	_ = registry.Run(ctx, &job)
	if err := d.Ack(false); err != nil {
		logger.Warnf(ctx, "failed to acknowledge message: %v", err)
	}
}

// Close closes the connection
func (s *RabbitMQ) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.IsConnected() {
		return nil
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("failed to close rabbitmq connection: %w", err)
	}
	return nil
}
