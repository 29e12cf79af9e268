package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cyverse-de/infosquito/internal/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Transport opens broker sessions for the supervisor.
type Transport interface {
	// Connect blocks until a session is established, retrying transport
	// failures indefinitely. It returns an error only when the wait is
	// cancelled or session setup fails after the connection is made.
	Connect(ctx context.Context) (Session, error)
}

// Session is one connection/channel pair, owned exclusively by a single
// supervise cycle. The same channel carries both consuming and publishing.
type Session interface {
	// DeclareTopology declares the exchange and queue and binds the queue.
	DeclareTopology(ctx context.Context) error

	// Consume starts delivering queued messages. The returned channel closes
	// when the broker connection is lost or the session is closed.
	Consume(ctx context.Context) (<-chan Delivery, error)

	// Publisher returns the publish capability bound to this session.
	Publisher() Publisher

	// Close releases the channel and then the connection, suppressing
	// secondary errors from either.
	Close()
}

// AMQPTransport is the production Transport over RabbitMQ.
type AMQPTransport struct {
	cm       *rabbitmq.ConnectionManager
	topology rabbitmq.Topology
	logger   *slog.Logger
}

// TransportOption configures the AMQPTransport
type TransportOption func(*AMQPTransport)

// WithTransportLogger sets the logger
func WithTransportLogger(logger *slog.Logger) TransportOption {
	return func(t *AMQPTransport) {
		t.logger = logger
	}
}

// WithConnectionManager replaces the default connection manager
func WithConnectionManager(cm *rabbitmq.ConnectionManager) TransportOption {
	return func(t *AMQPTransport) {
		t.cm = cm
	}
}

// NewAMQPTransport creates a transport that dials url and declares topology
// on every new session.
func NewAMQPTransport(url string, topology rabbitmq.Topology, options ...TransportOption) *AMQPTransport {
	t := &AMQPTransport{
		topology: topology,
		logger:   slog.Default(),
	}

	for _, opt := range options {
		opt(t)
	}

	if t.cm == nil {
		t.cm = rabbitmq.NewConnectionManager(url, rabbitmq.WithLogger(t.logger))
	}

	return t
}

// Connect implements Transport. Dialing retries forever inside the connection
// manager; a channel-open failure after that is returned to the caller, which
// closes the connection and starts over.
func (t *AMQPTransport) Connect(ctx context.Context) (Session, error) {
	conn, err := t.cm.Connect(ctx)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	return &amqpSession{
		conn:     conn,
		ch:       ch,
		topology: t.topology,
		logger:   t.logger,
	}, nil
}

// amqpSession owns one connection and one channel for one subscribe cycle.
type amqpSession struct {
	conn     rabbitmq.Connection
	ch       *amqp.Channel
	topology rabbitmq.Topology
	logger   *slog.Logger
}

func (s *amqpSession) DeclareTopology(ctx context.Context) error {
	return s.topology.Declare(s.ch)
}

func (s *amqpSession) Consume(ctx context.Context) (<-chan Delivery, error) {
	// Prefetch is left untuned. Processing is sequential anyway, and a
	// prefetch window of 1 would wedge the consumer the first time a message
	// is deliberately left unacknowledged: the pong replies this service
	// publishes route back into its own queue through the wildcard binding
	// and are exactly such messages.
	deliveries, err := s.ch.Consume(
		s.topology.Queue,
		"infosquito", // consumer tag
		false,        // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", s.topology.Queue, err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for raw := range deliveries {
			select {
			case out <- Delivery{
				RoutingKey:   raw.RoutingKey,
				Body:         raw.Body,
				Acknowledger: amqpAcknowledger{raw},
			}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (s *amqpSession) Publisher() Publisher {
	return rabbitmq.NewPublisher(s.ch, s.topology.Exchange.Name, s.logger)
}

func (s *amqpSession) Close() {
	if err := s.ch.Close(); err != nil {
		s.logger.Debug("channel close failed", "error", err)
	}
	if err := s.conn.Close(); err != nil {
		s.logger.Debug("connection close failed", "error", err)
	}
}

// amqpAcknowledger settles one amqp delivery.
type amqpAcknowledger struct {
	d amqp.Delivery
}

func (a amqpAcknowledger) Ack() error {
	return a.d.Ack(false)
}

func (a amqpAcknowledger) Reject(requeue bool) error {
	return a.d.Reject(requeue)
}
