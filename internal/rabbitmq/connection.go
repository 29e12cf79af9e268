package rabbitmq

import (
	"context"
	"log/slog"

	"github.com/cyverse-de/infosquito/internal/reliability"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Connection is the subset of *amqp.Connection the service uses. It exists so
// connection handling can be exercised without a broker.
type Connection interface {
	Channel() (*amqp.Channel, error)
	Close() error
}

// DialFunc opens a single broker connection.
type DialFunc func(url string) (Connection, error)

// ConnectionManager opens broker connections, retrying transport failures
// forever with exponential backoff. Backoff state is local to each Connect
// call: every call starts over at the initial delay.
type ConnectionManager struct {
	url     string
	backoff reliability.ExponentialBackoff
	sleep   reliability.Sleeper
	dial    DialFunc
	logger  *slog.Logger
}

// ConnectionOption configures the ConnectionManager
type ConnectionOption func(*ConnectionManager)

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.logger = logger
	}
}

// WithBackoff sets the reconnect backoff policy
func WithBackoff(backoff reliability.ExponentialBackoff) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.backoff = backoff
	}
}

// WithSleeper sets the function used to wait between attempts
func WithSleeper(sleep reliability.Sleeper) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.sleep = sleep
	}
}

// WithDialFunc sets the function used to open connections
func WithDialFunc(dial DialFunc) ConnectionOption {
	return func(cm *ConnectionManager) {
		cm.dial = dial
	}
}

// NewConnectionManager creates a new connection manager
func NewConnectionManager(url string, options ...ConnectionOption) *ConnectionManager {
	cm := &ConnectionManager{
		url:     url,
		backoff: reliability.DefaultBackoff(),
		sleep:   reliability.Sleep,
		dial: func(url string) (Connection, error) {
			return amqp.Dial(url)
		},
		logger: slog.Default(),
	}

	for _, opt := range options {
		opt(cm)
	}

	return cm
}

// Connect dials the broker until a connection is established. Transport
// failures are logged and retried after the current backoff delay; the
// operation never gives up on its own. The only early exit is ctx
// cancellation, which aborts an in-flight wait.
func (cm *ConnectionManager) Connect(ctx context.Context) (Connection, error) {
	delay := cm.backoff.Initial

	for attempt := 1; ; attempt++ {
		conn, err := cm.dial(cm.url)
		if err == nil {
			cm.logger.Info("connected to RabbitMQ",
				"url", SanitizeURL(cm.url),
				"attempt", attempt)
			return conn, nil
		}

		cm.logger.Error("broker connection failed",
			"url", SanitizeURL(cm.url),
			"attempt", attempt,
			"retryIn", delay,
			"error", err)

		if serr := cm.sleep(ctx, delay); serr != nil {
			cm.logger.Warn("connect retry wait interrupted", "error", serr)
			return nil, &ConnectionError{
				Op:       "connect",
				URL:      SanitizeURL(cm.url),
				Err:      serr,
				Attempts: attempt,
			}
		}

		delay = cm.backoff.Next(delay)
	}
}
