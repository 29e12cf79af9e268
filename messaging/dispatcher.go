package messaging

import (
	"context"
	"log/slog"

	"github.com/cyverse-de/infosquito/internal/telemetry"
)

// Dispatcher routes deliveries to registered handlers by routing key.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
	metrics  *telemetry.Metrics
}

// DispatcherOption configures the Dispatcher
type DispatcherOption func(*Dispatcher)

// WithDispatcherLogger sets the logger
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithDispatcherMetrics sets the metrics collectors
func WithDispatcherMetrics(metrics *telemetry.Metrics) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = metrics
	}
}

// NewDispatcher creates a dispatcher over the given registry
func NewDispatcher(registry *Registry, options ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		logger:   slog.Default(),
	}

	for _, opt := range options {
		opt(d)
	}

	return d
}

// Route looks up the delivery's routing key and invokes the matching handler.
// A delivery with no registered handler is dropped without an ack or reject:
// the broker keeps it in an unacknowledged state until the channel closes.
// That behavior is intentional, logged, and counted so it stays visible.
func (d *Dispatcher) Route(ctx context.Context, delivery Delivery) error {
	if d.metrics != nil {
		d.metrics.Delivered.WithLabelValues(delivery.RoutingKey).Inc()
	}

	handler, ok := d.registry.Lookup(delivery.RoutingKey)
	if !ok {
		d.logger.Warn("no handler for routing key; message left unacknowledged",
			"routingKey", delivery.RoutingKey)
		if d.metrics != nil {
			d.metrics.Unrouted.Inc()
		}
		return nil
	}

	if d.metrics != nil {
		delivery.Acknowledger = &countingAcknowledger{
			inner:   delivery.Acknowledger,
			metrics: d.metrics,
		}
	}

	return handler.Process(ctx, delivery)
}

// countingAcknowledger wraps an Acknowledger to record settlement outcomes.
type countingAcknowledger struct {
	inner   Acknowledger
	metrics *telemetry.Metrics
}

func (c *countingAcknowledger) Ack() error {
	if err := c.inner.Ack(); err != nil {
		return err
	}
	c.metrics.Acked.Inc()
	return nil
}

func (c *countingAcknowledger) Reject(requeue bool) error {
	if err := c.inner.Reject(requeue); err != nil {
		return err
	}
	c.metrics.Rejected.Inc()
	return nil
}
