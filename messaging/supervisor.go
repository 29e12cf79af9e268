package messaging

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cyverse-de/infosquito/internal/reliability"
	"github.com/cyverse-de/infosquito/internal/telemetry"
)

// ErrSubscriptionClosed is returned when the broker closes the delivery
// stream, which happens when the connection or channel is lost.
var ErrSubscriptionClosed = errors.New("messaging: delivery stream closed")

// RegistryBuilder constructs the handler registry for one subscribe cycle.
// It is invoked with the cycle's publish capability so reply-producing
// handlers always publish on the channel currently being consumed from.
type RegistryBuilder func(p Publisher) *Registry

// Supervisor owns the connection lifecycle: connect, declare topology,
// consume until something fails, tear down, reconnect. The loop has no exit
// condition of its own; it runs until the context is cancelled.
type Supervisor struct {
	transport      Transport
	build          RegistryBuilder
	reconnectDelay time.Duration
	sleep          reliability.Sleeper
	logger         *slog.Logger
	metrics        *telemetry.Metrics
}

// SupervisorOption configures the Supervisor
type SupervisorOption func(*Supervisor)

// WithSupervisorLogger sets the logger
func WithSupervisorLogger(logger *slog.Logger) SupervisorOption {
	return func(s *Supervisor) {
		s.logger = logger
	}
}

// WithSupervisorMetrics sets the metrics collectors
func WithSupervisorMetrics(metrics *telemetry.Metrics) SupervisorOption {
	return func(s *Supervisor) {
		s.metrics = metrics
	}
}

// WithReconnectDelay sets the fixed pause between teardown and reconnect
func WithReconnectDelay(delay time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.reconnectDelay = delay
	}
}

// WithSupervisorSleeper sets the function used to wait between cycles
func WithSupervisorSleeper(sleep reliability.Sleeper) SupervisorOption {
	return func(s *Supervisor) {
		s.sleep = sleep
	}
}

// NewSupervisor creates the top-level control loop
func NewSupervisor(transport Transport, build RegistryBuilder, options ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		transport:      transport,
		build:          build,
		reconnectDelay: reliability.DefaultBackoff().Initial,
		sleep:          reliability.Sleep,
		logger:         slog.Default(),
	}

	for _, opt := range options {
		opt(s)
	}

	return s
}

// Run drives the connect/declare/consume cycle until ctx is cancelled. Every
// failure path closes the session before pausing and reconnecting, so no
// cycle leaks its connection or channel.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		sess, err := s.transport.Connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Error("broker session setup failed", "error", err)
			s.pause(ctx)
			continue
		}

		err = s.subscribe(ctx, sess)
		sess.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.logger.Error("subscription ended; reconnecting",
			"error", err,
			"reconnectIn", s.reconnectDelay)
		if s.metrics != nil {
			s.metrics.Reconnects.Inc()
		}
		s.pause(ctx)
	}
}

// subscribe runs one cycle: declare topology, consume, and dispatch messages
// strictly sequentially until the stream ends or a handler error propagates.
func (s *Supervisor) subscribe(ctx context.Context, sess Session) error {
	if err := sess.DeclareTopology(ctx); err != nil {
		return err
	}

	deliveries, err := sess.Consume(ctx)
	if err != nil {
		return err
	}

	registry := s.build(sess.Publisher())
	dispatcher := NewDispatcher(registry,
		WithDispatcherLogger(s.logger),
		WithDispatcherMetrics(s.metrics),
	)

	s.logger.Info("subscribed", "routingKeys", registry.Keys())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return ErrSubscriptionClosed
			}
			if err := dispatcher.Route(ctx, d); err != nil {
				return err
			}
		}
	}
}

func (s *Supervisor) pause(ctx context.Context) {
	if err := s.sleep(ctx, s.reconnectDelay); err != nil {
		s.logger.Warn("reconnect wait interrupted", "error", err)
	}
}
