package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cyverse-de/infosquito/internal/reliability"
)

// ReindexHandler triggers the external reindex action for "index.all" and
// "index.data" messages.
//
// On success the message is acknowledged. On failure the handler logs the
// error, blocks the sole consumer for the configured retry interval, and then
// rejects the message with requeue so the broker redelivers it. A
// persistently failing action therefore retries the same message at a fixed
// cadence and holds back everything queued behind it; that backpressure is
// deliberate.
type ReindexHandler struct {
	reindexer     Reindexer
	retryInterval time.Duration
	sleep         reliability.Sleeper
	logger        *slog.Logger
}

// ReindexOption configures the ReindexHandler
type ReindexOption func(*ReindexHandler)

// WithReindexLogger sets the logger
func WithReindexLogger(logger *slog.Logger) ReindexOption {
	return func(h *ReindexHandler) {
		h.logger = logger
	}
}

// WithReindexSleeper sets the function used to wait out the retry interval.
// Substituting it changes the backpressure policy without touching the
// handler contract.
func WithReindexSleeper(sleep reliability.Sleeper) ReindexOption {
	return func(h *ReindexHandler) {
		h.sleep = sleep
	}
}

// NewReindexHandler creates a handler around the external reindex action
func NewReindexHandler(reindexer Reindexer, retryInterval time.Duration, options ...ReindexOption) *ReindexHandler {
	h := &ReindexHandler{
		reindexer:     reindexer,
		retryInterval: retryInterval,
		sleep:         reliability.Sleep,
		logger:        slog.Default(),
	}

	for _, opt := range options {
		opt(h)
	}

	return h
}

// Process implements Handler
func (h *ReindexHandler) Process(ctx context.Context, d Delivery) error {
	if err := h.reindexer.Reindex(ctx); err != nil {
		h.logger.Error("reindexing failed; requeueing after retry interval",
			"routingKey", d.RoutingKey,
			"retryInterval", h.retryInterval,
			"error", err)

		// An interrupted wait counts as elapsed: the message still has to
		// go back on the queue before this cycle ends.
		if serr := h.sleep(ctx, h.retryInterval); serr != nil {
			h.logger.Warn("retry wait interrupted", "error", serr)
		}

		if rerr := d.Reject(true); rerr != nil {
			return fmt.Errorf("reject reindex message: %w", rerr)
		}
		return nil
	}

	h.logger.Info("reindexing succeeded", "routingKey", d.RoutingKey)

	if err := d.Ack(); err != nil {
		return fmt.Errorf("ack reindex message: %w", err)
	}
	return nil
}
