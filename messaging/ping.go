package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// PongFrom identifies this service in pong replies.
const PongFrom = "infosquito"

// Pong is the reply payload for ping messages.
type Pong struct {
	PongFrom string `json:"pong_from"`
}

// PingHandler answers "events.infosquito.ping" with a pong published to the
// same exchange under "events.infosquito.pong".
type PingHandler struct {
	publisher Publisher
	logger    *slog.Logger
}

// PingOption configures the PingHandler
type PingOption func(*PingHandler)

// WithPingLogger sets the logger
func WithPingLogger(logger *slog.Logger) PingOption {
	return func(h *PingHandler) {
		h.logger = logger
	}
}

// NewPingHandler creates a handler that replies through the given publisher
func NewPingHandler(publisher Publisher, options ...PingOption) *PingHandler {
	h := &PingHandler{
		publisher: publisher,
		logger:    slog.Default(),
	}

	for _, opt := range options {
		opt(h)
	}

	return h
}

// Process implements Handler. The ping is acknowledged before anything else
// happens: even if the pong cannot be published, the ping is consumed and
// never redelivered. A publish failure propagates to the supervisor, which
// tears the channel down and reconnects.
func (h *PingHandler) Process(ctx context.Context, d Delivery) error {
	if err := d.Ack(); err != nil {
		return fmt.Errorf("ack ping message: %w", err)
	}

	h.logger.Info("ping received",
		"routingKey", d.RoutingKey,
		"payload", string(d.Body))

	body, err := json.Marshal(Pong{PongFrom: PongFrom})
	if err != nil {
		return fmt.Errorf("marshal pong: %w", err)
	}

	if err := h.publisher.Publish(ctx, RoutePong, body); err != nil {
		return fmt.Errorf("publish pong: %w", err)
	}

	return nil
}
