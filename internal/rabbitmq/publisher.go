package rabbitmq

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// PublishChannel is the subset of *amqp.Channel used for publishing.
type PublishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher publishes persistent JSON messages to a single exchange over the
// channel it was created with. It is bound to that channel's lifetime: a new
// subscribe cycle gets a new publisher.
type Publisher struct {
	ch       PublishChannel
	exchange string
	logger   *slog.Logger
}

// NewPublisher creates a publisher bound to the given channel and exchange
func NewPublisher(ch PublishChannel, exchange string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		ch:       ch,
		exchange: exchange,
		logger:   logger,
	}
}

// Publish sends body to the exchange under the given routing key
func (p *Publisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	err := p.ch.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return &PublishError{Exchange: p.exchange, RoutingKey: routingKey, Err: err}
	}

	p.logger.Debug("published message",
		"exchange", p.exchange,
		"routingKey", routingKey,
		"bytes", len(body))

	return nil
}
