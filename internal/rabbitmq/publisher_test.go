package rabbitmq

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublishChannel struct {
	exchange string
	key      string
	msg      amqp.Publishing
	err      error
}

func (c *capturePublishChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.err != nil {
		return c.err
	}
	c.exchange = exchange
	c.key = key
	c.msg = msg
	return nil
}

func TestPublisherPublish(t *testing.T) {
	t.Run("publishes persistent JSON to the configured exchange", func(t *testing.T) {
		ch := &capturePublishChannel{}
		publisher := NewPublisher(ch, "de", discardLogger())

		err := publisher.Publish(context.Background(), "events.infosquito.pong", []byte(`{"pong_from":"infosquito"}`))

		require.NoError(t, err)
		assert.Equal(t, "de", ch.exchange)
		assert.Equal(t, "events.infosquito.pong", ch.key)
		assert.Equal(t, "application/json", ch.msg.ContentType)
		assert.Equal(t, uint8(amqp.Persistent), ch.msg.DeliveryMode)
		assert.NotEmpty(t, ch.msg.MessageId)
		assert.Equal(t, `{"pong_from":"infosquito"}`, string(ch.msg.Body))
	})

	t.Run("wraps publish failures", func(t *testing.T) {
		boom := errors.New("channel closed")
		publisher := NewPublisher(&capturePublishChannel{err: boom}, "de", discardLogger())

		err := publisher.Publish(context.Background(), "events.infosquito.pong", nil)

		var pubErr *PublishError
		require.ErrorAs(t, err, &pubErr)
		assert.Equal(t, "de", pubErr.Exchange)
		assert.Equal(t, "events.infosquito.pong", pubErr.RoutingKey)
		assert.ErrorIs(t, err, boom)
	})
}
