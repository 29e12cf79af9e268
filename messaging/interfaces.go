package messaging

import (
	"context"
)

// Acknowledger settles a single delivery with the broker.
type Acknowledger interface {
	// Ack removes the message from the queue permanently.
	Ack() error

	// Reject refuses the message; with requeue the broker redelivers it.
	Reject(requeue bool) error
}

// Delivery is one message presented by the broker. The embedded Acknowledger
// is the delivery's opaque handle for ack/reject.
type Delivery struct {
	RoutingKey string
	Body       []byte
	Acknowledger
}

// Publisher publishes a message body to the exchange the consumer is bound
// to. The publish capability is handed to handlers explicitly so they can be
// tested without a broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Reindexer is the external reindexing action triggered by reindex messages.
// Its implementation lives outside this package.
type Reindexer interface {
	Reindex(ctx context.Context) error
}

// ReindexerFunc is a function adapter for Reindexer
type ReindexerFunc func(ctx context.Context) error

// Reindex implements Reindexer
func (f ReindexerFunc) Reindex(ctx context.Context) error {
	return f(ctx)
}
