package rabbitmq

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the subset of *amqp.Channel used for topology declaration.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
}

// Exchange describes the topic exchange messages are routed through.
type Exchange struct {
	Name       string
	Durable    bool
	AutoDelete bool
}

// Topology describes the exchange, queue, and bindings this consumer needs.
// The queue is always durable, shared, and never auto-deleted so queued
// reindex requests survive both broker and consumer restarts.
type Topology struct {
	Exchange Exchange
	Queue    string
	Bindings []string
}

// Declare sets up the exchange and queue and binds the queue for each routing
// key pattern. Declaration is idempotent on the broker: repeating it with
// identical parameters is a no-op.
func (t Topology) Declare(ch Channel) error {
	err := ch.ExchangeDeclare(
		t.Exchange.Name,
		"topic",
		t.Exchange.Durable,
		t.Exchange.AutoDelete,
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return &TopologyError{Component: "exchange", Name: t.Exchange.Name, Op: "declare", Err: err}
	}

	_, err = ch.QueueDeclare(
		t.Queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return &TopologyError{Component: "queue", Name: t.Queue, Op: "declare", Err: err}
	}

	for _, key := range t.Bindings {
		if err := ch.QueueBind(t.Queue, key, t.Exchange.Name, false, nil); err != nil {
			return &TopologyError{Component: "binding", Name: key, Op: "declare", Err: err}
		}
	}

	return nil
}
