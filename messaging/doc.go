// Package messaging implements the message-dispatch engine of the infosquito
// reindexing notifier.
//
// The Supervisor owns the connection lifecycle: it connects (retrying forever
// with exponential backoff), declares the topology, and consumes messages
// strictly sequentially, tearing everything down and reconnecting on any
// subscription failure. Each delivery is routed by its literal routing key
// through a Registry to one of two handlers:
//
//   - ReindexHandler ("index.all", "index.data") triggers the external
//     reindex action, acking on success and rejecting with requeue after a
//     blocking retry interval on failure.
//   - PingHandler ("events.infosquito.ping") acks immediately and replies
//     with a pong on "events.infosquito.pong".
//
// Messages whose routing key has no registered handler are neither
// acknowledged nor rejected. They accumulate as unacked deliveries on the
// channel until the connection is torn down, at which point the broker
// requeues them. The service's own pong replies fall into this category:
// the queue's wildcard binding routes them back in, and no handler matches
// them. The dispatcher logs and counts each one.
package messaging
