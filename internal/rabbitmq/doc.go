// Package rabbitmq provides the broker-facing building blocks for the
// infosquito consumer.
//
// This package includes:
//   - ConnectionManager: opens connections, retrying forever with exponential backoff
//   - Topology: declares the topic exchange, the durable queue, and its bindings
//   - Publisher: publishes persistent JSON messages on a single channel
//
// The service owns exactly one connection and one channel at a time; there is
// no pooling here. Resource lifecycle is driven by the messaging supervisor,
// which tears everything down and reconnects on any subscription failure.
package rabbitmq
