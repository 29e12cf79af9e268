// Package reliability holds the reconnect backoff policy and the cancellable
// sleep used by the broker connection manager and the message supervisor.
//
// The backoff sequence is deliberately simple: a fixed initial delay that
// doubles on each consecutive failure up to a hard cap, with no jitter. A
// single consumer reconnecting to a single broker gains nothing from
// desynchronization.
package reliability
