package messaging

import (
	"context"
	"sort"
	"sync"
)

// Handler processes a single delivery. The handler owns the acknowledgment
// decision: it acks, rejects, or deliberately leaves the message unsettled.
// A returned error is not recovered locally; it aborts the current subscribe
// cycle and the supervisor reconnects.
type Handler interface {
	Process(ctx context.Context, d Delivery) error
}

// HandlerFunc is a function adapter for Handler
type HandlerFunc func(ctx context.Context, d Delivery) error

// Process implements Handler
func (f HandlerFunc) Process(ctx context.Context, d Delivery) error {
	return f(ctx, d)
}

// Registry maps literal routing keys to handlers. Queue bindings may use
// wildcard patterns, but lookup is always an exact string match on the
// delivered key.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to a routing key, replacing any previous binding
func (r *Registry) Register(routingKey string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[routingKey] = h
}

// Lookup returns the handler for a routing key. A miss is a valid state: it
// means no handler exists for that key.
func (r *Registry) Lookup(routingKey string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[routingKey]
	return h, ok
}

// Keys returns the registered routing keys in sorted order
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.handlers))
	for key := range r.handlers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
