package messaging

// Routing keys and binding patterns for the reindex queue.
const (
	// RouteReindexAll requests a full reindex.
	RouteReindexAll = "index.all"

	// RouteReindexData requests a reindex of the data stores only.
	RouteReindexData = "index.data"

	// RoutePing is the health-check request key.
	RoutePing = "events.infosquito.ping"

	// RoutePong is the health-check reply key.
	RoutePong = "events.infosquito.pong"

	// BindingEvents is the wildcard pattern binding the queue to all
	// infosquito events. The binding is a pattern; handler lookup still
	// matches the delivered key literally.
	BindingEvents = "events.infosquito.#"
)

// DefaultBindings returns the routing key patterns the reindex queue is bound
// with.
func DefaultBindings() []string {
	return []string{RouteReindexAll, RouteReindexData, BindingEvents}
}
