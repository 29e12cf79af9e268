package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the consumer-side Prometheus collectors.
type Metrics struct {
	// Delivered counts messages presented by the broker, by routing key.
	Delivered *prometheus.CounterVec

	// Acked counts messages acknowledged and removed from the queue.
	Acked prometheus.Counter

	// Rejected counts messages rejected back onto the queue for redelivery.
	Rejected prometheus.Counter

	// Unrouted counts messages dropped because no handler matched their
	// routing key. These messages are left unacknowledged on the broker.
	Unrouted prometheus.Counter

	// Reconnects counts torn-down subscribe cycles.
	Reconnects prometheus.Counter
}

// NewMetrics registers the consumer collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Delivered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "infosquito_messages_delivered_total",
			Help: "Messages presented to the consumer, by routing key.",
		}, []string{"routing_key"}),
		Acked: factory.NewCounter(prometheus.CounterOpts{
			Name: "infosquito_messages_acked_total",
			Help: "Messages acknowledged and removed from the queue.",
		}),
		Rejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "infosquito_messages_rejected_total",
			Help: "Messages rejected back onto the queue for redelivery.",
		}),
		Unrouted: factory.NewCounter(prometheus.CounterOpts{
			Name: "infosquito_messages_unrouted_total",
			Help: "Messages dropped because no handler matched their routing key.",
		}),
		Reconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "infosquito_reconnects_total",
			Help: "Subscribe cycles torn down and restarted.",
		}),
	}
}
