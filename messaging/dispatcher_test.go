package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cyverse-de/infosquito/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestDispatcherRoute(t *testing.T) {
	t.Run("invokes the matching handler exactly once", func(t *testing.T) {
		registry := NewRegistry()
		calls := 0
		registry.Register(RouteReindexAll, HandlerFunc(func(ctx context.Context, d Delivery) error {
			calls++
			return nil
		}))
		dispatcher := NewDispatcher(registry)

		err := dispatcher.Route(context.Background(), Delivery{
			RoutingKey:   RouteReindexAll,
			Acknowledger: &recordingAck{},
		})

		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("both reindex routing keys invoke the action once per message", func(t *testing.T) {
		reindexer := &mockReindexer{}
		reindexer.On("Reindex", mock.Anything).Return(nil)

		handler := NewReindexHandler(reindexer, time.Second)
		registry := NewRegistry()
		registry.Register(RouteReindexAll, handler)
		registry.Register(RouteReindexData, handler)
		dispatcher := NewDispatcher(registry)

		for _, key := range []string{RouteReindexAll, RouteReindexData} {
			err := dispatcher.Route(context.Background(), Delivery{
				RoutingKey:   key,
				Acknowledger: &recordingAck{},
			})
			assert.NoError(t, err)
		}

		reindexer.AssertNumberOfCalls(t, "Reindex", 2)
	})

	t.Run("unregistered routing key drops the message without ack or reject", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(RoutePing, HandlerFunc(func(ctx context.Context, d Delivery) error {
			t.Fatal("handler must not run")
			return nil
		}))
		metrics := telemetry.NewMetrics(prometheus.NewRegistry())
		dispatcher := NewDispatcher(registry, WithDispatcherMetrics(metrics))

		ack := &recordingAck{}
		err := dispatcher.Route(context.Background(), Delivery{
			RoutingKey:   "events.infosquito.unknown",
			Acknowledger: ack,
		})

		assert.NoError(t, err)
		assert.Zero(t, ack.acks)
		assert.Zero(t, ack.rejects)
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Unrouted))
	})

	t.Run("handler errors propagate to the caller", func(t *testing.T) {
		registry := NewRegistry()
		boom := errors.New("publish failed")
		registry.Register(RoutePing, HandlerFunc(func(ctx context.Context, d Delivery) error {
			return boom
		}))
		dispatcher := NewDispatcher(registry)

		err := dispatcher.Route(context.Background(), Delivery{
			RoutingKey:   RoutePing,
			Acknowledger: &recordingAck{},
		})

		assert.ErrorIs(t, err, boom)
	})

	t.Run("settlement outcomes are counted when metrics are set", func(t *testing.T) {
		registry := NewRegistry()
		registry.Register(RouteReindexAll, HandlerFunc(func(ctx context.Context, d Delivery) error {
			return d.Ack()
		}))
		registry.Register(RouteReindexData, HandlerFunc(func(ctx context.Context, d Delivery) error {
			return d.Reject(true)
		}))
		metrics := telemetry.NewMetrics(prometheus.NewRegistry())
		dispatcher := NewDispatcher(registry, WithDispatcherMetrics(metrics))

		assert.NoError(t, dispatcher.Route(context.Background(), Delivery{
			RoutingKey:   RouteReindexAll,
			Acknowledger: &recordingAck{},
		}))
		assert.NoError(t, dispatcher.Route(context.Background(), Delivery{
			RoutingKey:   RouteReindexData,
			Acknowledger: &recordingAck{},
		}))

		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Acked))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Rejected))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Delivered.WithLabelValues(RouteReindexAll)))
	})
}
