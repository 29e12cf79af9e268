package messaging

import (
	"context"
	"time"

	"github.com/cyverse-de/infosquito/internal/reliability"
	"github.com/stretchr/testify/mock"
)

// recordingAck counts settlement calls and appends them to an optional
// shared event log so tests can assert ordering.
type recordingAck struct {
	acks    int
	rejects int
	requeue bool

	ackErr    error
	rejectErr error

	events *[]string
}

func (a *recordingAck) Ack() error {
	if a.ackErr != nil {
		return a.ackErr
	}
	a.acks++
	if a.events != nil {
		*a.events = append(*a.events, "ack")
	}
	return nil
}

func (a *recordingAck) Reject(requeue bool) error {
	if a.rejectErr != nil {
		return a.rejectErr
	}
	a.rejects++
	a.requeue = requeue
	if a.events != nil {
		*a.events = append(*a.events, "reject")
	}
	return nil
}

// recordingSleeper appends requested delays without waiting.
func recordingSleeper(delays *[]time.Duration, events *[]string) reliability.Sleeper {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		if events != nil {
			*events = append(*events, "sleep")
		}
		return nil
	}
}

// capturePublisher records published messages.
type capturePublisher struct {
	keys   []string
	bodies [][]byte
	err    error
	events *[]string
}

func (p *capturePublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, routingKey)
	p.bodies = append(p.bodies, body)
	if p.events != nil {
		*p.events = append(*p.events, "publish")
	}
	return nil
}

// mockReindexer mocks the external reindex action.
type mockReindexer struct {
	mock.Mock
}

func (m *mockReindexer) Reindex(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// fakeSession is a scripted broker session.
type fakeSession struct {
	deliveries chan Delivery
	publisher  Publisher

	declareErr error
	consumeErr error

	declared bool
	closed   bool
}

func (s *fakeSession) DeclareTopology(ctx context.Context) error {
	if s.declareErr != nil {
		return s.declareErr
	}
	s.declared = true
	return nil
}

func (s *fakeSession) Consume(ctx context.Context) (<-chan Delivery, error) {
	if s.consumeErr != nil {
		return nil, s.consumeErr
	}
	return s.deliveries, nil
}

func (s *fakeSession) Publisher() Publisher {
	if s.publisher == nil {
		return &capturePublisher{}
	}
	return s.publisher
}

func (s *fakeSession) Close() {
	s.closed = true
}

// fakeTransport hands out scripted sessions. When the script runs out it
// cancels the test context so Supervisor.Run unwinds.
type fakeTransport struct {
	sessions []*fakeSession
	connects int
	done     context.CancelFunc
}

func (t *fakeTransport) Connect(ctx context.Context) (Session, error) {
	t.connects++
	if t.connects > len(t.sessions) {
		if t.done != nil {
			t.done()
		}
		return nil, context.Canceled
	}
	return t.sessions[t.connects-1], nil
}
