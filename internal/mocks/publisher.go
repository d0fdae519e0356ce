package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"
	"google.golang.org/protobuf/proto"

	"messenger-service/internal/brokers"
)

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func (m *PublisherMock) PublishJSON(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	args := m.Called(ctx, routingKey, event, headers)
	return args.Error(0)
}

func (m *PublisherMock) PublishProto(ctx context.Context, routingKey string, msg proto.Message, headers map[string]string) error {
	args := m.Called(ctx, routingKey, msg, headers)
	return args.Error(0)
}

func (m *PublisherMock) Close() error {
	args := m.Called()
	return args.Error(0)
}

// EmitterRecorder captures emitted events synchronously.
type EmitterRecorder struct {
	mu     sync.Mutex
	Events []brokers.Event
}

func (r *EmitterRecorder) Emit(ctx context.Context, event brokers.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, event)
}

// Named returns the recorded events with the given name.
func (r *EmitterRecorder) Named(name string) []brokers.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []brokers.Event
	for _, e := range r.Events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
