package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"loansphere/internal/events"
)

// MemoryBus is a synchronous in-process bus for single-service deployments
// and tests. Handlers run inline on the publisher's goroutine in
// registration order. Events published while no handler is subscribed are
// lost; there is no durability.
type MemoryBus struct {
	mu       sync.RWMutex
	handlers map[events.EventType][]Handler
	logger   *slog.Logger
}

// NewMemory creates an in-memory bus.
func NewMemory(logger *slog.Logger) *MemoryBus {
	return &MemoryBus{
		handlers: make(map[events.EventType][]Handler),
		logger:   logger.With("bus", "memory"),
	}
}

// Subscribe registers a handler for an event type.
func (b *MemoryBus) Subscribe(eventType events.EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// Publish invokes every handler for the event's type synchronously. A
// failing or panicking handler is logged and does not stop the remaining
// handlers or reach the publisher. Publishing with zero subscribers is not
// an error.
func (b *MemoryBus) Publish(ctx context.Context, e events.Event) error {
	b.mu.RLock()
	handlers := b.handlers[e.EventType]
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(ctx, h, e)
	}
	return nil
}

func (b *MemoryBus) dispatch(ctx context.Context, h Handler, e events.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				"event_type", e.EventType, "panic", fmt.Sprint(r))
		}
	}()
	if err := h(ctx, e); err != nil {
		b.logger.Error("handler failed",
			"event_type", e.EventType, "error", err)
	}
}

// Consume is a no-op: there is no external transport to pump.
func (b *MemoryBus) Consume(ctx context.Context) error {
	return nil
}

// Close is a no-op.
func (b *MemoryBus) Close() error {
	return nil
}

var _ Bus = (*MemoryBus)(nil)
