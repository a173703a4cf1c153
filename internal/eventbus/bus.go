package eventbus

import (
	"context"
	"errors"

	"loansphere/internal/events"
)

// Handler processes one delivered event. Handlers on the durable bus may see
// the same event more than once and must be idempotent.
type Handler func(ctx context.Context, e events.Event) error

// Bus is the transport-agnostic publish/subscribe contract. The concrete
// implementation is chosen once at startup via New; calling code never
// branches on transport kind.
type Bus interface {
	// Publish sends the event to all subscribers of its type. A transport
	// failure is returned wrapped in ErrBusUnavailable; the event is never
	// silently dropped.
	Publish(ctx context.Context, e events.Event) error

	// Subscribe registers a handler for an event type. A type may have any
	// number of independent handlers.
	Subscribe(eventType events.EventType, h Handler)

	// Consume blocks dispatching incoming events to subscribed handlers
	// until ctx is cancelled. Implementations without an external transport
	// return immediately.
	Consume(ctx context.Context) error

	// Close releases transport resources.
	Close() error
}

// Bus errors
var (
	// ErrBusUnavailable wraps transport failures surfaced to publishers.
	ErrBusUnavailable = errors.New("event bus unavailable")

	// ErrUnsupportedBus is returned by the factory for a configured bus kind
	// that has no implementation.
	ErrUnsupportedBus = errors.New("unsupported event bus type")
)
