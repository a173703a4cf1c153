package eventbus

import (
	"fmt"
	"log/slog"
)

// Bus kinds selectable via the EVENT_BUS_TYPE configuration variable.
const (
	KindMemory   = "memory"
	KindRabbitMQ = "rabbitmq"
	KindRedis    = "redis"
)

// New selects the concrete bus implementation once at startup. An unknown or
// unimplemented kind fails fast instead of silently falling back to the
// in-memory bus.
func New(kind, url string, logger *slog.Logger) (Bus, error) {
	switch kind {
	case "", KindMemory:
		return NewMemory(logger), nil
	case KindRabbitMQ:
		return NewRabbitMQ(url, logger)
	case KindRedis:
		return nil, fmt.Errorf("%w: redis bus not implemented", ErrUnsupportedBus)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBus, kind)
	}
}
