package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"loansphere/internal/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPublishNoSubscribers(t *testing.T) {
	bus := NewMemory(slog.Default())

	err := bus.Publish(context.Background(), events.NewLoanCreated(1, "2", "3", 50000))
	assert.NoError(t, err)
}

func TestMemoryDispatchesInRegistrationOrder(t *testing.T) {
	bus := NewMemory(slog.Default())

	var order []string
	bus.Subscribe(events.LoanCreated, func(ctx context.Context, e events.Event) error {
		order = append(order, "first")
		return nil
	})
	bus.Subscribe(events.LoanCreated, func(ctx context.Context, e events.Event) error {
		order = append(order, "second")
		return nil
	})

	err := bus.Publish(context.Background(), events.NewLoanCreated(1, "2", "3", 50000))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestMemoryHandlerErrorIsIsolated(t *testing.T) {
	bus := NewMemory(slog.Default())

	secondRan := false
	bus.Subscribe(events.LoanApproved, func(ctx context.Context, e events.Event) error {
		return errors.New("boom")
	})
	bus.Subscribe(events.LoanApproved, func(ctx context.Context, e events.Event) error {
		secondRan = true
		return nil
	})

	err := bus.Publish(context.Background(), events.NewLoanApproved(1, "2"))
	assert.NoError(t, err, "handler failures never reach the publisher")
	assert.True(t, secondRan, "a failing handler must not block later handlers")
}

func TestMemoryHandlerPanicIsIsolated(t *testing.T) {
	bus := NewMemory(slog.Default())

	secondRan := false
	bus.Subscribe(events.UserCreated, func(ctx context.Context, e events.Event) error {
		panic("handler bug")
	})
	bus.Subscribe(events.UserCreated, func(ctx context.Context, e events.Event) error {
		secondRan = true
		return nil
	})

	err := bus.Publish(context.Background(), events.NewUserCreated(1, "a@b.c", true, false))
	assert.NoError(t, err)
	assert.True(t, secondRan)
}

func TestMemoryOnlyMatchingTypeDispatched(t *testing.T) {
	bus := NewMemory(slog.Default())

	var got []events.EventType
	bus.Subscribe(events.LoanApproved, func(ctx context.Context, e events.Event) error {
		got = append(got, e.EventType)
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), events.NewLoanRejected(1, "2")))
	require.NoError(t, bus.Publish(context.Background(), events.NewLoanApproved(1, "2")))

	assert.Equal(t, []events.EventType{events.LoanApproved}, got)
}

func TestMemoryConsumeIsNoOp(t *testing.T) {
	bus := NewMemory(slog.Default())
	assert.NoError(t, bus.Consume(context.Background()))
	assert.NoError(t, bus.Close())
}
