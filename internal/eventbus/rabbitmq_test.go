package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"loansphere/internal/events"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAcknowledger records the acknowledgement decision for a delivery.
type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func newTestBus() *RabbitMQBus {
	return &RabbitMQBus{
		logger:   slog.Default().With("bus", "rabbitmq"),
		handlers: make(map[events.EventType][]Handler),
	}
}

func delivery(t *testing.T, e events.Event, redelivered bool) (amqp.Delivery, *fakeAcknowledger) {
	t.Helper()
	body, err := e.Marshal()
	require.NoError(t, err)

	ack := &fakeAcknowledger{}
	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  1,
		Redelivered:  redelivered,
		RoutingKey:   routingPrefix + string(e.EventType),
		Body:         body,
	}, ack
}

func TestSettleAcksOnSuccess(t *testing.T) {
	bus := newTestBus()

	var got events.Event
	bus.Subscribe(events.LoanApproved, func(ctx context.Context, e events.Event) error {
		got = e
		return nil
	})

	d, ack := delivery(t, events.NewLoanApproved(7, "3"), false)
	bus.settle(d)

	assert.True(t, ack.acked, "successful handler acknowledges the message")
	assert.False(t, ack.nacked)
	assert.Equal(t, events.LoanApproved, got.EventType)
}

func TestSettleRequeuesOnHandlerFailure(t *testing.T) {
	bus := newTestBus()
	bus.Subscribe(events.LoanCreated, func(ctx context.Context, e events.Event) error {
		return errors.New("downstream unavailable")
	})

	d, ack := delivery(t, events.NewLoanCreated(7, "3", "5", 50000), false)
	bus.settle(d)

	assert.True(t, ack.nacked)
	assert.True(t, ack.requeue, "first failure requeues for redelivery")
	assert.False(t, ack.acked)
}

func TestSettleDeadLettersRedeliveredFailure(t *testing.T) {
	bus := newTestBus()
	bus.Subscribe(events.LoanCreated, func(ctx context.Context, e events.Event) error {
		return errors.New("still failing")
	})

	d, ack := delivery(t, events.NewLoanCreated(7, "3", "5", 50000), true)
	bus.settle(d)

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue, "redelivered failure goes to the dead-letter queue")
}

func TestSettleDropsMalformedPayload(t *testing.T) {
	bus := newTestBus()

	handled := false
	bus.Subscribe(events.LoanCreated, func(ctx context.Context, e events.Event) error {
		handled = true
		return nil
	})

	ack := &fakeAcknowledger{}
	bus.settle(amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  1,
		Body:         []byte(`{"event_type":`),
	})

	assert.False(t, handled)
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeue, "poison messages are not requeued")
}

func TestSettleStopsAtFirstFailingHandler(t *testing.T) {
	bus := newTestBus()

	var order []string
	bus.Subscribe(events.AgentApproved, func(ctx context.Context, e events.Event) error {
		order = append(order, "first")
		return errors.New("boom")
	})
	bus.Subscribe(events.AgentApproved, func(ctx context.Context, e events.Event) error {
		order = append(order, "second")
		return nil
	})

	d, ack := delivery(t, events.NewAgentApproved(5, "agent@example.com"), false)
	bus.settle(d)

	assert.Equal(t, []string{"first"}, order,
		"the whole delivery is retried, so later handlers wait for redelivery")
	assert.True(t, ack.requeue)
}
