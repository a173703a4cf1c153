package eventbus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"loansphere/internal/events"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// ExchangeName is the durable topic exchange all services publish to.
	ExchangeName = "microservices"

	// DeadLetterQueue receives messages whose handlers failed after a
	// redelivery, and malformed payloads.
	DeadLetterQueue = "microservices.dlq"

	routingPrefix  = "service."
	publishTimeout = 10 * time.Second
)

// RabbitMQBus delivers events across process boundaries through a durable
// topic exchange. Messages are persistent and manually acknowledged: a
// failed handler requeues the message once, a second failure dead-letters
// it, so delivery is at-least-once and handlers must be idempotent.
type RabbitMQBus struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[events.EventType][]Handler
}

// NewRabbitMQ connects to the broker and declares the topology. A connection
// failure is fatal to the bus instance and returned immediately rather than
// deferred to the first publish.
func NewRabbitMQ(url string, logger *slog.Logger) (*RabbitMQBus, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		ExchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", ExchangeName, err)
	}

	if _, err := ch.QueueDeclare(
		DeadLetterQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare dead-letter queue: %w", err)
	}

	return &RabbitMQBus{
		conn:     conn,
		ch:       ch,
		logger:   logger.With("bus", "rabbitmq"),
		handlers: make(map[events.EventType][]Handler),
	}, nil
}

// Publish sends the event to the exchange with routing key
// "service.<event_type>" and persistent delivery mode, so subscribers that
// are down receive it once they reconnect.
func (b *RabbitMQBus) Publish(ctx context.Context, e events.Event) error {
	body, err := e.Marshal()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = b.ch.PublishWithContext(
		ctx,
		ExchangeName,
		routingPrefix+string(e.EventType),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			CorrelationId: e.CorrelationID,
			Timestamp:     time.Now(),
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w: %w", e.EventType, ErrBusUnavailable, err)
	}

	b.logger.Info("event published",
		"event_type", e.EventType, "correlation_id", e.CorrelationID)
	return nil
}

// Subscribe registers a handler. The queue for the event type is declared
// when Consume starts.
func (b *RabbitMQBus) Subscribe(eventType events.EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// Consume declares one exclusive queue per subscribed event type, binds it
// to the exchange, and blocks pumping deliveries until ctx is cancelled.
// On cancellation it stops accepting new deliveries, lets in-flight handlers
// finish, then closes the channel and connection.
func (b *RabbitMQBus) Consume(ctx context.Context) error {
	b.mu.RLock()
	types := make([]events.EventType, 0, len(b.handlers))
	for t := range b.handlers {
		types = append(types, t)
	}
	b.mu.RUnlock()

	if err := b.ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	var wg sync.WaitGroup
	tags := make([]string, 0, len(types))

	for _, eventType := range types {
		deliveries, tag, err := b.startQueue(eventType)
		if err != nil {
			return err
		}
		tags = append(tags, tag)

		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range deliveries {
				b.settle(d)
			}
		}()
	}

	b.logger.Info("consuming", "event_types", len(types))
	<-ctx.Done()

	// Cancelling the consumers closes the delivery channels once the broker
	// stops sending; in-flight handlers complete before the pumps exit.
	for _, tag := range tags {
		if err := b.ch.Cancel(tag, false); err != nil {
			b.logger.Error("cancel consumer", "tag", tag, "error", err)
		}
	}
	wg.Wait()

	return b.Close()
}

// startQueue declares and binds the queue for one event type and starts the
// broker-side consumer. Failed messages dead-letter to the shared DLQ.
func (b *RabbitMQBus) startQueue(eventType events.EventType) (<-chan amqp.Delivery, string, error) {
	q, err := b.ch.QueueDeclare(
		"",    // broker-generated name
		false, // durable
		false, // auto-delete
		true,  // exclusive
		false, // no-wait
		amqp.Table{
			"x-dead-letter-exchange":    "",
			"x-dead-letter-routing-key": DeadLetterQueue,
		},
	)
	if err != nil {
		return nil, "", fmt.Errorf("declare queue for %s: %w", eventType, err)
	}

	routingKey := routingPrefix + string(eventType)
	if err := b.ch.QueueBind(q.Name, routingKey, ExchangeName, false, nil); err != nil {
		return nil, "", fmt.Errorf("bind %s to %s: %w", q.Name, routingKey, err)
	}

	tag := q.Name + "-consumer"
	deliveries, err := b.ch.Consume(
		q.Name,
		tag,
		false, // manual ack
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, "", fmt.Errorf("consume %s: %w", q.Name, err)
	}

	return deliveries, tag, nil
}

// settle decodes one delivery, runs its handlers, and acknowledges the
// outcome. A handler failure requeues the message; a failure of an already
// redelivered message dead-letters it instead of looping forever. No ack is
// sent before the handler completes.
func (b *RabbitMQBus) settle(d amqp.Delivery) {
	e, err := events.UnmarshalEvent(d.Body)
	if err != nil {
		b.logger.Error("dropping malformed message",
			"routing_key", d.RoutingKey, "error", err)
		_ = d.Nack(false, false)
		return
	}

	b.mu.RLock()
	handlers := b.handlers[e.EventType]
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(context.Background(), e); err != nil {
			requeue := !d.Redelivered
			b.logger.Error("handler failed",
				"event_type", e.EventType,
				"correlation_id", e.CorrelationID,
				"requeue", requeue,
				"error", err)
			_ = d.Nack(false, requeue)
			return
		}
	}

	_ = d.Ack(false)
}

// Close closes the channel and connection.
func (b *RabbitMQBus) Close() error {
	if b.ch != nil {
		_ = b.ch.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}

var _ Bus = (*RabbitMQBus)(nil)
