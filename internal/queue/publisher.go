package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/tripbook/internal/model"
)

// Publisher sends booking events to RabbitMQ.  Each publish opens its own
// connection, which is plenty for the booking rate this service sees.
type Publisher struct {
	url     string
	timeout time.Duration
	logger  *slog.Logger
	dial    func(url string) (channel, func(), error)
}

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

func NewPublisher(url string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{url: url, timeout: 3 * time.Second, logger: logger, dial: dialChannel}
}

func dialChannel(url string) (channel, func(), error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	return ch, func() { _ = ch.Close(); _ = conn.Close() }, nil
}

// PublishBookingCreated publishes a BookingCreatedEvent to the
// booking.created queue.  Messages are persistent.  Errors are returned so
// the caller can log them and move on.
func (p *Publisher) PublishBookingCreated(ctx context.Context, b model.Booking) error {
	body, err := json.Marshal(NewBookingCreatedEvent(b))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, closeFn, err := p.dial(p.url)
	if err != nil {
		return err
	}
	defer closeFn()

	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(BookingCreatedQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    b.ID,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", BookingCreatedQueue, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	p.logger.DebugContext(ctx, "booking event published", slog.String("booking_id", b.ID))
	return nil
}
