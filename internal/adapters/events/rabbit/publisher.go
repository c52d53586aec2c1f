// Package rabbit publishes core events to a RabbitMQ topic exchange as
// JSON envelopes, for consumers outside this process (notification hooks,
// audit trails).
package rabbit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"github.com/zapgate/zapgate/internal/logutil"
	"github.com/zapgate/zapgate/internal/ports"
)

type Meta struct {
	// Unique event ID
	ID string `json:"id"`
	// Event name and version, e.g. zap.message.sent.v1
	Type string `json:"type"`
	// Tenant the event belongs to
	TenantID string `json:"tenant_id"`
	// Timestamp when the event was emitted
	Time time.Time `json:"time"`
}

type Envelope struct {
	Meta Meta `json:"meta"`
	Data any  `json:"data"`
}

type Publisher struct {
	conn     *amqp091.Connection
	exchange string
	log      *slog.Logger
}

var _ ports.EventPublisher = (*Publisher)(nil)

func New(url, exchange string, logger *slog.Logger) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(
		exchange, "topic", true, false, false, false, nil,
	); err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{
		conn:     conn,
		exchange: exchange,
		log:      logutil.NoopIfNil(logger),
	}, nil
}

func (p *Publisher) Publish(ctx context.Context, key string, event ports.Event) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	msgID := event.ID
	if msgID == "" {
		msgID = uuid.NewString()
	}
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	body, err := json.Marshal(Envelope{
		Meta: Meta{
			ID:       msgID,
			Type:     event.Type,
			TenantID: event.TenantID.String(),
			Time:     occurredAt,
		},
		Data: event.Data,
	})
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(
		ctx, p.exchange, key, false, false,
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    msgID,
			Timestamp:    occurredAt,
			Body:         body,
		},
	)
	if err == nil {
		p.log.Info("published", slog.String("key", key), slog.String("exchange", p.exchange))
	}
	return err
}

func (p *Publisher) Close() error {
	return p.conn.Close()
}
