package ports

import (
	"context"
	"time"

	"github.com/zapgate/zapgate/internal/domain"
)

// Event is a versioned integration event emitted by the core, e.g.
// zap.message.sent.v1 or zap.status.changed.v1.
type Event struct {
	ID         string
	Type       string
	TenantID   domain.TenantID
	OccurredAt time.Time
	Data       any
}

// EventPublisher fans events out to interested consumers. Publishing is
// best-effort from the core's point of view: failures are logged, never
// propagated into the send/pairing result.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event Event) error
	Close() error
}
