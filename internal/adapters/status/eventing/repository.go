// Package eventing decorates a status repository so that state transitions
// fan out as integration events alongside the durable write.
package eventing

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/zapgate/zapgate/internal/domain"
	"github.com/zapgate/zapgate/internal/logutil"
	"github.com/zapgate/zapgate/internal/ports"
)

// EventStatusChanged is published after a merge that set the state field.
const EventStatusChanged = "zap.status.changed.v1"

type Repository struct {
	inner     ports.StatusRepository
	publisher ports.EventPublisher
	clock     ports.Clock
	logger    *slog.Logger
}

var _ ports.StatusRepository = (*Repository)(nil)

func Wrap(inner ports.StatusRepository, publisher ports.EventPublisher, logger *slog.Logger) *Repository {
	return &Repository{
		inner:     inner,
		publisher: publisher,
		clock:     ports.SystemClock{},
		logger:    logutil.NoopIfNil(logger),
	}
}

func (r *Repository) Get(ctx context.Context, tenantID domain.TenantID) (domain.ConnectionStatus, error) {
	return r.inner.Get(ctx, tenantID)
}

// Merge writes through to the inner repository; when the patch carries a state
// transition the resulting document is published as an event. Publishing is
// best-effort and never fails the write.
func (r *Repository) Merge(ctx context.Context, tenantID domain.TenantID, patch domain.StatusPatch) error {
	if err := r.inner.Merge(ctx, tenantID, patch); err != nil {
		return err
	}
	if patch.State == nil {
		return nil
	}

	status, err := r.inner.Get(ctx, tenantID)
	if err != nil {
		r.logger.Warn("read status for event",
			slog.String("tenant", tenantID.String()), slog.Any("error", err))
		return nil
	}

	event := ports.Event{
		ID:         uuid.NewString(),
		Type:       EventStatusChanged,
		TenantID:   tenantID,
		OccurredAt: r.clock.Now(),
		Data:       status,
	}
	if err := r.publisher.Publish(ctx, EventStatusChanged, event); err != nil {
		r.logger.Warn("publish status-changed event",
			slog.String("tenant", tenantID.String()), slog.Any("error", err))
	}

	return nil
}
