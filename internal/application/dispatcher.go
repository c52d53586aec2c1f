package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zapgate/zapgate/internal/domain"
	"github.com/zapgate/zapgate/internal/logutil"
	"github.com/zapgate/zapgate/internal/ports"
)

// EventMessageSent is published after a successful delivery.
const EventMessageSent = "zap.message.sent.v1"

// DispatcherConfig carries the optional knobs of the delivery dispatcher.
type DispatcherConfig struct {
	// Plan is the numbering plan used to expand phone candidates.
	Plan domain.NumberPlan
	// AcquireTimeout bounds connection acquisition for sends.
	AcquireTimeout time.Duration
	// Publisher, when set, receives a message-sent event per delivery.
	Publisher ports.EventPublisher
	Clock     ports.Clock
	Logger    *slog.Logger
}

// Dispatcher sends one text message per invocation: it acquires a connection,
// resolves the best-matching identifier for the destination and delivers.
type Dispatcher struct {
	lifecycle *LifecycleManager
	plan      domain.NumberPlan
	timeout   time.Duration
	publisher ports.EventPublisher
	clock     ports.Clock
	logger    *slog.Logger
}

func NewDispatcher(lifecycle *LifecycleManager, cfg DispatcherConfig) *Dispatcher {
	plan := cfg.Plan
	if plan.CountryCode == "" {
		plan = domain.DefaultNumberPlan()
	}
	timeout := cfg.AcquireTimeout
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	clock := cfg.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}

	return &Dispatcher{
		lifecycle: lifecycle,
		plan:      plan,
		timeout:   timeout,
		publisher: cfg.Publisher,
		clock:     clock,
		logger:    logutil.NoopIfNil(cfg.Logger),
	}
}

// Send delivers text to toPhone on behalf of tenantID. Extra candidate
// phones widen the existence probe; they never widen the fallback identifier,
// which is always derived from toPhone alone.
//
// Only input validation, acquisition failure and final-send failure are
// returned as errors. The session workspace is flushed back to the blob
// store before returning regardless of outcome.
func (d *Dispatcher) Send(ctx context.Context, tenantID domain.TenantID, toPhone, text string, extraCandidates []string) (domain.DeliveryResult, error) {
	if err := tenantID.Validate(); err != nil {
		return domain.DeliveryResult{}, err
	}
	if strings.TrimSpace(toPhone) == "" {
		return domain.DeliveryResult{}, domain.ErrPhoneRequired
	}
	if strings.TrimSpace(text) == "" {
		return domain.DeliveryResult{}, domain.ErrTextRequired
	}

	sess, err := d.lifecycle.Acquire(ctx, tenantID, d.timeout)
	if err != nil {
		return domain.DeliveryResult{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer sess.Release(ctx)

	resolvedJID, matched := d.resolveDestination(ctx, sess.Conn, tenantID, toPhone, extraCandidates)
	if resolvedJID == "" {
		// Degraded-confidence path: nothing was confirmed reachable, send
		// to the canonical reading of the destination anyway.
		resolvedJID, err = domain.CanonicalJID(toPhone, d.plan)
		if err != nil {
			return domain.DeliveryResult{}, err
		}
		d.logger.Warn("destination not confirmed on network, using canonical identifier",
			slog.String("tenant", tenantID.String()), slog.String("jid", resolvedJID))
	}

	messageID, err := sess.Conn.SendText(ctx, resolvedJID, text)
	if err != nil {
		return domain.DeliveryResult{}, fmt.Errorf("send text to %s: %w", resolvedJID, err)
	}

	result := domain.DeliveryResult{
		MessageID:        messageID,
		ResolvedJID:      resolvedJID,
		VerifiedNumber:   domain.NumberFromJID(resolvedJID),
		MatchedCandidate: matched,
	}
	d.publishSent(ctx, tenantID, result)

	return result, nil
}

// resolveDestination probes the candidate set sequentially and stops at the
// first number the network confirms. Lookup failures for one candidate are
// logged and skipped; they never fail the send.
func (d *Dispatcher) resolveDestination(ctx context.Context, conn ports.Connection, tenantID domain.TenantID, toPhone string, extraCandidates []string) (jid, matched string) {
	candidates := domain.PhoneVariants(toPhone, d.plan)
	for _, extra := range extraCandidates {
		for _, v := range domain.PhoneVariants(extra, d.plan) {
			if !contains(candidates, v) {
				candidates = append(candidates, v)
			}
		}
	}

	for _, candidate := range candidates {
		results, err := conn.Lookup(ctx, candidate)
		if err != nil {
			d.logger.Warn("existence lookup failed",
				slog.String("tenant", tenantID.String()),
				slog.String("candidate", candidate), slog.Any("error", err))
			continue
		}
		for _, r := range results {
			if r.Exists && strings.TrimSpace(r.JID) != "" {
				return r.JID, candidate
			}
		}
	}

	return "", ""
}

func (d *Dispatcher) publishSent(ctx context.Context, tenantID domain.TenantID, result domain.DeliveryResult) {
	if d.publisher == nil {
		return
	}
	event := ports.Event{
		ID:         uuid.NewString(),
		Type:       EventMessageSent,
		TenantID:   tenantID,
		OccurredAt: d.clock.Now(),
		Data:       result,
	}
	if err := d.publisher.Publish(ctx, EventMessageSent, event); err != nil {
		d.logger.Warn("publish message-sent event",
			slog.String("tenant", tenantID.String()), slog.Any("error", err))
	}
}

func contains(values []string, v string) bool {
	for _, existing := range values {
		if existing == v {
			return true
		}
	}
	return false
}
