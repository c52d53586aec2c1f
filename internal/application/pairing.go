package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/zapgate/zapgate/internal/domain"
	"github.com/zapgate/zapgate/internal/logutil"
	"github.com/zapgate/zapgate/internal/ports"
)

// maxPairingAttempts caps the automatic retry loop around recoverable
// connection failures during pairing.
const maxPairingAttempts = 2

// OrchestratorConfig carries the optional knobs of the pairing orchestrator.
type OrchestratorConfig struct {
	// AcquireTimeout bounds each pairing attempt.
	AcquireTimeout time.Duration
	Logger         *slog.Logger
}

// Orchestrator drives the pairing handshake: it retries recoverable
// connection failures a bounded number of times and records every transition
// in the status document, which the pairing UI polls for the QR payload.
type Orchestrator struct {
	lifecycle *LifecycleManager
	status    ports.StatusRepository
	timeout   time.Duration
	logger    *slog.Logger
}

func NewOrchestrator(lifecycle *LifecycleManager, status ports.StatusRepository, cfg OrchestratorConfig) *Orchestrator {
	timeout := cfg.AcquireTimeout
	if timeout <= 0 {
		timeout = DefaultPairTimeout
	}

	return &Orchestrator{
		lifecycle: lifecycle,
		status:    status,
		timeout:   timeout,
		logger:    logutil.NoopIfNil(cfg.Logger),
	}
}

// StartPairing never returns an error: the outcome is the returned result
// and whatever the status document now says. A successful attempt ends in
// connected; anything else ends in pending_qr with the last error recorded,
// leaving the tenant to scan the last published QR or try again later.
//
// The connection opened by an attempt is always closed before the next one;
// pairing never keeps a connection alive for reuse.
func (o *Orchestrator) StartPairing(ctx context.Context, tenantID domain.TenantID, timeout time.Duration) domain.PairingResult {
	if err := tenantID.Validate(); err != nil {
		return domain.PairingResult{State: domain.StatePendingQR, Err: err.Error()}
	}
	if timeout <= 0 {
		timeout = o.timeout
	}

	var lastErr error
	attempt := 1
	for ; attempt <= maxPairingAttempts; attempt++ {
		if attempt == 1 {
			o.mergeStatus(ctx, tenantID, domain.StatusPatch{
				State:                 statePtr(domain.StateInitializing),
				ClearQRCode:           true,
				ClearDisconnectReason: true,
				ClearLastError:        true,
				ClearRetryAttempt:     true,
			})
		} else {
			message := lastErr.Error()
			retry := attempt
			o.mergeStatus(ctx, tenantID, domain.StatusPatch{
				State:        statePtr(domain.StateRetrying),
				LastError:    &message,
				RetryAttempt: &retry,
			})
		}

		o.logger.Info("starting pairing attempt",
			slog.String("tenant", tenantID.String()), slog.Int("attempt", attempt))

		sess, err := o.lifecycle.Acquire(ctx, tenantID, timeout)
		if err == nil {
			sess.Release(ctx)
			return domain.PairingResult{State: domain.StateConnected}
		}

		lastErr = err
		if !IsRecoverable(err) {
			break
		}
		o.logger.Warn("pairing attempt failed, retrying",
			slog.String("tenant", tenantID.String()),
			slog.Int("attempt", attempt), slog.Any("error", err))
	}

	if attempt > maxPairingAttempts {
		attempt = maxPairingAttempts
	}
	message := lastErr.Error()
	retry := attempt
	o.mergeStatus(ctx, tenantID, domain.StatusPatch{
		State:        statePtr(domain.StatePendingQR),
		LastError:    &message,
		RetryAttempt: &retry,
	})

	return domain.PairingResult{State: domain.StatePendingQR, Err: message}
}

func (o *Orchestrator) mergeStatus(ctx context.Context, tenantID domain.TenantID, patch domain.StatusPatch) {
	if err := o.status.Merge(ctx, tenantID, patch); err != nil {
		o.logger.Warn("update pairing status",
			slog.String("tenant", tenantID.String()), slog.Any("error", err))
	}
}
