package application

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zapgate/zapgate/internal/domain"
	"github.com/zapgate/zapgate/internal/logutil"
	"github.com/zapgate/zapgate/internal/ports"
)

const (
	// DefaultSendTimeout bounds connection acquisition on the send path.
	DefaultSendTimeout = 20 * time.Second
	// DefaultPairTimeout bounds connection acquisition while pairing, long
	// enough for a human to scan the published QR code.
	DefaultPairTimeout = 60 * time.Second

	defaultSessionPrefix = "sessions"

	disconnectReasonLoggedOut = "logged_out"

	workspaceDirMode = 0o700
)

// LifecycleConfig carries the optional knobs of the lifecycle manager.
// Zero values fall back to sane defaults.
type LifecycleConfig struct {
	// SessionPrefix is the blob-store prefix session sets live under.
	SessionPrefix string
	// WorkRoot is where ephemeral credential workspaces are materialized.
	WorkRoot string
	Clock    ports.Clock
	Logger   *slog.Logger
}

// LifecycleManager produces connected, authenticated sessions for tenants
// while keeping the tenant's blob set and status document consistent.
//
// Concurrent invocations for the same tenant are not serialized: each one
// downloads, mutates and re-uploads the session independently and the last
// blob-store writer wins. A per-tenant lease could serialize this if the
// race ever becomes a problem in practice.
type LifecycleManager struct {
	blobs     ports.SessionBlobStore
	status    ports.StatusRepository
	connector ports.Connector
	clock     ports.Clock
	logger    *slog.Logger

	sessionPrefix string
	workRoot      string
}

func NewLifecycleManager(blobs ports.SessionBlobStore, status ports.StatusRepository, connector ports.Connector, cfg LifecycleConfig) *LifecycleManager {
	clock := cfg.Clock
	if clock == nil {
		clock = ports.SystemClock{}
	}
	prefix := cfg.SessionPrefix
	if prefix == "" {
		prefix = defaultSessionPrefix
	}
	workRoot := cfg.WorkRoot
	if workRoot == "" {
		workRoot = os.TempDir()
	}

	return &LifecycleManager{
		blobs:         blobs,
		status:        status,
		connector:     connector,
		clock:         clock,
		logger:        logutil.NoopIfNil(cfg.Logger),
		sessionPrefix: prefix,
		workRoot:      workRoot,
	}
}

// Acquire materializes the tenant's session into a fresh workspace, opens a
// connection and drives it until it opens, closes or the timeout elapses.
//
// A missing prior session is not an error; the connection will emit QR events
// and the caller decides whether that counts as failure. On a logged-out
// close the stored session is deleted so the next attempt starts a fresh
// pairing. On failure the workspace is removed before returning; on success
// the returned Session owns it until Release.
func (m *LifecycleManager) Acquire(ctx context.Context, tenantID domain.TenantID, timeout time.Duration) (*Session, error) {
	if err := tenantID.Validate(); err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}

	workspace, err := m.materializeWorkspace(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	conn, err := m.connector.Connect(ctx, tenantID, workspace)
	if err != nil {
		m.removeWorkspace(tenantID, workspace)
		return nil, fmt.Errorf("open connection: %w", err)
	}

	sess, err := m.waitForOpen(ctx, tenantID, conn, workspace, timeout)
	if err != nil {
		if closeErr := conn.Close(err); closeErr != nil {
			m.logger.Warn("close connection after failed acquire",
				slog.String("tenant", tenantID.String()), slog.Any("error", closeErr))
		}
		m.removeWorkspace(tenantID, workspace)
		return nil, err
	}

	return sess, nil
}

// waitForOpen runs the per-invocation state machine:
// initializing -> (pending_qr)* -> connected | closed | timed out.
// Non-terminal events perform their side effects without resolving the wait.
func (m *LifecycleManager) waitForOpen(ctx context.Context, tenantID domain.TenantID, conn ports.Connection, workspace string, timeout time.Duration) (*Session, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-conn.Events():
			if !ok {
				return nil, domain.ErrConnectionClosed
			}
			switch ev.Kind {
			case ports.EventQR:
				now := m.clock.Now()
				m.mergeStatus(ctx, tenantID, domain.StatusPatch{
					State:         statePtr(domain.StatePendingQR),
					QRCode:        &ev.QR,
					QRGeneratedAt: &now,
				})
			case ports.EventCredsUpdated:
				if err := m.flushWorkspace(ctx, tenantID, workspace); err != nil {
					m.logger.Warn("persist rotated credentials",
						slog.String("tenant", tenantID.String()), slog.Any("error", err))
				}
			case ports.EventOpen:
				now := m.clock.Now()
				m.mergeStatus(ctx, tenantID, domain.StatusPatch{
					State:           statePtr(domain.StateConnected),
					LastConnectedAt: &now,
					ClearQRCode:     true,
				})
				sess := &Session{
					TenantID:  tenantID,
					Conn:      conn,
					mgr:       m,
					workspace: workspace,
					pumpDone:  make(chan struct{}),
				}
				go sess.pump()
				return sess, nil
			case ports.EventClose:
				return nil, m.handleClose(ctx, tenantID, ev.Err)
			}
		case <-timer.C:
			// No status write on a bare timeout; the document keeps
			// whatever the last real event recorded.
			return nil, domain.ErrAcquireTimeout
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (m *LifecycleManager) handleClose(ctx context.Context, tenantID domain.TenantID, reason error) error {
	if reason == nil {
		reason = domain.ErrConnectionClosed
	}

	if errors.Is(reason, domain.ErrLoggedOut) {
		// Dead credentials can never be reused; purge them so the next
		// invocation starts a fresh pairing instead of failing repeatedly.
		if err := m.blobs.DeletePrefix(ctx, m.SessionPrefix(tenantID)); err != nil {
			m.logger.Error("purge logged-out session",
				slog.String("tenant", tenantID.String()), slog.Any("error", err))
		}
		reasonLabel := disconnectReasonLoggedOut
		m.mergeStatus(ctx, tenantID, domain.StatusPatch{
			State:                statePtr(domain.StateLoggedOut),
			LastDisconnectReason: &reasonLabel,
			ClearQRCode:          true,
		})
		return fmt.Errorf("connection closed: %w", reason)
	}

	return fmt.Errorf("connection closed before opening: %w", reason)
}

// SessionPrefix returns the blob-store prefix of one tenant's session set.
func (m *LifecycleManager) SessionPrefix(tenantID domain.TenantID) string {
	return path.Join(m.sessionPrefix, tenantID.String()) + "/"
}

func (m *LifecycleManager) materializeWorkspace(ctx context.Context, tenantID domain.TenantID) (string, error) {
	workspace := filepath.Join(m.workRoot, fmt.Sprintf("zapgate-%s-%s", tenantID, uuid.NewString()))
	if err := os.MkdirAll(workspace, workspaceDirMode); err != nil {
		return "", fmt.Errorf("create session workspace: %w", err)
	}

	prefix := m.SessionPrefix(tenantID)
	names, err := m.blobs.List(ctx, prefix)
	if err != nil {
		// A session that cannot be listed is treated like a missing one:
		// the connection will ask for pairing instead.
		m.logger.Warn("list stored session",
			slog.String("tenant", tenantID.String()), slog.Any("error", err))
		return workspace, nil
	}

	for _, name := range names {
		relative := strings.TrimPrefix(name, prefix)
		if relative == "" {
			continue
		}
		destination := filepath.Join(workspace, filepath.FromSlash(relative))
		if err := m.blobs.Download(ctx, name, destination); err != nil {
			m.logger.Warn("download session blob",
				slog.String("tenant", tenantID.String()),
				slog.String("blob", name), slog.Any("error", err))
		}
	}

	return workspace, nil
}

// flushWorkspace uploads the whole workspace back under the tenant's session
// prefix. The blob set is written as a unit so a crash mid-session does not
// lose rotated credential material.
func (m *LifecycleManager) flushWorkspace(ctx context.Context, tenantID domain.TenantID, workspace string) error {
	prefix := m.SessionPrefix(tenantID)

	return filepath.WalkDir(workspace, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		relative, err := filepath.Rel(workspace, p)
		if err != nil {
			return err
		}
		name := prefix + filepath.ToSlash(relative)
		if err := m.blobs.Upload(ctx, p, name); err != nil {
			return fmt.Errorf("upload session blob %q: %w", name, err)
		}
		return nil
	})
}

func (m *LifecycleManager) removeWorkspace(tenantID domain.TenantID, workspace string) {
	if workspace == "" {
		return
	}
	if err := os.RemoveAll(workspace); err != nil {
		m.logger.Warn("remove session workspace",
			slog.String("tenant", tenantID.String()),
			slog.String("workspace", workspace), slog.Any("error", err))
	}
}

// mergeStatus applies a patch to the status document, logging instead of
// failing: status visibility must never break the connection itself.
func (m *LifecycleManager) mergeStatus(ctx context.Context, tenantID domain.TenantID, patch domain.StatusPatch) {
	if err := m.status.Merge(ctx, tenantID, patch); err != nil {
		m.logger.Warn("update connection status",
			slog.String("tenant", tenantID.String()), slog.Any("error", err))
	}
}

func statePtr(s domain.ConnState) *domain.ConnState {
	return &s
}
