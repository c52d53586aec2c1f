package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zapgate/zapgate/internal/domain"
	"github.com/zapgate/zapgate/internal/ports"
)

// releaseWait bounds how long Release waits for the event pump to drain
// after the connection is closed.
const releaseWait = 2 * time.Second

// Session is one acquired, open connection together with the ephemeral
// credential workspace backing it. The caller that acquired it must Release
// it before returning; durability flows through Flush, never the workspace.
type Session struct {
	TenantID domain.TenantID
	Conn     ports.Connection

	mgr       *LifecycleManager
	workspace string

	flushMu  sync.Mutex
	pumpDone chan struct{}
}

// Workspace is the local directory holding the session's credential files.
func (s *Session) Workspace() string {
	return s.workspace
}

// Flush uploads the current workspace contents back to the blob store.
func (s *Session) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	return s.mgr.flushWorkspace(ctx, s.TenantID, s.workspace)
}

// Release flushes the workspace, closes the connection and deletes the
// workspace directory. Best effort throughout: failures are logged, never
// propagated, so a late teardown hiccup cannot mask the operation's result.
func (s *Session) Release(ctx context.Context) {
	log := s.mgr.logger.With(slog.String("tenant", s.TenantID.String()))

	if err := s.Flush(ctx); err != nil {
		log.Warn("flush session workspace on release", slog.Any("error", err))
	}
	if err := s.Conn.Close(nil); err != nil {
		log.Warn("close connection on release", slog.Any("error", err))
	}

	select {
	case <-s.pumpDone:
	case <-time.After(releaseWait):
		log.Warn("event pump did not drain before release deadline")
	}

	s.mgr.removeWorkspace(s.TenantID, s.workspace)
}

// pump keeps consuming connection events after the open event resolved the
// acquisition, so credential rotations during a send are still persisted
// immediately. It exits when the connection closes its event channel.
func (s *Session) pump() {
	defer close(s.pumpDone)

	for ev := range s.Conn.Events() {
		switch ev.Kind {
		case ports.EventCredsUpdated:
			if err := s.Flush(context.Background()); err != nil {
				s.mgr.logger.Warn("persist rotated credentials",
					slog.String("tenant", s.TenantID.String()), slog.Any("error", err))
			}
		case ports.EventClose:
			return
		}
	}
}
