package application

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/zapgate/zapgate/internal/domain"
	"github.com/zapgate/zapgate/internal/ports"
)

type fakeConnection struct {
	events     chan ports.ConnectionEvent
	lookupFn   func(ctx context.Context, number string) ([]ports.LookupResult, error)
	sendTextFn func(ctx context.Context, jid, text string) (string, error)

	closeOnce sync.Once

	mu         sync.Mutex
	closeCalls int
	sentJIDs   []string
}

func newFakeConnection(events ...ports.ConnectionEvent) *fakeConnection {
	ch := make(chan ports.ConnectionEvent, len(events)+4)
	for _, ev := range events {
		ch <- ev
	}
	return &fakeConnection{events: ch}
}

func (c *fakeConnection) Events() <-chan ports.ConnectionEvent {
	return c.events
}

func (c *fakeConnection) Lookup(ctx context.Context, number string) ([]ports.LookupResult, error) {
	if c.lookupFn == nil {
		return nil, nil
	}
	return c.lookupFn(ctx, number)
}

func (c *fakeConnection) SendText(ctx context.Context, jid, text string) (string, error) {
	c.mu.Lock()
	c.sentJIDs = append(c.sentJIDs, jid)
	c.mu.Unlock()

	if c.sendTextFn == nil {
		return "msg-1", nil
	}
	return c.sendTextFn(ctx, jid, text)
}

func (c *fakeConnection) Close(error) error {
	c.mu.Lock()
	c.closeCalls++
	c.mu.Unlock()

	c.closeOnce.Do(func() {
		close(c.events)
	})
	return nil
}

func (c *fakeConnection) closedTimes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCalls
}

type fakeConnector struct {
	connectFn func(ctx context.Context, tenantID domain.TenantID, workspace string) (ports.Connection, error)

	mu         sync.Mutex
	calls      int
	workspaces []string
}

func (f *fakeConnector) Connect(ctx context.Context, tenantID domain.TenantID, workspace string) (ports.Connection, error) {
	f.mu.Lock()
	f.calls++
	f.workspaces = append(f.workspaces, workspace)
	f.mu.Unlock()

	return f.connectFn(ctx, tenantID, workspace)
}

func (f *fakeConnector) connectCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memoryBlobStore is an in-memory ports.SessionBlobStore with slash-separated
// blob names, mirroring the filesystem implementation's contract.
type memoryBlobStore struct {
	mu              sync.Mutex
	blobs           map[string][]byte
	deletedPrefixes []string
}

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{blobs: map[string][]byte{}}
}

func (s *memoryBlobStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for name := range s.blobs {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

func (s *memoryBlobStore) Download(_ context.Context, name, localPath string) error {
	s.mu.Lock()
	data, ok := s.blobs[name]
	s.mu.Unlock()
	if !ok {
		return os.ErrNotExist
	}

	if err := os.MkdirAll(filepath.Dir(localPath), 0o700); err != nil {
		return err
	}
	return os.WriteFile(localPath, data, 0o600)
}

func (s *memoryBlobStore) Upload(_ context.Context, localPath, name string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.blobs[name] = data
	s.mu.Unlock()
	return nil
}

func (s *memoryBlobStore) DeletePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deletedPrefixes = append(s.deletedPrefixes, prefix)
	for name := range s.blobs {
		if strings.HasPrefix(name, prefix) {
			delete(s.blobs, name)
		}
	}
	return nil
}

func (s *memoryBlobStore) get(name string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[name]
	return data, ok
}

func (s *memoryBlobStore) deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletedPrefixes...)
}

type memoryStatusRepo struct {
	mu       sync.Mutex
	statuses map[domain.TenantID]domain.ConnectionStatus
	patches  []domain.StatusPatch
}

func newMemoryStatusRepo() *memoryStatusRepo {
	return &memoryStatusRepo{statuses: map[domain.TenantID]domain.ConnectionStatus{}}
}

func (r *memoryStatusRepo) Get(_ context.Context, tenantID domain.TenantID) (domain.ConnectionStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, ok := r.statuses[tenantID]
	if !ok {
		return domain.ConnectionStatus{}, domain.ErrStatusNotFound
	}
	return status, nil
}

func (r *memoryStatusRepo) Merge(_ context.Context, tenantID domain.TenantID, patch domain.StatusPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	merged := patch.Apply(r.statuses[tenantID])
	merged.TenantID = tenantID
	merged.UpdatedAt = time.Now()
	r.statuses[tenantID] = merged
	r.patches = append(r.patches, patch)
	return nil
}

func (r *memoryStatusRepo) current(tenantID domain.TenantID) domain.ConnectionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statuses[tenantID]
}

func (r *memoryStatusRepo) patchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.patches)
}

type capturingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []ports.Event
}

func (p *capturingPublisher) Publish(_ context.Context, routingKey string, event ports.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) published() []ports.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ports.Event(nil), p.events...)
}
