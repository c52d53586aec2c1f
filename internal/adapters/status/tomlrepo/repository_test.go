package tomlrepo

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapgate/zapgate/internal/domain"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func newTestRepository(t *testing.T) (*Repository, fixedClock) {
	t.Helper()

	clock := fixedClock{now: time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)}
	cfg := viper.New()
	cfg.Set("status.path", filepath.Join(t.TempDir(), "status.toml"))

	repo, err := NewRepository(cfg, clock)
	require.NoError(t, err)
	return repo, clock
}

func TestGetMissingTenantReturnsNotFound(t *testing.T) {
	repo, _ := newTestRepository(t)

	_, err := repo.Get(context.Background(), "acme")
	assert.ErrorIs(t, err, domain.ErrStatusNotFound)
}

func TestMergeCreatesStatusDocument(t *testing.T) {
	repo, clock := newTestRepository(t)

	state := domain.StatePendingQR
	qr := "2@qr-payload"
	generatedAt := clock.now.Add(-10 * time.Second)
	require.NoError(t, repo.Merge(context.Background(), "acme", domain.StatusPatch{
		State:         &state,
		QRCode:        &qr,
		QRGeneratedAt: &generatedAt,
	}))

	status, err := repo.Get(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, domain.TenantID("acme"), status.TenantID)
	assert.Equal(t, domain.StatePendingQR, status.State)
	assert.Equal(t, "2@qr-payload", status.QRCode)
	assert.True(t, status.QRGeneratedAt.Equal(generatedAt))
	assert.True(t, status.UpdatedAt.Equal(clock.now))
}

func TestMergePreservesUnrelatedFields(t *testing.T) {
	repo, clock := newTestRepository(t)

	state := domain.StatePendingQR
	qr := "2@qr-payload"
	require.NoError(t, repo.Merge(context.Background(), "acme", domain.StatusPatch{
		State:  &state,
		QRCode: &qr,
	}))

	connected := domain.StateConnected
	connectedAt := clock.now
	require.NoError(t, repo.Merge(context.Background(), "acme", domain.StatusPatch{
		State:           &connected,
		LastConnectedAt: &connectedAt,
		ClearQRCode:     true,
	}))

	status, err := repo.Get(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, domain.StateConnected, status.State)
	assert.Empty(t, status.QRCode)
	assert.True(t, status.LastConnectedAt.Equal(connectedAt))
}

func TestMergeKeepsOtherTenantsIntact(t *testing.T) {
	repo, _ := newTestRepository(t)

	state := domain.StateConnected
	require.NoError(t, repo.Merge(context.Background(), "acme", domain.StatusPatch{State: &state}))

	pending := domain.StatePendingQR
	require.NoError(t, repo.Merge(context.Background(), "globex", domain.StatusPatch{State: &pending}))

	first, err := repo.Get(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, domain.StateConnected, first.State)

	second, err := repo.Get(context.Background(), "globex")
	require.NoError(t, err)
	assert.Equal(t, domain.StatePendingQR, second.State)
}

func TestStatusFileHasRestrictivePermissions(t *testing.T) {
	clock := fixedClock{now: time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)}
	path := filepath.Join(t.TempDir(), "status.toml")
	cfg := viper.New()
	cfg.Set("status.path", path)

	repo, err := NewRepository(cfg, clock)
	require.NoError(t, err)

	state := domain.StateConnected
	require.NoError(t, repo.Merge(context.Background(), "acme", domain.StatusPatch{State: &state}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestRejectsUnsupportedFileVersion(t *testing.T) {
	clock := fixedClock{now: time.Now()}
	path := filepath.Join(t.TempDir(), "status.toml")
	require.NoError(t, os.WriteFile(path, []byte("version = 99\n"), 0o600))

	cfg := viper.New()
	cfg.Set("status.path", path)
	repo, err := NewRepository(cfg, clock)
	require.NoError(t, err)

	_, err = repo.Get(context.Background(), "acme")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported status file version")
}
