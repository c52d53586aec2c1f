package status

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapgate/zapgate/internal/domain"
)

func TestRenderConnectedStatus(t *testing.T) {
	now := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)

	output, err := Render(domain.ConnectionStatus{
		TenantID:        "acme",
		State:           domain.StateConnected,
		LastConnectedAt: now.Add(-2 * time.Hour),
		UpdatedAt:       now.Add(-2 * time.Hour),
	}, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "tenant: acme")
	assert.Contains(t, output, "connected")
	assert.Contains(t, output, "last connected:")
	assert.Contains(t, output, "09:00:00")
	assert.NotContains(t, output, "scan to pair")
}

func TestRenderPendingQRShowsPayload(t *testing.T) {
	now := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)

	output, err := Render(domain.ConnectionStatus{
		TenantID:      "acme",
		State:         domain.StatePendingQR,
		QRCode:        "2@h4x9qr-payload",
		QRGeneratedAt: now.Add(-30 * time.Second),
	}, RenderOptions{Now: now, QRStaleAfter: time.Minute})

	require.NoError(t, err)
	assert.Contains(t, output, "pending_qr")
	assert.Contains(t, output, "scan to pair:")
	assert.Contains(t, output, "2@h4x9qr-payload")
	assert.Contains(t, output, "generated 30s ago")
	assert.NotContains(t, output, "[stale]")
}

func TestRenderMarksStaleQRPayload(t *testing.T) {
	now := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)

	output, err := Render(domain.ConnectionStatus{
		TenantID:      "acme",
		State:         domain.StatePendingQR,
		QRCode:        "2@old-payload",
		QRGeneratedAt: now.Add(-5 * time.Minute),
	}, RenderOptions{Now: now, QRStaleAfter: time.Minute})

	require.NoError(t, err)
	assert.Contains(t, output, "generated 5m ago")
	assert.Contains(t, output, "[stale]")
}

func TestRenderLoggedOutShowsDisconnectReason(t *testing.T) {
	now := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)

	output, err := Render(domain.ConnectionStatus{
		TenantID:             "acme",
		State:                domain.StateLoggedOut,
		LastDisconnectReason: "logged_out",
		UpdatedAt:            now,
	}, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "logged_out")
	assert.Contains(t, output, "disconnect reason:")
}

func TestRenderRetryingShowsErrorAndAttempt(t *testing.T) {
	now := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)

	output, err := Render(domain.ConnectionStatus{
		TenantID:     "acme",
		State:        domain.StateRetrying,
		LastError:    "Stream Errored (restart required)",
		RetryAttempt: 2,
	}, RenderOptions{Now: now})

	require.NoError(t, err)
	assert.Contains(t, output, "retrying")
	assert.Contains(t, output, "last error:")
	assert.Contains(t, output, "Stream Errored (restart required)")
	assert.Contains(t, output, "retry attempt:")
	assert.Contains(t, output, "2")
}

func TestRenderEmptyStatus(t *testing.T) {
	output, err := Render(domain.ConnectionStatus{TenantID: "acme"}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "No connection status recorded yet.")
}
