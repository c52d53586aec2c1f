package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusPatchApplyLeavesUnsetFieldsAlone(t *testing.T) {
	connected := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	current := ConnectionStatus{
		TenantID:        "acme",
		State:           StateConnected,
		LastConnectedAt: connected,
		RetryAttempt:    2,
	}

	state := StatePendingQR
	qr := "2@new-qr"
	merged := StatusPatch{State: &state, QRCode: &qr}.Apply(current)

	assert.Equal(t, StatePendingQR, merged.State)
	assert.Equal(t, "2@new-qr", merged.QRCode)
	assert.Equal(t, connected, merged.LastConnectedAt)
	assert.Equal(t, 2, merged.RetryAttempt)
}

func TestStatusPatchClearQRCodeAlsoClearsTimestamp(t *testing.T) {
	current := ConnectionStatus{
		QRCode:        "2@old-qr",
		QRGeneratedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}

	merged := StatusPatch{ClearQRCode: true}.Apply(current)

	assert.Empty(t, merged.QRCode)
	assert.True(t, merged.QRGeneratedAt.IsZero())
}

func TestStatusPatchClearFlags(t *testing.T) {
	current := ConnectionStatus{
		LastDisconnectReason: "logged_out",
		LastError:            "Stream Errored",
		RetryAttempt:         2,
	}

	merged := StatusPatch{
		ClearDisconnectReason: true,
		ClearLastError:        true,
		ClearRetryAttempt:     true,
	}.Apply(current)

	assert.Empty(t, merged.LastDisconnectReason)
	assert.Empty(t, merged.LastError)
	assert.Zero(t, merged.RetryAttempt)
}

func TestStatusPatchSetWinsOverExisting(t *testing.T) {
	message := "Connection Failure"
	attempt := 2
	merged := StatusPatch{LastError: &message, RetryAttempt: &attempt}.Apply(ConnectionStatus{
		LastError:    "old error",
		RetryAttempt: 1,
	})

	assert.Equal(t, "Connection Failure", merged.LastError)
	assert.Equal(t, 2, merged.RetryAttempt)
}

func TestTenantIDValidate(t *testing.T) {
	assert.ErrorIs(t, TenantID("").Validate(), ErrTenantRequired)
	assert.ErrorIs(t, TenantID("  ").Validate(), ErrTenantRequired)
	assert.ErrorIs(t, TenantID("a/b").Validate(), ErrTenantInvalid)
	assert.ErrorIs(t, TenantID(`a\b`).Validate(), ErrTenantInvalid)
	assert.ErrorIs(t, TenantID("..").Validate(), ErrTenantInvalid)
	assert.NoError(t, TenantID("acme-42").Validate())
}
