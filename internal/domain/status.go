package domain

import "time"

// ConnState is the tenant-visible connection state polled by the pairing UI.
type ConnState string

const (
	StateInitializing ConnState = "initializing"
	StatePendingQR    ConnState = "pending_qr"
	StateConnected    ConnState = "connected"
	StateRetrying     ConnState = "retrying"
	StateLoggedOut    ConnState = "logged_out"
)

// ConnectionStatus is the single per-tenant status document. It is owned by
// the connection lifecycle manager; everything else only reads it.
type ConnectionStatus struct {
	TenantID             TenantID
	State                ConnState
	QRCode               string
	QRGeneratedAt        time.Time
	LastConnectedAt      time.Time
	LastDisconnectReason string
	LastError            string
	RetryAttempt         int
	UpdatedAt            time.Time
}

// StatusPatch is a merge-style update: nil pointer fields are left unchanged,
// Clear* flags remove a field. Patches from different invocations therefore
// never clobber unrelated fields.
type StatusPatch struct {
	State                *ConnState
	QRCode               *string
	QRGeneratedAt        *time.Time
	LastConnectedAt      *time.Time
	LastDisconnectReason *string
	LastError            *string
	RetryAttempt         *int

	ClearQRCode           bool
	ClearDisconnectReason bool
	ClearLastError        bool
	ClearRetryAttempt     bool
}

// Apply merges the patch into a status snapshot. Status repositories share
// this so both backends honor identical merge semantics.
func (p StatusPatch) Apply(s ConnectionStatus) ConnectionStatus {
	if p.State != nil {
		s.State = *p.State
	}
	if p.QRCode != nil {
		s.QRCode = *p.QRCode
	}
	if p.QRGeneratedAt != nil {
		s.QRGeneratedAt = *p.QRGeneratedAt
	}
	if p.LastConnectedAt != nil {
		s.LastConnectedAt = *p.LastConnectedAt
	}
	if p.LastDisconnectReason != nil {
		s.LastDisconnectReason = *p.LastDisconnectReason
	}
	if p.LastError != nil {
		s.LastError = *p.LastError
	}
	if p.RetryAttempt != nil {
		s.RetryAttempt = *p.RetryAttempt
	}

	if p.ClearQRCode {
		s.QRCode = ""
		s.QRGeneratedAt = time.Time{}
	}
	if p.ClearDisconnectReason {
		s.LastDisconnectReason = ""
	}
	if p.ClearLastError {
		s.LastError = ""
	}
	if p.ClearRetryAttempt {
		s.RetryAttempt = 0
	}

	return s
}
