package ports

import (
	"context"

	"github.com/zapgate/zapgate/internal/domain"
)

// EventKind tags the connection-state events a protocol adapter emits.
type EventKind string

const (
	// EventQR carries a fresh pairing payload. May arrive repeatedly.
	EventQR EventKind = "qr"
	// EventOpen means the connection is authenticated and usable.
	EventOpen EventKind = "open"
	// EventClose is terminal for the connection. Err carries the disconnect
	// reason; adapters wrap domain.ErrLoggedOut when the remote invalidated
	// the session.
	EventClose EventKind = "close"
	// EventCredsUpdated means the adapter rotated credential material in the
	// local workspace and it should be persisted promptly.
	EventCredsUpdated EventKind = "creds_updated"
)

type ConnectionEvent struct {
	Kind EventKind
	QR   string
	Err  error
}

// LookupResult is one entry of an existence lookup on the network.
type LookupResult struct {
	JID    string
	Exists bool
}

// Connection is one live, adapter-owned link to the messaging network.
//
// The Events channel is closed by Close (and only then); a Connection emits
// at most one terminal event (open or close) before settling into
// side-channel events (qr refreshes, credential rotations).
type Connection interface {
	Events() <-chan ConnectionEvent
	// Lookup asks the network whether a candidate number is reachable.
	Lookup(ctx context.Context, number string) ([]LookupResult, error)
	// SendText delivers one text message and returns the network message id.
	SendText(ctx context.Context, jid, text string) (string, error)
	// Close tears the connection down with an optional reason and closes the
	// Events channel. Safe to call more than once.
	Close(reason error) error
}

// Connector opens connections seeded from a local file-backed credential
// workspace. An empty workspace signals that pairing is needed.
type Connector interface {
	Connect(ctx context.Context, tenantID domain.TenantID, workspace string) (Connection, error)
}
