package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zapgate/zapgate/internal/domain"
	"github.com/zapgate/zapgate/internal/ports"
)

func newTestDispatcher(t *testing.T, conn *fakeConnection, publisher ports.EventPublisher) (*Dispatcher, *memoryBlobStore, *memoryStatusRepo) {
	t.Helper()

	blobs := newMemoryBlobStore()
	status := newMemoryStatusRepo()
	connector := &fakeConnector{connectFn: func(context.Context, domain.TenantID, string) (ports.Connection, error) {
		return conn, nil
	}}
	lifecycle := newTestLifecycle(t, blobs, status, connector)

	dispatcher := NewDispatcher(lifecycle, DispatcherConfig{
		AcquireTimeout: time.Second,
		Publisher:      publisher,
	})
	return dispatcher, blobs, status
}

func TestSendDeliversToFirstConfirmedCandidate(t *testing.T) {
	conn := newFakeConnection(ports.ConnectionEvent{Kind: ports.EventOpen})
	conn.lookupFn = func(_ context.Context, number string) ([]ports.LookupResult, error) {
		if number == "5511999998888" {
			return []ports.LookupResult{{JID: "5511999998888" + domain.JIDSuffix, Exists: true}}, nil
		}
		return []ports.LookupResult{{JID: "", Exists: false}}, nil
	}
	conn.sendTextFn = func(context.Context, string, string) (string, error) {
		return "3EB0C431", nil
	}

	publisher := &capturingPublisher{}
	dispatcher, _, _ := newTestDispatcher(t, conn, publisher)

	result, err := dispatcher.Send(context.Background(), "acme", "11999998888", "hello", nil)
	require.NoError(t, err)

	assert.Equal(t, "3EB0C431", result.MessageID)
	assert.Equal(t, "5511999998888"+domain.JIDSuffix, result.ResolvedJID)
	assert.Equal(t, "5511999998888", result.VerifiedNumber)
	assert.Equal(t, "5511999998888", result.MatchedCandidate)

	events := publisher.published()
	require.Len(t, events, 1)
	assert.Equal(t, EventMessageSent, events[0].Type)
	assert.Equal(t, domain.TenantID("acme"), events[0].TenantID)
	assert.NotEmpty(t, events[0].ID)
}

func TestSendFallsBackToCanonicalIdentifier(t *testing.T) {
	conn := newFakeConnection(ports.ConnectionEvent{Kind: ports.EventOpen})
	conn.lookupFn = func(context.Context, string) ([]ports.LookupResult, error) {
		return nil, nil
	}

	dispatcher, _, _ := newTestDispatcher(t, conn, nil)

	result, err := dispatcher.Send(context.Background(), "acme", "11999998888", "hello", nil)
	require.NoError(t, err)

	assert.Equal(t, "5511999998888"+domain.JIDSuffix, result.ResolvedJID)
	assert.Empty(t, result.MatchedCandidate)
}

func TestSendSkipsFailingLookups(t *testing.T) {
	conn := newFakeConnection(ports.ConnectionEvent{Kind: ports.EventOpen})
	lookups := 0
	conn.lookupFn = func(_ context.Context, number string) ([]ports.LookupResult, error) {
		lookups++
		if lookups == 1 {
			return nil, errors.New("transient gateway error")
		}
		return []ports.LookupResult{{JID: number + domain.JIDSuffix, Exists: true}}, nil
	}

	dispatcher, _, _ := newTestDispatcher(t, conn, nil)

	result, err := dispatcher.Send(context.Background(), "acme", "11999998888", "hello", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, result.MatchedCandidate)
	assert.GreaterOrEqual(t, lookups, 2)
}

func TestSendWidensProbeWithExtraCandidates(t *testing.T) {
	conn := newFakeConnection(ports.ConnectionEvent{Kind: ports.EventOpen})
	conn.lookupFn = func(_ context.Context, number string) ([]ports.LookupResult, error) {
		if number == "5521988887777" {
			return []ports.LookupResult{{JID: number + domain.JIDSuffix, Exists: true}}, nil
		}
		return nil, nil
	}

	dispatcher, _, _ := newTestDispatcher(t, conn, nil)

	result, err := dispatcher.Send(context.Background(), "acme", "11999998888", "hello", []string{"21988887777"})
	require.NoError(t, err)
	assert.Equal(t, "5521988887777", result.MatchedCandidate)
	assert.Equal(t, "5521988887777"+domain.JIDSuffix, result.ResolvedJID)
}

func TestSendValidatesInput(t *testing.T) {
	dispatcher, _, _ := newTestDispatcher(t, newFakeConnection(), nil)

	_, err := dispatcher.Send(context.Background(), "", "11999998888", "hello", nil)
	assert.ErrorIs(t, err, domain.ErrTenantRequired)

	_, err = dispatcher.Send(context.Background(), "acme", "  ", "hello", nil)
	assert.ErrorIs(t, err, domain.ErrPhoneRequired)

	_, err = dispatcher.Send(context.Background(), "acme", "11999998888", "", nil)
	assert.ErrorIs(t, err, domain.ErrTextRequired)
}

func TestSendReturnsAcquireFailure(t *testing.T) {
	blobs := newMemoryBlobStore()
	status := newMemoryStatusRepo()
	connector := &fakeConnector{connectFn: func(context.Context, domain.TenantID, string) (ports.Connection, error) {
		return nil, errors.New("gateway unreachable")
	}}
	lifecycle := newTestLifecycle(t, blobs, status, connector)
	dispatcher := NewDispatcher(lifecycle, DispatcherConfig{AcquireTimeout: time.Second})

	_, err := dispatcher.Send(context.Background(), "acme", "11999998888", "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acquire connection")
	assert.Contains(t, err.Error(), "gateway unreachable")
}

func TestSendFlushesSessionEvenWhenDeliveryFails(t *testing.T) {
	conn := newFakeConnection(ports.ConnectionEvent{Kind: ports.EventOpen})
	conn.lookupFn = func(context.Context, string) ([]ports.LookupResult, error) { return nil, nil }
	conn.sendTextFn = func(context.Context, string, string) (string, error) {
		return "", errors.New("stream closed mid-send")
	}

	blobs := newMemoryBlobStore()
	blobs.blobs["sessions/acme/creds.json"] = []byte("persisted")
	status := newMemoryStatusRepo()
	connector := &fakeConnector{connectFn: func(context.Context, domain.TenantID, string) (ports.Connection, error) {
		return conn, nil
	}}
	lifecycle := newTestLifecycle(t, blobs, status, connector)
	dispatcher := NewDispatcher(lifecycle, DispatcherConfig{AcquireTimeout: time.Second})

	_, err := dispatcher.Send(context.Background(), "acme", "11999998888", "hello", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream closed mid-send")

	// Release ran: the materialized session was flushed back and the
	// connection closed.
	_, ok := blobs.get("sessions/acme/creds.json")
	assert.True(t, ok)
	assert.Equal(t, 1, conn.closedTimes())
}
