// Package httpapi exposes the core operations over HTTP for the rest of the
// application: one send endpoint, one pairing trigger and a status poll.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/zapgate/zapgate/internal/domain"
	"github.com/zapgate/zapgate/internal/logutil"
)

// MessageSender is the send half of the core surface.
type MessageSender interface {
	Send(ctx context.Context, tenantID domain.TenantID, toPhone, text string, extraCandidates []string) (domain.DeliveryResult, error)
}

// PairingStarter is the pairing half of the core surface.
type PairingStarter interface {
	StartPairing(ctx context.Context, tenantID domain.TenantID, timeout time.Duration) domain.PairingResult
}

// StatusReader serves the per-tenant status document the pairing UI polls.
type StatusReader interface {
	Get(ctx context.Context, tenantID domain.TenantID) (domain.ConnectionStatus, error)
}

type Handler struct {
	sender  MessageSender
	pairing PairingStarter
	status  StatusReader
	logger  *slog.Logger
}

func NewHandler(sender MessageSender, pairing PairingStarter, status StatusReader, logger *slog.Logger) *Handler {
	return &Handler{
		sender:  sender,
		pairing: pairing,
		status:  status,
		logger:  logutil.NoopIfNil(logger),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Route("/api/tenants/{tenantID}", func(r chi.Router) {
		r.Post("/messages", h.handleSendMessage)
		r.Post("/pairing", h.handleStartPairing)
		r.Get("/status", h.handleGetStatus)
	})

	return r
}
