package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zapgate/zapgate/internal/domain"
)

type sendMessageRequest struct {
	To               string   `json:"to"`
	Text             string   `json:"text"`
	LookupCandidates []string `json:"lookupCandidates,omitempty"`
}

type sendMessageResponse struct {
	MessageID          string `json:"messageId"`
	ResolvedIdentifier string `json:"resolvedIdentifier"`
	VerifiedNumber     string `json:"verifiedNumber,omitempty"`
	MatchedCandidate   string `json:"matchedCandidate,omitempty"`
}

type startPairingRequest struct {
	TimeoutMs int `json:"timeoutMs,omitempty"`
}

type startPairingResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type statusResponse struct {
	Status               string `json:"status"`
	QRCode               string `json:"qrCode,omitempty"`
	QRGeneratedAt        string `json:"qrGeneratedAt,omitempty"`
	LastConnectedAt      string `json:"lastConnectedAt,omitempty"`
	LastDisconnectReason string `json:"lastDisconnectReason,omitempty"`
	LastError            string `json:"lastError,omitempty"`
	RetryAttempt         int    `json:"retryAttempt,omitempty"`
	UpdatedAt            string `json:"updatedAt,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	tenantID := domain.TenantID(chi.URLParam(r, "tenantID"))

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.sender.Send(r.Context(), tenantID, req.To, req.Text, req.LookupCandidates)
	if err != nil {
		h.logger.Warn("send message failed",
			slog.String("tenant", tenantID.String()), slog.Any("error", err))
		writeJSON(w, sendErrorStatus(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, sendMessageResponse{
		MessageID:          result.MessageID,
		ResolvedIdentifier: result.ResolvedJID,
		VerifiedNumber:     result.VerifiedNumber,
		MatchedCandidate:   result.MatchedCandidate,
	})
}

func (h *Handler) handleStartPairing(w http.ResponseWriter, r *http.Request) {
	tenantID := domain.TenantID(chi.URLParam(r, "tenantID"))

	var req startPairingRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
			return
		}
	}

	timeout := time.Duration(req.TimeoutMs) * time.Millisecond
	result := h.pairing.StartPairing(r.Context(), tenantID, timeout)

	writeJSON(w, http.StatusOK, startPairingResponse{
		Status: string(result.State),
		Error:  result.Err,
	})
}

func (h *Handler) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	tenantID := domain.TenantID(chi.URLParam(r, "tenantID"))
	if err := tenantID.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	status, err := h.status.Get(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrStatusNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status:               string(status.State),
		QRCode:               status.QRCode,
		QRGeneratedAt:        formatTime(status.QRGeneratedAt),
		LastConnectedAt:      formatTime(status.LastConnectedAt),
		LastDisconnectReason: status.LastDisconnectReason,
		LastError:            status.LastError,
		RetryAttempt:         status.RetryAttempt,
		UpdatedAt:            formatTime(status.UpdatedAt),
	})
}

// sendErrorStatus maps core failures to HTTP statuses: input problems are the
// caller's fault, a timeout is the upstream network's, everything else is a
// gateway-side failure.
func sendErrorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrTenantRequired),
		errors.Is(err, domain.ErrTenantInvalid),
		errors.Is(err, domain.ErrPhoneRequired),
		errors.Is(err, domain.ErrTextRequired),
		errors.Is(err, domain.ErrPhoneInvalid):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAcquireTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrLoggedOut):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.Format(time.RFC3339)
}
