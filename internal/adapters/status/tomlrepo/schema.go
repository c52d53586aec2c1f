package tomlrepo

import (
	"fmt"
	"time"

	"github.com/zapgate/zapgate/internal/domain"
)

const schemaVersion = 1

type fileSchema struct {
	Version int                  `toml:"version"`
	Tenants []tenantStatusSchema `toml:"tenants"`
}

type tenantStatusSchema struct {
	ID                   string `toml:"id"`
	Status               string `toml:"status"`
	QRCode               string `toml:"qr_code,omitempty"`
	QRGeneratedAt        string `toml:"qr_generated_at,omitempty"`
	LastConnectedAt      string `toml:"last_connected_at,omitempty"`
	LastDisconnectReason string `toml:"last_disconnect_reason,omitempty"`
	LastError            string `toml:"last_error,omitempty"`
	RetryAttempt         int    `toml:"retry_attempt,omitempty"`
	UpdatedAt            string `toml:"updated_at,omitempty"`
}

func (f *fileSchema) applyDefaults() {
	if f.Version == 0 {
		f.Version = schemaVersion
	}
}

func (f fileSchema) validateVersion() error {
	if f.Version != 0 && f.Version != schemaVersion {
		return fmt.Errorf("unsupported status file version %d", f.Version)
	}
	return nil
}

func toSchema(status domain.ConnectionStatus) tenantStatusSchema {
	return tenantStatusSchema{
		ID:                   string(status.TenantID),
		Status:               string(status.State),
		QRCode:               status.QRCode,
		QRGeneratedAt:        formatTime(status.QRGeneratedAt),
		LastConnectedAt:      formatTime(status.LastConnectedAt),
		LastDisconnectReason: status.LastDisconnectReason,
		LastError:            status.LastError,
		RetryAttempt:         status.RetryAttempt,
		UpdatedAt:            formatTime(status.UpdatedAt),
	}
}

func fromSchema(entry tenantStatusSchema) domain.ConnectionStatus {
	return domain.ConnectionStatus{
		TenantID:             domain.TenantID(entry.ID),
		State:                domain.ConnState(entry.Status),
		QRCode:               entry.QRCode,
		QRGeneratedAt:        parseTime(entry.QRGeneratedAt),
		LastConnectedAt:      parseTime(entry.LastConnectedAt),
		LastDisconnectReason: entry.LastDisconnectReason,
		LastError:            entry.LastError,
		RetryAttempt:         entry.RetryAttempt,
		UpdatedAt:            parseTime(entry.UpdatedAt),
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.Format(time.RFC3339)
}
