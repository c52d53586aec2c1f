package ports

import (
	"context"

	"github.com/zapgate/zapgate/internal/domain"
)

// StatusRepository persists the per-tenant connection status document.
// Merge applies a partial update; absent tenants are created on first merge.
type StatusRepository interface {
	Get(ctx context.Context, tenantID domain.TenantID) (domain.ConnectionStatus, error)
	Merge(ctx context.Context, tenantID domain.TenantID, patch domain.StatusPatch) error
}
