package domain

import "strings"

// TenantID identifies one customer organization. Tenant ids become blob-store
// path segments, so they must not carry separators or traversal sequences.
type TenantID string

func (id TenantID) Validate() error {
	trimmed := strings.TrimSpace(string(id))
	if trimmed == "" {
		return ErrTenantRequired
	}
	if strings.ContainsAny(trimmed, "/\\") || strings.Contains(trimmed, "..") {
		return ErrTenantInvalid
	}
	return nil
}

func (id TenantID) String() string {
	return string(id)
}
