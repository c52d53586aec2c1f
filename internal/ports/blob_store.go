package ports

import "context"

// SessionBlobStore is the durable home of per-tenant authentication state.
// Blobs are addressed by slash-separated names under a session prefix; the
// store never interprets their contents.
type SessionBlobStore interface {
	// List returns the names of all blobs under prefix. A missing prefix is
	// not an error and yields an empty list.
	List(ctx context.Context, prefix string) ([]string, error)
	// Download copies one blob to a local file, creating parent directories.
	Download(ctx context.Context, name, localPath string) error
	// Upload copies a local file into the store under name.
	Upload(ctx context.Context, localPath, name string) error
	// DeletePrefix removes every blob under prefix. Idempotent.
	DeletePrefix(ctx context.Context, prefix string) error
}
