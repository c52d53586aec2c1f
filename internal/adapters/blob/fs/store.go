// Package fs implements the session blob store on a local directory tree.
// Blob names map directly to relative paths under the store root, which is
// also the layout a bucket-backed implementation would mirror.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zapgate/zapgate/internal/ports"
)

const (
	storeDirMode = 0o700
	blobFileMode = 0o600
)

type Store struct {
	root string
	mu   sync.RWMutex
}

var _ ports.SessionBlobStore = (*Store)(nil)

func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := s.pathForName(prefix)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		relative, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(relative))
		return nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list blobs under %q: %w", prefix, err)
	}

	return names, nil
}

func (s *Store) Download(ctx context.Context, name, localPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathForName(name)
	if err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read blob %q: %w", name, err)
	}
	if err := os.MkdirAll(filepath.Dir(localPath), storeDirMode); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}
	if err := os.WriteFile(localPath, data, blobFileMode); err != nil {
		return fmt.Errorf("write blob %q to %q: %w", name, localPath, err)
	}

	return nil
}

func (s *Store) Upload(ctx context.Context, localPath, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathForName(name)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("read local file %q: %w", localPath, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), storeDirMode); err != nil {
		return fmt.Errorf("create blob directory: %w", err)
	}
	if err := os.WriteFile(path, data, blobFileMode); err != nil {
		return fmt.Errorf("write blob %q: %w", name, err)
	}

	return nil
}

func (s *Store) DeletePrefix(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir, err := s.pathForName(prefix)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete blobs under %q: %w", prefix, err)
	}

	return nil
}

func (s *Store) pathForName(name string) (string, error) {
	trimmed := strings.TrimSpace(strings.TrimSuffix(name, "/"))
	if trimmed == "" {
		return "", errors.New("blob name is empty")
	}

	cleaned := filepath.Clean(filepath.FromSlash(trimmed))
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") || cleaned == "." {
		return "", fmt.Errorf("invalid blob name %q", name)
	}

	return filepath.Join(s.root, cleaned), nil
}
