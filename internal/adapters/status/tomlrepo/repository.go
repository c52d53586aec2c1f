// Package tomlrepo keeps the per-tenant status documents in a single TOML
// file. Writes are merge-style and atomic (temp file plus rename), so
// concurrent invocations never clobber unrelated fields or leave a torn file.
package tomlrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/zapgate/zapgate/internal/domain"
	"github.com/zapgate/zapgate/internal/ports"
)

const (
	configName      = "config"
	configType      = "toml"
	statusPathKey   = "status.path"
	statusFileMode  = 0o600
	statusDirMode   = 0o700
	configDir       = ".zapgate"
	statusFileName  = "status.toml"
	tempFilePattern = ".status-*.toml.tmp"
)

type Repository struct {
	statusPath string
	clock      ports.Clock
	mu         *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.StatusRepository = (*Repository)(nil)

func NewRepository(cfg *viper.Viper, clock ports.Clock) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	defaultPath := filepath.Join(homeDir, configDir, statusFileName)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(filepath.Join(homeDir, configDir))
	cfg.SetDefault(statusPathKey, defaultPath)

	err = cfg.ReadInConfig()
	if err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	statusPath := cfg.GetString(statusPathKey)
	if statusPath == "" {
		return nil, errors.New("status path is empty")
	}
	statusPath, err = normalizeStatusPath(statusPath)
	if err != nil {
		return nil, err
	}

	return &Repository{statusPath: statusPath, clock: clock, mu: lockForPath(statusPath)}, nil
}

func (r *Repository) Get(ctx context.Context, tenantID domain.TenantID) (domain.ConnectionStatus, error) {
	if err := ctx.Err(); err != nil {
		return domain.ConnectionStatus{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return domain.ConnectionStatus{}, err
	}

	for _, entry := range file.Tenants {
		if entry.ID == string(tenantID) {
			return fromSchema(entry), nil
		}
	}

	return domain.ConnectionStatus{}, domain.ErrStatusNotFound
}

func (r *Repository) Merge(ctx context.Context, tenantID domain.TenantID, patch domain.StatusPatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := r.readSchema()
	if err != nil {
		return err
	}
	file.applyDefaults()

	current := domain.ConnectionStatus{TenantID: tenantID}
	index := -1
	for i, entry := range file.Tenants {
		if entry.ID == string(tenantID) {
			current = fromSchema(entry)
			index = i
			break
		}
	}

	merged := patch.Apply(current)
	merged.TenantID = tenantID
	merged.UpdatedAt = r.clock.Now()

	encoded := toSchema(merged)
	if index >= 0 {
		file.Tenants[index] = encoded
	} else {
		file.Tenants = append(file.Tenants, encoded)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.statusPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("read status file: %w", err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("decode status file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, err
	}
	file.applyDefaults()

	return file, nil
}

func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.statusPath), statusDirMode); err != nil {
		return fmt.Errorf("create status directory: %w", err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode status file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.statusPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp status file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp status file: %w", err)
	}

	if err := tempFile.Chmod(statusFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp status file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp status file: %w", err)
	}

	if err := os.Rename(tempName, r.statusPath); err != nil {
		return fmt.Errorf("replace status file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(r.statusPath, statusFileMode); err != nil {
		return fmt.Errorf("chmod status file: %w", err)
	}

	return nil
}

func normalizeStatusPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve status path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}
