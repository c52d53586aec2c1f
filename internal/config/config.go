// Package config loads runtime settings from ~/.zapgate/config.toml with
// ZAPGATE_-prefixed environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "toml"
	configDir  = ".zapgate"
	envPrefix  = "ZAPGATE"

	StatusBackendTOML   = "toml"
	StatusBackendSQLite = "sqlite"
)

type Gateway struct {
	// BaseURL of the Evolution-compatible messaging gateway.
	BaseURL string
	// APIKey sent on every gateway request.
	APIKey string
	// InstancePrefix namespaces per-tenant gateway instances.
	InstancePrefix string
}

type Events struct {
	// RabbitURL enables event publishing when set.
	RabbitURL string
	Exchange  string
}

type Config struct {
	// BlobDir is the session blob store root.
	BlobDir string
	// SessionPrefix is the blob prefix tenant session sets live under.
	SessionPrefix string
	// WorkRoot hosts ephemeral credential workspaces; empty means the
	// system temp directory.
	WorkRoot string

	// CountryCode drives phone candidate expansion.
	CountryCode string

	SendTimeout time.Duration
	PairTimeout time.Duration

	// StatusBackend selects where status documents live: toml or sqlite.
	StatusBackend string
	SQLitePath    string

	HTTPListen string

	Gateway Gateway
	Events  Events
}

func Load(cfg *viper.Viper) (Config, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return Config{}, fmt.Errorf("resolve home directory: %w", err)
	}
	dataDir := filepath.Join(homeDir, configDir)

	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(dataDir)

	cfg.SetDefault("store.blob_dir", filepath.Join(dataDir, "blobs"))
	cfg.SetDefault("store.session_prefix", "sessions")
	cfg.SetDefault("store.work_root", "")
	cfg.SetDefault("phone.country_code", "55")
	cfg.SetDefault("send.timeout", "20s")
	cfg.SetDefault("pairing.timeout", "60s")
	cfg.SetDefault("status.backend", StatusBackendTOML)
	cfg.SetDefault("status.sqlite_path", filepath.Join(dataDir, "status.db"))
	cfg.SetDefault("http.listen", "127.0.0.1:8632")
	cfg.SetDefault("gateway.url", "")
	cfg.SetDefault("gateway.api_key", "")
	cfg.SetDefault("gateway.instance_prefix", "zapgate")
	cfg.SetDefault("events.rabbit_url", "")
	cfg.SetDefault("events.exchange", "zapgate.events")

	cfg.SetEnvPrefix(envPrefix)
	cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	cfg.AutomaticEnv()

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	loaded := Config{
		BlobDir:       cfg.GetString("store.blob_dir"),
		SessionPrefix: cfg.GetString("store.session_prefix"),
		WorkRoot:      cfg.GetString("store.work_root"),
		CountryCode:   cfg.GetString("phone.country_code"),
		SendTimeout:   cfg.GetDuration("send.timeout"),
		PairTimeout:   cfg.GetDuration("pairing.timeout"),
		StatusBackend: cfg.GetString("status.backend"),
		SQLitePath:    cfg.GetString("status.sqlite_path"),
		HTTPListen:    cfg.GetString("http.listen"),
		Gateway: Gateway{
			BaseURL:        cfg.GetString("gateway.url"),
			APIKey:         cfg.GetString("gateway.api_key"),
			InstancePrefix: cfg.GetString("gateway.instance_prefix"),
		},
		Events: Events{
			RabbitURL: cfg.GetString("events.rabbit_url"),
			Exchange:  cfg.GetString("events.exchange"),
		},
	}

	if err := loaded.validate(); err != nil {
		return Config{}, err
	}

	return loaded, nil
}

func (c Config) validate() error {
	switch c.StatusBackend {
	case StatusBackendTOML, StatusBackendSQLite:
	default:
		return fmt.Errorf("unknown status backend %q", c.StatusBackend)
	}

	if c.SendTimeout <= 0 {
		return errors.New("send timeout must be positive")
	}
	if c.PairTimeout <= 0 {
		return errors.New("pairing timeout must be positive")
	}

	return nil
}
