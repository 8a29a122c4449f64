package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// ProviderOptions configures the aggregation provider client.
type ProviderOptions struct {
	ClientID string `yaml:"clientId"`
	Secret   string `yaml:"secret"`
	// Environment selects the provider environment: "sandbox" or
	// "production".
	Environment string `yaml:"environment"`
	// PageSizeHint is the requested delta page size; the provider caps it.
	PageSizeHint int `yaml:"pageSizeHint"`
	// RequestTimeoutSeconds bounds every provider call.
	RequestTimeoutSeconds int `yaml:"requestTimeoutSeconds"`
	// MaxRetries bounds backoff retries for retryable provider errors.
	MaxRetries int `yaml:"maxRetries"`
	// Debug dumps provider HTTP exchanges to stdout. Never enable where
	// logs are collected: request bodies carry access tokens.
	Debug bool `yaml:"debug"`
}

// SyncOptions tunes the orchestrator.
type SyncOptions struct {
	// MaxPagesPerSync guards against a provider bug reporting more pages
	// forever. Exceeding it fails that connection only.
	MaxPagesPerSync int `yaml:"maxPagesPerSync"`
	// Parallelism is the number of connections synced concurrently.
	Parallelism int `yaml:"parallelism"`
}

// ServerOptions configures the HTTP trigger surface.
type ServerOptions struct {
	Addr string `yaml:"addr"`
}

// Config holds the application configuration. It is loaded once by the
// process entry point and passed to the components that need it; there is
// no global instance.
type Config struct {
	DatabasePath string          `yaml:"databasePath"`
	Provider     ProviderOptions `yaml:"provider"`
	Sync         SyncOptions     `yaml:"sync"`
	Server       ServerOptions   `yaml:"server"`
}

// Default returns the configuration used when a field is absent from the
// config file.
func Default() *Config {
	return &Config{
		DatabasePath: "ledger.db",
		Provider: ProviderOptions{
			Environment:           "sandbox",
			PageSizeHint:          500,
			RequestTimeoutSeconds: 30,
			MaxRetries:            3,
		},
		Sync: SyncOptions{
			MaxPagesPerSync: 50,
			Parallelism:     4,
		},
		Server: ServerOptions{
			Addr: ":8080",
		},
	}
}

// Load reads the YAML configuration at path, filling missing fields with
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.Provider.PageSizeHint <= 0 {
		cfg.Provider.PageSizeHint = 500
	}
	if cfg.Sync.MaxPagesPerSync <= 0 {
		cfg.Sync.MaxPagesPerSync = 50
	}
	if cfg.Sync.Parallelism <= 0 {
		cfg.Sync.Parallelism = 1
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to defaults when the
// file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return cfg, nil
}

// RequestTimeout returns the per-call provider timeout as a duration.
func (o ProviderOptions) RequestTimeout() time.Duration {
	if o.RequestTimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(o.RequestTimeoutSeconds) * time.Second
}
