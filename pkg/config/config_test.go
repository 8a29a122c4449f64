package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	content := `
databasePath: /tmp/ledger.db
provider:
  clientId: test-client
  secret: test-secret
  environment: sandbox
  requestTimeoutSeconds: 10
sync:
  maxPagesPerSync: 20
  parallelism: 2
server:
  addr: ":9090"
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/ledger.db", cfg.DatabasePath)
	assert.Equal(t, "test-client", cfg.Provider.ClientID)
	assert.Equal(t, "test-secret", cfg.Provider.Secret)
	assert.Equal(t, 10*time.Second, cfg.Provider.RequestTimeout())
	assert.Equal(t, 20, cfg.Sync.MaxPagesPerSync)
	assert.Equal(t, 2, cfg.Sync.Parallelism)
	assert.Equal(t, ":9090", cfg.Server.Addr)

	// Fields absent from the file keep their defaults.
	assert.Equal(t, 500, cfg.Provider.PageSizeHint)
	assert.Equal(t, 3, cfg.Provider.MaxRetries)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadClampsInvalidTuning(t *testing.T) {
	content := `
sync:
  maxPagesPerSync: -1
  parallelism: 0
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Sync.MaxPagesPerSync)
	assert.Equal(t, 1, cfg.Sync.Parallelism)
}
