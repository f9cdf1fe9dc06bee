package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 8, cfg.Crawler.Concurrency)
	require.Equal(t, 2, cfg.Crawler.MaxDepth)
	require.Equal(t, 15, cfg.Crawler.MaxPages)
	require.Equal(t, "sqlite", cfg.Checkpoint.Backend)
	require.Equal(t, 3, cfg.HTTP.MaxRetries)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
crawler:
  concurrency: 4
  max_pages: 30
hunter:
  api_key: test-key
checkpoint:
  backend: sqlite
  path: /tmp/chk.db
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Crawler.Concurrency)
	require.Equal(t, 30, cfg.Crawler.MaxPages)
	require.Equal(t, "test-key", cfg.Hunter.APIKey)
	require.Equal(t, "/tmp/chk.db", cfg.Checkpoint.Path)
	// Untouched keys keep their defaults.
	require.Equal(t, 2, cfg.Crawler.MaxDepth)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ENRICHER_CRAWLER_CONCURRENCY", "2")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Crawler.Concurrency)
}

func TestValidateRejectsBadBackend(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Checkpoint.Backend = "etcd"
	require.Error(t, cfg.Validate())
}

func TestValidateRequiresPostgresDSN(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Checkpoint.Backend = "postgres"
	cfg.Checkpoint.DSN = ""
	require.Error(t, cfg.Validate())
}
