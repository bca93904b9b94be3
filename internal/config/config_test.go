package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `
source:
  host: db.example.com
  database: app
  user: reader
  password: secret
sink:
  host: ch.example.com
  database: analytics
  user: writer
  password: secret
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	require.Equal(t, "db.example.com", cfg.Source.Host)
	require.Equal(t, 15000, cfg.BatchSize)
	require.Equal(t, 3, cfg.Retry.MaxAttempts)
	require.Equal(t, 5000, cfg.Retry.DelayMs)
	require.Equal(t, 5432, cfg.Source.Port)
	require.Equal(t, "private_schema", cfg.Source.Schema)
	require.Equal(t, 600000, cfg.Source.StatementTimeoutMs)
	require.Equal(t, "grupox", cfg.Sink.Table)
	require.False(t, cfg.Sink.NoTLS)
	require.False(t, cfg.Sink.VerifyCert)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch_size: 100\n"), 0o644))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("SOURCE_PASSWORD", "fromenv")
	t.Setenv("BATCH_SIZE", "250")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.Equal(t, "fromenv", cfg.Source.Password)
	require.Equal(t, 250, cfg.BatchSize)
}

func TestLoadFromEnvMissingPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	_, err := LoadFromEnv()
	require.Error(t, err)
}
