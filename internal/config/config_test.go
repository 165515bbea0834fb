package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Run from an empty directory so no config.yaml is picked up.
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) }) //nolint:errcheck

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "verify.db", cfg.Store.SQLitePath)
	assert.Equal(t, "default", cfg.Store.Namespace)
	assert.Equal(t, int64(4096), cfg.Anthropic.MaxTokens)
	assert.Equal(t, 1500, cfg.Pipeline.StageCooldownMillis)
	assert.Equal(t, 40, cfg.Pipeline.TrustScoreThreshold)
	assert.Equal(t, 30, cfg.Pipeline.FetchTimeoutSecs)
	assert.Equal(t, 5, cfg.Media.FrameCount)
	assert.Equal(t, 3, cfg.Batch.MaxConcurrentRuns)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfigFileOverrides(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) }) //nolint:errcheck

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/verify
pipeline:
  stage_cooldown_ms: 250
  trust_score_threshold: 55
`
	require.NoError(t, os.WriteFile("config.yaml", []byte(yaml), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/verify", cfg.Store.DatabaseURL)
	assert.Equal(t, 250, cfg.Pipeline.StageCooldownMillis)
	assert.Equal(t, 55, cfg.Pipeline.TrustScoreThreshold)
	// Untouched keys keep their defaults.
	assert.Equal(t, "default", cfg.Store.Namespace)
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
