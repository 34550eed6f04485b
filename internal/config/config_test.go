package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, DefaultRules(), cfg.Rules)
	assert.Equal(t, 5, cfg.Tx.MaxAttempts)
	assert.Equal(t, "habitforge.events", cfg.Redis.Channel)
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hf.yaml")
	body := `
database:
  path: /tmp/from-file.db
timezone: UTC
tx:
  max_attempts: 2
  initial_interval: 10ms
rules:
  xp_per_completion: 25
  streak_freeze_item: freeze
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("HF_TX_MAX_ATTEMPTS", "9")
	t.Setenv("HF_REDIS_ADDR", "localhost:6379")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/from-file.db", cfg.Database.Path)
	assert.Equal(t, 9, cfg.Tx.MaxAttempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Tx.InitialInterval)
	assert.Equal(t, 25, cfg.Rules.XPPerCompletion)
	assert.Equal(t, "freeze", cfg.Rules.StreakFreezeItem)
	assert.Equal(t, 100, cfg.Rules.PointsPerLevel)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "UTC", loc.String())
}

func TestValidateRejectsPostgresWithoutDSN(t *testing.T) {
	t.Setenv("HF_DB_DRIVER", "postgres")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("HF_PG_DSN", "postgres://localhost/hf")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}

func TestBadTimezoneFails(t *testing.T) {
	t.Setenv("HF_TIMEZONE", "Mars/Olympus")
	_, err := Load("")
	assert.Error(t, err)
}

func TestTracingFromEnv(t *testing.T) {
	t.Setenv("HF_OTEL_ENABLED", "yes")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_SAMPLER_RATIO", "0.25")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "collector:4318", cfg.Tracing.Endpoint)
	assert.InDelta(t, 0.25, cfg.Tracing.SampleRatio, 1e-9)
	assert.False(t, cfg.Tracing.Insecure)
}
