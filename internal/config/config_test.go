package config

import (
	"testing"
	"time"

	"kpijoin/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "GIN_MODE", "UPLOAD_MAX_MB", "PREVIEW_ROWS", "SESSION_COOKIE",
		"SESSION_TTL", "SESSION_SWEEP_INTERVAL", "EXPORT_FILENAME", "DATABASE_URL", "OPS_HOST", "OPS_PORT", "OPS_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, int64(32<<20), cfg.Upload.MaxUploadBytes())
	assert.Equal(t, "127.0.0.1:6060", cfg.Ops.Addr(), "ops port stays on loopback by default")
}

func TestOpsHostOverride(t *testing.T) {
	t.Setenv("OPS_HOST", "0.0.0.0")
	t.Setenv("OPS_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:7070", cfg.Ops.Addr())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("PREVIEW_ROWS", "25")
	t.Setenv("DATABASE_URL", "postgres://localhost/kpi?sslmode=disable")
	t.Setenv("OPS_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 25, cfg.Upload.PreviewRows)
	assert.True(t, cfg.Database.Enabled())
	assert.False(t, cfg.Ops.Enabled)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("UPLOAD_MAX_MB", "lots")
	t.Setenv("SESSION_TTL", "forever")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Upload.MaxSizeMB)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
}

func TestValidateRejectsPortClash(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("OPS_PORT", "7000")
	t.Setenv("OPS_ENABLED", "true")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestValidateRejectsNonPositiveLimits(t *testing.T) {
	t.Setenv("UPLOAD_MAX_MB", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}
