package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "earnflow", cfg.Mongo.Database)
	assert.Equal(t, 15*time.Second, cfg.Flow.SubmitTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Flow.IdleTTL)
	assert.False(t, cfg.IsRelease())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: "9090"
flow:
  submit_timeout: 5s
rate_limit:
  max_requests: 10
  window: 30s
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))

	t.Setenv("REDIS_URI", "redis://cache:6380")
	t.Setenv("EARNFLOW_MONGO_DATABASE", "earnflow_test")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Flow.SubmitTimeout)
	assert.Equal(t, 10, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, "earnflow_test", cfg.Mongo.Database)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRejectsShortSecretInRelease(t *testing.T) {
	t.Setenv("SERVER_MODE", "release")
	t.Setenv("JWT_SECRET", "short")

	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "too short")

	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.True(t, cfg.IsRelease())
}

func TestLoadReferralAndAdmins(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0.10, cfg.Referral.CommissionRate)
	assert.Equal(t, 30*24*time.Hour, cfg.Referral.Window)
	assert.Empty(t, cfg.Auth.AdminUsers)

	t.Setenv("ADMIN_USERS", "ops-1, ops-2")
	cfg, err = Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, []string{"ops-1", "ops-2"}, cfg.Auth.AdminUsers)
}

func TestLoadRejectsCommissionRateAboveOne(t *testing.T) {
	t.Setenv("EARNFLOW_REFERRAL_COMMISSION_RATE", "1.5")
	_, err := Load(t.TempDir())
	assert.ErrorContains(t, err, "commission_rate")
}
