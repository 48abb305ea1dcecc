package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("MEMBERSHIP_READD_UPDATES_ROLE", "")
	t.Setenv("TRUSTED_PROXIES", "")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("AUTH_TOKEN_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "fieldbook", cfg.Database.User)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 15*time.Minute, cfg.Storage.PresignTTL)
	assert.Equal(t, "", cfg.Redis.Addr)
	assert.False(t, cfg.Membership.ReaddUpdatesRole)
	assert.Equal(t, 1.0, cfg.Observability.SamplingRate)
	assert.Empty(t, cfg.RateLimit.TrustedProxies)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://fb@db/fieldbook")
	t.Setenv("AUTH_TOKEN_SECRET", testSecret)
	t.Setenv("AUTH_TOKEN_TTL", "30m")
	t.Setenv("MEMBERSHIP_READD_UPDATES_ROLE", "true")
	t.Setenv("RATELIMIT_RPS", "2.5")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("S3_USE_PATH_STYLE", "1")
	t.Setenv("SERVER_READ_TIMEOUT", "not-a-duration")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.1,,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.True(t, cfg.Membership.ReaddUpdatesRole)
	assert.Equal(t, 2.5, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Storage.UsePathStyle)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout, "invalid durations fall back to the default")
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, cfg.RateLimit.TrustedProxies)
}

func TestLoad_Validation(t *testing.T) {
	t.Run("missing database credentials", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		t.Setenv("DB_PASSWORD", "")
		t.Setenv("AUTH_TOKEN_SECRET", testSecret)
		_, err := Load()
		assert.ErrorContains(t, err, "DB_PASSWORD")
	})

	t.Run("short token secret", func(t *testing.T) {
		t.Setenv("DB_PASSWORD", "pw")
		t.Setenv("AUTH_TOKEN_SECRET", "short")
		_, err := Load()
		assert.ErrorContains(t, err, "AUTH_TOKEN_SECRET")
	})
}
