package config

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRateLimitConfigDefaults(t *testing.T) {
	cfg := LoadRateLimitConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 20, cfg.Capacity)
	assert.Equal(t, "ip_route", cfg.KeyStrategy)
	assert.GreaterOrEqual(t, cfg.TTL, 5*cfg.RefillInterval)
}

func TestLoadRateLimitConfigClampsValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "-1s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, time.Second, cfg.RefillInterval)
	assert.Equal(t, 5*time.Second, cfg.TTL)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head, post")
	t.Setenv("CACHE_TTL", "bogus")

	cfg := LoadCacheConfig()
	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
	assert.False(t, cfg.Methods["POST"])
	assert.Equal(t, 30*time.Second, cfg.TTL)
	assert.Equal(t, 5*time.Minute, cfg.SearchTTL)
	assert.Equal(t, "staybook:cache", cfg.Prefix)
	assert.Equal(t, time.Minute, cfg.WithTTL(time.Minute).TTL)
}

func TestLoadCacheConfigSearchTTLNotShorter(t *testing.T) {
	t.Setenv("CACHE_TTL", "2m")
	t.Setenv("CACHE_SEARCH_TTL", "10s")

	cfg := LoadCacheConfig()
	assert.Equal(t, 2*time.Minute, cfg.SearchTTL)
}

func TestRedisConfigOptions(t *testing.T) {
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("REDIS_TLS", "true")

	opt, err := LoadRedisConfig().Options()
	require.NoError(t, err)
	assert.Equal(t, "cache.internal:6380", opt.Addr)
	assert.Equal(t, 3, opt.DB)
	require.NotNil(t, opt.TLSConfig)

	t.Setenv("REDIS_URL", "redis://:pw@10.0.0.5:6379/2")
	opt, err = LoadRedisConfig().Options()
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:6379", opt.Addr)
	assert.Equal(t, "pw", opt.Password)
	assert.Equal(t, 2, opt.DB)
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := NewRedisClient(RedisConfig{Addr: mr.Addr()})
	require.NotNil(t, rdb)
	t.Cleanup(func() { _ = rdb.Close() })

	assert.Nil(t, NewRedisClient(RedisConfig{URL: "not-a-url"}))
	mr.Close()
	assert.Nil(t, NewRedisClient(RedisConfig{Addr: mr.Addr(), DialTimeout: 200 * time.Millisecond}))
}

func TestLoadReadsRequiredAndDefaults(t *testing.T) {
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_NAME", "staybook")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CREDENTIAL_TTL_DAYS", "7")
	t.Setenv("AUTO_REPLY_ENABLED", "yes")

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 7*24*time.Hour, cfg.CredentialTTL)
	assert.Equal(t, "token", cfg.CookieName)
	assert.True(t, cfg.AutoReply.Enabled)
	assert.Equal(t, 10*time.Second, cfg.AutoReply.Delay)
	assert.Equal(t, 5, cfg.OTP.MaxAttempts)
}
