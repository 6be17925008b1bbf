package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, int32(8000), cfg.HTTP.Port)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, MediaBackendLocal, cfg.Media.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionLifetime)
	assert.Equal(t, 168*time.Hour, cfg.Auth.JWTExpiry)
	assert.Equal(t, 5, cfg.Auth.MaxLoginAttempts)
	assert.Equal(t, "*/30 * * * *", cfg.Scheduler.EnrichmentRetrySchedule)
	assert.Equal(t, 1.0, cfg.Enrichment.RequestsPerSecond)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestNewConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MEDIA_BACKEND", "s3")
	t.Setenv("MEDIA_S3_BUCKET", "covers")
	t.Setenv("AUTH_LOCKOUT_DURATION", "5m")
	t.Setenv("ENRICHMENT_LLM_API_KEY", "sk-test")

	cfg := NewConfig()

	assert.Equal(t, int32(9090), cfg.HTTP.Port)
	assert.Equal(t, MediaBackendS3, cfg.Media.Backend)
	assert.Equal(t, "covers", cfg.Media.S3Bucket)
	assert.Equal(t, 5*time.Minute, cfg.Auth.LockoutDuration)
	assert.Equal(t, "sk-test", cfg.Enrichment.LLMAPIKey)
}
