package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, ":8443", cfg.Addr)
	assert.Equal(t, "vulnreport", cfg.JWTIssuer)
	assert.Equal(t, "vulnreport.activity", cfg.ActivityTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 60*time.Second, cfg.RendererTimeout)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("VULNREPORT_ADDR", ":9000")
	t.Setenv("JWT_SIGNING_KEY", "prod-key")
	t.Setenv("DATABASE_URL", "postgres://db/vulnreport")
	t.Setenv("REDIS_URL", "redis://cache:6379")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092,")
	t.Setenv("RENDERER_TIMEOUT", "30s")

	cfg := FromEnv()

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "prod-key", cfg.JWTSigningKey)
	assert.Equal(t, "postgres://db/vulnreport", cfg.DatabaseURL)
	assert.Equal(t, "redis://cache:6379", cfg.Redis.URL)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Second, cfg.RendererTimeout)
}

func TestFromEnvIgnoresMalformedValues(t *testing.T) {
	t.Setenv("REDIS_POOL_SIZE", "lots")
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	cfg := FromEnv()

	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}
