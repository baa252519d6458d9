// Package config builds runtime configuration from the environment so main
// stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures everything the server process needs.
type Config struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string

	DatabaseURL string

	Redis RedisConfig

	// KafkaBrokers is empty when the activity trail is disabled.
	KafkaBrokers  []string
	ActivityTopic string

	// RendererURL points at the external document rendering service.
	RendererURL     string
	RendererTimeout time.Duration

	ShutdownTimeout time.Duration
}

// RedisConfig holds connection settings for the change notifier.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv reads configuration from environment variables, applying
// development defaults where unset.
func FromEnv() Config {
	return Config{
		Addr:          getenv("VULNREPORT_ADDR", ":8443"),
		JWTSigningKey: getenv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     getenv("JWT_ISSUER", "vulnreport"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getenvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getenvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getenvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getenvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getenvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		KafkaBrokers:    splitList(os.Getenv("KAFKA_BROKERS")),
		ActivityTopic:   getenv("ACTIVITY_TOPIC", "vulnreport.activity"),
		RendererURL:     os.Getenv("RENDERER_URL"),
		RendererTimeout: getenvDuration("RENDERER_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
