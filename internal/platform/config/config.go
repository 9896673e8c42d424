package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	AdminToken  string
	DatabaseURL string
	Redis       RedisConfig
	// KafkaBrokers enables the Kafka audit sink when non-empty.
	KafkaBrokers []string
	// RuleCacheTTL bounds how long requirement sets stay in Redis.
	RuleCacheTTL time.Duration
}

// RedisConfig holds connection settings for the optional Redis cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("VISADO_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	adminToken := os.Getenv("ADMIN_TOKEN")
	if adminToken == "" {
		// Use a default for development - should be overridden in production
		adminToken = "dev-admin-token-change-in-production"
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
	}

	ttl := 24 * time.Hour
	if raw := os.Getenv("RULE_CACHE_TTL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			ttl = parsed
		}
	}

	return Server{
		Addr:         addr,
		AdminToken:   adminToken,
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		KafkaBrokers: brokers,
		RuleCacheTTL: ttl,
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
}
