// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`

	// DatabaseURL selects Postgres; empty falls back to the in-memory
	// stores, which is only useful for local development.
	DatabaseURL string `env:"DATABASE_URL"`

	RedisURL   string        `env:"REDIS_URL"`
	SummaryTTL time.Duration `env:"SUMMARY_CACHE_TTL" envDefault:"30s"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	AuditTopic   string   `env:"AUDIT_TOPIC" envDefault:"ban-audit"`

	JWTSigningKey string `env:"JWT_SIGNING_KEY,required"`

	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}
