package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName   string `env:"SERVICE_NAME" envDefault:"plenary"`
	HTTPPort      string `env:"HTTP_PORT" envDefault:"8080"`
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	PostgresDSN   string `env:"POSTGRES_DSN"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"plenary.db"`

	EventBufferSize int `env:"EVENT_BUFFER_SIZE" envDefault:"128"`

	AuthTokenSecret string        `env:"AUTH_TOKEN_SECRET"`
	AuthTokenIssuer string        `env:"AUTH_TOKEN_ISSUER" envDefault:"plenary"`
	AuthTokenTTL    time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"12h"`

	OutboxPollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	OutboxBatchSize    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`

	BootstrapAdminIdentity string `env:"BOOTSTRAP_ADMIN_IDENTITY"`
	BootstrapAdminSecret   string `env:"BOOTSTRAP_ADMIN_SECRET"`

	EnableExternalVotes bool `env:"ENABLE_EXTERNAL_VOTES" envDefault:"true"`
	EnableAuditConsumer bool `env:"ENABLE_AUDIT_CONSUMER" envDefault:"true"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	return cfg, nil
}

// Validate checks the settings the selected storage driver and the API process
// depend on.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageMemory:
	case StorageSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("SQLITE_PATH is required for the sqlite driver")
		}
	case StoragePostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			return errors.New("POSTGRES_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}
	if len(c.AuthTokenSecret) < 32 {
		return errors.New("AUTH_TOKEN_SECRET must contain at least 32 bytes")
	}
	if c.EventBufferSize < 0 {
		return errors.New("EVENT_BUFFER_SIZE must not be negative")
	}
	if c.AuthTokenTTL <= 0 {
		return errors.New("AUTH_TOKEN_TTL must be positive")
	}
	if (c.BootstrapAdminIdentity == "") != (c.BootstrapAdminSecret == "") {
		return errors.New("BOOTSTRAP_ADMIN_IDENTITY and BOOTSTRAP_ADMIN_SECRET must be set together")
	}
	return nil
}
