package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	votingsession "plenary/contexts/governance/voting-session"
	"plenary/contexts/governance/voting-session/adapters/credentials"
	"plenary/contexts/governance/voting-session/adapters/memory"
	postgresadapter "plenary/contexts/governance/voting-session/adapters/postgres"
	sqliteadapter "plenary/contexts/governance/voting-session/adapters/sqlite"
	"plenary/contexts/governance/voting-session/adapters/sqlite/migrations"
	workerapp "plenary/contexts/governance/voting-session/application/workers"
	"plenary/contexts/governance/voting-session/ports"
	"plenary/internal/platform/authn"
	"plenary/internal/platform/config"
	"plenary/internal/platform/db"
	"plenary/internal/platform/httpserver"
	"plenary/internal/platform/messaging"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server  *httpserver.Server
	storage *storage
	logger  *slog.Logger
}

type WorkerApp struct {
	storage      *storage
	outboxRelay  workerapp.OutboxRelay
	audit        workerapp.AuditConsumer
	pollInterval time.Duration
	logger       *slog.Logger
}

// storage bundles the ports served by one storage driver.
type storage struct {
	topics  ports.TopicRepository
	tx      ports.Transactor
	members ports.MemberStore
	outbox  ports.OutboxRepository
	clock   ports.Clock
	ids     ports.IDGenerator
	close   func() error
}

func (s *storage) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	provider := credentials.NewProvider(store.members)
	module := votingsession.NewModule(votingsession.Dependencies{
		Topics:  store.topics,
		Tx:      store.tx,
		Members: store.members,
		Auth:    provider,
		Hasher:  provider,
		Clock:   store.clock,
		IDGen:   store.ids,
		Logger:  logger,
	})
	if err := module.Handler.Members.SeedAdmin(ctx, cfg.BootstrapAdminIdentity, cfg.BootstrapAdminSecret); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("seed bootstrap admin: %w", err)
	}

	tokens, err := authn.NewIssuer(cfg.AuthTokenSecret, cfg.AuthTokenIssuer, cfg.AuthTokenTTL)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	server := httpserver.New(module, tokens, logger, normalizeAddr(cfg.HTTPPort), httpserver.Options{
		EnableExternalVotes: cfg.EnableExternalVotes,
	})
	return &APIApp{
		server:  server,
		storage: store,
		logger:  logger,
	}, nil
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if cfg.StorageDriver == config.StorageMemory {
		return nil, errors.New("worker requires a shared storage driver (sqlite or postgres)")
	}
	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	bus := messaging.NewBus(cfg.EventBufferSize, logger)

	return &WorkerApp{
		storage: store,
		outboxRelay: workerapp.OutboxRelay{
			Outbox:    store.outbox,
			Publisher: bus,
			Clock:     store.clock,
			BatchSize: cfg.OutboxBatchSize,
			Logger:    logger,
		},
		audit: workerapp.AuditConsumer{
			Subscriber: bus,
			Disabled:   !cfg.EnableAuditConsumer,
			Logger:     logger,
		},
		pollInterval: cfg.OutboxPollInterval,
		logger:       logger,
	}, nil
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		store := memory.NewStore()
		return &storage{
			topics:  store,
			tx:      store,
			members: store,
			outbox:  store,
			clock:   store,
			ids:     store,
		}, nil
	case config.StorageSQLite:
		handle, err := db.OpenSQLite(cfg.SQLitePath, migrations.FS)
		if err != nil {
			return nil, err
		}
		store := sqliteadapter.NewStore(handle.DB, logger)
		return &storage{
			topics:  store,
			tx:      store,
			members: store,
			outbox:  store,
			clock:   sqliteadapter.SystemClock{},
			ids:     sqliteadapter.UUIDGenerator{},
			close:   handle.Close,
		}, nil
	case config.StoragePostgres:
		pg, err := db.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		repo := postgresadapter.NewRepository(pg.DB, logger)
		if err := repo.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		return &storage{
			topics:  repo,
			tx:      repo,
			members: repo,
			outbox:  repo,
			clock:   postgresadapter.SystemClock{},
			ids:     postgresadapter.UUIDGenerator{},
			close:   pg.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

// Shutdown drains in-flight requests before the storage handle is closed.
func (a *APIApp) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

func (a *APIApp) Close() error {
	return a.storage.Close()
}

func (w *WorkerApp) Run(ctx context.Context) error {
	if err := w.audit.Start(ctx); err != nil {
		return err
	}

	pollInterval := w.pollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", pollInterval.String(),
	)

	for {
		if err := w.outboxRelay.RunOnce(ctx); err != nil && ctx.Err() == nil {
			w.logger.Warn("outbox relay cycle failed",
				"event", "bootstrap_outbox_cycle_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	return w.storage.Close()
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
