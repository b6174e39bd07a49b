package main

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/memgate-labs/memgate/internal/answer"
	"github.com/memgate-labs/memgate/internal/bus"
	"github.com/memgate-labs/memgate/internal/config"
	"github.com/memgate-labs/memgate/internal/consent"
	"github.com/memgate-labs/memgate/internal/embedding"
	"github.com/memgate-labs/memgate/internal/gateway"
	"github.com/memgate-labs/memgate/internal/ingest"
	"github.com/memgate-labs/memgate/internal/store"
)

// app holds the wired gateway core for one command invocation.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	db         *store.DB
	repo       *store.Repo
	bus        *bus.Bus
	stats      *bus.Stats
	gate       *consent.Gate
	controller *gateway.Controller
	ingester   *ingest.Ingester
	manifest   *ingest.Manifest
}

// newApp loads the validated config and builds every core component.
func newApp() (*app, error) {
	cfg, err := loadValidatedConfig()
	if err != nil {
		return nil, err
	}

	logger, err := newLogger()
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	cache := embedding.NewCache(cfg.EmbedCachePath())
	embed, err := embedding.NewService(cfg.Embedding, cache, logger)
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}

	db, err := store.OpenPath(cfg.DBPath(), embed.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repo := store.NewRepo(db, embed, cfg.Retrieval, cfg.StrictMatch(), logger)
	b := bus.New(cfg.Events.Capacity)
	stats := bus.NewStats(b, cfg.StatsPath())
	gate := consent.New(time.Duration(cfg.Consent.TTLMillis) * time.Millisecond)
	orch := answer.New(cfg.Answer, logger)
	controller := gateway.New(repo, gate, orch, b, cfg, logger)

	manifest := ingest.LoadManifest(cfg.ManifestPath())
	ingester := ingest.New(repo, manifest, b, logger)

	return &app{
		cfg:        cfg,
		logger:     logger,
		db:         db,
		repo:       repo,
		bus:        b,
		stats:      stats,
		gate:       gate,
		controller: controller,
		ingester:   ingester,
		manifest:   manifest,
	}, nil
}

func (a *app) close() {
	a.stats.Close()
	a.manifest.Close()
	a.db.Close()
	_ = a.logger.Sync()
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	// The MCP transport owns stdout; logs belong on stderr only.
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
