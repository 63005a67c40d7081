package main

import (
	"fmt"

	"github.com/sawpanic/dealscore/internal/aggregation"
	"github.com/sawpanic/dealscore/internal/assembler"
	"github.com/sawpanic/dealscore/internal/audit"
	"github.com/sawpanic/dealscore/internal/batch"
	"github.com/sawpanic/dealscore/internal/config"
	"github.com/sawpanic/dealscore/internal/configcache"
	"github.com/sawpanic/dealscore/internal/infrastructure/db"
	"github.com/sawpanic/dealscore/internal/interfaces/alerts"
	dealshttp "github.com/sawpanic/dealscore/internal/interfaces/http"
	"github.com/sawpanic/dealscore/internal/orchestrator"
	"github.com/sawpanic/dealscore/internal/writer"
)

// app bundles every collaborator the CLI subcommands need, built once
// per invocation from the resolved AppConfig.
type app struct {
	cfg          config.AppConfig
	dbManager    *db.Manager
	configCache  *configcache.Cache
	orchestrator *orchestrator.Orchestrator
	batch        *batch.Runner
	auditor      *audit.Computer
	aggregator   *aggregation.Aggregator
	alertSink    alerts.Sink
}

// newApp opens the database pool (if enabled) and wires every
// collaborator used by the CLI subcommands.
func newApp(cfgPath string) (*app, func(), error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := db.NewManager(cfg.Database)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to connect to database: %w", err)
	}
	cleanup := func() { _ = dbManager.Close() }

	repos := dbManager.Repository()
	if repos == nil {
		cleanup()
		return nil, func() {}, fmt.Errorf("database persistence is disabled; set PG_DSN / PG_ENABLED")
	}

	cache := configcache.New(repos.Config, cfg.Redis.Addr, cfg.Redis.TTL)

	// Swap in the cache-fronted config reader for the recalc path; the
	// raw repo (still held by cache) remains the source of truth on a
	// cache miss or when Redis is disabled.
	cachedRepos := *repos
	cachedRepos.Config = cache

	a := assembler.New(&cachedRepos)
	w := writer.New(&cachedRepos)
	o := orchestrator.New(a, w, nil)

	sink := alerts.NewLogSink()
	b := batch.New(o, &cachedRepos, sink, nil)
	b.SetConfigInvalidator(cache)

	application := &app{
		cfg:          cfg,
		dbManager:    dbManager,
		configCache:  cache,
		orchestrator: o,
		batch:        b,
		auditor:      audit.New(repos),
		aggregator:   aggregation.New(repos, nil),
		alertSink:    sink,
	}

	return application, cleanup, nil
}

// httpHandlers builds the admin HTTP handler set from the app's wired
// collaborators.
func (a *app) httpHandlers() *dealshttp.Handlers {
	metrics := dealshttp.NewMetricsRegistry()
	return dealshttp.NewHandlers(a.orchestrator, a.auditor, a.aggregator, a.dbManager, metrics)
}
