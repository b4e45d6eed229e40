// Package app wires the ingestion engine from configuration. Both the API
// and the queue worker build the same engine.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BarkinBalci/event-ingestion-service/internal/audit"
	"github.com/BarkinBalci/event-ingestion-service/internal/classifier"
	"github.com/BarkinBalci/event-ingestion-service/internal/config"
	"github.com/BarkinBalci/event-ingestion-service/internal/ingest"
	"github.com/BarkinBalci/event-ingestion-service/internal/metrics"
	"github.com/BarkinBalci/event-ingestion-service/internal/pipeline"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository/clickhouse"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository/memory"
	"github.com/BarkinBalci/event-ingestion-service/internal/repository/postgres"
	"github.com/BarkinBalci/event-ingestion-service/internal/source"
)

// Storage drivers
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// App is a wired ingestion engine
type App struct {
	Store        repository.Store
	Orchestrator *ingest.Orchestrator
	Metrics      http.Handler

	closers []func()
	log     *zap.Logger
}

// Build opens storage, loads sources and wires the orchestrator. Call Close
// on the returned App even when Build fails halfway; it is nil-safe.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{log: log}

	store, err := a.openStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store

	recorder, err := a.openAudit(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	sources, err := loadSources(cfg.Sources.File, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	taxonomy, err := loadTaxonomy(cfg.Sources.TaxonomyFile, log)
	if err != nil {
		a.Close()
		return nil, err
	}

	var remote pipeline.RemoteClassifier
	if c := classifier.NewClient(cfg.Classifier, log); c != nil {
		remote = c
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

	stages := ingest.Stages{
		Dedup:       pipeline.NewDeduplicator(store.Events),
		Categorizer: pipeline.NewCategorizer(taxonomy, remote, cfg.Engine.CategoryConfidence, log),
		Organizers:  pipeline.NewOrganizerResolver(store.Organizers, log),
		Scorer:      pipeline.NewQualityScorer(cfg.Engine.PublishThreshold, cfg.Engine.DraftThreshold),
	}

	a.Orchestrator = ingest.NewOrchestrator(sources, store, stages, recorder, metrics.New(reg), ingest.Config{
		RunTimeout:         cfg.Engine.RunTimeout,
		CancelPollInterval: cfg.Engine.CancelPollInterval,
	}, log)

	return a, nil
}

// Health pings the run log store
func (a *App) Health(ctx context.Context) error {
	return a.Store.Runs.Ping(ctx)
}

// Close releases resources in reverse order of acquisition
func (a *App) Close() {
	if a == nil {
		return
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.Storage.Driver {
	case DriverMemory:
		a.log.Warn("Using in-memory storage, data is lost on restart")
		return memory.NewStore().Repositories(), nil

	case DriverPostgres:
		client, err := postgres.NewClient(ctx, &cfg.Postgres, a.log)
		if err != nil {
			return repository.Store{}, err
		}
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				a.log.Error("Failed to close PostgreSQL client", zap.Error(err))
			}
		})

		if cfg.Postgres.MigrateOnStart {
			if err := client.Migrate(); err != nil {
				return repository.Store{}, err
			}
		}
		return postgres.NewStore(client, a.log), nil

	default:
		return repository.Store{}, fmt.Errorf("unknown storage driver: %s", cfg.Storage.Driver)
	}
}

// openAudit returns the ClickHouse batch writer when enabled and a log-only
// recorder otherwise
func (a *App) openAudit(ctx context.Context, cfg *config.Config) (audit.Recorder, error) {
	if !cfg.ClickHouse.Enabled {
		return audit.NewLogRecorder(a.log), nil
	}

	client, err := clickhouse.NewClient(ctx, &cfg.ClickHouse, a.log)
	if err != nil {
		return nil, err
	}
	repo := clickhouse.NewRepository(client, a.log)
	a.closers = append(a.closers, func() {
		if err := repo.Close(); err != nil {
			a.log.Error("Failed to close ClickHouse client", zap.Error(err))
		}
	})

	if err := repo.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}
	a.log.Info("Audit schema initialized")

	writer := audit.NewBatchWriter(repo, audit.BatchWriterConfig{
		MaxBatchSize: cfg.Engine.AuditBatchSize,
		FlushTimeout: cfg.Engine.AuditFlushTimeout,
	}, a.log)
	go writer.Start(context.WithoutCancel(ctx))
	a.closers = append(a.closers, writer.Close)

	return writer, nil
}

func loadSources(path string, log *zap.Logger) (source.Registry, error) {
	cfgs, err := source.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return source.NewRegistry(cfgs, log)
}

func loadTaxonomy(path string, log *zap.Logger) (*pipeline.Taxonomy, error) {
	t, err := pipeline.LoadTaxonomy(path)
	if err != nil {
		return nil, err
	}
	log.Info("Taxonomy loaded", zap.String("path", path), zap.Int("categories", len(t.Categories)))
	return t, nil
}
