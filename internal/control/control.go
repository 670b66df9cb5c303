// Package control wires the annotation engine together and drives runs.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.uber.org/multierr"

	"github.com/vietddude/varannot/internal/annotation/allele"
	"github.com/vietddude/varannot/internal/annotation/annotator"
	"github.com/vietddude/varannot/internal/annotation/health"
	"github.com/vietddude/varannot/internal/core/config"
	"github.com/vietddude/varannot/internal/core/worker"
	"github.com/vietddude/varannot/internal/infra/ensembl"
	"github.com/vietddude/varannot/internal/infra/ncbi"
	redisclient "github.com/vietddude/varannot/internal/infra/redis"
	"github.com/vietddude/varannot/internal/infra/rpc"
	"github.com/vietddude/varannot/internal/infra/rpc/budget"
	"github.com/vietddude/varannot/internal/infra/rpc/provider"
	"github.com/vietddude/varannot/internal/infra/rpc/routing"
	"github.com/vietddude/varannot/internal/infra/storage"
	"github.com/vietddude/varannot/internal/infra/storage/memory"
	"github.com/vietddude/varannot/internal/infra/storage/postgres"
	"github.com/vietddude/varannot/internal/infra/storage/tsv"
)

// Config holds the application configuration.
type Config struct {
	Port       int // 0 disables the health server
	Service    config.ServiceConfig
	Annotation config.AnnotationConfig
	Redis      redisclient.Config
	Database   postgres.Config
	Dbsnp      ncbi.Config
}

// FromAppConfig maps the loaded file configuration onto Config.
func FromAppConfig(cfg *config.AppConfig) Config {
	return Config{
		Port:       cfg.Server.HealthPort(),
		Service:    cfg.Service,
		Annotation: cfg.Annotation,
		Redis:      cfg.Redis,
		Database:   cfg.Database,
		Dbsnp:      cfg.Dbsnp,
	}
}

// Annotator is the main application struct. It owns the shared gate, the
// request client and the stores, and runs one annotation job at a time.
type Annotator struct {
	cfg Config

	transport *provider.HTTPProvider
	gate      *budget.Gate
	client    *rpc.Client
	pipeline  *annotator.Pipeline
	release   *ncbi.ReleaseClient

	runs   storage.RunStore
	sinks  []storage.VariantSink
	pruner *worker.Pruner

	healthMon    *health.Monitor
	healthServer *health.Server

	db          *postgres.DB
	redisClient *redisclient.Client
	log         *slog.Logger
}

// New creates an Annotator with all dependencies initialized.
func New(ctx context.Context, cfg Config) (*Annotator, error) {
	a := &Annotator{
		cfg: cfg,
		log: slog.Default().With("component", "control"),
	}

	// 1. Storage
	if err := a.initStorage(ctx); err != nil {
		_ = a.closeStores()
		return nil, err
	}

	// 2. Request stack: one gate shared by every request to the service
	svc := cfg.Service
	a.transport = provider.NewHTTPProvider(svc.Name, svc.BaseURL, svc.Timeout)
	a.gate = budget.NewGate(svc.RequestsPerSecond)
	policy := routing.NewPolicy(routing.RetryConfig{
		MaxRetries:          svc.MaxRetries,
		MaxRateLimitRetries: svc.MaxRateLimitRetries,
		InitialDelay:        svc.BackoffBase,
		MaxDelay:            svc.MaxDelay,
	})
	a.client = rpc.NewClient(a.transport, a.gate, policy)
	a.client.SetRetryCallback(func(req provider.Request, retry int, d routing.Decision) {
		if d.RateLimited {
			a.log.Info("Service asked us to slow down",
				"kind", req.Name,
				"retry", retry,
				"enforced_until", a.gate.EnforcedUntil(),
			)
		}
	})

	// 3. Annotation pipeline
	adapter := ensembl.NewAdapter(a.client, svc.Endpoints)
	a.pipeline = annotator.NewPipeline(annotator.Config{
		MaxWorkers: cfg.Annotation.MaxWorkers,
		Matcher: allele.Config{
			TargetPopulations: cfg.Annotation.TargetPopulations,
			StrandFlip:        cfg.Annotation.StrandFlip,
		},
	}, adapter)

	a.release = ncbi.NewReleaseClient(cfg.Dbsnp)

	// 4. Health
	a.healthMon = health.NewMonitor(a.transport, a.client.Usage(), a.gate)
	if cfg.Port > 0 {
		a.healthServer = health.NewServer(a.healthMon, cfg.Port)
	}

	return a, nil
}

func (a *Annotator) initStorage(ctx context.Context) error {
	a.sinks = []storage.VariantSink{tsv.NewFileSink()}

	var pgRepo *postgres.VariantRepo
	if a.cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, a.cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		a.db = db
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate db: %w", err)
		}
		pgRepo = postgres.NewVariantRepo(db)
		a.sinks = append(a.sinks, pgRepo)
		if a.cfg.Database.Retention > 0 {
			a.pruner = worker.NewPruner(a.cfg.Database.Retention, pgRepo)
		}
		a.log.Info("Using PostgreSQL storage")
	}

	switch {
	case a.cfg.Redis.URL != "":
		client, err := redisclient.NewClient(a.cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to init redis: %w", err)
		}
		a.redisClient = client
		a.runs = redisclient.NewStatusStore(client, a.cfg.Redis.RunTTL)
		a.log.Info("Using Redis run status store")
	case pgRepo != nil:
		a.runs = pgRepo
	default:
		a.runs = memory.NewRunRepo(memory.NewMemoryStorage())
		a.log.Info("Using Memory run status store")
	}
	return nil
}

// Runs returns the run status store.
func (a *Annotator) Runs() storage.RunStore {
	return a.runs
}

// Health returns the health monitor.
func (a *Annotator) Health() *health.Monitor {
	return a.healthMon
}

// Start starts the run pruner and the health server, if configured.
func (a *Annotator) Start(ctx context.Context) error {
	if a.pruner != nil {
		go a.pruner.Start(ctx)
	}
	if a.healthServer == nil {
		return nil
	}
	go func() {
		if err := a.healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Health server failed", "error", err)
		}
	}()
	a.log.Info("Health server started", "port", a.cfg.Port)
	return nil
}

// Stop stops the health server and closes the stores.
func (a *Annotator) Stop(ctx context.Context) error {
	var err error
	if a.healthServer != nil {
		err = multierr.Append(err, a.healthServer.Stop(ctx))
	}
	if a.transport != nil {
		err = multierr.Append(err, a.transport.Close())
	}
	return multierr.Append(err, a.closeStores())
}

func (a *Annotator) closeStores() error {
	var err error
	if a.redisClient != nil {
		err = multierr.Append(err, a.redisClient.Close())
	}
	if a.db != nil {
		err = multierr.Append(err, a.db.Close())
	}
	return err
}
