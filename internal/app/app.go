// Package app wires configuration into the concrete store, queue, extractor
// and services shared by the server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"wasterescue/internal/auth"
	"wasterescue/internal/config"
	"wasterescue/internal/email/noop"
	sesnotifier "wasterescue/internal/email/ses"
	"wasterescue/internal/extraction"
	"wasterescue/internal/logging"
	"wasterescue/internal/port"
	"wasterescue/internal/preview"
	fsqueue "wasterescue/internal/review/fs"
	"wasterescue/internal/review/postgres"
	"wasterescue/internal/service"
	fsstore "wasterescue/internal/storage/fs"
	s3store "wasterescue/internal/storage/s3"

	// Extraction providers register themselves.
	_ "wasterescue/internal/extraction/claude"
	_ "wasterescue/internal/extraction/gemini"
	_ "wasterescue/internal/extraction/openai"
)

// App holds the wired components.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Store        port.DocumentStore
	Queue        port.ReviewQueue
	Orchestrator service.Orchestrator
	Reviews      service.ReviewService
	Tokens       *auth.Tokens

	// LocalStore is set when documents live on the local filesystem.
	LocalStore *fsstore.Store
	// DB is set when the review queue is database backed.
	DB *sqlx.DB
}

// New builds every component selected by cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	logger = logging.OrDefault(logger)
	a := &App{Config: cfg, Logger: logger, Tokens: auth.NewTokens(cfg.JWT)}

	if err := a.initStore(ctx); err != nil {
		return nil, err
	}
	if err := a.initQueue(ctx); err != nil {
		return nil, err
	}

	extractor, err := extraction.NewFromConfig(&cfg.Extractor, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app: building extractor: %w", err)
	}

	notifier, err := a.newNotifier(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	locks := service.NewKeyLock()
	a.Orchestrator = service.NewOrchestrator(
		a.Store,
		extractor,
		preview.NewDecoder(logger),
		a.Queue,
		notifier,
		locks,
		service.OrchestratorConfig{
			Concurrency:     cfg.Queue.Concurrency,
			DocumentTimeout: cfg.Queue.DocumentTimeout,
		},
		logger,
	)
	a.Reviews = service.NewReviewService(a.Queue, a.Store, locks, logger)
	return a, nil
}

func (a *App) initStore(ctx context.Context) error {
	switch a.Config.Store.Backend {
	case "s3":
		s, err := s3store.NewStore(ctx, &a.Config.S3, &a.Config.Store, a.Logger)
		if err != nil {
			return fmt.Errorf("app: initializing S3 store: %w", err)
		}
		a.Store = s
	default:
		s, err := fsstore.New(fsstore.Config{
			BaseDir:   a.Config.Store.BaseDir,
			Source:    a.Config.Store.SourceBucket,
			Processed: a.Config.Store.ProcessedBucket,
			Processor: a.Config.Store.Processor,
		}, a.Logger)
		if err != nil {
			return fmt.Errorf("app: initializing filesystem store: %w", err)
		}
		a.Store = s
		a.LocalStore = s
	}
	return nil
}

func (a *App) initQueue(ctx context.Context) error {
	switch a.Config.Review.Backend {
	case "postgres":
		db, err := postgres.Open(ctx, &a.Config.DB)
		if err != nil {
			return fmt.Errorf("app: connecting to review database: %w", err)
		}
		a.DB = db
		a.Queue = postgres.NewReviewQueue(db)
	default:
		q, err := fsqueue.New(a.Config.Review.Dir, a.Logger)
		if err != nil {
			return fmt.Errorf("app: initializing review queue: %w", err)
		}
		a.Queue = q
	}
	return nil
}

func (a *App) newNotifier(ctx context.Context) (port.ReviewNotifier, error) {
	if a.Config.Email.Provider == "ses" {
		n, err := sesnotifier.NewSESNotifier(ctx, &a.Config.Email, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("app: initializing SES notifier: %w", err)
		}
		return n, nil
	}
	return noop.NewNoopNotifier(a.Config.Email.DashboardURL, a.Logger), nil
}

// StartRunner returns a runner for the orchestrator. When the filesystem
// store is watched, dropped documents trigger an early cycle.
func (a *App) StartRunner(ctx context.Context) *service.Runner {
	var trigger chan struct{}
	if a.LocalStore != nil && a.Config.Store.Watch {
		trigger = make(chan struct{}, 1)
		go func() {
			if err := a.LocalStore.Watch(ctx, trigger); err != nil && !errors.Is(err, context.Canceled) {
				a.Logger.Error("document watch stopped", "error", err)
			}
		}()
	}
	return service.NewRunner(a.Orchestrator, trigger, a.Logger)
}

// Close releases the database connection, if any.
func (a *App) Close() {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn("closing review database", "error", err)
		}
	}
}
