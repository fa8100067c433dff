package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"feedingest/internal/config"
	"feedingest/internal/history"
	"feedingest/internal/infrastructure/httpfetch"
	"feedingest/internal/infrastructure/index"
	"feedingest/internal/infrastructure/llm"
	"feedingest/internal/infrastructure/scheduler"
	"feedingest/internal/infrastructure/storage"
	"feedingest/internal/logging"
	"feedingest/internal/ports"
	"feedingest/internal/retry"
	"feedingest/internal/usecase"
)

// Application wires configuration to the pipeline and its adapters.
type Application struct {
	cfg       config.Config
	pipeline  *usecase.Pipeline
	scheduler ports.Scheduler
	logger    *slog.Logger
	closers   []io.Closer
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	app := &Application{cfg: cfg, logger: baseLogger}

	blobs, key, err := app.openBlobStore()
	if err != nil {
		return nil, err
	}

	hist := history.NewStore(blobs, key, cfg.History.MaxEntries,
		baseLogger.With("component", "history"))

	app.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		FeedURL:    cfg.Feed.URL,
		Source:     cfg.Feed.Source,
		Fetcher:    httpfetch.New(nil),
		Summarizer: llm.NewClient(cfg.Summarizer),
		Index:      index.NewClient(cfg.Index),
		History:    hist,
		Retry:      retryPolicy(cfg.Retry),
		Logger:     baseLogger.With("component", "pipeline"),
	})
	app.scheduler = scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location())

	return app, nil
}

func (a *Application) openBlobStore() (ports.BlobStore, string, error) {
	if dsn := a.cfg.State.SQLiteDSN; dsn != "" {
		store, err := storage.OpenSQLStore(dsn)
		if err != nil {
			return nil, "", fmt.Errorf("open state store: %w", err)
		}
		a.closers = append(a.closers, store)
		return store, "feedingest.json", nil
	}

	path := a.cfg.State.Path
	return storage.NewFileStore(nil, filepath.Dir(path)), filepath.Base(path), nil
}

// RunOnce executes a single pipeline pass and logs the outcome.
func (a *Application) RunOnce(ctx context.Context) error {
	result, err := a.pipeline.Run(ctx)
	if err != nil {
		return err
	}

	a.logger.Info("run complete",
		"discovered", result.Metadata.DiscoveredCount,
		"new", result.Metadata.NewCount,
		"fetched", result.Metadata.FetchedCount,
		"summarized", result.Metadata.SummarizedCount)
	return nil
}

// Serve runs the pipeline on the configured cron schedule until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	job := func(trigger time.Time) {
		a.logger.Info("scheduled run starting", "trigger", trigger.Format(time.RFC3339))
		if err := a.RunOnce(ctx); err != nil {
			a.logger.Error("scheduled run failed", "error", err)
		}
	}

	if err := a.scheduler.Start(ctx, job); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.scheduler.Stop(stopCtx)
}

// Close releases any resources held by the state backend.
func (a *Application) Close() error {
	var firstErr error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func retryPolicy(cfg config.RetryConfig) retry.Policy {
	policy := retry.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialDelayMs > 0 {
		policy.InitialDelay = time.Duration(cfg.InitialDelayMs) * time.Millisecond
	}
	if cfg.MaxDelayMs > 0 {
		policy.MaxDelay = time.Duration(cfg.MaxDelayMs) * time.Millisecond
	}
	if cfg.Multiplier > 0 {
		policy.Multiplier = cfg.Multiplier
	}
	return policy
}
