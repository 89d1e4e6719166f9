package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alihassan4198-tech/repricer/internal/config"
	"github.com/alihassan4198-tech/repricer/internal/domain"
	"github.com/alihassan4198-tech/repricer/internal/infrastructure/marketplace"
	"github.com/alihassan4198-tech/repricer/internal/infrastructure/offers"
	"github.com/alihassan4198-tech/repricer/internal/infrastructure/scheduler"
	"github.com/alihassan4198-tech/repricer/internal/infrastructure/storage"
	"github.com/alihassan4198-tech/repricer/internal/infrastructure/telegram"
	"github.com/alihassan4198-tech/repricer/internal/logging"
	"github.com/alihassan4198-tech/repricer/internal/ports"
	"github.com/alihassan4198-tech/repricer/internal/usecase"
)

// shutdownTimeout bounds how long Schedule waits for an in-flight run on exit.
const shutdownTimeout = 2 * time.Minute

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pool      *pgxpool.Pool
	postgres  *storage.PostgresStore
	engine    *usecase.Engine
	runner    *usecase.Runner
	scheduler *usecase.Scheduler
}

// New connects the store and builds every adapter the configuration enables.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	var store ports.ObservationStore
	if cfg.UsesPostgres() {
		pool, err := storage.OpenPool(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		a.postgres = storage.NewPostgresStore(pool)
		store = a.postgres
	} else {
		baseLogger.Warn("using in-memory observation store, records are lost on exit")
		store = storage.NewMemoryStore()
	}

	var updater ports.PriceUpdater
	if cfg.Marketplace.Configured() {
		updater = marketplace.NewListingsClient(cfg.Marketplace)
	} else {
		updater = marketplace.NewDryRunUpdater(baseLogger.With("component", "marketplace.dryrun"))
	}

	var collector ports.OfferCollector
	if cfg.Offers.Endpoint != "" {
		collector = offers.NewClient(cfg.Offers)
	} else {
		baseLogger.Info("offers endpoint not set, runs evaluate stored observations only")
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.Enabled() {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	products := cfg.DomainProducts()
	a.engine = usecase.NewEngine(usecase.EngineDeps{
		Store:         store,
		Updater:       updater,
		Products:      products,
		Policy:        cfg.Policy(),
		Channel:       cfg.Channel,
		UpdateTimeout: cfg.Marketplace.Timeout,
		Logger:        baseLogger.With("component", "engine"),
	})
	a.runner = usecase.NewRunner(usecase.RunnerDeps{
		Collector: collector,
		Store:     store,
		Decider:   a.engine,
		Notifier:  notifier,
		Products:  products,
		Regions:   cfg.ZipList,
		Channel:   cfg.Channel,
		Logger:    baseLogger.With("component", "runner"),
	})

	driver, err := scheduler.NewCronScheduler(cfg.Scheduler.CronExpression, cfg.Scheduler.Location(),
		baseLogger.With("component", "scheduler"))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.scheduler = usecase.NewScheduler(driver, a.runner, baseLogger.With("component", "scheduler"))

	return a, nil
}

// Decide evaluates a single product once.
func (a *Application) Decide(ctx context.Context, productID string) (domain.Decision, error) {
	return a.engine.Decide(ctx, productID)
}

// Run performs one collect-and-decide pass over every configured product.
func (a *Application) Run(ctx context.Context) (usecase.Report, error) {
	return a.runner.Run(ctx)
}

// Schedule runs on the cron expression until ctx is cancelled.
func (a *Application) Schedule(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.logger.Info("scheduler started",
		"cron", a.cfg.Scheduler.CronExpression,
		"timezone", a.cfg.Scheduler.Location().String())

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.scheduler.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	a.logger.Info("scheduler stopped")
	return nil
}

// InitDB creates the pricing table when it does not exist yet.
func (a *Application) InitDB(ctx context.Context) error {
	if a.postgres == nil {
		a.logger.Info("memory store selected, nothing to initialise")
		return nil
	}
	if err := a.postgres.EnsureSchema(ctx); err != nil {
		return err
	}
	a.logger.Info("pricing schema ready")
	return nil
}

// Close releases the database pool.
func (a *Application) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
