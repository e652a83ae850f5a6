package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"AnalystScanner/internal/config"
	"AnalystScanner/internal/infrastructure/email"
	"AnalystScanner/internal/infrastructure/llm"
	"AnalystScanner/internal/infrastructure/parser"
	"AnalystScanner/internal/infrastructure/scheduler"
	"AnalystScanner/internal/infrastructure/storage"
	"AnalystScanner/internal/infrastructure/telegram"
	"AnalystScanner/internal/logging"
	"AnalystScanner/internal/ports"
	"AnalystScanner/internal/scanner"
	"AnalystScanner/internal/usecase"
	"AnalystScanner/internal/web"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *sql.DB
	pipeline *usecase.Pipeline
}

// New builds a runnable application instance; storage is opened and migrated when a DSN is set.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	registry := scanner.NewRegistry()
	registry.Register(parser.NewFlyScanner(nil, baseLogger.With("component", "scanner.thefly")))

	source := parser.NewStrategySource(registry, cfg.Sites, baseLogger.With("component", "source"))

	a := &Application{cfg: cfg, logger: baseLogger}

	var repository ports.AnnouncementRepository
	if cfg.Database.DSN != "" {
		db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		repo := storage.NewSQLRepository(db, cfg.Database.Driver)
		if err := repo.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		a.db = db
		repository = repo
	}

	var notifiers []ports.Notifier
	if tg := cfg.Notifications.Telegram; tg.BotToken != "" && tg.ChatID != "" {
		notifiers = append(notifiers, telegram.NewNotifier(tg.BotToken, tg.ChatID))
	}
	if cfg.Notifications.Email.Enabled() {
		notifiers = append(notifiers, email.NewNotifier(cfg.Notifications.Email))
	}

	var chatClient ports.ChatClient
	if cfg.ChatGPT.APIKey != "" {
		chatClient = llm.NewChatGPTClient(cfg.ChatGPT)
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Repository: repository,
		Notifiers:  notifiers,
		ChatClient: chatClient,
		Logger:     baseLogger.With("component", "pipeline"),
		Live:       cfg.HTTP.IsLive(),
	})

	baseLogger.Debug("application wired",
		"storage", repository != nil,
		"notifiers", len(notifiers),
		"chatgpt", chatClient != nil,
		"live", cfg.HTTP.IsLive())

	return a, nil
}

// Today is the current day in the configured timezone.
func (a *Application) Today() time.Time {
	now := time.Now().In(a.cfg.Scheduler.Location())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// Location is the configured timezone.
func (a *Application) Location() *time.Location {
	return a.cfg.Scheduler.Location()
}

// RunOnce performs a single pipeline execution for the day.
func (a *Application) RunOnce(ctx context.Context, day time.Time) (usecase.Report, error) {
	return a.pipeline.ProcessDay(ctx, day)
}

// Handler returns the table view bound to the pipeline.
func (a *Application) Handler() http.Handler {
	return web.NewHandler(a.pipeline, a.Location(), a.logger.With("component", "web"))
}

// Serve runs the refresh scheduler (when storage is configured) and the HTTP server until ctx ends.
func (a *Application) Serve(ctx context.Context) error {
	if a.db != nil {
		driver, err := a.schedulerDriver()
		if err != nil {
			return err
		}
		sched := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				a.logger.Warn("scheduler stop", "error", err)
			}
		}()
	}

	return web.Serve(ctx, a.cfg.HTTP.Addr, a.Handler(), a.logger.With("component", "http"))
}

func (a *Application) schedulerDriver() (ports.Scheduler, error) {
	if spec := a.cfg.Scheduler.Cron; spec != "" {
		return scheduler.NewCronScheduler(spec, a.Location(), a.logger.With("component", "cron"))
	}
	return scheduler.NewTickerScheduler(a.cfg.Scheduler.Every(), a.Location()), nil
}

// Close releases the database handle.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
