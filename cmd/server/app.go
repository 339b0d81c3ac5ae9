package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/colloquyhq/colloquy-api/internal/api/middleware"
	"github.com/colloquyhq/colloquy-api/internal/chat"
	"github.com/colloquyhq/colloquy-api/internal/config"
	"github.com/colloquyhq/colloquy-api/internal/events"
	"github.com/colloquyhq/colloquy-api/internal/platform/gemini"
	"github.com/colloquyhq/colloquy-api/internal/platform/mail"
	"github.com/colloquyhq/colloquy-api/internal/platform/metrics"
	"github.com/colloquyhq/colloquy-api/internal/platform/postgres"
	"github.com/colloquyhq/colloquy-api/internal/platform/redis"
	"github.com/colloquyhq/colloquy-api/internal/platform/storage"
	"github.com/colloquyhq/colloquy-api/internal/redact"
	"github.com/colloquyhq/colloquy-api/internal/service"
	"github.com/colloquyhq/colloquy-api/internal/service/auth"
	"github.com/colloquyhq/colloquy-api/internal/status"
	"github.com/colloquyhq/colloquy-api/internal/store"
	"github.com/colloquyhq/colloquy-api/internal/task"
	goredis "github.com/go-redis/redis/v8"
)

// newResponder creates the AI responder. Replaced in tests.
var newResponder = func(ctx context.Context, l *slog.Logger, cfg config.LLMConfig) (chat.Responder, error) {
	return gemini.NewResponder(ctx, l, cfg)
}

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	redis  *goredis.Client

	// Stores
	userStore  store.UserStore
	resetStore store.PasswordResetStore
	taskStore  task.TaskStore

	// Ephemeral state. memoryCache and memoryRevocations are nil when redis
	// backs the status cache and revocation list.
	statusTracker     *status.Tracker
	memoryCache       *status.MemoryCache
	memoryRevocations *auth.MemoryRevocations

	jwtService auth.JWTService
	avatars    *storage.AvatarStore
	metrics    *metrics.Metrics
	limiter    *middleware.RateLimiter

	// Services
	accounts      *service.AccountService
	chat          *service.ChatService
	feedback      *service.FeedbackService
	analytics     *service.AnalyticsService
	notifications *service.NotificationService

	eventEmitter *events.InMemoryEventEmitter
	registry     *task.Registry
	taskRunner   *task.TaskRunner
	scheduler    *task.Scheduler
}

// newApplication creates a new application instance with all dependencies initialized.
// Nothing is started; call start to launch the task runner and scheduler.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
		limiter: middleware.NewRateLimiter(cfg.Server.ChatRateLimit, cfg.Server.ChatRateBurst),
	}

	if err := app.setupEphemeralState(ctx); err != nil {
		return nil, err
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth, app.revocations())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.userStore = postgres.NewPostgresUserStore(db, cfg.Auth.BCryptCost, logger)
	app.resetStore = postgres.NewPostgresPasswordResetStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	sessions := postgres.NewPostgresChatSessionStore(db, logger)
	messages := postgres.NewPostgresChatMessageStore(db, logger)

	responder, err := newResponder(ctx, logger.With("component", "ai_responder"), cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AI responder: %w", err)
	}
	logger.Info("AI responder initialized", "model", cfg.LLM.ModelName)

	resetLifetime := time.Duration(cfg.Auth.ResetTokenLifetimeMinutes) * time.Minute
	mailer, err := mail.NewMailer(mail.NewSender(cfg.Mail, logger), cfg.Server.PublicURL, resetLifetime)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	app.avatars, err = storage.NewAvatarStore(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize avatar storage: %w", err)
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)

	app.analytics = service.NewAnalyticsService(
		app.eventEmitter,
		postgres.NewPostgresAnalyticsStore(db, logger),
		app.userStore,
		logger)
	app.notifications = service.NewNotificationService(
		postgres.NewPostgresNotificationStore(db, logger),
		app.userStore,
		logger)
	app.accounts = service.NewAccountService(service.AccountDeps{
		DB:            db,
		Users:         app.userStore,
		Resets:        app.resetStore,
		JWT:           app.jwtService,
		Verifier:      auth.NewBcryptVerifier(),
		Emitter:       app.eventEmitter,
		Analytics:     app.analytics,
		Mailer:        mailer,
		Avatars:       app.avatars,
		ResetLifetime: resetLifetime,
	}, logger)
	app.chat = service.NewChatService(service.ChatDeps{
		DB:           db,
		Sessions:     sessions,
		Messages:     messages,
		Knowledge:    postgres.NewPostgresKnowledgeStore(db, logger),
		Emitter:      app.eventEmitter,
		Tracker:      app.statusTracker,
		Analytics:    app.analytics,
		HistoryLimit: cfg.LLM.HistoryLimit,
		SourceLimit:  cfg.LLM.SourceLimit,
	}, logger)
	app.feedback = service.NewFeedbackService(
		db,
		sessions,
		messages,
		postgres.NewPostgresChatFeedbackStore(db, logger),
		app.analytics,
		logger)

	app.registry = app.buildRegistry(responder)
	app.taskRunner = task.NewTaskRunner(app.taskStore, app.registry, task.TaskRunnerConfig{
		WorkerCount:  cfg.Task.WorkerCount,
		QueueSize:    cfg.Task.QueueSize,
		StuckTaskAge: time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
	}, logger)
	app.taskRunner.SetObserver(app.metrics)
	app.taskRunner.SetErrorHandler(func(t task.Task, err error) {
		logger.Warn("background task failed",
			"task_id", t.ID(),
			"task_type", t.Type(),
			redact.ErrorAttr(err))
	})
	app.eventEmitter.RegisterHandler(task.NewDispatcher(app.registry, app.taskRunner, logger))

	app.scheduler, err = task.NewScheduler(cfg.Task.CleanupSchedule, app.maintenanceJobs(), logger)
	if err != nil {
		return nil, err
	}

	return app, nil
}

// setupEphemeralState chooses redis or in-memory backends for the response
// status cache and the refresh token revocation list.
func (app *application) setupEphemeralState(ctx context.Context) error {
	ttl := time.Duration(app.config.Task.StatusTTLSeconds) * time.Second

	if !app.config.Redis.Enabled {
		app.memoryCache = status.NewMemoryCache()
		app.memoryRevocations = auth.NewMemoryRevocations()
		app.statusTracker = status.NewTracker(app.memoryCache, ttl)
		app.logger.Info("using in-memory response cache", "status_ttl_seconds", app.config.Task.StatusTTLSeconds)
		return nil
	}

	client, err := redis.NewClient(ctx, app.config.Redis.URL, app.logger)
	if err != nil {
		return err
	}
	app.redis = client
	app.statusTracker = status.NewTracker(redis.NewStatusCache(client, app.logger), ttl)
	app.logger.Info("using redis response cache", "status_ttl_seconds", app.config.Task.StatusTTLSeconds)
	return nil
}

func (app *application) revocations() auth.Revocations {
	if app.memoryRevocations != nil {
		return app.memoryRevocations
	}
	return redis.NewRevocations(app.redis)
}

// buildRegistry registers a factory for every task type the services publish.
func (app *application) buildRegistry(responder chat.Responder) *task.Registry {
	r := task.NewRegistry()
	r.Register(task.TypeAIResponse, task.AIResponseFactory(task.AIResponseDeps{
		Conversation: app.chat,
		Responder:    responder,
		Tracker:      app.statusTracker,
	}))
	r.Register(task.TypeAnalyticsEvent, task.AnalyticsEventFactory(app.analytics))
	r.Register(task.TypeVerificationEmail, task.VerificationEmailFactory(app.accounts))
	r.Register(task.TypePasswordResetEmail, task.PasswordResetEmailFactory(app.accounts))
	r.Register(task.TypeWelcomeNotification, task.WelcomeNotificationFactory(app.notifications))
	return r
}

// start recovers unfinished tasks, then launches the workers and the
// maintenance scheduler.
func (app *application) start() error {
	if err := app.taskRunner.Start(); err != nil {
		return fmt.Errorf("failed to start task runner: %w", err)
	}
	app.scheduler.Start()
	app.logger.Info("task runner started",
		"worker_count", app.config.Task.WorkerCount,
		"queue_size", app.config.Task.QueueSize,
		"cleanup_schedule", app.config.Task.CleanupSchedule)
	return nil
}

// cleanup releases resources in reverse order of acquisition.
func (app *application) cleanup() {
	if app.scheduler != nil {
		app.scheduler.Stop()
	}
	if app.taskRunner != nil {
		app.logger.Info("stopping task runner")
		app.taskRunner.Stop()
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("failed to close redis client", "error", err)
		}
	}
	if app.db != nil {
		app.logger.Info("closing database connection")
		if err := app.db.Close(); err != nil {
			app.logger.Error("failed to close database", "error", err)
		}
	}
}
