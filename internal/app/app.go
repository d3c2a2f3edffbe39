package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/IT-Nick/testbot/internal/app/testflow"
	attemptsRepo "github.com/IT-Nick/testbot/internal/domain/attempts/repository"
	attemptsService "github.com/IT-Nick/testbot/internal/domain/attempts/service"
	"github.com/IT-Nick/testbot/internal/domain/authoring"
	"github.com/IT-Nick/testbot/internal/domain/events"
	msgRepo "github.com/IT-Nick/testbot/internal/domain/messages/repository"
	msgService "github.com/IT-Nick/testbot/internal/domain/messages/service"
	"github.com/IT-Nick/testbot/internal/domain/sessions"
	"github.com/IT-Nick/testbot/internal/domain/tests/importer"
	testsRepo "github.com/IT-Nick/testbot/internal/domain/tests/repository"
	testsService "github.com/IT-Nick/testbot/internal/domain/tests/service"
	usersRepo "github.com/IT-Nick/testbot/internal/domain/users/repository"
	usersService "github.com/IT-Nick/testbot/internal/domain/users/service"
	"github.com/IT-Nick/testbot/internal/infra/cache"
	"github.com/IT-Nick/testbot/internal/infra/config"
	"github.com/IT-Nick/testbot/internal/infra/messaging"
	"github.com/IT-Nick/testbot/internal/infra/report"
	"github.com/IT-Nick/testbot/internal/infra/timer"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"gopkg.in/telebot.v4"
)

type Services struct {
	userService    *usersService.UserService
	messageService *msgService.MessageService
	testService    *testsService.TestService
	attemptService *attemptsService.AttemptService
}

type App struct {
	config *config.Config
	logger *zap.Logger
	bot    *telebot.Bot
	db     *pgxpool.Pool
	redis  *cache.RedisClient
	rabbit *messaging.RabbitMQClient
	server *http.Server

	Services
	sessions  sessions.Store
	scheduler *timer.Scheduler
	wizard    *authoring.Wizard
	runner    *testflow.Runner
	generator *report.Generator
}

// NewApp собирает приложение: хранилища, сервисы, бот
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{
		config:    cfg,
		logger:    logger,
		scheduler: timer.NewScheduler(logger),
		generator: report.NewGenerator(cfg.Report.FontPath),
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.initSessions(); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.initTelegram(); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// Функция для инициализации сервисов и репозиториев
func (app *App) initServices() error {
	var (
		userRepo    usersService.Repository
		messageRepo msgService.Repository
		testRepo    testsService.Repository
		attemptRepo attemptsService.Repository
	)

	switch app.config.Storage.Type {
	case config.StorageMemory:
		app.logger.Warn("using in-memory storage, data is lost on restart")
		userRepo = usersRepo.NewMemoryUserRepository()
		messageRepo = msgRepo.NoopMessageRepository{}
		testRepo = testsRepo.NewMemoryTestRepository()
		attemptRepo = attemptsRepo.NewMemoryAttemptRepository()
	default:
		db, err := InitDatabase(context.Background(), app.config.Database, app.logger)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		app.db = db
		userRepo = usersRepo.NewUserRepository(db)
		messageRepo = msgRepo.NewMessageRepository(db)
		testRepo = testsRepo.NewTestRepository(db)
		attemptRepo = attemptsRepo.NewAttemptRepository(db)
	}

	publisher, err := app.initPublisher()
	if err != nil {
		return err
	}

	app.userService = usersService.NewUserService(userRepo)
	app.messageService = msgService.NewMessageService(messageRepo)
	app.testService = testsService.NewTestService(testRepo)
	app.attemptService = attemptsService.NewAttemptService(
		attemptRepo,
		app.testService,
		app.userService,
		publisher,
		attemptsService.Settings{
			GracePeriod: app.config.Test.GracePeriod,
			MaxScore:    app.config.Test.MaxScore,
		},
		app.logger,
	)
	app.wizard = authoring.NewWizard(app.testService, testsService.NewTestID)

	if seed := app.config.Test.SeedFile; seed != "" {
		bundles, err := importer.Load(seed)
		if err != nil {
			return err
		}
		created, err := importer.Import(context.Background(), app.testService, bundles)
		if err != nil {
			return fmt.Errorf("failed to import %s: %w", seed, err)
		}
		app.logger.Info("tests imported", zap.String("file", seed), zap.Int("created", created))
	}
	return nil
}

// initPublisher события уходят в RabbitMQ, если он настроен, иначе в лог
func (app *App) initPublisher() (events.Publisher, error) {
	if app.config.RabbitMQ.URL == "" {
		return events.NewLogPublisher(app.logger), nil
	}
	client, err := messaging.NewRabbitMQClient(app.config.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}
	app.rabbit = client
	app.logger.Info("attempt events go to rabbitmq", zap.String("queue", app.config.RabbitMQ.Queue))
	return events.NewQueuePublisher(client, app.config.RabbitMQ.Queue), nil
}

func (app *App) initSessions() error {
	switch app.config.Sessions.Backend {
	case config.SessionsRedis:
		client, err := cache.NewRedisClient(app.config.Redis)
		if err != nil {
			return err
		}
		app.redis = client
		app.sessions = sessions.NewRedisStore(client, app.config.Sessions.TTL)
	case config.SessionsJSON:
		app.sessions = sessions.NewJSONStore(app.config.Sessions.File)
	default:
		app.sessions = sessions.NewMemoryStore()
	}
	return nil
}

// Run запускает бота и HTTP API и блокируется до отмены ctx
func (app *App) Run(ctx context.Context) error {
	recovered, err := app.runner.Recover(ctx)
	if err != nil {
		app.logger.Error("failed to recover open attempts", zap.Error(err))
	} else if recovered > 0 {
		app.logger.Info("open attempts rescheduled", zap.Int("count", recovered))
	}

	go app.bot.Start()
	app.logger.Info("telegram bot started", zap.String("mode", app.config.TelegramBot.Mode))

	app.initHTTP()
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.server.ListenAndServe()
	}()
	app.logger.Info("http server started", zap.String("addr", app.server.Addr))

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.shutdown()
			return fmt.Errorf("http server: %w", err)
		}
	}
	app.shutdown()
	return nil
}

func (app *App) shutdown() {
	app.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if app.server != nil {
		if err := app.server.Shutdown(shutdownCtx); err != nil {
			app.logger.Error("http server shutdown", zap.Error(err))
		}
	}
	app.bot.Stop()
	app.Close()
}

// Close освобождает внешние ресурсы. Таймеры останавливаются, незавершенные
// попытки будут подхвачены при следующем запуске
func (app *App) Close() {
	app.scheduler.Stop()
	if app.rabbit != nil {
		if err := app.rabbit.Close(); err != nil {
			app.logger.Warn("rabbitmq close", zap.Error(err))
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn("redis close", zap.Error(err))
		}
	}
	if app.db != nil {
		app.db.Close()
	}
}
