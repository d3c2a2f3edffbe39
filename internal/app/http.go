package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/IT-Nick/testbot/internal/app/handlers/http/active_test_handler"
	"github.com/IT-Nick/testbot/internal/app/handlers/http/generate_test_link_handler"
	"github.com/IT-Nick/testbot/internal/app/handlers/http/program_results_handler"
	"github.com/IT-Nick/testbot/internal/app/handlers/http/reopen_handler"
	"github.com/IT-Nick/testbot/internal/app/handlers/http/results_report_handler"
	"github.com/IT-Nick/testbot/internal/app/handlers/http/top_results_handler"
	"github.com/IT-Nick/testbot/internal/app/handlers/http/user_result_handler"
	"github.com/IT-Nick/testbot/internal/app/middleware"
	attemptsService "github.com/IT-Nick/testbot/internal/domain/attempts/service"
	testsService "github.com/IT-Nick/testbot/internal/domain/tests/service"
	"github.com/IT-Nick/testbot/internal/infra/report"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// RouterDeps зависимости HTTP API администратора
type RouterDeps struct {
	Tests       *testsService.TestService
	Attempts    *attemptsService.AttemptService
	Runner      reopen_handler.Abandoner
	Generator   *report.Generator
	BotUsername string
	JWTSecret   string
	TopLimit    int
	Logger      *zap.Logger
}

// NewRouter собирает gin-роутер. Без jwt_secret API не публикуется, остается только /healthz
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.ErrorHandler(d.Logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if d.JWTSecret == "" {
		d.Logger.Warn("auth.jwt_secret is empty, admin http api is disabled")
		return router
	}

	api := router.Group("/api/v1", middleware.JWTAuth(d.JWTSecret))
	{
		api.GET("/active-test", active_test_handler.NewActiveTestHandler(d.Tests).Handle)
		api.GET("/test-link", generate_test_link_handler.NewGenerateTestLinkHandler(d.BotUsername).Handle)
		api.PUT("/program/results", program_results_handler.NewProgramResultsHandler(d.Tests).Handle)

		api.GET("/results/top", top_results_handler.NewTopResultsHandler(d.Attempts, d.TopLimit).Handle)
		api.GET("/results/report.pdf", results_report_handler.NewResultsReportHandler(d.Attempts, d.Generator, d.TopLimit).Handle)
		api.GET("/results/:identifier", user_result_handler.NewUserResultHandler(d.Attempts).Handle)
		api.POST("/attempts/:identifier/reopen", reopen_handler.NewReopenHandler(d.Attempts, d.Runner, d.Logger).Handle)
	}
	return router
}

// initHTTP готовит HTTP сервер API администратора
func (app *App) initHTTP() {
	if !app.config.TelegramBot.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := NewRouter(RouterDeps{
		Tests:       app.testService,
		Attempts:    app.attemptService,
		Runner:      app.runner,
		Generator:   app.generator,
		BotUsername: app.botUsername(),
		JWTSecret:   app.config.Auth.JWTSecret,
		TopLimit:    app.config.Test.TopLimit,
		Logger:      app.logger,
	})

	app.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", app.config.Server.Host, app.config.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

}
