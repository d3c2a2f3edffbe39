package app

import (
	"fmt"

	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/admin/authoring_handler"
	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/admin/publish_handler"
	adminReopen "github.com/IT-Nick/testbot/internal/app/handlers/telegram/admin/reopen_handler"
	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/admin/results_pdf_handler"
	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/admin/results_state_handler"
	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/admin/test_qr_handler"
	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/admin/tests_list_handler"
	adminTop "github.com/IT-Nick/testbot/internal/app/handlers/telegram/admin/top_results_handler"
	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/admin/unpublish_handler"
	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/answer_handler"
	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/cancel_handler"
	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/finish_handler"
	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/get_test_handler"
	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/navigation_handler"
	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/reply"
	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/result_handler"
	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/start_handler"
	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/start_test_handler"
	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/text_handler"
	"github.com/IT-Nick/testbot/internal/app/middleware"
	"github.com/IT-Nick/testbot/internal/app/testflow"
	"github.com/IT-Nick/testbot/internal/domain/model"
	"github.com/IT-Nick/testbot/internal/infra/poller"
	"github.com/IT-Nick/testbot/internal/infra/telegram"
	"go.uber.org/zap"
	"gopkg.in/telebot.v4"
)

// initTelegram создает бота и Runner поверх него
func (app *App) initTelegram() error {
	p, err := poller.NewPoller(app.config.TelegramBot)
	if err != nil {
		return fmt.Errorf("poller.NewPoller: %w", err)
	}

	bot, err := telebot.NewBot(telebot.Settings{
		Token:   app.config.TelegramBot.Token,
		Poller:  p,
		OnError: app.onError,
	})
	if err != nil {
		return fmt.Errorf("telebot.NewBot: %w", err)
	}
	app.bot = bot

	app.runner = testflow.NewRunner(testflow.Deps{
		Attempts:  app.attemptService,
		Catalog:   app.testService,
		Users:     app.userService,
		Texts:     app.messageService,
		Sessions:  app.sessions,
		Scheduler: app.scheduler,
		Messenger: telegram.NewMessenger(bot),
		IsAdmin:   app.config.IsAdmin,
		Tick:      app.config.Test.TickInterval,
		Logger:    app.logger,
	})

	app.bootstrapHandlersTelegram()
	return nil
}

// onError ошибки обработчиков: в лог и общее сообщение пользователю
func (app *App) onError(err error, c telebot.Context) {
	fields := []zap.Field{zap.Error(err)}
	if c != nil && c.Sender() != nil {
		fields = append(fields, zap.Int64("user_id", c.Sender().ID))
	}
	app.logger.Error("handler failed", fields...)

	if c == nil || c.Sender() == nil {
		return
	}
	if c.Callback() != nil {
		_ = c.Respond(&telebot.CallbackResponse{Text: reply.GenericErrorText})
		return
	}
	_ = c.Send(reply.GenericErrorText)
}

// botUsername имя бота для deep-link: из конфигурации или из getMe
func (app *App) botUsername() string {
	if app.config.TelegramBot.Username != "" {
		return app.config.TelegramBot.Username
	}
	if app.bot != nil && app.bot.Me != nil {
		return app.bot.Me.Username
	}
	return ""
}

// bootstrapHandlersTelegram - регистрирует обработчики для бота
func (app *App) bootstrapHandlersTelegram() {
	app.bot.Use(
		middleware.Recover(app.logger),
		middleware.Logger(app.logger),
		middleware.DebugUserActions(app.config.TelegramBot.Debug, app.sessions, app.logger),
	)

	getTest := get_test_handler.NewGetTestHandler(app.runner, app.messageService)

	// Команды участника
	app.bot.Handle("/start", start_handler.NewStartHandler(app.userService, app.messageService, getTest).GetHandlerFunc())
	app.bot.Handle("/get_test", getTest.GetHandlerFunc())
	app.bot.Handle("/cancel", cancel_handler.NewCancelHandler(app.runner).GetHandlerFunc())
	app.bot.Handle("/result", result_handler.NewResultHandler(app.attemptService, app.messageService, app.config.IsAdmin).GetHandlerFunc())

	// Кнопки прохождения теста. Unique совпадают с константами model
	app.bot.Handle(&telebot.InlineButton{Unique: model.StartTestKey}, start_test_handler.NewStartTestHandler(app.runner).GetHandlerFunc())
	app.bot.Handle(&telebot.InlineButton{Unique: model.CancelTestKey}, cancel_handler.NewCancelHandler(app.runner).GetHandlerFunc())
	app.bot.Handle(&telebot.InlineButton{Unique: model.AnswerKey}, answer_handler.NewAnswerHandler(app.runner).GetHandlerFunc())
	app.bot.Handle(&telebot.InlineButton{Unique: model.PrevKey}, navigation_handler.NewNavigationHandler(app.runner, -1).GetHandlerFunc())
	app.bot.Handle(&telebot.InlineButton{Unique: model.NextKey}, navigation_handler.NewNavigationHandler(app.runner, 1).GetHandlerFunc())
	app.bot.Handle(&telebot.InlineButton{Unique: model.NoopKey}, navigation_handler.Noop)
	app.bot.Handle(&telebot.InlineButton{Unique: model.FinishKey}, finish_handler.NewFinishHandler(app.runner).GetHandlerFunc())
	app.bot.Handle(&telebot.InlineButton{Unique: model.FinishAnywayKey}, finish_handler.NewFinishAnywayHandler(app.runner).GetHandlerFunc())
	app.bot.Handle(&telebot.InlineButton{Unique: model.ContinueTestKey}, finish_handler.NewContinueHandler(app.runner).GetHandlerFunc())

	// Команды администратора
	admin := app.bot.Group()
	admin.Use(middleware.AdminOnly(app.config.IsAdmin))

	authoring := authoring_handler.NewAuthoringHandler(app.wizard)
	admin.Handle("/create_test", authoring.CreateTest)
	admin.Handle("/add_questions", authoring.AddQuestions)
	admin.Handle("/skip", authoring.Skip)
	admin.Handle("/end_test", authoring.EndTest)
	admin.Handle("/abort", authoring.Abort)

	admin.Handle("/tests_list", tests_list_handler.NewTestsListHandler(app.testService).GetHandlerFunc())
	admin.Handle("/publish", publish_handler.NewPublishHandler(app.testService, app.logger).GetHandlerFunc())
	admin.Handle("/unpublish", unpublish_handler.NewUnpublishHandler(app.testService, app.logger).GetHandlerFunc())

	resultsOpen := results_state_handler.NewResultsStateHandler(app.testService, true, app.logger).GetHandlerFunc()
	admin.Handle("/results_open", resultsOpen)
	admin.Handle("/end_test_prog", resultsOpen)
	admin.Handle("/results_close", results_state_handler.NewResultsStateHandler(app.testService, false, app.logger).GetHandlerFunc())

	admin.Handle("/reopen_test", adminReopen.NewReopenHandler(app.attemptService, app.runner, app.logger).GetHandlerFunc())
	admin.Handle("/top_results", adminTop.NewTopResultsHandler(app.attemptService, app.config.Test.TopLimit).GetHandlerFunc())
	admin.Handle("/results_pdf", results_pdf_handler.NewResultsPDFHandler(app.attemptService, app.generator, app.config.Test.TopLimit).GetHandlerFunc())
	admin.Handle("/test_qr", test_qr_handler.NewTestQRHandler(app.botUsername()).GetHandlerFunc())

	// Свободный текст: шаги мастера у админов и ввод имени
	app.bot.Handle(telebot.OnText, text_handler.NewTextHandler(app.wizard, app.runner, app.config.IsAdmin).GetHandlerFunc())
}
