package results_state_handler

import (
	"context"

	testsService "github.com/IT-Nick/testbot/internal/domain/tests/service"
	"go.uber.org/zap"
	"gopkg.in/telebot.v4"
)

// ResultsStateHandler /results_open (/end_test_prog) и /results_close
type ResultsStateHandler struct {
	testService *testsService.TestService
	open        bool
	logger      *zap.Logger
}

func NewResultsStateHandler(testService *testsService.TestService, open bool, logger *zap.Logger) *ResultsStateHandler {
	return &ResultsStateHandler{testService: testService, open: open, logger: logger}
}

func (h *ResultsStateHandler) Handle(c telebot.Context) error {
	if err := h.testService.SetResultsOpen(context.Background(), h.open); err != nil {
		return err
	}
	h.logger.Info("results state changed", zap.Bool("open", h.open), zap.Int64("user_id", c.Sender().ID))
	if h.open {
		return c.Send("🔓 Результаты открыты: участники видят разбор ответов в /result.")
	}
	return c.Send("🔒 Результаты закрыты: участники видят только балл.")
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *ResultsStateHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
