package top_results_handler

import (
	"context"
	"errors"

	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/reply"
	"github.com/IT-Nick/testbot/internal/app/testflow"
	attemptsService "github.com/IT-Nick/testbot/internal/domain/attempts/service"
	"github.com/IT-Nick/testbot/internal/domain/model"
	"gopkg.in/telebot.v4"
)

// TopResultsHandler /top_results
type TopResultsHandler struct {
	attemptService *attemptsService.AttemptService
	limit          int
}

func NewTopResultsHandler(attemptService *attemptsService.AttemptService, limit int) *TopResultsHandler {
	return &TopResultsHandler{attemptService: attemptService, limit: limit}
}

func (h *TopResultsHandler) Handle(c telebot.Context) error {
	summary, err := h.attemptService.TopResults(context.Background(), h.limit)
	if errors.Is(err, model.ErrNoActiveTest) {
		return c.Send("ℹ️ Активного теста нет.")
	}
	if err != nil {
		return err
	}
	return reply.Long(c, testflow.TopResultsText(summary))
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *TopResultsHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
