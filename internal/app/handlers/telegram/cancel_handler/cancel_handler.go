package cancel_handler

import (
	"context"

	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/reply"
	"github.com/IT-Nick/testbot/internal/app/testflow"
	"gopkg.in/telebot.v4"
)

// CancelHandler команда /cancel и кнопка "Отмена" на карточке теста
type CancelHandler struct {
	runner *testflow.Runner
}

func NewCancelHandler(runner *testflow.Runner) *CancelHandler {
	return &CancelHandler{runner: runner}
}

// Handle прерывает прохождение, ответы остаются в попытке
func (h *CancelHandler) Handle(c telebot.Context) error {
	if c.Callback() != nil {
		if err := reply.Callback(c, ""); err != nil {
			return err
		}
		_ = c.Delete()
	}
	return h.runner.Cancel(context.Background(), c.Sender().ID, reply.ChatID(c))
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *CancelHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
