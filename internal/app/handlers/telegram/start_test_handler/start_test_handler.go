package start_test_handler

import (
	"context"

	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/reply"
	"github.com/IT-Nick/testbot/internal/app/testflow"
	"gopkg.in/telebot.v4"
)

// StartTestHandler структура для обработки нажатия кнопки "Начать"
type StartTestHandler struct {
	runner *testflow.Runner
}

// NewStartTestHandler возвращает новый экземпляр обработчика
func NewStartTestHandler(runner *testflow.Runner) *StartTestHandler {
	return &StartTestHandler{runner: runner}
}

// Handle убирает карточку теста и запускает попытку (или запрос имени)
func (h *StartTestHandler) Handle(c telebot.Context) error {
	if err := reply.Callback(c, ""); err != nil {
		return err
	}
	if c.Callback() != nil && c.Callback().Message != nil {
		// кнопки карточки больше не нужны
		_ = c.Delete()
	}
	return h.runner.Begin(context.Background(), c.Sender().ID, reply.ChatID(c))
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *StartTestHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
