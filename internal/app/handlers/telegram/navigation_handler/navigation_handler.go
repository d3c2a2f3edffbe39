package navigation_handler

import (
	"context"

	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/reply"
	"github.com/IT-Nick/testbot/internal/app/testflow"
	"gopkg.in/telebot.v4"
)

// NavigationHandler кнопки ⬅️ и ➡️ под вопросом
type NavigationHandler struct {
	runner *testflow.Runner
	delta  int
}

// NewNavigationHandler delta -1 назад, +1 вперед
func NewNavigationHandler(runner *testflow.Runner, delta int) *NavigationHandler {
	return &NavigationHandler{runner: runner, delta: delta}
}

func (h *NavigationHandler) Handle(c telebot.Context) error {
	err := h.runner.Navigate(context.Background(), c.Sender().ID, h.delta)
	return reply.Flow(c, err)
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *NavigationHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}

// Noop кнопка с номером вопроса ничего не делает
func Noop(c telebot.Context) error {
	return reply.Callback(c, "")
}
