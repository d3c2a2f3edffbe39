package answer_handler

import (
	"context"

	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/reply"
	"github.com/IT-Nick/testbot/internal/app/testflow"
	"gopkg.in/telebot.v4"
)

// AnswerHandler выбор варианта ответа, данные кнопки "номер|вариант"
type AnswerHandler struct {
	runner *testflow.Runner
}

func NewAnswerHandler(runner *testflow.Runner) *AnswerHandler {
	return &AnswerHandler{runner: runner}
}

func (h *AnswerHandler) Handle(c telebot.Context) error {
	err := h.runner.Answer(context.Background(), c.Sender().ID, c.Callback().Data)
	return reply.Flow(c, err)
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *AnswerHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
