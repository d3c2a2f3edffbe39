package finish_handler

import (
	"context"

	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/reply"
	"github.com/IT-Nick/testbot/internal/app/testflow"
	"gopkg.in/telebot.v4"
)

// FinishHandler кнопки завершения: "Завершить", подтверждение и возврат к вопросам
type FinishHandler struct {
	action func(ctx context.Context, userID int64) error
}

// NewFinishHandler "Завершить": сразу или через подтверждение, если есть вопросы без ответа
func NewFinishHandler(runner *testflow.Runner) *FinishHandler {
	return &FinishHandler{action: runner.RequestFinish}
}

// NewFinishAnywayHandler подтверждение завершения
func NewFinishAnywayHandler(runner *testflow.Runner) *FinishHandler {
	return &FinishHandler{action: runner.FinishAnyway}
}

// NewContinueHandler возврат из подтверждения к текущему вопросу
func NewContinueHandler(runner *testflow.Runner) *FinishHandler {
	return &FinishHandler{action: runner.Continue}
}

func (h *FinishHandler) Handle(c telebot.Context) error {
	return reply.Flow(c, h.action(context.Background(), c.Sender().ID))
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *FinishHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
