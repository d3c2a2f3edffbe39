package get_test_handler

import (
	"context"
	"errors"

	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/reply"
	"github.com/IT-Nick/testbot/internal/app/testflow"
	messageService "github.com/IT-Nick/testbot/internal/domain/messages/service"
	"github.com/IT-Nick/testbot/internal/domain/model"
	"gopkg.in/telebot.v4"
)

// GetTestHandler показывает карточку активного теста (/get_test)
type GetTestHandler struct {
	runner         *testflow.Runner
	messageService *messageService.MessageService
}

// NewGetTestHandler возвращает структуру обработчика
func NewGetTestHandler(runner *testflow.Runner, messageService *messageService.MessageService) *GetTestHandler {
	return &GetTestHandler{
		runner:         runner,
		messageService: messageService,
	}
}

// Handle отправляет карточку или сообщение об отсутствии теста
func (h *GetTestHandler) Handle(c telebot.Context) error {
	ctx := context.Background()

	text, kb, err := h.runner.ActiveTestCard(ctx)
	if errors.Is(err, model.ErrNoActiveTest) {
		return c.Send(h.messageService.Text(ctx, model.NoActiveTestKey), telebot.ModeHTML)
	}
	if err != nil {
		return err
	}
	return reply.HTML(c, text, kb)
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *GetTestHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
