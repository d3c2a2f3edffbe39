package unpublish_handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/reply"
	"github.com/IT-Nick/testbot/internal/domain/model"
	testsService "github.com/IT-Nick/testbot/internal/domain/tests/service"
	"go.uber.org/zap"
	"gopkg.in/telebot.v4"
)

// UnpublishHandler /unpublish [test_id], без аргумента снимает текущий активный тест
type UnpublishHandler struct {
	testService *testsService.TestService
	logger      *zap.Logger
}

func NewUnpublishHandler(testService *testsService.TestService, logger *zap.Logger) *UnpublishHandler {
	return &UnpublishHandler{testService: testService, logger: logger}
}

func (h *UnpublishHandler) Handle(c telebot.Context) error {
	testID, err := h.testService.Unpublish(context.Background(), reply.Payload(c))
	switch {
	case errors.Is(err, model.ErrNoActiveTest):
		return c.Send("ℹ️ Активного теста нет.")
	case errors.Is(err, model.ErrActiveTestMismatch):
		return c.Send("❌ Этот тест сейчас не активен.")
	case err != nil:
		return err
	}

	h.logger.Info("test unpublished", zap.String("test_id", testID), zap.Int64("user_id", c.Sender().ID))
	return c.Send(fmt.Sprintf("⏹ Тест %s снят с публикации.", testID))
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *UnpublishHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
