package publish_handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/reply"
	"github.com/IT-Nick/testbot/internal/app/testflow"
	"github.com/IT-Nick/testbot/internal/domain/model"
	testsService "github.com/IT-Nick/testbot/internal/domain/tests/service"
	"go.uber.org/zap"
	"gopkg.in/telebot.v4"
)

// PublishHandler /publish <номер|test_id>
type PublishHandler struct {
	testService *testsService.TestService
	logger      *zap.Logger
}

func NewPublishHandler(testService *testsService.TestService, logger *zap.Logger) *PublishHandler {
	return &PublishHandler{testService: testService, logger: logger}
}

func (h *PublishHandler) Handle(c telebot.Context) error {
	ref := reply.Payload(c)
	if ref == "" {
		return c.Send("Использование: /publish <номер из /tests_list или id теста>")
	}

	active, err := h.testService.PublishByRef(context.Background(), ref)
	switch {
	case errors.Is(err, model.ErrTestNotFound):
		return c.Send(fmt.Sprintf("❌ Тест %q не найден. Список: /tests_list", ref))
	case errors.Is(err, model.ErrActiveTestExists):
		return c.Send("❌ Уже есть активный тест. Сначала снимите его: /unpublish")
	case err != nil:
		return err
	}

	h.logger.Info("test published", zap.String("test_id", active.TestID), zap.Int64("user_id", c.Sender().ID))
	card, _ := testflow.ActiveTestCard(*active)
	return c.Send("✅ Тест опубликован, результаты закрыты.\n\n"+card, telebot.ModeHTML)
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *PublishHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
