package reopen_handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/reply"
	"github.com/IT-Nick/testbot/internal/domain/model"
	"go.uber.org/zap"
	"gopkg.in/telebot.v4"
)

type Attempts interface {
	Reopen(ctx context.Context, identifier string) (*model.Attempt, error)
}

// Abandoner снимает таймер и сессию переоткрытой попытки
type Abandoner interface {
	Abandon(ctx context.Context, attempt model.Attempt)
}

// ReopenHandler /reopen_test <user_id|токен>
type ReopenHandler struct {
	attempts Attempts
	runner   Abandoner
	logger   *zap.Logger
}

func NewReopenHandler(attempts Attempts, runner Abandoner, logger *zap.Logger) *ReopenHandler {
	return &ReopenHandler{attempts: attempts, runner: runner, logger: logger}
}

func (h *ReopenHandler) Handle(c telebot.Context) error {
	ctx := context.Background()
	identifier := reply.Payload(c)
	if identifier == "" {
		return c.Send("Использование: /reopen_test <user_id или токен>")
	}

	attempt, err := h.attempts.Reopen(ctx, identifier)
	switch {
	case errors.Is(err, model.ErrNoActiveTest):
		return c.Send("ℹ️ Активного теста нет.")
	case errors.Is(err, model.ErrAttemptNotFound):
		return c.Send(fmt.Sprintf("❌ Попытка %q в активном тесте не найдена.", identifier))
	case err != nil:
		return err
	}

	h.runner.Abandon(ctx, *attempt)
	h.logger.Info("attempt reopened",
		zap.String("token", attempt.Token),
		zap.Int64("user_id", attempt.UserID),
		zap.Int64("admin_id", c.Sender().ID),
	)
	return c.Send(fmt.Sprintf("🔄 Попытка %s пользователя %d удалена, тест можно пройти заново.", attempt.Token, attempt.UserID))
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *ReopenHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
