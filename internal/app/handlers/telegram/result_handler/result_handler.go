package result_handler

import (
	"context"
	"errors"

	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/reply"
	"github.com/IT-Nick/testbot/internal/app/testflow"
	"github.com/IT-Nick/testbot/internal/domain/model"
	"gopkg.in/telebot.v4"
)

const (
	notFoundText  = "📭 Результат не найден. Завершите тест или проверьте токен."
	forbiddenText = "⛔ Можно посмотреть только свой результат."
)

type Results interface {
	GetResult(ctx context.Context, identifier string, requesterID int64, isAdmin bool) (*model.Result, error)
}

type Texts interface {
	Text(ctx context.Context, key string) string
}

// ResultHandler /result [токен|user_id]
type ResultHandler struct {
	results Results
	texts   Texts
	isAdmin func(int64) bool
}

func NewResultHandler(results Results, texts Texts, isAdmin func(int64) bool) *ResultHandler {
	return &ResultHandler{
		results: results,
		texts:   texts,
		isAdmin: isAdmin,
	}
}

// Handle без аргумента показывает свой результат; чужие доступны администраторам
func (h *ResultHandler) Handle(c telebot.Context) error {
	ctx := context.Background()
	sender := c.Sender()

	result, err := h.results.GetResult(ctx, reply.Payload(c), sender.ID, h.isAdmin(sender.ID))
	switch {
	case errors.Is(err, model.ErrNoActiveTest):
		return c.Send(h.texts.Text(ctx, model.NoActiveTestKey), telebot.ModeHTML)
	case errors.Is(err, model.ErrNoResult):
		return c.Send(notFoundText)
	case errors.Is(err, model.ErrForbidden):
		return c.Send(forbiddenText)
	case err != nil:
		return err
	}

	return reply.Long(c, testflow.ResultText(result, h.texts.Text(ctx, model.ResultsClosedKey)))
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *ResultHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
