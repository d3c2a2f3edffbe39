package text_handler

import (
	"context"
	"strings"

	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/reply"
	"github.com/IT-Nick/testbot/internal/app/testflow"
	"github.com/IT-Nick/testbot/internal/domain/authoring"
	"gopkg.in/telebot.v4"
)

const (
	unknownCommandText = "🤷 Неизвестная команда."
	fallbackText       = "🤔 Не понял сообщение.\n📝 /get_test - активный тест\n📊 /result - ваш результат"
)

// TextHandler произвольный текст: шаги мастера создания теста, затем ввод имени участника
type TextHandler struct {
	wizard  *authoring.Wizard
	runner  *testflow.Runner
	isAdmin func(int64) bool
}

func NewTextHandler(wizard *authoring.Wizard, runner *testflow.Runner, isAdmin func(int64) bool) *TextHandler {
	return &TextHandler{
		wizard:  wizard,
		runner:  runner,
		isAdmin: isAdmin,
	}
}

func (h *TextHandler) Handle(c telebot.Context) error {
	ctx := context.Background()
	userID := c.Sender().ID
	text := strings.TrimSpace(c.Text())

	if strings.HasPrefix(text, "/") {
		return c.Send(unknownCommandText)
	}

	if h.isAdmin(userID) && h.wizard.Active(userID) {
		answer, err := h.wizard.Handle(ctx, userID, text)
		if err != nil {
			return err
		}
		return c.Send(answer)
	}

	handled, err := h.runner.CaptureName(ctx, userID, reply.ChatID(c), text)
	if err != nil || handled {
		return err
	}
	return c.Send(fallbackText)
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *TextHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
