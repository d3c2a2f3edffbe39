package authoring_handler

import (
	"context"
	"errors"

	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/reply"
	"github.com/IT-Nick/testbot/internal/domain/authoring"
	"github.com/IT-Nick/testbot/internal/domain/model"
	"gopkg.in/telebot.v4"
)

const noDraftText = "ℹ️ Сейчас нет открытого создания теста. Начать: /create_test"

// AuthoringHandler команды мастера создания теста. Сам ввод шагов идет через text_handler
type AuthoringHandler struct {
	wizard *authoring.Wizard
}

func NewAuthoringHandler(wizard *authoring.Wizard) *AuthoringHandler {
	return &AuthoringHandler{wizard: wizard}
}

// CreateTest /create_test
func (h *AuthoringHandler) CreateTest(c telebot.Context) error {
	return c.Send(h.wizard.Begin(c.Sender().ID))
}

// AddQuestions /add_questions <test_id>
func (h *AuthoringHandler) AddQuestions(c telebot.Context) error {
	testID := reply.Payload(c)
	if testID == "" {
		return c.Send("Использование: /add_questions <id теста>")
	}
	text, err := h.wizard.Resume(context.Background(), c.Sender().ID, testID)
	if errors.Is(err, model.ErrTestNotFound) {
		return c.Send("❌ Тест не найден. Список: /tests_list")
	}
	if err != nil {
		return err
	}
	return c.Send(text)
}

// Skip /skip для названия и уровня
func (h *AuthoringHandler) Skip(c telebot.Context) error {
	return h.step(c, h.wizard.Skip)
}

// EndTest /end_test завершает ввод вопросов досрочно
func (h *AuthoringHandler) EndTest(c telebot.Context) error {
	return h.step(c, h.wizard.End)
}

// Abort /abort отбрасывает черновик
func (h *AuthoringHandler) Abort(c telebot.Context) error {
	if !h.wizard.Abort(c.Sender().ID) {
		return c.Send(noDraftText)
	}
	return c.Send("🗑 Создание теста отменено. Уже сохраненные данные остались.")
}

func (h *AuthoringHandler) step(c telebot.Context, action func(ctx context.Context, adminID int64) (string, error)) error {
	adminID := c.Sender().ID
	if !h.wizard.Active(adminID) {
		return c.Send(noDraftText)
	}
	text, err := action(context.Background(), adminID)
	if err != nil {
		return err
	}
	return c.Send(text)
}
