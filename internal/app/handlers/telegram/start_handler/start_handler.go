package start_handler

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/get_test_handler"
	messageService "github.com/IT-Nick/testbot/internal/domain/messages/service"
	"github.com/IT-Nick/testbot/internal/domain/model"
	usersService "github.com/IT-Nick/testbot/internal/domain/users/service"
	"gopkg.in/telebot.v4"
)

// payload deep-link ссылки из QR-кода
const testPayload = "test"

// StartHandler структура для обработки команды /start
type StartHandler struct {
	userService    *usersService.UserService
	messageService *messageService.MessageService
	getTest        *get_test_handler.GetTestHandler
}

// NewStartHandler возвращает структуру обработчика
func NewStartHandler(
	userService *usersService.UserService,
	messageService *messageService.MessageService,
	getTest *get_test_handler.GetTestHandler,
) *StartHandler {
	return &StartHandler{
		userService:    userService,
		messageService: messageService,
		getTest:        getTest,
	}
}

// Handle регистрирует пользователя и отправляет приветствие.
// С payload "test" сразу показывает карточку активного теста
func (h *StartHandler) Handle(c telebot.Context) error {
	sender := c.Sender()
	ctx := context.Background()

	if err := h.userService.Touch(ctx, sender.ID, sender.Username); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}

	welcome := h.messageService.Text(ctx, model.WelcomeMessageKey)
	if strings.Contains(welcome, "%s") {
		welcome = fmt.Sprintf(welcome, html.EscapeString(firstName(sender)))
	}
	if err := c.Send(welcome, telebot.ModeHTML); err != nil {
		return err
	}

	if c.Message() != nil && strings.TrimSpace(c.Message().Payload) == testPayload {
		return h.getTest.Handle(c)
	}
	return nil
}

func firstName(u *telebot.User) string {
	if u.FirstName != "" {
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return "участник"
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *StartHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
