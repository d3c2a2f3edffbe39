package tests_list_handler

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/IT-Nick/testbot/internal/app/handlers/telegram/reply"
	testsService "github.com/IT-Nick/testbot/internal/domain/tests/service"
	"gopkg.in/telebot.v4"
)

// TestsListHandler /tests_list: пронумерованный список тестов, номер используется в /publish
type TestsListHandler struct {
	testService *testsService.TestService
}

func NewTestsListHandler(testService *testsService.TestService) *TestsListHandler {
	return &TestsListHandler{testService: testService}
}

func (h *TestsListHandler) Handle(c telebot.Context) error {
	infos, err := h.testService.ListDefinitions(context.Background())
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return c.Send("📭 Тестов пока нет. Создать: /create_test")
	}
	return reply.Long(c, Format(infos))
}

// Format текст списка тестов
func Format(infos []testsService.DefinitionInfo) string {
	var b strings.Builder
	b.WriteString("📚 <b>Тесты</b>")
	for i, info := range infos {
		name := info.Name
		if name == "" {
			name = "без названия"
		}
		fmt.Fprintf(&b, "\n\n%d. <b>%s</b>", i+1, html.EscapeString(name))
		if info.Level != "" {
			fmt.Fprintf(&b, " (%s)", html.EscapeString(info.Level))
		}
		if info.Active {
			b.WriteString(" 🟢 активен")
		}
		fmt.Fprintf(&b, "\n<code>%s</code> · вопросов %d/%d · %d мин",
			info.ID, info.StoredQuestions, info.QuestionCount, info.TimeLimitMinutes)
	}
	b.WriteString("\n\nОпубликовать: /publish &lt;номер или id&gt;")
	return b.String()
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *TestsListHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
