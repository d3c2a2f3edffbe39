package reply

import (
	"errors"
	"strings"

	"github.com/IT-Nick/testbot/internal/app/testflow"
	"github.com/IT-Nick/testbot/internal/infra/telegram"
	"gopkg.in/telebot.v4"
)

const (
	GenericErrorText     = "⚠️ Что-то пошло не так. Попробуйте позже."
	InvalidSelectionText = "❗ Неверный выбор, попробуйте еще раз."
	NoSessionText        = "ℹ️ Тест не запущен. Начать: /get_test"

	// лимит Telegram 4096 символов, оставляем запас под разметку
	maxMessageLen = 3500
)

// HTML отправляет HTML-текст с inline-клавиатурой
func HTML(c telebot.Context, text string, kb telegram.Keyboard) error {
	opts := []interface{}{telebot.ModeHTML}
	if markup := telegram.Markup(kb); markup != nil {
		opts = append(opts, markup)
	}
	return c.Send(text, opts...)
}

// Long отправляет длинный HTML-текст несколькими сообщениями, разрезая по абзацам
func Long(c telebot.Context, text string) error {
	for _, chunk := range Split(text, maxMessageLen) {
		if err := c.Send(chunk, telebot.ModeHTML); err != nil {
			return err
		}
	}
	return nil
}

// Split делит текст на части не длиннее limit байт по границам абзацев.
// Абзац длиннее limit режется по строкам
func Split(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			chunks = append(chunks, b.String())
			b.Reset()
		}
	}
	add := func(part, sep string) {
		if b.Len() > 0 && b.Len()+len(sep)+len(part) > limit {
			flush()
		}
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(part)
	}

	for _, paragraph := range strings.Split(text, "\n\n") {
		if len(paragraph) <= limit {
			add(paragraph, "\n\n")
			continue
		}
		flush()
		for _, line := range strings.Split(paragraph, "\n") {
			add(line, "\n")
		}
		flush()
	}
	flush()
	return chunks
}

// Callback закрывает индикатор загрузки на кнопке; непустой text показывается всплывающим уведомлением
func Callback(c telebot.Context, text string) error {
	if c.Callback() == nil {
		if text == "" {
			return nil
		}
		return c.Send(text)
	}
	if text == "" {
		return c.Respond()
	}
	return c.Respond(&telebot.CallbackResponse{Text: text})
}

// Flow отвечает на кнопку прохождения теста по результату действия
func Flow(c telebot.Context, err error) error {
	switch {
	case err == nil:
		return Callback(c, "")
	case errors.Is(err, testflow.ErrInvalidSelection):
		return Callback(c, InvalidSelectionText)
	case errors.Is(err, testflow.ErrNoSession):
		return Callback(c, NoSessionText)
	}
	_ = Callback(c, "")
	return err
}

// Payload аргумент команды без пробелов по краям
func Payload(c telebot.Context) string {
	if msg := c.Message(); msg != nil {
		return strings.TrimSpace(msg.Payload)
	}
	return ""
}

// ChatID чат обновления, для личных сообщений совпадает с ID отправителя
func ChatID(c telebot.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	if sender := c.Sender(); sender != nil {
		return sender.ID
	}
	return 0
}
