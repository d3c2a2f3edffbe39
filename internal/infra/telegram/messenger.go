package telegram

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/telebot.v4"
)

// Button inline-кнопка: Unique связывает с обработчиком, Data передается в callback
type Button struct {
	Text   string
	Unique string
	Data   string
}

// Keyboard строки inline-кнопок
type Keyboard [][]Button

// Markup переводит клавиатуру в разметку telebot
func Markup(kb Keyboard) *telebot.ReplyMarkup {
	if len(kb) == 0 {
		return nil
	}
	markup := &telebot.ReplyMarkup{}
	rows := make([][]telebot.InlineButton, 0, len(kb))
	for _, row := range kb {
		buttons := make([]telebot.InlineButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, telebot.InlineButton{Unique: b.Unique, Text: b.Text, Data: b.Data})
		}
		rows = append(rows, buttons)
	}
	markup.InlineKeyboard = rows
	return markup
}

// Messenger отправка и редактирование сообщений по chat ID
type Messenger struct {
	bot *telebot.Bot
}

func NewMessenger(bot *telebot.Bot) *Messenger {
	return &Messenger{bot: bot}
}

func options(kb Keyboard) []interface{} {
	opts := []interface{}{telebot.ModeHTML}
	if markup := Markup(kb); markup != nil {
		opts = append(opts, markup)
	}
	return opts
}

func message(chatID int64, messageID int) *telebot.Message {
	return &telebot.Message{ID: messageID, Chat: &telebot.Chat{ID: chatID}}
}

// Send отправляет HTML-сообщение и возвращает его ID
func (m *Messenger) Send(chatID int64, text string, kb Keyboard) (int, error) {
	msg, err := m.bot.Send(telebot.ChatID(chatID), text, options(kb)...)
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return msg.ID, nil
}

// Edit меняет текст и клавиатуру; неизмененное сообщение не считается ошибкой
func (m *Messenger) Edit(chatID int64, messageID int, text string, kb Keyboard) error {
	opts := options(kb)
	if len(kb) == 0 {
		opts = append(opts, &telebot.ReplyMarkup{})
	}
	_, err := m.bot.Edit(message(chatID, messageID), text, opts...)
	if err != nil && !IsNotModified(err) {
		return fmt.Errorf("failed to edit message: %w", err)
	}
	return nil
}

// Delete удаляет сообщение
func (m *Messenger) Delete(chatID int64, messageID int) error {
	if err := m.bot.Delete(message(chatID, messageID)); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// SendPhoto отправляет PNG с подписью
func (m *Messenger) SendPhoto(chatID int64, png []byte, caption string) error {
	photo := &telebot.Photo{File: telebot.FromReader(bytes.NewReader(png)), Caption: caption}
	if _, err := m.bot.Send(telebot.ChatID(chatID), photo, telebot.ModeHTML); err != nil {
		return fmt.Errorf("failed to send photo: %w", err)
	}
	return nil
}

// SendDocument отправляет файл
func (m *Messenger) SendDocument(chatID int64, data []byte, fileName, caption string) error {
	doc := &telebot.Document{File: telebot.FromReader(bytes.NewReader(data)), FileName: fileName, Caption: caption}
	if _, err := m.bot.Send(telebot.ChatID(chatID), doc, telebot.ModeHTML); err != nil {
		return fmt.Errorf("failed to send document: %w", err)
	}
	return nil
}

// IsNotModified ошибка Telegram о том, что текст не изменился
func IsNotModified(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, telebot.ErrMessageNotModified) ||
		strings.Contains(err.Error(), "message is not modified")
}
