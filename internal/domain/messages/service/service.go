package service

import (
	"context"
	"fmt"

	"github.com/IT-Nick/testbot/internal/domain/model"
)

var defaults = map[string]string{
	model.WelcomeMessageKey: "👋 Привет, <b>%s</b>!\n\n" +
		"Здесь проходят тестирование на время.\n" +
		"📝 /get_test - активный тест\n" +
		"📊 /result - ваш результат",
	model.NoActiveTestKey:     "❌ Сейчас нет активного теста.",
	model.AskFullNameKey:      "✍️ Введите ваше имя и фамилию (от 3 до 64 символов):",
	model.ResultsClosedKey:    "🔒 Подробный разбор пока недоступен. Он появится, когда администратор откроет результаты.",
	model.AttemptSubmittedKey: "✅ Ваши ответы приняты!",
	model.TimeIsUpKey:         "⏰ Время вышло! Ответы отправлены автоматически.",
}

// Repository источник редактируемых текстов
type Repository interface {
	GetMessageByKey(ctx context.Context, messageKey string) (string, error)
}

// MessageService содержит логику для работы с сообщениями
type MessageService struct {
	messageRepo Repository
}

// NewMessageService создает новый экземпляр MessageService
func NewMessageService(messageRepo Repository) *MessageService {
	return &MessageService{messageRepo: messageRepo}
}

// GetMessageByKey возвращает сообщение по ключу из базы данных, при отсутствии текст по умолчанию
func (s *MessageService) GetMessageByKey(ctx context.Context, messageKey string) (string, error) {
	message, err := s.messageRepo.GetMessageByKey(ctx, messageKey)
	if err != nil {
		return "", fmt.Errorf("failed to get message by key: %w", err)
	}
	if message == "" {
		message = defaults[messageKey]
	}
	return message, nil
}

// Text как GetMessageByKey, но при ошибке хранилища отдает текст по умолчанию
func (s *MessageService) Text(ctx context.Context, messageKey string) string {
	message, err := s.GetMessageByKey(ctx, messageKey)
	if err != nil {
		return defaults[messageKey]
	}
	return message
}
