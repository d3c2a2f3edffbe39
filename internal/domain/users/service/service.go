package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/IT-Nick/testbot/internal/domain/model"
)

const (
	minFullNameLen = 3
	maxFullNameLen = 64
)

// ErrInvalidFullName имя не проходит проверку длины
var ErrInvalidFullName = fmt.Errorf("full name must be %d to %d characters", minFullNameLen, maxFullNameLen)

// Repository хранилище пользователей
type Repository interface {
	UpsertUser(ctx context.Context, telegramID int64, username string) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	SetFullName(ctx context.Context, telegramID int64, fullName string) error
}

// UserService содержит логику бизнес-операций для пользователей
type UserService struct {
	userRepo Repository
}

// NewUserService создает новый экземпляр UserService
func NewUserService(userRepo Repository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Touch регистрирует пользователя при первом обращении
func (s *UserService) Touch(ctx context.Context, telegramID int64, username string) error {
	if err := s.userRepo.UpsertUser(ctx, telegramID, username); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}
	return nil
}

// GetUserByTelegramID возвращает пользователя или nil
func (s *UserService) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.userRepo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// SetFullName проверяет и сохраняет имя участника
func (s *UserService) SetFullName(ctx context.Context, telegramID int64, fullName string) (string, error) {
	name := strings.Join(strings.Fields(fullName), " ")
	if n := utf8.RuneCountInString(name); n < minFullNameLen || n > maxFullNameLen {
		return "", ErrInvalidFullName
	}
	if err := s.userRepo.SetFullName(ctx, telegramID, name); err != nil {
		return "", fmt.Errorf("failed to save full name: %w", err)
	}
	return name, nil
}
