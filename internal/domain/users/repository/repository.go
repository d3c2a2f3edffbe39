package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/IT-Nick/testbot/internal/domain/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository реализация интерфейса с использованием базы данных PostgreSQL
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository создает новый экземпляр UserRepository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// UpsertUser создает пользователя или обновляет его username
func (r *UserRepository) UpsertUser(ctx context.Context, telegramID int64, username string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (telegram_id, username, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (telegram_id) DO UPDATE SET username = EXCLUDED.username, updated_at = now()
	`, telegramID, username)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetUserByTelegramID получает пользователя по ID telegram
func (r *UserRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user model.User
	err := r.db.QueryRow(ctx, `
		SELECT telegram_id, username, full_name, created_at, updated_at
		FROM users
		WHERE telegram_id = $1
	`, telegramID).Scan(&user.TelegramID, &user.Username, &user.FullName, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Если пользователя нет, возвращаем nil
		}
		return nil, fmt.Errorf("failed to get user by telegram id: %w", err)
	}
	return &user, nil
}

// SetFullName сохраняет введенное участником имя
func (r *UserRepository) SetFullName(ctx context.Context, telegramID int64, fullName string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (telegram_id, full_name, created_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (telegram_id) DO UPDATE SET full_name = EXCLUDED.full_name, updated_at = now()
	`, telegramID, fullName)
	if err != nil {
		return fmt.Errorf("failed to set full name: %w", err)
	}
	return nil
}
