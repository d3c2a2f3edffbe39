package repository

import (
	"context"
	"sync"
	"time"

	"github.com/IT-Nick/testbot/internal/domain/model"
)

// MemoryUserRepository in-memory реализация
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[int64]model.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[int64]model.User)}
}

func (m *MemoryUserRepository) UpsertUser(_ context.Context, telegramID int64, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	u, ok := m.users[telegramID]
	if !ok {
		u = model.User{TelegramID: telegramID, CreatedAt: now}
	}
	u.Username = username
	u.UpdatedAt = now
	m.users[telegramID] = u
	return nil
}

func (m *MemoryUserRepository) GetUserByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[telegramID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *MemoryUserRepository) SetFullName(_ context.Context, telegramID int64, fullName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	u, ok := m.users[telegramID]
	if !ok {
		u = model.User{TelegramID: telegramID, CreatedAt: now}
	}
	u.FullName = fullName
	u.UpdatedAt = now
	m.users[telegramID] = u
	return nil
}
