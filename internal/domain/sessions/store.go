package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/IT-Nick/testbot/internal/domain/model"
	"github.com/IT-Nick/testbot/internal/infra/cache"
)

// Store хранит сессии пользователей между сообщениями.
// Get возвращает nil, nil если сессии нет
type Store interface {
	Get(ctx context.Context, userID int64) (*model.Session, error)
	Set(ctx context.Context, session model.Session) error
	Delete(ctx context.Context, userID int64) error
}

// MemoryStore in-memory реализация
type MemoryStore struct {
	data map[int64]model.Session
	mu   sync.RWMutex
}

// NewMemoryStore создает новый MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[int64]model.Session)}
}

func (m *MemoryStore) Get(_ context.Context, userID int64) (*model.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.data[userID]
	if !ok {
		return nil, nil
	}
	session.Skipped = append([]int(nil), session.Skipped...)
	return &session, nil
}

func (m *MemoryStore) Set(_ context.Context, session model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session.Skipped = append([]int(nil), session.Skipped...)
	m.data[session.UserID] = session
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, userID)
	return nil
}

// JSONStore сохраняет сессии в JSON-файл, переживает перезапуск без Redis
type JSONStore struct {
	filename string
	mu       sync.Mutex
}

// NewJSONStore создает JSONStore, файл создается при первой записи
func NewJSONStore(filename string) *JSONStore {
	return &JSONStore{filename: filename}
}

func (j *JSONStore) load() (map[int64]model.Session, error) {
	data, err := os.ReadFile(j.filename)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[int64]model.Session), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", j.filename, err)
	}
	sessions := make(map[int64]model.Session)
	if len(data) == 0 {
		return sessions, nil
	}
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", j.filename, err)
	}
	return sessions, nil
}

func (j *JSONStore) save(sessions map[int64]model.Session) error {
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sessions: %w", err)
	}
	if err := os.WriteFile(j.filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", j.filename, err)
	}
	return nil
}

func (j *JSONStore) Get(_ context.Context, userID int64) (*model.Session, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	sessions, err := j.load()
	if err != nil {
		return nil, err
	}
	session, ok := sessions[userID]
	if !ok {
		return nil, nil
	}
	return &session, nil
}

func (j *JSONStore) Set(_ context.Context, session model.Session) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	sessions, err := j.load()
	if err != nil {
		return err
	}
	sessions[session.UserID] = session
	return j.save(sessions)
}

func (j *JSONStore) Delete(_ context.Context, userID int64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	sessions, err := j.load()
	if err != nil {
		return err
	}
	if _, ok := sessions[userID]; !ok {
		return nil
	}
	delete(sessions, userID)
	return j.save(sessions)
}

// KV минимальный клиент ключ-значение, например cache.RedisClient
type KV interface {
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
}

// RedisStore хранит сессии в Redis с TTL
type RedisStore struct {
	kv  KV
	ttl time.Duration
}

func NewRedisStore(kv KV, ttl time.Duration) *RedisStore {
	return &RedisStore{kv: kv, ttl: ttl}
}

func sessionKey(userID int64) string {
	return "session:" + strconv.FormatInt(userID, 10)
}

func (r *RedisStore) Get(ctx context.Context, userID int64) (*model.Session, error) {
	data, err := r.kv.Get(ctx, sessionKey(userID))
	if errors.Is(err, cache.ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %d: %w", userID, err)
	}
	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session %d: %w", userID, err)
	}
	return &session, nil
}

func (r *RedisStore) Set(ctx context.Context, session model.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session %d: %w", session.UserID, err)
	}
	if err := r.kv.Set(ctx, sessionKey(session.UserID), data, r.ttl); err != nil {
		return fmt.Errorf("failed to set session %d: %w", session.UserID, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, userID int64) error {
	if err := r.kv.Delete(ctx, sessionKey(userID)); err != nil {
		return fmt.Errorf("failed to delete session %d: %w", userID, err)
	}
	return nil
}
