package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/IT-Nick/testbot/internal/domain/model"
)

type answerKey struct {
	token  string
	number int
}

// MemoryAttemptRepository in-memory реализация для storage.type=memory и тестов
type MemoryAttemptRepository struct {
	mu       sync.RWMutex
	attempts map[string]model.Attempt
	answers  map[answerKey]model.Answer
	scores   map[string]model.Score
}

// NewMemoryAttemptRepository создает пустое хранилище
func NewMemoryAttemptRepository() *MemoryAttemptRepository {
	return &MemoryAttemptRepository{
		attempts: make(map[string]model.Attempt),
		answers:  make(map[answerKey]model.Answer),
		scores:   make(map[string]model.Score),
	}
}

func (m *MemoryAttemptRepository) CreateAttempt(_ context.Context, a model.Attempt) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attempts[a.Token]; ok {
		return false, model.ErrDuplicateToken
	}
	for _, existing := range m.attempts {
		if existing.UserID == a.UserID && existing.TestID == a.TestID {
			return false, nil
		}
	}
	m.attempts[a.Token] = a
	return true, nil
}

func (m *MemoryAttemptRepository) GetAttemptByToken(_ context.Context, token string) (*model.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[token]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (m *MemoryAttemptRepository) GetAttemptByUser(_ context.Context, userID int64, testID string) (*model.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.attempts {
		if a.UserID == userID && a.TestID == testID {
			return &a, nil
		}
	}
	return nil, nil
}

func (m *MemoryAttemptRepository) ListOpenAttempts(_ context.Context, testID string) ([]model.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var open []model.Attempt
	for token, a := range m.attempts {
		if _, scored := m.scores[token]; a.TestID == testID && !scored {
			open = append(open, a)
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].StartedAt.Before(open[j].StartedAt) })
	return open, nil
}

func (m *MemoryAttemptRepository) UpsertAnswer(_ context.Context, a model.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.answers[answerKey{token: a.Token, number: a.QuestionNumber}] = a
	return nil
}

func (m *MemoryAttemptRepository) GetAnswers(_ context.Context, token string) ([]model.Answer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var answers []model.Answer
	for key, a := range m.answers {
		if key.token == token {
			answers = append(answers, a)
		}
	}
	sort.Slice(answers, func(i, j int) bool { return answers[i].QuestionNumber < answers[j].QuestionNumber })
	return answers, nil
}

func (m *MemoryAttemptRepository) InsertScore(_ context.Context, s model.Score) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scores[s.Token]; ok {
		return false, nil
	}
	m.scores[s.Token] = s
	return true, nil
}

func (m *MemoryAttemptRepository) GetScoreByToken(_ context.Context, token string) (*model.Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scores[token]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *MemoryAttemptRepository) GetLatestScore(_ context.Context, userID int64, testID string) (*model.Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *model.Score
	for _, s := range m.scores {
		if s.UserID != userID || s.TestID != testID {
			continue
		}
		if latest == nil || s.FinishedAt.After(latest.FinishedAt) {
			s := s
			latest = &s
		}
	}
	return latest, nil
}

func (m *MemoryAttemptRepository) ListScores(_ context.Context, testID string) ([]model.Score, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var scores []model.Score
	for _, s := range m.scores {
		if s.TestID == testID {
			scores = append(scores, s)
		}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].FinishedAt.Before(scores[j].FinishedAt) })
	return scores, nil
}

func (m *MemoryAttemptRepository) DeleteAttempt(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.answers {
		if key.token == token {
			delete(m.answers, key)
		}
	}
	delete(m.scores, token)
	delete(m.attempts, token)
	return nil
}

// AnswerCount число строк ответов попытки
func (m *MemoryAttemptRepository) AnswerCount(token string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for key := range m.answers {
		if key.token == token {
			n++
		}
	}
	return n
}
