package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/IT-Nick/testbot/internal/domain/model"
)

// MemoryTestRepository in-memory реализация для storage.type=memory и тестов
type MemoryTestRepository struct {
	mu        sync.RWMutex
	defs      map[string]model.TestDefinition
	questions map[string]map[int]model.Question
	active    *model.ActiveTest
	state     model.ProgramState
}

// NewMemoryTestRepository создает пустое хранилище
func NewMemoryTestRepository() *MemoryTestRepository {
	return &MemoryTestRepository{
		defs:      make(map[string]model.TestDefinition),
		questions: make(map[string]map[int]model.Question),
	}
}

func (m *MemoryTestRepository) CreateDefinition(_ context.Context, def model.TestDefinition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defs[def.ID] = def
	return nil
}

func (m *MemoryTestRepository) GetDefinition(_ context.Context, testID string) (*model.TestDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.defs[testID]
	if !ok {
		return nil, nil
	}
	return &def, nil
}

func (m *MemoryTestRepository) ListDefinitions(_ context.Context) ([]model.TestDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	defs := make([]model.TestDefinition, 0, len(m.defs))
	for _, def := range m.defs {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool {
		if !defs[i].CreatedAt.Equal(defs[j].CreatedAt) {
			return defs[i].CreatedAt.Before(defs[j].CreatedAt)
		}
		return defs[i].ID < defs[j].ID
	})
	return defs, nil
}

func (m *MemoryTestRepository) SaveQuestion(_ context.Context, q model.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byNumber, ok := m.questions[q.TestID]
	if !ok {
		byNumber = make(map[int]model.Question)
		m.questions[q.TestID] = byNumber
	}
	byNumber[q.Number] = q
	return nil
}

func (m *MemoryTestRepository) GetQuestions(_ context.Context, testID string) ([]model.Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	questions := make([]model.Question, 0, len(m.questions[testID]))
	for _, q := range m.questions[testID] {
		questions = append(questions, q)
	}
	sort.Slice(questions, func(i, j int) bool { return questions[i].Number < questions[j].Number })
	return questions, nil
}

func (m *MemoryTestRepository) CountQuestions(_ context.Context, testID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.questions[testID]), nil
}

func (m *MemoryTestRepository) GetActiveTest(_ context.Context) (*model.ActiveTest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return nil, nil
	}
	active := *m.active
	return &active, nil
}

func (m *MemoryTestRepository) PublishActiveTest(_ context.Context, active model.ActiveTest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active != nil {
		return model.ErrActiveTestExists
	}
	m.active = &active
	m.state = model.ProgramState{ResultsOpen: false, UpdatedAt: time.Now()}
	return nil
}

func (m *MemoryTestRepository) UnpublishActiveTest(_ context.Context, testID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return model.ErrNoActiveTest
	}
	if m.active.TestID != testID {
		return model.ErrActiveTestMismatch
	}
	m.active = nil
	m.state = model.ProgramState{ResultsOpen: false, UpdatedAt: time.Now()}
	return nil
}

func (m *MemoryTestRepository) GetProgramState(_ context.Context) (*model.ProgramState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state := m.state
	return &state, nil
}

func (m *MemoryTestRepository) SetResultsOpen(_ context.Context, open bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = model.ProgramState{ResultsOpen: open, UpdatedAt: time.Now()}
	return nil
}
