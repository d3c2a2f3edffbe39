package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/IT-Nick/testbot/internal/domain/model"
	"github.com/google/uuid"
)

// Repository хранилище описаний, вопросов, активного теста и флага результатов
type Repository interface {
	CreateDefinition(ctx context.Context, def model.TestDefinition) error
	GetDefinition(ctx context.Context, testID string) (*model.TestDefinition, error)
	ListDefinitions(ctx context.Context) ([]model.TestDefinition, error)
	SaveQuestion(ctx context.Context, q model.Question) error
	GetQuestions(ctx context.Context, testID string) ([]model.Question, error)
	CountQuestions(ctx context.Context, testID string) (int, error)
	GetActiveTest(ctx context.Context) (*model.ActiveTest, error)
	PublishActiveTest(ctx context.Context, active model.ActiveTest) error
	UnpublishActiveTest(ctx context.Context, testID string) error
	GetProgramState(ctx context.Context) (*model.ProgramState, error)
	SetResultsOpen(ctx context.Context, open bool) error
}

// DefinitionInfo описание теста с числом сохраненных вопросов
type DefinitionInfo struct {
	model.TestDefinition
	StoredQuestions int
	Active          bool
}

// TestService для работы с тестами
type TestService struct {
	testRepo Repository
	now      func() time.Time
}

// NewTestService создает новый экземпляр TestService
func NewTestService(testRepo Repository) *TestService {
	return &TestService{testRepo: testRepo, now: time.Now}
}

// NewTestID генерирует идентификатор описания теста
func NewTestID() string {
	return "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}

// CreateDefinition сохраняет новое описание теста
func (s *TestService) CreateDefinition(ctx context.Context, def model.TestDefinition) (*model.TestDefinition, error) {
	if def.QuestionCount <= 0 || def.TimeLimitMinutes <= 0 {
		return nil, fmt.Errorf("%w: question count and time limit must be positive", model.ErrInvalidQuestion)
	}
	if def.ID == "" {
		def.ID = NewTestID()
	}
	if def.CreatedAt.IsZero() {
		def.CreatedAt = s.now()
	}
	if err := s.testRepo.CreateDefinition(ctx, def); err != nil {
		return nil, fmt.Errorf("failed to create definition: %w", err)
	}
	return &def, nil
}

// GetDefinition возвращает описание или model.ErrTestNotFound
func (s *TestService) GetDefinition(ctx context.Context, testID string) (*model.TestDefinition, error) {
	def, err := s.testRepo.GetDefinition(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to get definition: %w", err)
	}
	if def == nil {
		return nil, model.ErrTestNotFound
	}
	return def, nil
}

// ListDefinitions возвращает описания с числом вопросов и отметкой активного
func (s *TestService) ListDefinitions(ctx context.Context) ([]DefinitionInfo, error) {
	defs, err := s.testRepo.ListDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}
	active, err := s.testRepo.GetActiveTest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active test: %w", err)
	}

	infos := make([]DefinitionInfo, 0, len(defs))
	for _, def := range defs {
		count, err := s.testRepo.CountQuestions(ctx, def.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count questions: %w", err)
		}
		infos = append(infos, DefinitionInfo{
			TestDefinition:  def,
			StoredQuestions: count,
			Active:          active != nil && active.TestID == def.ID,
		})
	}
	return infos, nil
}

// AddQuestion проверяет и сохраняет вопрос описания
func (s *TestService) AddQuestion(ctx context.Context, q model.Question) error {
	def, err := s.GetDefinition(ctx, q.TestID)
	if err != nil {
		return err
	}
	if q.Number < 1 || q.Number > def.QuestionCount {
		return fmt.Errorf("%w: number %d out of 1..%d", model.ErrInvalidQuestion, q.Number, def.QuestionCount)
	}
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: empty text", model.ErrInvalidQuestion)
	}
	for _, o := range model.Options {
		if strings.TrimSpace(q.OptionText(o)) == "" {
			return fmt.Errorf("%w: empty option %s", model.ErrInvalidQuestion, o)
		}
	}
	if _, ok := model.ParseOption(string(q.Correct)); !ok {
		return fmt.Errorf("%w: correct option %q", model.ErrInvalidQuestion, q.Correct)
	}
	if err := s.testRepo.SaveQuestion(ctx, q); err != nil {
		return fmt.Errorf("failed to add question: %w", err)
	}
	return nil
}

// NextQuestionNumber номер следующего вопроса для дозаполнения описания
func (s *TestService) NextQuestionNumber(ctx context.Context, testID string) (int, error) {
	questions, err := s.testRepo.GetQuestions(ctx, testID)
	if err != nil {
		return 0, fmt.Errorf("failed to get questions: %w", err)
	}
	next := 1
	for _, q := range questions {
		if q.Number == next {
			next++
		}
	}
	return next, nil
}

// GetQuestions возвращает вопросы теста по порядку
func (s *TestService) GetQuestions(ctx context.Context, testID string) ([]model.Question, error) {
	questions, err := s.testRepo.GetQuestions(ctx, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	return questions, nil
}

// GetActiveTest возвращает активный тест или model.ErrNoActiveTest
func (s *TestService) GetActiveTest(ctx context.Context) (*model.ActiveTest, error) {
	active, err := s.testRepo.GetActiveTest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active test: %w", err)
	}
	if active == nil {
		return nil, model.ErrNoActiveTest
	}
	return active, nil
}

// Publish делает описание активным тестом и закрывает результаты
func (s *TestService) Publish(ctx context.Context, testID string) (*model.ActiveTest, error) {
	def, err := s.GetDefinition(ctx, testID)
	if err != nil {
		return nil, err
	}
	active := model.NewActiveTest(*def, s.now())
	if err := s.testRepo.PublishActiveTest(ctx, active); err != nil {
		return nil, fmt.Errorf("failed to publish %s: %w", testID, err)
	}
	return &active, nil
}

// PublishByRef публикует тест по номеру из списка (с 1) или по ID
func (s *TestService) PublishByRef(ctx context.Context, ref string) (*model.ActiveTest, error) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		defs, err := s.testRepo.ListDefinitions(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list definitions: %w", err)
		}
		if n < 1 || n > len(defs) {
			return nil, model.ErrTestNotFound
		}
		ref = defs[n-1].ID
	}
	return s.Publish(ctx, ref)
}

// Unpublish снимает активный тест; пустой testID означает текущий активный
func (s *TestService) Unpublish(ctx context.Context, testID string) (string, error) {
	if testID == "" {
		active, err := s.GetActiveTest(ctx)
		if err != nil {
			return "", err
		}
		testID = active.TestID
	}
	if err := s.testRepo.UnpublishActiveTest(ctx, testID); err != nil {
		return "", fmt.Errorf("failed to unpublish %s: %w", testID, err)
	}
	return testID, nil
}

// GetProgramState возвращает флаг результатов
func (s *TestService) GetProgramState(ctx context.Context) (*model.ProgramState, error) {
	state, err := s.testRepo.GetProgramState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get program state: %w", err)
	}
	return state, nil
}

// SetResultsOpen открывает или закрывает подробные результаты
func (s *TestService) SetResultsOpen(ctx context.Context, open bool) error {
	if err := s.testRepo.SetResultsOpen(ctx, open); err != nil {
		return fmt.Errorf("failed to set results state: %w", err)
	}
	return nil
}
