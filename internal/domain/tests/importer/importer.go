package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/IT-Nick/testbot/internal/domain/model"
)

// Task описывает один вопрос в файле: четыре варианта и индекс правильного (с 0)
type Task struct {
	Text    string   `json:"text"`
	Options []string `json:"options"`
	Answer  int      `json:"answer"`
}

// Bundle тест целиком, как он лежит в файле
type Bundle struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Level            string `json:"level"`
	TimeLimitMinutes int    `json:"time_limit_minutes"`
	Tasks            []Task `json:"tasks"`
}

// Catalog операции над тестами, нужные для импорта
type Catalog interface {
	GetDefinition(ctx context.Context, testID string) (*model.TestDefinition, error)
	CreateDefinition(ctx context.Context, def model.TestDefinition) (*model.TestDefinition, error)
	AddQuestion(ctx context.Context, q model.Question) error
}

// Load загружает тесты из JSON-файла и проверяет их
func Load(filename string) ([]Bundle, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var bundles []Bundle
	if err := json.Unmarshal(data, &bundles); err != nil {
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}
	for i, b := range bundles {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("test #%d: %w", i+1, err)
		}
	}
	return bundles, nil
}

func (b Bundle) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("%w: id is required", model.ErrInvalidQuestion)
	}
	if b.TimeLimitMinutes <= 0 {
		return fmt.Errorf("%w: time_limit_minutes must be positive", model.ErrInvalidQuestion)
	}
	if len(b.Tasks) == 0 {
		return fmt.Errorf("%w: no tasks", model.ErrInvalidQuestion)
	}
	for i, t := range b.Tasks {
		if len(t.Options) != len(model.Options) {
			return fmt.Errorf("%w: task %d has %d options", model.ErrInvalidQuestion, i+1, len(t.Options))
		}
		if t.Answer < 0 || t.Answer >= len(model.Options) {
			return fmt.Errorf("%w: task %d answer %d out of range", model.ErrInvalidQuestion, i+1, t.Answer)
		}
	}
	return nil
}

// Questions переводит задачи в вопросы теста с номерами с 1
func (b Bundle) Questions() []model.Question {
	questions := make([]model.Question, 0, len(b.Tasks))
	for i, t := range b.Tasks {
		questions = append(questions, model.Question{
			TestID:  b.ID,
			Number:  i + 1,
			Text:    t.Text,
			OptionA: t.Options[0],
			OptionB: t.Options[1],
			OptionC: t.Options[2],
			OptionD: t.Options[3],
			Correct: model.Options[t.Answer],
		})
	}
	return questions
}

// Import создает отсутствующие тесты; уже существующие ID пропускаются.
// Возвращает число созданных тестов
func Import(ctx context.Context, catalog Catalog, bundles []Bundle) (int, error) {
	created := 0
	for _, b := range bundles {
		_, err := catalog.GetDefinition(ctx, b.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, model.ErrTestNotFound) {
			return created, err
		}

		def := model.TestDefinition{
			ID:               b.ID,
			Name:             b.Name,
			Level:            b.Level,
			QuestionCount:    len(b.Tasks),
			TimeLimitMinutes: b.TimeLimitMinutes,
		}
		if _, err := catalog.CreateDefinition(ctx, def); err != nil {
			return created, fmt.Errorf("failed to create %s: %w", b.ID, err)
		}
		for _, q := range b.Questions() {
			if err := catalog.AddQuestion(ctx, q); err != nil {
				return created, fmt.Errorf("failed to add question %d to %s: %w", q.Number, b.ID, err)
			}
		}
		created++
	}
	return created, nil
}
