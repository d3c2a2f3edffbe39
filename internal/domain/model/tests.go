package model

import "time"

// TestDefinition описание теста, созданное администратором
type TestDefinition struct {
	ID               string    `json:"test_id"`
	Name             string    `json:"name"`
	Level            string    `json:"level"`
	QuestionCount    int       `json:"question_count"`
	TimeLimitMinutes int       `json:"time_limit_minutes"`
	CreatedAt        time.Time `json:"created_at"`
}

// ActiveTest единственный опубликованный тест
type ActiveTest struct {
	TestID           string    `json:"test_id"`
	Name             string    `json:"name"`
	Level            string    `json:"level"`
	QuestionCount    int       `json:"question_count"`
	TimeLimitMinutes int       `json:"time_limit_minutes"`
	PublishedAt      time.Time `json:"published_at"`
}

// TimeLimit возвращает лимит времени без льготного окна
func (a ActiveTest) TimeLimit() time.Duration {
	return time.Duration(a.TimeLimitMinutes) * time.Minute
}

// NewActiveTest копирует поля описания в активный тест
func NewActiveTest(def TestDefinition, publishedAt time.Time) ActiveTest {
	return ActiveTest{
		TestID:           def.ID,
		Name:             def.Name,
		Level:            def.Level,
		QuestionCount:    def.QuestionCount,
		TimeLimitMinutes: def.TimeLimitMinutes,
		PublishedAt:      publishedAt,
	}
}

// ProgramState глобальный флаг открытия результатов
type ProgramState struct {
	ResultsOpen bool      `json:"results_open"`
	UpdatedAt   time.Time `json:"updated_at"`
}
