package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/IT-Nick/testbot/internal/domain/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TestRepository репозиторий для работы с тестами
type TestRepository struct {
	db *pgxpool.Pool
}

// NewTestRepository создает новый экземпляр TestRepository
func NewTestRepository(db *pgxpool.Pool) *TestRepository {
	return &TestRepository{db: db}
}

// CreateDefinition сохраняет описание теста
func (r *TestRepository) CreateDefinition(ctx context.Context, def model.TestDefinition) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO test_definitions (test_id, name, level, question_count, time_limit_minutes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, def.ID, def.Name, def.Level, def.QuestionCount, def.TimeLimitMinutes, def.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create test definition: %w", err)
	}
	return nil
}

// GetDefinition получает описание теста по ID
func (r *TestRepository) GetDefinition(ctx context.Context, testID string) (*model.TestDefinition, error) {
	var def model.TestDefinition
	err := r.db.QueryRow(ctx, `
		SELECT test_id, name, level, question_count, time_limit_minutes, created_at
		FROM test_definitions
		WHERE test_id = $1
	`, testID).Scan(&def.ID, &def.Name, &def.Level, &def.QuestionCount, &def.TimeLimitMinutes, &def.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get test definition: %w", err)
	}
	return &def, nil
}

// ListDefinitions возвращает все описания в порядке создания
func (r *TestRepository) ListDefinitions(ctx context.Context) ([]model.TestDefinition, error) {
	rows, err := r.db.Query(ctx, `
		SELECT test_id, name, level, question_count, time_limit_minutes, created_at
		FROM test_definitions
		ORDER BY created_at, test_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query test definitions: %w", err)
	}
	defer rows.Close()

	var defs []model.TestDefinition
	for rows.Next() {
		var def model.TestDefinition
		if err := rows.Scan(&def.ID, &def.Name, &def.Level, &def.QuestionCount, &def.TimeLimitMinutes, &def.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan test definition: %w", err)
		}
		defs = append(defs, def)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}

	return defs, nil
}

// SaveQuestion сохраняет вопрос, повторное сохранение номера перезаписывает его
func (r *TestRepository) SaveQuestion(ctx context.Context, q model.Question) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO test_questions (test_id, question_number, question_text, option_a, option_b, option_c, option_d, correct_option)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (test_id, question_number) DO UPDATE SET
			question_text = EXCLUDED.question_text,
			option_a = EXCLUDED.option_a,
			option_b = EXCLUDED.option_b,
			option_c = EXCLUDED.option_c,
			option_d = EXCLUDED.option_d,
			correct_option = EXCLUDED.correct_option
	`, q.TestID, q.Number, q.Text, q.OptionA, q.OptionB, q.OptionC, q.OptionD, string(q.Correct))
	if err != nil {
		return fmt.Errorf("failed to save question: %w", err)
	}
	return nil
}

// GetQuestions возвращает вопросы теста по порядку номеров
func (r *TestRepository) GetQuestions(ctx context.Context, testID string) ([]model.Question, error) {
	rows, err := r.db.Query(ctx, `
		SELECT test_id, question_number, question_text, option_a, option_b, option_c, option_d, correct_option
		FROM test_questions
		WHERE test_id = $1
		ORDER BY question_number
	`, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to query questions: %w", err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var (
			q       model.Question
			correct string
		)
		if err := rows.Scan(&q.TestID, &q.Number, &q.Text, &q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD, &correct); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q.Correct = model.Option(correct)
		questions = append(questions, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}

	return questions, nil
}

// CountQuestions возвращает число сохраненных вопросов теста
func (r *TestRepository) CountQuestions(ctx context.Context, testID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM test_questions WHERE test_id = $1", testID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return count, nil
}

// GetActiveTest возвращает активный тест или nil
func (r *TestRepository) GetActiveTest(ctx context.Context) (*model.ActiveTest, error) {
	var active model.ActiveTest
	err := r.db.QueryRow(ctx, `
		SELECT test_id, name, level, question_count, time_limit_minutes, published_at
		FROM active_test
		WHERE singleton
	`).Scan(&active.TestID, &active.Name, &active.Level, &active.QuestionCount, &active.TimeLimitMinutes, &active.PublishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active test: %w", err)
	}
	return &active, nil
}

// PublishActiveTest создает активный тест и закрывает результаты.
// Если активный тест уже есть, строка не меняется и возвращается model.ErrActiveTestExists
func (r *TestRepository) PublishActiveTest(ctx context.Context, active model.ActiveTest) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO active_test (singleton, test_id, name, level, question_count, time_limit_minutes, published_at)
		VALUES (TRUE, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (singleton) DO NOTHING
	`, active.TestID, active.Name, active.Level, active.QuestionCount, active.TimeLimitMinutes, active.PublishedAt)
	if err != nil {
		return fmt.Errorf("failed to insert active test: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrActiveTestExists
	}

	if err := setResultsOpen(ctx, tx, false); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit publish: %w", err)
	}
	return nil
}

// UnpublishActiveTest удаляет активный тест с указанным ID и закрывает результаты
func (r *TestRepository) UnpublishActiveTest(ctx context.Context, testID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var current string
	err = tx.QueryRow(ctx, "SELECT test_id FROM active_test WHERE singleton FOR UPDATE").Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrNoActiveTest
		}
		return fmt.Errorf("failed to lock active test: %w", err)
	}
	if current != testID {
		return model.ErrActiveTestMismatch
	}

	if _, err := tx.Exec(ctx, "DELETE FROM active_test WHERE singleton"); err != nil {
		return fmt.Errorf("failed to delete active test: %w", err)
	}

	if err := setResultsOpen(ctx, tx, false); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit unpublish: %w", err)
	}
	return nil
}

// GetProgramState возвращает флаг результатов, отсутствие строки означает закрытые результаты
func (r *TestRepository) GetProgramState(ctx context.Context) (*model.ProgramState, error) {
	var state model.ProgramState
	err := r.db.QueryRow(ctx, "SELECT results_open, updated_at FROM test_program_state WHERE singleton").
		Scan(&state.ResultsOpen, &state.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &model.ProgramState{}, nil
		}
		return nil, fmt.Errorf("failed to get program state: %w", err)
	}
	return &state, nil
}

// SetResultsOpen открывает или закрывает результаты
func (r *TestRepository) SetResultsOpen(ctx context.Context, open bool) error {
	return setResultsOpen(ctx, r.db, open)
}

type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func setResultsOpen(ctx context.Context, db execer, open bool) error {
	_, err := db.Exec(ctx, `
		INSERT INTO test_program_state (singleton, results_open, updated_at)
		VALUES (TRUE, $1, now())
		ON CONFLICT (singleton) DO UPDATE SET results_open = EXCLUDED.results_open, updated_at = EXCLUDED.updated_at
	`, open)
	if err != nil {
		return fmt.Errorf("failed to update program state: %w", err)
	}
	return nil
}
