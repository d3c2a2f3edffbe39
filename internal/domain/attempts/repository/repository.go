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

const uniqueViolation = "23505"

const scoreColumns = `token, test_id, user_id, total_questions, correct_answers, score, max_score, finished_at, time_left, auto_finished`

// AttemptRepository попытки, ответы и итоги в PostgreSQL
type AttemptRepository struct {
	db *pgxpool.Pool
}

// NewAttemptRepository создает новый экземпляр AttemptRepository
func NewAttemptRepository(db *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{db: db}
}

// CreateAttempt сохраняет попытку. Возвращает false, если у пользователя уже есть попытка на этот тест.
// Занятый токен дает model.ErrDuplicateToken
func (r *AttemptRepository) CreateAttempt(ctx context.Context, a model.Attempt) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO test_attempts (token, test_id, user_id, chat_id, started_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, test_id) DO NOTHING
	`, a.Token, a.TestID, a.UserID, a.ChatID, a.StartedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return false, model.ErrDuplicateToken
		}
		return false, fmt.Errorf("failed to create attempt: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetAttemptByToken ищет попытку по токену
func (r *AttemptRepository) GetAttemptByToken(ctx context.Context, token string) (*model.Attempt, error) {
	return r.getAttempt(ctx, "WHERE token = $1", token)
}

// GetAttemptByUser ищет попытку пользователя на тест
func (r *AttemptRepository) GetAttemptByUser(ctx context.Context, userID int64, testID string) (*model.Attempt, error) {
	return r.getAttempt(ctx, "WHERE user_id = $1 AND test_id = $2", userID, testID)
}

func (r *AttemptRepository) getAttempt(ctx context.Context, where string, args ...any) (*model.Attempt, error) {
	var a model.Attempt
	err := r.db.QueryRow(ctx, "SELECT token, test_id, user_id, chat_id, started_at FROM test_attempts "+where, args...).
		Scan(&a.Token, &a.TestID, &a.UserID, &a.ChatID, &a.StartedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return &a, nil
}

// ListOpenAttempts возвращает попытки теста без итога
func (r *AttemptRepository) ListOpenAttempts(ctx context.Context, testID string) ([]model.Attempt, error) {
	rows, err := r.db.Query(ctx, `
		SELECT a.token, a.test_id, a.user_id, a.chat_id, a.started_at
		FROM test_attempts a
		LEFT JOIN test_scores s ON s.token = a.token
		WHERE a.test_id = $1 AND s.token IS NULL
		ORDER BY a.started_at
	`, testID)
	if err != nil {
		return nil, fmt.Errorf("failed to query open attempts: %w", err)
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(&a.Token, &a.TestID, &a.UserID, &a.ChatID, &a.StartedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}

	return attempts, nil
}

// UpsertAnswer сохраняет ответ, повтор по (token, question_number) перезаписывает значение
func (r *AttemptRepository) UpsertAnswer(ctx context.Context, a model.Answer) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO test_answers (token, test_id, question_number, selected_option, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (token, question_number) DO UPDATE SET
			selected_option = EXCLUDED.selected_option,
			updated_at = EXCLUDED.updated_at
	`, a.Token, a.TestID, a.QuestionNumber, string(a.Selected), a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert answer: %w", err)
	}
	return nil
}

// GetAnswers возвращает ответы попытки
func (r *AttemptRepository) GetAnswers(ctx context.Context, token string) ([]model.Answer, error) {
	rows, err := r.db.Query(ctx, `
		SELECT token, test_id, question_number, selected_option, updated_at
		FROM test_answers
		WHERE token = $1
		ORDER BY question_number
	`, token)
	if err != nil {
		return nil, fmt.Errorf("failed to query answers: %w", err)
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var (
			a        model.Answer
			selected string
		)
		if err := rows.Scan(&a.Token, &a.TestID, &a.QuestionNumber, &selected, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		a.Selected = model.Option(selected)
		answers = append(answers, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}

	return answers, nil
}

// InsertScore сохраняет итог, если для токена его еще нет. Возвращает true только первому писателю
func (r *AttemptRepository) InsertScore(ctx context.Context, s model.Score) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO test_scores (`+scoreColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (token) DO NOTHING
	`, s.Token, s.TestID, s.UserID, s.TotalQuestions, s.CorrectAnswers, s.Score, s.MaxScore, s.FinishedAt, s.TimeLeft, s.AutoFinished)
	if err != nil {
		return false, fmt.Errorf("failed to insert score: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetScoreByToken возвращает итог попытки
func (r *AttemptRepository) GetScoreByToken(ctx context.Context, token string) (*model.Score, error) {
	return r.getScore(ctx, "WHERE token = $1", token)
}

// GetLatestScore возвращает последний итог пользователя по тесту
func (r *AttemptRepository) GetLatestScore(ctx context.Context, userID int64, testID string) (*model.Score, error) {
	return r.getScore(ctx, "WHERE user_id = $1 AND test_id = $2 ORDER BY finished_at DESC LIMIT 1", userID, testID)
}

func (r *AttemptRepository) getScore(ctx context.Context, where string, args ...any) (*model.Score, error) {
	s, err := scanScore(r.db.QueryRow(ctx, "SELECT "+scoreColumns+" FROM test_scores "+where, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get score: %w", err)
	}
	return s, nil
}

// ListScores возвращает все итоги теста
func (r *AttemptRepository) ListScores(ctx context.Context, testID string) ([]model.Score, error) {
	rows, err := r.db.Query(ctx, "SELECT "+scoreColumns+" FROM test_scores WHERE test_id = $1 ORDER BY finished_at", testID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	var scores []model.Score
	for rows.Next() {
		s, err := scanScore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		scores = append(scores, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate over rows: %w", err)
	}

	return scores, nil
}

// DeleteAttempt удаляет ответы, итог и саму попытку
func (r *AttemptRepository) DeleteAttempt(ctx context.Context, token string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, query := range []string{
		"DELETE FROM test_answers WHERE token = $1",
		"DELETE FROM test_scores WHERE token = $1",
		"DELETE FROM test_attempts WHERE token = $1",
	} {
		if _, err := tx.Exec(ctx, query, token); err != nil {
			return fmt.Errorf("failed to delete attempt data: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit attempt deletion: %w", err)
	}
	return nil
}

func scanScore(row pgx.Row) (*model.Score, error) {
	var s model.Score
	err := row.Scan(&s.Token, &s.TestID, &s.UserID, &s.TotalQuestions, &s.CorrectAnswers, &s.Score, &s.MaxScore, &s.FinishedAt, &s.TimeLeft, &s.AutoFinished)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
