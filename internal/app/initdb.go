package app

import (
	"context"
	"fmt"

	"github.com/IT-Nick/testbot/internal/infra/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// schema создается при старте, повторный запуск ничего не меняет
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		telegram_id BIGINT PRIMARY KEY,
		username    TEXT NOT NULL DEFAULT '',
		full_name   TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		message_key  TEXT PRIMARY KEY,
		message_text TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS test_definitions (
		test_id            TEXT PRIMARY KEY,
		name               TEXT NOT NULL,
		level              TEXT NOT NULL DEFAULT '',
		question_count     INT  NOT NULL CHECK (question_count > 0),
		time_limit_minutes INT  NOT NULL CHECK (time_limit_minutes > 0),
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS test_questions (
		test_id         TEXT NOT NULL REFERENCES test_definitions (test_id) ON DELETE CASCADE,
		question_number INT  NOT NULL CHECK (question_number > 0),
		question_text   TEXT NOT NULL,
		option_a        TEXT NOT NULL,
		option_b        TEXT NOT NULL,
		option_c        TEXT NOT NULL,
		option_d        TEXT NOT NULL,
		correct_option  CHAR(1) NOT NULL CHECK (correct_option IN ('a', 'b', 'c', 'd')),
		PRIMARY KEY (test_id, question_number)
	)`,
	`CREATE TABLE IF NOT EXISTS active_test (
		singleton          BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
		test_id            TEXT NOT NULL,
		name               TEXT NOT NULL,
		level              TEXT NOT NULL DEFAULT '',
		question_count     INT  NOT NULL,
		time_limit_minutes INT  NOT NULL,
		published_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS test_program_state (
		singleton    BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
		results_open BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS test_attempts (
		token      TEXT PRIMARY KEY,
		test_id    TEXT   NOT NULL,
		user_id    BIGINT NOT NULL,
		chat_id    BIGINT NOT NULL,
		started_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, test_id)
	)`,
	`CREATE TABLE IF NOT EXISTS test_answers (
		token           TEXT NOT NULL,
		test_id         TEXT NOT NULL,
		question_number INT  NOT NULL,
		selected_option CHAR(1) NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (token, question_number)
	)`,
	`CREATE TABLE IF NOT EXISTS test_scores (
		token           TEXT PRIMARY KEY,
		test_id         TEXT   NOT NULL,
		user_id         BIGINT NOT NULL,
		total_questions INT    NOT NULL,
		correct_answers INT    NOT NULL,
		score           INT    NOT NULL,
		max_score       INT    NOT NULL,
		finished_at     TIMESTAMPTZ NOT NULL,
		time_left       INT    NOT NULL DEFAULT 0,
		auto_finished   BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS test_scores_test_id_idx ON test_scores (test_id)`,
	`CREATE INDEX IF NOT EXISTS test_scores_user_id_idx ON test_scores (user_id, test_id)`,
}

// InitDatabase устанавливает подключение к базе данных и создает схему
func InitDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	const op = "app.InitDatabase"

	connConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse database config: %w", op, err)
	}

	db, err := pgxpool.NewWithConfig(ctx, connConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create database pool: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: failed to apply schema: %w", op, err)
		}
	}

	logger.Info("database connected", zap.String("host", cfg.Host), zap.String("db", cfg.Name))
	return db, nil
}
