package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IT-Nick/testbot/internal/domain/model"
	"go.uber.org/zap"
)

const AttemptFinishedType = "attempt.finished"

// AttemptFinished событие о созданном итоге попытки
type AttemptFinished struct {
	Type           string    `json:"type"`
	Token          string    `json:"token"`
	TestID         string    `json:"test_id"`
	UserID         int64     `json:"user_id"`
	CorrectAnswers int       `json:"correct_answers"`
	TotalQuestions int       `json:"total_questions"`
	Score          int       `json:"score"`
	MaxScore       int       `json:"max_score"`
	AutoFinished   bool      `json:"auto_finished"`
	TimeLeft       int       `json:"time_left"`
	FinishedAt     time.Time `json:"finished_at"`
}

func NewAttemptFinished(s model.Score) AttemptFinished {
	return AttemptFinished{
		Type:           AttemptFinishedType,
		Token:          s.Token,
		TestID:         s.TestID,
		UserID:         s.UserID,
		CorrectAnswers: s.CorrectAnswers,
		TotalQuestions: s.TotalQuestions,
		Score:          s.Score,
		MaxScore:       s.MaxScore,
		AutoFinished:   s.AutoFinished,
		TimeLeft:       s.TimeLeft,
		FinishedAt:     s.FinishedAt,
	}
}

// Publisher отправляет события домена
type Publisher interface {
	PublishAttemptFinished(ctx context.Context, event AttemptFinished) error
}

// LogPublisher пишет события в лог, когда брокер не настроен
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishAttemptFinished(_ context.Context, event AttemptFinished) error {
	p.logger.Info("attempt finished",
		zap.String("token", event.Token),
		zap.String("test_id", event.TestID),
		zap.Int64("user_id", event.UserID),
		zap.Int("score", event.Score),
		zap.Bool("auto_finished", event.AutoFinished),
	)
	return nil
}

// QueueClient клиент брокера, например messaging.RabbitMQClient
type QueueClient interface {
	Publish(ctx context.Context, queueName string, body []byte) error
}

// QueuePublisher публикует события в очередь брокера
type QueuePublisher struct {
	client QueueClient
	queue  string
}

func NewQueuePublisher(client QueueClient, queue string) *QueuePublisher {
	return &QueuePublisher{client: client, queue: queue}
}

func (p *QueuePublisher) PublishAttemptFinished(ctx context.Context, event AttemptFinished) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, p.queue, body); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}
