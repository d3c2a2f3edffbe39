package model

import "time"

// Attempt попытка прохождения активного теста
type Attempt struct {
	Token     string    `json:"token"`
	TestID    string    `json:"test_id"`
	UserID    int64     `json:"user_id"`
	ChatID    int64     `json:"chat_id"`
	StartedAt time.Time `json:"started_at"`
}

// Remaining оставшееся время с учетом выделенного, не меньше нуля
func (a Attempt) Remaining(now time.Time, allotted time.Duration) time.Duration {
	left := allotted - now.Sub(a.StartedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Score итог завершенной попытки
type Score struct {
	Token          string    `json:"token"`
	TestID         string    `json:"test_id"`
	UserID         int64     `json:"user_id"`
	TotalQuestions int       `json:"total_questions"`
	CorrectAnswers int       `json:"correct_answers"`
	Score          int       `json:"score"`
	MaxScore       int       `json:"max_score"`
	FinishedAt     time.Time `json:"finished_at"`
	TimeLeft       int       `json:"time_left"`
	AutoFinished   bool      `json:"auto_finished"`
}

// ReviewItem разбор одного вопроса
type ReviewItem struct {
	Question Question `json:"question"`
	Selected Option   `json:"selected_option,omitempty"`
}

// IsCorrect выбран ли правильный вариант
func (r ReviewItem) IsCorrect() bool {
	return r.Selected != "" && r.Selected == r.Question.Correct
}

// Result результат для показа участнику или администратору
type Result struct {
	Score       Score        `json:"score"`
	ResultsOpen bool         `json:"results_open"`
	Review      []ReviewItem `json:"review,omitempty"`
}

// RankedScore строка рейтинга
type RankedScore struct {
	Score
	FullName string `json:"full_name"`
	Username string `json:"username"`
}

// ResultsSummary сводка по активному тесту
type ResultsSummary struct {
	Test             ActiveTest    `json:"test"`
	Participants     int           `json:"participants"`
	AverageScore     float64       `json:"average_score"`
	AverageTimeSpent time.Duration `json:"average_time_spent"`
	Top              []RankedScore `json:"top"`
}
