package dto

import "github.com/IT-Nick/testbot/internal/domain/model"

// ActiveTestResponse ответ с описанием активного теста
type ActiveTestResponse struct {
	TestID           string `json:"test_id"`
	Name             string `json:"name"`
	Level            string `json:"level"`
	QuestionCount    int    `json:"question_count"`
	TimeLimitMinutes int    `json:"time_limit_minutes"`
	PublishedAt      string `json:"published_at"`
	ResultsOpen      bool   `json:"results_open"`
}

// TopResultsResponse сводка и рейтинг по активному тесту
type TopResultsResponse struct {
	TestID                  string           `json:"test_id"`
	TestName                string           `json:"test_name"`
	Participants            int              `json:"participants"`
	AverageScore            float64          `json:"average_score"`
	AverageTimeSpentSeconds int              `json:"average_time_spent_seconds"`
	Top                     []RankedScoreRow `json:"top"`
}

type RankedScoreRow struct {
	Place          int    `json:"place"`
	UserID         int64  `json:"user_id"`
	FullName       string `json:"full_name"`
	Username       string `json:"username"`
	Token          string `json:"token"`
	Score          int    `json:"score"`
	MaxScore       int    `json:"max_score"`
	CorrectAnswers int    `json:"correct_answers"`
	TotalQuestions int    `json:"total_questions"`
	TimeLeft       int    `json:"time_left"`
	FinishedAt     string `json:"finished_at"`
}

// NewTopResultsResponse собирает ответ из сводки
func NewTopResultsResponse(summary *model.ResultsSummary) TopResultsResponse {
	resp := TopResultsResponse{
		TestID:                  summary.Test.TestID,
		TestName:                summary.Test.Name,
		Participants:            summary.Participants,
		AverageScore:            summary.AverageScore,
		AverageTimeSpentSeconds: int(summary.AverageTimeSpent.Seconds()),
		Top:                     make([]RankedScoreRow, 0, len(summary.Top)),
	}
	for i, r := range summary.Top {
		resp.Top = append(resp.Top, RankedScoreRow{
			Place:          i + 1,
			UserID:         r.UserID,
			FullName:       r.FullName,
			Username:       r.Username,
			Token:          r.Token,
			Score:          r.Score.Score,
			MaxScore:       r.MaxScore,
			CorrectAnswers: r.CorrectAnswers,
			TotalQuestions: r.TotalQuestions,
			TimeLeft:       r.TimeLeft,
			FinishedAt:     r.FinishedAt.Format(timeLayout),
		})
	}
	return resp
}
