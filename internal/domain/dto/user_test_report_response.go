package dto

import (
	"time"

	"github.com/IT-Nick/testbot/internal/domain/model"
)

const timeLayout = time.RFC3339

// ResultResponse результат попытки для админского API
type ResultResponse struct {
	Token          string         `json:"token"`
	TestID         string         `json:"test_id"`
	UserID         int64          `json:"user_id"`
	CorrectAnswers int            `json:"correct_answers"`
	TotalQuestions int            `json:"total_questions"`
	Score          int            `json:"score"`
	MaxScore       int            `json:"max_score"`
	TimeLeft       int            `json:"time_left"`
	AutoFinished   bool           `json:"auto_finished"`
	FinishedAt     string         `json:"finished_at"`
	ResultsOpen    bool           `json:"results_open"`
	Questions      []QuestionInfo `json:"questions,omitempty"`
}

type QuestionInfo struct {
	QuestionNumber int               `json:"question_number"`
	QuestionText   string            `json:"question_text"`
	Options        map[string]string `json:"options"`
	CorrectOption  string            `json:"correct_option"`
	SelectedOption string            `json:"selected_option,omitempty"`
	IsCorrect      bool              `json:"is_correct"`
}

// NewResultResponse собирает ответ из результата; разбор только при открытых результатах
func NewResultResponse(res *model.Result) ResultResponse {
	s := res.Score
	resp := ResultResponse{
		Token:          s.Token,
		TestID:         s.TestID,
		UserID:         s.UserID,
		CorrectAnswers: s.CorrectAnswers,
		TotalQuestions: s.TotalQuestions,
		Score:          s.Score,
		MaxScore:       s.MaxScore,
		TimeLeft:       s.TimeLeft,
		AutoFinished:   s.AutoFinished,
		FinishedAt:     s.FinishedAt.Format(timeLayout),
		ResultsOpen:    res.ResultsOpen,
	}
	if !res.ResultsOpen {
		return resp
	}
	for _, item := range res.Review {
		options := make(map[string]string, len(model.Options))
		for _, o := range model.Options {
			options[string(o)] = item.Question.OptionText(o)
		}
		resp.Questions = append(resp.Questions, QuestionInfo{
			QuestionNumber: item.Question.Number,
			QuestionText:   item.Question.Text,
			Options:        options,
			CorrectOption:  string(item.Question.Correct),
			SelectedOption: string(item.Selected),
			IsCorrect:      item.IsCorrect(),
		})
	}
	return resp
}
