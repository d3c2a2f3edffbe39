package model

import "time"

// Answer ответ участника, ключ (token, question_number)
type Answer struct {
	Token          string    `json:"token"`
	TestID         string    `json:"test_id"`
	QuestionNumber int       `json:"question_number"`
	Selected       Option    `json:"selected_option"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AnswerMap собирает ответы по номеру вопроса
func AnswerMap(answers []Answer) map[int]Option {
	m := make(map[int]Option, len(answers))
	for _, a := range answers {
		m[a.QuestionNumber] = a.Selected
	}
	return m
}
