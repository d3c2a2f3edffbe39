package model

import "strings"

// Option вариант ответа (a, b, c, d)
type Option string

const (
	OptionA Option = "a"
	OptionB Option = "b"
	OptionC Option = "c"
	OptionD Option = "d"
)

// Options все варианты в порядке отображения
var Options = []Option{OptionA, OptionB, OptionC, OptionD}

// ParseOption разбирает букву варианта без учета регистра
func ParseOption(s string) (Option, bool) {
	o := Option(strings.ToLower(strings.TrimSpace(s)))
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return o, true
	}
	return "", false
}

// Question вопрос теста
type Question struct {
	TestID  string `json:"test_id"`
	Number  int    `json:"question_number"`
	Text    string `json:"question_text"`
	OptionA string `json:"option_a"`
	OptionB string `json:"option_b"`
	OptionC string `json:"option_c"`
	OptionD string `json:"option_d"`
	Correct Option `json:"correct_option"`
}

// OptionText возвращает текст варианта
func (q Question) OptionText(o Option) string {
	switch o {
	case OptionA:
		return q.OptionA
	case OptionB:
		return q.OptionB
	case OptionC:
		return q.OptionC
	case OptionD:
		return q.OptionD
	}
	return ""
}

// SetOptionText задает текст варианта
func (q *Question) SetOptionText(o Option, text string) {
	switch o {
	case OptionA:
		q.OptionA = text
	case OptionB:
		q.OptionB = text
	case OptionC:
		q.OptionC = text
	case OptionD:
		q.OptionD = text
	}
}
