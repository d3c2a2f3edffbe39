package model

// SessionMode режим пользователя в боте
type SessionMode string

const (
	ModeAwaitingName SessionMode = "awaiting_name"
	ModeInTest       SessionMode = "in_test"
)

// Session состояние пользователя между сообщениями.
// Создается при старте попытки, удаляется при завершении, отмене или переоткрытии
type Session struct {
	UserID            int64       `json:"user_id"`
	ChatID            int64       `json:"chat_id"`
	Mode              SessionMode `json:"mode"`
	Token             string      `json:"token,omitempty"`
	TestID            string      `json:"test_id,omitempty"`
	Index             int         `json:"index"`
	Skipped           []int       `json:"skipped,omitempty"`
	TimerMessageID    int         `json:"timer_message_id,omitempty"`
	QuestionMessageID int         `json:"question_message_id,omitempty"`
}

// MarkSkipped запоминает пропущенный вопрос
func (s *Session) MarkSkipped(number int) {
	for _, n := range s.Skipped {
		if n == number {
			return
		}
	}
	s.Skipped = append(s.Skipped, number)
}

// ClearSkipped убирает вопрос из пропущенных
func (s *Session) ClearSkipped(number int) {
	out := s.Skipped[:0]
	for _, n := range s.Skipped {
		if n != number {
			out = append(out, n)
		}
	}
	s.Skipped = out
}
