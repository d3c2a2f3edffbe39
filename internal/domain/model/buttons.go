package model

// Константы для inline-кнопок. Привязаны к обработчикам в app.bootstrapHandlersTelegram.
// Не следует изменять константы без изменения логики в обработчиках
const (
	StartTestKey    = "start_test"
	CancelTestKey   = "cancel_test"
	AnswerKey       = "ans"
	PrevKey         = "prev"
	NextKey         = "next"
	NoopKey         = "noop"
	FinishKey       = "finish"
	FinishAnywayKey = "finish_anyway"
	ContinueTestKey = "continue_test"
)

// Ключи редактируемых текстов в таблице messages
const (
	WelcomeMessageKey   = "welcome_message"
	NoActiveTestKey     = "no_active_test"
	AskFullNameKey      = "ask_full_name"
	ResultsClosedKey    = "results_closed"
	AttemptSubmittedKey = "attempt_submitted"
	TimeIsUpKey         = "time_is_up"
)
