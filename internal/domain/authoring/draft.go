package authoring

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/IT-Nick/testbot/internal/domain/model"
)

// Step шаг мастера создания теста
type Step int

const (
	StepName Step = iota
	StepLevel
	StepCount
	StepTimeLimit
	StepQuestionText
	StepOptions
	StepCorrect
	StepDone
)

const (
	maxNameLen      = 128
	maxLevelLen     = 32
	maxQuestions    = 200
	maxTimeLimitMin = 600
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrSkipNotAllowed = errors.New("step cannot be skipped")
	ErrDraftDone      = errors.New("draft is complete")
)

// InputError ошибка ввода с причиной для администратора
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid input: " + e.Reason
}

func (e *InputError) Is(target error) bool {
	return target == ErrInvalidInput
}

func invalid(format string, args ...any) error {
	return &InputError{Reason: fmt.Sprintf(format, args...)}
}

var optionLine = regexp.MustCompile(`^([a-dA-D])\s*[-).:]\s*(.+)$`)

// Draft состояние мастера одного администратора
type Draft struct {
	AdminID    int64
	Step       Step
	Definition model.TestDefinition
	Question   model.Question
}

// Outcome что нужно сохранить после перехода
type Outcome struct {
	DefinitionReady bool
	Question        *model.Question
	Done            bool
}

// NewDraft мастер нового теста с заранее выданным ID
func NewDraft(adminID int64, testID string) *Draft {
	return &Draft{
		AdminID:    adminID,
		Step:       StepName,
		Definition: model.TestDefinition{ID: testID},
	}
}

// NewQuestionDraft мастер дозаполнения вопросов, начиная с номера next
func NewQuestionDraft(adminID int64, def model.TestDefinition, next int) *Draft {
	d := &Draft{AdminID: adminID, Definition: def}
	d.beginQuestion(next)
	return d
}

func (d *Draft) beginQuestion(number int) {
	if number > d.Definition.QuestionCount {
		d.Step = StepDone
		return
	}
	d.Step = StepQuestionText
	d.Question = model.Question{TestID: d.Definition.ID, Number: number}
}

// Apply обрабатывает ответ администратора на текущем шаге
func (d *Draft) Apply(input string) (Outcome, error) {
	input = strings.TrimSpace(input)
	switch d.Step {
	case StepName:
		return d.applyName(input)
	case StepLevel:
		return d.applyLevel(input)
	case StepCount:
		return d.applyCount(input)
	case StepTimeLimit:
		return d.applyTimeLimit(input)
	case StepQuestionText:
		return d.applyQuestionText(input)
	case StepOptions:
		return d.applyOptions(input)
	case StepCorrect:
		return d.applyCorrect(input)
	}
	return Outcome{}, ErrDraftDone
}

// Skip пропускает шаг, допустимо только для названия и уровня
func (d *Draft) Skip() (Outcome, error) {
	switch d.Step {
	case StepName:
		d.Definition.Name = ""
		d.Step = StepLevel
	case StepLevel:
		d.Definition.Level = ""
		d.Step = StepCount
	default:
		return Outcome{}, ErrSkipNotAllowed
	}
	return Outcome{}, nil
}

// End завершает ввод вопросов досрочно
func (d *Draft) End() (Outcome, error) {
	if d.Step < StepQuestionText {
		return Outcome{}, invalid("Сначала закончите описание теста.")
	}
	d.Step = StepDone
	return Outcome{Done: true}, nil
}

func (d *Draft) applyName(input string) (Outcome, error) {
	if input == "" || utf8.RuneCountInString(input) > maxNameLen {
		return Outcome{}, invalid("Название должно быть от 1 до %d символов.", maxNameLen)
	}
	d.Definition.Name = input
	d.Step = StepLevel
	return Outcome{}, nil
}

func (d *Draft) applyLevel(input string) (Outcome, error) {
	if input == "" || utf8.RuneCountInString(input) > maxLevelLen {
		return Outcome{}, invalid("Уровень должен быть от 1 до %d символов.", maxLevelLen)
	}
	d.Definition.Level = input
	d.Step = StepCount
	return Outcome{}, nil
}

func (d *Draft) applyCount(input string) (Outcome, error) {
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > maxQuestions {
		return Outcome{}, invalid("Количество вопросов должно быть числом от 1 до %d.", maxQuestions)
	}
	d.Definition.QuestionCount = n
	d.Step = StepTimeLimit
	return Outcome{}, nil
}

func (d *Draft) applyTimeLimit(input string) (Outcome, error) {
	n, err := strconv.Atoi(input)
	if err != nil || n < 1 || n > maxTimeLimitMin {
		return Outcome{}, invalid("Лимит времени должен быть числом от 1 до %d минут.", maxTimeLimitMin)
	}
	d.Definition.TimeLimitMinutes = n
	d.beginQuestion(1)
	return Outcome{DefinitionReady: true}, nil
}

func (d *Draft) applyQuestionText(input string) (Outcome, error) {
	if input == "" {
		return Outcome{}, invalid("Текст вопроса пуст.")
	}
	d.Question.Text = input
	d.Step = StepOptions
	return Outcome{}, nil
}

func (d *Draft) applyOptions(input string) (Outcome, error) {
	texts, err := ParseOptions(input)
	if err != nil {
		return Outcome{}, err
	}
	for o, text := range texts {
		d.Question.SetOptionText(o, text)
	}
	d.Step = StepCorrect
	return Outcome{}, nil
}

func (d *Draft) applyCorrect(input string) (Outcome, error) {
	o, ok := model.ParseOption(input)
	if !ok {
		return Outcome{}, invalid("Укажите одну букву: a, b, c или d.")
	}
	d.Question.Correct = o
	q := d.Question

	d.beginQuestion(q.Number + 1)
	return Outcome{Question: &q, Done: d.Step == StepDone}, nil
}

// ParseOptions разбирает четыре строки вида "a - текст"
func ParseOptions(input string) (map[model.Option]string, error) {
	texts := make(map[model.Option]string, len(model.Options))
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := optionLine.FindStringSubmatch(line)
		if m == nil {
			return nil, invalid("Не удалось разобрать строку %q, нужен формат «a - текст».", line)
		}
		o, _ := model.ParseOption(m[1])
		if _, dup := texts[o]; dup {
			return nil, invalid("Вариант %s указан дважды.", o)
		}
		texts[o] = strings.TrimSpace(m[2])
	}
	for _, o := range model.Options {
		if texts[o] == "" {
			return nil, invalid("Не хватает варианта %s.", o)
		}
	}
	return texts, nil
}
