package authoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/IT-Nick/testbot/internal/domain/model"
)

// Catalog сохраняет то, что собрал мастер
type Catalog interface {
	CreateDefinition(ctx context.Context, def model.TestDefinition) (*model.TestDefinition, error)
	GetDefinition(ctx context.Context, testID string) (*model.TestDefinition, error)
	AddQuestion(ctx context.Context, q model.Question) error
	NextQuestionNumber(ctx context.Context, testID string) (int, error)
}

// Wizard ведет черновики администраторов и сохраняет результат каждого шага
type Wizard struct {
	catalog Catalog
	newID   func() string

	mu     sync.Mutex
	drafts map[int64]*Draft
}

func NewWizard(catalog Catalog, newID func() string) *Wizard {
	return &Wizard{
		catalog: catalog,
		newID:   newID,
		drafts:  make(map[int64]*Draft),
	}
}

// Active есть ли у администратора открытый черновик
func (w *Wizard) Active(adminID int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.drafts[adminID]
	return ok
}

// Begin начинает создание нового теста, прежний черновик отбрасывается
func (w *Wizard) Begin(adminID int64) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	d := NewDraft(adminID, w.newID())
	w.drafts[adminID] = d
	return "🧪 Создание нового теста.\n\n" + Prompt(d) + "\n\n/abort - отменить"
}

// Resume продолжает ввод вопросов существующего теста
func (w *Wizard) Resume(ctx context.Context, adminID int64, testID string) (string, error) {
	def, err := w.catalog.GetDefinition(ctx, testID)
	if err != nil {
		return "", err
	}
	next, err := w.catalog.NextQuestionNumber(ctx, def.ID)
	if err != nil {
		return "", err
	}
	d := NewQuestionDraft(adminID, *def, next)
	if d.Step == StepDone {
		return fmt.Sprintf("✅ В тесте %s уже есть все %d вопросов.", def.ID, def.QuestionCount), nil
	}

	w.mu.Lock()
	w.drafts[adminID] = d
	w.mu.Unlock()
	return fmt.Sprintf("➕ Дополняем тест %s.\n\n%s", def.ID, Prompt(d)), nil
}

// Abort отбрасывает черновик; уже сохраненные данные остаются
func (w *Wizard) Abort(adminID int64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.drafts[adminID]
	delete(w.drafts, adminID)
	return ok
}

// Handle применяет текст администратора к черновику.
// Ошибки ввода возвращаются текстом ответа, error только для ошибок хранилища
func (w *Wizard) Handle(ctx context.Context, adminID int64, text string) (string, error) {
	return w.step(ctx, adminID, func(d *Draft) (Outcome, error) { return d.Apply(text) })
}

// Skip пропускает необязательный шаг
func (w *Wizard) Skip(ctx context.Context, adminID int64) (string, error) {
	return w.step(ctx, adminID, func(d *Draft) (Outcome, error) { return d.Skip() })
}

// End завершает ввод вопросов
func (w *Wizard) End(ctx context.Context, adminID int64) (string, error) {
	return w.step(ctx, adminID, func(d *Draft) (Outcome, error) { return d.End() })
}

func (w *Wizard) step(ctx context.Context, adminID int64, transition func(d *Draft) (Outcome, error)) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	d, ok := w.drafts[adminID]
	if !ok {
		return "ℹ️ Нет теста в процессе создания. Начните с /create_test", nil
	}

	// переход применяется к копии, чтобы ошибка сохранения не сдвигала шаг
	next := *d
	outcome, err := transition(&next)
	switch {
	case errors.Is(err, ErrSkipNotAllowed):
		return "❗ Этот шаг нельзя пропустить.\n\n" + Prompt(d), nil
	case errors.Is(err, ErrInvalidInput):
		return "❗ " + describe(err) + "\n\n" + Prompt(d), nil
	case err != nil:
		return "", err
	}

	var reply []string
	if outcome.DefinitionReady {
		if _, err := w.catalog.CreateDefinition(ctx, next.Definition); err != nil {
			return "", fmt.Errorf("failed to save definition: %w", err)
		}
		reply = append(reply, "✅ Тест создан:\n"+FormatDefinition(next.Definition))
	}
	if outcome.Question != nil {
		if err := w.catalog.AddQuestion(ctx, *outcome.Question); err != nil {
			return "", fmt.Errorf("failed to save question: %w", err)
		}
		reply = append(reply, fmt.Sprintf("💾 Вопрос %d сохранен.", outcome.Question.Number))
	}

	if next.Step == StepDone {
		delete(w.drafts, adminID)
		reply = append(reply, fmt.Sprintf("🏁 Ввод вопросов завершен. Опубликовать: /publish %s", next.Definition.ID))
		return strings.Join(reply, "\n\n"), nil
	}

	*d = next
	reply = append(reply, Prompt(d))
	return strings.Join(reply, "\n\n"), nil
}

// Prompt подсказка для текущего шага
func Prompt(d *Draft) string {
	switch d.Step {
	case StepName:
		return "Введите название теста или /skip"
	case StepLevel:
		return "Введите уровень (A2 / B1 / B2 / C1) или /skip"
	case StepCount:
		return "Введите количество вопросов"
	case StepTimeLimit:
		return "Введите лимит времени в минутах"
	case StepQuestionText:
		return fmt.Sprintf("❓ Вопрос %d из %d. Отправьте текст вопроса или /end_test",
			d.Question.Number, d.Definition.QuestionCount)
	case StepOptions:
		return "Отправьте четыре варианта одним сообщением:\na - ...\nb - ...\nc - ...\nd - ..."
	case StepCorrect:
		return "Какой вариант правильный? (a, b, c или d)"
	}
	return ""
}

// FormatDefinition краткое описание теста
func FormatDefinition(def model.TestDefinition) string {
	return fmt.Sprintf("ID: %s\nНазвание: %s\nУровень: %s\nВопросов: %d\nЛимит: %d мин",
		def.ID, orDash(def.Name), orDash(def.Level), def.QuestionCount, def.TimeLimitMinutes)
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func describe(err error) string {
	var input *InputError
	if errors.As(err, &input) {
		return input.Reason
	}
	return "Неверный ввод."
}
