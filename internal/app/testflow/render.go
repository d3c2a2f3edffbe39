package testflow

import (
	"fmt"
	"html"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/IT-Nick/testbot/internal/domain/model"
	"github.com/IT-Nick/testbot/internal/infra/report"
	"github.com/IT-Nick/testbot/internal/infra/telegram"
)

const barWidth = 15

// Маркеры разбора ответов
const (
	MarkCorrectChosen   = "✅"
	MarkWrongChosen     = "❌"
	MarkCorrectMissed   = "☑️"
	MarkOther           = "▫️"
	selectedOptionMark  = "✅ "
	answerDataSeparator = "|"
)

var medals = []string{"🥇", "🥈", "🥉"}

// FormatTimer MM:SS, отрицательное время считается нулем
func FormatTimer(d time.Duration) string {
	return report.FormatDuration(d)
}

// ProgressBar доля оставшегося времени из barWidth клеток
func ProgressBar(left, total time.Duration) string {
	ratio := 0.0
	if total > 0 {
		ratio = float64(left) / float64(total)
	}
	ratio = min(max(ratio, 0), 1)
	filled := int(ratio * barWidth)
	return "[" + strings.Repeat("▓", filled) + strings.Repeat("-", barWidth-filled) + "]"
}

// CountdownText текст сообщения с таймером
func CountdownText(left, total time.Duration) string {
	return fmt.Sprintf("⏱ <b>Осталось времени:</b> %s\n%s", FormatTimer(left), ProgressBar(left, total))
}

// ActiveTestCard карточка активного теста с кнопками старта и отмены
func ActiveTestCard(t model.ActiveTest) (string, telegram.Keyboard) {
	text := fmt.Sprintf("🟢 <b>Доступен тест</b>\n\n📘 Название: %s\n📊 Уровень: %s\n❓ Вопросов: %d\n⏱ Лимит: %d мин\n\nНажмите «Начать», когда будете готовы.",
		html.EscapeString(orDash(t.Name)), html.EscapeString(orDash(t.Level)), t.QuestionCount, t.TimeLimitMinutes)
	kb := telegram.Keyboard{{
		{Text: "▶️ Начать", Unique: model.StartTestKey},
		{Text: "❌ Отмена", Unique: model.CancelTestKey},
	}}
	return text, kb
}

// QuestionView вопрос с вариантами, навигацией и кнопкой завершения
func QuestionView(questions []model.Question, index int, answers map[int]model.Option, skipped []int) (string, telegram.Keyboard) {
	q := questions[index]
	total := len(questions)

	var b strings.Builder
	fmt.Fprintf(&b, "<b>Вопрос %d/%d</b>\n\n%s", index+1, total, html.EscapeString(q.Text))
	if selected, ok := answers[q.Number]; ok {
		fmt.Fprintf(&b, "\n\n%s<b>Ваш ответ:</b> %s", selectedOptionMark, html.EscapeString(q.OptionText(selected)))
	}
	if pending := pendingSkipped(skipped, answers); len(pending) > 0 {
		fmt.Fprintf(&b, "\n\n⚠️ Пропущены вопросы: %s", joinNumbers(pending))
	}

	kb := make(telegram.Keyboard, 0, len(model.Options)+2)
	for _, o := range model.Options {
		label := fmt.Sprintf("%s) %s", o, q.OptionText(o))
		if answers[q.Number] == o {
			label = selectedOptionMark + label
		}
		kb = append(kb, []telegram.Button{{
			Text:   label,
			Unique: model.AnswerKey,
			Data:   AnswerData(q.Number, o),
		}})
	}
	kb = append(kb,
		[]telegram.Button{
			{Text: "⬅️", Unique: model.PrevKey},
			{Text: fmt.Sprintf("%d/%d", index+1, total), Unique: model.NoopKey},
			{Text: "➡️", Unique: model.NextKey},
		},
		[]telegram.Button{{Text: "🏁 Завершить", Unique: model.FinishKey}},
	)
	return b.String(), kb
}

// ConfirmFinishView запрос подтверждения при неотвеченных вопросах
func ConfirmFinishView(unanswered []int) (string, telegram.Keyboard) {
	text := fmt.Sprintf("⚠️ Есть вопросы без ответа: %s\n\nТочно завершить тест?", joinNumbers(unanswered))
	kb := telegram.Keyboard{
		{{Text: "✅ Завершить", Unique: model.FinishAnywayKey}},
		{{Text: "↩️ Продолжить", Unique: model.ContinueTestKey}},
	}
	return text, kb
}

// SubmittedText сообщение после завершения попытки
func SubmittedText(header, token string) string {
	return fmt.Sprintf("%s\n\n🔑 Ваш токен: <code>%s</code>\nЧтобы узнать результат, отправьте /result", header, token)
}

// AnswerData данные callback кнопки ответа: "номер|вариант"
func AnswerData(number int, o model.Option) string {
	return strconv.Itoa(number) + answerDataSeparator + string(o)
}

// ParseAnswerData разбирает данные кнопки ответа
func ParseAnswerData(data string) (int, model.Option, bool) {
	left, right, found := strings.Cut(strings.TrimSpace(data), answerDataSeparator)
	if !found {
		return 0, "", false
	}
	number, err := strconv.Atoi(left)
	if err != nil || number < 1 {
		return 0, "", false
	}
	o, ok := model.ParseOption(right)
	if !ok {
		return 0, "", false
	}
	return number, o, true
}

// ResultText итог попытки; разбор добавляется, только если результаты открыты
func ResultText(r *model.Result, closedText string) string {
	s := r.Score
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>Результат теста</b>\n\n🔑 Токен: <code>%s</code>\n🧮 Вопросов: %d\n✅ Правильно: %d\n🎯 Балл: <b>%d / %d</b>\n⏱ Оставалось времени: %s",
		s.Token, s.TotalQuestions, s.CorrectAnswers, s.Score, s.MaxScore, FormatTimer(time.Duration(s.TimeLeft)*time.Second))
	if s.AutoFinished {
		b.WriteString("\n⌛ Завершено автоматически по времени")
	}

	if !r.ResultsOpen {
		b.WriteString("\n\n" + closedText)
		return b.String()
	}

	b.WriteString("\n\n<b>Разбор ответов</b>")
	for _, item := range r.Review {
		fmt.Fprintf(&b, "\n\n<b>%d.</b> %s", item.Question.Number, html.EscapeString(item.Question.Text))
		for _, o := range model.Options {
			fmt.Fprintf(&b, "\n%s %s) %s", ReviewMark(item, o), o, html.EscapeString(item.Question.OptionText(o)))
		}
	}
	return b.String()
}

// ReviewMark маркер варианта o в разборе
func ReviewMark(item model.ReviewItem, o model.Option) string {
	correct := item.Question.Correct == o
	chosen := item.Selected == o
	switch {
	case correct && chosen:
		return MarkCorrectChosen
	case chosen:
		return MarkWrongChosen
	case correct:
		return MarkCorrectMissed
	}
	return MarkOther
}

// TopResultsText сводка и рейтинг участников
func TopResultsText(s *model.ResultsSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏆 <b>Лучшие результаты</b>\n📘 %s\n\n👥 Участников: <b>%d</b>\n📊 Средний балл: <b>%.1f</b>\n⏱ Среднее время: <b>%s</b>",
		html.EscapeString(orDash(s.Test.Name)), s.Participants, s.AverageScore, FormatTimer(s.AverageTimeSpent))
	if len(s.Top) == 0 {
		b.WriteString("\n\nПока никто не завершил тест.")
		return b.String()
	}

	fmt.Fprintf(&b, "\n\n<b>🏅 Топ %d:</b>", len(s.Top))
	for i, row := range s.Top {
		place := fmt.Sprintf("#%d", i+1)
		if i < len(medals) {
			place = medals[i]
		}
		spent := s.Test.TimeLimit() - time.Duration(row.TimeLeft)*time.Second
		fmt.Fprintf(&b, "\n%s <code>%d</code> - <b>%s</b>\nБалл: <b>%d</b> | Время: <b>%s</b>",
			place, row.UserID, html.EscapeString(displayName(row)), row.Score.Score, FormatTimer(spent))
	}
	return b.String()
}

func displayName(row model.RankedScore) string {
	switch {
	case row.FullName != "":
		return row.FullName
	case row.Username != "":
		return "@" + row.Username
	}
	return "—"
}

func pendingSkipped(skipped []int, answers map[int]model.Option) []int {
	var pending []int
	for _, n := range skipped {
		if _, ok := answers[n]; !ok {
			pending = append(pending, n)
		}
	}
	slices.Sort(pending)
	return pending
}

func joinNumbers(numbers []int) string {
	parts := make([]string, len(numbers))
	for i, n := range numbers {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
