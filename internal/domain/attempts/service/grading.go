package service

import (
	"math"

	"github.com/IT-Nick/testbot/internal/domain/model"
)

// CountCorrect число вопросов, где выбран правильный вариант; без ответа значит неверно
func CountCorrect(questions []model.Question, answers map[int]model.Option) int {
	correct := 0
	for _, q := range questions {
		if selected, ok := answers[q.Number]; ok && selected == q.Correct {
			correct++
		}
	}
	return correct
}

// ComputeScore round(correct/total*maxScore)
func ComputeScore(correct, total, maxScore int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * float64(maxScore)))
}

// BuildReview разбор по всем вопросам теста
func BuildReview(questions []model.Question, answers map[int]model.Option) []model.ReviewItem {
	review := make([]model.ReviewItem, 0, len(questions))
	for _, q := range questions {
		review = append(review, model.ReviewItem{Question: q, Selected: answers[q.Number]})
	}
	return review
}

// Unanswered номера вопросов без ответа
func Unanswered(questions []model.Question, answers map[int]model.Option) []int {
	var numbers []int
	for _, q := range questions {
		if _, ok := answers[q.Number]; !ok {
			numbers = append(numbers, q.Number)
		}
	}
	return numbers
}
