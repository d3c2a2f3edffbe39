package results_pdf_handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	attemptsService "github.com/IT-Nick/testbot/internal/domain/attempts/service"
	"github.com/IT-Nick/testbot/internal/domain/model"
	"github.com/IT-Nick/testbot/internal/infra/report"
	"gopkg.in/telebot.v4"
)

// ResultsPDFHandler /results_pdf: рейтинг активного теста PDF-документом
type ResultsPDFHandler struct {
	attemptService *attemptsService.AttemptService
	generator      *report.Generator
	limit          int
}

func NewResultsPDFHandler(attemptService *attemptsService.AttemptService, generator *report.Generator, limit int) *ResultsPDFHandler {
	return &ResultsPDFHandler{
		attemptService: attemptService,
		generator:      generator,
		limit:          limit,
	}
}

func (h *ResultsPDFHandler) Handle(c telebot.Context) error {
	summary, err := h.attemptService.TopResults(context.Background(), h.limit)
	if errors.Is(err, model.ErrNoActiveTest) {
		return c.Send("ℹ️ Активного теста нет.")
	}
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	now := time.Now()
	if err := h.generator.Generate(&buf, summary, now); err != nil {
		return err
	}

	doc := &telebot.Document{
		File:     telebot.FromReader(&buf),
		FileName: FileName(summary.Test.TestID, now),
		Caption:  fmt.Sprintf("📄 Результаты: участников %d", summary.Participants),
	}
	return c.Send(doc)
}

// FileName имя файла отчета
func FileName(testID string, at time.Time) string {
	return fmt.Sprintf("results_%s_%s.pdf", testID, at.Format("20060102_1504"))
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *ResultsPDFHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
