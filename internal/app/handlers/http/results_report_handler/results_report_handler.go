package results_report_handler

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	attemptsService "github.com/IT-Nick/testbot/internal/domain/attempts/service"
	"github.com/IT-Nick/testbot/internal/domain/dto"
	"github.com/IT-Nick/testbot/internal/infra/report"
	"github.com/gin-gonic/gin"
)

// ResultsReportHandler GET /api/v1/results/report.pdf
type ResultsReportHandler struct {
	attemptService *attemptsService.AttemptService
	generator      *report.Generator
	limit          int
}

func NewResultsReportHandler(attemptService *attemptsService.AttemptService, generator *report.Generator, limit int) *ResultsReportHandler {
	return &ResultsReportHandler{
		attemptService: attemptService,
		generator:      generator,
		limit:          limit,
	}
}

func (h *ResultsReportHandler) Handle(c *gin.Context) {
	summary, err := h.attemptService.TopResults(c.Request.Context(), h.limit)
	if err != nil {
		dto.DomainError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.generator.Generate(&buf, summary, time.Now()); err != nil {
		dto.DomainError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="results_%s.pdf"`, summary.Test.TestID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
