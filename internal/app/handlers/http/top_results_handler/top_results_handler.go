package top_results_handler

import (
	"net/http"
	"strconv"

	attemptsService "github.com/IT-Nick/testbot/internal/domain/attempts/service"
	"github.com/IT-Nick/testbot/internal/domain/dto"
	"github.com/gin-gonic/gin"
)

const maxLimit = 100

// TopResultsHandler GET /api/v1/results/top?limit=N
type TopResultsHandler struct {
	attemptService *attemptsService.AttemptService
	defaultLimit   int
}

func NewTopResultsHandler(attemptService *attemptsService.AttemptService, defaultLimit int) *TopResultsHandler {
	return &TopResultsHandler{attemptService: attemptService, defaultLimit: defaultLimit}
}

func (h *TopResultsHandler) Handle(c *gin.Context) {
	limit := h.defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxLimit {
			dto.JsonError(c, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	summary, err := h.attemptService.TopResults(c.Request.Context(), limit)
	if err != nil {
		dto.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewTopResultsResponse(summary))
}
