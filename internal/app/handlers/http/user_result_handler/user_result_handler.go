package user_result_handler

import (
	"net/http"

	attemptsService "github.com/IT-Nick/testbot/internal/domain/attempts/service"
	"github.com/IT-Nick/testbot/internal/domain/dto"
	"github.com/gin-gonic/gin"
)

// UserResultHandler GET /api/v1/results/:identifier, identifier токен или user_id
type UserResultHandler struct {
	attemptService *attemptsService.AttemptService
}

// NewUserResultHandler создает новый экземпляр обработчика
func NewUserResultHandler(attemptService *attemptsService.AttemptService) *UserResultHandler {
	return &UserResultHandler{attemptService: attemptService}
}

// Handle результат с разбором, если результаты открыты
func (h *UserResultHandler) Handle(c *gin.Context) {
	identifier := c.Param("identifier")
	if identifier == "" {
		dto.JsonError(c, http.StatusBadRequest, "identifier is required")
		return
	}

	// запросы API идут от имени администратора
	result, err := h.attemptService.GetResult(c.Request.Context(), identifier, 0, true)
	if err != nil {
		dto.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewResultResponse(result))
}
