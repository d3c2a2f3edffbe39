package active_test_handler

import (
	"net/http"
	"time"

	"github.com/IT-Nick/testbot/internal/domain/dto"
	testsService "github.com/IT-Nick/testbot/internal/domain/tests/service"
	"github.com/gin-gonic/gin"
)

// ActiveTestHandler GET /api/v1/active-test
type ActiveTestHandler struct {
	testService *testsService.TestService
}

// NewActiveTestHandler создает новый экземпляр обработчика
func NewActiveTestHandler(testService *testsService.TestService) *ActiveTestHandler {
	return &ActiveTestHandler{testService: testService}
}

// Handle активный тест и состояние результатов
func (h *ActiveTestHandler) Handle(c *gin.Context) {
	ctx := c.Request.Context()

	active, err := h.testService.GetActiveTest(ctx)
	if err != nil {
		dto.DomainError(c, err)
		return
	}
	state, err := h.testService.GetProgramState(ctx)
	if err != nil {
		dto.DomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ActiveTestResponse{
		TestID:           active.TestID,
		Name:             active.Name,
		Level:            active.Level,
		QuestionCount:    active.QuestionCount,
		TimeLimitMinutes: active.TimeLimitMinutes,
		PublishedAt:      active.PublishedAt.Format(time.RFC3339),
		ResultsOpen:      state.ResultsOpen,
	})
}
