package program_results_handler

import (
	"net/http"

	"github.com/IT-Nick/testbot/internal/domain/dto"
	testsService "github.com/IT-Nick/testbot/internal/domain/tests/service"
	"github.com/gin-gonic/gin"
)

// ProgramResultsHandler PUT /api/v1/program/results {"open": bool}
type ProgramResultsHandler struct {
	testService *testsService.TestService
}

func NewProgramResultsHandler(testService *testsService.TestService) *ProgramResultsHandler {
	return &ProgramResultsHandler{testService: testService}
}

func (h *ProgramResultsHandler) Handle(c *gin.Context) {
	var req dto.ProgramResultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.JsonError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.testService.SetResultsOpen(c.Request.Context(), *req.Open); err != nil {
		dto.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ProgramResultsResponse{ResultsOpen: *req.Open})
}
