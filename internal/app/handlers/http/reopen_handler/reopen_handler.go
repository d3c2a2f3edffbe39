package reopen_handler

import (
	"context"
	"net/http"

	attemptsService "github.com/IT-Nick/testbot/internal/domain/attempts/service"
	"github.com/IT-Nick/testbot/internal/domain/dto"
	"github.com/IT-Nick/testbot/internal/domain/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Abandoner снимает таймер и сессию переоткрытой попытки
type Abandoner interface {
	Abandon(ctx context.Context, attempt model.Attempt)
}

// ReopenHandler POST /api/v1/attempts/:identifier/reopen
type ReopenHandler struct {
	attemptService *attemptsService.AttemptService
	runner         Abandoner
	logger         *zap.Logger
}

func NewReopenHandler(attemptService *attemptsService.AttemptService, runner Abandoner, logger *zap.Logger) *ReopenHandler {
	return &ReopenHandler{attemptService: attemptService, runner: runner, logger: logger}
}

func (h *ReopenHandler) Handle(c *gin.Context) {
	ctx := c.Request.Context()

	attempt, err := h.attemptService.Reopen(ctx, c.Param("identifier"))
	if err != nil {
		dto.DomainError(c, err)
		return
	}

	// уведомление пользователя не должно зависеть от отмены HTTP-запроса
	h.runner.Abandon(context.WithoutCancel(ctx), *attempt)
	h.logger.Info("attempt reopened via api",
		zap.String("token", attempt.Token),
		zap.Int64("user_id", attempt.UserID),
		zap.String("subject", c.GetString("subject")),
	)
	c.JSON(http.StatusOK, dto.ReopenResponse{Token: attempt.Token, UserID: attempt.UserID, TestID: attempt.TestID})
}
