package dto

import (
	"errors"
	"net/http"

	"github.com/IT-Nick/testbot/internal/domain/model"
	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func JsonError(c *gin.Context, status int, message ...string) {
	msg := ""
	if len(message) > 0 {
		msg = message[0]
	}

	c.JSON(status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: msg,
	})
}

// StatusFor HTTP-статус доменной ошибки
func StatusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNoActiveTest),
		errors.Is(err, model.ErrNoResult),
		errors.Is(err, model.ErrAttemptNotFound),
		errors.Is(err, model.ErrTestNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrActiveTestExists),
		errors.Is(err, model.ErrActiveTestMismatch),
		errors.Is(err, model.ErrAlreadyCompleted),
		errors.Is(err, model.ErrAttemptFinished),
		errors.Is(err, model.ErrNoQuestions):
		return http.StatusConflict
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrInvalidAnswer),
		errors.Is(err, model.ErrInvalidQuestion):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// DomainError отвечает статусом доменной ошибки; неожиданные ошибки уходят в c.Errors для лога
func DomainError(c *gin.Context, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		JsonError(c, status)
		return
	}
	JsonError(c, status, err.Error())
}
