package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/IT-Nick/testbot/internal/domain/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

// RequestID берет ID запроса из заголовка или генерирует новый
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// ErrorHandler восстанавливается после паники и пишет в лог ошибки из c.Errors
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("http handler panicked",
					zap.String("request_id", c.GetString("request_id")),
					zap.Error(fmt.Errorf("%v", r)),
					zap.Stack("stack"),
				)
				dto.JsonError(c, http.StatusInternalServerError)
				c.Abort()
			}
		}()

		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", c.GetString("request_id")),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			logger.Error("http request failed", append(fields, zap.Error(c.Errors.Last().Err))...)
			if !c.Writer.Written() {
				dto.JsonError(c, http.StatusInternalServerError)
			}
			return
		}
		logger.Debug("http request", fields...)
	}
}
