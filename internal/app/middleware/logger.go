package middleware

import (
	"time"

	"go.uber.org/zap"
	"gopkg.in/telebot.v4"
)

// Logger пишет в лог каждое входящее обновление и время его обработки
func Logger(logger *zap.Logger) telebot.MiddlewareFunc {
	return func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			start := time.Now()
			err := next(c)

			fields := []zap.Field{
				zap.Int("update_id", c.Update().ID),
				zap.String("action", action(c)),
				zap.Duration("took", time.Since(start)),
			}
			if sender := c.Sender(); sender != nil {
				fields = append(fields, zap.Int64("user_id", sender.ID), zap.String("username", sender.Username))
			}
			if err != nil {
				logger.Warn("update handled with error", append(fields, zap.Error(err))...)
				return err
			}
			logger.Debug("update handled", fields...)
			return nil
		}
	}
}

func action(c telebot.Context) string {
	if cb := c.Callback(); cb != nil {
		return "callback:" + cb.Unique
	}
	if msg := c.Message(); msg != nil {
		if msg.Text != "" && msg.Text[0] == '/' {
			return "command:" + msg.Text
		}
		return "message"
	}
	return "unknown"
}
