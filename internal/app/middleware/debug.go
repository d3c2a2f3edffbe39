package middleware

import (
	"context"
	"fmt"

	"github.com/IT-Nick/testbot/internal/domain/sessions"
	"go.uber.org/zap"
	"gopkg.in/telebot.v4"
)

// DebugUserActions при включенной отладке отправляет пользователю его сессию и действие.
// Полезно для диагностики поведения бота во время разработки
func DebugUserActions(enabled bool, store sessions.Store, logger *zap.Logger) telebot.MiddlewareFunc {
	return func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			err := next(c)
			if !enabled || c.Sender() == nil {
				return err
			}

			user := c.Sender()
			mode, token := "-", "-"
			session, serr := store.Get(context.Background(), user.ID)
			if serr != nil {
				logger.Warn("debug: failed to load session", zap.Int64("user_id", user.ID), zap.Error(serr))
			}
			if session != nil {
				mode = string(session.Mode)
				if session.Token != "" {
					token = session.Token
				}
			}

			debugMsg := fmt.Sprintf("DEBUG: User: %s (ID: %d), Mode: %s, Token: %s, Action: %s",
				user.FirstName, user.ID, mode, token, action(c))
			if _, serr := c.Bot().Send(user, debugMsg); serr != nil {
				logger.Warn("debug: failed to send", zap.Error(serr))
			}
			return err
		}
	}
}
