package middleware

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/telebot.v4"
)

// Recover перехватывает панику в обработчике, пишет ее в лог и возвращает как ошибку
func Recover(logger *zap.Logger, onError ...func(error, telebot.Context)) telebot.MiddlewareFunc {
	handleError := func(err error, c telebot.Context) {
		logger.Error("recovered from panic", zap.Error(err), zap.Stack("stack"))
	}
	if len(onError) > 0 {
		handleError = onError[0]
	}

	return func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					var e error
					switch x := r.(type) {
					case error:
						e = x
					case string:
						e = errors.New(x)
					default:
						e = fmt.Errorf("panic: %v", x)
					}
					handleError(e, c)
					err = e
				}
			}()
			return next(c)
		}
	}
}
