package middleware

import "gopkg.in/telebot.v4"

const adminOnlyText = "⛔ Команда доступна только администраторам."

// AdminOnly пропускает дальше только администраторов
func AdminOnly(isAdmin func(int64) bool) telebot.MiddlewareFunc {
	return func(next telebot.HandlerFunc) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			sender := c.Sender()
			if sender == nil || !isAdmin(sender.ID) {
				if c.Callback() != nil {
					return c.Respond(&telebot.CallbackResponse{Text: adminOnlyText})
				}
				return c.Send(adminOnlyText)
			}
			return next(c)
		}
	}
}
