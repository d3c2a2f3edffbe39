package poller

import (
	"errors"

	"github.com/IT-Nick/testbot/internal/infra/config"
	"gopkg.in/telebot.v4"
)

// NewPoller создает Poller в зависимости от режима
func NewPoller(cfg config.TelegramBotConfig) (telebot.Poller, error) {
	if cfg.Mode == config.ModeWebhook {
		if cfg.WebhookURL == "" {
			return nil, errors.New("webhook_url is required in webhook mode")
		}
		return &telebot.Webhook{
			Listen: cfg.ListenAddr,
			Endpoint: &telebot.WebhookEndpoint{
				PublicURL: cfg.WebhookURL,
			},
		}, nil
	}
	return &telebot.LongPoller{Timeout: cfg.PollTimeout}, nil
}
