package test_qr_handler

import (
	"bytes"

	"github.com/IT-Nick/testbot/internal/infra/qr"
	"gopkg.in/telebot.v4"
)

// TestQRHandler /test_qr: QR-код ссылки, открывающей карточку активного теста
type TestQRHandler struct {
	botUsername string
}

func NewTestQRHandler(botUsername string) *TestQRHandler {
	return &TestQRHandler{botUsername: botUsername}
}

func (h *TestQRHandler) Handle(c telebot.Context) error {
	link := qr.DeepLink(h.botUsername, "test")
	png, err := qr.PNG(link, qr.DefaultSize)
	if err != nil {
		return err
	}
	return c.Send(&telebot.Photo{File: telebot.FromReader(bytes.NewReader(png)), Caption: link})
}

// GetHandlerFunc возвращает обработчик в формате telebot.HandlerFunc
func (h *TestQRHandler) GetHandlerFunc() telebot.HandlerFunc {
	return func(c telebot.Context) error {
		return h.Handle(c)
	}
}
