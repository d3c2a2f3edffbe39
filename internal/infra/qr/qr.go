package qr

import (
	"fmt"
	"net/url"

	"github.com/skip2/go-qrcode"
)

const DefaultSize = 256

// DeepLink ссылка t.me, открывающая бота с параметром /start
func DeepLink(botUsername, payload string) string {
	link := fmt.Sprintf("https://t.me/%s", botUsername)
	if payload != "" {
		link += "?start=" + url.QueryEscape(payload)
	}
	return link
}

// PNG QR-код ссылки
func PNG(link string, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultSize
	}
	png, err := qrcode.Encode(link, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return png, nil
}
