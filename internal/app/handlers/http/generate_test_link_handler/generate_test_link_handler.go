package generate_test_link_handler

import (
	"encoding/base64"
	"net/http"

	"github.com/IT-Nick/testbot/internal/domain/dto"
	"github.com/IT-Nick/testbot/internal/infra/qr"
	"github.com/gin-gonic/gin"
)

// GenerateTestLinkHandler GET /api/v1/test-link: deep-link на карточку активного теста и его QR-код
type GenerateTestLinkHandler struct {
	botUsername string
}

// NewGenerateTestLinkHandler создает новый экземпляр обработчика
func NewGenerateTestLinkHandler(botUsername string) *GenerateTestLinkHandler {
	return &GenerateTestLinkHandler{botUsername: botUsername}
}

// Handle ?format=png отдает картинку, иначе JSON со ссылкой и PNG в base64
func (h *GenerateTestLinkHandler) Handle(c *gin.Context) {
	link := qr.DeepLink(h.botUsername, "test")
	png, err := qr.PNG(link, qr.DefaultSize)
	if err != nil {
		dto.DomainError(c, err)
		return
	}

	if c.Query("format") == "png" {
		c.Data(http.StatusOK, "image/png", png)
		return
	}
	c.JSON(http.StatusOK, dto.TestLinkResponse{
		Link:      link,
		QRCodePNG: base64.StdEncoding.EncodeToString(png),
	})
}
