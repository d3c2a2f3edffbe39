package dto

// ProgramResultsRequest тело PUT /api/v1/program/results
type ProgramResultsRequest struct {
	Open *bool `json:"open" binding:"required"`
}

type ProgramResultsResponse struct {
	ResultsOpen bool `json:"results_open"`
}

type ReopenResponse struct {
	Token  string `json:"token"`
	UserID int64  `json:"user_id"`
	TestID string `json:"test_id"`
}

// TestLinkResponse ссылка на бота и ее QR-код (PNG в base64)
type TestLinkResponse struct {
	Link      string `json:"link"`
	QRCodePNG string `json:"qr_code_png"`
}
