package report

import (
	"fmt"
	"io"
	"time"

	"github.com/IT-Nick/testbot/internal/domain/model"
	"github.com/jung-kurt/gofpdf"
)

const utf8Family = "Report"

var columns = []struct {
	title string
	width float64
	align string
}{
	{"#", 10, "C"},
	{"Participant", 62, "L"},
	{"User ID", 28, "L"},
	{"Score", 22, "C"},
	{"Correct", 24, "C"},
	{"Time left", 24, "C"},
	{"Auto", 14, "C"},
}

// Generator строит PDF-отчет по результатам активного теста.
// Без TTF-шрифта используется Helvetica, символы вне cp1252 заменяются
type Generator struct {
	fontPath string
}

func NewGenerator(fontPath string) *Generator {
	return &Generator{fontPath: fontPath}
}

// Generate пишет PDF в w
func (g *Generator) Generate(w io.Writer, summary *model.ResultsSummary, generatedAt time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")

	family := "Helvetica"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if g.fontPath != "" {
		pdf.AddUTF8Font(utf8Family, "", g.fontPath)
		pdf.AddUTF8Font(utf8Family, "B", g.fontPath)
		family = utf8Family
		tr = func(s string) string { return s }
	}

	pdf.AddPage()

	pdf.SetFont(family, "B", 16)
	pdf.MultiCell(0, 10, tr(fmt.Sprintf("Results: %s", title(summary.Test))), "", "L", false)
	pdf.Ln(2)

	pdf.SetFont(family, "", 11)
	info := fmt.Sprintf("Test ID: %s\nTime limit: %d min\nParticipants: %d\nAverage score: %.1f\nAverage time spent: %s\nGenerated: %s",
		summary.Test.TestID,
		summary.Test.TimeLimitMinutes,
		summary.Participants,
		summary.AverageScore,
		FormatDuration(summary.AverageTimeSpent),
		generatedAt.Format("2006-01-02 15:04"),
	)
	pdf.MultiCell(0, 7, tr(info), "", "L", false)
	pdf.Ln(4)

	pdf.SetFont(family, "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range columns {
		pdf.CellFormat(col.width, 8, col.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 10)
	for i, row := range summary.Top {
		auto := ""
		if row.AutoFinished {
			auto = "yes"
		}
		cells := []string{
			fmt.Sprintf("%d", i+1),
			participant(row),
			fmt.Sprintf("%d", row.UserID),
			fmt.Sprintf("%d/%d", row.Score.Score, row.MaxScore),
			fmt.Sprintf("%d/%d", row.CorrectAnswers, row.TotalQuestions),
			FormatDuration(time.Duration(row.TimeLeft) * time.Second),
			auto,
		}
		for j, col := range columns {
			pdf.CellFormat(col.width, 7, tr(cells[j]), "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(summary.Top) == 0 {
		pdf.CellFormat(0, 7, "No results yet", "1", 1, "C", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return nil
}

func title(t model.ActiveTest) string {
	if t.Name == "" {
		return t.TestID
	}
	if t.Level == "" {
		return t.Name
	}
	return fmt.Sprintf("%s (%s)", t.Name, t.Level)
}

func participant(row model.RankedScore) string {
	switch {
	case row.FullName != "":
		return row.FullName
	case row.Username != "":
		return "@" + row.Username
	}
	return "-"
}

// FormatDuration MM:SS
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
