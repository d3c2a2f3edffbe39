package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/IT-Nick/testbot/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_WritesPDF(t *testing.T) {
	summary := &model.ResultsSummary{
		Test:             model.ActiveTest{TestID: "test_1", Name: "Грамматика", Level: "B1", TimeLimitMinutes: 10},
		Participants:     2,
		AverageScore:     75,
		AverageTimeSpent: 4*time.Minute + 30*time.Second,
		Top: []model.RankedScore{
			{Score: model.Score{UserID: 1, Score: 100, MaxScore: 100, CorrectAnswers: 4, TotalQuestions: 4, TimeLeft: 120}, FullName: "Иван Петров"},
			{Score: model.Score{UserID: 2, Score: 50, MaxScore: 100, CorrectAnswers: 2, TotalQuestions: 4, AutoFinished: true}, Username: "anna"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewGenerator("").Generate(&buf, summary, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestGenerate_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewGenerator("").Generate(&buf, &model.ResultsSummary{Test: model.ActiveTest{TestID: "test_1"}}, time.Now()))
	assert.NotZero(t, buf.Len())
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "00:00", FormatDuration(-time.Second))
	assert.Equal(t, "01:05", FormatDuration(65*time.Second))
	assert.Equal(t, "12:00", FormatDuration(12*time.Minute))
}
