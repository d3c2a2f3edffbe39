package tests_list_handler

import (
	"testing"

	"github.com/IT-Nick/testbot/internal/domain/model"
	testsService "github.com/IT-Nick/testbot/internal/domain/tests/service"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	infos := []testsService.DefinitionInfo{
		{TestDefinition: model.TestDefinition{ID: "test_a", Name: "Grammar <B1>", Level: "B1", QuestionCount: 10, TimeLimitMinutes: 15}, StoredQuestions: 10, Active: true},
		{TestDefinition: model.TestDefinition{ID: "test_b", QuestionCount: 5, TimeLimitMinutes: 5}, StoredQuestions: 2},
	}

	text := Format(infos)
	assert.Contains(t, text, "1. <b>Grammar &lt;B1&gt;</b> (B1) 🟢 активен")
	assert.Contains(t, text, "<code>test_a</code> · вопросов 10/10 · 15 мин")
	assert.Contains(t, text, "2. <b>без названия</b>\n<code>test_b</code> · вопросов 2/5 · 5 мин")
}
