package service

import (
	"context"
	"errors"
	"testing"

	"github.com/IT-Nick/testbot/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	texts map[string]string
	err   error
}

func (r stubRepo) GetMessageByKey(_ context.Context, key string) (string, error) {
	return r.texts[key], r.err
}

func TestGetMessageByKey_StoredOverridesDefault(t *testing.T) {
	s := NewMessageService(stubRepo{texts: map[string]string{model.NoActiveTestKey: "Тестов нет"}})

	text, err := s.GetMessageByKey(context.Background(), model.NoActiveTestKey)
	require.NoError(t, err)
	assert.Equal(t, "Тестов нет", text)

	text, err = s.GetMessageByKey(context.Background(), model.TimeIsUpKey)
	require.NoError(t, err)
	assert.Equal(t, defaults[model.TimeIsUpKey], text)
}

func TestGetMessageByKey_Error(t *testing.T) {
	s := NewMessageService(stubRepo{err: errors.New("db down")})

	_, err := s.GetMessageByKey(context.Background(), model.NoActiveTestKey)
	assert.Error(t, err)
	assert.Equal(t, defaults[model.NoActiveTestKey], s.Text(context.Background(), model.NoActiveTestKey))
}

func TestDefaultsCoverAllKeys(t *testing.T) {
	for _, key := range []string{
		model.WelcomeMessageKey,
		model.NoActiveTestKey,
		model.AskFullNameKey,
		model.ResultsClosedKey,
		model.AttemptSubmittedKey,
		model.TimeIsUpKey,
	} {
		assert.NotEmpty(t, defaults[key], key)
	}
}
