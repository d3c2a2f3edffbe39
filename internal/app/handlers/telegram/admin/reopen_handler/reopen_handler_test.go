package reopen_handler

import (
	"context"
	"testing"

	"github.com/IT-Nick/testbot/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/telebot.v4"
)

type fakeContext struct {
	telebot.Context
	payload string
	sent    []interface{}
}

func (f *fakeContext) Sender() *telebot.User { return &telebot.User{ID: 1} }
func (f *fakeContext) Message() *telebot.Message {
	return &telebot.Message{Text: "/reopen_test " + f.payload, Payload: f.payload}
}

func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	f.sent = append(f.sent, what)
	return nil
}

type stubAttempts struct {
	attempt *model.Attempt
	err     error
}

func (s stubAttempts) Reopen(context.Context, string) (*model.Attempt, error) {
	return s.attempt, s.err
}

type recordingAbandoner struct {
	abandoned []model.Attempt
}

func (r *recordingAbandoner) Abandon(_ context.Context, attempt model.Attempt) {
	r.abandoned = append(r.abandoned, attempt)
}

func TestHandle_ReopensAndAbandons(t *testing.T) {
	attempt := &model.Attempt{Token: "ABC1234", UserID: 77}
	runner := &recordingAbandoner{}
	h := NewReopenHandler(stubAttempts{attempt: attempt}, runner, zap.NewNop())

	c := &fakeContext{payload: "77"}
	require.NoError(t, h.Handle(c))
	assert.Equal(t, []model.Attempt{*attempt}, runner.abandoned)
	require.Len(t, c.sent, 1)
	assert.Contains(t, c.sent[0], "ABC1234")
}

func TestHandle_NotFound(t *testing.T) {
	runner := &recordingAbandoner{}
	h := NewReopenHandler(stubAttempts{err: model.ErrAttemptNotFound}, runner, zap.NewNop())

	c := &fakeContext{payload: "XYZ"}
	require.NoError(t, h.Handle(c))
	assert.Empty(t, runner.abandoned)
	assert.Contains(t, c.sent[0], "не найдена")
}

func TestHandle_RequiresIdentifier(t *testing.T) {
	h := NewReopenHandler(stubAttempts{}, &recordingAbandoner{}, zap.NewNop())

	c := &fakeContext{}
	require.NoError(t, h.Handle(c))
	assert.Contains(t, c.sent[0], "Использование")
}
