package middleware

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/telebot.v4"
)

type fakeContext struct {
	telebot.Context
	sender    *telebot.User
	message   *telebot.Message
	callback  *telebot.Callback
	sent      []interface{}
	responses []*telebot.CallbackResponse
}

func (f *fakeContext) Sender() *telebot.User       { return f.sender }
func (f *fakeContext) Message() *telebot.Message   { return f.message }
func (f *fakeContext) Callback() *telebot.Callback { return f.callback }
func (f *fakeContext) Update() telebot.Update      { return telebot.Update{ID: 77} }

func (f *fakeContext) Send(what interface{}, _ ...interface{}) error {
	f.sent = append(f.sent, what)
	return nil
}

func (f *fakeContext) Respond(resp ...*telebot.CallbackResponse) error {
	f.responses = append(f.responses, resp...)
	return nil
}

func TestAdminOnly(t *testing.T) {
	called := false
	next := func(telebot.Context) error { called = true; return nil }
	h := AdminOnly(func(id int64) bool { return id == 1 })(next)

	admin := &fakeContext{sender: &telebot.User{ID: 1}}
	require.NoError(t, h(admin))
	assert.True(t, called)

	called = false
	user := &fakeContext{sender: &telebot.User{ID: 2}}
	require.NoError(t, h(user))
	assert.False(t, called)
	assert.Equal(t, []interface{}{adminOnlyText}, user.sent)

	button := &fakeContext{sender: &telebot.User{ID: 2}, callback: &telebot.Callback{Unique: "x"}}
	require.NoError(t, h(button))
	require.Len(t, button.responses, 1)
	assert.Empty(t, button.sent)
}

func TestRecover(t *testing.T) {
	var handled error
	h := Recover(zap.NewNop(), func(err error, _ telebot.Context) { handled = err })(func(telebot.Context) error {
		panic("boom")
	})

	err := h(&fakeContext{})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, err, handled)
}

func TestRecover_PassesThroughErrors(t *testing.T) {
	want := errors.New("plain")
	h := Recover(zap.NewNop())(func(telebot.Context) error { return want })
	assert.Equal(t, want, h(&fakeContext{}))
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	h := Logger(zap.New(core))(func(telebot.Context) error { return errors.New("nope") })

	err := h(&fakeContext{sender: &telebot.User{ID: 5, Username: "u"}, message: &telebot.Message{Text: "/start"}})
	require.Error(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "update handled with error", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "command:/start", fields["action"])
	assert.Equal(t, int64(5), fields["user_id"])
}
