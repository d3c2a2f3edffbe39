package sessions

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/IT-Nick/testbot/internal/domain/model"
	"github.com/IT-Nick/testbot/internal/infra/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKV struct {
	data map[string][]byte
	ttl  map[string]time.Duration
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte), ttl: make(map[string]time.Duration)}
}

func (f *fakeKV) Set(_ context.Context, key string, value []byte, expiration time.Duration) error {
	f.data[key] = value
	f.ttl[key] = expiration
	return nil
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := f.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	return v, nil
}

func (f *fakeKV) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func sample() model.Session {
	return model.Session{
		UserID:            10,
		ChatID:            20,
		Mode:              model.ModeInTest,
		Token:             "ABC1234",
		TestID:            "test_1",
		Index:             2,
		Skipped:           []int{1},
		TimerMessageID:    5,
		QuestionMessageID: 6,
	}
}

func TestStores_RoundTrip(t *testing.T) {
	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"json":   NewJSONStore(filepath.Join(t.TempDir(), "sessions.json")),
		"redis":  NewRedisStore(newFakeKV(), time.Hour),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			got, err := store.Get(ctx, 10)
			require.NoError(t, err)
			assert.Nil(t, got)

			require.NoError(t, store.Set(ctx, sample()))
			got, err = store.Get(ctx, 10)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, sample(), *got)

			require.NoError(t, store.Delete(ctx, 10))
			got, err = store.Get(ctx, 10)
			require.NoError(t, err)
			assert.Nil(t, got)

			assert.NoError(t, store.Delete(ctx, 10))
		})
	}
}

func TestMemoryStore_CopiesSkipped(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := sample()
	require.NoError(t, store.Set(ctx, s))

	got, err := store.Get(ctx, s.UserID)
	require.NoError(t, err)
	got.MarkSkipped(3)

	again, err := store.Get(ctx, s.UserID)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, again.Skipped)
}

func TestRedisStore_KeyAndTTL(t *testing.T) {
	kv := newFakeKV()
	store := NewRedisStore(kv, 24*time.Hour)
	require.NoError(t, store.Set(context.Background(), sample()))

	assert.Contains(t, kv.data, "session:10")
	assert.Equal(t, 24*time.Hour, kv.ttl["session:10"])
}

type brokenKV struct{ *fakeKV }

func (brokenKV) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}

func TestRedisStore_PropagatesErrors(t *testing.T) {
	store := NewRedisStore(brokenKV{newFakeKV()}, time.Hour)
	_, err := store.Get(context.Background(), 1)
	assert.ErrorContains(t, err, "connection refused")
}
