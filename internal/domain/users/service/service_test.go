package service

import (
	"context"
	"strings"
	"testing"

	"github.com/IT-Nick/testbot/internal/domain/users/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetFullName(t *testing.T) {
	ctx := context.Background()
	s := NewUserService(repository.NewMemoryUserRepository())
	require.NoError(t, s.Touch(ctx, 42, "ivan"))

	name, err := s.SetFullName(ctx, 42, "  Иван    Петров ")
	require.NoError(t, err)
	assert.Equal(t, "Иван Петров", name)

	user, err := s.GetUserByTelegramID(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "Иван Петров", user.FullName)
	assert.Equal(t, "ivan", user.Username)
}

func TestSetFullName_Length(t *testing.T) {
	ctx := context.Background()
	s := NewUserService(repository.NewMemoryUserRepository())

	for _, name := range []string{"", "Ян", "   ", strings.Repeat("я", 65)} {
		_, err := s.SetFullName(ctx, 1, name)
		assert.ErrorIs(t, err, ErrInvalidFullName, "name %q", name)
	}

	_, err := s.SetFullName(ctx, 1, "Ина")
	assert.NoError(t, err)
	_, err = s.SetFullName(ctx, 1, strings.Repeat("я", 64))
	assert.NoError(t, err)
}

func TestGetUserByTelegramID_Missing(t *testing.T) {
	s := NewUserService(repository.NewMemoryUserRepository())
	user, err := s.GetUserByTelegramID(context.Background(), 7)
	require.NoError(t, err)
	assert.Nil(t, user)
}
