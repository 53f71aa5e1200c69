package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/franckmandon/vinylib-sub000/internal/domain"
	apperr "github.com/franckmandon/vinylib-sub000/internal/errors"
	"github.com/franckmandon/vinylib-sub000/internal/logger"
	"github.com/franckmandon/vinylib-sub000/internal/store"
	"github.com/franckmandon/vinylib-sub000/internal/store/memory"
)

func TestUsersCreateUniqueness(t *testing.T) {
	ctx := context.Background()
	users := store.NewUsers(memory.New(), testOptions(), logger.Nop())

	alice, err := users.Create(ctx, &domain.User{ID: "u1", Email: "alice@example.com", Username: "Alice", CredentialHash: "h"})
	require.NoError(t, err)
	assert.False(t, alice.CreatedAt.IsZero())

	tests := []struct {
		name string
		user *domain.User
	}{
		{"same email other case", &domain.User{ID: "u2", Email: "ALICE@example.com", Username: "other"}},
		{"same username other case", &domain.User{ID: "u3", Email: "other@example.com", Username: "alice"}},
		{"same id", &domain.User{ID: "u1", Email: "x@example.com", Username: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := users.Create(ctx, tt.user)
			assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
		})
	}

	got, err := users.GetByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)

	n, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = users.Get(ctx, "nope")
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))
}
