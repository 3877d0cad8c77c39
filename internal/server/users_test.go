package server

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_DuplicateUsername(t *testing.T) {
	store := newMemUserStore()
	ctx := context.Background()

	first, err := store.Register(ctx, "a@example.com", "alice", "hunter21")
	require.NoError(t, err)

	_, err = store.Register(ctx, "other@example.com", "alice", "hunter21")
	assert.ErrorIs(t, err, ErrDuplicateKey)

	// The first registration survives and stays authenticable.
	got, err := store.ByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	authed, err := store.Authenticate(ctx, "alice", "hunter21")
	require.NoError(t, err)
	assert.Equal(t, first.ID, authed.ID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	store := newMemUserStore()
	ctx := context.Background()

	_, err := store.Register(ctx, "a@example.com", "alice", "hunter21")
	require.NoError(t, err)

	_, err = store.Register(ctx, "A@Example.com", "bob", "hunter21")
	assert.ErrorIs(t, err, ErrDuplicateKey, "email comparison is case-insensitive")
}

func TestRegister_EmptyPassword(t *testing.T) {
	store := newMemUserStore()

	_, err := store.Register(context.Background(), "a@example.com", "alice", "   ")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	store := newMemUserStore()
	ctx := context.Background()

	_, err := store.Register(ctx, "a@example.com", "alice", "hunter21")
	require.NoError(t, err)

	user, err := store.Authenticate(ctx, "alice", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, user, "no user record is returned on failure")
}

func TestAuthenticate_UnknownUser(t *testing.T) {
	store := newMemUserStore()

	user, err := store.Authenticate(context.Background(), "nobody", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, user)
}

func TestByID_NotFound(t *testing.T) {
	store := newMemUserStore()

	_, err := store.ByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPasswordHashing_SaltedPerUser(t *testing.T) {
	h1, err := hashPassword("same-password")
	require.NoError(t, err)
	h2, err := hashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "each hash carries its own salt")
	assert.True(t, verifyPassword("same-password", h1))
	assert.True(t, verifyPassword("same-password", h2))
	assert.False(t, verifyPassword("other", h1))
}
