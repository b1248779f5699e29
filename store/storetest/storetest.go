// Package storetest holds behaviour checks shared by every
// goAccount.UserStore implementation.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) goAccount.UserStore

// Run exercises the UserStore contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("CreateAssignsIDAndLooksUp", func(t *testing.T) { testCreate(t, newStore(t)) })
	t.Run("DuplicateEmail", func(t *testing.T) { testDuplicate(t, newStore(t)) })
	t.Run("MissingUser", func(t *testing.T) { testMissing(t, newStore(t)) })
	t.Run("RefreshIndex", func(t *testing.T) { testRefreshIndex(t, newStore(t)) })
	t.Run("ResetTakeOnce", func(t *testing.T) { testResetTakeOnce(t, newStore(t)) })
	t.Run("ResetOverwrite", func(t *testing.T) { testResetOverwrite(t, newStore(t)) })
	t.Run("ConcurrentTake", func(t *testing.T) { testConcurrentTake(t, newStore(t)) })
	t.Run("UpdatePasswordHash", func(t *testing.T) { testUpdatePassword(t, newStore(t)) })
}

func create(t *testing.T, s goAccount.UserStore, email string) *goAccount.User {
	t.Helper()
	u := &goAccount.User{Email: email, FirstName: "Alice", PasswordHash: "$argon2id$hash"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	require.NotEmpty(t, u.ID)
	return u
}

func state(hash string) goAccount.TokenState {
	return goAccount.TokenState{Hash: hash, ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func testCreate(t *testing.T, s goAccount.UserStore) {
	ctx := context.Background()
	u := create(t, s, "alice@example.com")

	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", byID.Email)
	assert.Equal(t, "Alice", byID.FirstName)
	assert.Equal(t, "$argon2id$hash", byID.PasswordHash)
	assert.False(t, byID.CreatedAt.IsZero())
	assert.True(t, byID.Refresh.IsZero())
	assert.True(t, byID.Reset.IsZero())

	byEmail, err := s.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)
}

func testDuplicate(t *testing.T, s goAccount.UserStore) {
	create(t, s, "alice@example.com")
	err := s.CreateUser(context.Background(), &goAccount.User{Email: "alice@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, goAccount.ErrAlreadyExists)
}

func testMissing(t *testing.T, s goAccount.UserStore) {
	ctx := context.Background()

	_, err := s.GetUserByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, goAccount.ErrNotFound)
	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, goAccount.ErrNotFound)
	_, err = s.GetUserByRefreshHash(ctx, "deadbeef")
	assert.ErrorIs(t, err, goAccount.ErrNotFound)
	_, err = s.TakeResetToken(ctx, "deadbeef")
	assert.ErrorIs(t, err, goAccount.ErrNotFound)
	err = s.SetRefreshToken(ctx, "00000000-0000-0000-0000-000000000000", state("h"))
	assert.ErrorIs(t, err, goAccount.ErrNotFound)
	err = s.UpdatePasswordHash(ctx, "00000000-0000-0000-0000-000000000000", "h")
	assert.ErrorIs(t, err, goAccount.ErrNotFound)
}

func testRefreshIndex(t *testing.T, s goAccount.UserStore) {
	ctx := context.Background()
	u := create(t, s, "alice@example.com")

	require.NoError(t, s.SetRefreshToken(ctx, u.ID, state("r1")))
	got, err := s.GetUserByRefreshHash(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "r1", got.Refresh.Hash)
	assert.True(t, got.Refresh.ExpiresAt.Equal(state("r1").ExpiresAt))

	require.NoError(t, s.SetRefreshToken(ctx, u.ID, state("r2")))
	_, err = s.GetUserByRefreshHash(ctx, "r1")
	assert.ErrorIs(t, err, goAccount.ErrNotFound)
	_, err = s.GetUserByRefreshHash(ctx, "r2")
	require.NoError(t, err)

	require.NoError(t, s.SetRefreshToken(ctx, u.ID, goAccount.TokenState{}))
	_, err = s.GetUserByRefreshHash(ctx, "r2")
	assert.ErrorIs(t, err, goAccount.ErrNotFound)
	got, err = s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.Refresh.IsZero())
}

func testResetTakeOnce(t *testing.T, s goAccount.UserStore) {
	ctx := context.Background()
	u := create(t, s, "alice@example.com")
	require.NoError(t, s.SetResetToken(ctx, u.ID, state("x1")))

	before, err := s.TakeResetToken(ctx, "x1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, before.ID)
	assert.Equal(t, "x1", before.Reset.Hash)

	_, err = s.TakeResetToken(ctx, "x1")
	assert.ErrorIs(t, err, goAccount.ErrNotFound)

	after, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, after.Reset.IsZero())
}

func testResetOverwrite(t *testing.T, s goAccount.UserStore) {
	ctx := context.Background()
	u := create(t, s, "alice@example.com")
	require.NoError(t, s.SetResetToken(ctx, u.ID, state("x1")))
	require.NoError(t, s.SetResetToken(ctx, u.ID, state("x2")))

	_, err := s.TakeResetToken(ctx, "x1")
	assert.ErrorIs(t, err, goAccount.ErrNotFound)
	_, err = s.TakeResetToken(ctx, "x2")
	assert.NoError(t, err)
}

func testConcurrentTake(t *testing.T, s goAccount.UserStore) {
	ctx := context.Background()
	u := create(t, s, "alice@example.com")
	require.NoError(t, s.SetResetToken(ctx, u.ID, state("x1")))

	const n = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.TakeResetToken(ctx, "x1"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func testUpdatePassword(t *testing.T, s goAccount.UserStore) {
	ctx := context.Background()
	u := create(t, s, "alice@example.com")
	require.NoError(t, s.SetRefreshToken(ctx, u.ID, state("r1")))

	require.NoError(t, s.UpdatePasswordHash(ctx, u.ID, "$argon2id$new"))
	got, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "$argon2id$new", got.PasswordHash)
	assert.Equal(t, "r1", got.Refresh.Hash)
}
