// ABOUTME: Tests for per-member activity counters
// ABOUTME: Covers increments, overwrites, last-online handling and the leaderboard

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateUserStats_Increments(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpdateUserStats(ctx, 9, 42, StatsDelta{Messages: 1}))
	require.NoError(t, store.UpdateUserStats(ctx, 9, 42, StatsDelta{Messages: 2, VoiceTime: 60}))

	stat, err := store.GetUserStats(ctx, 9, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), stat.UserID)
	assert.Equal(t, int64(3), stat.Messages)
	assert.Equal(t, int64(60), stat.VoiceTime)
	assert.Nil(t, stat.LastOnline)
	assert.False(t, stat.CreatedAt.IsZero())
	assert.Equal(t, 1, countRows(t, store, 9, "user_stats"))
}

func TestUpdateUserStats_LastOnline(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	seen := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpdateUserStats(ctx, 9, 42, StatsDelta{LastOnline: &seen}))
	// A delta without LastOnline keeps the stored value.
	require.NoError(t, store.UpdateUserStats(ctx, 9, 42, StatsDelta{Messages: 1}))

	stat, err := store.GetUserStats(ctx, 9, 42)
	require.NoError(t, err)
	require.NotNil(t, stat.LastOnline)
	assert.True(t, seen.Equal(*stat.LastOnline))
}

func TestSetUserStats_Overwrites(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpdateUserStats(ctx, 9, 42, StatsDelta{Messages: 100}))

	stat := &UserStat{UserID: 42, Messages: 5, VoiceTime: 30}
	require.NoError(t, store.SetUserStats(ctx, 9, stat))
	require.NoError(t, store.SetUserStats(ctx, 9, stat))

	got, err := store.GetUserStats(ctx, 9, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.Messages)
	assert.Equal(t, int64(30), got.VoiceTime)
}

func TestGetUserStats_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetUserStats(context.Background(), 9, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTopUserStats(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpdateUserStats(ctx, 9, 1, StatsDelta{Messages: 5}))
	require.NoError(t, store.UpdateUserStats(ctx, 9, 2, StatsDelta{Messages: 50}))
	require.NoError(t, store.UpdateUserStats(ctx, 9, 3, StatsDelta{Messages: 20}))

	top, err := store.TopUserStats(ctx, 9, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(2), top[0].UserID)
	assert.Equal(t, int64(3), top[1].UserID)

	all, err := store.TopUserStats(ctx, 9, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
