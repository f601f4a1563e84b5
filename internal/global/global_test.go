// ABOUTME: Tests for the global registry and access lists
// ABOUTME: Covers registration upserts, list idempotence, list types and persistence across reopen

package global

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := New(filepath.Join(t.TempDir(), "databases", FileName))
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func TestRegisterGuild(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RegisterGuild(ctx, 9, "Test Guild"))

	g, err := store.GetGuild(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), g.GuildID)
	assert.Equal(t, "Test Guild", g.Name)
	assert.False(t, g.JoinedAt.IsZero())
	assert.Equal(t, g.JoinedAt, g.LastSeen)
}

func TestRegisterGuild_RefreshesLastSeen(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	// Backdate the row so the refresh is observable at second precision.
	require.NoError(t, store.RegisterGuild(ctx, 9, "Old Name"))
	past := formatTime(time.Now().Add(-time.Hour))
	_, err := store.db.Exec(`UPDATE registered_guilds SET joined_at = ?, last_seen = ? WHERE guild_id = 9`, past, past)
	require.NoError(t, err)

	require.NoError(t, store.RegisterGuild(ctx, 9, "New Name"))

	g, err := store.GetGuild(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "New Name", g.Name)
	assert.Equal(t, past, formatTime(g.JoinedAt), "joined_at must be preserved")
	assert.True(t, g.LastSeen.After(g.JoinedAt))

	guilds, err := store.ListGuilds(ctx)
	require.NoError(t, err)
	assert.Len(t, guilds, 1)
}

func TestGetGuild_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetGuild(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListGuilds(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, id := range []int64{30, 10, 20} {
		require.NoError(t, store.RegisterGuild(ctx, id, "g"))
	}

	guilds, err := store.ListGuilds(ctx)
	require.NoError(t, err)
	require.Len(t, guilds, 3)
	assert.Equal(t, int64(10), guilds[0].GuildID)
	assert.Equal(t, int64(20), guilds[1].GuildID)
	assert.Equal(t, int64(30), guilds[2].GuildID)
}

func TestAccessList_AddRemove(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddToList(ctx, 111, Blacklist, "spam", 1))

	listed, err := store.IsListed(ctx, 111, Blacklist)
	require.NoError(t, err)
	assert.True(t, listed)

	listed, err = store.IsListed(ctx, 111, Whitelist)
	require.NoError(t, err)
	assert.False(t, listed, "lists are independent")

	require.NoError(t, store.RemoveFromList(ctx, 111, Blacklist))

	listed, err = store.IsListed(ctx, 111, Blacklist)
	require.NoError(t, err)
	assert.False(t, listed)
}

func TestAccessList_AddIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddToList(ctx, 111, Whitelist, "partner", 1))
	require.NoError(t, store.AddToList(ctx, 111, Whitelist, "renewed", 2))

	entries, err := store.ListEntries(ctx, Whitelist)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "renewed", entries[0].Reason)
	assert.Equal(t, int64(2), entries[0].AddedBy)
	assert.Equal(t, Whitelist, entries[0].ListType)

	n, err := store.ListSize(ctx, Whitelist)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAccessList_RemoveIdempotent(t *testing.T) {
	store := setupTestStore(t)

	err := store.RemoveFromList(context.Background(), 999, Blacklist)
	require.NoError(t, err, "removing an absent entry should be idempotent")
}

func TestAccessList_InvalidType(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.AddToList(ctx, 1, ListType("greylist"), "", 0), ErrInvalidListType)
	assert.ErrorIs(t, store.RemoveFromList(ctx, 1, ListType("")), ErrInvalidListType)
}

func TestParseListType(t *testing.T) {
	lt, err := ParseListType(" Blacklist ")
	require.NoError(t, err)
	assert.Equal(t, Blacklist, lt)

	lt, err = ParseListType("whitelist")
	require.NoError(t, err)
	assert.Equal(t, Whitelist, lt)

	_, err = ParseListType("allow")
	assert.ErrorIs(t, err, ErrInvalidListType)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	ctx := context.Background()

	store, err := New(path)
	require.NoError(t, err)
	require.NoError(t, store.RegisterGuild(ctx, 9, "g"))
	require.NoError(t, store.AddToList(ctx, 9, Blacklist, "spam", 1))
	require.NoError(t, store.Close())

	store, err = New(path)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.GetGuild(ctx, 9)
	require.NoError(t, err)
	listed, err := store.IsListed(ctx, 9, Blacklist)
	require.NoError(t, err)
	assert.True(t, listed)
}
