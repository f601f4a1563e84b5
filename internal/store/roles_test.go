// ABOUTME: Tests for role menu configuration
// ABOUTME: Covers Add (upsert), Remove and the map returned by GetRoleConfig

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleConfig_Add(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.AddRoleConfig(ctx, 9, &RoleConfig{RoleID: 555, Name: "VIP", Emoji: "⭐"})
	require.NoError(t, err)

	roles, err := store.GetRoleConfig(ctx, 9)
	require.NoError(t, err)
	require.Contains(t, roles, "555")
	assert.Equal(t, int64(555), roles["555"].RoleID)
	assert.Equal(t, "VIP", roles["555"].Name)
	assert.Equal(t, "", roles["555"].Description)
	assert.Equal(t, "⭐", roles["555"].Emoji)
}

func TestRoleConfig_Add_Upserts(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddRoleConfig(ctx, 9, &RoleConfig{RoleID: 555, Name: "VIP"}))
	first, err := store.GetRoleConfig(ctx, 9)
	require.NoError(t, err)

	require.NoError(t, store.AddRoleConfig(ctx, 9, &RoleConfig{RoleID: 555, Name: "Gold", Description: "big spender"}))

	roles, err := store.GetRoleConfig(ctx, 9)
	require.NoError(t, err)
	assert.Len(t, roles, 1, "adding an existing role should replace it")
	assert.Equal(t, "Gold", roles["555"].Name)
	assert.Equal(t, "big spender", roles["555"].Description)
	assert.True(t, first["555"].CreatedAt.Equal(roles["555"].CreatedAt))
}

func TestRoleConfig_Remove(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AddRoleConfig(ctx, 9, &RoleConfig{RoleID: 555, Name: "VIP"}))
	require.NoError(t, store.AddRoleConfig(ctx, 9, &RoleConfig{RoleID: 556, Name: "Member"}))

	require.NoError(t, store.RemoveRoleConfig(ctx, 9, 555))

	roles, err := store.GetRoleConfig(ctx, 9)
	require.NoError(t, err)
	assert.NotContains(t, roles, "555")
	assert.Contains(t, roles, "556")
}

func TestRoleConfig_Remove_Idempotent(t *testing.T) {
	store := setupTestStore(t)

	err := store.RemoveRoleConfig(context.Background(), 9, 999)
	require.NoError(t, err, "removing non-existent role should be idempotent")
}

func TestRoleConfig_Empty(t *testing.T) {
	store := setupTestStore(t)

	roles, err := store.GetRoleConfig(context.Background(), 9)
	require.NoError(t, err)
	assert.NotNil(t, roles)
	assert.Empty(t, roles)
}
