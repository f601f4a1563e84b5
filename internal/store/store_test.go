// ABOUTME: Shared helpers for store tests
// ABOUTME: Creates a Store in a temporary directory and inspects raw table contents

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := New(t.TempDir(), Options{MaxOpen: 8, IdleTimeout: time.Minute})
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

// countRows counts the rows of a table in a guild database.
func countRows(t *testing.T, s *Store, guildID int64, table string) int {
	t.Helper()

	db, release, err := s.conn(context.Background(), guildID)
	require.NoError(t, err)
	defer release()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}
