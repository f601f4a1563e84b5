// ABOUTME: Tests for the legacy import ledger
// ABOUTME: Covers recording, lookup and the all-or-nothing warnings import

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegacyImport_RecordAndLookup(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	imported, err := store.LegacyImported(ctx, 9, "warns.json", "abc")
	require.NoError(t, err)
	assert.False(t, imported)

	imp := &LegacyImport{Source: "warns.json", Checksum: "abc", RunID: "run-1"}
	require.NoError(t, store.RecordLegacyImport(ctx, 9, imp))
	require.NoError(t, store.RecordLegacyImport(ctx, 9, imp), "recording twice should be idempotent")

	imported, err = store.LegacyImported(ctx, 9, "warns.json", "abc")
	require.NoError(t, err)
	assert.True(t, imported)

	imported, err = store.LegacyImported(ctx, 9, "warns.json", "def")
	require.NoError(t, err)
	assert.False(t, imported, "changed content is a different snapshot")

	list, err := store.ListLegacyImports(ctx, 9)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "run-1", list[0].RunID)
}

func TestImportWarnings(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	at := time.Date(2023, 5, 4, 10, 30, 0, 0, time.UTC)
	warnings := []*Warning{
		{UserID: 42, Reason: "spam", AuthorID: 1, CreatedAt: at},
		{UserID: 42, Reason: "caps", AuthorID: 2, CreatedAt: at.Add(time.Hour)},
	}
	imp := &LegacyImport{Source: "warns.json", Checksum: "abc", RunID: "run-1"}

	require.NoError(t, store.ImportWarnings(ctx, 9, warnings, imp))

	got, err := store.GetWarnings(ctx, 9, 42)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, at.Equal(got[0].CreatedAt), "original timestamp should be kept")
	assert.Equal(t, "caps", got[1].Reason)

	imported, err := store.LegacyImported(ctx, 9, "warns.json", "abc")
	require.NoError(t, err)
	assert.True(t, imported)

	// New warnings continue the count.
	n, err := store.AddWarning(ctx, 9, 42, "again", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestImportWarnings_SameSnapshotTwice(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	warnings := []*Warning{{UserID: 42, Reason: "spam", AuthorID: 1, CreatedAt: time.Now()}}
	imp := &LegacyImport{Source: "warns.json", Checksum: "abc", RunID: "run-1"}

	require.NoError(t, store.ImportWarnings(ctx, 9, warnings, imp))

	again := &LegacyImport{Source: "warns.json", Checksum: "abc", RunID: "run-2"}
	err := store.ImportWarnings(ctx, 9, warnings, again)
	assert.ErrorIs(t, err, ErrAlreadyImported)

	assert.Equal(t, 1, countRows(t, store, 9, "warnings"))
	assert.Equal(t, 1, countRows(t, store, 9, "legacy_imports"))
}

func TestImportWarnings_ConcurrentImportsInsertOnce(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	at := time.Date(2023, 5, 4, 10, 30, 0, 0, time.UTC)
	warnings := []*Warning{
		{UserID: 42, Reason: "spam", AuthorID: 1, CreatedAt: at},
		{UserID: 43, Reason: "caps", AuthorID: 1, CreatedAt: at},
	}

	const importers = 8
	errs := make([]error, importers)
	var wg sync.WaitGroup
	for i := 0; i < importers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			imp := &LegacyImport{Source: "warns.json", Checksum: "abc", RunID: "run"}
			errs[i] = store.ImportWarnings(ctx, 9, warnings, imp)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyImported)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, countRows(t, store, 9, "warnings"))
}

func TestImportUserStats_NotReappliedOverLiveCounters(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	imp := &LegacyImport{Source: "stats.json", Checksum: "abc", RunID: "run-1"}
	require.NoError(t, store.ImportUserStats(ctx, 9, []*UserStat{{UserID: 42, Messages: 5}}, imp))

	require.NoError(t, store.UpdateUserStats(ctx, 9, 42, StatsDelta{Messages: 100}))

	err := store.ImportUserStats(ctx, 9, []*UserStat{{UserID: 42, Messages: 5}}, imp)
	assert.ErrorIs(t, err, ErrAlreadyImported)

	stat, err := store.GetUserStats(ctx, 9, 42)
	require.NoError(t, err)
	assert.Equal(t, int64(105), stat.Messages)
}
