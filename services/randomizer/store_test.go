package randomizer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/penguinencounter/cohost-randombot/lib/sqliteutil"
	"github.com/penguinencounter/cohost-randombot/services/randomizer/db"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	database, err := sqliteutil.OpenDB(db.Schema, filepath.Join(t.TempDir(), "randomizer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func TestCursor(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	last, err := store.Cursor(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, last)

	require.NoError(t, store.SetCursor(ctx, 1234))
	last, err = store.Cursor(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1234, last)

	// overwrites, never accumulates rows
	require.NoError(t, store.SetCursor(ctx, 5678))
	last, err = store.Cursor(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 5678, last)
}

func TestShareLog(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	sharedAt := time.Date(2023, time.June, 1, 12, 0, 0, 0, time.UTC)
	records := []ShareRecord{
		{
			SharePostID:  201,
			SourcePostID: 150,
			SourceHandle: "artist",
			VerifiedTag:  "art",
			SharedAt:     sharedAt,
		},
		{
			SharePostID:  202,
			SourcePostID: 160,
			SourceHandle: "poet",
			VerifiedTag:  "poetry",
			SharedAt:     sharedAt.Add(time.Hour),
		},
	}
	for _, rec := range records {
		require.NoError(t, store.RecordShare(ctx, rec))
	}

	got, err := store.Shares(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for i := range got {
		require.True(t, got[i].SharedAt.Equal(records[i].SharedAt))
		got[i].SharedAt = records[i].SharedAt
	}
	diff := cmp.Diff(records, got)
	require.Empty(t, diff)
}
