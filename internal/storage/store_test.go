package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tubesort/internal/tabs"
)

// openTestStore creates a migrated in-memory Store for testing.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every pooled connection to :memory: would get its own empty database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	store, err := NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func i64(v int64) *int64 { return &v }

// --- PutMetadata + GetMetadata roundtrip ---

func TestPutMetadata_GetMetadata_Roundtrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	upload := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	md := &tabs.Metadata{
		VideoID:    "dQw4w9WgXcQ",
		Title:      "Never Gonna Give You Up",
		Author:     "Rick Astley",
		Views:      1_500_000_000,
		UploadDate: upload,
		Duration:   213,
		Skipped:    i64(200),
	}
	require.NoError(t, store.PutMetadata(ctx, md))
	assert.False(t, md.UpdatedAt.IsZero(), "updated_at should be populated")

	got, err := store.GetMetadata(ctx, "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Never Gonna Give You Up", got.Title)
	assert.Equal(t, "Rick Astley", got.Author)
	assert.Equal(t, int64(1_500_000_000), got.Views)
	assert.True(t, upload.Equal(got.UploadDate))
	assert.Equal(t, int64(213), got.Duration)
	assert.Nil(t, got.Premiere)
	require.NotNil(t, got.Skipped)
	assert.Equal(t, int64(200), *got.Skipped)
	assert.False(t, got.Live)
	assert.False(t, got.Playlist)
}

func TestPutMetadata_ZeroUploadDateStaysZero(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutMetadata(ctx, &tabs.Metadata{VideoID: "liveStream1", Live: true, Premiere: i64(3600)}))

	got, err := store.GetMetadata(ctx, "liveStream1")
	require.NoError(t, err)
	assert.True(t, got.UploadDate.IsZero())
	assert.True(t, got.Live)
	require.NotNil(t, got.Premiere)
	assert.Equal(t, int64(3600), *got.Premiere)
}

func TestPutMetadata_RequiresVideoID(t *testing.T) {
	store := openTestStore(t)

	err := store.PutMetadata(context.Background(), &tabs.Metadata{Title: "no id"})
	assert.Error(t, err)
}

func TestPutMetadata_ReplacesExisting(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutMetadata(ctx, &tabs.Metadata{VideoID: "aaaaaaaaaaa", Title: "Old", Views: 1}))
	require.NoError(t, store.PutMetadata(ctx, &tabs.Metadata{VideoID: "aaaaaaaaaaa", Title: "New", Views: 2}))

	got, err := store.GetMetadata(ctx, "aaaaaaaaaaa")
	require.NoError(t, err)
	assert.Equal(t, "New", got.Title)
	assert.Equal(t, int64(2), got.Views)

	// The search index follows the replacement.
	old, err := store.SearchMetadata(ctx, SearchQuery{Query: "Old"})
	require.NoError(t, err)
	assert.Empty(t, old)

	found, err := store.SearchMetadata(ctx, SearchQuery{Query: "New"})
	require.NoError(t, err)
	require.Len(t, found, 1)
}

func TestGetMetadata_NotFound(t *testing.T) {
	store := openTestStore(t)

	_, err := store.GetMetadata(context.Background(), "missingvid1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- AllMetadata / DeleteMetadata ---

func TestAllMetadata(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	all, err := store.AllMetadata(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	require.NoError(t, store.PutMetadata(ctx, &tabs.Metadata{VideoID: "aaaaaaaaaaa", Title: "A"}))
	require.NoError(t, store.PutMetadata(ctx, &tabs.Metadata{VideoID: "bbbbbbbbbbb", Title: "B"}))

	all, err = store.AllMetadata(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A", all["aaaaaaaaaaa"].Title)
	assert.Equal(t, "B", all["bbbbbbbbbbb"].Title)
}

func TestDeleteMetadata(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutMetadata(ctx, &tabs.Metadata{VideoID: "aaaaaaaaaaa", Title: "Alpha"}))
	require.NoError(t, store.PutMetadata(ctx, &tabs.Metadata{VideoID: "bbbbbbbbbbb", Title: "Beta"}))

	n, err := store.DeleteMetadata(ctx, "aaaaaaaaaaa", "notcached01")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.GetMetadata(ctx, "aaaaaaaaaaa")
	assert.ErrorIs(t, err, ErrNotFound)

	found, err := store.SearchMetadata(ctx, SearchQuery{Query: "Alpha"})
	require.NoError(t, err)
	assert.Empty(t, found, "deleted video should leave the search index")

	n, err = store.DeleteMetadata(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

// --- SearchMetadata ---

func seedSearch(t *testing.T, store *SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	videos := []tabs.Metadata{
		{VideoID: "aaaaaaaaaaa", Title: "Learning Go Concurrency", Author: "GopherCon"},
		{VideoID: "bbbbbbbbbbb", Title: "Rust for Gophers", Author: "RustConf", Live: true},
		{VideoID: "ccccccccccc", Title: "Baking Bread", Author: "Kitchen", Playlist: true},
	}
	for i := range videos {
		require.NoError(t, store.PutMetadata(ctx, &videos[i]))
	}
}

func TestSearchMetadata_FullText(t *testing.T) {
	store := openTestStore(t)
	seedSearch(t, store)
	ctx := context.Background()

	// Prefix match on title words.
	res, err := store.SearchMetadata(ctx, SearchQuery{Query: "gopher"})
	require.NoError(t, err)
	require.Len(t, res, 2)
	// Ordered by title.
	assert.Equal(t, "Learning Go Concurrency", res[0].Title)
	assert.Equal(t, "Rust for Gophers", res[1].Title)

	res, err = store.SearchMetadata(ctx, SearchQuery{Query: "bread"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "ccccccccccc", res[0].VideoID)
}

func TestSearchMetadata_Filters(t *testing.T) {
	store := openTestStore(t)
	seedSearch(t, store)
	ctx := context.Background()

	res, err := store.SearchMetadata(ctx, SearchQuery{Live: true})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "bbbbbbbbbbb", res[0].VideoID)

	res, err = store.SearchMetadata(ctx, SearchQuery{Playlist: true})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "ccccccccccc", res[0].VideoID)

	res, err = store.SearchMetadata(ctx, SearchQuery{Author: "kitchen"})
	require.NoError(t, err)
	require.Len(t, res, 1)

	res, err = store.SearchMetadata(ctx, SearchQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, res, 2)

	res, err = store.SearchMetadata(ctx, SearchQuery{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

func TestSearchMetadata_QuotesAreStripped(t *testing.T) {
	store := openTestStore(t)
	seedSearch(t, store)

	res, err := store.SearchMetadata(context.Background(), SearchQuery{Query: `"bread"`})
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

func TestFTSQuery(t *testing.T) {
	assert.Equal(t, "", ftsQuery("   "))
	assert.Equal(t, `"go*"`, ftsQuery("go"))
	assert.Equal(t, `"go*" OR "rust*"`, ftsQuery(`go "rust"`))
}

// --- Prune / Purge ---

func TestPruneMetadata(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	old := time.Now().Add(-60 * 24 * time.Hour)
	require.NoError(t, store.PutMetadata(ctx, &tabs.Metadata{VideoID: "aaaaaaaaaaa", Title: "Old", UpdatedAt: old}))
	require.NoError(t, store.PutMetadata(ctx, &tabs.Metadata{VideoID: "bbbbbbbbbbb", Title: "Fresh"}))

	cutoff := time.Now().Add(-30 * 24 * time.Hour)

	stale, err := store.SearchMetadata(ctx, SearchQuery{Before: cutoff})
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "aaaaaaaaaaa", stale[0].VideoID)

	n, err := store.PruneMetadata(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	all, err := store.AllMetadata(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Contains(t, all, "bbbbbbbbbbb")
}

func TestPurgeAll_KeepsSettings(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.PutMetadata(ctx, &tabs.Metadata{VideoID: "aaaaaaaaaaa", Title: "A"}))
	require.NoError(t, store.SetTabURL(ctx, "7", "https://www.youtube.com/watch?v=aaaaaaaaaaa"))
	require.NoError(t, store.SetValue(ctx, "settings", `{"show_tip":false}`))

	require.NoError(t, store.PurgeAll(ctx))

	all, err := store.AllMetadata(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = store.TabURL(ctx, "7")
	assert.ErrorIs(t, err, ErrNotFound)

	v, ok, err := store.GetValue(ctx, "settings")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"show_tip":false}`, v)
}

// --- Config values ---

func TestGetValue_SetValue(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, ok, err := store.GetValue(ctx, "settings")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetValue(ctx, "settings", "one"))
	require.NoError(t, store.SetValue(ctx, "settings", "two"))

	v, ok, err := store.GetValue(ctx, "settings")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "two", v)
}

// --- Tab URLs ---

func TestTabURLs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.TabURL(ctx, "42")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SetTabURL(ctx, "42", "https://www.youtube.com/watch?v=aaaaaaaaaaa&t=30"))
	url, err := store.TabURL(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "https://www.youtube.com/watch?v=aaaaaaaaaaa&t=30", url)

	require.NoError(t, store.DeleteTabURL(ctx, "42"))
	_, err = store.TabURL(ctx, "42")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTabIDs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	ids, err := store.TabIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, store.SetTabURL(ctx, "9", "https://youtu.be/aaaaaaaaaaa"))
	require.NoError(t, store.SetTabURL(ctx, "10", "https://youtu.be/bbbbbbbbbbb"))
	require.NoError(t, store.SetTabURL(ctx, "9", "https://youtu.be/aaaaaaaaaaa?t=5"))

	ids, err = store.TabIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "9"}, ids)
}

// --- Stats ---

func TestGetStats_Empty(t *testing.T) {
	store := openTestStore(t)

	stats, err := store.GetStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalVideos)
	assert.True(t, stats.OldestUpdate.IsZero())
	assert.True(t, stats.LastSort.IsZero())
	assert.Empty(t, stats.TopAuthors)
}

func TestGetStats(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	videos := []tabs.Metadata{
		{VideoID: "aaaaaaaaaaa", Author: "Chan", Duration: 100, Live: true},
		{VideoID: "bbbbbbbbbbb", Author: "Chan", Duration: 50, Playlist: true},
		{VideoID: "ccccccccccc", Author: "Other", Duration: 10},
	}
	for i := range videos {
		require.NoError(t, store.PutMetadata(ctx, &videos[i]))
	}
	require.NoError(t, store.SetTabURL(ctx, "1", "https://youtu.be/aaaaaaaaaaa"))
	require.NoError(t, store.LogAction(ctx, ActionSort, "3 tabs", ""))

	stats, err := store.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalVideos)
	assert.Equal(t, int64(1), stats.LiveVideos)
	assert.Equal(t, int64(1), stats.Playlists)
	assert.Equal(t, int64(1), stats.TabURLs)
	assert.Equal(t, int64(160), stats.TotalDuration)
	assert.False(t, stats.NewestUpdate.IsZero())
	assert.False(t, stats.LastSort.IsZero())
	require.Len(t, stats.TopAuthors, 2)
	assert.Equal(t, AuthorCount{Author: "Chan", Count: 2}, stats.TopAuthors[0])
}

func TestLogAction(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.LogAction(ctx, ActionEvict, "closed tab", "aaaaaaaaaaa"))
	require.NoError(t, store.LogAction(ctx, ActionPurge, "", ""))

	var count int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM audit_log").Scan(&count))
	assert.Equal(t, 2, count)

	var vid sql.NullString
	require.NoError(t, store.db.QueryRow("SELECT video_id FROM audit_log WHERE action = ?", ActionPurge).Scan(&vid))
	assert.False(t, vid.Valid)
}

func TestParseTimestamp(t *testing.T) {
	for _, s := range []string{"2024-01-02T03:04:05Z", "2024-01-02 03:04:05", "2024-01-02"} {
		ts, err := parseTimestamp(s)
		require.NoError(t, err, s)
		assert.Equal(t, 2024, ts.Year())
	}
	_, err := parseTimestamp("yesterday")
	assert.Error(t, err)
}
