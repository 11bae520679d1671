package cli

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tubesort/internal/config"
	"github.com/runnerr0/tubesort/internal/logging"
	"github.com/runnerr0/tubesort/internal/storage"
	"github.com/runnerr0/tubesort/internal/tabs"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// newTestEnv returns an env over a migrated in-memory database with
// default config and settings.
func newTestEnv(t *testing.T) *env {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.NewMigrationRunner(db).Run())

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	e := newEnv(config.DefaultConfig(), store, logging.Discard())
	e.db = db
	return e
}

// seedVideo caches md in e.
func seedVideo(t *testing.T, e *env, md tabs.Metadata) {
	t.Helper()
	require.NoError(t, e.store.PutMetadata(context.Background(), &md))
}

// writeTabs writes a tab snapshot file and returns its path.
func writeTabs(t *testing.T, list []tabs.Tab) string {
	t.Helper()
	data, err := json.Marshal(list)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "tabs.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

// readTabs reads a snapshot file back.
func readTabs(t *testing.T, path string) []tabs.Tab {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var list []tabs.Tab
	require.NoError(t, json.Unmarshal(data, &list))
	return list
}

const (
	zebraID    = "dQw4w9WgXcQ"
	appleID    = "9bZkp7q19f0"
	mountainID = "kJQP7kiw5Fk"
	closedID   = "jNQXAC9IVRw"
)

// fixture caches two open videos and one closed one, and returns a snapshot
// with a non-video tab, the two cached videos, and one uncached video.
func fixture(t *testing.T, e *env) []tabs.Tab {
	t.Helper()
	seedVideo(t, e, tabs.Metadata{
		VideoID: zebraID, Title: "Zebra documentary", Author: "Nature Channel",
		Views: 1500000, Duration: 3600, UploadDate: time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	seedVideo(t, e, tabs.Metadata{
		VideoID: appleID, Title: "Apple pie recipe", Author: "Kitchen",
		Views: 2300, Duration: 420, UploadDate: time.Date(2023, 1, 9, 0, 0, 0, 0, time.UTC),
	})
	seedVideo(t, e, tabs.Metadata{VideoID: closedID, Title: "Closed tab video", Author: "Nobody"})

	return []tabs.Tab{
		{ID: "1", URL: "https://example.com/", Title: "Example"},
		{ID: "2", URL: "https://www.youtube.com/watch?v=" + zebraID, Title: "Zebra - YouTube"},
		{ID: "3", URL: "https://www.youtube.com/watch?v=" + appleID, Title: "Apple - YouTube"},
		{ID: "4", URL: "https://youtu.be/" + mountainID, Title: "Mountain hike"},
	}
}
