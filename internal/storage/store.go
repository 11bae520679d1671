package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/runnerr0/tubesort/internal/tabs"
)

// Store defines the interface for tubesort data operations.
type Store interface {
	PutMetadata(ctx context.Context, md *tabs.Metadata) error
	GetMetadata(ctx context.Context, videoID string) (*tabs.Metadata, error)
	AllMetadata(ctx context.Context) (map[string]tabs.Metadata, error)
	DeleteMetadata(ctx context.Context, videoIDs ...string) (int64, error)
	SearchMetadata(ctx context.Context, query SearchQuery) ([]tabs.Metadata, error)
	PruneMetadata(ctx context.Context, olderThan time.Time) (int64, error)
	PurgeAll(ctx context.Context) error

	GetValue(ctx context.Context, key string) (string, bool, error)
	SetValue(ctx context.Context, key, value string) error

	SetTabURL(ctx context.Context, tabID, url string) error
	TabURL(ctx context.Context, tabID string) (string, error)
	TabIDs(ctx context.Context) ([]string, error)
	DeleteTabURL(ctx context.Context, tabID string) error

	LogAction(ctx context.Context, action, detail, videoID string) error
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

const videoColumns = `video_id, title, author, views, upload_date, duration,
	premiere, skipped, playlist, live, updated_at`

// Same columns qualified for joins against video_fts.
const videoColumnsQualified = `v.video_id, v.title, v.author, v.views, v.upload_date, v.duration,
	v.premiere, v.skipped, v.playlist, v.live, v.updated_at`

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements
	getVideo  *sql.Stmt
	getValue  *sql.Stmt
	setValue  *sql.Stmt
	getTabURL *sql.Stmt
	setTabURL *sql.Stmt
	logAction *sql.Stmt
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getVideo, err = s.db.Prepare(`SELECT ` + videoColumns + ` FROM video_metadata WHERE video_id = ?`)
	if err != nil {
		return err
	}

	s.getValue, err = s.db.Prepare(`SELECT value FROM config WHERE key = ?`)
	if err != nil {
		return err
	}

	s.setValue, err = s.db.Prepare(`
		INSERT INTO config (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}

	s.getTabURL, err = s.db.Prepare(`SELECT url FROM tab_urls WHERE tab_id = ?`)
	if err != nil {
		return err
	}

	s.setTabURL, err = s.db.Prepare(`
		INSERT INTO tab_urls (tab_id, url, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(tab_id) DO UPDATE SET url = excluded.url, updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}

	s.logAction, err = s.db.Prepare(`INSERT INTO audit_log (action, detail, video_id, ts) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}

	return nil
}

// parseTimestamp tries several common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVideo(row rowScanner) (tabs.Metadata, error) {
	var md tabs.Metadata
	var uploadDate sql.NullString
	var premiere, skipped sql.NullInt64
	var updatedAt string

	if err := row.Scan(
		&md.VideoID, &md.Title, &md.Author, &md.Views, &uploadDate, &md.Duration,
		&premiere, &skipped, &md.Playlist, &md.Live, &updatedAt,
	); err != nil {
		return md, err
	}

	if uploadDate.Valid && uploadDate.String != "" {
		md.UploadDate, _ = parseTimestamp(uploadDate.String)
	}
	if premiere.Valid {
		v := premiere.Int64
		md.Premiere = &v
	}
	if skipped.Valid {
		v := skipped.Int64
		md.Skipped = &v
	}
	md.UpdatedAt, _ = parseTimestamp(updatedAt)
	return md, nil
}

func nullableInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

// PutMetadata inserts or replaces the cached record for md.VideoID and
// refreshes its search index row. UpdatedAt defaults to now.
func (s *SQLiteStore) PutMetadata(ctx context.Context, md *tabs.Metadata) error {
	if md.VideoID == "" {
		return fmt.Errorf("put metadata: video id is required")
	}
	if md.UpdatedAt.IsZero() {
		md.UpdatedAt = time.Now()
	}

	var uploadDate any
	if !md.UploadDate.IsZero() {
		uploadDate = formatTimestamp(md.UploadDate)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO video_metadata (`+videoColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			views = excluded.views,
			upload_date = excluded.upload_date,
			duration = excluded.duration,
			premiere = excluded.premiere,
			skipped = excluded.skipped,
			playlist = excluded.playlist,
			live = excluded.live,
			updated_at = excluded.updated_at`,
		md.VideoID, md.Title, md.Author, md.Views, uploadDate, md.Duration,
		nullableInt(md.Premiere), nullableInt(md.Skipped), md.Playlist, md.Live,
		formatTimestamp(md.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert metadata: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM video_fts WHERE video_id = ?", md.VideoID); err != nil {
		return fmt.Errorf("delete FTS: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO video_fts (video_id, title, author) VALUES (?, ?, ?)",
		md.VideoID, md.Title, md.Author,
	); err != nil {
		return fmt.Errorf("insert FTS: %w", err)
	}

	return tx.Commit()
}

// GetMetadata retrieves the cached record for one video.
func (s *SQLiteStore) GetMetadata(ctx context.Context, videoID string) (*tabs.Metadata, error) {
	md, err := scanVideo(s.getVideo.QueryRowContext(ctx, videoID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("video %s: %w", videoID, ErrNotFound)
		}
		return nil, fmt.Errorf("get metadata: %w", err)
	}
	return &md, nil
}

// AllMetadata returns the whole cache keyed by video ID.
func (s *SQLiteStore) AllMetadata(ctx context.Context) (map[string]tabs.Metadata, error) {
	list, err := s.scanVideos(ctx, `SELECT `+videoColumns+` FROM video_metadata`)
	if err != nil {
		return nil, err
	}
	out := make(map[string]tabs.Metadata, len(list))
	for _, md := range list {
		out[md.VideoID] = md
	}
	return out, nil
}

// DeleteMetadata evicts the given videos and returns how many existed.
func (s *SQLiteStore) DeleteMetadata(ctx context.Context, videoIDs ...string) (int64, error) {
	if len(videoIDs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var total int64
	for _, id := range videoIDs {
		if _, err := tx.ExecContext(ctx, "DELETE FROM video_fts WHERE video_id = ?", id); err != nil {
			return 0, fmt.Errorf("delete FTS entry: %w", err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM video_metadata WHERE video_id = ?", id)
		if err != nil {
			return 0, fmt.Errorf("delete metadata: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		total += n
	}

	return total, tx.Commit()
}

// ftsQuery converts a user search string into a valid FTS query.
// Each word becomes a quoted prefix token joined with OR.
func ftsQuery(input string) string {
	words := strings.Fields(input)
	if len(words) == 0 {
		return ""
	}
	var parts []string
	for _, w := range words {
		w = strings.ReplaceAll(w, `"`, "")
		if w == "" {
			continue
		}
		parts = append(parts, `"`+w+`*"`)
	}
	return strings.Join(parts, " OR ")
}

// SearchMetadata queries cached videos with optional filters. A text query
// goes through the full-text index over titles and channel names.
func (s *SQLiteStore) SearchMetadata(ctx context.Context, q SearchQuery) ([]tabs.Metadata, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	var clauses []string
	var args []any

	from := "video_metadata v"
	if match := ftsQuery(q.Query); match != "" {
		from = "video_fts f JOIN video_metadata v ON v.video_id = f.video_id"
		clauses = append(clauses, "f.video_fts MATCH ?")
		args = append(args, match)
	}
	if q.Author != "" {
		clauses = append(clauses, "v.author = ? COLLATE NOCASE")
		args = append(args, q.Author)
	}
	if q.Live {
		clauses = append(clauses, "v.live = 1")
	}
	if q.Playlist {
		clauses = append(clauses, "v.playlist = 1")
	}
	if !q.Since.IsZero() {
		clauses = append(clauses, "v.updated_at >= ?")
		args = append(args, formatTimestamp(q.Since))
	}
	if !q.Before.IsZero() {
		clauses = append(clauses, "v.updated_at < ?")
		args = append(args, formatTimestamp(q.Before))
	}

	query := "SELECT " + videoColumnsQualified + " FROM " + from
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY v.title COLLATE NOCASE, v.video_id LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset)

	return s.scanVideos(ctx, query, args...)
}

// scanVideos executes a query and scans results into Metadata slices.
func (s *SQLiteStore) scanVideos(ctx context.Context, query string, args ...any) ([]tabs.Metadata, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	videos := []tabs.Metadata{}
	for rows.Next() {
		md, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, md)
	}

	return videos, rows.Err()
}

// PruneMetadata deletes cached videos last updated before olderThan.
func (s *SQLiteStore) PruneMetadata(ctx context.Context, olderThan time.Time) (int64, error) {
	ts := formatTimestamp(olderThan)

	_, err := s.db.ExecContext(ctx,
		`DELETE FROM video_fts WHERE video_id IN (
			SELECT video_id FROM video_metadata WHERE updated_at < ?
		)`, ts,
	)
	if err != nil {
		return 0, fmt.Errorf("prune FTS: %w", err)
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM video_metadata WHERE updated_at < ?", ts)
	if err != nil {
		return 0, fmt.Errorf("prune metadata: %w", err)
	}

	return res.RowsAffected()
}

// PurgeAll deletes every cached video and recorded tab URL. Settings stay.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	stmts := []string{
		"DELETE FROM video_fts",
		"DELETE FROM video_metadata",
		"DELETE FROM tab_urls",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("purge (%s): %w", stmt, err)
		}
	}
	return nil
}

// GetValue reads a config value. The bool is false when the key is unset.
func (s *SQLiteStore) GetValue(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.getValue.QueryRowContext(ctx, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get config %s: %w", key, err)
	}
	return value, true, nil
}

// SetValue writes a config value.
func (s *SQLiteStore) SetValue(ctx context.Context, key, value string) error {
	if _, err := s.setValue.ExecContext(ctx, key, value, formatTimestamp(time.Now())); err != nil {
		return fmt.Errorf("set config %s: %w", key, err)
	}
	return nil
}

// SetTabURL records the URL a tab should load when it is woken again.
func (s *SQLiteStore) SetTabURL(ctx context.Context, tabID, url string) error {
	if _, err := s.setTabURL.ExecContext(ctx, tabID, url, formatTimestamp(time.Now())); err != nil {
		return fmt.Errorf("set tab url: %w", err)
	}
	return nil
}

// TabURL returns the URL recorded for a tab.
func (s *SQLiteStore) TabURL(ctx context.Context, tabID string) (string, error) {
	var url string
	err := s.getTabURL.QueryRowContext(ctx, tabID).Scan(&url)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("tab %s: %w", tabID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get tab url: %w", err)
	}
	return url, nil
}

// TabIDs lists the tabs with a recorded URL, sorted.
func (s *SQLiteStore) TabIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT tab_id FROM tab_urls ORDER BY tab_id")
	if err != nil {
		return nil, fmt.Errorf("list tab urls: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tab url: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteTabURL forgets the URL recorded for a tab.
func (s *SQLiteStore) DeleteTabURL(ctx context.Context, tabID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM tab_urls WHERE tab_id = ?", tabID); err != nil {
		return fmt.Errorf("delete tab url: %w", err)
	}
	return nil
}

// LogAction appends a row to the audit log.
func (s *SQLiteStore) LogAction(ctx context.Context, action, detail, videoID string) error {
	var vid any
	if videoID != "" {
		vid = videoID
	}
	if _, err := s.logAction.ExecContext(ctx, action, detail, vid, formatTimestamp(time.Now())); err != nil {
		return fmt.Errorf("log action: %w", err)
	}
	return nil
}

// GetStats returns aggregate statistics about the cache.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(live), 0),
		       COALESCE(SUM(playlist), 0),
		       COALESCE(SUM(duration), 0)
		FROM video_metadata
	`).Scan(&stats.TotalVideos, &stats.LiveVideos, &stats.Playlists, &stats.TotalDuration)
	if err != nil {
		return nil, fmt.Errorf("count videos: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tab_urls").Scan(&stats.TabURLs); err != nil {
		return nil, fmt.Errorf("count tab urls: %w", err)
	}

	if stats.TotalVideos > 0 {
		var oldestStr, newestStr string
		err = s.db.QueryRowContext(ctx, "SELECT MIN(updated_at), MAX(updated_at) FROM video_metadata").Scan(&oldestStr, &newestStr)
		if err != nil {
			return nil, fmt.Errorf("update time range: %w", err)
		}
		stats.OldestUpdate, _ = parseTimestamp(oldestStr)
		stats.NewestUpdate, _ = parseTimestamp(newestStr)
	}

	var lastSort sql.NullString
	err = s.db.QueryRowContext(ctx, "SELECT MAX(ts) FROM audit_log WHERE action = ?", ActionSort).Scan(&lastSort)
	if err != nil {
		return nil, fmt.Errorf("last sort: %w", err)
	}
	if lastSort.Valid {
		stats.LastSort, _ = parseTimestamp(lastSort.String)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT author, COUNT(*) AS cnt FROM video_metadata
		WHERE author != ''
		GROUP BY author ORDER BY cnt DESC, author LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("top authors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ac AuthorCount
		if err := rows.Scan(&ac.Author, &ac.Count); err != nil {
			return nil, err
		}
		stats.TopAuthors = append(stats.TopAuthors, ac)
	}

	return stats, rows.Err()
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{
		s.getVideo, s.getValue, s.setValue,
		s.getTabURL, s.setTabURL, s.logAction,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
