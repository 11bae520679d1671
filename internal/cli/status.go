package cli

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/runnerr0/tubesort/internal/storage"
	"github.com/runnerr0/tubesort/internal/youtube"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string            `json:"version"`
	DatabasePath      string            `json:"database_path"`
	DatabaseSizeBytes int64             `json:"database_size_bytes"`
	CachedVideos      int64             `json:"cached_videos"`
	LiveVideos        int64             `json:"live_videos"`
	PlaylistVideos    int64             `json:"playlist_videos"`
	TabURLs           int64             `json:"tab_urls"`
	TotalDuration     int64             `json:"total_duration"`
	OldestUpdate      string            `json:"oldest_update,omitempty"`
	NewestUpdate      string            `json:"newest_update,omitempty"`
	LastSort          string            `json:"last_sort,omitempty"`
	MaxAgeDays        int               `json:"max_age_days"`
	Rules             []string          `json:"rules"`
	TopAuthors        []authorCountJSON `json:"top_authors"`
	BridgeRunning     bool              `json:"bridge_running"`
}

type authorCountJSON struct {
	Author string `json:"author"`
	Count  int64  `json:"count"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	e, cleanup, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer cleanup()

	return c.executeWithEnv(e, checkBridge(e.cfg.Server.Addr()))
}

// executeWithEnv runs status against an open env (for testing).
func (c *StatusCommand) executeWithEnv(e *env, bridgeRunning bool) error {
	stats, err := e.store.GetStats(context.Background())
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	dbSize := databaseSize(e.db, e.dbPath)
	rules := make([]string, 0, len(e.settings.Current().Sorting))
	for _, r := range e.settings.Current().Sorting {
		rules = append(rules, r.Attr+" "+r.Direction())
	}

	if c.globals != nil && c.globals.JSON {
		return c.printStatusJSON(e, stats, dbSize, rules, bridgeRunning)
	}
	return c.printStatusHuman(e, stats, dbSize, rules, bridgeRunning)
}

func (c *StatusCommand) printStatusHuman(e *env, stats *storage.Stats, dbSize int64, rules []string, bridgeRunning bool) error {
	fmt.Println(titleStyle.Render("tubesort status"))
	fmt.Printf("Version:       %s\n", c.version)
	if e.dbPath != "" {
		fmt.Printf("Database:      %s (%s)\n", e.dbPath, formatBytes(dbSize))
	}
	fmt.Printf("Cached:        %s videos\n", formatNumber(stats.TotalVideos))
	if stats.TotalVideos > 0 {
		fmt.Printf("  live:        %s\n", formatNumber(stats.LiveVideos))
		fmt.Printf("  playlists:   %s\n", formatNumber(stats.Playlists))
		fmt.Printf("  runtime:     %s\n", youtube.FormatDuration(stats.TotalDuration))
		fmt.Printf("Oldest:        %s\n", stats.OldestUpdate.Local().Format("2006-01-02"))
		fmt.Printf("Newest:        %s\n", stats.NewestUpdate.Local().Format("2006-01-02"))
	}
	fmt.Printf("Tab URLs:      %s\n", formatNumber(stats.TabURLs))
	fmt.Printf("Max age:       %d days\n", e.cfg.Cache.MaxAgeDays)
	if !stats.LastSort.IsZero() {
		fmt.Printf("Last sort:     %s\n", stats.LastSort.Local().Format("2006-01-02 15:04"))
	}

	fmt.Println()
	fmt.Println("Sort rules:")
	for i, r := range rules {
		fmt.Printf("  %d. %s\n", i+1, r)
	}

	if len(stats.TopAuthors) > 0 {
		fmt.Println()
		fmt.Println("Top Channels:")
		for _, a := range stats.TopAuthors {
			fmt.Printf("  %s %s\n", fit(a.Author, 24), formatNumber(a.Count))
		}
	}

	fmt.Println()
	if bridgeRunning {
		fmt.Printf("Bridge:        running on %s\n", e.cfg.Server.Addr())
	} else {
		fmt.Println("Bridge:        not running")
	}
	return nil
}

func (c *StatusCommand) printStatusJSON(e *env, stats *storage.Stats, dbSize int64, rules []string, bridgeRunning bool) error {
	out := statusJSON{
		Version:           c.version,
		DatabasePath:      e.dbPath,
		DatabaseSizeBytes: dbSize,
		CachedVideos:      stats.TotalVideos,
		LiveVideos:        stats.LiveVideos,
		PlaylistVideos:    stats.Playlists,
		TabURLs:           stats.TabURLs,
		TotalDuration:     stats.TotalDuration,
		MaxAgeDays:        e.cfg.Cache.MaxAgeDays,
		Rules:             rules,
		TopAuthors:        make([]authorCountJSON, len(stats.TopAuthors)),
		BridgeRunning:     bridgeRunning,
	}

	if stats.TotalVideos > 0 {
		out.OldestUpdate = stats.OldestUpdate.UTC().Format(time.RFC3339)
		out.NewestUpdate = stats.NewestUpdate.UTC().Format(time.RFC3339)
	}
	if !stats.LastSort.IsZero() {
		out.LastSort = stats.LastSort.UTC().Format(time.RFC3339)
	}
	for i, a := range stats.TopAuthors {
		out.TopAuthors[i] = authorCountJSON{Author: a.Author, Count: a.Count}
	}

	return printJSON(out)
}

// databaseSize returns the database file size in bytes.
// For on-disk databases, it uses os.Stat. For in-memory databases,
// it queries page_count * page_size.
func databaseSize(db *sql.DB, dbPath string) int64 {
	if dbPath != "" {
		if info, err := os.Stat(dbPath); err == nil {
			return info.Size()
		}
	}
	if db == nil {
		return 0
	}

	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// checkBridge reports whether a bridge answers /health at addr within a second.
func checkBridge(addr string) bool {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get("http://" + addr + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
