package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/runnerr0/tubesort/internal/browser"
	"github.com/runnerr0/tubesort/internal/config"
	"github.com/runnerr0/tubesort/internal/logging"
	"github.com/runnerr0/tubesort/internal/settings"
	"github.com/runnerr0/tubesort/internal/storage"
	"github.com/runnerr0/tubesort/internal/youtube"
)

// env bundles what a command needs once config and storage are open.
type env struct {
	cfg      *config.Config
	dbPath   string
	db       *sql.DB
	store    *storage.SQLiteStore
	settings *settings.Service
	logger   *slog.Logger
}

// loadConfig reads the file named by --config, or the default location.
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	if globals != nil && globals.Config != "" {
		return config.Load(globals.Config)
	}
	return config.LoadOrCreate()
}

// openEnv loads config, opens the database with migrations applied, and
// loads the stored settings. The returned func releases everything.
func openEnv(globals *GlobalFlags) (*env, func(), error) {
	cfg, err := loadConfig(globals)
	if err != nil {
		return nil, nil, err
	}

	logger, closeLog, err := logging.Setup(cfg.Logging, globals != nil && globals.Verbose)
	if err != nil {
		return nil, nil, err
	}

	dbPath := ""
	if globals != nil {
		dbPath = globals.DB
	}
	if dbPath == "" {
		if dbPath, err = cfg.Storage.DBPath(); err != nil {
			closeLog()
			return nil, nil, err
		}
	}

	db, err := openDB(dbPath, cfg.Storage.SQLiteJournalMode, logger)
	if err != nil {
		closeLog()
		return nil, nil, err
	}

	store, err := storage.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		closeLog()
		return nil, nil, fmt.Errorf("init store: %w", err)
	}

	e := newEnv(cfg, store, logger)
	e.dbPath = dbPath
	e.db = db

	cleanup := func() {
		store.Close()
		db.Close()
		closeLog()
	}
	return e, cleanup, nil
}

// openDB opens the SQLite file at dbPath and applies migrations.
func openDB(dbPath, journalMode string, logger *slog.Logger) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	runner := storage.NewMigrationRunner(db, storage.WithJournalMode(journalMode))
	if pending, err := runner.Pending(); err == nil && len(pending) > 0 {
		logger.Debug("applying migrations", "db", dbPath, "pending", pending)
	}
	if err := runner.Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// newEnv wires the settings service over store and loads the stored record.
// A record that cannot be read is reported and defaults are used.
func newEnv(cfg *config.Config, store *storage.SQLiteStore, logger *slog.Logger) *env {
	svc := settings.NewService(store, logger)
	if _, err := svc.Load(context.Background()); err != nil {
		logger.Warn("using default settings", "err", err)
	}
	return &env{cfg: cfg, store: store, settings: svc, logger: logger}
}

// openBrowser returns the snapshot driver when a tabs file is given, and
// the DevTools driver otherwise.
func (e *env) openBrowser(tabsFile string) (browser.Querier, error) {
	if tabsFile != "" {
		return browser.LoadSnapshot(tabsFile)
	}
	return browser.NewCDP(e.cfg.Browser.CDPURL, e.cfg.Browser.VideoHosts, e.logger), nil
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// resolveVideoID accepts a bare video ID or any URL carrying one.
func resolveVideoID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if youtube.ValidID(s) {
		return s, nil
	}
	if id, ok := youtube.ExtractID(s); ok && youtube.ValidID(id) {
		return id, nil
	}
	return "", fmt.Errorf("no video id in %q", s)
}

// durationUnits are the suffixes accepted by parseDuration.
var durationUnits = map[byte]time.Duration{
	'm': time.Minute,
	'h': time.Hour,
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// parseDuration parses an age such as "30d", "12h", "2w" or "1w3d".
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("invalid duration: empty string")
	}

	var total time.Duration
	for rest := s; rest != ""; {
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		if i == 0 || i == len(rest) {
			return 0, fmt.Errorf("invalid duration: %q (use d, h, w, or m suffix)", s)
		}
		unit, ok := durationUnits[rest[i]]
		if !ok {
			return 0, fmt.Errorf("invalid duration: %q (use d, h, w, or m suffix)", s)
		}
		n, err := strconv.Atoi(rest[:i])
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %q", s)
		}
		total += time.Duration(n) * unit
		rest = rest[i+1:]
	}
	return total, nil
}

// parseClock parses a video length given as seconds, m:ss, or h:mm:ss.
func parseClock(s string) (int64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid length %q", s)
	}
	var total int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid length %q", s)
		}
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("invalid length %q", s)
		}
		total = total*60 + n
	}
	return total, nil
}

// formatDurationHuman renders an age in whole days, or hours below a day.
func formatDurationHuman(d time.Duration) string {
	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return fmt.Sprintf("%d %ss", n, unit)
	}
	if days := int(d / (24 * time.Hour)); days > 0 {
		return plural(days, "day")
	}
	if hours := int(d / time.Hour); hours > 0 {
		return plural(hours, "hour")
	}
	return d.String()
}

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// formatBytes renders a size with a binary unit.
func formatBytes(b int64) string {
	if b < 1024 {
		return fmt.Sprintf("%d B", b)
	}
	v := float64(b)
	i := 0
	for v >= 1024 && i < len(byteUnits)-1 {
		v /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %s", v, byteUnits[i])
}

var numberPrinter = message.NewPrinter(language.English)

// formatNumber groups digits with commas.
func formatNumber(n int64) string {
	return numberPrinter.Sprintf("%d", n)
}
