package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/runnerr0/tubesort/internal/storage"
)

// pruneListLimit caps how many records a dry run lists.
const pruneListLimit = 1000

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	if c.OlderThan != "" {
		if _, err := parseDuration(c.OlderThan); err != nil {
			return fmt.Errorf("invalid --older-than value %q: %w", c.OlderThan, err)
		}
	}

	e, cleanup, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer cleanup()

	return c.executeWithEnv(e, time.Now())
}

// maxAge is --older-than when given, else the configured cache max age.
func (c *PruneCommand) maxAge(e *env) (time.Duration, error) {
	if c.OlderThan != "" {
		d, err := parseDuration(c.OlderThan)
		if err != nil {
			return 0, fmt.Errorf("invalid --older-than value %q: %w", c.OlderThan, err)
		}
		return d, nil
	}
	return time.Duration(e.cfg.Cache.MaxAgeDays) * 24 * time.Hour, nil
}

// executeWithEnv prunes relative to now against an open env (for testing).
func (c *PruneCommand) executeWithEnv(e *env, now time.Time) error {
	ctx := context.Background()

	age, err := c.maxAge(e)
	if err != nil {
		return err
	}
	if age <= 0 {
		return fmt.Errorf("cache max age is 0; pass --older-than to prune")
	}
	cutoff := now.Add(-age)

	if c.DryRun {
		old, err := e.store.SearchMetadata(ctx, storage.SearchQuery{Before: cutoff, Limit: pruneListLimit})
		if err != nil {
			return fmt.Errorf("list old records: %w", err)
		}
		if c.globals != nil && c.globals.JSON {
			return printJSON(map[string]any{
				"dry_run": true,
				"cutoff":  cutoff.UTC().Format(time.RFC3339),
				"count":   len(old),
				"videos":  old,
			})
		}
		fmt.Printf("Would prune %d cached videos fetched before %s (older than %s)\n",
			len(old), cutoff.Local().Format("2006-01-02"), formatDurationHuman(age))
		for _, m := range old {
			fmt.Printf("  %s  %s\n", m.VideoID, m.Title)
		}
		return nil
	}

	n, err := e.store.PruneMetadata(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}
	if n > 0 {
		detail := fmt.Sprintf("%d records older than %s", n, formatDurationHuman(age))
		if err := e.store.LogAction(ctx, storage.ActionPrune, detail, ""); err != nil {
			e.logger.Warn("audit log write failed", "err", err)
		}
	}
	e.logger.Debug("pruned cache", "count", n, "cutoff", cutoff)

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]any{
			"pruned": n,
			"cutoff": cutoff.UTC().Format(time.RFC3339),
		})
	}
	fmt.Printf("Pruned %s cached videos older than %s\n", formatNumber(n), formatDurationHuman(age))
	return nil
}
