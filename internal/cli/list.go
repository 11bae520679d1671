package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/tubesort/internal/browser"
	"github.com/runnerr0/tubesort/internal/sorter"
)

const listTip = "Tip: run `tubesort sort` to reorder these tabs, or `tubesort set show_tip=false` to hide this line."

// Execute implements the go-flags Commander interface for ListCommand.
func (c *ListCommand) Execute(args []string) error {
	if c.Width < 8 {
		return fmt.Errorf("--width must be at least 8")
	}
	if c.Activate < 0 {
		return fmt.Errorf("--activate must be positive")
	}

	e, cleanup, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer cleanup()

	q, err := e.openBrowser(c.Tabs)
	if err != nil {
		return err
	}
	return c.executeWithEnv(e, q)
}

// executeWithEnv lists the tabs reported by q (for testing).
func (c *ListCommand) executeWithEnv(e *env, q browser.Querier) error {
	ctx := context.Background()

	open, err := q.Query(ctx)
	if err != nil {
		return fmt.Errorf("query tabs: %w", err)
	}
	view, err := sorter.New(e.store, e.settings, e.logger).View(ctx, open)
	if err != nil {
		return err
	}

	if c.Activate > 0 {
		if c.Activate > len(view.Entries) {
			return fmt.Errorf("--activate %d: only %d tabs listed", c.Activate, len(view.Entries))
		}
		if err := browser.Activate(ctx, q, view.Entries[c.Activate-1].TabID); err != nil {
			return fmt.Errorf("activate tab: %w", err)
		}
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(view)
	}

	if len(view.Entries) == 0 {
		fmt.Println("No video tabs open.")
		return nil
	}

	cur := e.settings.Current()
	fmt.Print(renderEntries(view.Entries, c.Width, cur.SortSponsorBlock))
	fmt.Println()
	fmt.Println(renderStats(view.Stats))
	if cur.ShowTip {
		fmt.Println(dimStyle.Render(listTip))
	}
	return nil
}
