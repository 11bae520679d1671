package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/runnerr0/tubesort/internal/browser"
	"github.com/runnerr0/tubesort/internal/sorter"
	"github.com/runnerr0/tubesort/internal/tabs"
)

// ErrCannotReorder is returned when a sort planned moves the browser driver
// could not perform.
var ErrCannotReorder = errors.New("browser driver cannot reorder tabs; run 'tubesort serve' and let the extension apply POST /v1/plan")

// Execute implements the go-flags Commander interface for SortCommand.
func (c *SortCommand) Execute(args []string) error {
	e, cleanup, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer cleanup()

	q, err := e.openBrowser(c.Tabs)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return c.executeWithEnv(ctx, e, q)
}

// executeWithEnv sorts the tabs behind q (for testing).
func (c *SortCommand) executeWithEnv(ctx context.Context, e *env, q browser.Querier) error {
	svc := sorter.New(e.store, e.settings, e.logger)
	res := svc.Sort(ctx, q, sorter.Options{
		DryRun: c.DryRun,
		Delay:  time.Duration(e.cfg.Browser.CommandDelayMS) * time.Millisecond,
	})

	if c.globals != nil && c.globals.JSON {
		if err := printJSON(res); err != nil {
			return err
		}
	} else {
		printSortResult(res)
	}

	if res.Error != "" {
		return errors.New(res.Error)
	}
	if n := skippedMoves(res); n > 0 {
		return fmt.Errorf("%d moves skipped: %w", n, ErrCannotReorder)
	}
	return nil
}

func skippedMoves(res *sorter.Result) int {
	n := 0
	for _, o := range res.Outcomes {
		if o.Skipped && o.Kind == tabs.CommandMove {
			n++
		}
	}
	return n
}

func printSortResult(res *sorter.Result) {
	if res.DryRun {
		fmt.Println(titleStyle.Render("Sort plan (dry run)"))
		for i, e := range res.Entries {
			fmt.Printf("%3d. %s\n", i+1, e.Title)
		}
		fmt.Println()
		for _, cmd := range res.Commands {
			fmt.Printf("  %-6s %-6s tab %s%s\n", cmd.Phase, cmd.Kind, cmd.TabID, commandSuffix(cmd))
		}
		if len(res.Evicted) > 0 {
			fmt.Printf("\nWould evict %d cache entries for closed tabs.\n", len(res.Evicted))
		}
		return
	}

	fmt.Printf("Sorted %d tabs: %d commands applied", len(res.Entries), res.Applied())
	if n := res.Skipped(); n > 0 {
		fmt.Printf(", %d skipped (unsupported by browser)", n)
	}
	fmt.Printf(" in %s\n", res.Elapsed.Round(time.Millisecond))
	for _, o := range res.Outcomes {
		if o.Error != "" {
			fmt.Println(errorStyle.Render(fmt.Sprintf("  %s tab %s: %s", o.Kind, o.TabID, o.Error)))
		}
	}
	if len(res.Evicted) > 0 {
		fmt.Printf("Evicted %d cache entries for closed tabs.\n", len(res.Evicted))
	}
	if res.Error != "" {
		fmt.Println(errorStyle.Render("Error: " + res.Error))
	}
}

func commandSuffix(cmd tabs.Command) string {
	switch {
	case cmd.Kind == tabs.CommandMove:
		return " to end"
	case cmd.URL != "":
		return " -> " + cmd.URL
	}
	return ""
}
