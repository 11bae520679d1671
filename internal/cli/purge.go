package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/runnerr0/tubesort/internal/storage"
)

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("purge requires --all flag for safety")
	}
	if err := c.confirm(); err != nil {
		return err
	}

	e, cleanup, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer cleanup()

	return c.executeWithEnv(e)
}

// confirm asks for the word PURGE unless --force was given.
func (c *PurgeCommand) confirm() error {
	if c.Force {
		return nil
	}

	fmt.Println("⚠ WARNING: This will permanently delete ALL cached video metadata.")
	fmt.Println("  - All cached titles, channels, views and durations")
	fmt.Println("  - All recorded tab URLs")
	fmt.Println()
	fmt.Println("Settings and sort rules are kept. This action cannot be undone.")
	fmt.Println()
	fmt.Print(`Type "PURGE" to confirm: `)

	var in io.Reader = os.Stdin
	if c.in != nil {
		in = c.in
	}
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("aborted: no input received")
	}
	if strings.TrimSpace(scanner.Text()) != "PURGE" {
		return fmt.Errorf("aborted: confirmation text did not match")
	}
	return nil
}

// executeWithEnv purges an open env (for testing). Confirmation has
// already happened.
func (c *PurgeCommand) executeWithEnv(e *env) error {
	ctx := context.Background()
	if err := e.store.PurgeAll(ctx); err != nil {
		return fmt.Errorf("purge failed: %w", err)
	}
	if err := e.store.LogAction(ctx, storage.ActionPurge, "cli", ""); err != nil {
		e.logger.Warn("audit log write failed", "err", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(map[string]any{
			"purged":  true,
			"message": "all cached metadata deleted",
		})
	}

	fmt.Println("Purged all cached metadata.")
	return nil
}
