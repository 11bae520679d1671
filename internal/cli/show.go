package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/runnerr0/tubesort/internal/storage"
	"github.com/runnerr0/tubesort/internal/tabs"
	"github.com/runnerr0/tubesort/internal/youtube"
)

// Execute implements the go-flags Commander interface for ShowCommand.
func (c *ShowCommand) Execute(args []string) error {
	if err := c.validate(args); err != nil {
		return err
	}

	e, cleanup, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer cleanup()

	return c.executeWithEnv(e, args)
}

func (c *ShowCommand) validate(args []string) error {
	if c.ID == "" && len(args) == 0 {
		return fmt.Errorf("--id is required for show command")
	}
	switch c.Format {
	case "", "md", "raw", "json":
		return nil
	}
	return fmt.Errorf("unknown --format %q (want md, raw, or json)", c.Format)
}

// executeWithEnv prints one record from an open env (for testing).
func (c *ShowCommand) executeWithEnv(e *env, args []string) error {
	if err := c.validate(args); err != nil {
		return err
	}
	src := c.ID
	if src == "" {
		src = args[0]
	}
	id, err := resolveVideoID(src)
	if err != nil {
		return err
	}

	m, err := e.store.GetMetadata(context.Background(), id)
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("video not cached: %s", id)
	}
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(m)
	}

	switch c.Format {
	case "json":
		return printJSON(m)
	case "raw":
		printRaw(m)
	default:
		printMarkdown(m)
	}
	return nil
}

func printRaw(m *tabs.Metadata) {
	fmt.Println(m.VideoID)
	fmt.Printf("Title:     %s\n", m.Title)
	fmt.Printf("URL:       %s\n", youtube.WatchURL(m.VideoID))
	fmt.Printf("Channel:   %s\n", m.Author)
	fmt.Printf("Views:     %s\n", formatNumber(m.Views))
	fmt.Printf("Duration:  %s\n", youtube.FormatDuration(m.Duration))
	if m.Skipped != nil {
		fmt.Printf("Skipped:   %s\n", youtube.FormatDuration(*m.Skipped))
	}
	if !m.UploadDate.IsZero() {
		fmt.Printf("Uploaded:  %s\n", m.UploadDate.Format("2006-01-02"))
	}
	if m.Premiere != nil {
		fmt.Printf("Premiere:  in %s\n", youtube.FormatPremiere(*m.Premiere))
	}
	fmt.Printf("Live:      %t\n", m.Live)
	fmt.Printf("Playlist:  %t\n", m.Playlist)
	fmt.Printf("Fetched:   %s\n", m.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
}

func printMarkdown(m *tabs.Metadata) {
	fmt.Println("---")
	fmt.Printf("id: %s\n", m.VideoID)
	fmt.Printf("title: %s\n", m.Title)
	fmt.Printf("url: %s\n", youtube.WatchURL(m.VideoID))
	fmt.Printf("author: %s\n", m.Author)
	fmt.Printf("views: %d\n", m.Views)
	fmt.Printf("duration: %d\n", m.Duration)
	if m.Skipped != nil {
		fmt.Printf("skipped: %d\n", *m.Skipped)
	}
	if !m.UploadDate.IsZero() {
		fmt.Printf("uploaded: %s\n", m.UploadDate.UTC().Format("2006-01-02"))
	}
	if m.Premiere != nil {
		fmt.Printf("premiere: %d\n", *m.Premiere)
	}
	fmt.Printf("live: %t\n", m.Live)
	fmt.Printf("playlist: %t\n", m.Playlist)
	fmt.Printf("fetched: %s\n", m.UpdatedAt.UTC().Format(time.RFC3339))
	fmt.Println("---")
	fmt.Println()
	fmt.Printf("# %s\n", m.Title)
	if m.Author != "" {
		fmt.Printf("\nby %s · %s · %s views\n", m.Author, youtube.FormatDuration(m.Duration), youtube.FormatViews(m.Views))
	}
}
