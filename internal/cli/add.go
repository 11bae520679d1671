package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/runnerr0/tubesort/internal/tabs"
	"github.com/runnerr0/tubesort/internal/youtube"
)

// Execute implements the go-flags Commander interface for AddCommand.
func (c *AddCommand) Execute(args []string) error {
	if _, err := c.record(); err != nil {
		return err
	}

	e, cleanup, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer cleanup()

	return c.executeWithEnv(e)
}

// record validates the flags and builds the metadata record they describe.
func (c *AddCommand) record() (tabs.Metadata, error) {
	var m tabs.Metadata

	if c.URL == "" && c.ID == "" {
		return m, fmt.Errorf("--url or --id is required for add command")
	}
	if c.URL != "" && c.ID != "" {
		return m, fmt.Errorf("--url and --id are mutually exclusive")
	}
	if strings.TrimSpace(c.Title) == "" {
		return m, fmt.Errorf("--title is required for add command")
	}
	if c.Views < 0 {
		return m, fmt.Errorf("--views cannot be negative")
	}

	src := c.ID
	if src == "" {
		src = c.URL
	}
	id, err := resolveVideoID(src)
	if err != nil {
		return m, err
	}

	m = tabs.Metadata{
		VideoID:  id,
		Title:    strings.TrimSpace(c.Title),
		Author:   strings.TrimSpace(c.Author),
		Views:    c.Views,
		Live:     c.Live,
		Playlist: c.Playlist || (c.URL != "" && youtube.IsPlaylistURL(c.URL)),
	}

	if c.Duration != "" {
		if m.Duration, err = parseClock(c.Duration); err != nil {
			return m, fmt.Errorf("--duration: %w", err)
		}
	}
	if c.Skipped != "" {
		skipped, err := parseClock(c.Skipped)
		if err != nil {
			return m, fmt.Errorf("--skipped: %w", err)
		}
		m.Skipped = &skipped
	}
	if c.Uploaded != "" {
		t, err := time.Parse("2006-01-02", c.Uploaded)
		if err != nil {
			return m, fmt.Errorf("--uploaded: want YYYY-MM-DD, got %q", c.Uploaded)
		}
		m.UploadDate = t.UTC()
	}
	if c.Premiere != "" {
		d, err := parseDuration(c.Premiere)
		if err != nil {
			return m, fmt.Errorf("--premiere: %w", err)
		}
		secs := int64(d / time.Second)
		m.Premiere = &secs
		m.Live = true
	}
	return m, nil
}

// executeWithEnv stores the record (used by tests).
func (c *AddCommand) executeWithEnv(e *env) error {
	m, err := c.record()
	if err != nil {
		return err
	}

	if err := e.store.PutMetadata(context.Background(), &m); err != nil {
		return fmt.Errorf("storing metadata: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(m)
	}

	fmt.Printf("Cached %s\n", m.VideoID)
	fmt.Printf("  Title:    %s\n", m.Title)
	if m.Author != "" {
		fmt.Printf("  Channel:  %s\n", m.Author)
	}
	if m.Duration > 0 {
		fmt.Printf("  Duration: %s\n", youtube.FormatDuration(m.Duration))
	}
	return nil
}
