package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/runnerr0/tubesort/internal/storage"
	"github.com/runnerr0/tubesort/internal/tabs"
	"github.com/runnerr0/tubesort/internal/youtube"
)

// Execute implements the go-flags Commander interface for SearchCommand.
func (c *SearchCommand) Execute(args []string) error {
	if _, err := c.query(args, time.Now()); err != nil {
		return err
	}

	e, cleanup, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer cleanup()

	return c.executeWithEnv(e, args)
}

// query builds the storage query from flags and positional words.
func (c *SearchCommand) query(args []string, now time.Time) (storage.SearchQuery, error) {
	if c.Limit < 0 || c.Offset < 0 {
		return storage.SearchQuery{}, fmt.Errorf("--limit and --offset cannot be negative")
	}

	sq := storage.SearchQuery{
		Query:    strings.Join(args, " "),
		Author:   c.Author,
		Live:     c.Live,
		Playlist: c.Playlist,
		Limit:    c.Limit,
		Offset:   c.Offset,
	}
	if c.Since != "" {
		dur, err := parseDuration(c.Since)
		if err != nil {
			return sq, fmt.Errorf("invalid --since value %q: %w", c.Since, err)
		}
		sq.Since = now.Add(-dur)
	}
	return sq, nil
}

// executeWithEnv runs the search against an open env (for testing).
func (c *SearchCommand) executeWithEnv(e *env, args []string) error {
	sq, err := c.query(args, time.Now())
	if err != nil {
		return err
	}

	results, err := e.store.SearchMetadata(context.Background(), sq)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return printJSON(jsonSearchOutput{Count: len(results), Query: sq.Query, Results: results})
	}
	return c.printHuman(sq.Query, results)
}

type jsonSearchOutput struct {
	Count   int             `json:"count"`
	Query   string          `json:"query"`
	Results []tabs.Metadata `json:"results"`
}

func (c *SearchCommand) printHuman(query string, results []tabs.Metadata) error {
	if len(results) == 0 {
		if query != "" {
			fmt.Printf("No cached videos match %q\n", query)
		} else {
			fmt.Println("No cached videos match")
		}
		return nil
	}

	resultWord := "results"
	if len(results) == 1 {
		resultWord = "result"
	}
	if query != "" {
		fmt.Printf("Found %d %s for %q\n\n", len(results), resultWord, query)
	} else {
		fmt.Printf("Found %d %s\n\n", len(results), resultWord)
	}

	for i, m := range results {
		fmt.Printf("%d. %s", i+1+c.Offset, m.Title)
		if m.Author != "" {
			fmt.Printf(" · %s", m.Author)
		}
		fmt.Println()
		fmt.Printf("   %s\n", youtube.WatchURL(m.VideoID))

		meta := []string{youtube.FormatDuration(m.Duration), youtube.FormatViews(m.Views) + " views"}
		if m.Live {
			meta = append(meta, "live")
		}
		if m.Playlist {
			meta = append(meta, "playlist")
		}
		meta = append(meta, "fetched "+m.UpdatedAt.Local().Format("2006-01-02 15:04"))
		fmt.Printf("   %s\n", dimStyle.Render(strings.Join(meta, " · ")))

		if i < len(results)-1 {
			fmt.Println()
		}
	}
	return nil
}
