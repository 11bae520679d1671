// Package browser talks to the browser holding the tabs: listing them and
// applying the commands a sort produces. Drivers implement Querier plus
// whichever optional capabilities the underlying protocol offers.
package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/runnerr0/tubesort/internal/tabs"
)

// ErrUnsupported is returned when a driver lacks the capability a command needs.
var ErrUnsupported = errors.New("not supported by browser driver")

// ErrTabNotFound is returned for a tab ID the browser does not know.
var ErrTabNotFound = errors.New("tab not found")

// Querier lists open tabs.
type Querier interface {
	Query(ctx context.Context) ([]tabs.Tab, error)
	URL(ctx context.Context, tabID string) (string, error)
}

// Mover repositions a tab. An index of tabs.MoveToEnd places it last.
type Mover interface {
	Move(ctx context.Context, tabID string, index int) error
}

// Reloader reloads a tab, loading url instead when it is non-empty.
type Reloader interface {
	Reload(ctx context.Context, tabID, url string) error
}

// Activator focuses a tab.
type Activator interface {
	Activate(ctx context.Context, tabID string) error
}

// Apply runs one command against q, using whichever capability it needs.
func Apply(ctx context.Context, q Querier, cmd tabs.Command) error {
	switch cmd.Kind {
	case tabs.CommandMove:
		m, ok := q.(Mover)
		if !ok {
			return fmt.Errorf("move tab %s: %w", cmd.TabID, ErrUnsupported)
		}
		return m.Move(ctx, cmd.TabID, cmd.Index)
	case tabs.CommandReload:
		r, ok := q.(Reloader)
		if !ok {
			return fmt.Errorf("reload tab %s: %w", cmd.TabID, ErrUnsupported)
		}
		return r.Reload(ctx, cmd.TabID, cmd.URL)
	}
	return fmt.Errorf("unknown command %q", cmd.Kind)
}

// Activate focuses tabID when q supports it.
func Activate(ctx context.Context, q Querier, tabID string) error {
	a, ok := q.(Activator)
	if !ok {
		return fmt.Errorf("activate tab %s: %w", tabID, ErrUnsupported)
	}
	return a.Activate(ctx, tabID)
}
