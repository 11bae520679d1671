// Package sorter runs a sort end to end: snapshot the tabs and the cache,
// build the ordered view, evict stale cache entries, and apply the resulting
// commands through a browser driver.
package sorter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/runnerr0/tubesort/internal/browser"
	"github.com/runnerr0/tubesort/internal/settings"
	"github.com/runnerr0/tubesort/internal/storage"
	"github.com/runnerr0/tubesort/internal/tabs"
)

// ErrBusy is reported when a sort is requested while another is running.
var ErrBusy = errors.New("sort already in progress")

// reloadLimit bounds concurrent reloads within one phase.
const reloadLimit = 4

// Cache is the part of the store a sort needs.
type Cache interface {
	AllMetadata(ctx context.Context) (map[string]tabs.Metadata, error)
	DeleteMetadata(ctx context.Context, videoIDs ...string) (int64, error)
	TabURL(ctx context.Context, tabID string) (string, error)
	TabIDs(ctx context.Context) ([]string, error)
	DeleteTabURL(ctx context.Context, tabID string) error
	LogAction(ctx context.Context, action, detail, videoID string) error
}

// Outcome records what happened to one command.
type Outcome struct {
	tabs.Command
	Skipped bool   `json:"skipped,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Result describes one sort or plan. Error is set instead of returning an
// error so callers can show partial progress.
type Result struct {
	ID       string         `json:"id"`
	Entries  []tabs.Entry   `json:"entries"`
	Stats    tabs.Stats     `json:"stats"`
	Commands []tabs.Command `json:"commands"`
	Outcomes []Outcome      `json:"outcomes,omitempty"`
	Evicted  []string       `json:"evicted"`
	DryRun   bool           `json:"dryRun,omitempty"`
	Elapsed  time.Duration  `json:"elapsed"`
	Error    string         `json:"error,omitempty"`
}

// Applied counts commands that ran without error.
func (r *Result) Applied() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.Skipped && o.Error == "" {
			n++
		}
	}
	return n
}

// Skipped counts commands the driver could not perform.
func (r *Result) Skipped() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Skipped {
			n++
		}
	}
	return n
}

// Options tune how a sort is applied.
type Options struct {
	// DryRun computes the plan without touching the browser or the cache.
	DryRun bool
	// Delay pauses between moves for browsers that reorder asynchronously.
	Delay time.Duration
}

// Service runs sorts. At most one sort runs at a time.
type Service struct {
	cache    Cache
	settings *settings.Service
	logger   *slog.Logger
	busy     atomic.Bool
}

// New creates a Service.
func New(cache Cache, s *settings.Service, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{cache: cache, settings: s, logger: logger}
}

// Busy reports whether a sort is running.
func (s *Service) Busy() bool {
	return s.busy.Load()
}

// View builds the display list for the given tabs without side effects.
func (s *Service) View(ctx context.Context, open []tabs.Tab) (tabs.View, error) {
	cache, err := s.cache.AllMetadata(ctx)
	if err != nil {
		return tabs.View{}, fmt.Errorf("load metadata: %w", err)
	}
	return tabs.Build(open, cache, s.settings.Current()), nil
}

// Plan builds the sorted list and command plan for a tab snapshot and, unless
// dryRun is set, evicts cache entries and recorded tab URLs no open tab refers
// to anymore.
func (s *Service) Plan(ctx context.Context, open []tabs.Tab, dryRun bool) (*Result, error) {
	start := time.Now()
	current := s.settings.Current()

	cache, err := s.cache.AllMetadata(ctx)
	if err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	view := tabs.Build(open, cache, current)

	cmds := tabs.Plan(view.Entries, current)
	for i := range cmds {
		if cmds[i].Kind != tabs.CommandReload {
			continue
		}
		url, err := s.cache.TabURL(ctx, cmds[i].TabID)
		switch {
		case err == nil:
			cmds[i].URL = url
		case !errors.Is(err, storage.ErrNotFound):
			return nil, fmt.Errorf("tab url: %w", err)
		}
	}

	res := &Result{
		ID:       newPlanID(),
		Entries:  view.Entries,
		Stats:    view.Stats,
		Commands: cmds,
		Evicted:  view.Stale,
		DryRun:   dryRun,
	}
	if res.Evicted == nil {
		res.Evicted = []string{}
	}

	if !dryRun && len(view.Stale) > 0 {
		n, err := s.cache.DeleteMetadata(ctx, view.Stale...)
		if err != nil {
			return nil, fmt.Errorf("evict stale metadata: %w", err)
		}
		for _, id := range view.Stale {
			if err := s.cache.LogAction(ctx, storage.ActionEvict, "no open tab", id); err != nil {
				s.logger.Warn("audit log write failed", "err", err)
			}
		}
		s.logger.Info("evicted stale metadata", "count", n)
	}
	if !dryRun {
		if err := s.forgetClosedTabs(ctx, open); err != nil {
			return nil, err
		}
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

// forgetClosedTabs drops recorded reload URLs for tabs missing from open.
func (s *Service) forgetClosedTabs(ctx context.Context, open []tabs.Tab) error {
	recorded, err := s.cache.TabIDs(ctx)
	if err != nil {
		return fmt.Errorf("list tab urls: %w", err)
	}
	present := make(map[string]bool, len(open))
	for _, tab := range open {
		present[tab.ID] = true
	}

	var n int
	for _, id := range recorded {
		if present[id] {
			continue
		}
		if err := s.cache.DeleteTabURL(ctx, id); err != nil {
			return fmt.Errorf("forget tab url: %w", err)
		}
		n++
		if err := s.cache.LogAction(ctx, storage.ActionForget, "tab "+id+" closed", ""); err != nil {
			s.logger.Warn("audit log write failed", "err", err)
		}
	}
	if n > 0 {
		s.logger.Info("forgot closed tab urls", "count", n)
	}
	return nil
}

// Sort queries the browser, plans, and applies the plan. Failures are
// reported in Result.Error; a command the driver cannot perform is marked
// skipped and the rest of the plan still runs.
func (s *Service) Sort(ctx context.Context, q browser.Querier, opts Options) *Result {
	if !s.busy.CompareAndSwap(false, true) {
		return &Result{Error: ErrBusy.Error()}
	}
	defer s.busy.Store(false)

	start := time.Now()
	res, err := s.sort(ctx, q, opts)
	if res == nil {
		res = &Result{DryRun: opts.DryRun}
	}
	res.Elapsed = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		s.logger.Error("sort failed", "err", err)
		return res
	}

	s.logger.Info("sorted tabs",
		"plan", res.ID,
		"tabs", len(res.Entries),
		"applied", res.Applied(),
		"skipped", res.Skipped(),
		"evicted", len(res.Evicted),
		"dry_run", opts.DryRun,
	)
	if !opts.DryRun {
		detail := fmt.Sprintf("plan %s: %d tabs, %d commands", res.ID, len(res.Entries), len(res.Commands))
		if err := s.cache.LogAction(ctx, storage.ActionSort, detail, ""); err != nil {
			s.logger.Warn("audit log write failed", "err", err)
		}
	}
	return res
}

func (s *Service) sort(ctx context.Context, q browser.Querier, opts Options) (*Result, error) {
	open, err := q.Query(ctx)
	if err != nil {
		return nil, fmt.Errorf("query tabs: %w", err)
	}

	res, err := s.Plan(ctx, open, opts.DryRun)
	if err != nil {
		return nil, err
	}
	if opts.DryRun {
		return res, nil
	}

	res.Outcomes = make([]Outcome, len(res.Commands))
	var failed []string

	// Commands are grouped by phase. Reloads within a phase are independent;
	// moves must run one after another.
	for _, group := range groupByPhase(res.Commands) {
		if group.phase == tabs.PhaseMove {
			for _, i := range group.indexes {
				res.Outcomes[i] = s.apply(ctx, q, res.Commands[i])
				if err := pause(ctx, opts.Delay); err != nil {
					res.Outcomes = res.Outcomes[:i+1]
					return res, fmt.Errorf("sort interrupted: %w", err)
				}
			}
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(reloadLimit)
		for _, i := range group.indexes {
			g.Go(func() error {
				res.Outcomes[i] = s.apply(gctx, q, res.Commands[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	for _, o := range res.Outcomes {
		if o.Error != "" {
			failed = append(failed, o.Error)
		}
	}
	if len(failed) > 0 {
		return res, fmt.Errorf("%d of %d commands failed: %s", len(failed), len(res.Commands), strings.Join(failed, "; "))
	}

	if saver, ok := q.(interface{ Save() error }); ok {
		if err := saver.Save(); err != nil {
			return res, err
		}
	}
	return res, nil
}

// pause waits for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Service) apply(ctx context.Context, q browser.Querier, cmd tabs.Command) Outcome {
	out := Outcome{Command: cmd}
	err := browser.Apply(ctx, q, cmd)
	switch {
	case err == nil:
	case errors.Is(err, browser.ErrUnsupported):
		out.Skipped = true
		s.logger.Debug("command skipped", "kind", cmd.Kind, "tab", cmd.TabID)
	default:
		out.Error = err.Error()
	}
	return out
}

type phaseGroup struct {
	phase   tabs.Phase
	indexes []int
}

// groupByPhase splits commands into consecutive runs sharing a phase.
func groupByPhase(cmds []tabs.Command) []phaseGroup {
	var groups []phaseGroup
	for i, c := range cmds {
		if n := len(groups); n > 0 && groups[n-1].phase == c.Phase {
			groups[n-1].indexes = append(groups[n-1].indexes, i)
			continue
		}
		groups = append(groups, phaseGroup{phase: c.Phase, indexes: []int{i}})
	}
	return groups
}

var planSeq atomic.Int64

// newPlanID returns a time-ordered identifier for a plan.
func newPlanID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("plan-%d-%d", time.Now().UnixNano(), planSeq.Add(1))
	}
	return id.String()
}
