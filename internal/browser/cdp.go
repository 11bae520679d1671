package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/runnerr0/tubesort/internal/tabs"
	"github.com/runnerr0/tubesort/internal/youtube"
)

// CDP drives an already running Chromium over the DevTools protocol. Start
// the browser with --remote-debugging-port to expose the endpoint.
//
// The protocol exposes page targets but not the tab strip, so CDP cannot move
// tabs and reports nothing about pinned or discarded state.
type CDP struct {
	url    string
	hosts  []string
	logger *slog.Logger
}

// NewCDP returns a driver for the DevTools endpoint at url (http or ws).
// Only page targets on one of hosts are listed.
func NewCDP(url string, hosts []string, logger *slog.Logger) *CDP {
	return &CDP{url: url, hosts: hosts, logger: logger}
}

// connect attaches to the browser without opening a new tab.
func (c *CDP) connect(ctx context.Context) (context.Context, []*target.Info, context.CancelFunc, error) {
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, c.url)
	bctx, bcancel := chromedp.NewContext(allocCtx)
	cancel := func() {
		bcancel()
		allocCancel()
	}

	infos, err := chromedp.Targets(bctx)
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("connect to %s: %w", c.url, err)
	}
	return bctx, infos, cancel, nil
}

func (c *CDP) pages(infos []*target.Info) []*target.Info {
	var out []*target.Info
	for _, info := range infos {
		if info.Type != "page" || !youtube.MatchesHost(info.URL, c.hosts) {
			continue
		}
		out = append(out, info)
	}
	return out
}

func (c *CDP) Query(ctx context.Context) ([]tabs.Tab, error) {
	_, infos, cancel, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	var list []tabs.Tab
	for _, info := range c.pages(infos) {
		list = append(list, tabs.Tab{
			ID:    string(info.TargetID),
			URL:   info.URL,
			Title: info.Title,
		})
	}
	c.logger.Debug("queried devtools targets", "targets", len(infos), "tabs", len(list))
	return list, nil
}

func (c *CDP) URL(ctx context.Context, tabID string) (string, error) {
	_, infos, cancel, err := c.connect(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	for _, info := range infos {
		if string(info.TargetID) == tabID {
			return info.URL, nil
		}
	}
	return "", fmt.Errorf("tab %s: %w", tabID, ErrTabNotFound)
}

// Reload reloads the tab, or navigates it to url when set. The tab is driven
// through its own DevTools session, which is detached before its context ends:
// chromedp closes the tab behind any target-bound context that is cancelled.
func (c *CDP) Reload(ctx context.Context, tabID, url string) error {
	bctx, _, cancel, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	tctx, tcancel := chromedp.NewContext(context.WithoutCancel(bctx), chromedp.WithTargetID(target.ID(tabID)))
	defer tcancel()
	defer func() {
		if err := detach(tctx); err != nil {
			c.logger.Warn("detach from tab failed", "tab", tabID, "err", err)
		}
	}()

	err = chromedp.Run(tctx, chromedp.ActionFunc(func(actx context.Context) error {
		actx, stop := bound(actx, ctx)
		defer stop()
		return reloadAction(url).Do(actx)
	}))
	if err != nil {
		return fmt.Errorf("reload tab %s: %w", tabID, err)
	}
	return nil
}

func reloadAction(url string) chromedp.Action {
	if url == "" {
		return page.Reload()
	}
	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, errText, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errText != "" {
			return fmt.Errorf("navigate to %s: %s", url, errText)
		}
		return nil
	})
}

// bound derives a context from actx that also ends when parent does.
func bound(actx, parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(actx)
	stop := context.AfterFunc(parent, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// detach ends the DevTools session bound to tctx and unbinds it, so that
// cancelling tctx afterwards leaves the tab open.
func detach(tctx context.Context) error {
	c := chromedp.FromContext(tctx)
	if c == nil || c.Target == nil {
		return nil
	}
	session := c.Target.SessionID
	c.Target = nil
	if c.Browser == nil {
		return errors.New("no browser connection")
	}

	dctx, cancel := context.WithTimeout(tctx, time.Second)
	defer cancel()
	return target.DetachFromTarget().WithSessionID(session).Do(cdp.WithExecutor(dctx, c.Browser))
}

func (c *CDP) Activate(ctx context.Context, tabID string) error {
	bctx, _, cancel, err := c.connect(ctx)
	if err != nil {
		return err
	}
	defer cancel()

	exec := cdp.WithExecutor(bctx, chromedp.FromContext(bctx).Browser)
	if err := target.ActivateTarget(target.ID(tabID)).Do(exec); err != nil {
		return fmt.Errorf("activate tab %s: %w", tabID, err)
	}
	return nil
}
