package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/runnerr0/tubesort/internal/server"
	"github.com/runnerr0/tubesort/internal/settings"
	"github.com/runnerr0/tubesort/internal/sorter"
)

const shutdownTimeout = 10 * time.Second

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("--port must be between 0 and 65535")
	}

	e, cleanup, err := openEnv(c.globals)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", c.addr(e))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return c.serve(ctx, e, ln)
}

// addr applies --host and --port over the configured listen address.
func (c *ServeCommand) addr(e *env) string {
	host, port := e.cfg.Server.Host, e.cfg.Server.Port
	if c.Host != "" {
		host = c.Host
	}
	if c.Port != 0 {
		port = c.Port
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// serve runs the bridge on ln until ctx is cancelled, then shuts down
// gracefully.
func (c *ServeCommand) serve(ctx context.Context, e *env, ln net.Listener) error {
	e.settings.OnChange(logSettingsChange(e.logger))

	api := server.New(e.store, e.settings, sorter.New(e.store, e.settings, e.logger), e.logger,
		server.WithMaxBody(e.cfg.Server.MaxRequestSize),
		server.WithVersion(c.version),
	)

	srv := &http.Server{
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		e.logger.Info("bridge listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		e.logger.Info("shutting down bridge")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			e.logger.Warn("graceful shutdown failed", "err", err)
			_ = srv.Close()
		}
		return nil
	})
	return g.Wait()
}

// logSettingsChange reports each saved settings change made through the
// bridge.
func logSettingsChange(logger *slog.Logger) settings.Hook {
	return func(s settings.Settings) {
		order := make([]string, len(s.Sorting))
		for i, r := range s.Sorting {
			order[i] = r.Attr + ":" + r.Direction()
		}
		logger.Info("settings changed",
			"rules", strings.Join(order, ","),
			"ignore_inactive", s.IgnoreInactive,
			"ignore_playlists", s.IgnorePlaylists,
			"ignore_live", s.IgnoreLive,
			"sort_sponsorblock", s.SortSponsorBlock,
			"force_reload", s.ForceReload,
			"menu", s.Menu,
		)
	}
}
