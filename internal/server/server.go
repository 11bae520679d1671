// Package server exposes settings, the metadata cache, and sort planning to
// the companion browser extension over a local JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/runnerr0/tubesort/internal/settings"
	"github.com/runnerr0/tubesort/internal/sorter"
	"github.com/runnerr0/tubesort/internal/tabs"
)

// Store is the part of the storage layer the API touches directly.
type Store interface {
	PutMetadata(ctx context.Context, md *tabs.Metadata) error
	GetMetadata(ctx context.Context, videoID string) (*tabs.Metadata, error)
	DeleteMetadata(ctx context.Context, videoIDs ...string) (int64, error)
	PurgeAll(ctx context.Context) error
	SetTabURL(ctx context.Context, tabID, url string) error
	TabURL(ctx context.Context, tabID string) (string, error)
	LogAction(ctx context.Context, action, detail, videoID string) error
}

// Server holds the API dependencies.
type Server struct {
	store    Store
	settings *settings.Service
	sorter   *sorter.Service
	logger   *slog.Logger
	maxBody  int64
	version  string
}

// Option configures a Server.
type Option func(*Server)

// WithMaxBody limits request body size in bytes.
func WithMaxBody(n int64) Option {
	return func(s *Server) { s.maxBody = n }
}

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// New creates a Server.
func New(store Store, set *settings.Service, sort *sorter.Service, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:    store,
		settings: set,
		sorter:   sort,
		logger:   logger,
		maxBody:  1 << 20,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
		r.Patch("/settings/flags", s.handlePatchFlags)
		r.Put("/settings/menu", s.handleSetMenu)
		r.Post("/settings/rules/{attr}/up", s.handleMoveRule(false))
		r.Post("/settings/rules/{attr}/down", s.handleMoveRule(true))
		r.Put("/settings/rules/{attr}/asc", s.handleSetAsc)

		r.Delete("/metadata", s.handlePurge)
		r.Put("/metadata/{videoID}", s.handlePutMetadata)
		r.Get("/metadata/{videoID}", s.handleGetMetadata)
		r.Delete("/metadata/{videoID}", s.handleDeleteMetadata)

		r.Post("/view", s.handleView)
		r.Post("/plan", s.handlePlan)

		r.Post("/tabs/{id}/unload", s.handleUnload)
		r.Get("/tabs/{id}/url", s.handleTabURL)
	})

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// decode reads a size-limited JSON body into v.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return err
	}
	return nil
}

// readBody reads a size-limited raw body.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
}
