package server

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/runnerr0/tubesort/internal/settings"
	"github.com/runnerr0/tubesort/internal/storage"
	"github.com/runnerr0/tubesort/internal/tabs"
	"github.com/runnerr0/tubesort/internal/youtube"
)

type healthResponse struct {
	Status  string `json:"status"`
	Sorting bool   `json:"sorting"`
	Version string `json:"version,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Sorting: s.sorter.Busy(),
		Version: s.version,
	})
}

// settingsError maps a settings update failure to a status code.
func settingsError(w http.ResponseWriter, err error) {
	if errors.Is(err, settings.ErrUnknown) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Current())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	next, err := settings.Decode(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	saved, err := s.settings.Replace(r.Context(), next)
	if err != nil {
		settingsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handlePatchFlags(w http.ResponseWriter, r *http.Request) {
	var flags map[string]bool
	if err := s.decode(w, r, &flags); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	slices.Sort(names)

	saved, err := s.settings.Update(r.Context(), func(cur settings.Settings) (settings.Settings, error) {
		for _, name := range names {
			next, err := cur.SetFlag(name, flags[name])
			if err != nil {
				return cur, err
			}
			cur = next
		}
		return cur, nil
	})
	if err != nil {
		if errors.Is(err, settings.ErrUnknown) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		settingsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleMoveRule(down bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		saved, err := s.settings.MoveRule(r.Context(), chi.URLParam(r, "attr"), down)
		if err != nil {
			settingsError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

type ascRequest struct {
	Asc *bool `json:"asc"`
}

func (s *Server) handleSetAsc(w http.ResponseWriter, r *http.Request) {
	var req ascRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Asc == nil {
		writeError(w, http.StatusBadRequest, "asc is required")
		return
	}
	saved, err := s.settings.SetRuleAsc(r.Context(), chi.URLParam(r, "attr"), *req.Asc)
	if err != nil {
		settingsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

type menuRequest struct {
	Menu *int `json:"menu"`
}

func (s *Server) handleSetMenu(w http.ResponseWriter, r *http.Request) {
	var req menuRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Menu == nil || *req.Menu < 0 {
		writeError(w, http.StatusBadRequest, "menu must be a non-negative index")
		return
	}
	saved, err := s.settings.SetMenu(r.Context(), *req.Menu)
	if err != nil {
		settingsError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func videoIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "videoID")
	if !youtube.ValidID(id) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid video id %q", id))
		return "", false
	}
	return id, true
}

func (s *Server) handlePutMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := videoIDParam(w, r)
	if !ok {
		return
	}
	var md tabs.Metadata
	if err := s.decode(w, r, &md); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if md.VideoID != "" && md.VideoID != id {
		writeError(w, http.StatusBadRequest, "body id does not match path")
		return
	}
	md.VideoID = id
	// Refreshed on every write so pruning sees fetch time.
	md.UpdatedAt = time.Time{}

	if err := s.store.PutMetadata(r.Context(), &md); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, md)
}

func (s *Server) handleGetMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := videoIDParam(w, r)
	if !ok {
		return
	}
	md, err := s.store.GetMetadata(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, md)
}

func (s *Server) handleDeleteMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := videoIDParam(w, r)
	if !ok {
		return
	}
	n, err := s.store.DeleteMetadata(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, fmt.Sprintf("video %s: not cached", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	if err := s.store.PurgeAll(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.store.LogAction(r.Context(), storage.ActionPurge, "api", ""); err != nil {
		s.logger.Warn("audit log write failed", "err", err)
	}
	s.logger.Info("metadata cache purged")
	w.WriteHeader(http.StatusNoContent)
}

type tabsRequest struct {
	Tabs []tabs.Tab `json:"tabs"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	var req tabsRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	view, err := s.sorter.View(r.Context(), req.Tabs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req tabsRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dryRun := strings.EqualFold(r.URL.Query().Get("dry_run"), "true")

	res, err := s.sorter.Plan(r.Context(), req.Tabs, dryRun)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Info("plan built", "plan", res.ID, "tabs", len(res.Entries), "commands", len(res.Commands))
	writeJSON(w, http.StatusOK, res)
}

type urlRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleUnload(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := s.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}
	if err := s.store.SetTabURL(r.Context(), chi.URLParam(r, "id"), req.URL); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTabURL(w http.ResponseWriter, r *http.Request) {
	url, err := s.store.TabURL(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, urlRequest{URL: url})
}
