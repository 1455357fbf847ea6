package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dkovalev/schemalens/internal/database"
	"github.com/dkovalev/schemalens/internal/errs"
	"github.com/dkovalev/schemalens/internal/render"
)

// loadRequest is the connection record the dashboard sends. Omitted fields
// fall back to the configured defaults.
type loadRequest struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type loadResponse struct {
	Tables      int `json:"tables"`
	ForeignKeys int `json:"foreign_keys"`
}

func (s *Server) handleLoadSchema(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errs.Wrap(errs.ErrKindInvalidInput, "invalid request body", err))
		return
	}

	cfg := s.connectionConfig(req)

	model, err := s.extract(r.Context(), cfg)
	if err != nil {
		// The previous model (if any) stays available.
		s.writeError(w, err)
		return
	}
	s.setModel(model)

	s.writeJSON(w, http.StatusOK, loadResponse{
		Tables:      len(model.Tables),
		ForeignKeys: len(model.ForeignKeys),
	})
}

// connectionConfig merges the request's connection record over the
// configured defaults.
func (s *Server) connectionConfig(req loadRequest) *database.Config {
	cfg := s.cfg.DatabaseConfig()
	if req.Host != "" {
		cfg.Host = req.Host
	}
	if req.Port != 0 {
		cfg.Port = req.Port
	}
	if req.Database != "" {
		cfg.Database = req.Database
	}
	if req.User != "" {
		cfg.User = req.User
	}
	if req.Password != "" {
		cfg.Password = req.Password
	}
	return cfg
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	model := s.currentModel()
	if model == nil {
		s.writeError(w, errNoSchema)
		return
	}
	s.writeJSON(w, http.StatusOK, model)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	model := s.currentModel()
	if model == nil {
		s.writeError(w, errNoSchema)
		return
	}
	s.writeJSON(w, http.StatusOK, model.ComputeStats())
}

// handleDiagram serves one renderer's output. The renderer is resolved per
// request so tests may substitute it.
func (s *Server) handleDiagram(renderer func() render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		model := s.currentModel()
		if model == nil {
			s.writeError(w, errNoSchema)
			return
		}

		art, err := renderer().Render(model)
		if err != nil {
			// A render failure aborts only this call; the model stays loaded.
			s.writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", art.ContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(art.Data)
	}
}

type publishResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.writeError(w, errs.New(errs.ErrKindNotFound, "artifact store not configured"))
		return
	}

	var renderer render.Renderer
	kind := chi.URLParam(r, "kind")
	switch kind {
	case "erd":
		renderer = s.erd
	case "graph":
		renderer = s.graph
	default:
		s.writeError(w, errs.New(errs.ErrKindInvalidInput, "unknown diagram kind: "+kind))
		return
	}

	model := s.currentModel()
	if model == nil {
		s.writeError(w, errNoSchema)
		return
	}

	art, err := renderer.Render(model)
	if err != nil {
		s.writeError(w, err)
		return
	}

	key := fmt.Sprintf("%s-%s.%s", kind, time.Now().UTC().Format("20060102T150405"), art.Format)
	if err := s.store.Put(r.Context(), key, art.Data, art.ContentType); err != nil {
		s.writeError(w, err)
		return
	}

	url, err := s.store.PresignGetURL(r.Context(), key, 15*time.Minute)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, publishResponse{Key: key, URL: url})
}

// --- response helpers ---

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.With().Err(err).Logger().Error("failed to encode response")
	}
}

// writeError maps error kinds to HTTP statuses. Nothing here is fatal to the
// process — every failure is a human-readable message the user can act on.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errNoSchema):
		status = http.StatusConflict
	case errs.IsConnectionFailed(err):
		status = http.StatusBadGateway
	case errs.IsQueryFailed(err), errs.IsInvalidInput(err):
		status = http.StatusBadRequest
	case errs.IsTimeout(err):
		status = http.StatusGatewayTimeout
	case errs.IsNotFound(err):
		status = http.StatusNotFound
	case errs.IsRenderFailed(err):
		status = http.StatusInternalServerError
	}

	s.log.With().Err(err).Int("status", status).Logger().Warn("request failed")
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
