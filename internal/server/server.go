// Package server is the dashboard surface: it lets a user configure
// connection parameters, trigger extraction, and fetch either renderer's
// output plus tabular summaries of the loaded schema.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dkovalev/schemalens/internal/config"
	"github.com/dkovalev/schemalens/internal/database"
	"github.com/dkovalev/schemalens/internal/filestore"
	"github.com/dkovalev/schemalens/internal/logger"
	"github.com/dkovalev/schemalens/internal/render"
	"github.com/dkovalev/schemalens/internal/schema"
)

// ExtractFunc runs one schema extraction against the given connection
// parameters.
type ExtractFunc func(ctx context.Context, cfg *database.Config) (*schema.Model, error)

// Server holds the last successfully loaded schema model and serves the
// dashboard API. The model is an explicit value guarded by a mutex and
// replaced atomically on each successful extraction — a failed extraction
// leaves the previous model untouched, so the dashboard stays usable and the
// user can retry with corrected parameters.
type Server struct {
	cfg     *config.Config
	log     *logger.Logger
	extract ExtractFunc
	erd     render.Renderer
	graph   render.Renderer
	store   filestore.Store // nil when publishing is disabled

	mu    sync.Mutex
	model *schema.Model
}

// New assembles the dashboard server. store may be nil.
func New(cfg *config.Config, log *logger.Logger, extract ExtractFunc, store filestore.Store) *Server {
	graph := render.NewForceGraph()
	if cfg.Graph.Width > 0 {
		graph.Width = cfg.Graph.Width
	}
	if cfg.Graph.Height > 0 {
		graph.Height = cfg.Graph.Height
	}
	if cfg.Graph.Seed > 0 {
		graph.Seed = cfg.Graph.Seed
	}

	return &Server{
		cfg:     cfg,
		log:     log,
		extract: extract,
		erd:     render.NewERD(),
		graph:   graph,
		store:   store,
	}
}

// Handler builds the chi router for the dashboard API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Post("/schema", s.handleLoadSchema)
		r.Get("/schema", s.handleGetSchema)
		r.Get("/schema/stats", s.handleStats)
		r.Get("/diagram/erd", s.handleDiagram(func() render.Renderer { return s.erd }))
		r.Get("/diagram/graph", s.handleDiagram(func() render.Renderer { return s.graph }))
		r.Post("/diagram/{kind}/publish", s.handlePublish)
	})

	return r
}

// Run serves the dashboard until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Server.Addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("dashboard listening on %s", s.cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// currentModel returns the held model, or nil when nothing is loaded yet.
func (s *Server) currentModel() *schema.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

func (s *Server) setModel(m *schema.Model) {
	s.mu.Lock()
	s.model = m
	s.mu.Unlock()
}

// requestLogger logs one structured line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Event().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// errNoSchema is returned by read endpoints before the first successful load.
var errNoSchema = errors.New("no schema loaded — POST /api/schema first")
