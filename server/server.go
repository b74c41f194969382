// Package server exposes the journal over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	journal "github.com/etnz/tradejournal"
)

// ErrBusy is returned by Sync while another sync is running.
var ErrBusy = errors.New("a sync is already running")

// Config holds server configuration
type Config struct {
	Addr     string
	Log      zerolog.Logger
	Ingestor *journal.Ingestor
	Origins  []string // CORS allowed origins, defaults to all
}

// Server serves the last computed journal and triggers syncs.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	in     *journal.Ingestor

	syncing sync.Mutex // held while a sync runs

	mu       sync.RWMutex
	view     *journal.View
	lastSync time.Time
	lastErr  error
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		in:     cfg.Ingestor,
	}

	s.setupMiddleware(cfg.Origins)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // a sync pages through the brokerage
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) setupMiddleware(origins []string) {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/journal", s.handleJournal)
		r.Get("/summary", s.handleSummary)
		r.Post("/sync", s.handleSync)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Sync runs an ingestion cycle unless one is already running.
func (s *Server) Sync(ctx context.Context) (journal.Result, error) {
	if !s.syncing.TryLock() {
		return journal.Result{}, ErrBusy
	}
	defer s.syncing.Unlock()

	res, err := s.in.Sync(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if err != nil {
		return res, err
	}
	view := res.View()
	s.view = &view
	s.lastSync = time.Now()
	return res, nil
}

// current returns the last computed view, or the view of the stored ledger
// without prices if no sync has run yet.
func (s *Server) current(ctx context.Context) (journal.View, error) {
	s.mu.RLock()
	view := s.view
	s.mu.RUnlock()
	if view != nil {
		return *view, nil
	}

	l, err := s.in.Store.Load(ctx)
	if errors.Is(err, journal.ErrNoLedger) {
		l = journal.NewLedger(s.in.Epoch, s.in.Currency, s.in.Location)
	} else if err != nil {
		return journal.View{}, err
	}
	return journal.NewView(l, nil, 0), nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := map[string]any{"status": "ok"}
	if !s.lastSync.IsZero() {
		status["lastSync"] = s.lastSync.UTC()
	}
	if s.lastErr != nil {
		status["lastError"] = s.lastErr.Error()
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	view, err := s.current(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	view, err := s.current(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"summary":   view.Summary,
		"unmatched": view.Unmatched,
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.Sync(r.Context())
	switch {
	case errors.Is(err, ErrBusy):
		s.writeError(w, http.StatusConflict, err)
		return
	case errors.Is(err, journal.ErrFetch):
		s.writeError(w, http.StatusBadGateway, err)
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"fetched":   res.Fetched,
		"skipped":   res.Skipped,
		"unmatched": len(res.Unmatched),
		"summary":   res.Summary,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.log.Warn().Err(err).Int("status", status).Msg("request failed")
	s.writeJSON(w, status, map[string]string{"error": fmt.Sprint(err)})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
