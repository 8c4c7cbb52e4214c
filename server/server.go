package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/xhad/smartnotes/internal/types"
	"github.com/xhad/smartnotes/pkg/acquire"
	"github.com/xhad/smartnotes/pkg/auth"
	"github.com/xhad/smartnotes/pkg/metrics"
	"github.com/xhad/smartnotes/pkg/pipeline"
	"go.uber.org/zap"
)

type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// Deps are the pipeline stages the HTTP surface drives. Metrics and Logger
// may be nil.
type Deps struct {
	Store        types.NoteStore
	Sessions     *auth.Sessions
	Upload       *acquire.Upload
	YouTube      *acquire.YouTube
	Live         *acquire.Live
	Orchestrator *pipeline.Orchestrator
	Metrics      *metrics.Collector
	Logger       *zap.Logger
	Now          func() time.Time
}

type Server struct {
	config       Config
	store        types.NoteStore
	sessions     *auth.Sessions
	upload       *acquire.Upload
	youtube      *acquire.YouTube
	live         *acquire.Live
	orchestrator *pipeline.Orchestrator
	metrics      *metrics.Collector
	logger       *zap.Logger
	now          func() time.Time
}

func New(config Config, deps Deps) (*Server, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("server: note store is required")
	case deps.Sessions == nil:
		return nil, errors.New("server: sessions are required")
	case deps.Upload == nil || deps.YouTube == nil || deps.Live == nil:
		return nil, errors.New("server: acquirers are required")
	case deps.Orchestrator == nil:
		return nil, errors.New("server: orchestrator is required")
	}

	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if config.Addr == "" {
		config.Addr = ":8080"
	}

	return &Server{
		config:       config,
		store:        deps.Store,
		sessions:     deps.Sessions,
		upload:       deps.Upload,
		youtube:      deps.YouTube,
		live:         deps.Live,
		orchestrator: deps.Orchestrator,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		now:          deps.Now,
	}, nil
}

// Router builds the full route table.
func (s *Server) Router() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(Logger(s.logger, s.metrics))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID", fallbackHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", s.healthCheck)
	if s.metrics != nil {
		router.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	router.Route("/api", func(r chi.Router) {
		r.Post("/transcribe", s.handleTranscribe)
		r.Post("/youtube-audio", s.handleYouTube)
		r.Get("/live", s.handleLive)

		r.Post("/generate-notes", s.handleGenerateNotes)
		r.Post("/generate-mindmap", s.handleGenerateMindmap)
		r.Post("/generate", s.handleGenerate)

		r.Post("/export", s.handleExport)

		r.Route("/notes", func(r chi.Router) {
			r.Use(s.sessions.Middleware)
			r.Get("/", s.handleListNotes)
			r.Post("/", s.handleSaveNote)
			r.Post("/save", s.handleSaveNote)
			r.Get("/{noteID}", s.handleGetNote)
			r.Delete("/{noteID}", s.handleDeleteNote)
		})
	})

	return router
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", zap.String("addr", s.config.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
