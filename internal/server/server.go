// Package server exposes discovery, analysis, translation and scheduler
// control over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/deusflow/geonews/internal/app"
	"github.com/deusflow/geonews/internal/config"
	"github.com/deusflow/geonews/internal/discovery"
	"github.com/deusflow/geonews/internal/logger"
	"github.com/deusflow/geonews/internal/models"
	"github.com/deusflow/geonews/internal/pagination"
	"github.com/deusflow/geonews/internal/pipeline"
	"github.com/deusflow/geonews/internal/resolver"
	"github.com/deusflow/geonews/internal/scheduler"
	"github.com/deusflow/geonews/internal/sources"
	"github.com/deusflow/geonews/internal/translate"
)

type ContextResolver interface {
	Resolve(ctx context.Context, h resolver.Hints) models.Context
}

type PageFetcher interface {
	Fetch(ctx context.Context, c models.Context) (*discovery.Page, error)
}

// IngestControl is the part of the feed scheduler the API can drive.
type IngestControl interface {
	Trigger(c models.Context) bool
	Pause()
	Resume()
	Status() scheduler.Status
}

type ArticleAnalyzer interface {
	Analyze(ctx context.Context, articleID string, stages []pipeline.Stage, mode app.Mode) (*pipeline.Result, error)
}

type BatchTranslator interface {
	Batch(ctx context.Context, texts []string, srcLang string) []translate.Result
}

type SourceSelector interface {
	Select(c models.Context) []sources.Source
}

// Store is the read side of persistence used by the API.
type Store interface {
	ListRecent(ctx context.Context, after pagination.Cursor, limit int) ([]models.Article, error)
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	Stats(ctx context.Context) (map[string]int, error)
}

// StatsSource contributes a section to /stats.
type StatsSource interface {
	GetStats() map[string]interface{}
}

// Deps are the services behind the routes. AIStats may be nil.
type Deps struct {
	Resolver   ContextResolver
	Discovery  PageFetcher
	Scheduler  IngestControl
	Analyzer   ArticleAnalyzer
	Translator BatchTranslator
	Sources    SourceSelector
	Store      Store
	AIStats    StatsSource
}

// DepsFromApp adapts a wired application.
func DepsFromApp(a *app.App) Deps {
	return Deps{
		Resolver:   a.Resolver,
		Discovery:  a.Discovery,
		Scheduler:  a.Scheduler,
		Analyzer:   a.Analyzer,
		Translator: a.Translator,
		Sources:    a.Catalog,
		Store:      a.Store,
		AIStats:    a.Limiter,
	}
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, deps Deps) *Server {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(logger.With("http")))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(timeout))

	origins := cfg.CorsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Retry-After", "X-Refresh-Triggered"},
		MaxAge:         300,
	}))

	news := &newsHandler{
		resolver:  deps.Resolver,
		discovery: deps.Discovery,
		scheduler: deps.Scheduler,
		analyzer:  deps.Analyzer,
		store:     deps.Store,
		sources:   deps.Sources,
		pageMax:   cfg.PageSizeMax,
	}
	ops := &opsHandler{
		resolver:   deps.Resolver,
		scheduler:  deps.Scheduler,
		translator: deps.Translator,
		store:      deps.Store,
		aiStats:    deps.AIStats,
	}

	router.Get("/health", ops.health)
	router.Get("/stats", ops.stats)
	router.Handle("/metrics", metricsHandler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/news", func(r chi.Router) {
			r.Get("/", news.discover)
			r.Get("/recent", news.recent)
			r.Post("/{id}/analyze", news.analyze)
		})
		r.Get("/documents/{id}", news.document)
		r.Get("/sources", news.selectSources)

		r.Post("/translate", ops.translate)
		r.Get("/translate/languages", ops.languages)

		r.Route("/scheduler", func(r chi.Router) {
			r.Get("/", ops.schedulerStatus)
			r.Post("/pause", ops.pause)
			r.Post("/resume", ops.resume)
			r.Post("/trigger", ops.trigger)
		})
	})

	return &Server{
		server: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      timeout + 5*time.Second,
		},
		router: router,
	}
}

// Handler returns the routed handler without a listener.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// requestLogger logs one line per request at Info, or Debug for health and metrics scrapes.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			if r.URL.Path == "/health" || r.URL.Path == "/metrics" {
				level = slog.LevelDebug
			}
			log.Log(r.Context(), level, "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
