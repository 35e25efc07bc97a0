package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/car-advisor/advisor/pkg/api/handlers"
	"github.com/car-advisor/advisor/pkg/api/middleware"
	"github.com/car-advisor/advisor/pkg/config"
	"github.com/car-advisor/advisor/pkg/engine"
	"github.com/car-advisor/advisor/pkg/favorites"
	"github.com/car-advisor/advisor/pkg/wizard"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Deps are the collaborators the server routes to
type Deps struct {
	Engine    *engine.Engine
	Sessions  *wizard.Store
	Favorites favorites.Store
	DB        handlers.Pinger
	Gatherer  prometheus.Gatherer
}

// Server represents the HTTP API server
type Server struct {
	config *config.Config
	deps   Deps
	router *chi.Mux
	server *http.Server
}

// New creates a new API server
func New(cfg *config.Config, deps Deps) *Server {
	if deps.Favorites == nil {
		deps.Favorites = favorites.NewMemoryStore()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		config: cfg,
		deps:   deps,
		router: chi.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	// Request ID
	s.router.Use(chimiddleware.RequestID)

	// Real IP
	s.router.Use(chimiddleware.RealIP)

	// Logger
	s.router.Use(middleware.Logger)

	// Recoverer
	s.router.Use(chimiddleware.Recoverer)

	// Timeout; the upstream call has its own, shorter deadline
	s.router.Use(chimiddleware.Timeout(s.config.UpstreamTimeout + 15*time.Second))

	origins := s.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", handlers.NewHealthHandler(s.deps.DB).Handle)

	// Prometheus
	s.router.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))

	diagnosis := handlers.NewDiagnosisHandler(s.deps.Sessions, s.deps.Engine, s.deps.Favorites)
	favs := handlers.NewFavoritesHandler(s.deps.Favorites, s.deps.Engine)

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/profiles", handlers.Profiles)

		r.Post("/score", handlers.NewScoreHandler(s.deps.Engine).Handle)
		r.Post("/search/validate", handlers.NewSearchHandler().Handle)

		r.Route("/diagnosis", func(r chi.Router) {
			r.Post("/", diagnosis.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", diagnosis.Get)
				r.Delete("/", diagnosis.Delete)
				r.Put("/answers", diagnosis.Answers)
				r.Post("/next", diagnosis.Next)
				r.Post("/back", diagnosis.Back)
				r.Post("/reset", diagnosis.Reset)
				r.Get("/request", diagnosis.Request)
				r.Post("/recommend", diagnosis.Recommend)
				r.Get("/mode", diagnosis.GetMode)
				r.Put("/mode", diagnosis.SetMode)
			})
		})

		r.Route("/favorites/{client}", func(r chi.Router) {
			r.Get("/", favs.List)
			r.Get("/{carID}", favs.Status)
			r.Post("/{carID}", favs.Toggle)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start(port string) error {
	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.config.UpstreamTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithField("port", port).Info("Starting HTTP server")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited")
	return nil
}

// Stop stops the HTTP server gracefully
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}
