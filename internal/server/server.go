// Package server provides the HTTP server and routing for PatternWatch.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"patternwatch/internal/database"
	"patternwatch/internal/matching"
	alerthandlers "patternwatch/internal/modules/alerts/handlers"
	patternhandlers "patternwatch/internal/modules/patterns/handlers"
)

// Config holds server configuration
type Config struct {
	Port            int
	Log             zerolog.Logger
	PatternsDB      *database.DB
	AlertsDB        *database.DB
	PatternHandlers *patternhandlers.Handler
	AlertHandlers   *alerthandlers.Handler
	MatchHandlers   *matching.Handler
	Stream          *matching.Stream
	DevMode         bool
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	server     *http.Server
	log        zerolog.Logger
	patternsDB *database.DB
	alertsDB   *database.DB
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		log:        cfg.Log.With().Str("component", "server").Logger(),
		patternsDB: cfg.PatternsDB,
		alertsDB:   cfg.AlertsDB,
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID", "X-Scheduler-Secret"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	systemHandlers := NewSystemHandlers(s.log, []*database.DB{cfg.PatternsDB, cfg.AlertsDB})

	s.router.Route("/api", func(r chi.Router) {
		cfg.PatternHandlers.RegisterRoutes(r)
		cfg.AlertHandlers.RegisterRoutes(r)
		cfg.MatchHandlers.RegisterRoutes(r)
		systemHandlers.RegisterRoutes(r)

		// WebSocket alert push sits outside the alerts module because it is
		// fed by the matching stream hub
		r.Get("/alerts/stream", cfg.Stream.HandleWebSocket)
	})

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// requestLogger logs each request with its status and duration
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("Request handled")
	})
}
