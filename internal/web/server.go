// Package web provides the HTTP API for exploring CSV files.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JonMunkholm/fairprice/internal/config"
	"github.com/JonMunkholm/fairprice/internal/core"
	"github.com/JonMunkholm/fairprice/internal/summary"
	appmw "github.com/JonMunkholm/fairprice/internal/web/middleware"
)

// Server serves exploration requests and the summaries they produce.
type Server struct {
	cfg      *config.Config
	explorer *core.Explorer
	store    *summary.Store
	limiter  *core.Limiter
	rate     *appmw.RateLimiter

	router *chi.Mux
	server *http.Server
}

// NewServer wires routes and middleware around the given pipeline pieces.
func NewServer(cfg *config.Config, explorer *core.Explorer, store *summary.Store, limiter *core.Limiter) *Server {
	s := &Server{
		cfg:      cfg,
		explorer: explorer,
		store:    store,
		limiter:  limiter,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(appmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(appmw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	if d := s.cfg.Server.RequestTimeout; d > 0 {
		s.router.Use(middleware.Timeout(d))
	}
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.rate = appmw.NewRateLimiter(s.cfg.Rate.RequestsPerMinute)
		s.router.Use(s.rate.Handler)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		if origins := s.cfg.Security.AllowedOrigins; len(origins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins: origins,
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
				AllowedHeaders: []string{"Accept", "Content-Type", "X-API-Key"},
				MaxAge:         300,
			}))
		}
		r.Use(appmw.APIKeyAuth(s.cfg.Security))

		r.Post("/explore", s.handleExplore)
		r.Post("/diagnose", s.handleDiagnose)
		r.Get("/summaries", s.handleListSummaries)
		r.Get("/summaries/{id}", s.handleGetSummary)
		r.Get("/compare", s.handleCompare)
	})
}

// Start begins listening for HTTP requests. It returns nil after Shutdown.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", slog.String("addr", addr))
	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.rate != nil {
		s.rate.Close()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses. The API serves no
// HTML, so the content policy forbids everything.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// healthResponse is served by /health.
type healthResponse struct {
	Status       string             `json:"status" yaml:"status"`
	Time         time.Time          `json:"time" yaml:"time"`
	Summaries    int                `json:"summaries" yaml:"summaries"`
	Explorations core.LimiterStatus `json:"explorations" yaml:"explorations"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ls := s.limiter.Status()
	status := "ok"
	if ls.Draining {
		status = "draining"
	}
	respond(w, r, http.StatusOK, healthResponse{
		Status:       status,
		Time:         time.Now().UTC(),
		Summaries:    s.store.Len(),
		Explorations: ls,
	})
}
