// Package server exposes helper search, help-location lookup and the chat
// gate over HTTP.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/watizat/helpmap/internal/category"
	"github.com/watizat/helpmap/internal/chat"
	"github.com/watizat/helpmap/internal/geo"
	"github.com/watizat/helpmap/internal/model"
	"github.com/watizat/helpmap/internal/proximity"
	"github.com/watizat/helpmap/internal/service"
)

const (
	defaultRadiusKm = 10
	defaultMaxKm    = 100
)

// Locator is the search surface the handlers depend on.
type Locator interface {
	HelpersNearby(ctx context.Context, origin geo.Coordinate, radiusKm float64, filter *category.Tag) ([]proximity.Match[model.HelperProfile], error)
	HelpLocations(ctx context.Context, origin *geo.Coordinate, radiusKm float64, filter *category.Tag) ([]service.LocationHit, error)
	NearestLocation(ctx context.Context, origin geo.Coordinate, filter *category.Tag) (*proximity.Match[model.HelpLocation], error)
	CategoryCounts(ctx context.Context) ([]model.CategoryCount, error)
	Helper(ctx context.Context, id string) (*model.HelperProfile, error)
}

// ChatChecker evaluates the chat gate.
type ChatChecker interface {
	CanChat(ctx context.Context, initiatorID, targetID string) (chat.Decision, error)
}

// Config holds HTTP server settings.
type Config struct {
	Port            int
	CORSOrigins     []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	RateLimitRPS    float64
	RateLimitBurst  int
	JWTSecret       string
	DefaultRadiusKm float64
	MaxRadiusKm     float64
}

// Server is the helpmap HTTP API.
type Server struct {
	cfg     Config
	locator Locator
	chats   ChatChecker
	router  chi.Router
	server  *http.Server
}

// New wires the router. Zero radius settings fall back to 10 km default and
// 100 km maximum.
func New(cfg Config, locator Locator, chats ChatChecker) *Server {
	if cfg.DefaultRadiusKm <= 0 {
		cfg.DefaultRadiusKm = defaultRadiusKm
	}
	if cfg.MaxRadiusKm <= 0 {
		cfg.MaxRadiusKm = defaultMaxKm
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	s := &Server{cfg: cfg, locator: locator, chats: chats}
	s.router = s.routes()
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.cfg.RequestTimeout))

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(newIPRateLimiter(s.cfg.RateLimitRPS, s.cfg.RateLimitBurst).middleware)

		r.Route("/help-locations", func(r chi.Router) {
			r.Get("/", s.handleHelpLocations)
			r.Get("/nearest", s.handleNearestLocation)
			r.Get("/categories", s.handleCategories)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate([]byte(s.cfg.JWTSecret)))
			r.Get("/helpers-nearby", s.handleHelpersNearby)
			r.Get("/helpers/{userId}", s.handleHelper)
			r.Get("/can-chat/{userId}", s.handleCanChat)
		})
	})

	return r
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
