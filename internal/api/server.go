// Package api provides the HTTP API server and handlers for the Librarium application.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const apiVersion = "1.0.0"

// Server holds dependencies for HTTP handlers.
type Server struct {
	services    *Services
	router      *chi.Mux
	api         huma.API
	authLimiter *RateLimiter
	logger      *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Use(authMiddleware(services.Auth))

	// Credential endpoints get a tighter per-IP budget than the rest
	// of the API. Middleware must be attached before humachi registers
	// any routes.
	authLimiter := NewRateLimiter(20, time.Minute, 10)
	router.Use(pathPrefixMiddleware("/api/v1/auth", RateLimitMiddleware(authLimiter, logger)))

	config := huma.DefaultConfig("Librarium API", apiVersion)
	config.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	config.Transformers = append(config.Transformers, EnvelopeTransformer)

	api := humachi.New(router, config)
	RegisterErrorHandler()

	s := &Server{
		services:    services,
		router:      router,
		api:         api,
		authLimiter: authLimiter,
		logger:      logger,
	}

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerBookRoutes()
	s.registerLibrarianRoutes()
	s.registerSettingsRoutes()
	s.registerAdminRoutes()

	return s
}

// pathPrefixMiddleware applies mw only to requests under prefix.
func pathPrefixMiddleware(prefix string, mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, prefix) {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"System"},
	}, s.handleHealth)
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body struct {
		Status string `json:"status" doc:"Server health status"`
	}
}

func (s *Server) handleHealth(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	out := &HealthOutput{}
	out.Body.Status = "healthy"
	return out, nil
}
