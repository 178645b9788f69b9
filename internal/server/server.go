// internal/server/server.go

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nats-io/nats.go"

	"github.com/cb671/streetsafe-server/internal/config"
	"github.com/cb671/streetsafe-server/internal/domain/crime"
	"github.com/cb671/streetsafe-server/internal/domain/facility"
	"github.com/cb671/streetsafe-server/internal/domain/geo"
	"github.com/cb671/streetsafe-server/internal/domain/resource"
	"github.com/cb671/streetsafe-server/internal/logger"
	"github.com/cb671/streetsafe-server/internal/metrics"
	"github.com/cb671/streetsafe-server/internal/server/handlers"
)

// Dependencies holds the services exposed over HTTP
type Dependencies struct {
	Crimes    crime.Service
	Locator   facility.Locator
	Resources resource.Store
	Ranker    resource.Ranker
	Namer     geo.Namer

	// NATSConn feeds the live map feature socket; nil disables it
	NATSConn    *nats.Conn
	FeedSubject string

	Graphs GraphDefaults
}

// GraphDefaults is re-exported for wiring from main
type GraphDefaults = handlers.GraphDefaults

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, deps Dependencies) *Server {
	router := NewRouter(cfg, deps)

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// NewRouter builds the route tree
func NewRouter(cfg config.ServerConfig, deps Dependencies) *chi.Mux {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	// Create handler dependencies
	graphHandler := handlers.NewGraphHandler(deps.Crimes, deps.Graphs)
	mapHandler := handlers.NewMapHandler(deps.Crimes)
	emergencyHandler := handlers.NewEmergencyHandler(deps.Locator)
	educationalHandler := handlers.NewEducationalHandler(deps.Resources, deps.Ranker, deps.Namer)

	// Routes
	router.Route("/api", func(r chi.Router) {
		r.Use(logger.AccessMiddleware(logger.L()))
		r.Use(middleware.Timeout(timeout))

		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Charts
		r.Route("/graphs", func(r chi.Router) {
			r.Get("/totals", graphHandler.GetTotals)
			r.Get("/trends", graphHandler.GetTrends)
			r.Get("/proportions", graphHandler.GetProportions)
			r.Get("/locations", graphHandler.GetLocations)
			r.Get("/date-range", graphHandler.GetDateRange)
			r.Get("/crime-types", graphHandler.GetCrimeTypes)
		})

		// Map
		r.Route("/map", func(r chi.Router) {
			r.Get("/", mapHandler.GetFeatures)
			r.Get("/hexagon/{h3Index}", mapHandler.GetHexagon)
		})

		r.Get("/emergency-services", emergencyHandler.GetClosest)

		// Educational resources
		r.Route("/educational", func(r chi.Router) {
			r.Get("/", educationalHandler.GetResources)
			r.Get("/crime-type/{crimeType}", educationalHandler.GetByCrimeType)
		})
	})

	router.Handle("/metrics", metrics.Handler())

	// WebSocket endpoint for computed map feature notifications
	router.Get("/ws/map-features", handlers.MapFeaturesWebSocketHandler(
		deps.NATSConn,
		deps.FeedSubject,
		handlers.DefaultWebSocketConfig(),
	))

	return router
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
