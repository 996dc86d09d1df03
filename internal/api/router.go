package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/opsledger/opsledger/internal/config"
	"github.com/opsledger/opsledger/internal/ledger"
	"github.com/opsledger/opsledger/internal/websocket"
)

// NewRouter creates the read-only dashboard router. All timestamps go out
// in UTC; timezone conversion is the dashboard's job.
func NewRouter(cfg *config.Config, queries *ledger.Queries, hub *websocket.Hub) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(SecurityHeadersMiddleware(cfg.API))
	r.Use(NewRateLimiter(rate.Limit(10), 30).Middleware)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.API.CORSOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Data routes
	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.API))

		r.Get("/backups", HandleGetBackups(queries))
		r.Get("/backups/stale", HandleGetStaleBackups(queries))
		r.Get("/health-checks", HandleGetUnhealthy(queries))
		r.Get("/updates", HandleGetUpdates(queries))
		r.Get("/maintenance", HandleGetMaintenance(queries))
		r.Get("/restores", HandleGetRestores(queries))
		r.Get("/docker-sizes", HandleGetDockerSizes(queries))
		r.Get("/runs", HandleGetRuns(queries))
		r.Get("/counts", HandleGetCounts(queries))
	})

	// Live ledger event stream
	r.Get("/ws", hub.HandleWebSocket)

	// Liveness check (no auth required)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
