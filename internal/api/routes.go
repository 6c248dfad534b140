// Route registration and go-chi router setup. Public routes (/health,
// /metrics, /auth/*) versus JWT-protected routes (/api/v1/*).
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/sous-ai/sous/internal/api/handlers"
	apmiddleware "github.com/sous-ai/sous/internal/api/middleware"
)

// Deps carries the already-wired services the router exposes. Services
// are constructed in cmd so their lifetimes are owned in one place.
type Deps struct {
	Chat             handlers.ChatService
	Extractor        handlers.Extractor
	Planner          handlers.Planner
	Usage            handlers.UsageReader
	Cache            handlers.CacheInvalidator
	AccessSecretHash string
	MetricsHandler   http.Handler // promhttp handler; nil disables /metrics
	Log              zerolog.Logger
}

// NewRouter creates and configures a chi router with all routes.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (runs on all routes)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(apmiddleware.RequestLogger(deps.Log))
	r.Use(chimiddleware.Recoverer)

	// ===== PUBLIC ROUTES (no auth required) =====

	// Health check — unauthenticated, used by load balancers and health probes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// Token endpoint — public, gated by the shared access secret
	authHandler := handlers.NewAuthHandler(deps.AccessSecretHash)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.Token) // POST /auth/token
	})

	// ===== PROTECTED ROUTES (JWT required via AuthMiddleware) =====

	// All /api/v1/* routes require a valid Bearer JWT. AuthMiddleware
	// validates the token and injects UserID into context.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(apmiddleware.AuthMiddleware)

		chatHandler := handlers.NewChatHandler(deps.Chat)
		extractHandler := handlers.NewExtractHandler(deps.Extractor)
		mealPlanHandler := handlers.NewMealPlanHandler(deps.Planner)
		r.Route("/assistant", func(r chi.Router) {
			r.Post("/chat", chatHandler.Chat)            // POST /api/v1/assistant/chat
			r.Post("/extract", extractHandler.Extract)   // POST /api/v1/assistant/extract
			r.Post("/mealplan", mealPlanHandler.Generate) // POST /api/v1/assistant/mealplan
		})

		usageHandler := handlers.NewUsageHandler(deps.Usage)
		r.Get("/usage", usageHandler.Summary) // GET /api/v1/usage

		adminHandler := handlers.NewAdminHandler(deps.Cache)
		r.Route("/admin/cache", func(r chi.Router) {
			r.Post("/invalidate", adminHandler.InvalidateCache) // POST /api/v1/admin/cache/invalidate
			r.Post("/purge", adminHandler.PurgeExpired)         // POST /api/v1/admin/cache/purge
		})
	})

	return r
}
