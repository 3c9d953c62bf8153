package rest

import (
	"net/http"

	"learnengine/application/commands"
	"learnengine/application/commands/bus"
	querybus "learnengine/application/queries/bus"
	"learnengine/interfaces/http/rest/handlers"
	"learnengine/interfaces/http/rest/middleware"
	"learnengine/pkg/auth"
	"learnengine/pkg/observability"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	passCards  *commands.PassCardHandler
	rebuilds   *commands.RebuildDAGHandler
	tracer     *observability.Tracer
	limiter    *auth.DistributedRateLimiter
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	passCards *commands.PassCardHandler,
	rebuilds *commands.RebuildDAGHandler,
	tracer *observability.Tracer,
	limiter *auth.DistributedRateLimiter,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		passCards:  passCards,
		rebuilds:   rebuilds,
		tracer:     tracer,
		limiter:    limiter,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	router.Use(rt.tracer.Middleware())
	router.Use(versionMiddleware)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "https://*.learnengine.dev"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	// API v1 routes
	router.Route("/api/v1", func(r chi.Router) {
		// Cross-instance throttle first, then authentication
		r.Use(middleware.RateLimit(rt.limiter, rt.logger))
		r.Use(middleware.Authenticate())

		r.Route("/domains/{domainID}/learn", func(r chi.Router) {
			learnHandler := handlers.NewLearnHandler(rt.commandBus, rt.queryBus, rt.passCards, rt.rebuilds, rt.logger)

			// Section listing and ordering
			r.Get("/sections", learnHandler.GetSections)
			r.Put("/sections/order", learnHandler.ReorderSections)

			// Lesson resolution and pass recording
			r.Get("/lesson", learnHandler.GetLesson)
			r.Post("/pass", learnHandler.PassCard)

			// Goals and statistics
			r.Put("/goal", learnHandler.SetDailyGoal)
			r.Get("/stats", learnHandler.GetStats)
			r.Get("/results", learnHandler.ListResults)

			// DAG access; forced rebuild is restricted to admins
			r.Get("/dag", learnHandler.GetDAG)
			r.With(middleware.RequireRole("admin")).Post("/dag/rebuild", learnHandler.RebuildDAG)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	// Check dependencies (database, etc.)
	// For now, always return ready
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// versionMiddleware adds API version headers to all responses
func versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-API-Version", "v1")
		w.Header().Set("X-API-Latest", "v1")
		next.ServeHTTP(w, r)
	})
}
