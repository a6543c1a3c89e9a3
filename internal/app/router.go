package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	consolehttp "github.com/tablewise/tablewise/internal/console/http"
	"github.com/tablewise/tablewise/internal/observability"
	"github.com/tablewise/tablewise/internal/platform/httpx"
	"github.com/tablewise/tablewise/internal/shared"
	"github.com/tablewise/tablewise/jobs"
)

// ReadinessCheck reports whether a dependency is reachable.
type ReadinessCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	ConsoleHandler *consolehttp.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
	Checks         map[string]ReadinessCheck
}

// NewRouter constructs the chi.Router with Tablewise defaults.
func NewRouter(params RouterParams) http.Handler {
	if params.Logger == nil {
		params.Logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", healthHandler(params.Checks))

	if params.ConsoleHandler != nil {
		r.Group(func(r chi.Router) {
			if params.SessionManager != nil {
				r.Use(SessionMiddleware(params.SessionManager, params.Logger))
			}
			params.ConsoleHandler.MountRoutes(r)
		})
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

func healthHandler(checks map[string]ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		report := map[string]string{"status": "ok"}
		if len(checks) > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			for name, check := range checks {
				if err := check(ctx); err != nil {
					report[name] = err.Error()
					report["status"] = "degraded"
					status = http.StatusServiceUnavailable
					continue
				}
				report[name] = "ok"
			}
		}
		httpx.JSON(w, status, report)
	}
}
