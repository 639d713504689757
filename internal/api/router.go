package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/plantline/internal/auth"
)

// healthCheckTimeout bounds each component check of /health.
const healthCheckTimeout = 3 * time.Second

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Gatherer(), promhttp.HandlerOpts{}))

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.With(s.requirePermission(auth.PermPlanRead)).Post("/topology", s.handleTopology)
			r.With(s.requirePermission(auth.PermPlanRead)).Post("/plan", s.handlePlan)

			r.Route("/runs", func(r chi.Router) {
				r.With(s.requirePermission(auth.PermRunsRead)).Get("/", s.handleListRuns)
				r.With(s.requirePermission(auth.PermRunsStart)).Post("/scan", s.handleStartScan)
				r.With(s.requirePermission(auth.PermRunsStart)).Post("/simulate", s.handleStartSimulate)

				r.Route("/{id}", func(r chi.Router) {
					r.Use(s.requirePermission(auth.PermRunsRead))
					r.Get("/", s.handleGetRun)
					r.Get("/commands", s.handleListRunCommands)
					r.Get("/scan", s.handleGetScanResults)
				})
			})

			r.With(s.requirePermission(auth.PermRunsRead)).Get("/ws", s.handleWebSocket)
		})
	})

	return r
}

// handleHealth reports the status of every registered component. Any
// failing component turns the response into 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]string, len(s.health))
	status, code := "ok", http.StatusOK
	for name, checker := range s.health {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := checker.HealthCheck(ctx)
		cancel()
		if err != nil {
			components[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"backends":   s.engine.Backends(),
		"running":    s.engine.Running(),
		"components": components,
	})
}
