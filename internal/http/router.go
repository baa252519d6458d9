// Package httpapi assembles the server's routes: the audit API, health
// probes and the metrics endpoint.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "vulnreport/internal/audit/handler"
	"vulnreport/internal/platform/metrics"
	"vulnreport/internal/platform/middleware"
)

// HealthChecker reports readiness of one dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps collects everything the router mounts.
type Deps struct {
	Logger *slog.Logger
	Audits *audithandler.Handler

	// HTTPMetrics instruments every route when set.
	HTTPMetrics *metrics.HTTPMetrics

	// Checkers gate /readyz; a nil entry is skipped.
	Checkers map[string]HealthChecker
}

// NewRouter wires the shared middleware chain and mounts all endpoints.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Tracing("vulnreport/http"))
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Middleware)
	}
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		for name, checker := range deps.Checkers {
			if checker == nil {
				continue
			}
			if err := checker.Health(req.Context()); err != nil {
				deps.Logger.WarnContext(req.Context(), "readiness check failed",
					"dependency", name,
					"error", err,
				)
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(name + " unavailable"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Handle("/metrics", promhttp.Handler())

	deps.Audits.Register(r)
	return r
}
