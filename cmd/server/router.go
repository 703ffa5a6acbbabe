package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dossier/internal/blob"
	enrollmenthandler "dossier/internal/enrollment/handler"
	httpmetrics "dossier/internal/platform/metrics"
	"dossier/pkg/platform/httputil"
	"dossier/pkg/platform/middleware/admin"
	authmw "dossier/pkg/platform/middleware/auth"
	"dossier/pkg/platform/middleware/metadata"
	"dossier/pkg/platform/middleware/request"
	"dossier/pkg/platform/middleware/requesttime"
)

const readinessTimeout = 2 * time.Second

// readinessChecker is a backend that can report whether it is reachable.
type readinessChecker interface {
	Name() string
	CheckReady(ctx context.Context) error
}

type routerDeps struct {
	Logger      *slog.Logger
	Enrollment  *enrollmenthandler.Handler
	Files       *blob.Handler
	Authn       authmw.Authenticator
	AdminToken  string
	HTTPMetrics *httpmetrics.Metrics
	Checkers    []readinessChecker
}

func newRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(deps.Logger))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(request.Logger(deps.Logger))
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Middleware)
	}

	r.Get("/healthz", healthHandler(deps.Checkers))
	r.With(admin.RequireAdminToken(deps.AdminToken, deps.Logger)).Handle("/metrics", promhttp.Handler())

	if deps.Files != nil {
		deps.Files.Register(r)
	}

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(deps.Authn, deps.Logger))
		deps.Enrollment.Register(r)
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checkers []readinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checkers))}
		status := http.StatusOK
		for _, c := range checkers {
			ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
			err := c.CheckReady(ctx)
			cancel()
			if err != nil {
				resp.Checks[c.Name()] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[c.Name()] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
