// Package http exposes the administrative commands and the usage event intake
// over JSON.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bnema/quotaguard/internal/application"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	gateway *application.Gateway
	logger  *zap.Logger
}

func NewHandler(gateway *application.Gateway, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{gateway: gateway, logger: logger}
}

// NewRouter mounts the API. gatherer may be nil to omit /metrics.
func NewRouter(handler *Handler, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(handler.recoverMiddleware)
	r.Use(handler.loggingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/commands", handler.command)
		r.Post("/usage-events", handler.usageEvent)
		r.Route("/accounts/{account_id}", func(r chi.Router) {
			r.Post("/block", handler.block)
			r.Post("/unblock", handler.unblock)
			r.Get("/status", handler.status)
		})
	})
	return r
}
