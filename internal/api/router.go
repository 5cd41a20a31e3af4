// Package api exposes the engine as a long-running HTTP daemon for hosts
// that prefer a persistent process over per-event spawning. The decision
// contract is identical to the stdin mode.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yonatangross/hookwarden/internal/dispatch"
	"github.com/yonatangross/hookwarden/internal/trace"
)

// Dependencies holds shared state injected into all HTTP handlers.
type Dependencies struct {
	Dispatcher *dispatch.Dispatcher
	Trace      *trace.Store // nil when no trace store is configured
	Logger     *zap.Logger
}

// NewRouter builds the HTTP routes.
func NewRouter(deps *Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogging(deps.Logger))

	r.Post("/v1/check", deps.handleCheck)
	r.Get("/v1/trace", deps.handleTrace)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
