package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/vidtube/backend/internal/apierr"
)

const healthTimeout = 2 * time.Second

// HealthHandler responds with service health information.
type HealthHandler struct {
	Checker HealthChecker
}

// Handle implements GET /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Checker != nil {
		pingCtx, cancel := context.WithTimeout(ctx, healthTimeout)
		defer cancel()
		if err := h.Checker.Ping(pingCtx); err != nil {
			respondError(ctx, w, apierr.Unavailable("database unavailable", err))
			return
		}
	}

	respond(ctx, w, http.StatusOK, map[string]string{"status": "ok"}, "OK")
}
