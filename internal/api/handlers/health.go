// health.go — endpoints de salud del módulo central.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// ReadinessChecker informa si las dependencias del módulo responden.
type ReadinessChecker interface {
	Ready(ctx context.Context) error
}

// HealthHandler atiende los endpoints de liveness y readiness.
type HealthHandler struct {
	checker ReadinessChecker
	logger  *slog.Logger
}

// NewHealthHandler crea el handler de salud.
func NewHealthHandler(checker ReadinessChecker, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		logger:  logger.With(slog.String("component", "health")),
	}
}

// Live maneja GET /health/live: el proceso está vivo.
func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready maneja GET /health/ready: la base de datos responde.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.checker.Ready(ctx); err != nil {
		h.logger.Warn("Readiness check fallido", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
