package server

import (
	"context"
	"net/http"
	"time"

	"github.com/fekuna/omnipos-qrmenu/internal/httpx"
	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	"go.uber.org/zap"
)

// Pinger is satisfied by *sqlx.DB and the redis client wrapper.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type HealthHandler struct {
	checks map[string]Pinger
	logger logger.ZapLogger
}

func NewHealthHandler(checks map[string]Pinger, log logger.ZapLogger) *HealthHandler {
	return &HealthHandler{checks: checks, logger: log}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Checks: map[string]string{}, Timestamp: time.Now().UTC()}
	status := http.StatusOK
	for name, p := range h.checks {
		if err := p.PingContext(ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			resp.Checks[name] = "down"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "up"
	}

	httpx.NoStore(w)
	httpx.WriteJSON(w, status, resp)
}
