package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-qrmenu/internal/auth"
	"github.com/fekuna/omnipos-qrmenu/internal/httpx"
	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	"github.com/fekuna/omnipos-qrmenu/internal/undo"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SessionHandler exposes the undo state of the whole admin session.
type SessionHandler struct {
	registry *undo.Registry
	logger   logger.ZapLogger
}

func NewSessionHandler(registry *undo.Registry, log logger.ZapLogger) *SessionHandler {
	return &SessionHandler{registry: registry, logger: log}
}

func (h *SessionHandler) Routes(r chi.Router) {
	r.Get("/", h.Statuses)
	r.Delete("/", h.End)
}

func (h *SessionHandler) Statuses(w http.ResponseWriter, r *http.Request) {
	statuses := h.registry.Get(auth.GetSessionID(r.Context())).Statuses()
	httpx.NoStore(w)
	httpx.WriteJSON(w, http.StatusOK, statuses)
}

// End disposes the session, for example when the admin logs out. Pending
// batches stay soft-deleted and are finalized by the sweeper.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	session := auth.GetSessionID(r.Context())
	if h.registry.Dispose(session) {
		h.logger.Info("undo session ended", zap.String("session", session))
	}
	w.WriteHeader(http.StatusNoContent)
}
