package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/fekuna/omnipos-qrmenu/internal/apperr"
	"github.com/fekuna/omnipos-qrmenu/internal/auth"
	"github.com/fekuna/omnipos-qrmenu/internal/httpx"
	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
	"github.com/fekuna/omnipos-qrmenu/internal/undo"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type UndoHandler struct {
	registry *undo.Registry
	kind     ordering.Kind
	logger   logger.ZapLogger
}

func NewUndoHandler(registry *undo.Registry, kind ordering.Kind, log logger.ZapLogger) *UndoHandler {
	return &UndoHandler{registry: registry, kind: kind, logger: log}
}

// Routes mounts GET (status) and POST (restore) on "/".
func (h *UndoHandler) Routes(r chi.Router) {
	r.Get("/", h.Status)
	r.Post("/", h.Restore)
}

type RestoreResponse struct {
	Restored []int64     `json:"restored"`
	Status   undo.Status `json:"status"`
}

func (h *UndoHandler) Status(w http.ResponseWriter, r *http.Request) {
	timer := h.registry.Get(auth.GetSessionID(r.Context())).Timer(h.kind)
	httpx.NoStore(w)
	httpx.WriteJSON(w, http.StatusOK, timer.Status())
}

func (h *UndoHandler) Restore(w http.ResponseWriter, r *http.Request) {
	session := auth.GetSessionID(r.Context())
	timer := h.registry.Get(session).Timer(h.kind)

	b, err := timer.Restore(r.Context())
	if err != nil {
		h.logger.Info("undo refused", zap.String("session", session), zap.String("kind", string(h.kind)), zap.Error(err))
		httpx.WriteAppError(w, h.logger, mapError(err))
		return
	}

	httpx.WriteJSON(w, http.StatusOK, RestoreResponse{Restored: b.IDs, Status: timer.Status()})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, undo.ErrNoPendingBatch):
		return apperr.NotFound("%s", err.Error())
	case errors.Is(err, undo.ErrWindowExpired), errors.Is(err, undo.ErrClosed):
		return apperr.Validation("%s", err.Error())
	default:
		return err
	}
}

const (
	BatchHeader    = "X-Undo-Batch"
	DeadlineHeader = "X-Undo-Deadline"
)

// Begin opens the undo window for entities the request just soft-deleted with
// marker deletedAt and advertises it in the response headers. It must run
// before the body is written. A failure leaves the entities soft-deleted and
// is only logged.
func Begin(w http.ResponseWriter, r *http.Request, registry *undo.Registry, kind ordering.Kind, ids []int64, deletedAt time.Time, log logger.ZapLogger) {
	if registry == nil || len(ids) == 0 {
		return
	}
	session := auth.GetSessionID(r.Context())
	timer := registry.Get(session).Timer(kind)
	if timer == nil {
		return
	}

	b, err := timer.Start(r.Context(), ids, deletedAt)
	if err != nil {
		log.Warn("failed to open undo window",
			zap.String("session", session), zap.String("kind", string(kind)), zap.Int64s("ids", ids), zap.Error(err))
		return
	}
	w.Header().Set(BatchHeader, b.ID)
	w.Header().Set(DeadlineHeader, b.Deadline.UTC().Format(time.RFC3339Nano))
}
