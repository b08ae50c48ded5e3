package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-qrmenu/internal/httpx"
	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	"github.com/fekuna/omnipos-qrmenu/internal/menu"
	"github.com/go-chi/chi/v5"
)

const cacheControl = "public, max-age=30"

type MenuHandler struct {
	uc     menu.UseCase
	logger logger.ZapLogger
}

func NewMenuHandler(uc menu.UseCase, log logger.ZapLogger) *MenuHandler {
	return &MenuHandler{uc: uc, logger: log}
}

func (h *MenuHandler) Routes(r chi.Router) {
	r.Get("/", h.GetMenu)
	r.Get("/tables/{name}", h.GetTableMenu)
}

func (h *MenuHandler) GetMenu(w http.ResponseWriter, r *http.Request) {
	m, err := h.uc.GetMenu(r.Context())
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}
	w.Header().Set("Cache-Control", cacheControl)
	httpx.WriteJSON(w, http.StatusOK, m)
}

// GetTableMenu serves the menu a table's QR code points at.
func (h *MenuHandler) GetTableMenu(w http.ResponseWriter, r *http.Request) {
	m, err := h.uc.GetTableMenu(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}
	w.Header().Set("Cache-Control", cacheControl)
	httpx.WriteJSON(w, http.StatusOK, m)
}
