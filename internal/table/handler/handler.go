package handler

import (
	"net/http"

	"github.com/fekuna/omnipos-qrmenu/internal/httpx"
	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	"github.com/fekuna/omnipos-qrmenu/internal/table"
	"github.com/fekuna/omnipos-qrmenu/internal/table/dto"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TableHandler struct {
	uc     table.UseCase
	logger logger.ZapLogger
}

func NewTableHandler(uc table.UseCase, log logger.ZapLogger) *TableHandler {
	return &TableHandler{uc: uc, logger: log}
}

func (h *TableHandler) Routes(r chi.Router) {
	r.Get("/", h.ListTables)
	r.Post("/", h.CreateTable)
	r.Put("/reorder", h.ReorderTables)
	r.Get("/{id}", h.GetTable)
	r.Put("/{id}", h.UpdateTable)
	r.Delete("/{id}", h.DeleteTable)
}

func (h *TableHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	includeDeleted, err := httpx.QueryBool(r, "includeDeleted")
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}
	isActive, err := httpx.QueryBool(r, "isActive")
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	filters := &dto.TableFilters{IsActive: isActive}
	if includeDeleted != nil {
		filters.IncludeDeleted = *includeDeleted
	}

	tables, err := h.uc.ListTables(r.Context(), filters)
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	httpx.NoStore(w)
	httpx.WriteJSON(w, http.StatusOK, tables)
}

func (h *TableHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	t, err := h.uc.GetTable(r.Context(), id)
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

func (h *TableHandler) CreateTable(w http.ResponseWriter, r *http.Request) {
	var input dto.CreateTableInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	t, err := h.uc.CreateTable(r.Context(), &input)
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	h.logger.Info("table created", zap.Int64("id", t.ID), zap.String("name", t.Name))
	httpx.WriteJSON(w, http.StatusCreated, t)
}

func (h *TableHandler) UpdateTable(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	var input dto.UpdateTableInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}
	input.ID = id

	t, err := h.uc.UpdateTable(r.Context(), &input)
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

func (h *TableHandler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	t, err := h.uc.DeleteTable(r.Context(), id)
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, t)
}

func (h *TableHandler) ReorderTables(w http.ResponseWriter, r *http.Request) {
	var req dto.ReorderRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	tables, err := h.uc.ReorderTables(r.Context(), req.Tables)
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tables)
}
