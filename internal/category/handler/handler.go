package handler

import (
	"net/http"
	"time"

	"github.com/fekuna/omnipos-qrmenu/internal/category"
	"github.com/fekuna/omnipos-qrmenu/internal/category/dto"
	"github.com/fekuna/omnipos-qrmenu/internal/httpx"
	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	"github.com/fekuna/omnipos-qrmenu/internal/model"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
	"github.com/fekuna/omnipos-qrmenu/internal/undo"
	undoH "github.com/fekuna/omnipos-qrmenu/internal/undo/handler"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CategoryHandler struct {
	uc     category.UseCase
	undo   *undo.Registry
	logger logger.ZapLogger
}

func NewCategoryHandler(uc category.UseCase, registry *undo.Registry, log logger.ZapLogger) *CategoryHandler {
	return &CategoryHandler{
		uc:     uc,
		undo:   registry,
		logger: log,
	}
}

func (h *CategoryHandler) Routes(r chi.Router) {
	r.Get("/", h.ListCategories)
	r.Post("/", h.CreateCategory)
	r.Post("/bulk-delete", h.BulkDeleteCategories)
	r.Put("/reorder", h.ReorderCategories)
	r.Post("/restore", h.RestoreCategories)
	r.Post("/permanent-delete", h.PurgeCategories)
	r.Get("/{id}", h.GetCategory)
	r.Put("/{id}", h.UpdateCategory)
	r.Delete("/{id}", h.DeleteCategory)
}

type PurgeResponse struct {
	Purged []int64 `json:"purged"`
}

// ListCategories handles GET /categories. Live categories only unless
// includeDeleted=true.
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
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

	filters := &dto.CategoryFilters{IsActive: isActive}
	if includeDeleted != nil {
		filters.IncludeDeleted = *includeDeleted
	}

	cats, err := h.uc.ListCategories(r.Context(), filters)
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	httpx.NoStore(w)
	httpx.WriteJSON(w, http.StatusOK, cats)
}

func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	cat, err := h.uc.GetCategory(r.Context(), id)
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cat)
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input dto.CreateCategoryInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	cat, err := h.uc.CreateCategory(r.Context(), &input)
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	h.logger.Info("category created", zap.Int64("id", cat.ID), zap.String("name", cat.Name))
	httpx.WriteJSON(w, http.StatusCreated, cat)
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	var input dto.UpdateCategoryInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}
	input.ID = id

	cat, err := h.uc.UpdateCategory(r.Context(), &input)
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cat)
}

// DeleteCategory soft-deletes one category and opens the undo window.
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	cat, err := h.uc.DeleteCategory(r.Context(), id)
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	undoH.Begin(w, r, h.undo, ordering.KindCategory, []int64{cat.ID}, cat.DeletionTime(), h.logger)
	httpx.WriteJSON(w, http.StatusOK, cat)
}

func (h *CategoryHandler) BulkDeleteCategories(w http.ResponseWriter, r *http.Request) {
	var req dto.BulkDeleteRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	cats, err := h.uc.BulkDeleteCategories(r.Context(), req.CategoryIDs)
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	undoH.Begin(w, r, h.undo, ordering.KindCategory, ids(cats), deletedAt(cats), h.logger)
	httpx.WriteJSON(w, http.StatusOK, cats)
}

func (h *CategoryHandler) ReorderCategories(w http.ResponseWriter, r *http.Request) {
	var req dto.ReorderRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	cats, err := h.uc.ReorderCategories(r.Context(), req.Categories)
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, cats)
}

func (h *CategoryHandler) RestoreCategories(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	cats, err := h.uc.RestoreCategories(r.Context(), req.IDs())
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}
	h.undo.Release(r.Context(), ordering.KindCategory, ids(cats))
	httpx.WriteJSON(w, http.StatusOK, cats)
}

// PurgeCategories permanently removes soft-deleted categories.
func (h *CategoryHandler) PurgeCategories(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	purged := req.IDs()
	if err := h.uc.PurgeCategories(r.Context(), purged); err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}
	h.undo.Release(r.Context(), ordering.KindCategory, purged)
	httpx.WriteJSON(w, http.StatusOK, PurgeResponse{Purged: purged})
}

func ids(cats []model.Category) []int64 {
	out := make([]int64, len(cats))
	for i, c := range cats {
		out[i] = c.ID
	}
	return out
}

// deletedAt is the marker shared by one bulk delete.
func deletedAt(cats []model.Category) time.Time {
	if len(cats) == 0 {
		return time.Time{}
	}
	return cats[0].DeletionTime()
}
