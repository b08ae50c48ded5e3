package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fekuna/omnipos-qrmenu/internal/apperr"
	"github.com/fekuna/omnipos-qrmenu/internal/httpx"
	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	"github.com/fekuna/omnipos-qrmenu/internal/model"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
	"github.com/fekuna/omnipos-qrmenu/internal/product"
	"github.com/fekuna/omnipos-qrmenu/internal/product/dto"
	"github.com/fekuna/omnipos-qrmenu/internal/undo"
	undoH "github.com/fekuna/omnipos-qrmenu/internal/undo/handler"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ProductHandler struct {
	uc     product.UseCase
	undo   *undo.Registry
	logger logger.ZapLogger
}

func NewProductHandler(uc product.UseCase, registry *undo.Registry, log logger.ZapLogger) *ProductHandler {
	return &ProductHandler{
		uc:     uc,
		undo:   registry,
		logger: log,
	}
}

func (h *ProductHandler) Routes(r chi.Router) {
	r.Get("/", h.ListProducts)
	r.Post("/", h.CreateProduct)
	r.Post("/bulk-delete", h.BulkDeleteProducts)
	r.Put("/reorder", h.ReorderProducts)
	r.Post("/restore", h.RestoreProducts)
	r.Post("/permanent-delete", h.PurgeProducts)
	r.Get("/{id}", h.GetProduct)
	r.Put("/{id}", h.UpdateProduct)
	r.Delete("/{id}", h.DeleteProduct)
}

type PurgeResponse struct {
	Purged []int64 `json:"purged"`
}

// ListProducts handles GET /products. categoryId=none selects products
// without a category.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	products, err := h.uc.ListProducts(r.Context(), filters)
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	httpx.NoStore(w)
	httpx.WriteJSON(w, http.StatusOK, products)
}

func parseFilters(r *http.Request) (*dto.ProductFilters, error) {
	filters := &dto.ProductFilters{}

	switch raw := r.URL.Query().Get("categoryId"); raw {
	case "":
	case "none", "null":
		filters.Uncategorized = true
	default:
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return nil, apperr.Validation("categoryId must be a positive integer")
		}
		filters.CategoryID = &id
	}

	includeDeleted, err := httpx.QueryBool(r, "includeDeleted")
	if err != nil {
		return nil, err
	}
	if includeDeleted != nil {
		filters.IncludeDeleted = *includeDeleted
	}
	if filters.IsActive, err = httpx.QueryBool(r, "isActive"); err != nil {
		return nil, err
	}
	return filters, nil
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	p, err := h.uc.GetProduct(r.Context(), id)
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var input dto.CreateProductInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	p, err := h.uc.CreateProduct(r.Context(), &input)
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	h.logger.Info("product created", zap.Int64("id", p.ID), zap.String("name", p.Name))
	httpx.WriteJSON(w, http.StatusCreated, p)
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	var input dto.UpdateProductInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}
	input.ID = id

	p, err := h.uc.UpdateProduct(r.Context(), &input)
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.ParseID(r, "id")
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	p, err := h.uc.DeleteProduct(r.Context(), id)
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	undoH.Begin(w, r, h.undo, ordering.KindProduct, []int64{p.ID}, p.DeletionTime(), h.logger)
	httpx.WriteJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) BulkDeleteProducts(w http.ResponseWriter, r *http.Request) {
	var req dto.BulkDeleteRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	products, err := h.uc.BulkDeleteProducts(r.Context(), req.ProductIDs)
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	undoH.Begin(w, r, h.undo, ordering.KindProduct, ids(products), deletedAt(products), h.logger)
	httpx.WriteJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) ReorderProducts(w http.ResponseWriter, r *http.Request) {
	var req dto.ReorderRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	products, err := h.uc.ReorderProducts(r.Context(), req.Products)
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) RestoreProducts(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	products, err := h.uc.RestoreProducts(r.Context(), req.IDs())
	if err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}
	h.undo.Release(r.Context(), ordering.KindProduct, ids(products))
	httpx.WriteJSON(w, http.StatusOK, products)
}

func (h *ProductHandler) PurgeProducts(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}

	purged := req.IDs()
	if err := h.uc.PurgeProducts(r.Context(), purged); err != nil {
		httpx.WriteAppError(w, h.logger, err)
		return
	}
	h.undo.Release(r.Context(), ordering.KindProduct, purged)
	httpx.WriteJSON(w, http.StatusOK, PurgeResponse{Purged: purged})
}

func ids(products []model.Product) []int64 {
	out := make([]int64, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

// deletedAt is the marker shared by one bulk delete.
func deletedAt(products []model.Product) time.Time {
	if len(products) == 0 {
		return time.Time{}
	}
	return products[0].DeletionTime()
}
