package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-qrmenu/internal/apperr"
	"github.com/fekuna/omnipos-qrmenu/internal/events"
	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	"github.com/fekuna/omnipos-qrmenu/internal/model"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
	"github.com/fekuna/omnipos-qrmenu/internal/product"
	"github.com/fekuna/omnipos-qrmenu/internal/product/dto"
	"go.uber.org/zap"
)

type productUseCase struct {
	repo       product.Repository
	categories product.CategoryReader
	ordering   *ordering.Service[model.Product]
	events     events.Publisher
	logger     logger.ZapLogger
}

func NewProductUseCase(repo product.Repository, categories product.CategoryReader, pub events.Publisher, log logger.ZapLogger) product.UseCase {
	if pub == nil {
		pub = events.Noop()
	}
	svc := ordering.NewService(ordering.Descriptor[model.Product]{
		Kind:         ordering.KindProduct,
		Store:        repo,
		RestoreGuard: restoreGuard(categories),
	}, pub, log)

	return &productUseCase{
		repo:       repo,
		categories: categories,
		ordering:   svc,
		events:     pub,
		logger:     log,
	}
}

// restoreGuard keeps products out of soft-deleted categories; the category
// has to come back first.
func restoreGuard(categories product.CategoryReader) ordering.Guard[model.Product] {
	return func(ctx context.Context, targets []model.Product) ([]ordering.Blocker, error) {
		var catIDs []int64
		for _, p := range targets {
			if p.CategoryID != nil {
				catIDs = append(catIDs, *p.CategoryID)
			}
		}
		if len(catIDs) == 0 {
			return nil, nil
		}

		cats, err := categories.FindByIDs(ctx, catIDs)
		if err != nil {
			return nil, err
		}
		deleted := make(map[int64]string)
		for _, c := range cats {
			if c.Deleted() {
				deleted[c.ID] = c.Name
			}
		}

		var blockers []ordering.Blocker
		for _, p := range targets {
			if p.CategoryID == nil {
				continue
			}
			if name, ok := deleted[*p.CategoryID]; ok {
				blockers = append(blockers, ordering.Blocker{
					ID:     p.ID,
					Name:   p.Name,
					Reason: fmt.Sprintf("product %q belongs to deleted category %q, restore the category first", p.Name, name),
				})
			}
		}
		return blockers, nil
	}
}

func (uc *productUseCase) Ordering() *ordering.Service[model.Product] {
	return uc.ordering
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperr.Validation("product name is required")
	}
	if input.Price == nil || *input.Price < 0 {
		return nil, apperr.Validation("price must be zero or more")
	}
	if err := uc.checkCategory(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	scope := ordering.Within(input.CategoryID)
	next, err := uc.repo.NextOrder(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("reading product order: %w", err)
	}

	now := time.Now()
	p := &model.Product{
		BaseModel: model.BaseModel{
			CreatedAt: model.NewTimestamp(now),
			UpdatedAt: model.NewTimestamp(now),
		},
		CategoryID:  input.CategoryID,
		Name:        name,
		Description: input.Description,
		Price:       *input.Price,
		Image:       input.Image,
		SortOrder:   next,
		IsActive:    true,
	}
	if input.IsActive != nil {
		p.IsActive = *input.IsActive
	}

	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	if input.Order != nil && *input.Order < next {
		if err := uc.ordering.MoveTo(ctx, p.ID, *input.Order); err != nil {
			return nil, err
		}
	}

	uc.publish(ctx, events.TypeCreated, p.ID)
	return uc.GetProduct(ctx, p.ID)
}

func (uc *productUseCase) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.NotFound("product not found")
	}
	return p, nil
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, error) {
	if filters == nil {
		filters = &dto.ProductFilters{}
	}
	return uc.repo.FindAll(ctx, filters)
}

// UpdateProduct applies the given fields. Moving to another category appends
// the product to the destination and closes the gap it leaves behind.
func (uc *productUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if p == nil || p.Deleted() {
		return nil, apperr.NotFound("product not found")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperr.Validation("product name is required")
		}
		p.Name = name
	}
	if input.Description != nil {
		p.Description = input.Description
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, apperr.Validation("price must be zero or more")
		}
		p.Price = *input.Price
	}
	if input.Image != nil {
		p.Image = input.Image
	}
	if input.IsActive != nil {
		p.IsActive = *input.IsActive
	}

	source := p.EntityScope()
	moved := false
	if input.CategoryID.Set && ordering.Within(input.CategoryID.Value) != source {
		if err := uc.checkCategory(ctx, input.CategoryID.Value); err != nil {
			return nil, err
		}
		next, err := uc.repo.NextOrder(ctx, ordering.Within(input.CategoryID.Value))
		if err != nil {
			return nil, fmt.Errorf("reading product order: %w", err)
		}
		p.CategoryID = input.CategoryID.Value
		p.SortOrder = next
		moved = true
	}
	p.UpdatedAt = model.NewTimestamp(time.Now())

	if err := uc.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	if moved {
		if err := uc.ordering.Resequence(ctx, source); err != nil {
			uc.logger.Warn("resequence after category change failed",
				zap.Int64("product", p.ID), zap.String("scope", source.String()), zap.Error(err))
		}
	}

	if input.Order != nil && *input.Order != p.SortOrder {
		if err := uc.ordering.MoveTo(ctx, p.ID, *input.Order); err != nil {
			return nil, err
		}
	}

	uc.publish(ctx, events.TypeUpdated, p.ID)
	return uc.GetProduct(ctx, p.ID)
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := uc.ordering.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (uc *productUseCase) BulkDeleteProducts(ctx context.Context, ids []int64) ([]model.Product, error) {
	return uc.ordering.BulkDelete(ctx, ids)
}

func (uc *productUseCase) ReorderProducts(ctx context.Context, positions []ordering.Position) ([]model.Product, error) {
	if err := uc.ordering.Reorder(ctx, positions); err != nil {
		return nil, err
	}
	return uc.repo.FindAll(ctx, &dto.ProductFilters{})
}

func (uc *productUseCase) RestoreProducts(ctx context.Context, ids []int64) ([]model.Product, error) {
	return uc.ordering.Restore(ctx, ids)
}

func (uc *productUseCase) PurgeProducts(ctx context.Context, ids []int64) error {
	return uc.ordering.Purge(ctx, ids)
}

// checkCategory requires a referenced category to exist and be live.
func (uc *productUseCase) checkCategory(ctx context.Context, id *int64) error {
	if id == nil {
		return nil
	}
	cats, err := uc.categories.FindByIDs(ctx, []int64{*id})
	if err != nil {
		return fmt.Errorf("loading category %d: %w", *id, err)
	}
	if len(cats) == 0 || cats[0].Deleted() {
		return apperr.NotFound("category not found")
	}
	return nil
}

func (uc *productUseCase) publish(ctx context.Context, t events.Type, id int64) {
	if err := uc.events.Publish(ctx, events.New(t, string(ordering.KindProduct), id)); err != nil {
		uc.logger.Warn("failed to publish product event", zap.String("type", string(t)), zap.Error(err))
	}
}
