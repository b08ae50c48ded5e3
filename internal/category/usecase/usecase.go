package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-qrmenu/internal/apperr"
	"github.com/fekuna/omnipos-qrmenu/internal/category"
	"github.com/fekuna/omnipos-qrmenu/internal/category/dto"
	"github.com/fekuna/omnipos-qrmenu/internal/events"
	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	"github.com/fekuna/omnipos-qrmenu/internal/model"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
	"go.uber.org/zap"
)

type categoryUseCase struct {
	repo     category.Repository
	ordering *ordering.Service[model.Category]
	events   events.Publisher
	logger   logger.ZapLogger
}

func NewCategoryUseCase(repo category.Repository, products category.ProductCounter, pub events.Publisher, log logger.ZapLogger) category.UseCase {
	if pub == nil {
		pub = events.Noop()
	}
	svc := ordering.NewService(ordering.Descriptor[model.Category]{
		Kind:        ordering.KindCategory,
		Store:       repo,
		DeleteGuard: deleteGuard(products),
	}, pub, log)

	return &categoryUseCase{
		repo:     repo,
		ordering: svc,
		events:   pub,
		logger:   log,
	}
}

// deleteGuard refuses categories that still own live products.
func deleteGuard(products category.ProductCounter) ordering.Guard[model.Category] {
	return func(ctx context.Context, targets []model.Category) ([]ordering.Blocker, error) {
		ids := make([]int64, len(targets))
		for i, c := range targets {
			ids[i] = c.ID
		}
		counts, err := products.CountActiveByCategory(ctx, ids)
		if err != nil {
			return nil, err
		}

		var blockers []ordering.Blocker
		for _, c := range targets {
			n := counts[c.ID]
			if n == 0 {
				continue
			}
			noun := "products"
			if n == 1 {
				noun = "product"
			}
			blockers = append(blockers, ordering.Blocker{
				ID:     c.ID,
				Name:   c.Name,
				Reason: fmt.Sprintf("category %q has %d %s, cannot delete", c.Name, n, noun),
			})
		}
		return blockers, nil
	}
}

func (uc *categoryUseCase) Ordering() *ordering.Service[model.Category] {
	return uc.ordering
}

func (uc *categoryUseCase) CreateCategory(ctx context.Context, input *dto.CreateCategoryInput) (*model.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperr.Validation("category name is required")
	}

	count, err := uc.repo.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting categories: %w", err)
	}

	now := time.Now()
	cat := &model.Category{
		BaseModel: model.BaseModel{
			CreatedAt: model.NewTimestamp(now),
			UpdatedAt: model.NewTimestamp(now),
		},
		Name:      name,
		Icon:      input.Icon,
		SortOrder: count,
		IsActive:  true,
	}

	if err := uc.repo.Create(ctx, cat); err != nil {
		return nil, err
	}

	// Appended first, then moved, so the sequence never has a duplicate.
	if input.Order != nil && *input.Order < count {
		if err := uc.ordering.MoveTo(ctx, cat.ID, *input.Order); err != nil {
			return nil, err
		}
	}

	uc.publish(ctx, events.TypeCreated, cat.ID)
	return uc.mustGet(ctx, cat.ID)
}

func (uc *categoryUseCase) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	cat, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, apperr.NotFound("category not found")
	}
	return cat, nil
}

func (uc *categoryUseCase) ListCategories(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, error) {
	if filters == nil {
		filters = &dto.CategoryFilters{}
	}
	return uc.repo.FindAll(ctx, filters)
}

func (uc *categoryUseCase) UpdateCategory(ctx context.Context, input *dto.UpdateCategoryInput) (*model.Category, error) {
	cat, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if cat == nil || cat.Deleted() {
		return nil, apperr.NotFound("category not found")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperr.Validation("category name is required")
		}
		cat.Name = name
	}
	if input.Icon != nil {
		cat.Icon = input.Icon
	}
	if input.IsActive != nil {
		cat.IsActive = *input.IsActive
	}
	cat.UpdatedAt = model.NewTimestamp(time.Now())

	if err := uc.repo.Update(ctx, cat); err != nil {
		return nil, err
	}

	if input.Order != nil && *input.Order != cat.SortOrder {
		if err := uc.ordering.MoveTo(ctx, cat.ID, *input.Order); err != nil {
			return nil, err
		}
	}

	uc.publish(ctx, events.TypeUpdated, cat.ID)
	return uc.mustGet(ctx, cat.ID)
}

func (uc *categoryUseCase) DeleteCategory(ctx context.Context, id int64) (*model.Category, error) {
	cat, err := uc.ordering.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func (uc *categoryUseCase) BulkDeleteCategories(ctx context.Context, ids []int64) ([]model.Category, error) {
	return uc.ordering.BulkDelete(ctx, ids)
}

func (uc *categoryUseCase) ReorderCategories(ctx context.Context, positions []ordering.Position) ([]model.Category, error) {
	if err := uc.ordering.Reorder(ctx, positions); err != nil {
		return nil, err
	}
	return uc.repo.FindAll(ctx, &dto.CategoryFilters{})
}

func (uc *categoryUseCase) RestoreCategories(ctx context.Context, ids []int64) ([]model.Category, error) {
	return uc.ordering.Restore(ctx, ids)
}

func (uc *categoryUseCase) PurgeCategories(ctx context.Context, ids []int64) error {
	return uc.ordering.Purge(ctx, ids)
}

func (uc *categoryUseCase) mustGet(ctx context.Context, id int64) (*model.Category, error) {
	cat, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, apperr.NotFound("category not found")
	}
	return cat, nil
}

func (uc *categoryUseCase) publish(ctx context.Context, t events.Type, id int64) {
	if err := uc.events.Publish(ctx, events.New(t, string(ordering.KindCategory), id)); err != nil {
		uc.logger.Warn("failed to publish category event", zap.String("type", string(t)), zap.Error(err))
	}
}
