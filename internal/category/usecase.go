package category

import (
	"context"

	"github.com/fekuna/omnipos-qrmenu/internal/category/dto"
	"github.com/fekuna/omnipos-qrmenu/internal/model"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
)

type UseCase interface {
	CreateCategory(ctx context.Context, input *dto.CreateCategoryInput) (*model.Category, error)
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	ListCategories(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, error)
	UpdateCategory(ctx context.Context, input *dto.UpdateCategoryInput) (*model.Category, error)
	DeleteCategory(ctx context.Context, id int64) (*model.Category, error)
	BulkDeleteCategories(ctx context.Context, ids []int64) ([]model.Category, error)
	ReorderCategories(ctx context.Context, positions []ordering.Position) ([]model.Category, error)
	RestoreCategories(ctx context.Context, ids []int64) ([]model.Category, error)
	PurgeCategories(ctx context.Context, ids []int64) error

	// Ordering exposes the generic service so the undo timer can resolve batches.
	Ordering() *ordering.Service[model.Category]
}
