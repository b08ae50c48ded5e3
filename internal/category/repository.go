package category

import (
	"context"

	"github.com/fekuna/omnipos-qrmenu/internal/category/dto"
	"github.com/fekuna/omnipos-qrmenu/internal/model"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
)

type Repository interface {
	ordering.Store[model.Category]

	Create(ctx context.Context, category *model.Category) error
	FindByID(ctx context.Context, id int64) (*model.Category, error)
	FindAll(ctx context.Context, filters *dto.CategoryFilters) ([]model.Category, error)
	Update(ctx context.Context, category *model.Category) error
	CountActive(ctx context.Context) (int, error)
}

// ProductCounter reports how many live products each category still owns.
// Categories without products are absent from the result.
type ProductCounter interface {
	CountActiveByCategory(ctx context.Context, categoryIDs []int64) (map[int64]int, error)
}
