package product

import (
	"context"

	"github.com/fekuna/omnipos-qrmenu/internal/model"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
	"github.com/fekuna/omnipos-qrmenu/internal/product/dto"
)

type Repository interface {
	ordering.Store[model.Product]

	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id int64) (*model.Product, error)
	FindAll(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, error)
	Update(ctx context.Context, product *model.Product) error

	// NextOrder is one past the highest live order in scope, or 0 when empty.
	NextOrder(ctx context.Context, scope ordering.Scope) (int, error)
	CountActiveByCategory(ctx context.Context, categoryIDs []int64) (map[int64]int, error)
}

// CategoryReader resolves the categories products point at, deleted ones included.
type CategoryReader interface {
	FindByIDs(ctx context.Context, ids []int64) ([]model.Category, error)
}
