package product

import (
	"context"

	"github.com/fekuna/omnipos-qrmenu/internal/model"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
	"github.com/fekuna/omnipos-qrmenu/internal/product/dto"
)

type UseCase interface {
	CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, error)
	UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) (*model.Product, error)
	BulkDeleteProducts(ctx context.Context, ids []int64) ([]model.Product, error)
	ReorderProducts(ctx context.Context, positions []ordering.Position) ([]model.Product, error)
	RestoreProducts(ctx context.Context, ids []int64) ([]model.Product, error)
	PurgeProducts(ctx context.Context, ids []int64) error

	Ordering() *ordering.Service[model.Product]
}
