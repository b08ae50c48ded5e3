// Package menu assembles the public, read-only view guests reach from a QR code.
package menu

import (
	"context"
	"time"

	catdto "github.com/fekuna/omnipos-qrmenu/internal/category/dto"
	"github.com/fekuna/omnipos-qrmenu/internal/model"
	prodto "github.com/fekuna/omnipos-qrmenu/internal/product/dto"
)

type Section struct {
	model.Category
	Products []model.Product `json:"products"`
}

type Menu struct {
	Categories    []Section       `json:"categories"`
	Uncategorized []model.Product `json:"uncategorized"`
	Table         *model.Table    `json:"table,omitempty"`
	GeneratedAt   time.Time       `json:"generatedAt"`
}

type UseCase interface {
	GetMenu(ctx context.Context) (*Menu, error)
	// GetTableMenu returns NotFound unless name is a live, active table.
	GetTableMenu(ctx context.Context, name string) (*Menu, error)
}

type CategoryLister interface {
	FindAll(ctx context.Context, filters *catdto.CategoryFilters) ([]model.Category, error)
}

type ProductLister interface {
	FindAll(ctx context.Context, filters *prodto.ProductFilters) ([]model.Product, error)
}

type TableFinder interface {
	GetTableByName(ctx context.Context, name string) (*model.Table, error)
}
