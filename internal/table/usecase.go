package table

import (
	"context"

	"github.com/fekuna/omnipos-qrmenu/internal/model"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
	"github.com/fekuna/omnipos-qrmenu/internal/table/dto"
)

type UseCase interface {
	CreateTable(ctx context.Context, input *dto.CreateTableInput) (*model.Table, error)
	GetTable(ctx context.Context, id int64) (*model.Table, error)
	// GetTableByName resolves a QR code target; inactive tables are not found.
	GetTableByName(ctx context.Context, name string) (*model.Table, error)
	ListTables(ctx context.Context, filters *dto.TableFilters) ([]model.Table, error)
	UpdateTable(ctx context.Context, input *dto.UpdateTableInput) (*model.Table, error)
	DeleteTable(ctx context.Context, id int64) (*model.Table, error)
	ReorderTables(ctx context.Context, positions []ordering.Position) ([]model.Table, error)
}
