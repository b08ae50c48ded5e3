package table

import (
	"context"
	"errors"

	"github.com/fekuna/omnipos-qrmenu/internal/model"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
	"github.com/fekuna/omnipos-qrmenu/internal/table/dto"
)

// ErrDuplicateName is returned when the unique index on live names rejects a write.
var ErrDuplicateName = errors.New("table name already in use")

type Repository interface {
	ordering.Store[model.Table]

	Create(ctx context.Context, table *model.Table) error
	FindByID(ctx context.Context, id int64) (*model.Table, error)
	// FindLiveByName matches case-insensitively among non-deleted tables.
	FindLiveByName(ctx context.Context, name string) (*model.Table, error)
	FindAll(ctx context.Context, filters *dto.TableFilters) ([]model.Table, error)
	Update(ctx context.Context, table *model.Table) error
	CountActive(ctx context.Context) (int, error)
}
