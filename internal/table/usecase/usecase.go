package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fekuna/omnipos-qrmenu/internal/apperr"
	"github.com/fekuna/omnipos-qrmenu/internal/events"
	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	"github.com/fekuna/omnipos-qrmenu/internal/model"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
	"github.com/fekuna/omnipos-qrmenu/internal/table"
	"github.com/fekuna/omnipos-qrmenu/internal/table/dto"
	"go.uber.org/zap"
)

type tableUseCase struct {
	repo     table.Repository
	ordering *ordering.Service[model.Table]
	events   events.Publisher
	logger   logger.ZapLogger
}

func NewTableUseCase(repo table.Repository, pub events.Publisher, log logger.ZapLogger) table.UseCase {
	if pub == nil {
		pub = events.Noop()
	}
	return &tableUseCase{
		repo: repo,
		ordering: ordering.NewService(ordering.Descriptor[model.Table]{
			Kind:  ordering.KindTable,
			Store: repo,
		}, pub, log),
		events: pub,
		logger: log,
	}
}

func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", apperr.Validation("table name is required")
	}
	if utf8.RuneCountInString(name) > model.MaxTableNameLength {
		return "", apperr.Validation("table name must be at most %d characters", model.MaxTableNameLength)
	}
	return name, nil
}

func duplicate(name string) error {
	return apperr.Conflict(fmt.Sprintf("table %q already exists", name))
}

// ensureUnique fails when another live table already uses name. The unique
// index catches the race between this check and the write.
func (uc *tableUseCase) ensureUnique(ctx context.Context, name string, self int64) error {
	existing, err := uc.repo.FindLiveByName(ctx, name)
	if err != nil {
		return fmt.Errorf("looking up table %q: %w", name, err)
	}
	if existing != nil && existing.ID != self {
		return duplicate(name)
	}
	return nil
}

func (uc *tableUseCase) CreateTable(ctx context.Context, input *dto.CreateTableInput) (*model.Table, error) {
	name, err := validateName(input.Name)
	if err != nil {
		return nil, err
	}
	if err := uc.ensureUnique(ctx, name, 0); err != nil {
		return nil, err
	}

	count, err := uc.repo.CountActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting tables: %w", err)
	}

	now := time.Now()
	t := &model.Table{
		BaseModel: model.BaseModel{
			CreatedAt: model.NewTimestamp(now),
			UpdatedAt: model.NewTimestamp(now),
		},
		Name:      name,
		SortOrder: count,
		IsActive:  true,
	}
	if input.IsActive != nil {
		t.IsActive = *input.IsActive
	}

	if err := uc.repo.Create(ctx, t); err != nil {
		if errors.Is(err, table.ErrDuplicateName) {
			return nil, duplicate(name)
		}
		return nil, err
	}

	if input.Order != nil && *input.Order < count {
		if err := uc.ordering.MoveTo(ctx, t.ID, *input.Order); err != nil {
			return nil, err
		}
	}

	uc.publish(ctx, events.TypeCreated, t.ID)
	return uc.GetTable(ctx, t.ID)
}

func (uc *tableUseCase) GetTable(ctx context.Context, id int64) (*model.Table, error) {
	t, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("table not found")
	}
	return t, nil
}

func (uc *tableUseCase) GetTableByName(ctx context.Context, name string) (*model.Table, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.NotFound("table not found")
	}
	t, err := uc.repo.FindLiveByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if t == nil || !t.IsActive {
		return nil, apperr.NotFound("table %q not found", name)
	}
	return t, nil
}

func (uc *tableUseCase) ListTables(ctx context.Context, filters *dto.TableFilters) ([]model.Table, error) {
	if filters == nil {
		filters = &dto.TableFilters{}
	}
	return uc.repo.FindAll(ctx, filters)
}

func (uc *tableUseCase) UpdateTable(ctx context.Context, input *dto.UpdateTableInput) (*model.Table, error) {
	t, err := uc.repo.FindByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if t == nil || t.Deleted() {
		return nil, apperr.NotFound("table not found")
	}

	if input.Name != nil {
		name, err := validateName(*input.Name)
		if err != nil {
			return nil, err
		}
		if err := uc.ensureUnique(ctx, name, t.ID); err != nil {
			return nil, err
		}
		t.Name = name
	}
	if input.IsActive != nil {
		t.IsActive = *input.IsActive
	}
	t.UpdatedAt = model.NewTimestamp(time.Now())

	if err := uc.repo.Update(ctx, t); err != nil {
		if errors.Is(err, table.ErrDuplicateName) {
			return nil, duplicate(t.Name)
		}
		return nil, err
	}

	if input.Order != nil && *input.Order != t.SortOrder {
		if err := uc.ordering.MoveTo(ctx, t.ID, *input.Order); err != nil {
			return nil, err
		}
	}

	uc.publish(ctx, events.TypeUpdated, t.ID)
	return uc.GetTable(ctx, t.ID)
}

// DeleteTable soft-deletes immediately; tables have no undo window.
func (uc *tableUseCase) DeleteTable(ctx context.Context, id int64) (*model.Table, error) {
	t, err := uc.ordering.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	uc.logger.Info("table deleted", zap.Int64("id", t.ID), zap.String("name", t.Name))
	return &t, nil
}

func (uc *tableUseCase) ReorderTables(ctx context.Context, positions []ordering.Position) ([]model.Table, error) {
	if err := uc.ordering.Reorder(ctx, positions); err != nil {
		return nil, err
	}
	return uc.repo.FindAll(ctx, &dto.TableFilters{})
}

func (uc *tableUseCase) publish(ctx context.Context, t events.Type, id int64) {
	if err := uc.events.Publish(ctx, events.New(t, string(ordering.KindTable), id)); err != nil {
		uc.logger.Warn("failed to publish table event", zap.String("type", string(t)), zap.Error(err))
	}
}
