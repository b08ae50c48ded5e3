package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/fekuna/omnipos-qrmenu/internal/category/dto"
	"github.com/fekuna/omnipos-qrmenu/internal/category/repository"
	"github.com/fekuna/omnipos-qrmenu/internal/database/databasetest"
	"github.com/fekuna/omnipos-qrmenu/internal/model"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, repo *repository.SQLRepository, names ...string) []int64 {
	t.Helper()
	now := model.NewTimestamp(time.Now())
	ids := make([]int64, len(names))
	for i, name := range names {
		c := &model.Category{BaseModel: model.BaseModel{CreatedAt: now, UpdatedAt: now}, Name: name, SortOrder: i, IsActive: true}
		require.NoError(t, repo.Create(context.Background(), c))
		ids[i] = c.ID
	}
	return ids
}

func orders(t *testing.T, repo *repository.SQLRepository) map[string]int {
	t.Helper()
	all, err := repo.FindAll(context.Background(), &dto.CategoryFilters{IncludeDeleted: true})
	require.NoError(t, err)
	out := make(map[string]int, len(all))
	for _, c := range all {
		out[c.Name] = c.SortOrder
	}
	return out
}

func TestApplyOrder(t *testing.T) {
	repo := repository.NewSQLRepository(databasetest.New(t))
	ctx := context.Background()
	ids := seed(t, repo, "A", "B", "C")

	err := repo.ApplyOrder(ctx, []ordering.Assignment{{ID: ids[2], Order: 0}, {ID: ids[0], Order: 2}})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"A": 2, "B": 1, "C": 0}, orders(t, repo))
}

func TestApplyOrderIsAllOrNothing(t *testing.T) {
	repo := repository.NewSQLRepository(databasetest.New(t))
	ctx := context.Background()
	ids := seed(t, repo, "A", "B", "C")
	require.NoError(t, repo.SoftDelete(ctx, []int64{ids[1]}, time.Now().UTC()))
	before := orders(t, repo)

	err := repo.ApplyOrder(ctx, []ordering.Assignment{
		{ID: ids[2], Order: 0},
		{ID: ids[1], Order: 1}, // soft-deleted
		{ID: ids[0], Order: 2},
	})
	require.Error(t, err)
	assert.Equal(t, before, orders(t, repo), "no order changes when one row is rejected")

	err = repo.ApplyOrder(ctx, []ordering.Assignment{{ID: ids[2], Order: 0}, {ID: 404, Order: 1}})
	require.Error(t, err)
	assert.Equal(t, before, orders(t, repo))
}

func TestSoftDeleteIsAllOrNothing(t *testing.T) {
	repo := repository.NewSQLRepository(databasetest.New(t))
	ctx := context.Background()
	ids := seed(t, repo, "A", "B")
	at := time.Now().UTC().Truncate(time.Microsecond)

	require.Error(t, repo.SoftDelete(ctx, []int64{ids[0], 404}, at))
	live, err := repo.FindActive(ctx, ordering.Scope{})
	require.NoError(t, err)
	assert.Len(t, live, 2)

	require.NoError(t, repo.SoftDelete(ctx, []int64{ids[0]}, at))
	got, err := repo.FindByID(ctx, ids[0])
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.DeletionTime().Equal(at), "the delete marker reads back unchanged")
	assert.False(t, got.IsActive)

	// purge leaves live rows alone
	require.NoError(t, repo.Purge(ctx, ids))
	got, err = repo.FindByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Nil(t, got)
	got, err = repo.FindByID(ctx, ids[1])
	require.NoError(t, err)
	assert.NotNil(t, got)
}
