package undo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

func batchAt(id string, deadline time.Time, ids ...int64) Batch {
	return Batch{
		ID:        id,
		Kind:      ordering.KindProduct,
		SessionID: "s1",
		IDs:       ids,
		DeletedAt: deadline.Add(-10 * time.Second).Add(123456 * time.Nanosecond),
		StartedAt: deadline.Add(-10 * time.Second),
		Deadline:  deadline,
	}
}

func TestRedisStore(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, batchAt("late", base.Add(time.Minute), 3)))
	require.NoError(t, store.Save(ctx, batchAt("early", base, 1, 2)))
	assert.True(t, mr.Exists(batchKey("early")))

	got, err := store.Expired(ctx, base)
	require.NoError(t, err)
	assert.Empty(t, got, "deadline equal to the cutoff is not expired")

	got, err = store.Expired(ctx, base.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "early", got[0].ID)
	assert.Equal(t, []int64{1, 2}, got[0].IDs)
	assert.True(t, base.Equal(got[0].Deadline))
	assert.True(t, base.Add(-10*time.Second).Add(123456*time.Nanosecond).Equal(got[0].DeletedAt), "the delete marker survives the round trip")
	assert.Equal(t, "late", got[1].ID)

	require.NoError(t, store.Delete(ctx, "early"))
	got, err = store.Expired(ctx, base.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "late", got[0].ID)
}

func TestRedisStorePrunesStaleIndex(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, batchAt("gone", base, 1)))
	mr.Del(batchKey("gone"))

	got, err := store.Expired(ctx, base.Add(time.Second))
	require.NoError(t, err)
	assert.Empty(t, got)

	members, err := mr.ZMembers(deadlinesKey)
	if err == nil {
		assert.Empty(t, members)
	}
}
