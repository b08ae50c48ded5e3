package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisClient(&Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestJSONRoundTrip(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	type menu struct {
		Names []string `json:"names"`
	}

	var got menu
	found, err := c.GetJSON(ctx, "menu", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.SetJSON(ctx, "menu", menu{Names: []string{"Pizza"}}, time.Minute))
	found, err = c.GetJSON(ctx, "menu", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"Pizza"}, got.Names)

	mr.FastForward(2 * time.Minute)
	found, err = c.GetJSON(ctx, "menu", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.SetJSON(ctx, "menu", menu{}, 0))
	require.NoError(t, c.Delete(ctx, "menu"))
	assert.False(t, mr.Exists("menu"))
}

func TestLock(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	ok, err := c.AcquireLock(ctx, "lock:sweep", "a", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.AcquireLock(ctx, "lock:sweep", "b", time.Second)
	require.NoError(t, err)
	assert.False(t, ok)

	// only the holder can release
	require.NoError(t, c.ReleaseLock(ctx, "lock:sweep", "b"))
	ok, _ = c.AcquireLock(ctx, "lock:sweep", "b", time.Second)
	assert.False(t, ok)

	require.NoError(t, c.ReleaseLock(ctx, "lock:sweep", "a"))
	ok, err = c.AcquireLock(ctx, "lock:sweep", "b", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewRedisClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(&Config{Addr: addr})
	assert.Error(t, err)
}
