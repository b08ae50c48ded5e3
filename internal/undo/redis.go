package undo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	batchKeyPrefix = "qrmenu:undo:batch:"
	deadlinesKey   = "qrmenu:undo:deadlines"
	// batchTTL keeps a lost record from living forever once the sweeper is gone.
	batchTTL = 7 * 24 * time.Hour
)

// RedisStore keeps each batch as a JSON value and indexes deadlines in a
// sorted set scored by unix milliseconds.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func batchKey(id string) string { return batchKeyPrefix + id }

func (s *RedisStore) Save(ctx context.Context, b Batch) error {
	data, err := json.Marshal(b)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, batchKey(b.ID), data, batchTTL)
		p.ZAdd(ctx, deadlinesKey, redis.Z{Score: float64(b.Deadline.UnixMilli()), Member: b.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving undo batch %s: %w", b.ID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, batchKey(id))
		p.ZRem(ctx, deadlinesKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("deleting undo batch %s: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Expired(ctx context.Context, t time.Time) ([]Batch, error) {
	ids, err := s.client.ZRangeByScore(ctx, deadlinesKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(t.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("listing expired undo batches: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = batchKey(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("loading expired undo batches: %w", err)
	}

	var out []Batch
	var stale []interface{}
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var b Batch
		if err := json.Unmarshal([]byte(raw), &b); err != nil {
			stale = append(stale, ids[i])
			continue
		}
		out = append(out, b)
	}

	// index entries whose value expired or was unreadable
	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, deadlinesKey, stale...).Err(); err != nil {
			return out, fmt.Errorf("pruning undo index: %w", err)
		}
	}
	return out, nil
}
