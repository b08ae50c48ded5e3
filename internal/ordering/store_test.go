package ordering

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/fekuna/omnipos-qrmenu/internal/apperr"
)

type item struct {
	ID      int64
	Name    string
	Parent  *int64
	Order   int
	Removed *time.Time
}

func (i item) EntityID() int64    { return i.ID }
func (i item) EntityName() string { return i.Name }
func (i item) EntityScope() Scope { return Within(i.Parent) }
func (i item) Position() int      { return i.Order }
func (i item) Deleted() bool      { return i.Removed != nil }

func (i item) DeletionTime() time.Time {
	if i.Removed == nil {
		return time.Time{}
	}
	return *i.Removed
}

// memStore is an in-memory Store used to exercise Service without a database.
type memStore struct {
	mu        sync.Mutex
	rows      map[int64]item
	failApply error
	applied   int
}

func newMemStore(items ...item) *memStore {
	m := &memStore{rows: make(map[int64]item)}
	for _, it := range items {
		m.rows[it.ID] = it
	}
	return m
}

func (m *memStore) FindByIDs(_ context.Context, ids []int64) ([]item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []item
	for _, id := range ids {
		if it, ok := m.rows[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memStore) FindActive(_ context.Context, scope Scope) ([]item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []item
	for _, it := range m.rows {
		if !it.Deleted() && it.EntityScope() == scope {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Order != out[b].Order {
			return out[a].Order < out[b].Order
		}
		return out[a].ID < out[b].ID
	})
	return out, nil
}

func (m *memStore) SoftDelete(_ context.Context, ids []int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		it, ok := m.rows[id]
		if !ok || it.Deleted() {
			return apperr.NotFound("item %d not found", id)
		}
	}
	for _, id := range ids {
		it := m.rows[id]
		ts := at
		it.Removed = &ts
		m.rows[id] = it
	}
	return nil
}

func (m *memStore) Restore(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		it := m.rows[id]
		it.Removed = nil
		m.rows[id] = it
	}
	return nil
}

func (m *memStore) Purge(_ context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if it, ok := m.rows[id]; ok && it.Deleted() {
			delete(m.rows, id)
		}
	}
	return nil
}

func (m *memStore) ApplyOrder(_ context.Context, assignments []Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failApply != nil {
		return m.failApply
	}
	for _, a := range assignments {
		it, ok := m.rows[a.ID]
		if !ok || it.Deleted() {
			return errors.New("row vanished")
		}
	}
	for _, a := range assignments {
		it := m.rows[a.ID]
		it.Order = a.Order
		m.rows[a.ID] = it
	}
	m.applied++
	return nil
}

func (m *memStore) get(id int64) (item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.rows[id]
	return it, ok
}

func (m *memStore) active(scope Scope) []item {
	out, _ := m.FindActive(context.Background(), scope)
	return out
}

func names(items []item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func ptr(v int64) *int64 { return &v }
