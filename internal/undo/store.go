package undo

import (
	"context"
	"sort"
	"sync"
	"time"
)

// PendingStore persists open undo batches so that batches whose timer never
// fired (process restart, abandoned session) can still be finalized.
type PendingStore interface {
	Save(ctx context.Context, b Batch) error
	Delete(ctx context.Context, id string) error
	// Expired returns batches whose deadline is before t, earliest first.
	Expired(ctx context.Context, t time.Time) ([]Batch, error)
}

type MemoryStore struct {
	mu      sync.Mutex
	batches map[string]Batch
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{batches: make(map[string]Batch)}
}

func (m *MemoryStore) Save(_ context.Context, b Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[b.ID] = b
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.batches, id)
	return nil
}

func (m *MemoryStore) Expired(_ context.Context, t time.Time) ([]Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Batch
	for _, b := range m.batches {
		if b.Deadline.Before(t) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(out[j].Deadline) })
	return out, nil
}

// Len is the number of stored batches.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}
