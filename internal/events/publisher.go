package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeCreated   Type = "created"
	TypeUpdated   Type = "updated"
	TypeDeleted   Type = "deleted"
	TypeRestored  Type = "restored"
	TypePurged    Type = "purged"
	TypeReordered Type = "reordered"
)

type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	Kind       string    `json:"kind"`
	IDs        []int64   `json:"ids"`
	OccurredAt time.Time `json:"occurredAt"`
}

func New(t Type, kind string, ids ...int64) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		Kind:       kind,
		IDs:        ids,
		OccurredAt: time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type noopPublisher struct{}

func Noop() Publisher { return noopPublisher{} }

func (noopPublisher) Publish(context.Context, Event) error { return nil }

type fanout []Publisher

// Fanout delivers every event to all publishers and joins their errors.
func Fanout(pubs ...Publisher) Publisher {
	var out fanout
	for _, p := range pubs {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (f fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
	return nil
}

// Types returns the types of recorded events of kind, in publish order.
func (r *Recorder) Types(kind string) []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Type
	for _, e := range r.Events {
		if e.Kind == kind {
			out = append(out, e.Type)
		}
	}
	return out
}
