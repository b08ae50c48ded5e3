// Package undo runs the timed undo window that follows a soft delete. A
// Timer holds at most one pending batch per entity kind and admin session.
// Expiry is driven by a single scheduled callback; the remaining time is
// always derived from the wall-clock start of the batch.
package undo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultWindow = 10 * time.Second

	// resolveTimeout bounds the purge issued from the timer callback, which
	// has no request context.
	resolveTimeout = 30 * time.Second
)

var (
	ErrNoPendingBatch = errors.New("nothing to undo")
	ErrWindowExpired  = errors.New("undo window has expired")
	ErrClosed         = errors.New("undo session is closed")
)

type State int

const (
	StateIdle State = iota
	StatePending
	StateExpiring
	StateRestoring
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateExpiring:
		return "expiring"
	case StateRestoring:
		return "restoring"
	default:
		return "idle"
	}
}

// Batch is the set of entities removed by one delete action.
type Batch struct {
	ID        string        `json:"id"`
	Kind      ordering.Kind `json:"kind"`
	SessionID string        `json:"sessionId"`
	IDs       []int64       `json:"ids"`
	// DeletedAt is the delete marker the batch stamped on its rows.
	DeletedAt time.Time `json:"deletedAt"`
	StartedAt time.Time `json:"startedAt"`
	Deadline  time.Time     `json:"deadline"`
}

// Resolver finalizes a batch one way or the other. Both act only on rows
// still soft-deleted with deletedAt.
type Resolver interface {
	RestoreBatch(ctx context.Context, ids []int64, deletedAt time.Time) error
	PurgeBatch(ctx context.Context, ids []int64, deletedAt time.Time) error
}

type Status struct {
	Kind           ordering.Kind `json:"kind"`
	State          string        `json:"state"`
	BatchID        string        `json:"batchId,omitempty"`
	IDs            []int64       `json:"ids"`
	Remaining      time.Duration `json:"-"`
	RemainingMs    int64         `json:"remainingMs"`
	Countdown      int           `json:"countdown"`
	ShowUndoButton bool          `json:"showUndoButton"`
	Deadline       *time.Time    `json:"deadline,omitempty"`
}

type TimerConfig struct {
	Kind      ordering.Kind
	SessionID string
	Window    time.Duration
	Clock     Clock
	Resolver  Resolver
	Store     PendingStore
	Logger    logger.ZapLogger
}

type Timer struct {
	kind      ordering.Kind
	sessionID string
	window    time.Duration
	clock     Clock
	resolver  Resolver
	store     PendingStore
	logger    logger.ZapLogger

	mu    sync.Mutex
	state State
	batch *Batch
	timer Stopper
	// epoch invalidates callbacks scheduled for an earlier batch.
	epoch  uint64
	closed bool
}

func NewTimer(cfg TimerConfig) *Timer {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	return &Timer{
		kind:      cfg.Kind,
		sessionID: cfg.SessionID,
		window:    cfg.Window,
		clock:     cfg.Clock,
		resolver:  cfg.Resolver,
		store:     cfg.Store,
		logger:    cfg.Logger.With(zap.String("kind", string(cfg.Kind)), zap.String("session", cfg.SessionID)),
	}
}

// Start opens the undo window for ids, soft-deleted with marker deletedAt. A
// batch that is still pending is purged first, so every batch is finalized
// exactly once.
func (t *Timer) Start(ctx context.Context, ids []int64, deletedAt time.Time) (Batch, error) {
	if len(ids) == 0 {
		return Batch{}, fmt.Errorf("undo batch for %s is empty", t.kind.Plural())
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Batch{}, ErrClosed
	}

	var prev *Batch
	if t.state == StatePending && t.batch != nil {
		p := *t.batch
		prev = &p
		t.stopLocked()
		t.logger.Info("new delete supersedes pending undo batch", zap.String("batch", p.ID))
	}

	now := t.clock.Now()
	b := Batch{
		ID:        uuid.NewString(),
		Kind:      t.kind,
		SessionID: t.sessionID,
		IDs:       append([]int64(nil), ids...),
		DeletedAt: deletedAt,
		StartedAt: now,
		Deadline:  now.Add(t.window),
	}

	// Persist before arming so an expiry can never run ahead of the record.
	if err := t.store.Save(ctx, b); err != nil {
		t.logger.Warn("failed to persist undo batch", zap.String("batch", b.ID), zap.Error(err))
	}

	t.epoch++
	t.batch = &b
	t.state = StatePending
	t.arm(t.window, t.epoch)
	t.mu.Unlock()

	if prev != nil {
		t.purge(ctx, *prev)
	}

	t.logger.Debug("undo window opened", zap.String("batch", b.ID), zap.Int64s("ids", b.IDs))
	return b, nil
}

// Release drops ids from the pending batch after they were restored or
// purged outside the timer. A batch left empty is closed without a purge.
// Batches already being finalized are left alone.
func (t *Timer) Release(ctx context.Context, ids []int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StatePending || t.batch == nil {
		return false
	}

	drop := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := make([]int64, 0, len(t.batch.IDs))
	for _, id := range t.batch.IDs {
		if _, ok := drop[id]; !ok {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(t.batch.IDs) {
		return false
	}

	b := *t.batch
	if len(kept) == 0 {
		t.stopLocked()
		t.epoch++
		t.state = StateIdle
		t.batch = nil
		t.forget(ctx, b)
		t.logger.Info("undo batch released", zap.String("batch", b.ID))
		return true
	}

	b.IDs = kept
	t.batch = &b
	if err := t.store.Save(ctx, b); err != nil {
		t.logger.Warn("failed to persist undo batch", zap.String("batch", b.ID), zap.Error(err))
	}
	t.logger.Info("undo batch narrowed", zap.String("batch", b.ID), zap.Int64s("ids", kept))
	return true
}

// Restore reverses the pending batch if its deadline has not passed. On
// failure the batch stays pending with its original deadline.
func (t *Timer) Restore(ctx context.Context) (Batch, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Batch{}, ErrClosed
	}
	switch t.state {
	case StatePending:
	case StateExpiring:
		t.mu.Unlock()
		return Batch{}, ErrWindowExpired
	default:
		t.mu.Unlock()
		return Batch{}, ErrNoPendingBatch
	}

	b := *t.batch
	if !t.clock.Now().Before(b.Deadline) {
		// the expiry callback is due and will purge
		t.mu.Unlock()
		return Batch{}, ErrWindowExpired
	}

	t.stopLocked()
	t.state = StateRestoring
	epoch := t.epoch
	t.mu.Unlock()

	err := t.resolver.RestoreBatch(ctx, b.IDs, b.DeletedAt)

	t.mu.Lock()
	defer t.mu.Unlock()

	superseded := t.epoch != epoch
	if err != nil {
		if !superseded && !t.closed {
			t.state = StatePending
			remaining := b.Deadline.Sub(t.clock.Now())
			if remaining < 0 {
				remaining = 0
			}
			t.arm(remaining, epoch)
		}
		return Batch{}, err
	}

	if !superseded {
		t.state = StateIdle
		t.batch = nil
	}
	t.forget(ctx, b)
	t.logger.Info("undo batch restored", zap.String("batch", b.ID), zap.Int64s("ids", b.IDs))
	return b, nil
}

func (t *Timer) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Status{Kind: t.kind, State: t.state.String(), IDs: []int64{}}
	if t.batch == nil {
		return s
	}

	remaining := t.window - t.clock.Now().Sub(t.batch.StartedAt)
	if remaining < 0 {
		remaining = 0
	}
	deadline := t.batch.Deadline

	s.BatchID = t.batch.ID
	s.IDs = append(s.IDs, t.batch.IDs...)
	s.Remaining = remaining
	s.RemainingMs = remaining.Milliseconds()
	s.Countdown = int(math.Ceil(remaining.Seconds()))
	s.ShowUndoButton = t.state == StatePending && remaining > 0
	s.Deadline = &deadline
	return s
}

// Close stops the scheduled expiry. A pending batch stays in the store and is
// finalized by the sweeper.
func (t *Timer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.epoch++
	t.closed = true
}

// Idle reports whether no batch is in flight.
func (t *Timer) Idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == StateIdle
}

func (t *Timer) arm(d time.Duration, epoch uint64) {
	t.timer = t.clock.AfterFunc(d, func() { t.expire(epoch) })
}

func (t *Timer) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Timer) expire(epoch uint64) {
	t.mu.Lock()
	if t.epoch != epoch || t.state != StatePending || t.batch == nil {
		t.mu.Unlock()
		return
	}
	b := *t.batch
	t.state = StateExpiring
	t.timer = nil
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()
	t.purge(ctx, b)

	t.mu.Lock()
	if t.epoch == epoch {
		t.state = StateIdle
		t.batch = nil
	}
	t.mu.Unlock()
}

// purge finalizes b. A failed purge keeps the stored record for the sweeper.
func (t *Timer) purge(ctx context.Context, b Batch) {
	if err := t.resolver.PurgeBatch(ctx, b.IDs, b.DeletedAt); err != nil {
		t.logger.Error("failed to purge expired undo batch",
			zap.String("batch", b.ID), zap.Int64s("ids", b.IDs), zap.Error(err))
		return
	}
	t.forget(ctx, b)
	t.logger.Info("undo batch purged", zap.String("batch", b.ID), zap.Int64s("ids", b.IDs))
}

func (t *Timer) forget(ctx context.Context, b Batch) {
	if err := t.store.Delete(ctx, b.ID); err != nil {
		t.logger.Warn("failed to drop persisted undo batch", zap.String("batch", b.ID), zap.Error(err))
	}
}
