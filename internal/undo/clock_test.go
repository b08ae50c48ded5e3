package undo

import (
	"context"
	"sync"
	"time"
)

// manualClock only moves when told to. Due callbacks run synchronously
// inside Advance, in deadline order.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	c       *manualClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Stopper {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{c: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Set moves the clock without running any callback.
func (c *manualClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *manualTimer
		for _, t := range c.timers {
			if t.fired || t.stopped || t.at.After(c.now) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			c.mu.Unlock()
			return
		}
		next.fired = true
		c.mu.Unlock()
		next.f()
	}
}

// deletedAt is the delete marker the tests stamp on their batches.
var deletedAt = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

type fakeResolver struct {
	mu         sync.Mutex
	restored   [][]int64
	purged     [][]int64
	markers    []time.Time
	restoreErr error
	purgeErr   error
}

func (f *fakeResolver) RestoreBatch(_ context.Context, ids []int64, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.restoreErr != nil {
		return f.restoreErr
	}
	f.restored = append(f.restored, ids)
	return nil
}

func (f *fakeResolver) PurgeBatch(_ context.Context, ids []int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.purgeErr != nil {
		return f.purgeErr
	}
	f.purged = append(f.purged, ids)
	f.markers = append(f.markers, at)
	return nil
}

func (f *fakeResolver) setErrors(restore, purge error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restoreErr, f.purgeErr = restore, purge
}

func (f *fakeResolver) purges() [][]int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]int64(nil), f.purged...)
}

func (f *fakeResolver) marks() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Time(nil), f.markers...)
}

func (f *fakeResolver) restores() [][]int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]int64(nil), f.restored...)
}
