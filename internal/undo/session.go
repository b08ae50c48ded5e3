package undo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
	"go.uber.org/zap"
)

// Session holds the undo timers of one admin session, one per entity kind.
type Session struct {
	ID     string
	timers map[ordering.Kind]*Timer

	mu       sync.Mutex
	lastSeen time.Time
}

// Timer returns the timer for kind, or nil when the kind has no undo window.
func (s *Session) Timer(kind ordering.Kind) *Timer {
	return s.timers[kind]
}

// Statuses lists every timer of the session in kind order.
func (s *Session) Statuses() []Status {
	kinds := make([]string, 0, len(s.timers))
	for k := range s.timers {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	out := make([]Status, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, s.timers[ordering.Kind(k)].Status())
	}
	return out
}

func (s *Session) idle() bool {
	for _, t := range s.timers {
		if !t.Idle() {
			return false
		}
	}
	return true
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) seen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) close() {
	for _, t := range s.timers {
		t.Close()
	}
}

type RegistryConfig struct {
	Window time.Duration
	Clock  Clock
	Store  PendingStore
	Logger logger.ZapLogger
}

// Registry creates sessions on first use and disposes them explicitly or
// once they have been idle for long enough.
type Registry struct {
	cfg       RegistryConfig
	resolvers map[ordering.Kind]Resolver

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(cfg RegistryConfig, resolvers map[ordering.Kind]Resolver) *Registry {
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	return &Registry{
		cfg:       cfg,
		resolvers: resolvers,
		sessions:  make(map[string]*Session),
	}
}

// Get returns the session for id, creating it if needed.
func (r *Registry) Get(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		s = &Session{ID: id, timers: make(map[ordering.Kind]*Timer, len(r.resolvers))}
		for kind, res := range r.resolvers {
			s.timers[kind] = NewTimer(TimerConfig{
				Kind:      kind,
				SessionID: id,
				Window:    r.cfg.Window,
				Clock:     r.cfg.Clock,
				Resolver:  res,
				Store:     r.cfg.Store,
				Logger:    r.cfg.Logger,
			})
		}
		r.sessions[id] = s
		r.cfg.Logger.Debug("undo session created", zap.String("session", id))
	}
	s.touch(r.cfg.Clock.Now())
	return s
}

// Dispose stops the session's timers and forgets it.
func (r *Registry) Dispose(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.close()
	}
	return ok
}

// DisposeIdle removes sessions unused for maxIdle that have nothing pending.
func (r *Registry) DisposeIdle(maxIdle time.Duration) int {
	cutoff := r.cfg.Clock.Now().Add(-maxIdle)

	r.mu.Lock()
	var stale []*Session
	for id, s := range r.sessions {
		if s.seen().Before(cutoff) && s.idle() {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.close()
	}
	return len(stale)
}

// Release drops ids of kind from the pending batch of every session. It is
// called when entities are restored or purged outside the undo flow, so no
// timer later acts on rows it no longer owns.
func (r *Registry) Release(ctx context.Context, kind ordering.Kind, ids []int64) {
	if r == nil || len(ids) == 0 {
		return
	}
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		if t := s.Timer(kind); t != nil {
			t.Release(ctx, ids)
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close disposes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
}
