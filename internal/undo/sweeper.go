package undo

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-qrmenu/internal/cache"
	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	"github.com/fekuna/omnipos-qrmenu/internal/ordering"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sweepLockKey = "lock:qrmenu:undo:sweep"

type SweeperConfig struct {
	Interval time.Duration
	// Grace is added to a batch deadline before the sweeper claims it, so
	// that live timers get the first chance to finalize.
	Grace time.Duration
	// SessionIdleTTL disposes registry sessions unused for this long; zero keeps them.
	SessionIdleTTL time.Duration
	Clock          Clock
	// Lock, when set, keeps several replicas from sweeping at once.
	Lock *cache.RedisClient
}

// Sweeper purges batches that no timer finalized.
type Sweeper struct {
	cfg       SweeperConfig
	store     PendingStore
	resolvers map[ordering.Kind]Resolver
	registry  *Registry
	logger    logger.ZapLogger
}

func NewSweeper(cfg SweeperConfig, store PendingStore, resolvers map[ordering.Kind]Resolver, registry *Registry, log logger.ZapLogger) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock()
	}
	return &Sweeper{
		cfg:       cfg,
		store:     store,
		resolvers: resolvers,
		registry:  registry,
		logger:    log,
	}
}

// Start sweeps on every interval until ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting undo sweeper", zap.Duration("interval", s.cfg.Interval))
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping undo sweeper")
			return
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("undo sweep failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce disposes idle sessions and purges every overdue batch. It returns
// the number of batches purged.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	if s.cfg.Lock != nil {
		token := uuid.NewString()
		ok, err := s.cfg.Lock.AcquireLock(ctx, sweepLockKey, token, s.cfg.Interval)
		if err != nil {
			return 0, err
		}
		if !ok {
			s.logger.Debug("another replica holds the sweep lock")
			return 0, nil
		}
		defer func() {
			if err := s.cfg.Lock.ReleaseLock(context.Background(), sweepLockKey, token); err != nil {
				s.logger.Warn("failed to release sweep lock", zap.Error(err))
			}
		}()
	}

	if s.registry != nil && s.cfg.SessionIdleTTL > 0 {
		if n := s.registry.DisposeIdle(s.cfg.SessionIdleTTL); n > 0 {
			s.logger.Info("disposed idle undo sessions", zap.Int("count", n))
		}
	}

	overdue, err := s.store.Expired(ctx, s.cfg.Clock.Now().Add(-s.cfg.Grace))
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, b := range overdue {
		res, ok := s.resolvers[b.Kind]
		if !ok {
			s.logger.Warn("no resolver for undo batch", zap.String("batch", b.ID), zap.String("kind", string(b.Kind)))
			continue
		}
		if err := res.PurgeBatch(ctx, b.IDs, b.DeletedAt); err != nil {
			s.logger.Error("failed to purge orphaned undo batch",
				zap.String("batch", b.ID), zap.Int64s("ids", b.IDs), zap.Error(err))
			continue
		}
		if err := s.store.Delete(ctx, b.ID); err != nil {
			s.logger.Warn("failed to drop swept undo batch", zap.String("batch", b.ID), zap.Error(err))
		}
		purged++
		s.logger.Info("purged orphaned undo batch",
			zap.String("batch", b.ID), zap.String("session", b.SessionID), zap.Int64s("ids", b.IDs))
	}
	return purged, nil
}
