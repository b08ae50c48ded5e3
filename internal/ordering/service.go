package ordering

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-qrmenu/internal/apperr"
	"github.com/fekuna/omnipos-qrmenu/internal/events"
	"github.com/fekuna/omnipos-qrmenu/internal/logger"
	"go.uber.org/zap"
)

// Service is the only writer of order values. Each call writes orders
// through a single ApplyOrder transaction per invocation.
type Service[T Entity] struct {
	desc   Descriptor[T]
	events events.Publisher
	logger logger.ZapLogger
	now    func() time.Time
}

func NewService[T Entity](desc Descriptor[T], pub events.Publisher, log logger.ZapLogger) *Service[T] {
	if pub == nil {
		pub = events.Noop()
	}
	return &Service[T]{
		desc:   desc,
		events: pub,
		logger: log.With(zap.String("kind", string(desc.Kind))),
		now:    time.Now,
	}
}

func (s *Service[T]) Kind() Kind {
	return s.desc.Kind
}

// Resequence renumbers the active entities of scope to 0..N-1.
func (s *Service[T]) Resequence(ctx context.Context, scope Scope) error {
	active, err := s.desc.Store.FindActive(ctx, scope)
	if err != nil {
		return fmt.Errorf("loading %s scope %s: %w", s.desc.Kind.Plural(), scope, err)
	}
	return s.apply(ctx, Sequence(active))
}

// Reorder applies an explicit full or partial ordering. Positions may span
// several scopes; each scope is renumbered independently and every scope is
// written in the same transaction.
func (s *Service[T]) Reorder(ctx context.Context, positions []Position) error {
	if len(positions) == 0 {
		return apperr.Validation("no %s to reorder", s.desc.Kind.Plural())
	}

	requested := make([]int64, 0, len(positions))
	seen := make(map[int64]struct{}, len(positions))
	for _, p := range positions {
		if _, dup := seen[p.ID]; dup {
			return apperr.Validation("%s %d listed more than once", s.desc.Kind, p.ID)
		}
		if p.Order < 0 {
			return apperr.Validation("%s %d has a negative order", s.desc.Kind, p.ID)
		}
		seen[p.ID] = struct{}{}
		requested = append(requested, p.ID)
	}

	targets, err := s.loadLive(ctx, requested)
	if err != nil {
		return err
	}

	byScope := make(map[Scope][]Position)
	var scopes []Scope
	scopeOf := make(map[int64]Scope, len(targets))
	for _, t := range targets {
		scopeOf[t.EntityID()] = t.EntityScope()
	}
	for _, p := range positions {
		sc := scopeOf[p.ID]
		if _, ok := byScope[sc]; !ok {
			scopes = append(scopes, sc)
		}
		byScope[sc] = append(byScope[sc], p)
	}

	var all []Assignment
	for _, sc := range scopes {
		active, err := s.desc.Store.FindActive(ctx, sc)
		if err != nil {
			return fmt.Errorf("loading %s scope %s: %w", s.desc.Kind.Plural(), sc, err)
		}
		all = append(all, Sequence(Arrange(active, byScope[sc]))...)
	}

	if err := s.apply(ctx, all); err != nil {
		return err
	}
	s.publish(ctx, events.TypeReordered, requested)
	return nil
}

// MoveTo places one live entity at position within its scope.
func (s *Service[T]) MoveTo(ctx context.Context, id int64, position int) error {
	if position < 0 {
		return apperr.Validation("order must not be negative")
	}
	targets, err := s.loadLive(ctx, []int64{id})
	if err != nil {
		return err
	}
	active, err := s.desc.Store.FindActive(ctx, targets[0].EntityScope())
	if err != nil {
		return fmt.Errorf("loading %s siblings: %w", s.desc.Kind, err)
	}
	return s.apply(ctx, Sequence(Arrange(active, []Position{{ID: id, Order: position}})))
}

// Delete soft-deletes a single entity. See BulkDelete.
func (s *Service[T]) Delete(ctx context.Context, id int64) (T, error) {
	deleted, err := s.BulkDelete(ctx, []int64{id})
	if err != nil {
		var zero T
		return zero, err
	}
	return deleted[0], nil
}

// BulkDelete validates every candidate before mutating anything: if one is
// missing or blocked by the delete guard, none is deleted. After the delete,
// each affected scope is resequenced once; a resequence failure leaves a gap
// that the next successful reorder heals and is not reported to the caller.
func (s *Service[T]) BulkDelete(ctx context.Context, ids []int64) ([]T, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, apperr.Validation("no %s selected", s.desc.Kind.Plural())
	}

	targets, err := s.loadLive(ctx, ids)
	if err != nil {
		return nil, err
	}

	if s.desc.DeleteGuard != nil {
		blockers, err := s.desc.DeleteGuard(ctx, targets)
		if err != nil {
			return nil, fmt.Errorf("checking %s delete guard: %w", s.desc.Kind, err)
		}
		if len(blockers) > 0 {
			return nil, s.blocked("delete", blockers)
		}
	}

	// postgres keeps microseconds; the marker must compare equal once read back
	at := s.now().UTC().Truncate(time.Microsecond)
	if err := s.desc.Store.SoftDelete(ctx, ids, at); err != nil {
		return nil, s.storeErr("delete", err)
	}

	_, scopes := groupByScope(targets)
	for _, sc := range scopes {
		if err := s.Resequence(ctx, sc); err != nil {
			s.logger.Warn("resequence after delete failed",
				zap.String("scope", sc.String()), zap.Int64s("ids", ids), zap.Error(err))
		}
	}

	s.publish(ctx, events.TypeDeleted, ids)
	return s.reload(ctx, ids, targets), nil
}

// Restore clears the delete marker and appends the restored entities after
// the current active set of their scope. Ids that are already live are a no-op.
func (s *Service[T]) Restore(ctx context.Context, ids []int64) ([]T, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, apperr.Validation("no %s to restore", s.desc.Kind.Plural())
	}

	found, err := s.desc.Store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", s.desc.Kind.Plural(), err)
	}
	if missing := missingIDs(ids, found); len(missing) > 0 {
		return nil, apperr.NotFound("%s not found: %s", s.desc.Kind.Plural(), joinIDs(missing))
	}

	var pending []T
	for _, it := range found {
		if it.Deleted() {
			pending = append(pending, it)
		}
	}
	if len(pending) == 0 {
		return found, nil
	}

	if s.desc.RestoreGuard != nil {
		blockers, err := s.desc.RestoreGuard(ctx, pending)
		if err != nil {
			return nil, fmt.Errorf("checking %s restore guard: %w", s.desc.Kind, err)
		}
		if len(blockers) > 0 {
			return nil, s.blocked("restore", blockers)
		}
	}

	restoring := restoreOrder(ids, pending)
	if err := s.desc.Store.Restore(ctx, restoring); err != nil {
		return nil, s.storeErr("restore", err)
	}

	groups, scopes := groupByScope(pending)
	for _, sc := range scopes {
		if err := s.appendRestored(ctx, sc, restoreOrder(ids, groups[sc])); err != nil {
			s.logger.Warn("resequence after restore failed",
				zap.String("scope", sc.String()), zap.Int64s("ids", restoring), zap.Error(err))
		}
	}

	s.publish(ctx, events.TypeRestored, restoring)
	return s.reload(ctx, ids, found), nil
}

// Purge permanently removes soft-deleted entities. Live entities are refused.
func (s *Service[T]) Purge(ctx context.Context, ids []int64) error {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return apperr.Validation("no %s to delete", s.desc.Kind.Plural())
	}

	found, err := s.desc.Store.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("loading %s: %w", s.desc.Kind.Plural(), err)
	}
	if missing := missingIDs(ids, found); len(missing) > 0 {
		return apperr.NotFound("%s not found: %s", s.desc.Kind.Plural(), joinIDs(missing))
	}

	var live []string
	for _, it := range found {
		if !it.Deleted() {
			live = append(live, it.EntityName())
		}
	}
	if len(live) > 0 {
		return apperr.Conflict(
			fmt.Sprintf("cannot permanently delete live %s, delete them first", s.desc.Kind.Plural()),
			live...,
		)
	}

	return s.purge(ctx, ids)
}

// PurgeBatch finalizes an undo batch. Only rows still carrying the batch's
// delete marker are removed: a row restored and deleted again since belongs
// to a newer batch. A zero marker matches every soft-deleted row.
func (s *Service[T]) PurgeBatch(ctx context.Context, ids []int64, deletedAt time.Time) error {
	marked, err := s.marked(ctx, ids, deletedAt)
	if err != nil {
		return err
	}
	if len(marked) == 0 {
		return nil
	}
	return s.purge(ctx, marked)
}

// RestoreBatch is the undo timer's view of Restore, limited to the rows the
// batch deleted.
func (s *Service[T]) RestoreBatch(ctx context.Context, ids []int64, deletedAt time.Time) error {
	marked, err := s.marked(ctx, ids, deletedAt)
	if err != nil {
		return err
	}
	if len(marked) == 0 {
		return nil
	}
	_, err = s.Restore(ctx, marked)
	return err
}

func (s *Service[T]) purge(ctx context.Context, ids []int64) error {
	if err := s.desc.Store.Purge(ctx, ids); err != nil {
		return s.storeErr("purge", err)
	}
	s.publish(ctx, events.TypePurged, ids)
	return nil
}

// marked returns the ids, in request order, that are soft-deleted with the
// given marker. Missing rows are skipped.
func (s *Service[T]) marked(ctx context.Context, ids []int64, deletedAt time.Time) ([]int64, error) {
	found, err := s.desc.Store.FindByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", s.desc.Kind.Plural(), err)
	}
	var hits []T
	for _, it := range found {
		if !it.Deleted() {
			continue
		}
		if deletedAt.IsZero() || it.DeletionTime().Equal(deletedAt) {
			hits = append(hits, it)
		}
	}
	return restoreOrder(ids, hits), nil
}

func (s *Service[T]) appendRestored(ctx context.Context, scope Scope, restored []int64) error {
	active, err := s.desc.Store.FindActive(ctx, scope)
	if err != nil {
		return fmt.Errorf("loading %s scope %s: %w", s.desc.Kind.Plural(), scope, err)
	}
	return s.apply(ctx, Sequence(AppendRestored(active, restored)))
}

func (s *Service[T]) apply(ctx context.Context, assignments []Assignment) error {
	if len(assignments) == 0 {
		return nil
	}
	if err := s.desc.Store.ApplyOrder(ctx, assignments); err != nil {
		return s.storeErr("reorder", err)
	}
	return nil
}

// loadLive returns the requested entities, failing with NotFound when any is
// missing or already deleted.
func (s *Service[T]) loadLive(ctx context.Context, ids []int64) ([]T, error) {
	found, err := s.desc.Store.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", s.desc.Kind.Plural(), err)
	}

	live := make(map[int64]T, len(found))
	for _, it := range found {
		if !it.Deleted() {
			live[it.EntityID()] = it
		}
	}

	out := make([]T, 0, len(ids))
	var missing []int64
	for _, id := range ids {
		it, ok := live[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		out = append(out, it)
	}
	if len(missing) > 0 {
		if len(ids) == 1 {
			return nil, apperr.NotFound("%s not found", s.desc.Kind)
		}
		return nil, apperr.NotFound("%s not found: %s", s.desc.Kind.Plural(), joinIDs(missing))
	}
	return out, nil
}

func (s *Service[T]) reload(ctx context.Context, ids []int64, fallback []T) []T {
	fresh, err := s.desc.Store.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("reloading after mutation failed", zap.Int64s("ids", ids), zap.Error(err))
		return fallback
	}
	byID := make(map[int64]T, len(fresh))
	for _, it := range fresh {
		byID[it.EntityID()] = it
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			out = append(out, it)
		}
	}
	return out
}

func (s *Service[T]) blocked(action string, blockers []Blocker) error {
	details := make([]string, len(blockers))
	for i, b := range blockers {
		details[i] = b.Reason
	}
	if len(blockers) == 1 {
		return apperr.Conflict(blockers[0].Reason)
	}
	names := make([]string, len(blockers))
	for i, b := range blockers {
		names[i] = b.Name
	}
	return apperr.Conflict(
		fmt.Sprintf("cannot %s %s: %s", action, s.desc.Kind.Plural(), strings.Join(names, ", ")),
		details...,
	)
}

func (s *Service[T]) storeErr(action string, err error) error {
	if apperr.KindOf(err) != apperr.KindInternal {
		return err
	}
	return apperr.Transaction(fmt.Sprintf("failed to %s %s", action, s.desc.Kind.Plural()), err)
}

func (s *Service[T]) publish(ctx context.Context, t events.Type, ids []int64) {
	if err := s.events.Publish(ctx, events.New(t, string(s.desc.Kind), ids...)); err != nil {
		s.logger.Warn("failed to publish event", zap.String("type", string(t)), zap.Error(err))
	}
}

func missingIDs[T Entity](want []int64, found []T) []int64 {
	have := make(map[int64]struct{}, len(found))
	for _, it := range found {
		have[it.EntityID()] = struct{}{}
	}
	var out []int64
	for _, id := range want {
		if _, ok := have[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// restoreOrder returns the ids of items following the order of requested.
func restoreOrder[T Entity](requested []int64, items []T) []int64 {
	in := make(map[int64]struct{}, len(items))
	for _, it := range items {
		in[it.EntityID()] = struct{}{}
	}
	out := make([]int64, 0, len(items))
	for _, id := range requested {
		if _, ok := in[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}
