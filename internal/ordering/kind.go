// Package ordering keeps sibling sequences contiguous across create, delete,
// reorder and restore, and implements soft-delete with referential guards.
// It is generic over entity kind; each kind plugs in a Descriptor.
package ordering

import (
	"context"
	"strconv"
	"time"
)

type Kind string

const (
	KindCategory Kind = "category"
	KindProduct  Kind = "product"
	KindTable    Kind = "table"
)

// Plural is used in user-facing messages and routes.
func (k Kind) Plural() string {
	switch k {
	case KindCategory:
		return "categories"
	default:
		return string(k) + "s"
	}
}

// Scope identifies one sibling set sharing an order sequence. The zero value
// is the global scope (categories, tables) or, for products, the
// uncategorized set.
type Scope struct {
	ParentID int64
	Valid    bool
}

func Within(parentID *int64) Scope {
	if parentID == nil {
		return Scope{}
	}
	return Scope{ParentID: *parentID, Valid: true}
}

func (s Scope) Ptr() *int64 {
	if !s.Valid {
		return nil
	}
	id := s.ParentID
	return &id
}

func (s Scope) String() string {
	if !s.Valid {
		return "root"
	}
	return strconv.FormatInt(s.ParentID, 10)
}

type Entity interface {
	EntityID() int64
	EntityName() string
	EntityScope() Scope
	Position() int
	Deleted() bool
	// DeletionTime is the delete marker; zero for live rows.
	DeletionTime() time.Time
}

type Assignment struct {
	ID    int64
	Order int
}

// Position is a requested placement coming from a reorder request.
type Position struct {
	ID    int64 `json:"id"`
	Order int   `json:"order"`
}

// Store is the persistence contract each kind's repository fulfils.
type Store[T Entity] interface {
	// FindByIDs returns rows regardless of delete state, in no particular order.
	FindByIDs(ctx context.Context, ids []int64) ([]T, error)
	// FindActive returns non-deleted rows of a scope ordered by order, id.
	FindActive(ctx context.Context, scope Scope) ([]T, error)
	SoftDelete(ctx context.Context, ids []int64, at time.Time) error
	Restore(ctx context.Context, ids []int64) error
	// Purge hard-deletes rows that are soft-deleted; live rows are untouched.
	Purge(ctx context.Context, ids []int64) error
	// ApplyOrder writes every assignment in one transaction.
	ApplyOrder(ctx context.Context, assignments []Assignment) error
}

// Blocker describes why a guard refused an entity.
type Blocker struct {
	ID     int64
	Name   string
	Reason string
}

// Guard inspects all candidates before any mutation and returns every blocker.
type Guard[T Entity] func(ctx context.Context, targets []T) ([]Blocker, error)

type Descriptor[T Entity] struct {
	Kind         Kind
	Store        Store[T]
	DeleteGuard  Guard[T]
	RestoreGuard Guard[T]
}
