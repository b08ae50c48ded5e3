package ordering

import (
	"sort"
)

// Sequence assigns order = index over items and returns the assignments for
// rows whose stored order differs. An already contiguous sequence yields none.
func Sequence[T Entity](items []T) []Assignment {
	var out []Assignment
	for i, it := range items {
		if it.Position() != i {
			out = append(out, Assignment{ID: it.EntityID(), Order: i})
		}
	}
	return out
}

// Arrange places requested entities at their requested slots and fills the
// remaining slots with the other entities in their current relative order.
// active must be in current display order. Requested slots past the end are
// clamped; ties keep request order.
func Arrange[T Entity](active []T, requested []Position) []T {
	if len(requested) == 0 {
		return active
	}

	type pinned struct {
		item  T
		slot  int
		index int
	}

	slots := make(map[int64]int, len(requested))
	for i, p := range requested {
		if _, seen := slots[p.ID]; !seen {
			slots[p.ID] = i
		}
	}

	var listed []pinned
	var rest []T
	for _, it := range active {
		if idx, ok := slots[it.EntityID()]; ok {
			listed = append(listed, pinned{item: it, slot: requested[idx].Order, index: idx})
			continue
		}
		rest = append(rest, it)
	}
	sort.SliceStable(listed, func(a, b int) bool {
		if listed[a].slot != listed[b].slot {
			return listed[a].slot < listed[b].slot
		}
		return listed[a].index < listed[b].index
	})

	out := make([]T, 0, len(active))
	for pos := 0; pos < len(active); pos++ {
		if len(listed) > 0 && (listed[0].slot <= pos || len(rest) == 0) {
			out = append(out, listed[0].item)
			listed = listed[1:]
			continue
		}
		out = append(out, rest[0])
		rest = rest[1:]
	}
	return out
}

// AppendRestored keeps the entities that were already live in their current
// order and appends the restored ones in batch order.
func AppendRestored[T Entity](active []T, restored []int64) []T {
	rank := make(map[int64]int, len(restored))
	for i, id := range restored {
		rank[id] = i
	}

	out := make([]T, 0, len(active))
	tail := make([]T, len(restored))
	present := make([]bool, len(restored))
	for _, it := range active {
		if i, ok := rank[it.EntityID()]; ok {
			tail[i] = it
			present[i] = true
			continue
		}
		out = append(out, it)
	}
	for i, it := range tail {
		if present[i] {
			out = append(out, it)
		}
	}
	return out
}

// Contiguous reports whether the orders of items are exactly {0..N-1}.
func Contiguous[T Entity](items []T) bool {
	seen := make([]bool, len(items))
	for _, it := range items {
		p := it.Position()
		if p < 0 || p >= len(items) || seen[p] {
			return false
		}
		seen[p] = true
	}
	return true
}

func groupByScope[T Entity](items []T) (map[Scope][]T, []Scope) {
	groups := make(map[Scope][]T)
	var order []Scope
	for _, it := range items {
		s := it.EntityScope()
		if _, ok := groups[s]; !ok {
			order = append(order, s)
		}
		groups[s] = append(groups[s], it)
	}
	return groups, order
}

func dedupe(in []int64) []int64 {
	seen := make(map[int64]struct{}, len(in))
	out := make([]int64, 0, len(in))
	for _, id := range in {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
