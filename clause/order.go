package clause

import (
	"errors"
	"fmt"
)

// Ordering is the user-adjustable sequence of active clauses. After
// reconciliation it is a permutation of the active set with the pinned
// clauses at both ends.
type Ordering []ID

// Direction is the way Move shifts a clause.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ErrMoveRejected is returned by Move when the move is not allowed. The
// ordering is left unchanged.
var ErrMoveRejected = errors.New("move rejected")

// OrderingFromStrings converts persisted group ids into an Ordering. Unknown
// ids are kept; Reconcile drops them.
func OrderingFromStrings(ids []string) Ordering {
	if len(ids) == 0 {
		return nil
	}
	o := make(Ordering, len(ids))
	for i, s := range ids {
		o[i] = ID(s)
	}
	return o
}

// Strings converts the ordering into persisted group ids.
func (o Ordering) Strings() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o))
	for i, id := range o {
		out[i] = string(id)
	}
	return out
}

// Equal reports whether two orderings hold the same ids in the same order.
func (o Ordering) Equal(other Ordering) bool {
	if len(o) != len(other) {
		return false
	}
	for i := range o {
		if o[i] != other[i] {
			return false
		}
	}
	return true
}

// Reconcile merges the previous ordering with the current active set.
//
// When prev is already a well-formed permutation of active it is returned
// as is (re-clamped). Otherwise it is rebuilt: ids of prev still active keep
// their relative order, newly active ids follow in declaration order, and
// the pinned clauses wrap the result. Reconcile is idempotent and never
// mutates its inputs.
func Reconcile(prev Ordering, active []ID) Ordering {
	if matchesActive(prev, active) {
		return clamp(prev)
	}

	activeSet := make(map[ID]bool, len(active))
	for _, id := range active {
		activeSet[id] = true
	}

	middle := make(Ordering, 0, len(active))
	seen := make(map[ID]bool, len(active))
	for _, id := range prev {
		if !activeSet[id] || IsFixed(id) || seen[id] {
			continue
		}
		seen[id] = true
		middle = append(middle, id)
	}
	for _, id := range active {
		if IsFixed(id) || seen[id] {
			continue
		}
		seen[id] = true
		middle = append(middle, id)
	}

	out := make(Ordering, 0, len(middle)+2)
	out = append(out, firstID)
	out = append(out, middle...)
	return append(out, lastID)
}

// matchesActive reports whether prev is a duplicate-free permutation of
// active with the pinned clauses at its ends.
func matchesActive(prev Ordering, active []ID) bool {
	if len(prev) == 0 || len(prev) != len(active) {
		return false
	}
	if prev[0] != firstID || prev[len(prev)-1] != lastID {
		return false
	}
	want := make(map[ID]bool, len(active))
	for _, id := range active {
		want[id] = true
	}
	seen := make(map[ID]bool, len(prev))
	for _, id := range prev {
		if !want[id] || seen[id] {
			return false
		}
		seen[id] = true
	}
	return true
}

// clamp returns a copy of o with the pinned clauses moved to their ends.
func clamp(o Ordering) Ordering {
	out := make(Ordering, 0, len(o))
	hasFirst, hasLast := false, false
	for _, id := range o {
		switch id {
		case firstID:
			hasFirst = true
		case lastID:
			hasLast = true
		default:
			out = append(out, id)
		}
	}
	if hasFirst {
		out = append(Ordering{firstID}, out...)
	}
	if hasLast {
		out = append(out, lastID)
	}
	return out
}

// Move swaps the clause at index with its neighbour in direction. It is
// rejected when either index is out of bounds or when the clause or its
// neighbour is pinned.
func Move(o Ordering, index int, dir Direction) (Ordering, error) {
	var target int
	switch dir {
	case Up:
		target = index - 1
	case Down:
		target = index + 1
	default:
		return o, fmt.Errorf("%w: unknown direction %q", ErrMoveRejected, dir)
	}

	if index < 0 || index >= len(o) {
		return o, fmt.Errorf("%w: index %d out of range", ErrMoveRejected, index)
	}
	if target < 0 || target >= len(o) {
		return o, fmt.Errorf("%w: cannot move %s %s from position %d", ErrMoveRejected, o[index], dir, index)
	}
	if IsFixed(o[index]) {
		return o, fmt.Errorf("%w: %s is pinned", ErrMoveRejected, o[index])
	}
	if IsFixed(o[target]) {
		return o, fmt.Errorf("%w: %s cannot pass pinned %s", ErrMoveRejected, o[index], o[target])
	}

	out := make(Ordering, len(o))
	copy(out, o)
	out[index], out[target] = out[target], out[index]
	return out, nil
}
