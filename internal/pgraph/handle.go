package pgraph

import "fmt"

// VertexID is a generational handle to a vertex. The zero value never
// resolves.
type VertexID struct {
	slot uint32
	gen  uint32
}

// IsZero reports whether id is the unassigned handle.
func (id VertexID) IsZero() bool { return id.gen == 0 }

func (id VertexID) String() string { return fmt.Sprintf("v%d.%d", id.slot, id.gen) }

// EdgeID is a generational handle to an edge. The zero value never
// resolves and stands for "no nearest edge" in the sample cache.
type EdgeID struct {
	slot uint32
	gen  uint32
}

// IsZero reports whether id is the unassigned handle.
func (id EdgeID) IsZero() bool { return id.gen == 0 }

func (id EdgeID) String() string { return fmt.Sprintf("e%d.%d", id.slot, id.gen) }

// arena stores elements in reusable slots. Each reuse bumps the slot
// generation so handles to earlier occupants stop resolving.
type arena[T any] struct {
	slots []arenaSlot[T]
	free  []uint32
	live  int
}

type arenaSlot[T any] struct {
	gen uint32
	val *T
}

func (a *arena[T]) insert(v *T) (slot, gen uint32) {
	if n := len(a.free); n > 0 {
		slot = a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[slot]
		s.gen++
		s.val = v
		a.live++
		return slot, s.gen
	}
	a.slots = append(a.slots, arenaSlot[T]{gen: 1, val: v})
	a.live++
	return uint32(len(a.slots) - 1), 1
}

func (a *arena[T]) get(slot, gen uint32) *T {
	if gen == 0 || int(slot) >= len(a.slots) {
		return nil
	}
	s := a.slots[slot]
	if s.gen != gen {
		return nil
	}
	return s.val
}

func (a *arena[T]) remove(slot, gen uint32) bool {
	if a.get(slot, gen) == nil {
		return false
	}
	a.slots[slot].val = nil
	a.free = append(a.free, slot)
	a.live--
	return true
}

func (a *arena[T]) len() int { return a.live }

// each visits live elements in slot order.
func (a *arena[T]) each(fn func(slot, gen uint32, v *T)) {
	for i := range a.slots {
		s := a.slots[i]
		if s.val != nil {
			fn(uint32(i), s.gen, s.val)
		}
	}
}
