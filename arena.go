package spatial

import "fmt"

// GroupHandle is a stable reference to a SpatialGroup in its session's group
// table. A handle whose group was destroyed no longer resolves; lookups
// report ErrStaleHandle instead of returning a dangling group.
//
// The zero GroupHandle is invalid.
type GroupHandle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the zero handle.
func (h GroupHandle) IsZero() bool { return h.gen == 0 }

// Index returns the table slot of the handle.
func (h GroupHandle) Index() int { return int(h.index) }

// String returns "index:generation".
func (h GroupHandle) String() string { return fmt.Sprintf("%d:%d", h.index, h.gen) }

type groupSlot struct {
	group *SpatialGroup
	gen   uint32
}

// groupTable is an arena of groups addressed by GroupHandle. Freed slots are
// reused with a bumped generation.
type groupTable struct {
	slots []groupSlot
	free  []uint32
	live  int
}

func (t *groupTable) insert(g *SpatialGroup) GroupHandle {
	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		idx = uint32(len(t.slots))
		t.slots = append(t.slots, groupSlot{})
	}
	s := &t.slots[idx]
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	s.group = g
	t.live++
	return GroupHandle{index: idx, gen: s.gen}
}

func (t *groupTable) get(h GroupHandle) *SpatialGroup {
	if h.IsZero() || int(h.index) >= len(t.slots) {
		return nil
	}
	s := &t.slots[h.index]
	if s.gen != h.gen {
		return nil
	}
	return s.group
}

// at returns the live group in slot i, if any.
func (t *groupTable) at(i int) *SpatialGroup {
	if i < 0 || i >= len(t.slots) {
		return nil
	}
	return t.slots[i].group
}

func (t *groupTable) remove(h GroupHandle) bool {
	if t.get(h) == nil {
		return false
	}
	s := &t.slots[h.index]
	s.group = nil
	s.gen++
	t.free = append(t.free, h.index)
	t.live--
	return true
}

func (t *groupTable) liveCount() int { return t.live }

func (t *groupTable) slotCount() int { return len(t.slots) }
