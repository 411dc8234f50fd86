package model

import "fmt"

// UnitID identifies a unit inside the unit collaborator (its object id).
type UnitID uint32

// UnitHandle is a validity-checked reference to a managed unit.
// It encodes an arena slot and the generation the slot had when the
// unit was allocated; a stale generation means the unit is gone.
type UnitHandle struct {
	slot       uint32
	generation uint32
}

// Slot returns the arena slot of the handle.
func (h UnitHandle) Slot() uint32 {
	return h.slot
}

// Generation returns the generation counter of the handle.
func (h UnitHandle) Generation() uint32 {
	return h.generation
}

// IsZero reports whether the handle was never issued.
func (h UnitHandle) IsZero() bool {
	return h.generation == 0
}

func (h UnitHandle) String() string {
	return fmt.Sprintf("unit(%d:%d)", h.slot, h.generation)
}

// UnitRecord is the arena payload of a managed unit.
type UnitRecord struct {
	UnitID     UnitID
	PointID    int64
	TemplateID int32
	Location   Location
}

type unitSlot struct {
	generation uint32
	alive      bool
	record     UnitRecord
}

// UnitArena stores unit records addressed by generational handles.
// Freed slots are recycled; recycling bumps the generation so old
// handles can never observe the new occupant.
//
// Not safe for concurrent use. The owner serialises access.
type UnitArena struct {
	slots []unitSlot
	free  []uint32
	alive int
}

// NewUnitArena creates an empty arena with room for capacity units.
func NewUnitArena(capacity int) *UnitArena {
	return &UnitArena{
		slots: make([]unitSlot, 0, capacity),
	}
}

// Allocate stores rec and returns its handle.
func (a *UnitArena) Allocate(rec UnitRecord) UnitHandle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, unitSlot{})
	}

	s := &a.slots[idx]
	s.generation++
	s.alive = true
	s.record = rec
	a.alive++

	return UnitHandle{slot: idx, generation: s.generation}
}

// Alive reports whether h still refers to a live unit.
func (a *UnitArena) Alive(h UnitHandle) bool {
	if h.IsZero() || int(h.slot) >= len(a.slots) {
		return false
	}
	s := &a.slots[h.slot]
	return s.alive && s.generation == h.generation
}

// Get returns the record for a live handle.
func (a *UnitArena) Get(h UnitHandle) (UnitRecord, bool) {
	if !a.Alive(h) {
		return UnitRecord{}, false
	}
	return a.slots[h.slot].record, true
}

// Kill invalidates h. It returns true only for the call that actually
// invalidated the unit; later calls with the same handle are no-ops.
func (a *UnitArena) Kill(h UnitHandle) bool {
	if !a.Alive(h) {
		return false
	}
	s := &a.slots[h.slot]
	s.alive = false
	s.record = UnitRecord{}
	a.free = append(a.free, h.slot)
	a.alive--
	return true
}

// Len returns the number of live units.
func (a *UnitArena) Len() int {
	return a.alive
}

// Each calls fn for every live unit until fn returns false.
func (a *UnitArena) Each(fn func(UnitHandle, UnitRecord) bool) {
	for i := range a.slots {
		s := &a.slots[i]
		if !s.alive {
			continue
		}
		if !fn(UnitHandle{slot: uint32(i), generation: s.generation}, s.record) {
			return
		}
	}
}
