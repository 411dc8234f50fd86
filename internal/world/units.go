package world

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/udisondev/wavekeeper/internal/model"
)

// ErrOutOfBounds is returned when a unit is placed outside the world.
var ErrOutOfBounds = errors.New("location out of bounds")

// Unit is a materialised hostile unit.
type Unit struct {
	ID         model.UnitID
	TemplateID int32
	Location   model.Location
	SpawnedAt  time.Time
}

// Units is the in-memory unit collaborator: it creates units for the
// dispatcher, keeps them on the terrain and reports deaths through the
// registered death handler. Safe for concurrent use.
type Units struct {
	mu      sync.Mutex
	ids     *IDGenerator
	terrain *Terrain
	clock   func() time.Time
	units   map[model.UnitID]Unit
	onDeath func(model.UnitID)
}

// NewUnits creates an empty unit registry. terrain may be nil.
func NewUnits(ids *IDGenerator, terrain *Terrain) *Units {
	return &Units{
		ids:     ids,
		terrain: terrain,
		clock:   time.Now,
		units:   make(map[model.UnitID]Unit),
	}
}

// SetDeathHandler registers the callback invoked after Kill.
func (u *Units) SetDeathHandler(fn func(model.UnitID)) {
	u.mu.Lock()
	u.onDeath = fn
	u.mu.Unlock()
}

// SpawnUnitAt creates a unit of templateID at loc.
func (u *Units) SpawnUnitAt(templateID int32, loc model.Location) (model.UnitID, error) {
	if u.terrain != nil && !u.terrain.Bounds().Contains(loc.X, loc.Y) {
		return 0, fmt.Errorf("spawning template %d at %d,%d: %w", templateID, loc.X, loc.Y, ErrOutOfBounds)
	}

	id := u.ids.NextUnitID()
	unit := Unit{ID: id, TemplateID: templateID, Location: loc, SpawnedAt: u.clock()}

	u.mu.Lock()
	u.units[id] = unit
	u.mu.Unlock()

	if u.terrain != nil {
		u.terrain.Occupy(id, loc)
	}
	return id, nil
}

// Despawn removes a unit without reporting a death.
func (u *Units) Despawn(id model.UnitID) {
	u.remove(id)
}

// Kill removes a unit and reports its death. Returns false for unknown
// units, so a unit dies at most once.
func (u *Units) Kill(id model.UnitID) bool {
	if !u.remove(id) {
		return false
	}

	u.mu.Lock()
	onDeath := u.onDeath
	u.mu.Unlock()

	if onDeath != nil {
		onDeath(id)
	}
	return true
}

func (u *Units) remove(id model.UnitID) bool {
	u.mu.Lock()
	unit, ok := u.units[id]
	if ok {
		delete(u.units, id)
	}
	u.mu.Unlock()

	if !ok {
		return false
	}
	if u.terrain != nil {
		u.terrain.Vacate(id, unit.Location)
	}
	slog.Debug("unit removed", "unitID", id, "templateID", unit.TemplateID)
	return true
}

// Get returns a unit by ID.
func (u *Units) Get(id model.UnitID) (Unit, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	unit, ok := u.units[id]
	return unit, ok
}

// Count returns the number of units in the world.
func (u *Units) Count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.units)
}

// IDs returns the IDs of all units in ascending order.
func (u *Units) IDs() []model.UnitID {
	u.mu.Lock()
	defer u.mu.Unlock()
	return slices.Sorted(maps.Keys(u.units))
}
