package spawn

import (
	"time"

	"github.com/udisondev/wavekeeper/internal/model"
)

// UnitFactory materialises units. Implemented by the unit/AI side.
type UnitFactory interface {
	// SpawnUnitAt creates a unit of templateID at loc and returns its id.
	SpawnUnitAt(templateID int32, loc model.Location) (model.UnitID, error)
	// Despawn removes a unit without a kill (teardown, clear all).
	Despawn(id model.UnitID)
}

// PlayerRegistry exposes the live players.
type PlayerRegistry interface {
	Positions() []model.Location
	Count() int
	AnyAlive() bool
}

// PerformanceMonitor reports the current frame time.
type PerformanceMonitor interface {
	FrameTime() time.Duration
}

// Terrain validates placement candidates.
type Terrain interface {
	// Project moves loc onto a walkable surface. ok is false when there is none.
	Project(loc model.Location) (model.Location, bool)
	// Blocked reports whether geometry or actors occupy the neighbourhood of loc.
	Blocked(loc model.Location, clearance int32) bool
}
