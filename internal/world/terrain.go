package world

import (
	"sync"

	"github.com/udisondev/wavekeeper/internal/model"
)

// Obstacle is static blocking geometry: a circle on the ground plane.
type Obstacle struct {
	Center model.Location
	Radius int32
}

// Terrain answers placement queries against a region grid: surface
// height per region, static obstacles and the units currently standing
// in each region. Safe for concurrent use.
type Terrain struct {
	mu sync.RWMutex

	bounds  Bounds
	groundZ int32

	heights   map[regionKey]int32
	obstacles map[regionKey][]Obstacle
	occupants map[regionKey]map[model.UnitID]model.Location
}

// NewTerrain creates flat terrain at groundZ inside bounds.
func NewTerrain(bounds Bounds, groundZ int32) *Terrain {
	return &Terrain{
		bounds:    bounds,
		groundZ:   groundZ,
		heights:   make(map[regionKey]int32),
		obstacles: make(map[regionKey][]Obstacle),
		occupants: make(map[regionKey]map[model.UnitID]model.Location),
	}
}

// Bounds returns the playable rectangle.
func (t *Terrain) Bounds() Bounds {
	return t.bounds
}

// SetRegionHeight sets the surface height of the region containing (x, y).
func (t *Terrain) SetRegionHeight(x, y, z int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.heights[regionOf(x, y)] = z
}

// AddObstacle registers blocking geometry in every region its bounding
// box touches.
func (t *Terrain) AddObstacle(o Obstacle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	lo := regionOf(o.Center.X-o.Radius, o.Center.Y-o.Radius)
	hi := regionOf(o.Center.X+o.Radius, o.Center.Y+o.Radius)
	for rx := lo.rx; rx <= hi.rx; rx++ {
		for ry := lo.ry; ry <= hi.ry; ry++ {
			k := regionKey{rx: rx, ry: ry}
			t.obstacles[k] = append(t.obstacles[k], o)
		}
	}
}

// Project drops loc onto the surface. Returns false outside the bounds.
func (t *Terrain) Project(loc model.Location) (model.Location, bool) {
	if !t.bounds.Contains(loc.X, loc.Y) {
		return model.Location{}, false
	}

	t.mu.RLock()
	z, ok := t.heights[regionOf(loc.X, loc.Y)]
	t.mu.RUnlock()
	if !ok {
		z = t.groundZ
	}
	return loc.WithCoordinates(loc.X, loc.Y, z), true
}

// Blocked reports whether an obstacle or a standing unit lies within
// clearance of loc. Units are looked up in the 3×3 region window, so
// clearance larger than RegionSize is effectively capped.
func (t *Terrain) Blocked(loc model.Location, clearance int32) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	k := regionOf(loc.X, loc.Y)
	for _, o := range t.obstacles[k] {
		reach := int64(o.Radius) + int64(clearance)
		if loc.DistanceSquared(o.Center) < reach*reach {
			return true
		}
	}

	if clearance <= 0 {
		return false
	}
	limit := int64(clearance) * int64(clearance)
	for _, nk := range k.surrounding() {
		for _, other := range t.occupants[nk] {
			if loc.DistanceSquared(other) < limit {
				return true
			}
		}
	}
	return false
}

// Occupy marks a unit as standing at loc.
func (t *Terrain) Occupy(id model.UnitID, loc model.Location) {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := regionOf(loc.X, loc.Y)
	units, ok := t.occupants[k]
	if !ok {
		units = make(map[model.UnitID]model.Location)
		t.occupants[k] = units
	}
	units[id] = loc
}

// Vacate removes a unit placed with Occupy.
func (t *Terrain) Vacate(id model.UnitID, loc model.Location) {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := regionOf(loc.X, loc.Y)
	units := t.occupants[k]
	delete(units, id)
	if len(units) == 0 {
		delete(t.occupants, k)
	}
}

// Occupied returns the number of units standing on the terrain.
func (t *Terrain) Occupied() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, units := range t.occupants {
		n += len(units)
	}
	return n
}
