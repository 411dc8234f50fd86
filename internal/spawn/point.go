package spawn

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/udisondev/wavekeeper/internal/model"
)

// PointState is the lifecycle state of a spawn point.
type PointState int32

const (
	// PointInactive - registered but not yet activated (or deactivated)
	PointInactive PointState = iota
	// PointActive - ready to produce once its gates pass
	PointActive
	// PointSpawning - transient, placement search in progress
	PointSpawning
	// PointOccupied - live units reached capacity
	PointOccupied
	// PointCooldown - waiting for the own cooldown after a production
	PointCooldown
	// PointDisabled - administratively blocked until Enable
	PointDisabled
)

// String returns human-readable state name
func (s PointState) String() string {
	switch s {
	case PointInactive:
		return "INACTIVE"
	case PointActive:
		return "ACTIVE"
	case PointSpawning:
		return "SPAWNING"
	case PointOccupied:
		return "OCCUPIED"
	case PointCooldown:
		return "COOLDOWN"
	case PointDisabled:
		return "DISABLED"
	default:
		return "UNKNOWN"
	}
}

// PointOptions tunes placement and housekeeping of every point.
type PointOptions struct {
	MaxPlacementAttempts int
	Clearance            int32         // free radius required around a placement
	ClearDeadInterval    time.Duration // how often dead handles are swept
}

// DefaultPointOptions returns the options used when none are configured.
func DefaultPointOptions() PointOptions {
	return PointOptions{
		MaxPlacementAttempts: 10,
		Clearance:            40,
		ClearDeadInterval:    2 * time.Second,
	}
}

// PointSnapshot is a read-only view of a point.
type PointSnapshot struct {
	ID               int64
	State            PointState
	Live             int
	Tracked          int
	Capacity         int32
	TotalProduced    int64
	FailedPlacements int64
	LastProduced     time.Time
}

// Point is a leaf spawn resource: one location with its own cooldown,
// capacity and set of owned units.
//
// Only the point removes handles from its live set (ClearDead); the
// dispatcher invalidates handles in the shared arena, which the point
// observes through liveness checks.
type Point struct {
	desc  model.SpawnPointDescriptor
	index int // registration order

	state         PointState
	live          []model.UnitHandle
	hasProduced   bool
	lastProduced  time.Time
	cooldownUntil time.Time
	nextClearDead time.Time

	totalProduced    int64
	failedPlacements int64

	arena   *model.UnitArena
	factory UnitFactory
	terrain Terrain
	rng     *rand.Rand
	opts    PointOptions
}

func newPoint(
	desc model.SpawnPointDescriptor,
	index int,
	arena *model.UnitArena,
	factory UnitFactory,
	terrain Terrain,
	rng *rand.Rand,
	opts PointOptions,
) *Point {
	return &Point{
		desc:    desc,
		index:   index,
		state:   PointInactive,
		live:    make([]model.UnitHandle, 0, desc.Capacity),
		arena:   arena,
		factory: factory,
		terrain: terrain,
		rng:     rng,
		opts:    opts,
	}
}

// ID returns the descriptor ID
func (p *Point) ID() int64 {
	return p.desc.ID
}

// Descriptor returns the static definition
func (p *Point) Descriptor() model.SpawnPointDescriptor {
	return p.desc
}

// Location returns the anchor location
func (p *Point) Location() model.Location {
	return p.desc.Location
}

// State returns the current lifecycle state
func (p *Point) State() PointState {
	return p.state
}

// LiveCount returns the number of owned units that are still alive.
// Dead handles waiting for ClearDead are not counted.
func (p *Point) LiveCount() int {
	n := 0
	for _, h := range p.live {
		if p.arena.Alive(h) {
			n++
		}
	}
	return n
}

// Available reports whether the deterministic production gates pass:
// lifecycle state, own cooldown and capacity.
func (p *Point) Available(now time.Time) bool {
	switch p.state {
	case PointActive, PointOccupied, PointCooldown:
	default:
		return false
	}
	if p.hasProduced && now.Sub(p.lastProduced) < p.desc.Cooldown {
		return false
	}
	return p.LiveCount() < int(p.desc.Capacity)
}

// CanProduce is Available plus the per-call probability roll.
func (p *Point) CanProduce(now time.Time) bool {
	if !p.Available(now) {
		return false
	}
	return p.roll()
}

func (p *Point) roll() bool {
	prob := p.desc.EffectiveProbability()
	if prob >= 1.0 {
		return true
	}
	return p.rng.Float64() < prob
}

// Produce places one unit of templateID (0 = descriptor template).
func (p *Point) Produce(now time.Time, templateID int32) (model.UnitHandle, error) {
	if !p.CanProduce(now) {
		return model.UnitHandle{}, fmt.Errorf("point %d (%s, live %d/%d): %w",
			p.desc.ID, p.state, p.LiveCount(), p.desc.Capacity, ErrNotReady)
	}
	return p.place(now, templateID)
}

// ForceProduce skips state, cooldown and probability gates but still
// searches a placement. Capacity is never exceeded and a disabled point
// stays blocked.
func (p *Point) ForceProduce(now time.Time, templateID int32) (model.UnitHandle, error) {
	if p.state == PointDisabled {
		return model.UnitHandle{}, fmt.Errorf("point %d disabled: %w", p.desc.ID, ErrNotReady)
	}
	if p.LiveCount() >= int(p.desc.Capacity) {
		return model.UnitHandle{}, fmt.Errorf("point %d at capacity %d: %w", p.desc.ID, p.desc.Capacity, ErrNotReady)
	}
	return p.place(now, templateID)
}

func (p *Point) place(now time.Time, templateID int32) (model.UnitHandle, error) {
	if templateID == 0 {
		templateID = p.desc.TemplateID
	}

	prev := p.state
	p.state = PointSpawning

	loc, ok := p.findPlacement()
	if !ok {
		p.state = prev
		p.failedPlacements++
		slog.Warn("spawn placement failed",
			"pointID", p.desc.ID,
			"attempts", p.opts.MaxPlacementAttempts,
			"radius", p.desc.Radius)
		return model.UnitHandle{}, fmt.Errorf("point %d after %d attempts: %w",
			p.desc.ID, p.opts.MaxPlacementAttempts, ErrNoValidPlacement)
	}

	unitID, err := p.factory.SpawnUnitAt(templateID, loc)
	if err != nil {
		p.state = prev
		return model.UnitHandle{}, fmt.Errorf("spawning template %d at point %d: %w", templateID, p.desc.ID, err)
	}

	h := p.arena.Allocate(model.UnitRecord{
		UnitID:     unitID,
		PointID:    p.desc.ID,
		TemplateID: templateID,
		Location:   loc,
	})
	p.live = append(p.live, h)
	p.hasProduced = true
	p.lastProduced = now
	p.cooldownUntil = now.Add(p.desc.Cooldown)
	p.totalProduced++

	// Forced productions can happen on inactive points; keep them inactive.
	if prev == PointInactive {
		p.state = PointInactive
	} else {
		p.settle(now)
	}

	return h, nil
}

// findPlacement tries anchor + random offset within the radius, projected
// onto the surface, until a free spot is found.
func (p *Point) findPlacement() (model.Location, bool) {
	attempts := max(p.opts.MaxPlacementAttempts, 1)
	for range attempts {
		candidate := p.jitter()

		if p.terrain == nil {
			return candidate, true
		}
		projected, ok := p.terrain.Project(candidate)
		if !ok {
			continue
		}
		if p.terrain.Blocked(projected, p.opts.Clearance) {
			continue
		}
		return projected, true
	}
	return model.Location{}, false
}

func (p *Point) jitter() model.Location {
	loc := p.desc.Location.WithHeading(uint16(p.rng.UintN(65536)))
	if p.desc.Radius <= 0 {
		return loc
	}
	// sqrt keeps the distribution uniform over the disk
	r := float64(p.desc.Radius) * math.Sqrt(p.rng.Float64())
	a := p.rng.Float64() * 2 * math.Pi
	return loc.Offset(int32(r*math.Cos(a)), int32(r*math.Sin(a)))
}

// settle recomputes Active / Occupied / Cooldown. Administrative states
// are left untouched.
func (p *Point) settle(now time.Time) {
	switch p.state {
	case PointInactive, PointDisabled:
		return
	}
	switch {
	case p.LiveCount() >= int(p.desc.Capacity):
		p.state = PointOccupied
	case now.Before(p.cooldownUntil):
		p.state = PointCooldown
	default:
		p.state = PointActive
	}
}

// Tick advances deadlines. ClearDead runs amortized, not every tick.
// Returns true when the state or the tracked set changed.
func (p *Point) Tick(now time.Time) bool {
	before := p.state
	removed := 0

	if p.state == PointCooldown || p.state == PointOccupied {
		p.settle(now)
	}

	if !now.Before(p.nextClearDead) {
		removed = p.ClearDead(now)
		p.nextClearDead = now.Add(p.opts.ClearDeadInterval)
	}

	return before != p.state || removed > 0
}

// ClearDead drops handles that are no longer alive, resettles the state
// at now and returns how many were removed. Calling it again without
// intervening events is a no-op.
func (p *Point) ClearDead(now time.Time) int {
	kept := p.live[:0]
	for _, h := range p.live {
		if p.arena.Alive(h) {
			kept = append(kept, h)
		}
	}
	removed := len(p.live) - len(kept)
	clear(p.live[len(kept):])
	p.live = kept

	p.settle(now)

	if removed > 0 {
		slog.Debug("spawn point cleared dead units", "pointID", p.desc.ID, "removed", removed, "live", len(p.live))
	}
	return removed
}

// Handles returns a copy of the tracked handles (live or awaiting ClearDead).
func (p *Point) Handles() []model.UnitHandle {
	out := make([]model.UnitHandle, len(p.live))
	copy(out, p.live)
	return out
}

// Activate moves an inactive point into service.
func (p *Point) Activate(now time.Time) {
	if p.state != PointInactive {
		return
	}
	p.state = PointActive
	p.settle(now)
}

// Deactivate stops production immediately. Live units are kept.
func (p *Point) Deactivate() {
	if p.state == PointDisabled {
		return
	}
	p.state = PointInactive
}

// Disable blocks the point until Enable.
func (p *Point) Disable() {
	p.state = PointDisabled
	slog.Info("spawn point disabled", "pointID", p.desc.ID)
}

// Enable re-activates a disabled point.
func (p *Point) Enable(now time.Time) {
	if p.state != PointDisabled {
		return
	}
	p.state = PointActive
	p.settle(now)
	slog.Info("spawn point enabled", "pointID", p.desc.ID, "state", p.state)
}

// Snapshot returns a read-only view of the point.
func (p *Point) Snapshot() PointSnapshot {
	return PointSnapshot{
		ID:               p.desc.ID,
		State:            p.state,
		Live:             p.LiveCount(),
		Tracked:          len(p.live),
		Capacity:         p.desc.Capacity,
		TotalProduced:    p.totalProduced,
		FailedPlacements: p.failedPlacements,
		LastProduced:     p.lastProduced,
	}
}
