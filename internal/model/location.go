package model

import "math"

// Location is a position in game coordinates.
// Value type, passed by value (immutable).
type Location struct {
	X       int32
	Y       int32
	Z       int32
	Heading uint16 // 0-65535
}

// NewLocation creates a Location with the given coordinates.
func NewLocation(x, y, z int32, heading uint16) Location {
	return Location{X: x, Y: y, Z: z, Heading: heading}
}

// WithHeading returns a copy with the heading replaced (immutable pattern).
func (l Location) WithHeading(heading uint16) Location {
	l.Heading = heading
	return l
}

// WithCoordinates returns a copy with the coordinates replaced (immutable pattern).
func (l Location) WithCoordinates(x, y, z int32) Location {
	l.X = x
	l.Y = y
	l.Z = z
	return l
}

// Offset returns a copy shifted on the ground plane.
func (l Location) Offset(dx, dy int32) Location {
	l.X += dx
	l.Y += dy
	return l
}

// DistanceSquared returns the squared 3D distance (no sqrt).
func (l Location) DistanceSquared(other Location) int64 {
	dx := int64(l.X - other.X)
	dy := int64(l.Y - other.Y)
	dz := int64(l.Z - other.Z)
	return dx*dx + dy*dy + dz*dz
}

// Distance2D returns the distance on the ground plane.
// Spawn placement ignores height differences.
func (l Location) Distance2D(other Location) float64 {
	dx := float64(l.X - other.X)
	dy := float64(l.Y - other.Y)
	return math.Hypot(dx, dy)
}

// MeanLocation returns the centroid of locs.
// ok is false when locs is empty.
func MeanLocation(locs []Location) (mean Location, ok bool) {
	if len(locs) == 0 {
		return Location{}, false
	}

	var sx, sy, sz int64
	for _, l := range locs {
		sx += int64(l.X)
		sy += int64(l.Y)
		sz += int64(l.Z)
	}
	n := int64(len(locs))
	return Location{X: int32(sx / n), Y: int32(sy / n), Z: int32(sz / n)}, true
}
