package world

const (
	// ShiftBy - shift by N bits for 2^N units per region (2^11 = 2048)
	ShiftBy = 11

	// RegionSize in game units
	RegionSize = 1 << ShiftBy
)

// Bounds is the playable rectangle in game coordinates. Max is exclusive.
type Bounds struct {
	MinX, MinY int32
	MaxX, MaxY int32
}

// DefaultBounds returns the classic world rectangle
// (-131072, -262144) .. (196608, 229376).
func DefaultBounds() Bounds {
	return Bounds{
		MinX: -131072,
		MinY: -262144,
		MaxX: 196608,
		MaxY: 229376,
	}
}

// Contains reports whether (x, y) lies inside the bounds.
func (b Bounds) Contains(x, y int32) bool {
	return x >= b.MinX && x < b.MaxX && y >= b.MinY && y < b.MaxY
}

// regionKey identifies one RegionSize×RegionSize cell of the grid.
type regionKey struct {
	rx, ry int32
}

// regionOf converts world coordinates to a region key.
// Formula: (worldCoord >> ShiftBy), arithmetic shift keeps negatives in
// their own cells.
func regionOf(x, y int32) regionKey {
	return regionKey{rx: x >> ShiftBy, ry: y >> ShiftBy}
}

// surrounding returns the 3×3 window of region keys around k.
func (k regionKey) surrounding() [9]regionKey {
	var out [9]regionKey
	i := 0
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			out[i] = regionKey{rx: k.rx + dx, ry: k.ry + dy}
			i++
		}
	}
	return out
}
