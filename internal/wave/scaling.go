package wave

import (
	"math"

	"github.com/udisondev/wavekeeper/internal/spawn"
)

// Scaling turns authored request counts into effective counts.
type Scaling struct {
	DifficultyGrowth float64 // extra share per wave index
	MinMultiplier    float64
	MaxMultiplier    float64 // zero means unbounded
}

// DefaultScaling returns 10% growth per wave clamped to [1, 5].
func DefaultScaling() Scaling {
	return Scaling{
		DifficultyGrowth: 0.1,
		MinMultiplier:    1.0,
		MaxMultiplier:    5.0,
	}
}

// Difficulty is 1 + growth × index; never decreasing in index.
func (s Scaling) Difficulty(index int) float64 {
	return 1.0 + math.Max(s.DifficultyGrowth, 0)*float64(max(index, 0))
}

// Multiplier combines player-count and difficulty scaling and clamps the
// result to the configured range.
func (s Scaling) Multiplier(players int, playerScale float64, index int) float64 {
	m := spawn.PlayerMultiplier(players, playerScale) * s.Difficulty(index)
	if s.MaxMultiplier > 0 {
		m = math.Min(m, s.MaxMultiplier)
	}
	return math.Max(m, s.MinMultiplier)
}

// Count applies a multiplier to an authored count; at least one unit.
func (s Scaling) Count(count int32, multiplier float64) int32 {
	return max(int32(math.Round(float64(count)*multiplier)), 1)
}
