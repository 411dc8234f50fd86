package world

import (
	"math/rand/v2"
	"time"
)

// Attrition stands in for combat: it kills random units at a steady rate
// so waves can clear without a real AI.
type Attrition struct {
	units  *Units
	rate   float64 // kills per second
	rng    *rand.Rand
	last   time.Time
	credit float64
}

// NewAttrition creates a driver killing rate units per second.
func NewAttrition(units *Units, rate float64, seed uint64) *Attrition {
	return &Attrition{
		units: units,
		rate:  rate,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Tick kills the units accrued since the previous tick and returns how
// many died.
func (a *Attrition) Tick(now time.Time) int {
	if a.last.IsZero() || a.rate <= 0 {
		a.last = now
		return 0
	}
	a.credit += now.Sub(a.last).Seconds() * a.rate
	a.last = now

	killed := 0
	for a.credit >= 1 {
		a.credit--
		ids := a.units.IDs()
		if len(ids) == 0 {
			a.credit = 0
			break
		}
		if a.units.Kill(ids[a.rng.IntN(len(ids))]) {
			killed++
		}
	}
	return killed
}
