package spawn

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Rounding decides how a scaled ceiling is turned into a unit count.
type Rounding int32

const (
	RoundNearest Rounding = iota
	RoundDown
	RoundUp
)

// String returns the config spelling
func (r Rounding) String() string {
	switch r {
	case RoundNearest:
		return "round"
	case RoundDown:
		return "floor"
	case RoundUp:
		return "ceil"
	default:
		return "unknown"
	}
}

// ParseRounding parses "round", "floor" or "ceil".
func ParseRounding(s string) (Rounding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "round", "nearest":
		return RoundNearest, nil
	case "floor", "down":
		return RoundDown, nil
	case "ceil", "up":
		return RoundUp, nil
	default:
		return 0, fmt.Errorf("unknown rounding rule %q", s)
	}
}

// Apply rounds v according to the rule.
func (r Rounding) Apply(v float64) int {
	switch r {
	case RoundDown:
		return int(math.Floor(v))
	case RoundUp:
		return int(math.Ceil(v))
	default:
		return int(math.Round(v))
	}
}

// AdaptivePolicy holds the admission limits and placement distances.
// Ceiling is the effective value; only the dispatcher's adaptation step
// writes it.
type AdaptivePolicy struct {
	BaseCeiling       int
	MinCeiling        int
	Ceiling           int
	BurstCap          int
	MinPlayerDistance float64
	MaxPlayerDistance float64
	PerPlayerScale    float64
	MinFrameRate      float64 // back-off engages below this rate
	ThrottleStep      int
	Rounding          Rounding
}

// DefaultAdaptivePolicy returns the policy used when none is configured.
func DefaultAdaptivePolicy() AdaptivePolicy {
	return AdaptivePolicy{
		BaseCeiling:       30,
		MinCeiling:        5,
		Ceiling:           30,
		BurstCap:          60,
		MinPlayerDistance: 800,
		MaxPlayerDistance: 4000,
		PerPlayerScale:    0.5,
		MinFrameRate:      30,
		ThrottleStep:      5,
		Rounding:          RoundNearest,
	}
}

// PlayerMultiplier returns max(1, 1 + (players-1) * scale).
func PlayerMultiplier(players int, scale float64) float64 {
	return math.Max(1.0, 1.0+float64(players-1)*scale)
}

// ScaledCeiling returns the player-scaled ceiling before any back-off.
func (p AdaptivePolicy) ScaledCeiling(players int) int {
	return p.Rounding.Apply(float64(p.BaseCeiling) * PlayerMultiplier(players, p.PerPlayerScale))
}

// frameWindow keeps the most recent frame-time samples.
type frameWindow struct {
	samples []time.Duration
	next    int
	full    bool
}

func newFrameWindow(size int) *frameWindow {
	return &frameWindow{samples: make([]time.Duration, max(size, 1))}
}

func (w *frameWindow) add(d time.Duration) {
	if d <= 0 {
		return
	}
	w.samples[w.next] = d
	w.next++
	if w.next == len(w.samples) {
		w.next = 0
		w.full = true
	}
}

func (w *frameWindow) len() int {
	if w.full {
		return len(w.samples)
	}
	return w.next
}

// average returns the mean frame time, zero when empty.
func (w *frameWindow) average() time.Duration {
	n := w.len()
	if n == 0 {
		return 0
	}
	var sum time.Duration
	for _, s := range w.samples[:n] {
		sum += s
	}
	return sum / time.Duration(n)
}

// frameRate returns frames per second derived from the average, zero when
// no samples were recorded.
func (w *frameWindow) frameRate() float64 {
	avg := w.average()
	if avg <= 0 {
		return 0
	}
	return float64(time.Second) / float64(avg)
}
