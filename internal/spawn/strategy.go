package spawn

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"github.com/udisondev/wavekeeper/internal/model"
)

// StrategyKind names a point selection strategy.
type StrategyKind int32

const (
	StrategyRandom StrategyKind = iota
	StrategySequential
	StrategyPlayerProximity
	StrategyFarthestFromPlayers
	StrategyLoadBalanced
	StrategyWeighted
)

// AllStrategies lists every strategy in declaration order.
var AllStrategies = []StrategyKind{
	StrategyRandom,
	StrategySequential,
	StrategyPlayerProximity,
	StrategyFarthestFromPlayers,
	StrategyLoadBalanced,
	StrategyWeighted,
}

// String returns the config spelling of the strategy
func (k StrategyKind) String() string {
	switch k {
	case StrategyRandom:
		return "random"
	case StrategySequential:
		return "sequential"
	case StrategyPlayerProximity:
		return "player_proximity"
	case StrategyFarthestFromPlayers:
		return "farthest_from_players"
	case StrategyLoadBalanced:
		return "load_balanced"
	case StrategyWeighted:
		return "weighted"
	default:
		return "unknown"
	}
}

// ParseStrategy parses a strategy name. "pressure" is accepted for load_balanced.
func ParseStrategy(s string) (StrategyKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "pressure":
		return StrategyLoadBalanced, nil
	case "":
		return StrategyRandom, nil
	}
	for _, k := range AllStrategies {
		if k.String() == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown spawn strategy %q", s)
}

// Selection is the input handed to a strategy.
type Selection struct {
	Candidates []*Point // valid points, registration order
	Players    []model.Location
	Policy     AdaptivePolicy
	Rand       *rand.Rand
}

// Strategy picks one of the candidate points. It returns nil only when
// there are no candidates.
type Strategy interface {
	Kind() StrategyKind
	Select(sel Selection) *Point
}

// NewStrategy returns a fresh strategy of the given kind.
func NewStrategy(kind StrategyKind) Strategy {
	switch kind {
	case StrategySequential:
		return &sequentialStrategy{}
	case StrategyPlayerProximity:
		return proximityStrategy{}
	case StrategyFarthestFromPlayers:
		return farthestStrategy{}
	case StrategyLoadBalanced:
		return loadBalancedStrategy{}
	case StrategyWeighted:
		return weightedStrategy{}
	default:
		return randomStrategy{}
	}
}

func pickRandom(sel Selection) *Point {
	if len(sel.Candidates) == 0 {
		return nil
	}
	return sel.Candidates[sel.Rand.IntN(len(sel.Candidates))]
}

type randomStrategy struct{}

func (randomStrategy) Kind() StrategyKind { return StrategyRandom }

func (randomStrategy) Select(sel Selection) *Point { return pickRandom(sel) }

// sequentialStrategy round-robins in registration order. The cursor is
// owned by the dispatcher through the strategy instance.
type sequentialStrategy struct {
	cursor int // next registration index to consider
}

func (*sequentialStrategy) Kind() StrategyKind { return StrategySequential }

func (s *sequentialStrategy) Select(sel Selection) *Point {
	if len(sel.Candidates) == 0 {
		return nil
	}
	chosen := sel.Candidates[0]
	for _, p := range sel.Candidates {
		if p.index >= s.cursor {
			chosen = p
			break
		}
	}
	s.cursor = chosen.index + 1
	return chosen
}

type proximityStrategy struct{}

func (proximityStrategy) Kind() StrategyKind { return StrategyPlayerProximity }

func (proximityStrategy) Select(sel Selection) *Point {
	center, ok := model.MeanLocation(sel.Players)
	if !ok {
		return pickRandom(sel)
	}

	inBand := make([]*Point, 0, len(sel.Candidates))
	for _, p := range sel.Candidates {
		d := p.Location().Distance2D(center)
		if d >= sel.Policy.MinPlayerDistance && d <= sel.Policy.MaxPlayerDistance {
			inBand = append(inBand, p)
		}
	}
	if len(inBand) == 0 {
		return pickRandom(sel)
	}
	sel.Candidates = inBand
	return pickRandom(sel)
}

type farthestStrategy struct{}

func (farthestStrategy) Kind() StrategyKind { return StrategyFarthestFromPlayers }

func (farthestStrategy) Select(sel Selection) *Point {
	center, ok := model.MeanLocation(sel.Players)
	if !ok {
		return pickRandom(sel)
	}

	var best *Point
	bestDist := -1.0
	for _, p := range sel.Candidates {
		d := p.Location().Distance2D(center)
		if d < sel.Policy.MinPlayerDistance {
			continue
		}
		if d > bestDist {
			best, bestDist = p, d
		}
	}
	if best == nil {
		return pickRandom(sel)
	}
	return best
}

// loadBalancedStrategy picks the point with the fewest live units.
// Ties go to the earliest registered point.
type loadBalancedStrategy struct{}

func (loadBalancedStrategy) Kind() StrategyKind { return StrategyLoadBalanced }

func (loadBalancedStrategy) Select(sel Selection) *Point {
	var best *Point
	bestLive := math.MaxInt
	for _, p := range sel.Candidates {
		if live := p.LiveCount(); live < bestLive {
			best, bestLive = p, live
		}
	}
	return best
}

type weightedStrategy struct{}

func (weightedStrategy) Kind() StrategyKind { return StrategyWeighted }

func (weightedStrategy) Select(sel Selection) *Point {
	if len(sel.Candidates) == 0 {
		return nil
	}

	center, hasPlayers := model.MeanLocation(sel.Players)
	weights := make([]float64, len(sel.Candidates))
	total := 0.0
	for i, p := range sel.Candidates {
		w := PointWeight(p.LiveCount(), p.Location(), center, hasPlayers, sel.Policy)
		weights[i] = w
		total += w
	}
	if total <= 0 {
		return pickRandom(sel)
	}

	r := sel.Rand.Float64() * total
	for i, w := range weights {
		r -= w
		if r < 0 {
			return sel.Candidates[i]
		}
	}
	return sel.Candidates[len(sel.Candidates)-1]
}

// PointWeight is the Weighted strategy weight of a point:
// max(0.1, 1 - 0.2*live), scaled by 0.1 when closer than the minimum
// player distance and by 0.5 when farther than the maximum.
func PointWeight(live int, loc, center model.Location, hasPlayers bool, policy AdaptivePolicy) float64 {
	w := math.Max(0.1, 1.0-0.2*float64(live))
	if !hasPlayers {
		return w
	}
	d := loc.Distance2D(center)
	switch {
	case d < policy.MinPlayerDistance:
		w *= 0.1
	case d > policy.MaxPlayerDistance:
		w *= 0.5
	}
	return w
}
