package spawn

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/wavekeeper/internal/model"
)

func selectionOf(env *testEnv, players ...model.Location) Selection {
	return Selection{
		Candidates: env.d.Points(),
		Players:    players,
		Policy:     env.d.Policy(),
		Rand:       rand.New(rand.NewPCG(1, 2)),
	}
}

var origin = model.NewLocation(0, 0, 0, 0)

func TestSequentialStrategy_RoundRobin(t *testing.T) {
	env := newTestEnv(t, testOptions(),
		pointAt(1, 0, 0, 1, 0),
		pointAt(2, 0, 0, 1, 0),
		pointAt(3, 0, 0, 1, 0),
	)
	s := NewStrategy(StrategySequential)
	sel := selectionOf(env)

	var got []int64
	for range 4 {
		got = append(got, s.Select(sel).ID())
	}
	assert.Equal(t, []int64{1, 2, 3, 1}, got)

	// point 3 skipped when unavailable, cursor wraps
	sel.Candidates = sel.Candidates[:2]
	assert.Equal(t, int64(2), s.Select(sel).ID())
	assert.Equal(t, int64(1), s.Select(sel).ID())
}

func TestProximityStrategy(t *testing.T) {
	env := newTestEnv(t, testOptions(),
		pointAt(1, 100, 0, 1, 0),
		pointAt(2, 2000, 0, 1, 0),
		pointAt(3, 10000, 0, 1, 0),
	)
	s := NewStrategy(StrategyPlayerProximity)

	sel := selectionOf(env, origin)
	for range 20 {
		assert.Equal(t, int64(2), s.Select(sel).ID())
	}

	// nothing in band: fall back to any candidate
	sel.Candidates = []*Point{sel.Candidates[0], sel.Candidates[2]}
	p := s.Select(sel)
	require.NotNil(t, p)
	assert.Contains(t, []int64{1, 3}, p.ID())

	assert.Nil(t, s.Select(Selection{Rand: sel.Rand}))
}

func TestFarthestStrategy(t *testing.T) {
	env := newTestEnv(t, testOptions(),
		pointAt(1, 100, 0, 1, 0),
		pointAt(2, 2000, 0, 1, 0),
		pointAt(3, 10000, 0, 1, 0),
	)
	s := NewStrategy(StrategyFarthestFromPlayers)

	sel := selectionOf(env, origin)
	assert.Equal(t, int64(3), s.Select(sel).ID())

	sel.Candidates = sel.Candidates[:1]
	assert.Equal(t, int64(1), s.Select(sel).ID(), "falls back when every point is too close")

	sel = selectionOf(env)
	assert.NotNil(t, s.Select(sel), "no players: random pick")
}

func TestLoadBalancedStrategy(t *testing.T) {
	env := newTestEnv(t, testOptions(),
		pointAt(1, 0, 0, 3, 0),
		pointAt(2, 0, 0, 3, 0),
		pointAt(3, 0, 0, 3, 0),
	)
	s := NewStrategy(StrategyLoadBalanced)

	assert.Equal(t, int64(1), s.Select(selectionOf(env)).ID(), "tie goes to earliest registered")

	p1, _ := env.d.Point(1)
	p3, _ := env.d.Point(3)
	_, err := env.d.ProduceAt(p1)
	require.NoError(t, err)
	_, err = env.d.ProduceAt(p3)
	require.NoError(t, err)

	assert.Equal(t, int64(2), s.Select(selectionOf(env)).ID())
}

func TestWeightedStrategy_AvoidsCrowdedAndClosePoints(t *testing.T) {
	env := newTestEnv(t, testOptions(),
		pointAt(1, 100, 0, 1, 0),
		pointAt(2, 2000, 0, 1, 0),
	)
	s := NewStrategy(StrategyWeighted)
	sel := selectionOf(env, origin)

	hits := map[int64]int{}
	for range 1000 {
		hits[s.Select(sel).ID()]++
	}
	// weights 0.1 vs 1.0
	assert.Greater(t, hits[2], hits[1]*4)

	assert.Nil(t, s.Select(Selection{Rand: sel.Rand}))
}

func TestPointWeight(t *testing.T) {
	policy := AdaptivePolicy{MinPlayerDistance: 800, MaxPlayerDistance: 4000}
	tests := []struct {
		name       string
		live       int
		x          int32
		hasPlayers bool
		want       float64
	}{
		{"empty point, no players", 0, 0, false, 1.0},
		{"two live", 2, 0, false, 0.6},
		{"floor at 0.1", 10, 0, false, 0.1},
		{"too close", 0, 100, true, 0.1},
		{"in band", 1, 2000, true, 0.8},
		{"too far", 0, 9000, true, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := model.NewLocation(tt.x, 0, 0, 0)
			assert.InDelta(t, tt.want, PointWeight(tt.live, loc, origin, tt.hasPlayers, policy), 1e-9)
		})
	}
}

func TestParseStrategy(t *testing.T) {
	for _, k := range AllStrategies {
		got, err := ParseStrategy(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	got, err := ParseStrategy(" Pressure ")
	require.NoError(t, err)
	assert.Equal(t, StrategyLoadBalanced, got)

	got, err = ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyRandom, got)

	_, err = ParseStrategy("closest")
	assert.Error(t, err)
}

func TestFrameWindow(t *testing.T) {
	w := newFrameWindow(3)
	assert.Zero(t, w.frameRate())

	w.add(0)
	w.add(-time.Millisecond)
	assert.Zero(t, w.len(), "non-positive samples are ignored")

	w.add(10 * time.Millisecond)
	w.add(20 * time.Millisecond)
	w.add(30 * time.Millisecond)
	assert.Equal(t, 20*time.Millisecond, w.average())

	w.add(60 * time.Millisecond)
	assert.Equal(t, 3, w.len())
	assert.Equal(t, 110*time.Millisecond/3, w.average())
	assert.InDelta(t, 50.0, newWindowOf(20*time.Millisecond).frameRate(), 1e-9)
}

func newWindowOf(samples ...time.Duration) *frameWindow {
	w := newFrameWindow(len(samples))
	for _, s := range samples {
		w.add(s)
	}
	return w
}
