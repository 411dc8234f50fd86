package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/wavekeeper/internal/horde"
	"github.com/udisondev/wavekeeper/internal/spawn"
	"github.com/udisondev/wavekeeper/internal/wave"
)

func TestCollector_CountersAdvanceByDelta(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	snap := horde.Snapshot{
		Spawn: spawn.Statistics{TotalProduced: 5, TotalKilled: 2, FailedAttempts: 1},
		Waves: wave.Statistics{WavesCompleted: 1},
	}
	c.Observe(snap)
	assert.Equal(t, 5.0, testutil.ToFloat64(c.produced))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.killed))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.failedAttempts))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.wavesCompleted))

	// a repeated scrape adds nothing
	c.Observe(snap)
	assert.Equal(t, 5.0, testutil.ToFloat64(c.produced))

	snap.Spawn.TotalProduced = 8
	snap.Waves.WavesFailed = 1
	c.Observe(snap)
	assert.Equal(t, 8.0, testutil.ToFloat64(c.produced))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.wavesFailed))
	assert.Zero(t, testutil.ToFloat64(c.despawned))
}

func TestCollector_Gauges(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())

	c.Observe(horde.Snapshot{
		Players: 4,
		Wave:    wave.Snapshot{Number: 7, State: wave.StatePaused, Progress: 0.25, Live: 6},
		Spawn: spawn.Statistics{
			Live:          6,
			Ceiling:       40,
			FrameRate:     58.5,
			PendingJobs:   2,
			TotalProduced: 10,
			TotalKilled:   4,
			Points: []spawn.PointSnapshot{
				{ID: 1, Live: 2},
				{ID: 2, Live: 4},
			},
		},
	})

	assert.Equal(t, 7.0, testutil.ToFloat64(c.waveNumber))
	assert.Equal(t, float64(wave.StatePaused), testutil.ToFloat64(c.waveState))
	assert.Equal(t, 0.25, testutil.ToFloat64(c.waveProgress))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.players))
	assert.Equal(t, 40.0, testutil.ToFloat64(c.ceiling))
	assert.Equal(t, 58.5, testutil.ToFloat64(c.frameRate))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.pendingJobs))
	assert.InDelta(t, 0.4, testutil.ToFloat64(c.efficiency), 1e-9)
	assert.Equal(t, 4.0, testutil.ToFloat64(c.pointLive.WithLabelValues("2")))
	assert.Equal(t, 2, testutil.CollectAndCount(c.pointLive))
}

func TestNewCollector_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	require.Panics(t, func() { NewCollector(reg) }, "duplicate registration")

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
