// Package telemetry exports runtime snapshots as Prometheus metrics and
// serves the debug HTTP surface.
package telemetry

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/udisondev/wavekeeper/internal/horde"
)

// Collector mirrors runtime snapshots into Prometheus collectors.
// Label cardinality is bounded by the number of configured spawn points.
type Collector struct {
	mu sync.Mutex

	waveNumber    prometheus.Gauge
	waveState     prometheus.Gauge
	waveProgress  prometheus.Gauge
	waveRemaining prometheus.Gauge
	waveLive      prometheus.Gauge
	players       prometheus.Gauge

	liveUnits   prometheus.Gauge
	ceiling     prometheus.Gauge
	frameRate   prometheus.Gauge
	pendingJobs prometheus.Gauge
	efficiency  prometheus.Gauge
	pointLive   *prometheus.GaugeVec

	produced       prometheus.Counter
	killed         prometheus.Counter
	despawned      prometheus.Counter
	failedAttempts prometheus.Counter
	wavesCompleted prometheus.Counter
	wavesFailed    prometheus.Counter

	last totals
}

// totals are the cumulative values already added to the counters.
type totals struct {
	produced, killed, despawned, failed int64
	completed, failedWaves              int
}

// NewCollector registers the wavekeeper metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		waveNumber: f.NewGauge(prometheus.GaugeOpts{
			Name: "wavekeeper_wave_number",
			Help: "Current 1-based wave number",
		}),
		waveState: f.NewGauge(prometheus.GaugeOpts{
			Name: "wavekeeper_wave_state",
			Help: "Current wave scheduler state (numeric)",
		}),
		waveProgress: f.NewGauge(prometheus.GaugeOpts{
			Name: "wavekeeper_wave_progress_ratio",
			Help: "Progress of the running wave between 0 and 1",
		}),
		waveRemaining: f.NewGauge(prometheus.GaugeOpts{
			Name: "wavekeeper_wave_remaining_seconds",
			Help: "Time until the active deadline or time limit",
		}),
		waveLive: f.NewGauge(prometheus.GaugeOpts{
			Name: "wavekeeper_wave_live_units",
			Help: "Live units attributed to the current wave",
		}),
		players: f.NewGauge(prometheus.GaugeOpts{
			Name: "wavekeeper_players",
			Help: "Connected players",
		}),
		liveUnits: f.NewGauge(prometheus.GaugeOpts{
			Name: "wavekeeper_live_units",
			Help: "Live units managed by the dispatcher",
		}),
		ceiling: f.NewGauge(prometheus.GaugeOpts{
			Name: "wavekeeper_spawn_ceiling",
			Help: "Effective concurrency ceiling",
		}),
		frameRate: f.NewGauge(prometheus.GaugeOpts{
			Name: "wavekeeper_frame_rate",
			Help: "Rolling frame rate seen by the adaptation step",
		}),
		pendingJobs: f.NewGauge(prometheus.GaugeOpts{
			Name: "wavekeeper_pending_jobs",
			Help: "Production jobs still queued",
		}),
		efficiency: f.NewGauge(prometheus.GaugeOpts{
			Name: "wavekeeper_kill_efficiency_ratio",
			Help: "Killed units divided by produced units",
		}),
		pointLive: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "wavekeeper_point_live_units",
			Help: "Live units per spawn point",
		}, []string{"point"}),
		produced: f.NewCounter(prometheus.CounterOpts{
			Name: "wavekeeper_units_produced_total",
			Help: "Units produced",
		}),
		killed: f.NewCounter(prometheus.CounterOpts{
			Name: "wavekeeper_units_killed_total",
			Help: "Units reported dead",
		}),
		despawned: f.NewCounter(prometheus.CounterOpts{
			Name: "wavekeeper_units_despawned_total",
			Help: "Units removed without dying",
		}),
		failedAttempts: f.NewCounter(prometheus.CounterOpts{
			Name: "wavekeeper_failed_productions_total",
			Help: "Production attempts rejected by a point",
		}),
		wavesCompleted: f.NewCounter(prometheus.CounterOpts{
			Name: "wavekeeper_waves_completed_total",
			Help: "Waves completed",
		}),
		wavesFailed: f.NewCounter(prometheus.CounterOpts{
			Name: "wavekeeper_waves_failed_total",
			Help: "Waves failed",
		}),
	}
}

// Observe updates every metric from s.
func (c *Collector) Observe(s horde.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.waveNumber.Set(float64(s.Wave.Number))
	c.waveState.Set(float64(s.Wave.State))
	c.waveProgress.Set(s.Wave.Progress)
	c.waveRemaining.Set(s.Wave.Remaining.Seconds())
	c.waveLive.Set(float64(s.Wave.Live))
	c.players.Set(float64(s.Players))

	c.liveUnits.Set(float64(s.Spawn.Live))
	c.ceiling.Set(float64(s.Spawn.Ceiling))
	c.frameRate.Set(s.Spawn.FrameRate)
	c.pendingJobs.Set(float64(s.Spawn.PendingJobs))
	c.efficiency.Set(s.Spawn.Efficiency())
	for _, p := range s.Spawn.Points {
		c.pointLive.WithLabelValues(strconv.FormatInt(p.ID, 10)).Set(float64(p.Live))
	}

	now := totals{
		produced:    s.Spawn.TotalProduced,
		killed:      s.Spawn.TotalKilled,
		despawned:   s.Spawn.TotalDespawned,
		failed:      s.Spawn.FailedAttempts,
		completed:   s.Waves.WavesCompleted,
		failedWaves: s.Waves.WavesFailed,
	}
	addDelta(c.produced, now.produced, c.last.produced)
	addDelta(c.killed, now.killed, c.last.killed)
	addDelta(c.despawned, now.despawned, c.last.despawned)
	addDelta(c.failedAttempts, now.failed, c.last.failed)
	addDelta(c.wavesCompleted, int64(now.completed), int64(c.last.completed))
	addDelta(c.wavesFailed, int64(now.failedWaves), int64(c.last.failedWaves))
	c.last = now
}

func addDelta(c prometheus.Counter, now, last int64) {
	if d := now - last; d > 0 {
		c.Add(float64(d))
	}
}
