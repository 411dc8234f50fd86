package horde

import (
	"time"

	"github.com/udisondev/wavekeeper/internal/spawn"
	"github.com/udisondev/wavekeeper/internal/wave"
)

// Snapshot is a consistent view of every tier, taken under the runtime lock.
type Snapshot struct {
	Tick    uint64
	At      time.Time
	Players int
	Wave    wave.Snapshot
	Waves   wave.Statistics
	Spawn   spawn.Statistics
	Jobs    []spawn.JobProgress
}

// Snapshot returns the state as of the last tick.
func (r *Runtime) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Snapshot{
		Tick:    r.ticks,
		At:      r.lastTick,
		Players: r.players.Count(),
		Wave:    r.scheduler.Snapshot(),
		Waves:   r.scheduler.Statistics(),
		Spawn:   r.dispatcher.Statistics(),
		Jobs:    r.dispatcher.Jobs(),
	}
}
