package telemetry

import (
	"time"

	"github.com/udisondev/wavekeeper/internal/horde"
)

type snapshotView struct {
	Tick       uint64         `json:"tick"`
	At         time.Time      `json:"at"`
	Players    int            `json:"players"`
	Wave       waveView       `json:"wave"`
	Totals     totalsView     `json:"totals"`
	Dispatcher dispatcherView `json:"dispatcher"`
	Points     []pointView    `json:"points"`
	Jobs       []jobView      `json:"jobs"`
}

type waveView struct {
	Number     int32   `json:"number"`
	Name       string  `json:"name"`
	State      string  `json:"state"`
	Completion string  `json:"completion"`
	Generated  bool    `json:"generated"`
	Requested  int32   `json:"requested"`
	Spawned    int32   `json:"spawned"`
	Killed     int32   `json:"killed"`
	Live       int     `json:"live"`
	Elapsed    float64 `json:"elapsed_seconds"`
	Remaining  float64 `json:"remaining_seconds"`
	Progress   float64 `json:"progress"`
}

type totalsView struct {
	WavesCompleted int            `json:"waves_completed"`
	WavesFailed    int            `json:"waves_failed"`
	BestTime       float64        `json:"best_time_seconds"`
	TotalKills     int64          `json:"total_kills"`
	TotalSpawned   int64          `json:"total_spawned"`
	History        []historyEntry `json:"history"`
}

type historyEntry struct {
	Number   int32   `json:"number"`
	Name     string  `json:"name"`
	Outcome  string  `json:"outcome"`
	Reason   string  `json:"reason,omitempty"`
	Duration float64 `json:"duration_seconds"`
	Spawned  int32   `json:"spawned"`
	Killed   int32   `json:"killed"`
}

type dispatcherView struct {
	State          string  `json:"state"`
	Strategy       string  `json:"strategy"`
	Live           int     `json:"live"`
	Ceiling        int     `json:"ceiling"`
	BaseCeiling    int     `json:"base_ceiling"`
	FrameRate      float64 `json:"frame_rate"`
	PendingJobs    int     `json:"pending_jobs"`
	TotalProduced  int64   `json:"total_produced"`
	TotalKilled    int64   `json:"total_killed"`
	TotalDespawned int64   `json:"total_despawned"`
	FailedAttempts int64   `json:"failed_attempts"`
	Efficiency     float64 `json:"efficiency"`
}

type pointView struct {
	ID               int64  `json:"id"`
	State            string `json:"state"`
	Live             int    `json:"live"`
	Capacity         int32  `json:"capacity"`
	TotalProduced    int64  `json:"total_produced"`
	FailedPlacements int64  `json:"failed_placements"`
}

type jobView struct {
	ID        uint64 `json:"id"`
	Wave      int32  `json:"wave"`
	Requested int32  `json:"requested"`
	Produced  int32  `json:"produced"`
	Skipped   int32  `json:"skipped"`
	Remaining int32  `json:"remaining"`
}

func newSnapshotView(s horde.Snapshot) snapshotView {
	w := s.Wave
	v := snapshotView{
		Tick:    s.Tick,
		At:      s.At,
		Players: s.Players,
		Wave: waveView{
			Number:     w.Number,
			Name:       w.Name,
			State:      w.State.String(),
			Completion: w.Completion,
			Generated:  w.Generated,
			Requested:  w.Requested,
			Spawned:    w.Spawned,
			Killed:     w.Killed,
			Live:       w.Live,
			Elapsed:    w.Elapsed.Seconds(),
			Remaining:  w.Remaining.Seconds(),
			Progress:   w.Progress,
		},
		Totals: totalsView{
			WavesCompleted: s.Waves.WavesCompleted,
			WavesFailed:    s.Waves.WavesFailed,
			BestTime:       s.Waves.BestTime.Seconds(),
			TotalKills:     s.Waves.TotalKills,
			TotalSpawned:   s.Waves.TotalSpawned,
			History:        make([]historyEntry, 0, len(s.Waves.History)),
		},
		Dispatcher: dispatcherView{
			State:          s.Spawn.State.String(),
			Strategy:       s.Spawn.Strategy.String(),
			Live:           s.Spawn.Live,
			Ceiling:        s.Spawn.Ceiling,
			BaseCeiling:    s.Spawn.BaseCeiling,
			FrameRate:      s.Spawn.FrameRate,
			PendingJobs:    s.Spawn.PendingJobs,
			TotalProduced:  s.Spawn.TotalProduced,
			TotalKilled:    s.Spawn.TotalKilled,
			TotalDespawned: s.Spawn.TotalDespawned,
			FailedAttempts: s.Spawn.FailedAttempts,
			Efficiency:     s.Spawn.Efficiency(),
		},
		Points: make([]pointView, 0, len(s.Spawn.Points)),
		Jobs:   make([]jobView, 0, len(s.Jobs)),
	}

	for _, h := range s.Waves.History {
		v.Totals.History = append(v.Totals.History, historyEntry{
			Number:   h.Number,
			Name:     h.Name,
			Outcome:  h.Outcome.String(),
			Reason:   h.Reason,
			Duration: h.Duration.Seconds(),
			Spawned:  h.Spawned,
			Killed:   h.Killed,
		})
	}
	for _, p := range s.Spawn.Points {
		v.Points = append(v.Points, pointView{
			ID:               p.ID,
			State:            p.State.String(),
			Live:             p.Live,
			Capacity:         p.Capacity,
			TotalProduced:    p.TotalProduced,
			FailedPlacements: p.FailedPlacements,
		})
	}
	for _, j := range s.Jobs {
		v.Jobs = append(v.Jobs, jobView{
			ID:        uint64(j.ID),
			Wave:      j.Tag,
			Requested: j.Requested,
			Produced:  j.Produced,
			Skipped:   j.Skipped,
			Remaining: j.Remaining,
		})
	}
	return v
}
