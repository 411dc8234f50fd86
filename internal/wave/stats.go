package wave

import (
	"time"

	"github.com/udisondev/wavekeeper/internal/model"
)

// WaveRecord is the history entry of a finished wave.
type WaveRecord struct {
	Number    int32
	Name      string
	Outcome   Outcome
	Reason    string
	Duration  time.Duration
	Requested int32
	Spawned   int32
	Killed    int32
	EndedAt   time.Time
}

// Statistics are cumulative over the scheduler's lifetime.
type Statistics struct {
	WavesCompleted int
	WavesFailed    int
	BestTime       time.Duration // fastest completed wave
	TotalKills     int64
	TotalSpawned   int64
	History        []WaveRecord // oldest first, bounded
}

// Snapshot is the read-only projection of the running wave.
type Snapshot struct {
	Number     int32
	Name       string
	State      State
	Completion string
	Generated  bool
	Requested  int32
	Spawned    int32
	Killed     int32
	Live       int
	Elapsed    time.Duration
	Remaining  time.Duration // until the active deadline or time limit, zero if none
	Progress   float64       // 0..1
}

func (s *Scheduler) record(outcome Outcome, now time.Time, reason string) {
	rec := WaveRecord{
		Number:    s.Number(),
		Name:      s.def.Name,
		Outcome:   outcome,
		Reason:    reason,
		Duration:  now.Sub(s.started),
		Requested: s.requested,
		Spawned:   s.spawned,
		Killed:    s.killed,
		EndedAt:   now,
	}
	s.stats.History = append(s.stats.History, rec)
	if over := len(s.stats.History) - s.opts.HistorySize; over > 0 {
		s.stats.History = append(s.stats.History[:0], s.stats.History[over:]...)
	}
}

// Statistics returns a copy of the cumulative statistics.
func (s *Scheduler) Statistics() Statistics {
	st := s.stats
	st.History = append([]WaveRecord(nil), s.stats.History...)
	return st
}

// Snapshot projects the current wave as of the last tick.
func (s *Scheduler) Snapshot() Snapshot {
	snap := Snapshot{
		Number:     s.Number(),
		Name:       s.def.Name,
		State:      s.state,
		Completion: s.def.Completion.String(),
		Generated:  s.def.Generated,
		Requested:  s.requested,
		Spawned:    s.spawned,
		Killed:     s.killed,
		Live:       len(s.units),
	}

	switch s.state {
	case StatePreparing, StateResting:
		snap.Remaining = max(s.deadline.Sub(s.now), 0)
	case StateInProgress, StatePaused:
		now := s.now
		if s.state == StatePaused {
			now = s.pausedAt
		}
		snap.Elapsed = now.Sub(s.started)
		if s.def.HasTimeLimit() {
			snap.Remaining = max(s.def.TimeLimit-snap.Elapsed, 0)
		}
		snap.Progress = s.progress(snap.Elapsed)
	case StateCompleted:
		snap.Progress = 1
	}
	return snap
}

// progress is the cleared share of the requested population, or the
// elapsed share of the time limit for TimeExpired waves.
func (s *Scheduler) progress(elapsed time.Duration) float64 {
	var p float64
	if s.def.Completion == model.CompletionTimeExpired && s.def.HasTimeLimit() {
		p = float64(elapsed) / float64(s.def.TimeLimit)
	} else if s.requested > 0 {
		p = float64(s.spawned-int32(len(s.units))) / float64(s.requested)
	}
	return min(max(p, 0), 1)
}
