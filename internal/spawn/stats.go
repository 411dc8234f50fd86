package spawn

type counters struct {
	produced  int64
	killed    int64
	despawned int64
	failed    int64
}

// Statistics is a read-only snapshot of the dispatcher.
type Statistics struct {
	State          State
	Strategy       StrategyKind
	Live           int
	Ceiling        int
	BaseCeiling    int
	FrameRate      float64
	PendingJobs    int
	TotalProduced  int64
	TotalKilled    int64
	TotalDespawned int64
	FailedAttempts int64
	Points         []PointSnapshot
}

// Efficiency returns killed/produced, zero before the first production.
func (s Statistics) Efficiency() float64 {
	if s.TotalProduced == 0 {
		return 0
	}
	return float64(s.TotalKilled) / float64(s.TotalProduced)
}

// statsCache holds the last computed snapshot and the data version it
// was computed from.
type statsCache struct {
	version uint64
	valid   bool
	stats   Statistics
}

// touch bumps the data version; cached statistics become stale.
func (d *Dispatcher) touch() {
	d.version++
}

// Version returns the current data version.
func (d *Dispatcher) Version() uint64 {
	return d.version
}

// Statistics returns the current snapshot, recomputed only when the data
// version moved since the last call. FrameRate is always current.
func (d *Dispatcher) Statistics() Statistics {
	if !d.cache.valid || d.cache.version != d.version {
		d.cache.stats = d.computeStatistics()
		d.cache.version = d.version
		d.cache.valid = true
	}
	s := d.cache.stats
	s.FrameRate = d.frames.frameRate()
	s.Points = append([]PointSnapshot(nil), s.Points...)
	return s
}

func (d *Dispatcher) computeStatistics() Statistics {
	points := make([]PointSnapshot, 0, len(d.points))
	for _, p := range d.points {
		points = append(points, p.Snapshot())
	}
	return Statistics{
		State:          d.state,
		Strategy:       d.strategy,
		Live:           d.arena.Len(),
		Ceiling:        d.policy.Ceiling,
		BaseCeiling:    d.policy.BaseCeiling,
		PendingJobs:    len(d.jobs),
		TotalProduced:  d.counters.produced,
		TotalKilled:    d.counters.killed,
		TotalDespawned: d.counters.despawned,
		FailedAttempts: d.counters.failed,
		Points:         points,
	}
}
