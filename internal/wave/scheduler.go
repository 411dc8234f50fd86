package wave

import (
	"cmp"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/udisondev/wavekeeper/internal/model"
	"github.com/udisondev/wavekeeper/internal/spawn"
)

// AdminTag is the job tag of productions not attributed to any wave.
const AdminTag int32 = 0

// Spawner is the part of the dispatcher the scheduler drives.
type Spawner interface {
	Activate() error
	Deactivate()
	Pause()
	Resume()
	ProduceOverTime(req model.SpawnRequest, tag int32) (spawn.JobID, error)
	HasPendingJobs(tag int32) bool
	CancelJobs(tag int32) int
	Despawn(handles []model.UnitHandle) int
	Subscribe(l spawn.Listener)
}

// Options configures a Scheduler.
type Options struct {
	Waves       []model.WaveDefinition
	Loop        bool // wrap around the authored list
	Endless     bool // synthesize waves after the authored list
	Generator   GeneratorOptions
	Scaling     Scaling
	HistorySize int
}

// DefaultOptions returns the scheduler defaults without any waves.
func DefaultOptions() Options {
	return Options{
		Generator:   DefaultGeneratorOptions(),
		Scaling:     DefaultScaling(),
		HistorySize: 50,
	}
}

// Scheduler drives the wave progression: it issues every wave's spawn
// requests to the dispatcher, counts the wave's population from the
// dispatcher events and decides when a wave is completed or failed.
//
// Like the dispatcher it is driven from a single tick loop and is not
// safe for concurrent use.
type Scheduler struct {
	opts    Options
	spawner Spawner
	players spawn.PlayerRegistry
	gen     *Generator

	state    State
	now      time.Time
	index    int // absolute 0-based wave index, keeps growing when looping
	def      model.WaveDefinition
	deadline time.Time // preparation or rest deadline
	started  time.Time
	pausedAt time.Time

	requested int32
	spawned   int32
	killed    int32
	units     map[model.UnitHandle]struct{}

	stats     Statistics
	listeners []func(Event)
}

// NewScheduler creates an idle scheduler and subscribes it to the
// spawner's events. players may be nil.
func NewScheduler(opts Options, spawner Spawner, players spawn.PlayerRegistry) *Scheduler {
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultOptions().HistorySize
	}
	s := &Scheduler{
		opts:    opts,
		spawner: spawner,
		players: players,
		gen:     NewGenerator(opts.Generator, len(opts.Waves)),
		state:   StateIdle,
		units:   make(map[model.UnitHandle]struct{}),
	}
	spawner.Subscribe(s)
	return s
}

// Subscribe registers fn for state change events.
func (s *Scheduler) Subscribe(fn func(Event)) {
	s.listeners = append(s.listeners, fn)
}

// State returns the scheduler state.
func (s *Scheduler) State() State {
	return s.state
}

// Number returns the absolute 1-based number of the current wave.
func (s *Scheduler) Number() int32 {
	return int32(s.index + 1)
}

// Definition returns the definition of the current wave.
func (s *Scheduler) Definition() model.WaveDefinition {
	return s.def
}

// tag attributes dispatcher jobs and events to the current wave.
func (s *Scheduler) tag() int32 {
	return s.Number()
}

// Start activates the dispatcher and prepares the first wave.
func (s *Scheduler) Start(now time.Time) error {
	s.now = now
	if s.state != StateIdle {
		return fmt.Errorf("starting in state %s: %w", s.state, ErrInvalidState)
	}
	if len(s.opts.Waves) == 0 && !s.opts.Endless {
		slog.Warn("wave scheduler has nothing to run", "error", ErrNoWaveData)
		return fmt.Errorf("starting wave scheduler: %w", ErrNoWaveData)
	}
	return s.begin(now, 0)
}

func (s *Scheduler) begin(now time.Time, index int) error {
	if err := s.spawner.Activate(); err != nil {
		return fmt.Errorf("starting wave %d: %w", index+1, err)
	}
	s.prepare(now, index)
	return nil
}

// definition resolves the definition of an absolute wave index.
func (s *Scheduler) definition(index int) (model.WaveDefinition, bool) {
	n := len(s.opts.Waves)
	switch {
	case index < 0:
		return model.WaveDefinition{}, false
	case index < n:
		return s.opts.Waves[index], true
	case s.opts.Loop && n > 0:
		return s.opts.Waves[index%n], true
	case s.opts.Endless:
		return s.gen.Generate(index), true
	default:
		return model.WaveDefinition{}, false
	}
}

func (s *Scheduler) prepare(now time.Time, index int) {
	def, ok := s.definition(index)
	if !ok {
		s.setState(now, StateAllWavesCompleted, "no more waves")
		slog.Info("all waves completed",
			"completed", s.stats.WavesCompleted,
			"failed", s.stats.WavesFailed,
			"totalKills", s.stats.TotalKills)
		return
	}

	s.index = index
	s.def = def
	s.resetWave()
	s.deadline = now.Add(def.Preparation)
	s.setState(now, StatePreparing, "")

	slog.Info("wave preparing",
		"wave", s.Number(),
		"name", def.Name,
		"generated", def.Generated,
		"preparation", def.Preparation)
}

func (s *Scheduler) resetWave() {
	s.requested, s.spawned, s.killed = 0, 0, 0
	clear(s.units)
}

// advance starts the prepared wave: counters are reset and every request
// is scaled and handed to the dispatcher as a production job.
func (s *Scheduler) advance(now time.Time) {
	s.resetWave()
	s.started = now
	s.setState(now, StateInProgress, "")

	players := 1
	if s.players != nil {
		players = s.players.Count()
	}
	mult := s.opts.Scaling.Multiplier(players, s.def.PlayerScale, s.index)

	for _, req := range s.def.Requests {
		scaled := req.WithCount(s.opts.Scaling.Count(req.Count, mult))
		if _, err := s.spawner.ProduceOverTime(scaled, s.tag()); err != nil {
			slog.Warn("wave request rejected",
				"wave", s.Number(),
				"templateID", req.TemplateID,
				"error", err)
			continue
		}
		s.requested += scaled.Count
	}

	slog.Info("wave started",
		"wave", s.Number(),
		"requested", s.requested,
		"players", players,
		"multiplier", fmt.Sprintf("%.2f", mult),
		"timeLimit", s.def.TimeLimit,
		"completion", s.def.Completion)
}

// OnUnitProduced counts productions tagged with the running wave.
func (s *Scheduler) OnUnitProduced(ev spawn.ProducedEvent) {
	if ev.Tag != s.tag() || !s.running() {
		return
	}
	s.units[ev.Handle] = struct{}{}
	s.spawned++
	s.stats.TotalSpawned++
}

// OnUnitDied counts deaths of the wave's units and completes an
// AllUnitsCleared wave as soon as its population is gone.
func (s *Scheduler) OnUnitDied(ev spawn.DiedEvent) {
	if _, ok := s.units[ev.Handle]; !ok {
		return
	}
	delete(s.units, ev.Handle)
	if ev.Cause == spawn.CauseKilled {
		s.killed++
		s.stats.TotalKills++
	}

	if s.state == StateInProgress && s.cleared() {
		s.completeWave(ev.At, "all units cleared")
	}
}

func (s *Scheduler) running() bool {
	return s.state == StateInProgress || s.state == StatePaused
}

// cleared: at least one unit produced, none alive, nothing left to produce.
func (s *Scheduler) cleared() bool {
	return s.def.Completion == model.CompletionAllUnitsCleared &&
		s.spawned > 0 &&
		len(s.units) == 0 &&
		!s.spawner.HasPendingJobs(s.tag())
}

// Tick evaluates deadlines and completion conditions. It must run
// before the dispatcher's tick.
func (s *Scheduler) Tick(now time.Time) {
	s.now = now

	switch s.state {
	case StatePreparing:
		if !now.Before(s.deadline) {
			s.advance(now)
		}
	case StateInProgress:
		s.evaluate(now)
	case StateCompleted:
		s.rest(now)
	case StateResting:
		if !now.Before(s.deadline) {
			s.prepare(now, s.index+1)
		}
	}
}

func (s *Scheduler) evaluate(now time.Time) {
	if s.players != nil && !s.players.AnyAlive() {
		s.failWave(now, "no players alive")
		return
	}

	if s.def.HasTimeLimit() && now.Sub(s.started) >= s.def.TimeLimit {
		if s.def.Completion == model.CompletionTimeExpired {
			s.completeWave(now, "time expired")
		} else {
			s.failWave(now, "time limit exceeded")
		}
		return
	}

	// jobs may have drained after the last death
	if s.cleared() {
		s.completeWave(now, "all units cleared")
	}
}

func (s *Scheduler) rest(now time.Time) {
	if _, ok := s.definition(s.index + 1); !ok || s.def.Rest <= 0 {
		s.prepare(now, s.index+1)
		return
	}
	s.setState(now, StateResting, "")
}

func (s *Scheduler) completeWave(now time.Time, reason string) {
	duration := now.Sub(s.started)
	s.spawner.CancelJobs(s.tag())

	s.stats.WavesCompleted++
	if s.stats.BestTime == 0 || duration < s.stats.BestTime {
		s.stats.BestTime = duration
	}
	s.record(OutcomeCompleted, now, reason)

	s.deadline = now.Add(s.def.Rest)
	s.setState(now, StateCompleted, reason)

	slog.Info("wave completed",
		"wave", s.Number(),
		"reason", reason,
		"duration", duration,
		"spawned", s.spawned,
		"killed", s.killed)
}

func (s *Scheduler) failWave(now time.Time, reason string) {
	s.spawner.CancelJobs(s.tag())
	s.stats.WavesFailed++
	s.record(OutcomeFailed, now, reason)
	s.setState(now, StateFailed, reason)

	n := s.teardown()
	slog.Warn("wave failed",
		"wave", s.Number(),
		"reason", reason,
		"spawned", s.spawned,
		"killed", s.killed,
		"despawned", n)
}

// teardown despawns every unit still attributed to the wave. The units
// are detached first so their death events cannot settle the wave.
func (s *Scheduler) teardown() int {
	handles := slices.SortedFunc(maps.Keys(s.units), func(a, b model.UnitHandle) int {
		return cmp.Compare(a.Slot(), b.Slot())
	})
	clear(s.units)
	return s.spawner.Despawn(handles)
}

// Restart re-prepares the current wave after a failure.
func (s *Scheduler) Restart(now time.Time) error {
	s.now = now
	if s.state != StateFailed {
		return fmt.Errorf("restarting in state %s: %w", s.state, ErrInvalidState)
	}
	slog.Info("wave restarting", "wave", s.Number())
	s.prepare(now, s.index)
	return nil
}

// Pause freezes the running wave. The wave clock stops and dispatcher
// jobs make no progress until Resume.
func (s *Scheduler) Pause(now time.Time) error {
	s.now = now
	if s.state != StateInProgress {
		return fmt.Errorf("pausing in state %s: %w", s.state, ErrInvalidState)
	}
	s.pausedAt = now
	s.spawner.Pause()
	s.setState(now, StatePaused, "")
	return nil
}

// Resume continues a paused wave; its start time and deadlines shift by
// the paused duration.
func (s *Scheduler) Resume(now time.Time) error {
	s.now = now
	if s.state != StatePaused {
		return fmt.Errorf("resuming in state %s: %w", s.state, ErrInvalidState)
	}
	shift := now.Sub(s.pausedAt)
	s.started = s.started.Add(shift)
	s.deadline = s.deadline.Add(shift)
	s.spawner.Resume()
	s.setState(now, StateInProgress, "")

	slog.Debug("wave resumed", "wave", s.Number(), "paused", shift)
	return nil
}

// Stop cancels the current wave's pending productions and deactivates
// the dispatcher. Live units stay until cleared explicitly.
func (s *Scheduler) Stop(now time.Time) {
	s.now = now
	if s.state == StateIdle {
		return
	}
	if s.running() {
		s.record(OutcomeAborted, now, "stopped")
	}
	s.spawner.CancelJobs(s.tag())
	s.spawner.Deactivate()
	clear(s.units)
	s.setState(now, StateIdle, "stopped")
	slog.Info("wave scheduler stopped", "wave", s.Number())
}

// JumpTo abandons the current wave and prepares wave number n (1-based).
func (s *Scheduler) JumpTo(now time.Time, n int32) error {
	s.now = now
	index := int(n) - 1
	if _, ok := s.definition(index); !ok {
		return fmt.Errorf("jumping to wave %d: %w", n, ErrInvalidWave)
	}

	if s.running() {
		if s.state == StatePaused {
			s.spawner.Resume()
		}
		s.record(OutcomeAborted, now, fmt.Sprintf("jumped to wave %d", n))
		s.spawner.CancelJobs(s.tag())
		s.teardown()
	}

	slog.Info("jumping to wave", "from", s.Number(), "to", n)
	return s.begin(now, index)
}

// ForceSpawn schedules an extra request. While a wave runs the units
// count toward it; otherwise they are unattributed.
func (s *Scheduler) ForceSpawn(req model.SpawnRequest) (spawn.JobID, error) {
	tag := AdminTag
	if s.running() {
		tag = s.tag()
	}
	id, err := s.spawner.ProduceOverTime(req, tag)
	if err != nil {
		return 0, fmt.Errorf("forcing spawn of %d units: %w", req.Count, err)
	}
	if tag != AdminTag {
		s.requested += req.Count
	}
	slog.Info("forced spawn scheduled",
		"wave", tag,
		"templateID", req.TemplateID,
		"count", req.Count,
		"interval", req.Interval)
	return id, nil
}

func (s *Scheduler) setState(now time.Time, to State, reason string) {
	if s.state == to {
		return
	}
	ev := Event{Wave: s.Number(), From: s.state, To: to, At: now, Reason: reason}
	s.state = to

	slog.Debug("wave state changed", "wave", ev.Wave, "from", ev.From, "to", ev.To, "reason", reason)
	for _, fn := range s.listeners {
		fn(ev)
	}
}
