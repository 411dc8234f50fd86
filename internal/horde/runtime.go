// Package horde assembles the wave scheduler, the spawn dispatcher and
// the in-memory world into one tick-driven runtime.
package horde

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/udisondev/wavekeeper/internal/model"
	"github.com/udisondev/wavekeeper/internal/spawn"
	"github.com/udisondev/wavekeeper/internal/wave"
	"github.com/udisondev/wavekeeper/internal/world"
)

// Options configures a Runtime.
type Options struct {
	TickInterval  time.Duration
	AdminTemplate int32   // template for forced spawns outside a wave
	AttritionRate float64 // simulated kills per second, zero disables
	Seed          uint64

	Bounds    world.Bounds
	GroundZ   int32
	Heights   []model.Location // surface Z of the region containing each X, Y
	Obstacles []world.Obstacle

	Players    []Player // joined at construction
	Points     []model.SpawnPointDescriptor
	Dispatcher spawn.Options
	Scheduler  wave.Options
}

// Player is a player present from the start.
type Player struct {
	Name     string
	Location model.Location
}

// DefaultOptions returns a runtime ticking at 10 Hz.
func DefaultOptions() Options {
	return Options{
		TickInterval:  100 * time.Millisecond,
		AdminTemplate: 20101,
		Bounds:        world.DefaultBounds(),
		Dispatcher:    spawn.DefaultOptions(),
		Scheduler:     wave.DefaultOptions(),
	}
}

// Runtime owns the whole population pipeline and is the single arbiter
// for it: ticks, admin commands and snapshot queries are serialised by
// one mutex, so the tiers below stay single-threaded.
type Runtime struct {
	mu sync.Mutex

	dispatcher *spawn.Dispatcher
	scheduler  *wave.Scheduler
	players    *world.Players
	units      *world.Units
	terrain    *world.Terrain
	monitor    *world.FrameMonitor
	attrition  *world.Attrition

	interval      time.Duration
	adminTemplate int32
	clock         func() time.Time

	lastTick time.Time
	ticks    uint64

	stopCh   chan struct{}
	stopOnce sync.Once
}

// New builds the world collaborators, the dispatcher with its spawn
// points and the scheduler on top.
func New(opts Options) (*Runtime, error) {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultOptions().TickInterval
	}

	ids := world.NewIDGenerator()
	terrain := world.NewTerrain(opts.Bounds, opts.GroundZ)
	for _, h := range opts.Heights {
		terrain.SetRegionHeight(h.X, h.Y, h.Z)
	}
	for _, o := range opts.Obstacles {
		terrain.AddObstacle(o)
	}
	players := world.NewPlayers(ids)
	for _, p := range opts.Players {
		players.Join(p.Name, p.Location)
	}
	units := world.NewUnits(ids, terrain)
	monitor := &world.FrameMonitor{}

	if opts.Dispatcher.Seed == 0 {
		opts.Dispatcher.Seed = opts.Seed
	}
	d := spawn.NewDispatcher(opts.Dispatcher, spawn.Deps{
		Factory: units,
		Players: players,
		Monitor: monitor,
		Terrain: terrain,
	})
	for _, desc := range opts.Points {
		if _, err := d.RegisterPoint(desc); err != nil {
			return nil, fmt.Errorf("building runtime: %w", err)
		}
	}
	units.SetDeathHandler(func(id model.UnitID) { d.UnitDied(id) })

	r := &Runtime{
		dispatcher:    d,
		scheduler:     wave.NewScheduler(opts.Scheduler, d, players),
		players:       players,
		units:         units,
		terrain:       terrain,
		monitor:       monitor,
		interval:      opts.TickInterval,
		adminTemplate: opts.AdminTemplate,
		clock:         time.Now,
		stopCh:        make(chan struct{}),
	}
	if opts.AttritionRate > 0 {
		r.attrition = world.NewAttrition(units, opts.AttritionRate, opts.Seed)
	}

	r.scheduler.Subscribe(func(ev wave.Event) {
		slog.Info("wave state changed",
			"wave", ev.Wave,
			"from", ev.From,
			"to", ev.To,
			"reason", ev.Reason)
	})

	slog.Info("runtime built",
		"points", len(opts.Points),
		"waves", len(opts.Scheduler.Waves),
		"loop", opts.Scheduler.Loop,
		"endless", opts.Scheduler.Endless,
		"strategy", opts.Dispatcher.Strategy)
	return r, nil
}

// Players returns the player registry.
func (r *Runtime) Players() *world.Players {
	return r.players
}

// Units returns the unit registry.
func (r *Runtime) Units() *world.Units {
	return r.units
}

// Begin starts the wave scheduler. Scheduler errors leave it idle, as
// they would for any later attempt.
func (r *Runtime) Begin(now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastTick = now
	if err := r.scheduler.Start(now); err != nil {
		return fmt.Errorf("beginning waves: %w", err)
	}
	return nil
}

// Tick runs one frame: simulated attrition, then the scheduler
// evaluation, then the dispatcher (adaptation, points, production jobs).
// The frame's work time feeds the frame monitor.
func (r *Runtime) Tick(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// the dispatcher samples the previous frame
	began := r.clock()
	r.lastTick = now
	r.ticks++

	if r.attrition != nil {
		r.attrition.Tick(now)
	}
	r.scheduler.Tick(now)
	r.dispatcher.Tick(now)

	r.monitor.Record(r.clock().Sub(began))
}

// Start begins the waves and runs the tick loop until ctx is cancelled
// or Stop is called.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.Begin(r.clock()); err != nil {
		// the admin surface can still jump to a wave
		slog.Error("wave scheduler did not start", "error", err)
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	slog.Info("runtime tick loop started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.halt()
			slog.Info("runtime tick loop stopping")
			return ctx.Err()

		case <-r.stopCh:
			r.halt()
			slog.Info("runtime tick loop stopped")
			return nil

		case t := <-ticker.C:
			r.Tick(t)
		}
	}
}

// Stop ends the tick loop. Safe to call more than once.
func (r *Runtime) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

func (r *Runtime) halt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheduler.Stop(r.nowLocked())
}

// nowLocked is the time admin commands act at: the last tick, so
// deadlines stay on the tick timeline.
func (r *Runtime) nowLocked() time.Time {
	if r.lastTick.IsZero() {
		return r.clock()
	}
	return r.lastTick
}

// ErrNoTemplate is returned by ForceSpawnWave when no template is known.
var ErrNoTemplate = errors.New("no unit template")

// ForceSpawnWave schedules count extra units, one per interval. During a
// wave they use the wave's first template and count toward it.
func (r *Runtime) ForceSpawnWave(count int32, interval time.Duration) (spawn.JobID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	template := r.adminTemplate
	if reqs := r.scheduler.Definition().Requests; len(reqs) > 0 {
		template = reqs[0].TemplateID
	}
	if template == 0 {
		return 0, fmt.Errorf("forcing spawn: %w", ErrNoTemplate)
	}
	return r.scheduler.ForceSpawn(model.SpawnRequest{
		TemplateID: template,
		Count:      count,
		Interval:   interval,
	})
}

// ClearAllManagedUnits despawns every unit the dispatcher tracks.
func (r *Runtime) ClearAllManagedUnits() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dispatcher.ClearAll()
}

// JumpToWave abandons the current wave and prepares wave n.
func (r *Runtime) JumpToWave(n int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scheduler.JumpTo(r.nowLocked(), n)
}

// SetStrategy switches the point selection strategy.
func (r *Runtime) SetStrategy(kind spawn.StrategyKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dispatcher.SetStrategy(kind)
}

// PauseWave freezes the running wave.
func (r *Runtime) PauseWave() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scheduler.Pause(r.nowLocked())
}

// ResumeWave continues a paused wave.
func (r *Runtime) ResumeWave() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scheduler.Resume(r.nowLocked())
}

// RestartWave re-prepares a failed wave.
func (r *Runtime) RestartWave() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scheduler.Restart(r.nowLocked())
}

// StopWaves stops the scheduler and deactivates the dispatcher.
func (r *Runtime) StopWaves() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scheduler.Stop(r.nowLocked())
}

// StartWaves starts a stopped scheduler from the first wave.
func (r *Runtime) StartWaves() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scheduler.Start(r.nowLocked())
}

// KillUnit reports a unit death as the combat system would.
func (r *Runtime) KillUnit(id model.UnitID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.units.Kill(id)
}

// SetPointEnabled administratively disables or re-enables a spawn point.
func (r *Runtime) SetPointEnabled(id int64, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.dispatcher.SetPointEnabled(id, enabled)
}
