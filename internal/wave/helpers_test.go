package wave

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/wavekeeper/internal/model"
	"github.com/udisondev/wavekeeper/internal/spawn"
	"github.com/udisondev/wavekeeper/internal/world"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// harness wires a scheduler to a real dispatcher and the in-memory world.
type harness struct {
	t       *testing.T
	d       *spawn.Dispatcher
	s       *Scheduler
	units   *world.Units
	players *world.Players
	player  uint32
	events  []Event
	now     time.Time
}

func flatScaling() Scaling {
	return Scaling{MinMultiplier: 1, MaxMultiplier: 1}
}

func testOptions(waves ...model.WaveDefinition) Options {
	opts := DefaultOptions()
	opts.Waves = waves
	opts.Scaling = flatScaling()
	return opts
}

func newHarness(t *testing.T, opts Options, points int) *harness {
	t.Helper()

	ids := world.NewIDGenerator()
	h := &harness{
		t:       t,
		units:   world.NewUnits(ids, nil),
		players: world.NewPlayers(ids),
		now:     t0,
	}
	h.player = h.players.Join("tester", model.NewLocation(0, 0, 0, 0))

	dopts := spawn.DefaultOptions()
	dopts.Seed = 7
	dopts.GlobalCooldown = 0
	dopts.Strategy = spawn.StrategyLoadBalanced
	dopts.Policy.BaseCeiling = 100
	dopts.Policy.Ceiling = 100
	dopts.Policy.BurstCap = 0
	dopts.Policy.MinCeiling = 1
	dopts.Policy.PerPlayerScale = 0

	h.d = spawn.NewDispatcher(dopts, spawn.Deps{Factory: h.units, Players: h.players})
	for i := range points {
		desc := model.NewSpawnPointDescriptor(int64(i+1), 20101, int32(i*1000), 0, 0, 0, 0, 50, 0)
		_, err := h.d.RegisterPoint(desc)
		require.NoError(t, err)
	}
	h.units.SetDeathHandler(func(id model.UnitID) { h.d.UnitDied(id) })

	h.s = NewScheduler(opts, h.d, h.players)
	h.s.Subscribe(func(ev Event) { h.events = append(h.events, ev) })
	return h
}

// tick runs one frame in the runtime order: scheduler, then dispatcher.
func (h *harness) tick(step time.Duration) {
	h.now = h.now.Add(step)
	h.s.Tick(h.now)
	h.d.Tick(h.now)
}

func (h *harness) run(total, step time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += step {
		h.tick(step)
	}
}

func (h *harness) start() {
	h.t.Helper()
	require.NoError(h.t, h.s.Start(h.now))
}

func (h *harness) killAll() int {
	n := 0
	for _, id := range h.units.IDs() {
		if h.units.Kill(id) {
			n++
		}
	}
	return n
}

// clearCurrent ticks the current wave into progress, lets its jobs drain
// and kills everything it produced.
func (h *harness) clearCurrent() {
	h.t.Helper()
	for range 100 {
		h.tick(100 * time.Millisecond)
		if h.s.State() == StateInProgress && !h.d.HasPendingJobs(h.s.Number()) {
			break
		}
	}
	require.Equal(h.t, StateInProgress, h.s.State())
	h.killAll()
	require.Equal(h.t, StateCompleted, h.s.State())
}

func lastEvent(t *testing.T, events []Event) Event {
	t.Helper()
	require.NotEmpty(t, events)
	return events[len(events)-1]
}

func simpleWave(name string, count int32, interval time.Duration) model.WaveDefinition {
	return model.WaveDefinition{
		Name:       name,
		Requests:   []model.SpawnRequest{{TemplateID: 20101, Count: count, Interval: interval}},
		Completion: model.CompletionAllUnitsCleared,
	}
}
