package spawn

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/wavekeeper/internal/model"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// fakeFactory hands out sequential object IDs like the game server does.
type fakeFactory struct {
	nextID    model.UnitID
	spawned   []model.Location
	despawned []model.UnitID
	err       error
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{nextID: 100000}
}

func (f *fakeFactory) SpawnUnitAt(_ int32, loc model.Location) (model.UnitID, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.nextID++
	f.spawned = append(f.spawned, loc)
	return f.nextID, nil
}

func (f *fakeFactory) Despawn(id model.UnitID) {
	f.despawned = append(f.despawned, id)
}

type fakePlayers struct {
	positions []model.Location
	dead      bool
}

func (p *fakePlayers) Positions() []model.Location { return p.positions }
func (p *fakePlayers) Count() int                  { return len(p.positions) }
func (p *fakePlayers) AnyAlive() bool              { return !p.dead && len(p.positions) > 0 }

type fakeMonitor struct {
	frame time.Duration
}

func (m *fakeMonitor) FrameTime() time.Duration { return m.frame }

type fakeTerrain struct {
	blocked   bool
	noSurface bool
	height    int32
	calls     int
}

func (t *fakeTerrain) Project(loc model.Location) (model.Location, bool) {
	t.calls++
	if t.noSurface {
		return model.Location{}, false
	}
	return loc.WithCoordinates(loc.X, loc.Y, t.height), true
}

func (t *fakeTerrain) Blocked(model.Location, int32) bool { return t.blocked }

// recorder collects dispatcher events.
type recorder struct {
	produced []ProducedEvent
	died     []DiedEvent
}

func (r *recorder) OnUnitProduced(ev ProducedEvent) { r.produced = append(r.produced, ev) }
func (r *recorder) OnUnitDied(ev DiedEvent)         { r.died = append(r.died, ev) }

type testEnv struct {
	d       *Dispatcher
	factory *fakeFactory
	players *fakePlayers
	monitor *fakeMonitor
	terrain *fakeTerrain
	events  *recorder
	now     time.Time
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Seed = 42
	opts.GlobalCooldown = 0
	opts.Strategy = StrategyRandom
	opts.Policy.BaseCeiling = 100
	opts.Policy.Ceiling = 100
	opts.Policy.BurstCap = 0
	opts.Policy.MinCeiling = 1
	return opts
}

func newTestEnv(t *testing.T, opts Options, descs ...model.SpawnPointDescriptor) *testEnv {
	t.Helper()

	env := &testEnv{
		factory: newFakeFactory(),
		players: &fakePlayers{positions: []model.Location{model.NewLocation(0, 0, 0, 0)}},
		monitor: &fakeMonitor{},
		terrain: &fakeTerrain{},
		events:  &recorder{},
		now:     t0,
	}
	env.d = NewDispatcher(opts, Deps{
		Factory: env.factory,
		Players: env.players,
		Monitor: env.monitor,
		Terrain: env.terrain,
	})
	env.d.Subscribe(env.events)

	for _, desc := range descs {
		_, err := env.d.RegisterPoint(desc)
		require.NoError(t, err, "RegisterPoint(%d)", desc.ID)
	}
	if len(descs) > 0 {
		require.NoError(t, env.d.Activate())
	}
	env.d.Tick(env.now)
	return env
}

// advance ticks the dispatcher in steps until total has elapsed.
func (e *testEnv) advance(total, step time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += step {
		e.now = e.now.Add(step)
		e.d.Tick(e.now)
	}
}

func (e *testEnv) kill(h model.UnitHandle) bool {
	rec, ok := e.d.arena.Get(h)
	if !ok {
		return false
	}
	return e.d.UnitDied(rec.UnitID)
}

func pointAt(id int64, x, y int32, capacity int32, cooldown time.Duration) model.SpawnPointDescriptor {
	return model.NewSpawnPointDescriptor(id, 20101, x, y, 0, 0, 0, capacity, cooldown)
}

var errFactoryDown = errors.New("factory down")
