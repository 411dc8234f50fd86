package admin

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/wavekeeper/internal/horde"
	"github.com/udisondev/wavekeeper/internal/model"
	"github.com/udisondev/wavekeeper/internal/spawn"
	"github.com/udisondev/wavekeeper/internal/wave"
)

var _ Runtime = (*horde.Runtime)(nil)

// fakeRuntime records admin calls.
type fakeRuntime struct {
	forced    []int32
	intervals []time.Duration
	forceErr  error
	cleared   int
	jumped    []int32
	jumpErr   error
	strategy  spawn.StrategyKind
	points    map[int64]bool
	alive     map[model.UnitID]bool
	calls     []string
	waveState wave.State
	lifeErr   error
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{
		points: map[int64]bool{1: true},
		alive:  map[model.UnitID]bool{0x20000001: true},
	}
}

func (f *fakeRuntime) Snapshot() horde.Snapshot {
	return horde.Snapshot{
		Players: 2,
		Wave:    wave.Snapshot{Number: 3, Name: "Raiders", State: f.waveState, Progress: 0.5, Remaining: 90 * time.Second},
		Spawn:   spawn.Statistics{Live: 7, Ceiling: 30, Strategy: f.strategy},
	}
}

func (f *fakeRuntime) ForceSpawnWave(count int32, interval time.Duration) (spawn.JobID, error) {
	if f.forceErr != nil {
		return 0, f.forceErr
	}
	f.forced = append(f.forced, count)
	f.intervals = append(f.intervals, interval)
	return spawn.JobID(len(f.forced)), nil
}

func (f *fakeRuntime) ClearAllManagedUnits() int { return f.cleared }

func (f *fakeRuntime) JumpToWave(n int32) error {
	if f.jumpErr != nil {
		return f.jumpErr
	}
	f.jumped = append(f.jumped, n)
	return nil
}

func (f *fakeRuntime) SetStrategy(kind spawn.StrategyKind) { f.strategy = kind }

func (f *fakeRuntime) PauseWave() error {
	f.calls = append(f.calls, "pause")
	f.waveState = wave.StatePaused
	return f.lifeErr
}

func (f *fakeRuntime) ResumeWave() error {
	f.calls = append(f.calls, "resume")
	f.waveState = wave.StateInProgress
	return f.lifeErr
}

func (f *fakeRuntime) RestartWave() error {
	f.calls = append(f.calls, "restart")
	return f.lifeErr
}

func (f *fakeRuntime) StopWaves() {
	f.calls = append(f.calls, "stop")
	f.waveState = wave.StateIdle
}

func (f *fakeRuntime) StartWaves() error {
	f.calls = append(f.calls, "start")
	f.waveState = wave.StatePreparing
	return f.lifeErr
}

func (f *fakeRuntime) SetPointEnabled(id int64, enabled bool) error {
	if _, ok := f.points[id]; !ok {
		return spawn.ErrPointUnavailable
	}
	f.points[id] = enabled
	return nil
}

func (f *fakeRuntime) KillUnit(id model.UnitID) bool {
	if !f.alive[id] {
		return false
	}
	f.alive[id] = false
	return true
}

func newTestHandler(rt Runtime) *Handler {
	h := NewHandler()
	RegisterAll(h, rt)
	return h
}

func TestHandler_RegisterAndNames(t *testing.T) {
	h := NewHandler()
	assert.Zero(t, h.Count())

	RegisterAll(h, newFakeRuntime())
	names := h.Names()
	assert.Contains(t, names, "force")
	assert.Contains(t, names, "forcespawn")
	assert.Contains(t, names, "jump")
	assert.Contains(t, names, "strategy")
	assert.Contains(t, names, "pause")
	assert.IsIncreasing(t, names)
	assert.Equal(t, len(names), h.Count())
}

func TestHandler_UnknownAndEmpty(t *testing.T) {
	h := newTestHandler(newFakeRuntime())

	_, err := h.Handle("   ")
	assert.ErrorIs(t, err, ErrEmptyCommand)

	_, err = h.Handle("teleport 1 2 3")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestHandler_CaseInsensitive(t *testing.T) {
	rt := newFakeRuntime()
	h := newTestHandler(rt)

	_, err := h.Handle("JUMP 4")
	require.NoError(t, err)
	assert.Equal(t, []int32{4}, rt.jumped)
}

func TestForceSpawn(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantErr  error
		count    int32
		interval time.Duration
	}{
		{"count only", "force 5", nil, 5, 0},
		{"with interval", "forcespawn 12 250ms", nil, 12, 250 * time.Millisecond},
		{"missing count", "force", ErrUsage, 0, 0},
		{"not a number", "force many", ErrUsage, 0, 0},
		{"zero", "force 0", ErrUsage, 0, 0},
		{"too many", "force 501", ErrUsage, 0, 0},
		{"bad interval", "force 3 soon", ErrUsage, 0, 0},
		{"negative interval", "force 3 -1s", ErrUsage, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := newFakeRuntime()
			h := newTestHandler(rt)

			reply, err := h.Handle(tt.line)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, err.Error(), "usage: force <count> [interval]")
				assert.Empty(t, rt.forced)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, reply, "job 1")
			assert.Equal(t, []int32{tt.count}, rt.forced)
			assert.Equal(t, []time.Duration{tt.interval}, rt.intervals)
		})
	}
}

func TestForceSpawn_RuntimeError(t *testing.T) {
	rt := newFakeRuntime()
	rt.forceErr = horde.ErrNoTemplate
	h := newTestHandler(rt)

	_, err := h.Handle("force 3")
	assert.ErrorIs(t, err, horde.ErrNoTemplate)
}

func TestClear(t *testing.T) {
	rt := newFakeRuntime()
	rt.cleared = 9
	h := newTestHandler(rt)

	reply, err := h.Handle("clear")
	require.NoError(t, err)
	assert.Equal(t, "Cleared 9 units", reply)
}

func TestJump(t *testing.T) {
	rt := newFakeRuntime()
	h := newTestHandler(rt)

	_, err := h.Handle("jump")
	assert.ErrorIs(t, err, ErrUsage)
	_, err = h.Handle("jump x")
	assert.ErrorIs(t, err, ErrUsage)

	rt.jumpErr = wave.ErrInvalidWave
	_, err = h.Handle("jump 99")
	assert.ErrorIs(t, err, wave.ErrInvalidWave)
}

func TestStrategy(t *testing.T) {
	rt := newFakeRuntime()
	h := newTestHandler(rt)

	reply, err := h.Handle("strategy farthest_from_players")
	require.NoError(t, err)
	assert.Equal(t, "Strategy set to farthest_from_players", reply)
	assert.Equal(t, spawn.StrategyFarthestFromPlayers, rt.strategy)

	_, err = h.Handle("strategy chaos")
	require.ErrorIs(t, err, ErrUsage)
	assert.Contains(t, err.Error(), "load_balanced")
}

func TestPoint(t *testing.T) {
	rt := newFakeRuntime()
	h := newTestHandler(rt)

	reply, err := h.Handle("point 1 off")
	require.NoError(t, err)
	assert.Equal(t, "Point 1 disabled", reply)
	assert.False(t, rt.points[1])

	_, err = h.Handle("point 1 enable")
	require.NoError(t, err)
	assert.True(t, rt.points[1])

	_, err = h.Handle("point 1 maybe")
	assert.ErrorIs(t, err, ErrUsage)
	_, err = h.Handle("point 2 on")
	assert.ErrorIs(t, err, spawn.ErrPointUnavailable)
}

func TestKill(t *testing.T) {
	rt := newFakeRuntime()
	h := newTestHandler(rt)

	_, err := h.Handle("kill 0x20000001")
	require.NoError(t, err)

	_, err = h.Handle("kill 0x20000001")
	assert.ErrorIs(t, err, ErrNoSuchUnit)
	assert.False(t, errors.Is(err, ErrUsage))
}

func TestStatus(t *testing.T) {
	rt := newFakeRuntime()
	rt.waveState = wave.StateInProgress
	rt.strategy = spawn.StrategyWeighted
	h := newTestHandler(rt)

	reply, err := h.Handle("status")
	require.NoError(t, err)
	assert.Contains(t, reply, `Wave 3 "Raiders": IN_PROGRESS, progress 50%, 1m30s remaining`)
	assert.Contains(t, reply, "Units: 7 live / ceiling 30")
	assert.Contains(t, reply, "strategy weighted")
	assert.Contains(t, reply, "players 2")
}

func TestLifecycle(t *testing.T) {
	rt := newFakeRuntime()
	h := newTestHandler(rt)

	reply, err := h.Handle("pause")
	require.NoError(t, err)
	assert.Equal(t, "Wave is now PAUSED", reply)

	for _, verb := range []string{"resume", "restart", "stop", "start"} {
		_, err := h.Handle(verb)
		require.NoError(t, err, verb)
	}
	assert.Equal(t, []string{"pause", "resume", "restart", "stop", "start"}, rt.calls)

	rt.lifeErr = wave.ErrInvalidState
	_, err = h.Handle("restart")
	assert.ErrorIs(t, err, wave.ErrInvalidState)
}

func TestHelp(t *testing.T) {
	h := newTestHandler(newFakeRuntime())

	reply, err := h.Handle("help")
	require.NoError(t, err)
	assert.Contains(t, reply, "force <count> [interval]")
	assert.Contains(t, reply, "pause|resume|restart|stop|start")
	assert.Equal(t, 1, strings.Count(reply, "jump <wave>"), "aliases listed once")
}
