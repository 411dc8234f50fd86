package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/wavekeeper/internal/admin"
	"github.com/udisondev/wavekeeper/internal/horde"
	"github.com/udisondev/wavekeeper/internal/model"
	"github.com/udisondev/wavekeeper/internal/spawn"
	"github.com/udisondev/wavekeeper/internal/wave"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func testWave(name string, count int32) model.WaveDefinition {
	return model.WaveDefinition{
		Name:       name,
		Requests:   []model.SpawnRequest{{TemplateID: 30001, Count: count}},
		Completion: model.CompletionAllUnitsCleared,
	}
}

// newTestRuntime returns a runtime whose first wave produced three units.
func newTestRuntime(t *testing.T) *horde.Runtime {
	t.Helper()

	opts := horde.DefaultOptions()
	opts.Players = []horde.Player{{Name: "tester", Location: model.NewLocation(0, 0, 0, 0)}}
	for i := range 3 {
		opts.Points = append(opts.Points,
			model.NewSpawnPointDescriptor(int64(i+1), 20101, int32(i*1000), 0, 0, 0, 0, 50, 0))
	}
	opts.Dispatcher.Seed = 3
	opts.Dispatcher.GlobalCooldown = 0
	opts.Dispatcher.Point.Clearance = 0
	opts.Dispatcher.Policy.BaseCeiling = 100
	opts.Dispatcher.Policy.Ceiling = 100
	opts.Dispatcher.Policy.BurstCap = 0
	opts.Dispatcher.Policy.PerPlayerScale = 0
	opts.Scheduler.Waves = []model.WaveDefinition{testWave("Scouts", 3), testWave("Raiders", 5)}
	opts.Scheduler.Scaling = wave.Scaling{MinMultiplier: 1, MaxMultiplier: 1}

	rt, err := horde.New(opts)
	require.NoError(t, err)
	require.NoError(t, rt.Begin(t0))
	rt.Tick(t0.Add(100 * time.Millisecond))
	return rt
}

type testServer struct {
	*httptest.Server
	rt *horde.Runtime
}

func newTestServer(t *testing.T, mutate func(*RouterConfig)) *testServer {
	t.Helper()

	rt := newTestRuntime(t)
	reg := prometheus.NewRegistry()
	cmds := admin.NewHandler()
	admin.RegisterAll(cmds, rt)

	cfg := RouterConfig{
		Runtime:        rt,
		Commands:       cmds,
		Collector:      NewCollector(reg),
		Gatherer:       reg,
		Admin:          true,
		DisableLogging: true,
		RateLimit:      RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}
	if mutate != nil {
		mutate(&cfg)
	}

	ts := httptest.NewServer(NewRouter(cfg))
	t.Cleanup(ts.Close)
	return &testServer{Server: ts, rt: rt}
}

func (ts *testServer) post(t *testing.T, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	} else {
		buf.WriteString("{}")
	}
	resp, err := http.Post(ts.URL+path, "application/json", &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func TestRouter_Health(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestRouter_Snapshot(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var view snapshotView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, uint64(1), view.Tick)
	assert.Equal(t, 1, view.Players)
	assert.Equal(t, int32(1), view.Wave.Number)
	assert.Equal(t, "Scouts", view.Wave.Name)
	assert.Equal(t, wave.StateInProgress.String(), view.Wave.State)
	assert.Equal(t, int32(3), view.Wave.Spawned)
	assert.Equal(t, 3, view.Dispatcher.Live)
	assert.Contains(t, []string{spawn.StateActive.String(), spawn.StateWaveTransition.String()}, view.Dispatcher.State)
	assert.Len(t, view.Points, 3)
	assert.NotNil(t, view.Jobs)
	assert.NotNil(t, view.Totals.History)
}

func TestRouter_Metrics(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, "wavekeeper_units_produced_total 3")
	assert.Contains(t, text, "wavekeeper_live_units 3")
	assert.Contains(t, text, "wavekeeper_wave_number 1")
	assert.Contains(t, text, `wavekeeper_point_live_units{point="1"}`)
}

func TestRouter_MetricsDisabledWithoutCollector(t *testing.T) {
	ts := newTestServer(t, func(cfg *RouterConfig) { cfg.Collector = nil })

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_AdminDisabled(t *testing.T) {
	ts := newTestServer(t, func(cfg *RouterConfig) { cfg.Admin = false })

	resp, err := http.Post(ts.URL+"/admin/units/clear", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 3, ts.rt.Snapshot().Spawn.Live)
}

func TestRouter_Force(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"valid", map[string]any{"count": 4, "interval": "200ms"}, http.StatusAccepted},
		{"zero count", map[string]any{"count": 0}, http.StatusBadRequest},
		{"too many", map[string]any{"count": admin.MaxForcedCount + 1}, http.StatusBadRequest},
		{"bad interval", map[string]any{"count": 2, "interval": "later"}, http.StatusBadRequest},
		{"unknown field", map[string]any{"count": 2, "template": 7}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, nil)

			resp, out := ts.post(t, "/admin/waves/force", tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status != http.StatusAccepted {
				assert.Contains(t, out, "error")
				assert.Empty(t, ts.rt.Snapshot().Jobs)
				return
			}
			assert.EqualValues(t, 4, out["count"])
			jobs := ts.rt.Snapshot().Jobs
			require.Len(t, jobs, 1)
			assert.Equal(t, int32(1), jobs[0].Tag, "attributed to the running wave")
			assert.Equal(t, int32(4), jobs[0].Requested)
		})
	}
}

func TestRouter_Jump(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, out := ts.post(t, "/admin/waves/jump", map[string]any{"wave": 9})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out["error"], "invalid wave")

	resp, out = ts.post(t, "/admin/waves/jump", map[string]any{"wave": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, out["wave"])
	assert.Equal(t, "Raiders", out["name"])

	history := ts.rt.Snapshot().Waves.History
	require.Len(t, history, 1)
	assert.Equal(t, wave.OutcomeAborted, history[0].Outcome)
}

func TestRouter_Lifecycle(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, out := ts.post(t, "/admin/waves/pause", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, wave.StatePaused.String(), out["state"])

	resp, _ = ts.post(t, "/admin/waves/pause", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, out = ts.post(t, "/admin/waves/resume", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, wave.StateInProgress.String(), out["state"])

	resp, out = ts.post(t, "/admin/waves/stop", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, wave.StateIdle.String(), out["state"])

	resp, _ = ts.post(t, "/admin/waves/restart", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = ts.post(t, "/admin/waves/start", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_Clear(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, out := ts.post(t, "/admin/units/clear", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 3, out["cleared"])
	assert.Zero(t, ts.rt.Snapshot().Spawn.Live)
}

func TestRouter_Strategy(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, _ := ts.post(t, "/admin/strategy", map[string]string{"strategy": "chaos"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, out := ts.post(t, "/admin/strategy", map[string]string{"strategy": "weighted"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "weighted", out["strategy"])
	assert.Equal(t, spawn.StrategyWeighted, ts.rt.Snapshot().Spawn.Strategy)
}

func TestRouter_Points(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, out := ts.post(t, "/admin/points/2/disable", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, out["enabled"])

	for _, p := range ts.rt.Snapshot().Spawn.Points {
		if p.ID == 2 {
			assert.Equal(t, spawn.PointDisabled, p.State)
		}
	}

	resp, _ = ts.post(t, "/admin/points/2/enable", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = ts.post(t, "/admin/points/99/enable", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = ts.post(t, "/admin/points/abc/enable", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_Command(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, out := ts.post(t, "/admin/command", map[string]string{"line": "status"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, out["reply"], `Wave 1 "Scouts"`)

	resp, _ = ts.post(t, "/admin/command", map[string]string{"line": "teleport"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.post(t, "/admin/command", map[string]string{"line": "force 0"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_CommandDisabledWithoutHandler(t *testing.T) {
	ts := newTestServer(t, func(cfg *RouterConfig) { cfg.Commands = nil })

	resp, err := http.Post(ts.URL+"/admin/command", "application/json", bytes.NewBufferString(`{"line":"status"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_AdminRateLimited(t *testing.T) {
	ts := newTestServer(t, func(cfg *RouterConfig) {
		cfg.RateLimit = RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}
	})

	for range 2 {
		resp, _ := ts.post(t, "/admin/units/clear", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, out := ts.post(t, "/admin/units/clear", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
	assert.Equal(t, "too many requests", out["error"])

	// read-only routes are not limited
	for range 3 {
		r, err := http.Get(ts.URL + "/snapshot")
		require.NoError(t, err)
		r.Body.Close()
		assert.Equal(t, http.StatusOK, r.StatusCode)
	}
}

func TestRouter_CORS(t *testing.T) {
	ts := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/admin/units/clear", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", admin.ErrUsage), http.StatusBadRequest},
		{admin.ErrUnknownCommand, http.StatusBadRequest},
		{wave.ErrInvalidWave, http.StatusBadRequest},
		{spawn.ErrPointUnavailable, http.StatusNotFound},
		{fmt.Errorf("unit 7: %w", admin.ErrNoSuchUnit), http.StatusNotFound},
		{wave.ErrInvalidState, http.StatusConflict},
		{wave.ErrNoWaveData, http.StatusConflict},
		{spawn.ErrNotActive, http.StatusConflict},
		{fmt.Errorf("forcing spawn: %w", horde.ErrNoTemplate), http.StatusUnprocessableEntity},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	assert.Equal(t, "10.0.0.7", clientIP(req))

	req.Header.Set("X-Real-IP", "10.0.0.8")
	assert.Equal(t, "10.0.0.8", clientIP(req))

	req.Header.Set("X-Forwarded-For", "192.168.1.1, 10.0.0.1")
	assert.Equal(t, "192.168.1.1", clientIP(req))
}

func TestRateLimiter_PrunesIdle(t *testing.T) {
	now := t0
	rl := newIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute})
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
	assert.True(t, rl.allow("b"))
	assert.Len(t, rl.limiters, 2)

	now = now.Add(2 * time.Minute)
	assert.True(t, rl.allow("b"))
	assert.Len(t, rl.limiters, 1, "a idled out")
}

func TestServer_ServeUntilCancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(ln.Addr().String(), NewRouter(RouterConfig{Runtime: newTestRuntime(t), DisableLogging: true}))

	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServer_RunListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	err = NewServer(ln.Addr().String(), http.NotFoundHandler()).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listening on")
}
