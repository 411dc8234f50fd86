package spawn

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/udisondev/wavekeeper/internal/model"
)

// State is the dispatcher lifecycle state.
type State int32

const (
	// StateInactive - not accepting production
	StateInactive State = iota
	// StateActive - accepting production
	StateActive
	// StatePaused - temporarily not accepting production, jobs frozen
	StatePaused
	// StateWaveTransition - active while production jobs are being expanded
	StateWaveTransition
	// StateError - activation attempted without spawn points (terminal)
	StateError
)

// String returns human-readable state name
func (s State) String() string {
	switch s {
	case StateInactive:
		return "INACTIVE"
	case StateActive:
		return "ACTIVE"
	case StatePaused:
		return "PAUSED"
	case StateWaveTransition:
		return "WAVE_TRANSITION"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Options configures a Dispatcher.
type Options struct {
	Strategy       StrategyKind
	Policy         AdaptivePolicy
	GlobalCooldown time.Duration
	AdaptInterval  time.Duration
	FrameWindow    int
	Point          PointOptions
	Seed           uint64
}

// DefaultOptions returns the dispatcher defaults.
func DefaultOptions() Options {
	return Options{
		Strategy:       StrategyWeighted,
		Policy:         DefaultAdaptivePolicy(),
		GlobalCooldown: 100 * time.Millisecond,
		AdaptInterval:  time.Second,
		FrameWindow:    60,
		Point:          DefaultPointOptions(),
	}
}

// Deps are the collaborators of the dispatcher. Players, Monitor and
// Terrain may be nil.
type Deps struct {
	Factory UnitFactory
	Players PlayerRegistry
	Monitor PerformanceMonitor
	Terrain Terrain
}

// Dispatcher owns the spawn points, gates every production through a
// single admission check and relays production/death events upward.
//
// Not safe for concurrent use: it is driven from one tick loop and the
// owner serialises all calls.
type Dispatcher struct {
	opts Options
	deps Deps
	rng  *rand.Rand

	arena  *model.UnitArena
	points []*Point
	byID   map[int64]*Point
	byUnit map[model.UnitID]model.UnitHandle

	state          State
	now            time.Time
	hasProduced    bool
	lastProduction time.Time

	policy    AdaptivePolicy
	throttle  int // current back-off below the player-scaled ceiling
	frames    *frameWindow
	nextAdapt time.Time

	strategy   StrategyKind
	strategies map[StrategyKind]Strategy

	listeners []Listener

	jobs      []*job
	nextJobID JobID

	counters counters
	version  uint64
	cache    statsCache
}

// NewDispatcher creates an inactive dispatcher.
func NewDispatcher(opts Options, deps Deps) *Dispatcher {
	if opts.AdaptInterval <= 0 {
		opts.AdaptInterval = time.Second
	}
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	d := &Dispatcher{
		opts:       opts,
		deps:       deps,
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		arena:      model.NewUnitArena(opts.Policy.BaseCeiling * 2),
		byID:       make(map[int64]*Point, 64),
		byUnit:     make(map[model.UnitID]model.UnitHandle, opts.Policy.BaseCeiling*2),
		state:      StateInactive,
		policy:     opts.Policy,
		frames:     newFrameWindow(opts.FrameWindow),
		strategy:   opts.Strategy,
		strategies: make(map[StrategyKind]Strategy, len(AllStrategies)),
	}
	if d.policy.Ceiling <= 0 {
		d.policy.Ceiling = d.policy.BaseCeiling
	}
	return d
}

// RegisterPoint adds a spawn point. Points registered while the
// dispatcher runs are activated immediately.
func (d *Dispatcher) RegisterPoint(desc model.SpawnPointDescriptor) (*Point, error) {
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("registering spawn point: %w", err)
	}
	if _, ok := d.byID[desc.ID]; ok {
		return nil, fmt.Errorf("registering spawn point %d: %w", desc.ID, ErrDuplicatePoint)
	}

	p := newPoint(desc, len(d.points), d.arena, d.deps.Factory, d.deps.Terrain, d.rng, d.opts.Point)
	d.points = append(d.points, p)
	d.byID[desc.ID] = p
	if d.accepting() || d.state == StatePaused {
		p.Activate(d.now)
	}
	d.touch()

	slog.Debug("spawn point registered",
		"pointID", desc.ID,
		"templateID", desc.TemplateID,
		"capacity", desc.Capacity,
		"location", desc.Location)
	return p, nil
}

// Point returns a registered point by ID.
func (d *Dispatcher) Point(id int64) (*Point, bool) {
	p, ok := d.byID[id]
	return p, ok
}

// Points returns the registered points in registration order.
func (d *Dispatcher) Points() []*Point {
	out := make([]*Point, len(d.points))
	copy(out, d.points)
	return out
}

// SetPointEnabled administratively disables or re-enables a point.
func (d *Dispatcher) SetPointEnabled(id int64, enabled bool) error {
	p, ok := d.byID[id]
	if !ok {
		return fmt.Errorf("spawn point %d: %w", id, ErrPointUnavailable)
	}
	if enabled {
		p.Enable(d.now)
	} else {
		p.Disable()
	}
	d.touch()
	return nil
}

// Subscribe registers a listener for produced/died events.
func (d *Dispatcher) Subscribe(l Listener) {
	d.listeners = append(d.listeners, l)
}

// State returns the dispatcher state.
func (d *Dispatcher) State() State {
	return d.state
}

// Now returns the time of the last tick.
func (d *Dispatcher) Now() time.Time {
	return d.now
}

// Policy returns a copy of the current adaptive policy.
func (d *Dispatcher) Policy() AdaptivePolicy {
	return d.policy
}

// Ceiling returns the currently effective concurrency ceiling.
func (d *Dispatcher) Ceiling() int {
	return d.policy.Ceiling
}

// LiveCount returns the number of live managed units.
func (d *Dispatcher) LiveCount() int {
	return d.arena.Len()
}

// Alive reports whether h refers to a live unit.
func (d *Dispatcher) Alive(h model.UnitHandle) bool {
	return d.arena.Alive(h)
}

// Activate starts accepting production. With no registered points the
// dispatcher enters StateError and stays there.
func (d *Dispatcher) Activate() error {
	switch d.state {
	case StateError:
		return fmt.Errorf("activating dispatcher: %w", ErrNoResources)
	case StateActive, StateWaveTransition:
		return nil
	}
	if len(d.points) == 0 {
		d.setState(StateError)
		slog.Error("spawn dispatcher activation failed", "error", ErrNoResources)
		return fmt.Errorf("activating dispatcher: %w", ErrNoResources)
	}

	for _, p := range d.points {
		p.Activate(d.now)
	}
	d.Adapt()
	d.setState(d.runningState())
	return nil
}

// Deactivate stops all production immediately: pending jobs are
// cancelled and every point is deactivated. Live units are kept.
func (d *Dispatcher) Deactivate() {
	if d.state == StateError {
		return
	}
	cancelled := d.CancelAllJobs()
	for _, p := range d.points {
		p.Deactivate()
	}
	d.setState(StateInactive)
	slog.Info("spawn dispatcher deactivated", "cancelledJobs", cancelled, "live", d.arena.Len())
}

// Pause freezes admission and job progress.
func (d *Dispatcher) Pause() {
	if d.accepting() {
		d.setState(StatePaused)
	}
}

// Resume undoes Pause.
func (d *Dispatcher) Resume() {
	if d.state == StatePaused {
		d.setState(d.runningState())
	}
}

func (d *Dispatcher) accepting() bool {
	return d.state == StateActive || d.state == StateWaveTransition
}

func (d *Dispatcher) runningState() State {
	if len(d.jobs) > 0 {
		return StateWaveTransition
	}
	return StateActive
}

func (d *Dispatcher) setState(s State) {
	if d.state == s {
		return
	}
	slog.Debug("spawn dispatcher state changed", "from", d.state, "to", s)
	d.state = s
	d.touch()
}

// Strategy returns the active selection strategy.
func (d *Dispatcher) Strategy() StrategyKind {
	return d.strategy
}

// SetStrategy switches the selection strategy. Strategy instances (and
// the sequential cursor) survive switching back and forth.
func (d *Dispatcher) SetStrategy(kind StrategyKind) {
	if d.strategy == kind {
		return
	}
	slog.Info("spawn strategy changed", "from", d.strategy, "to", kind)
	d.strategy = kind
	d.touch()
}

func (d *Dispatcher) strategyImpl() Strategy {
	s, ok := d.strategies[d.strategy]
	if !ok {
		s = NewStrategy(d.strategy)
		d.strategies[d.strategy] = s
	}
	return s
}

// admission is the single gate every production path passes.
func (d *Dispatcher) admission() error {
	if !d.accepting() {
		return fmt.Errorf("state %s: %w", d.state, ErrNotActive)
	}
	live := d.arena.Len()
	if live >= d.policy.Ceiling {
		return fmt.Errorf("live %d, ceiling %d: %w", live, d.policy.Ceiling, ErrConcurrencyLimitReached)
	}
	if d.policy.BurstCap > 0 && live >= d.policy.BurstCap {
		return fmt.Errorf("live %d, burst cap %d: %w", live, d.policy.BurstCap, ErrConcurrencyLimitReached)
	}
	if d.hasProduced && d.now.Sub(d.lastProduction) < d.opts.GlobalCooldown {
		return fmt.Errorf("%s since last production: %w", d.now.Sub(d.lastProduction), ErrGlobalCooldown)
	}
	return nil
}

// Admit reports whether a production would be admitted right now.
func (d *Dispatcher) Admit() bool {
	return d.admission() == nil
}

// ValidPoints returns the points whose deterministic gates pass now.
func (d *Dispatcher) ValidPoints() []*Point {
	out := make([]*Point, 0, len(d.points))
	for _, p := range d.points {
		if p.Available(d.now) {
			out = append(out, p)
		}
	}
	return out
}

// SelectPoint runs the active strategy over the valid points.
func (d *Dispatcher) SelectPoint() (*Point, bool) {
	p := d.strategyImpl().Select(d.selection(d.ValidPoints()))
	return p, p != nil
}

func (d *Dispatcher) selection(candidates []*Point) Selection {
	var players []model.Location
	if d.deps.Players != nil {
		players = d.deps.Players.Positions()
	}
	return Selection{
		Candidates: candidates,
		Players:    players,
		Policy:     d.policy,
		Rand:       d.rng,
	}
}

// ProduceAt produces one unit at p with its default template.
func (d *Dispatcher) ProduceAt(p *Point) (model.UnitHandle, error) {
	return d.produce(p, 0, 0, false)
}

// ForceProduceAt skips the point's readiness gates but not admission.
func (d *Dispatcher) ForceProduceAt(p *Point) (model.UnitHandle, error) {
	return d.produce(p, 0, 0, true)
}

// ProduceAtSelected produces one unit at a strategy-selected point.
func (d *Dispatcher) ProduceAtSelected() (model.UnitHandle, error) {
	h, _, err := d.produceSelected(0, 0)
	return h, err
}

func (d *Dispatcher) produceSelected(templateID, tag int32) (model.UnitHandle, *Point, error) {
	if err := d.admission(); err != nil {
		return model.UnitHandle{}, nil, err
	}
	p, ok := d.SelectPoint()
	if !ok {
		return model.UnitHandle{}, nil, fmt.Errorf("no valid spawn point among %d: %w", len(d.points), ErrPointUnavailable)
	}
	h, err := d.produce(p, templateID, tag, false)
	return h, p, err
}

func (d *Dispatcher) produce(p *Point, templateID, tag int32, force bool) (model.UnitHandle, error) {
	if p == nil || d.byID[p.ID()] != p {
		return model.UnitHandle{}, fmt.Errorf("unknown spawn point: %w", ErrPointUnavailable)
	}
	if !force && !p.Available(d.now) {
		return model.UnitHandle{}, fmt.Errorf("point %d (%s): %w", p.ID(), p.State(), ErrPointUnavailable)
	}
	if err := d.admission(); err != nil {
		return model.UnitHandle{}, err
	}

	var (
		h   model.UnitHandle
		err error
	)
	if force {
		h, err = p.ForceProduce(d.now, templateID)
	} else {
		h, err = p.Produce(d.now, templateID)
	}
	if err != nil {
		d.counters.failed++
		d.touch()
		return model.UnitHandle{}, err
	}

	rec, _ := d.arena.Get(h)
	d.byUnit[rec.UnitID] = h
	d.hasProduced = true
	d.lastProduction = d.now
	d.counters.produced++
	d.touch()

	slog.Debug("unit produced",
		"unitID", rec.UnitID,
		"pointID", p.ID(),
		"templateID", rec.TemplateID,
		"tag", tag,
		"live", d.arena.Len(),
		"ceiling", d.policy.Ceiling)

	ev := ProducedEvent{
		Handle:     h,
		UnitID:     rec.UnitID,
		PointID:    p.ID(),
		TemplateID: rec.TemplateID,
		Location:   rec.Location,
		Tag:        tag,
		At:         d.now,
	}
	for _, l := range d.listeners {
		l.OnUnitProduced(ev)
	}
	return h, nil
}

// BatchResult reports a multi-unit production. Partial success is a
// normal outcome.
type BatchResult struct {
	Requested int
	Handles   []model.UnitHandle
	Failures  int
	LastErr   error
}

// Produced returns how many units were actually created.
func (r BatchResult) Produced() int {
	return len(r.Handles)
}

// Complete reports whether every requested unit was created.
func (r BatchResult) Complete() bool {
	return r.Requested > 0 && len(r.Handles) == r.Requested
}

// ProduceGroup produces one unit at a strategy-selected anchor and tries
// count-1 more at the valid points nearest to random offsets within
// radius of the anchor. The error is non-nil only when the anchor failed.
func (d *Dispatcher) ProduceGroup(count int, radius int32) (BatchResult, error) {
	return d.produceGroup(count, radius, 0, 0)
}

func (d *Dispatcher) produceGroup(count int, radius int32, templateID, tag int32) (BatchResult, error) {
	res := BatchResult{Requested: count}
	if count < 1 {
		return res, fmt.Errorf("group of %d units: %w", count, ErrNotReady)
	}

	h, anchor, err := d.produceSelected(templateID, tag)
	if err != nil {
		res.Failures = count
		res.LastErr = err
		return res, fmt.Errorf("producing group anchor: %w", err)
	}
	res.Handles = append(res.Handles, h)

	for range count - 1 {
		target := anchor.Location().Offset(d.groupOffset(radius))
		p := d.nearestValid(target)
		if p == nil {
			res.Failures++
			res.LastErr = fmt.Errorf("no valid point near %+v: %w", target, ErrPointUnavailable)
			continue
		}
		h, err := d.produce(p, templateID, tag, false)
		if err != nil {
			res.Failures++
			res.LastErr = err
			continue
		}
		res.Handles = append(res.Handles, h)
	}

	if !res.Complete() {
		slog.Debug("group produced partially",
			"requested", count,
			"produced", res.Produced(),
			"lastError", res.LastErr)
	}
	return res, nil
}

func (d *Dispatcher) groupOffset(radius int32) (int32, int32) {
	if radius <= 0 {
		return 0, 0
	}
	r := float64(radius) * math.Sqrt(d.rng.Float64())
	a := d.rng.Float64() * 2 * math.Pi
	return int32(r * math.Cos(a)), int32(r * math.Sin(a))
}

func (d *Dispatcher) nearestValid(target model.Location) *Point {
	var best *Point
	bestDist := math.MaxFloat64
	for _, p := range d.points {
		if !p.Available(d.now) {
			continue
		}
		if dist := p.Location().Distance2D(target); dist < bestDist {
			best, bestDist = p, dist
		}
	}
	return best
}

// UnitDied handles a death notification from the unit collaborator.
// Unknown or already-dead units are ignored; it returns whether the
// notification invalidated a unit.
func (d *Dispatcher) UnitDied(id model.UnitID) bool {
	h, ok := d.byUnit[id]
	if !ok {
		return false
	}
	return d.invalidate(h, CauseKilled)
}

// Despawn tears down units through the unit factory. Returns how many
// were actually removed.
func (d *Dispatcher) Despawn(handles []model.UnitHandle) int {
	n := 0
	for _, h := range handles {
		rec, ok := d.arena.Get(h)
		if !ok {
			continue
		}
		if d.deps.Factory != nil {
			d.deps.Factory.Despawn(rec.UnitID)
		}
		if d.invalidate(h, CauseDespawned) {
			n++
		}
	}
	return n
}

// ClearAll despawns every managed unit.
func (d *Dispatcher) ClearAll() int {
	handles := make([]model.UnitHandle, 0, d.arena.Len())
	d.arena.Each(func(h model.UnitHandle, _ model.UnitRecord) bool {
		handles = append(handles, h)
		return true
	})
	n := d.Despawn(handles)
	slog.Info("all managed units cleared", "count", n)
	return n
}

func (d *Dispatcher) invalidate(h model.UnitHandle, cause DeathCause) bool {
	rec, ok := d.arena.Get(h)
	if !ok || !d.arena.Kill(h) {
		return false
	}
	delete(d.byUnit, rec.UnitID)

	switch cause {
	case CauseKilled:
		d.counters.killed++
	case CauseDespawned:
		d.counters.despawned++
	}
	d.touch()

	ev := DiedEvent{
		Handle:  h,
		UnitID:  rec.UnitID,
		PointID: rec.PointID,
		Cause:   cause,
		At:      d.now,
	}
	for _, l := range d.listeners {
		l.OnUnitDied(ev)
	}
	return true
}

// Tick advances the dispatcher by one frame: frame sampling and periodic
// adaptation first, then point deadlines, then production jobs.
func (d *Dispatcher) Tick(now time.Time) {
	d.now = now

	if d.deps.Monitor != nil {
		d.frames.add(d.deps.Monitor.FrameTime())
	}
	if !now.Before(d.nextAdapt) {
		d.Adapt()
		d.nextAdapt = now.Add(d.opts.AdaptInterval)
	}

	for _, p := range d.points {
		if p.Tick(now) {
			d.touch()
		}
	}

	d.processJobs(now)
}

// Adapt re-evaluates the ceiling from the player count and the rolling
// frame rate. Back-off only ever lowers the player-scaled value and
// recovers step by step once the frame rate is healthy again.
func (d *Dispatcher) Adapt() {
	players := 1
	if d.deps.Players != nil {
		players = d.deps.Players.Count()
	}
	scaled := d.policy.ScaledCeiling(players)

	fps := d.frames.frameRate()
	if fps > 0 && fps < d.policy.MinFrameRate {
		d.throttle += d.policy.ThrottleStep
	} else {
		d.throttle = max(d.throttle-d.policy.ThrottleStep, 0)
	}

	floor := min(d.policy.MinCeiling, scaled)
	d.throttle = min(d.throttle, max(scaled-floor, 0))
	ceiling := max(scaled-d.throttle, floor)

	if ceiling != d.policy.Ceiling {
		slog.Info("spawn ceiling adapted",
			"from", d.policy.Ceiling,
			"to", ceiling,
			"players", players,
			"fps", fmt.Sprintf("%.1f", fps),
			"throttle", d.throttle)
		d.policy.Ceiling = ceiling
		d.touch()
	}
}

// FrameRate returns the rolling frame rate seen by the adaptation step.
func (d *Dispatcher) FrameRate() float64 {
	return d.frames.frameRate()
}

// IsAdmissionError reports whether err is one of the admission failures
// that clear up on their own on a later tick.
func IsAdmissionError(err error) bool {
	return errors.Is(err, ErrConcurrencyLimitReached) ||
		errors.Is(err, ErrGlobalCooldown) ||
		errors.Is(err, ErrNotActive)
}
