package config

import (
	"fmt"
	"time"

	"github.com/udisondev/wavekeeper/internal/model"
	"github.com/udisondev/wavekeeper/internal/spawn"
	"github.com/udisondev/wavekeeper/internal/wave"
	"github.com/udisondev/wavekeeper/internal/world"
)

// LocationConfig is a world position.
type LocationConfig struct {
	X       int32  `yaml:"x"`
	Y       int32  `yaml:"y"`
	Z       int32  `yaml:"z"`
	Heading uint16 `yaml:"heading"`
}

// Location converts to the model type.
func (l LocationConfig) Location() model.Location {
	return model.NewLocation(l.X, l.Y, l.Z, l.Heading)
}

// WorldConfig describes the simulated world.
type WorldConfig struct {
	MinX      int32            `yaml:"min_x"`
	MinY      int32            `yaml:"min_y"`
	MaxX      int32            `yaml:"max_x"`
	MaxY      int32            `yaml:"max_y"`
	GroundZ   int32            `yaml:"ground_z"`
	Heights   []LocationConfig `yaml:"heights"` // per-region surface overrides
	Obstacles []ObstacleConfig `yaml:"obstacles"`
	Players   []PlayerConfig   `yaml:"players"` // present from the start
}

// ObstacleConfig is a circular blocked area.
type ObstacleConfig struct {
	At     LocationConfig `yaml:"at"`
	Radius int32          `yaml:"radius"`
}

// PlayerConfig is a player joined at startup.
type PlayerConfig struct {
	Name string         `yaml:"name"`
	At   LocationConfig `yaml:"at"`
}

// DefaultWorld returns the default world bounds with one player at the origin.
func DefaultWorld() WorldConfig {
	b := world.DefaultBounds()
	return WorldConfig{
		MinX:    b.MinX,
		MinY:    b.MinY,
		MaxX:    b.MaxX,
		MaxY:    b.MaxY,
		Players: []PlayerConfig{{Name: "player"}},
	}
}

// Bounds converts the world rectangle.
func (w WorldConfig) Bounds() world.Bounds {
	return world.Bounds{MinX: w.MinX, MinY: w.MinY, MaxX: w.MaxX, MaxY: w.MaxY}
}

// HeightList converts the configured surface overrides.
func (w WorldConfig) HeightList() []model.Location {
	out := make([]model.Location, 0, len(w.Heights))
	for _, h := range w.Heights {
		out = append(out, h.Location())
	}
	return out
}

// ObstacleList converts the configured obstacles.
func (w WorldConfig) ObstacleList() []world.Obstacle {
	out := make([]world.Obstacle, 0, len(w.Obstacles))
	for _, o := range w.Obstacles {
		out = append(out, world.Obstacle{Center: o.At.Location(), Radius: o.Radius})
	}
	return out
}

func (w WorldConfig) validate() error {
	if w.MinX >= w.MaxX || w.MinY >= w.MaxY {
		return fmt.Errorf("world bounds %d,%d..%d,%d are empty: %w", w.MinX, w.MinY, w.MaxX, w.MaxY, ErrInvalid)
	}
	for i, o := range w.Obstacles {
		if o.Radius <= 0 {
			return fmt.Errorf("world.obstacles[%d]: radius %d: %w", i, o.Radius, ErrInvalid)
		}
	}
	return nil
}

// DispatcherConfig configures the spawn dispatcher.
type DispatcherConfig struct {
	Strategy       string        `yaml:"strategy"`
	GlobalCooldown time.Duration `yaml:"global_cooldown"`
	AdaptInterval  time.Duration `yaml:"adapt_interval"`
	FrameWindow    int           `yaml:"frame_window"`

	BaseCeiling       int     `yaml:"base_ceiling"`
	MinCeiling        int     `yaml:"min_ceiling"`
	BurstCap          int     `yaml:"burst_cap"`
	MinPlayerDistance float64 `yaml:"min_player_distance"`
	MaxPlayerDistance float64 `yaml:"max_player_distance"`
	PerPlayerScale    float64 `yaml:"per_player_scale"`
	MinFrameRate      float64 `yaml:"min_frame_rate"`
	ThrottleStep      int     `yaml:"throttle_step"`
	Rounding          string  `yaml:"rounding"`

	MaxPlacementAttempts int           `yaml:"max_placement_attempts"`
	Clearance            int32         `yaml:"clearance"`
	ClearDeadInterval    time.Duration `yaml:"clear_dead_interval"`
}

// DefaultDispatcher mirrors spawn.DefaultOptions.
func DefaultDispatcher() DispatcherConfig {
	d := spawn.DefaultOptions()
	return DispatcherConfig{
		Strategy:             d.Strategy.String(),
		GlobalCooldown:       d.GlobalCooldown,
		AdaptInterval:        d.AdaptInterval,
		FrameWindow:          d.FrameWindow,
		BaseCeiling:          d.Policy.BaseCeiling,
		MinCeiling:           d.Policy.MinCeiling,
		BurstCap:             d.Policy.BurstCap,
		MinPlayerDistance:    d.Policy.MinPlayerDistance,
		MaxPlayerDistance:    d.Policy.MaxPlayerDistance,
		PerPlayerScale:       d.Policy.PerPlayerScale,
		MinFrameRate:         d.Policy.MinFrameRate,
		ThrottleStep:         d.Policy.ThrottleStep,
		Rounding:             d.Policy.Rounding.String(),
		MaxPlacementAttempts: d.Point.MaxPlacementAttempts,
		Clearance:            d.Point.Clearance,
		ClearDeadInterval:    d.Point.ClearDeadInterval,
	}
}

// Options converts the section into dispatcher options.
func (c DispatcherConfig) Options(seed uint64) (spawn.Options, error) {
	strategy, err := spawn.ParseStrategy(c.Strategy)
	if err != nil {
		return spawn.Options{}, fmt.Errorf("dispatcher.strategy: %w: %w", ErrInvalid, err)
	}
	rounding, err := spawn.ParseRounding(c.Rounding)
	if err != nil {
		return spawn.Options{}, fmt.Errorf("dispatcher.rounding: %w: %w", ErrInvalid, err)
	}

	return spawn.Options{
		Strategy:       strategy,
		GlobalCooldown: c.GlobalCooldown,
		AdaptInterval:  c.AdaptInterval,
		FrameWindow:    c.FrameWindow,
		Seed:           seed,
		Policy: spawn.AdaptivePolicy{
			BaseCeiling:       c.BaseCeiling,
			MinCeiling:        c.MinCeiling,
			Ceiling:           c.BaseCeiling,
			BurstCap:          c.BurstCap,
			MinPlayerDistance: c.MinPlayerDistance,
			MaxPlayerDistance: c.MaxPlayerDistance,
			PerPlayerScale:    c.PerPlayerScale,
			MinFrameRate:      c.MinFrameRate,
			ThrottleStep:      c.ThrottleStep,
			Rounding:          rounding,
		},
		Point: spawn.PointOptions{
			MaxPlacementAttempts: c.MaxPlacementAttempts,
			Clearance:            c.Clearance,
			ClearDeadInterval:    c.ClearDeadInterval,
		},
	}, nil
}

func (c DispatcherConfig) validate() error {
	if _, err := c.Options(0); err != nil {
		return err
	}
	switch {
	case c.BaseCeiling < 1:
		return fmt.Errorf("dispatcher.base_ceiling %d: %w", c.BaseCeiling, ErrInvalid)
	case c.MinCeiling < 0 || c.MinCeiling > c.BaseCeiling:
		return fmt.Errorf("dispatcher.min_ceiling %d outside [0,%d]: %w", c.MinCeiling, c.BaseCeiling, ErrInvalid)
	case c.BurstCap < 0:
		return fmt.Errorf("dispatcher.burst_cap %d: %w", c.BurstCap, ErrInvalid)
	case c.GlobalCooldown < 0:
		return fmt.Errorf("dispatcher.global_cooldown %s: %w", c.GlobalCooldown, ErrInvalid)
	case c.MinPlayerDistance < 0 || (c.MaxPlayerDistance > 0 && c.MaxPlayerDistance < c.MinPlayerDistance):
		return fmt.Errorf("dispatcher player distances %v..%v: %w", c.MinPlayerDistance, c.MaxPlayerDistance, ErrInvalid)
	}
	return nil
}

// PointConfig is a spawn point authored in the config file.
type PointConfig struct {
	ID          int64          `yaml:"id"`
	TemplateID  int32          `yaml:"template_id"`
	At          LocationConfig `yaml:"at"`
	Radius      int32          `yaml:"radius"`
	Capacity    int32          `yaml:"capacity"`
	Cooldown    time.Duration  `yaml:"cooldown"`
	Probability float64        `yaml:"probability"` // 0 means always
}

// Descriptor converts the point.
func (p PointConfig) Descriptor() model.SpawnPointDescriptor {
	return model.SpawnPointDescriptor{
		ID:          p.ID,
		TemplateID:  p.TemplateID,
		Location:    p.At.Location(),
		Radius:      p.Radius,
		Capacity:    p.Capacity,
		Cooldown:    p.Cooldown,
		Probability: p.Probability,
	}
}

// Descriptors converts every configured point.
func (c Config) Descriptors() []model.SpawnPointDescriptor {
	out := make([]model.SpawnPointDescriptor, 0, len(c.Points))
	for _, p := range c.Points {
		out = append(out, p.Descriptor())
	}
	return out
}

// WavesConfig configures the wave scheduler.
type WavesConfig struct {
	Loop        bool            `yaml:"loop"`
	Endless     bool            `yaml:"endless"`
	HistorySize int             `yaml:"history_size"`
	Scaling     ScalingConfig   `yaml:"scaling"`
	Generator   GeneratorConfig `yaml:"generator"`
	Definitions []WaveConfig    `yaml:"definitions"`
}

// ScalingConfig configures the difficulty multiplier.
type ScalingConfig struct {
	DifficultyGrowth float64 `yaml:"difficulty_growth"`
	MinMultiplier    float64 `yaml:"min_multiplier"`
	MaxMultiplier    float64 `yaml:"max_multiplier"`
}

// GeneratorConfig configures endless-mode wave synthesis.
type GeneratorConfig struct {
	Templates    []int32       `yaml:"templates"`
	BaseCount    int32         `yaml:"base_count"`
	CountGrowth  int32         `yaml:"count_growth"`
	Interval     time.Duration `yaml:"interval"`
	IntervalStep time.Duration `yaml:"interval_step"`
	MinInterval  time.Duration `yaml:"min_interval"`
	Preparation  time.Duration `yaml:"preparation"`
	Rest         time.Duration `yaml:"rest"`
	TimeLimit    time.Duration `yaml:"time_limit"`
	PlayerScale  float64       `yaml:"player_scale"`
	EscortEvery  int           `yaml:"escort_every"`
	EscortRadius int32         `yaml:"escort_radius"`
	BossEvery    int           `yaml:"boss_every"`
	BossTemplate int32         `yaml:"boss_template"`
}

// WaveConfig is one authored wave.
type WaveConfig struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Preparation time.Duration   `yaml:"preparation"`
	TimeLimit   time.Duration   `yaml:"time_limit"`
	Rest        time.Duration   `yaml:"rest"`
	Completion  string          `yaml:"completion"` // all_units_cleared | time_expired
	PlayerScale float64         `yaml:"player_scale"`
	Requests    []RequestConfig `yaml:"requests"`
}

// RequestConfig is one spawn request of a wave.
type RequestConfig struct {
	TemplateID    int32         `yaml:"template_id"`
	Count         int32         `yaml:"count"`
	Interval      time.Duration `yaml:"interval"`
	Probability   float64       `yaml:"probability"`
	Cluster       bool          `yaml:"cluster"`
	ClusterRadius int32         `yaml:"cluster_radius"`
}

// DefaultWaves mirrors wave.DefaultOptions without authored waves.
func DefaultWaves() WavesConfig {
	w := wave.DefaultOptions()
	g := w.Generator
	return WavesConfig{
		HistorySize: w.HistorySize,
		Scaling: ScalingConfig{
			DifficultyGrowth: w.Scaling.DifficultyGrowth,
			MinMultiplier:    w.Scaling.MinMultiplier,
			MaxMultiplier:    w.Scaling.MaxMultiplier,
		},
		Generator: GeneratorConfig{
			Templates:    g.Templates,
			BaseCount:    g.BaseCount,
			CountGrowth:  g.CountGrowth,
			Interval:     g.Interval,
			IntervalStep: g.IntervalStep,
			MinInterval:  g.MinInterval,
			Preparation:  g.Preparation,
			Rest:         g.Rest,
			TimeLimit:    g.TimeLimit,
			PlayerScale:  g.PlayerScale,
			EscortEvery:  g.EscortEvery,
			EscortRadius: g.EscortRadius,
			BossEvery:    g.BossEvery,
			BossTemplate: g.BossTemplate,
		},
	}
}

// Definition converts an authored wave; number is its 1-based position.
func (w WaveConfig) Definition(number int32) (model.WaveDefinition, error) {
	rule, err := model.ParseCompletionRule(w.Completion)
	if err != nil {
		return model.WaveDefinition{}, err
	}
	def := model.WaveDefinition{
		Number:      number,
		Name:        w.Name,
		Description: w.Description,
		Preparation: w.Preparation,
		TimeLimit:   w.TimeLimit,
		Rest:        w.Rest,
		Completion:  rule,
		PlayerScale: w.PlayerScale,
		Requests:    make([]model.SpawnRequest, 0, len(w.Requests)),
	}
	if def.Name == "" {
		def.Name = fmt.Sprintf("Wave %d", number)
	}
	for _, r := range w.Requests {
		def.Requests = append(def.Requests, model.SpawnRequest{
			TemplateID:    r.TemplateID,
			Count:         r.Count,
			Interval:      r.Interval,
			Probability:   r.Probability,
			AsCluster:     r.Cluster,
			ClusterRadius: r.ClusterRadius,
		})
	}
	return def, nil
}

// Options converts the section into scheduler options.
func (c WavesConfig) Options() (wave.Options, error) {
	g := c.Generator
	opts := wave.Options{
		Loop:        c.Loop,
		Endless:     c.Endless,
		HistorySize: c.HistorySize,
		Scaling: wave.Scaling{
			DifficultyGrowth: c.Scaling.DifficultyGrowth,
			MinMultiplier:    c.Scaling.MinMultiplier,
			MaxMultiplier:    c.Scaling.MaxMultiplier,
		},
		Generator: wave.GeneratorOptions{
			Templates:    g.Templates,
			BaseCount:    g.BaseCount,
			CountGrowth:  g.CountGrowth,
			Interval:     g.Interval,
			IntervalStep: g.IntervalStep,
			MinInterval:  g.MinInterval,
			Preparation:  g.Preparation,
			Rest:         g.Rest,
			TimeLimit:    g.TimeLimit,
			PlayerScale:  g.PlayerScale,
			EscortEvery:  g.EscortEvery,
			EscortRadius: g.EscortRadius,
			BossEvery:    g.BossEvery,
			BossTemplate: g.BossTemplate,
		},
	}
	for i, w := range c.Definitions {
		def, err := w.Definition(int32(i + 1))
		if err != nil {
			return wave.Options{}, fmt.Errorf("waves.definitions[%d]: %w: %w", i, ErrInvalid, err)
		}
		opts.Waves = append(opts.Waves, def)
	}
	return opts, nil
}

func (c WavesConfig) validate() error {
	if _, err := c.Options(); err != nil {
		return err
	}
	if c.Scaling.MaxMultiplier > 0 && c.Scaling.MaxMultiplier < c.Scaling.MinMultiplier {
		return fmt.Errorf("waves.scaling max %v < min %v: %w", c.Scaling.MaxMultiplier, c.Scaling.MinMultiplier, ErrInvalid)
	}
	if c.Endless && c.Generator.BaseCount < 1 {
		return fmt.Errorf("waves.generator.base_count %d: %w", c.Generator.BaseCount, ErrInvalid)
	}
	for i, w := range c.Definitions {
		if len(w.Requests) == 0 {
			return fmt.Errorf("waves.definitions[%d] has no requests: %w", i, ErrInvalid)
		}
		for j, r := range w.Requests {
			if r.Count < 1 {
				return fmt.Errorf("waves.definitions[%d].requests[%d]: count %d: %w", i, j, r.Count, ErrInvalid)
			}
			if r.Probability < 0 || r.Probability > 1 {
				return fmt.Errorf("waves.definitions[%d].requests[%d]: probability %v: %w", i, j, r.Probability, ErrInvalid)
			}
			if r.Interval < 0 {
				return fmt.Errorf("waves.definitions[%d].requests[%d]: negative interval: %w", i, j, ErrInvalid)
			}
		}
		if w.TimeLimit < 0 || w.Preparation < 0 || w.Rest < 0 {
			return fmt.Errorf("waves.definitions[%d]: negative duration: %w", i, ErrInvalid)
		}
	}
	return nil
}
