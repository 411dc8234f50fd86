package wave

import (
	"fmt"
	"time"

	"github.com/udisondev/wavekeeper/internal/model"
)

// GeneratorOptions shapes the waves synthesized once the authored list
// is exhausted.
type GeneratorOptions struct {
	Templates    []int32 // rotated per wave
	BaseCount    int32
	CountGrowth  int32 // extra units per generated wave
	Interval     time.Duration
	IntervalStep time.Duration // interval shrink per generated wave
	MinInterval  time.Duration
	Preparation  time.Duration
	Rest         time.Duration
	TimeLimit    time.Duration
	PlayerScale  float64
	EscortEvery  int // every Nth wave adds a clustered escort group
	EscortRadius int32
	BossEvery    int // every Nth wave adds a single boss
	BossTemplate int32
}

// DefaultGeneratorOptions returns a modest endless progression.
func DefaultGeneratorOptions() GeneratorOptions {
	return GeneratorOptions{
		Templates:    []int32{20101},
		BaseCount:    10,
		CountGrowth:  2,
		Interval:     time.Second,
		IntervalStep: 50 * time.Millisecond,
		MinInterval:  200 * time.Millisecond,
		Preparation:  5 * time.Second,
		Rest:         10 * time.Second,
		PlayerScale:  0.5,
		EscortEvery:  3,
		EscortRadius: 300,
	}
}

// Generator synthesizes wave definitions. Generation is deterministic:
// the same index always yields the same definition.
type Generator struct {
	opts   GeneratorOptions
	offset int // index of the first generated wave
}

// NewGenerator creates a generator whose first wave follows offset
// authored waves.
func NewGenerator(opts GeneratorOptions, offset int) *Generator {
	if len(opts.Templates) == 0 {
		opts.Templates = DefaultGeneratorOptions().Templates
	}
	return &Generator{opts: opts, offset: offset}
}

// Generate returns the definition for absolute wave index.
func (g *Generator) Generate(index int) model.WaveDefinition {
	n := max(index-g.offset, 0) // ordinal among generated waves
	o := g.opts

	interval := max(o.Interval-time.Duration(n)*o.IntervalStep, o.MinInterval)
	count := max(o.BaseCount+int32(n)*o.CountGrowth, 1)
	main := o.Templates[n%len(o.Templates)]

	reqs := []model.SpawnRequest{{
		TemplateID: main,
		Count:      count,
		Interval:   interval,
	}}

	number := int32(index + 1)
	if o.EscortEvery > 0 && number%int32(o.EscortEvery) == 0 {
		reqs = append(reqs, model.SpawnRequest{
			TemplateID:    o.Templates[(n+1)%len(o.Templates)],
			Count:         max(count/2, 1),
			AsCluster:     true,
			ClusterRadius: o.EscortRadius,
		})
	}
	if o.BossEvery > 0 && o.BossTemplate != 0 && number%int32(o.BossEvery) == 0 {
		reqs = append(reqs, model.SpawnRequest{
			TemplateID: o.BossTemplate,
			Count:      1,
		})
	}

	return model.WaveDefinition{
		Number:      number,
		Name:        fmt.Sprintf("Generated wave %d", number),
		Requests:    reqs,
		Preparation: o.Preparation,
		TimeLimit:   o.TimeLimit,
		Rest:        o.Rest,
		Completion:  model.CompletionAllUnitsCleared,
		PlayerScale: o.PlayerScale,
		Generated:   true,
	}
}
