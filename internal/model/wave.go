package model

import (
	"fmt"
	"strings"
	"time"
)

// CompletionRule decides when a wave counts as completed.
type CompletionRule int32

const (
	// CompletionAllUnitsCleared - wave ends when every produced unit is dead
	CompletionAllUnitsCleared CompletionRule = iota
	// CompletionTimeExpired - wave ends when its time limit runs out
	CompletionTimeExpired
)

// String returns human-readable rule name
func (r CompletionRule) String() string {
	switch r {
	case CompletionAllUnitsCleared:
		return "ALL_UNITS_CLEARED"
	case CompletionTimeExpired:
		return "TIME_EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// ParseCompletionRule parses the config spelling of a rule.
func ParseCompletionRule(s string) (CompletionRule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all_units_cleared", "cleared":
		return CompletionAllUnitsCleared, nil
	case "time_expired", "timer":
		return CompletionTimeExpired, nil
	default:
		return 0, fmt.Errorf("unknown completion rule %q", s)
	}
}

// SpawnRequest describes a batch of units a wave wants produced.
// Declarative, holds no runtime state.
type SpawnRequest struct {
	TemplateID    int32
	Count         int32
	Interval      time.Duration // delay between two items
	Probability   float64       // per-item chance, 0 means 1
	AsCluster     bool
	ClusterRadius int32
}

// EffectiveProbability returns Probability with the zero value mapped to 1.
func (r SpawnRequest) EffectiveProbability() float64 {
	if r.Probability <= 0 {
		return 1.0
	}
	return r.Probability
}

// WithCount returns a copy with Count replaced.
func (r SpawnRequest) WithCount(count int32) SpawnRequest {
	r.Count = count
	return r
}

// WaveDefinition is an authored (or generated) wave.
// Immutable once built.
type WaveDefinition struct {
	Number      int32
	Name        string
	Description string
	Requests    []SpawnRequest
	Preparation time.Duration
	TimeLimit   time.Duration // zero means no limit
	Rest        time.Duration
	Completion  CompletionRule
	PlayerScale float64 // extra share of units per additional player
	Generated   bool
}

// TotalCount returns the authored unit count over all requests.
func (w WaveDefinition) TotalCount() int32 {
	var total int32
	for _, r := range w.Requests {
		total += r.Count
	}
	return total
}

// HasTimeLimit reports whether the wave is time boxed.
func (w WaveDefinition) HasTimeLimit() bool {
	return w.TimeLimit > 0
}
