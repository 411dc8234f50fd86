package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDescriptor is returned by SpawnPointDescriptor.Validate.
var ErrInvalidDescriptor = errors.New("invalid spawn point descriptor")

// SpawnPointDescriptor is the static definition of a spawn point.
// Created at level setup, never mutated by the runtime.
type SpawnPointDescriptor struct {
	ID          int64
	TemplateID  int32
	Location    Location
	Radius      int32         // placement jitter around Location
	Capacity    int32         // max concurrently-live units
	Cooldown    time.Duration // min time between two productions
	Probability float64       // per-attempt success chance, 0 means 1
}

// NewSpawnPointDescriptor creates a descriptor with probability 1.
func NewSpawnPointDescriptor(
	id int64,
	templateID int32,
	x, y, z int32,
	heading uint16,
	radius int32,
	capacity int32,
	cooldown time.Duration,
) SpawnPointDescriptor {
	return SpawnPointDescriptor{
		ID:          id,
		TemplateID:  templateID,
		Location:    NewLocation(x, y, z, heading),
		Radius:      radius,
		Capacity:    capacity,
		Cooldown:    cooldown,
		Probability: 1.0,
	}
}

// EffectiveProbability returns Probability with the zero value mapped to 1.
func (d SpawnPointDescriptor) EffectiveProbability() float64 {
	if d.Probability <= 0 {
		return 1.0
	}
	return d.Probability
}

// Validate checks the descriptor invariants.
func (d SpawnPointDescriptor) Validate() error {
	switch {
	case d.Capacity < 1:
		return fmt.Errorf("%w: point %d capacity %d < 1", ErrInvalidDescriptor, d.ID, d.Capacity)
	case d.Cooldown < 0:
		return fmt.Errorf("%w: point %d negative cooldown %s", ErrInvalidDescriptor, d.ID, d.Cooldown)
	case d.Radius < 0:
		return fmt.Errorf("%w: point %d negative radius %d", ErrInvalidDescriptor, d.ID, d.Radius)
	case d.Probability < 0 || d.Probability > 1:
		return fmt.Errorf("%w: point %d probability %.2f outside [0,1]", ErrInvalidDescriptor, d.ID, d.Probability)
	}
	return nil
}
