package wave

import (
	"errors"
	"time"
)

var (
	// ErrNoWaveData - no authored waves and endless generation disabled
	ErrNoWaveData = errors.New("no wave data")
	// ErrInvalidWave - requested wave number does not exist
	ErrInvalidWave = errors.New("invalid wave")
	// ErrInvalidState - operation not allowed in the current state
	ErrInvalidState = errors.New("invalid scheduler state")
)

// State is the wave scheduler state.
type State int32

const (
	// StateIdle - not started or stopped
	StateIdle State = iota
	// StatePreparing - waiting for the preparation deadline
	StatePreparing
	// StateInProgress - the wave's requests are being produced and fought
	StateInProgress
	// StatePaused - InProgress frozen; the wave clock does not run
	StatePaused
	// StateCompleted - wave won, rest about to start
	StateCompleted
	// StateFailed - wave lost, waiting for an external restart
	StateFailed
	// StateResting - waiting for the rest deadline before the next wave
	StateResting
	// StateAllWavesCompleted - authored sequence exhausted (terminal)
	StateAllWavesCompleted
)

// String returns human-readable state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StatePreparing:
		return "PREPARING"
	case StateInProgress:
		return "IN_PROGRESS"
	case StatePaused:
		return "PAUSED"
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	case StateResting:
		return "RESTING"
	case StateAllWavesCompleted:
		return "ALL_WAVES_COMPLETED"
	default:
		return "UNKNOWN"
	}
}

// Outcome is how a wave ended.
type Outcome int32

const (
	OutcomeCompleted Outcome = iota
	OutcomeFailed
	// OutcomeAborted - left by Stop or JumpTo
	OutcomeAborted
)

// String returns human-readable outcome name
func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "COMPLETED"
	case OutcomeFailed:
		return "FAILED"
	case OutcomeAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

// Event is a scheduler state change, delivered synchronously.
type Event struct {
	Wave   int32
	From   State
	To     State
	At     time.Time
	Reason string
}
