package spawn

import (
	"time"

	"github.com/udisondev/wavekeeper/internal/model"
)

// DeathCause tells why a unit left the population.
type DeathCause int32

const (
	// CauseKilled - the unit collaborator reported a death
	CauseKilled DeathCause = iota
	// CauseDespawned - the unit was torn down administratively
	CauseDespawned
)

// String returns human-readable cause name
func (c DeathCause) String() string {
	switch c {
	case CauseKilled:
		return "KILLED"
	case CauseDespawned:
		return "DESPAWNED"
	default:
		return "UNKNOWN"
	}
}

// ProducedEvent is emitted synchronously after a successful production.
type ProducedEvent struct {
	Handle     model.UnitHandle
	UnitID     model.UnitID
	PointID    int64
	TemplateID int32
	Location   model.Location
	Tag        int32 // wave number for wave productions, 0 otherwise
	At         time.Time
}

// DiedEvent is emitted synchronously when a unit is invalidated.
type DiedEvent struct {
	Handle  model.UnitHandle
	UnitID  model.UnitID
	PointID int64
	Cause   DeathCause
	At      time.Time
}

// Listener receives dispatcher events.
type Listener interface {
	OnUnitProduced(ev ProducedEvent)
	OnUnitDied(ev DiedEvent)
}

// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Produced func(ProducedEvent)
	Died     func(DiedEvent)
}

func (l ListenerFuncs) OnUnitProduced(ev ProducedEvent) {
	if l.Produced != nil {
		l.Produced(ev)
	}
}

func (l ListenerFuncs) OnUnitDied(ev DiedEvent) {
	if l.Died != nil {
		l.Died(ev)
	}
}
