package world

import (
	"sync/atomic"

	"github.com/udisondev/wavekeeper/internal/model"
)

// ID ranges (convention):
//
//	0x00000000 - 0x0FFFFFFF: reserved (0 = invalid)
//	0x10000000 - 0x1FFFFFFF: players
//	0x20000000 - 0x2FFFFFFF: hostile units
const (
	firstPlayerID = 0x10000000
	firstUnitID   = 0x20000000
)

// IDGenerator hands out unique object IDs. Safe for concurrent use.
type IDGenerator struct {
	nextPlayerID atomic.Uint32
	nextUnitID   atomic.Uint32
}

// NewIDGenerator creates a generator positioned at the start of each range.
func NewIDGenerator() *IDGenerator {
	gen := &IDGenerator{}
	gen.nextPlayerID.Store(firstPlayerID)
	gen.nextUnitID.Store(firstUnitID)
	return gen
}

// NextPlayerID returns the next player object ID.
func (g *IDGenerator) NextPlayerID() uint32 {
	return g.nextPlayerID.Add(1)
}

// NextUnitID returns the next unit object ID.
func (g *IDGenerator) NextUnitID() model.UnitID {
	return model.UnitID(g.nextUnitID.Add(1))
}
