package world

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/udisondev/wavekeeper/internal/model"
)

// ErrUnknownPlayer is returned for operations on a player that never
// joined or already left.
var ErrUnknownPlayer = errors.New("unknown player")

// Player is a connected player as seen by the spawner.
type Player struct {
	ID       uint32
	Name     string
	Location model.Location
	Alive    bool
}

// Players is an in-memory player registry. Safe for concurrent use.
type Players struct {
	mu      sync.RWMutex
	ids     *IDGenerator
	players map[uint32]*Player
}

// NewPlayers creates an empty registry.
func NewPlayers(ids *IDGenerator) *Players {
	return &Players{
		ids:     ids,
		players: make(map[uint32]*Player),
	}
}

// Join adds a living player at loc and returns its object ID.
func (p *Players) Join(name string, loc model.Location) uint32 {
	id := p.ids.NextPlayerID()

	p.mu.Lock()
	p.players[id] = &Player{ID: id, Name: name, Location: loc, Alive: true}
	p.mu.Unlock()

	slog.Info("player joined", "playerID", id, "name", name, "location", loc)
	return id
}

// Leave removes a player. Returns false if it was not connected.
func (p *Players) Leave(id uint32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.players[id]; !ok {
		return false
	}
	delete(p.players, id)
	slog.Info("player left", "playerID", id)
	return true
}

// Move updates a player's position.
func (p *Players) Move(id uint32, loc model.Location) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pl, ok := p.players[id]
	if !ok {
		return fmt.Errorf("moving player %d: %w", id, ErrUnknownPlayer)
	}
	pl.Location = loc
	return nil
}

// SetAlive marks a player dead or revived.
func (p *Players) SetAlive(id uint32, alive bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	pl, ok := p.players[id]
	if !ok {
		return fmt.Errorf("updating player %d: %w", id, ErrUnknownPlayer)
	}
	pl.Alive = alive
	return nil
}

// Positions returns the positions of living players.
func (p *Players) Positions() []model.Location {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]model.Location, 0, len(p.players))
	for _, pl := range p.sorted() {
		if pl.Alive {
			out = append(out, pl.Location)
		}
	}
	return out
}

// Count returns the number of connected players, dead or alive.
func (p *Players) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.players)
}

// AnyAlive reports whether at least one connected player is alive.
func (p *Players) AnyAlive() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, pl := range p.players {
		if pl.Alive {
			return true
		}
	}
	return false
}

// List returns copies of all connected players ordered by ID.
func (p *Players) List() []Player {
	p.mu.RLock()
	defer p.mu.RUnlock()

	sorted := p.sorted()
	out := make([]Player, len(sorted))
	for i, pl := range sorted {
		out[i] = *pl
	}
	return out
}

// sorted must be called with mu held.
func (p *Players) sorted() []*Player {
	out := make([]*Player, 0, len(p.players))
	for _, pl := range p.players {
		out = append(out, pl)
	}
	slices.SortFunc(out, func(a, b *Player) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
