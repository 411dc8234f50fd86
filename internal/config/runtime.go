package config

import (
	"fmt"

	"github.com/udisondev/wavekeeper/internal/horde"
	"github.com/udisondev/wavekeeper/internal/model"
)

// RuntimeOptions assembles the runtime options. extra points (loaded from
// the database) are registered after the configured ones.
func (c Config) RuntimeOptions(extra []model.SpawnPointDescriptor) (horde.Options, error) {
	dispatcher, err := c.Dispatcher.Options(c.Seed)
	if err != nil {
		return horde.Options{}, fmt.Errorf("building runtime options: %w", err)
	}
	scheduler, err := c.Waves.Options()
	if err != nil {
		return horde.Options{}, fmt.Errorf("building runtime options: %w", err)
	}

	players := make([]horde.Player, 0, len(c.World.Players))
	for _, p := range c.World.Players {
		players = append(players, horde.Player{Name: p.Name, Location: p.At.Location()})
	}

	return horde.Options{
		TickInterval:  c.TickInterval,
		AdminTemplate: c.AdminTemplate,
		AttritionRate: c.AttritionRate,
		Seed:          c.Seed,
		Bounds:        c.World.Bounds(),
		GroundZ:       c.World.GroundZ,
		Heights:       c.World.HeightList(),
		Obstacles:     c.World.ObstacleList(),
		Players:       players,
		Points:        append(c.Descriptors(), extra...),
		Dispatcher:    dispatcher,
		Scheduler:     scheduler,
	}, nil
}
