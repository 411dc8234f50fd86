package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/wavekeeper/internal/admin"
	"github.com/udisondev/wavekeeper/internal/config"
	"github.com/udisondev/wavekeeper/internal/db"
	"github.com/udisondev/wavekeeper/internal/horde"
	"github.com/udisondev/wavekeeper/internal/model"
	"github.com/udisondev/wavekeeper/internal/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Config first: it decides the log level
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	level, err := cfg.SlogLevel()
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))

	slog.Info("wavekeeper starting",
		"log_level", cfg.LogLevel,
		"tick", cfg.TickInterval,
		"points", len(cfg.Points),
		"waves", len(cfg.Waves.Definitions))

	var extra []model.SpawnPointDescriptor
	if cfg.Database.Enabled {
		extra, err = loadStoredPoints(ctx, cfg.Database)
		if err != nil {
			return err
		}
	}

	opts, err := cfg.RuntimeOptions(extra)
	if err != nil {
		return fmt.Errorf("building runtime options: %w", err)
	}
	rt, err := horde.New(opts)
	if err != nil {
		return fmt.Errorf("creating runtime: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting wave runtime", "interval", cfg.TickInterval)
		if err := rt.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("wave runtime: %w", err)
		}
		return nil
	})

	if cfg.Telemetry.Enabled {
		commands := admin.NewHandler()
		admin.RegisterAll(commands, rt)

		reg := prometheus.NewRegistry()
		router := telemetry.NewRouter(telemetry.RouterConfig{
			Runtime:   rt,
			Commands:  commands,
			Collector: telemetry.NewCollector(reg),
			Gatherer:  reg,
			Admin:     cfg.Telemetry.Admin,
			RateLimit: telemetry.DefaultRateLimit,
		})
		server := telemetry.NewServer(cfg.Telemetry.Addr, router)

		g.Go(func() error {
			slog.Info("starting telemetry", "addr", cfg.Telemetry.Addr,
				"admin", cfg.Telemetry.Admin,
				"commands", commands.Count())
			if err := server.Run(gctx); err != nil {
				return fmt.Errorf("telemetry server: %w", err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("wavekeeper stopped", "snapshot_tick", rt.Snapshot().Tick)
	return nil
}

// loadStoredPoints migrates the database and reads the enabled spawn
// points stored there.
func loadStoredPoints(ctx context.Context, dbCfg config.DatabaseConfig) ([]model.SpawnPointDescriptor, error) {
	if err := db.RunMigrations(ctx, dbCfg.DSN()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	database, err := db.New(ctx, dbCfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()

	points, err := database.SpawnPoints().LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading spawn points: %w", err)
	}
	slog.Info("stored spawn points loaded", "count", len(points))
	return points, nil
}
