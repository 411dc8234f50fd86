package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable overriding the config path.
const EnvPath = "WAVEKEEPER_CONFIG"

// DefaultPath is used when EnvPath is not set.
const DefaultPath = "config/wavekeeper.yaml"

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// Config holds all configuration for the wavekeeper process.
type Config struct {
	LogLevel      string        `yaml:"log_level"`
	TickInterval  time.Duration `yaml:"tick_interval"`
	Seed          uint64        `yaml:"seed"`
	AdminTemplate int32         `yaml:"admin_template"` // forced spawns outside a wave
	AttritionRate float64       `yaml:"attrition_rate"` // simulated kills per second, 0 disables

	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Database   DatabaseConfig   `yaml:"database"`
	World      WorldConfig      `yaml:"world"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Points     []PointConfig    `yaml:"points"`
	Waves      WavesConfig      `yaml:"waves"`
}

// TelemetryConfig configures the debug HTTP server.
type TelemetryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Admin   bool   `yaml:"admin"` // expose the POST admin endpoints
}

// DatabaseConfig holds PostgreSQL connection parameters. When Enabled,
// spawn points are loaded from the database in addition to Points.
type DatabaseConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Default returns Config with sensible defaults: one looping authored
// wave list is expected from the file, everything else works as is.
func Default() Config {
	return Config{
		LogLevel:      "info",
		TickInterval:  100 * time.Millisecond,
		Seed:          1,
		AdminTemplate: 20101,
		Telemetry: TelemetryConfig{
			Enabled: true,
			Addr:    "127.0.0.1:9090",
			Admin:   true,
		},
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "wavekeeper",
			Password: "wavekeeper",
			DBName:   "wavekeeper",
			SSLMode:  "disable",
		},
		World:      DefaultWorld(),
		Dispatcher: DefaultDispatcher(),
		Waves:      DefaultWaves(),
	}
}

// Path returns the config path from the environment or the default.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return DefaultPath
}

// Load loads config from a YAML file and validates it.
// If the file doesn't exist, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// SlogLevel maps LogLevel to a slog level.
func (c Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q: %w", c.LogLevel, ErrInvalid)
	}
	return lvl, nil
}

// Validate checks every section and the cross references between them.
func (c Config) Validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval %s: %w", c.TickInterval, ErrInvalid)
	}
	if c.AttritionRate < 0 {
		return fmt.Errorf("attrition_rate %v: %w", c.AttritionRate, ErrInvalid)
	}
	if c.Telemetry.Enabled && c.Telemetry.Addr == "" {
		return fmt.Errorf("telemetry.addr is empty: %w", ErrInvalid)
	}
	if c.Database.Enabled && (c.Database.Host == "" || c.Database.DBName == "") {
		return fmt.Errorf("database host and dbname are required: %w", ErrInvalid)
	}

	if err := c.World.validate(); err != nil {
		return err
	}
	if err := c.Dispatcher.validate(); err != nil {
		return err
	}

	seen := make(map[int64]bool, len(c.Points))
	for i, p := range c.Points {
		if seen[p.ID] {
			return fmt.Errorf("points[%d]: duplicate id %d: %w", i, p.ID, ErrInvalid)
		}
		seen[p.ID] = true
		if err := p.Descriptor().Validate(); err != nil {
			return fmt.Errorf("points[%d]: %w: %w", i, ErrInvalid, err)
		}
	}

	return c.Waves.validate()
}
