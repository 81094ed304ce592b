package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/gorustyt/goorca/orca"
)

var ErrUnknownFormat = errors.New("unknown config format")

// Config holds the parameters of a simulation run.
type Config struct {
	TimeStep float64 `toml:"time_step" yaml:"time_step"` // seconds per tick
	Workers  int     `toml:"workers" yaml:"workers"`     // goroutines used per phase
	Epsilon  float64 `toml:"epsilon" yaml:"epsilon"`     // degeneracy tolerance of the solver

	Agent    AgentDefaults `toml:"agent" yaml:"agent"`
	Grid     Grid          `toml:"grid" yaml:"grid"`
	Log      Log           `toml:"log" yaml:"log"`
	Scenario Scenario      `toml:"scenario" yaml:"scenario"`
	Stream   Stream        `toml:"stream" yaml:"stream"`
}

// AgentDefaults are applied to agents added without explicit parameters.
type AgentDefaults struct {
	Radius          float64 `toml:"radius" yaml:"radius"`
	MaxSpeed        float64 `toml:"max_speed" yaml:"max_speed"`
	MaxNeighbors    int     `toml:"max_neighbors" yaml:"max_neighbors"`
	NeighborDist    float64 `toml:"neighbor_dist" yaml:"neighbor_dist"`
	TimeHorizon     float64 `toml:"time_horizon" yaml:"time_horizon"`
	TimeHorizonObst float64 `toml:"time_horizon_obst" yaml:"time_horizon_obst"`
	Layer           uint32  `toml:"layer" yaml:"layer"`
	IgnoreLayers    uint32  `toml:"ignore_layers" yaml:"ignore_layers"`
}

func (a AgentDefaults) Params() orca.Params {
	return orca.Params{
		Radius:          a.Radius,
		MaxSpeed:        a.MaxSpeed,
		MaxNeighbors:    a.MaxNeighbors,
		NeighborDist:    a.NeighborDist,
		TimeHorizon:     a.TimeHorizon,
		TimeHorizonObst: a.TimeHorizonObst,
		Layer:           a.Layer,
		IgnoreLayers:    a.IgnoreLayers,
	}
}

type Grid struct {
	CellSize float64 `toml:"cell_size" yaml:"cell_size"`
}

// Log configures the process logger. An empty File logs to the console.
type Log struct {
	Level      string `toml:"level" yaml:"level"`
	File       string `toml:"file" yaml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `toml:"compress" yaml:"compress"`
}

type Scenario struct {
	Name   string  `toml:"name" yaml:"name"`     // circle or blocks
	Agents int     `toml:"agents" yaml:"agents"` // circle only
	Radius float64 `toml:"radius" yaml:"radius"` // circle only
	Seed   int64   `toml:"seed" yaml:"seed"`
	Steps  int     `toml:"steps" yaml:"steps"` // upper bound for batch runs
}

type Stream struct {
	Addr   string `toml:"addr" yaml:"addr"`
	Buffer int    `toml:"buffer" yaml:"buffer"` // frames queued per client
}

// Default returns the parameters of the classic circle benchmark.
func Default() *Config {
	return &Config{
		TimeStep: 0.25,
		Workers:  4,
		Epsilon:  orca.Epsilon,
		Agent: AgentDefaults{
			Radius:          1.5,
			MaxSpeed:        2,
			MaxNeighbors:    10,
			NeighborDist:    15,
			TimeHorizon:     10,
			TimeHorizonObst: 10,
		},
		Grid: Grid{CellSize: 8},
		Log: Log{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Scenario: Scenario{
			Name:   "circle",
			Agents: 250,
			Radius: 200,
			Seed:   1,
			Steps:  5000,
		},
		Stream: Stream{
			Addr:   ":8080",
			Buffer: 16,
		},
	}
}

// Load reads path over the defaults. The format follows the file
// extension: .toml, .yaml or .yml.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing config TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var err error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, fmt.Errorf(format, args...))
		}
	}

	check(c.TimeStep > 0, "time_step must be positive, got %v", c.TimeStep)
	check(c.Workers > 0, "workers must be positive, got %d", c.Workers)
	check(c.Epsilon > 0, "epsilon must be positive, got %v", c.Epsilon)

	a := c.Agent
	check(a.Radius > 0, "agent.radius must be positive, got %v", a.Radius)
	check(a.MaxSpeed > 0, "agent.max_speed must be positive, got %v", a.MaxSpeed)
	check(a.MaxNeighbors >= 0, "agent.max_neighbors must not be negative, got %d", a.MaxNeighbors)
	check(a.NeighborDist > 0, "agent.neighbor_dist must be positive, got %v", a.NeighborDist)
	check(a.TimeHorizon > 0, "agent.time_horizon must be positive, got %v", a.TimeHorizon)
	check(a.TimeHorizonObst > 0, "agent.time_horizon_obst must be positive, got %v", a.TimeHorizonObst)

	check(c.Grid.CellSize > 0, "grid.cell_size must be positive, got %v", c.Grid.CellSize)
	check(c.Stream.Buffer > 0, "stream.buffer must be positive, got %d", c.Stream.Buffer)
	check(c.Scenario.Steps >= 0, "scenario.steps must not be negative, got %d", c.Scenario.Steps)
	return err
}
