// Package config loads the simulator configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrUnknownCollider = errors.New("unknown collider kind")
	ErrUnknownBlock    = errors.New("unknown block kind")
)

// Config is the root of the YAML document.
type Config struct {
	Simulation Simulation `yaml:"simulation"`
	Log        Log        `yaml:"log"`
	Server     Server     `yaml:"server"`
	Scene      Scene      `yaml:"scene"`
}

type Simulation struct {
	TickRate int  `yaml:"tick_rate"` // Ticks per second
	Workers  int  `yaml:"workers"`   // 0 means GOMAXPROCS
	Ticks    int  `yaml:"ticks"`     // Stop after this many ticks; 0 runs until cancelled
	Debug    bool `yaml:"debug"`     // NaN checks in the physics pass
}

// Dt is the fixed timestep in seconds.
func (s Simulation) Dt() float32 { return 1 / float32(s.TickRate) }

// Interval is the wall-clock period between ticks.
func (s Simulation) Interval() time.Duration {
	return time.Second / time.Duration(s.TickRate)
}

type Log struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"` // json or console
}

type Server struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	// Every streams one snapshot per this many ticks.
	Every int `yaml:"every"`
}

// Scene describes the initial terrain and entities.
type Scene struct {
	Chunks   [][2]int32 `yaml:"chunks"` // resident chunk keys with no blocks
	Fills    []Fill     `yaml:"fills"`
	Entities []Entity   `yaml:"entities"`
}

// Fill writes one block kind into an inclusive voxel box.
type Fill struct {
	Min    [3]int32 `yaml:"min"`
	Max    [3]int32 `yaml:"max"`
	Block  string   `yaml:"block"` // solid, fluid or air
	Height float32  `yaml:"height,omitempty"`
}

type Entity struct {
	Name     string     `yaml:"name"`
	Count    int        `yaml:"count,omitempty"`   // copies spread along Spacing
	Spacing  [3]float32 `yaml:"spacing,omitempty"` // offset between copies
	Pos      [3]float32 `yaml:"pos"`
	Vel      [3]float32 `yaml:"vel,omitempty"`
	Collider Collider   `yaml:"collider"`
	Scale    float32    `yaml:"scale,omitempty"`
	Mass     *float32   `yaml:"mass,omitempty"`
	Gravity  *float32   `yaml:"gravity,omitempty"`
	Sticky   bool       `yaml:"sticky,omitempty"`
	Group    *uint32    `yaml:"group,omitempty"`
}

type Collider struct {
	Kind   string  `yaml:"kind"` // box or point
	Radius float32 `yaml:"radius,omitempty"`
	ZMin   float32 `yaml:"z_min,omitempty"`
	ZMax   float32 `yaml:"z_max,omitempty"`
}

// Default returns a config that runs an empty world at 60 Hz.
func Default() Config {
	return Config{
		Simulation: Simulation{TickRate: 60},
		Log:        Log{Level: "info", Encoding: "json"},
		Server:     Server{Addr: ":8080", Every: 1},
	}
}

// Load reads and validates the YAML file at path on top of Default.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses YAML from r on top of Default. Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Simulation.TickRate <= 0 {
		return fmt.Errorf("%w: simulation.tick_rate must be positive", ErrInvalidConfig)
	}
	if c.Simulation.Workers < 0 {
		return fmt.Errorf("%w: simulation.workers must not be negative", ErrInvalidConfig)
	}
	if c.Simulation.Ticks < 0 {
		return fmt.Errorf("%w: simulation.ticks must not be negative", ErrInvalidConfig)
	}
	switch c.Log.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("%w: log.encoding %q", ErrInvalidConfig, c.Log.Encoding)
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required when the server is enabled", ErrInvalidConfig)
	}
	if c.Server.Every < 1 {
		return fmt.Errorf("%w: server.every must be at least 1", ErrInvalidConfig)
	}

	for i, f := range c.Scene.Fills {
		switch f.Block {
		case "solid", "fluid", "air":
		default:
			return fmt.Errorf("scene.fills[%d]: %w: %q", i, ErrUnknownBlock, f.Block)
		}
		for a := 0; a < 3; a++ {
			if f.Min[a] > f.Max[a] {
				return fmt.Errorf("%w: scene.fills[%d] min exceeds max", ErrInvalidConfig, i)
			}
		}
		if f.Height < 0 || f.Height > 1 {
			return fmt.Errorf("%w: scene.fills[%d].height must be within [0, 1]", ErrInvalidConfig, i)
		}
	}

	for i, e := range c.Scene.Entities {
		switch e.Collider.Kind {
		case "point":
		case "box":
			if e.Collider.Radius <= 0 || e.Collider.ZMax <= e.Collider.ZMin {
				return fmt.Errorf("%w: scene.entities[%d] box collider needs radius > 0 and z_max > z_min", ErrInvalidConfig, i)
			}
		default:
			return fmt.Errorf("scene.entities[%d]: %w: %q", i, ErrUnknownCollider, e.Collider.Kind)
		}
		if e.Scale < 0 || e.Count < 0 {
			return fmt.Errorf("%w: scene.entities[%d] scale and count must not be negative", ErrInvalidConfig, i)
		}
		if e.Mass != nil && *e.Mass < 0 {
			return fmt.Errorf("%w: scene.entities[%d].mass must not be negative", ErrInvalidConfig, i)
		}
	}
	return nil
}
