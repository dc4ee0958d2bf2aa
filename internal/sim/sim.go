// Package sim wires the world, terrain and systems into a fixed-timestep
// simulation loop.
package sim

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/voxelphys/internal/config"
	"github.com/zeusync/voxelphys/internal/core/components"
	"github.com/zeusync/voxelphys/internal/core/events/bus"
	"github.com/zeusync/voxelphys/internal/core/observability/log"
	"github.com/zeusync/voxelphys/internal/core/system"
	"github.com/zeusync/voxelphys/internal/core/systems"
	"github.com/zeusync/voxelphys/internal/core/systems/physics"
	"github.com/zeusync/voxelphys/internal/core/terrain"
)

var ErrAlreadyRunning = errors.New("simulation is already running")

// EntitySnapshot is the public view of one entity after a tick.
type EntitySnapshot struct {
	Uid       components.Uid `json:"uid"`
	Pos       mgl32.Vec3     `json:"pos"`
	Vel       mgl32.Vec3     `json:"vel"`
	OnGround  bool           `json:"on_ground"`
	OnCeiling bool           `json:"on_ceiling"`
	OnWall    bool           `json:"on_wall"`
	InFluid   bool           `json:"in_fluid"`
}

// Snapshot is the state of every positioned entity after one tick.
type Snapshot struct {
	Tick     uint64           `json:"tick"`
	Entities []EntitySnapshot `json:"entities"`
}

// Observer receives a snapshot after every completed tick. Observers run in
// the simulation goroutine and should return quickly.
type Observer func(Snapshot)

type Simulator struct {
	cfg     config.Simulation
	world   *system.World
	terrain *terrain.Volume
	manager *systems.Manager
	physics *physics.System
	log     log.Log

	mu        sync.Mutex
	running   bool
	observers []Observer
}

// New builds a simulator for cfg with its scene already loaded.
func New(cfg config.Config, events bus.EventBus, logger log.Log) (*Simulator, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	vol := terrain.NewVolume()
	world := system.NewWorld()

	spawned, err := BuildScene(cfg.Scene, vol, world)
	if err != nil {
		return nil, fmt.Errorf("build scene: %w", err)
	}

	opts := []physics.Option{physics.WithDebug(cfg.Simulation.Debug)}
	if cfg.Simulation.Workers > 0 {
		opts = append(opts, physics.WithWorkers(cfg.Simulation.Workers))
	}
	phys := physics.New(vol, events, logger, opts...)

	manager := systems.NewManager(logger)
	if err = manager.RegisterSystem(phys); err != nil {
		return nil, err
	}

	logger.Info("scene loaded",
		log.Int("entities", spawned),
		log.Int("chunks", vol.Chunks()),
		log.Int("tick_rate", cfg.Simulation.TickRate),
	)

	return &Simulator{
		cfg:     cfg.Simulation,
		world:   world,
		terrain: vol,
		manager: manager,
		physics: phys,
		log:     logger,
	}, nil
}

func (s *Simulator) World() *system.World      { return s.world }
func (s *Simulator) Terrain() *terrain.Volume  { return s.terrain }
func (s *Simulator) Manager() *systems.Manager { return s.manager }

// Observe registers fn to receive snapshots.
func (s *Simulator) Observe(fn Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Step runs exactly one tick without waiting for the clock.
func (s *Simulator) Step(ctx context.Context) error {
	if err := s.manager.Tick(ctx, s.cfg.Dt(), s.world); err != nil {
		return err
	}

	s.mu.Lock()
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()
	if len(observers) == 0 {
		return nil
	}

	snap := s.Snapshot()
	for _, fn := range observers {
		fn(snap)
	}
	return nil
}

// Run ticks at the configured rate until ctx is cancelled, a system fails,
// or the configured tick count is reached. Cancellation is checked between
// ticks only.
func (s *Simulator) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ticker := time.NewTicker(s.cfg.Interval())
	defer ticker.Stop()

	s.log.Info("simulation started", log.Duration("interval", s.cfg.Interval()))
	for done := 0; s.cfg.Ticks == 0 || done < s.cfg.Ticks; done++ {
		select {
		case <-ctx.Done():
			s.log.Info("simulation stopped", log.Uint64("tick", s.world.Tick()))
			return nil
		case <-ticker.C:
		}
		if err := s.Step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}

	m := s.physics.GetMetrics()
	s.log.Info("simulation finished",
		log.Uint64("tick", s.world.Tick()),
		log.Uint64("landings", m.Landings),
		log.Uint64("stalls", m.Stalls),
		log.Duration("avg_tick", m.AverageExecutionTime),
	)
	return nil
}

// Snapshot captures every entity that has a position.
func (s *Simulator) Snapshot() Snapshot {
	w := s.world
	snap := Snapshot{Tick: w.Tick()}
	for _, id := range w.Entities.Entities() {
		pos, ok := w.Pos.Get(id)
		if !ok {
			continue
		}
		vel, _ := w.Vel.Get(id)
		state, _ := w.PhysicsState.Get(id)
		snap.Entities = append(snap.Entities, EntitySnapshot{
			Uid:       w.Uid(id),
			Pos:       pos.V,
			Vel:       vel.V,
			OnGround:  state.OnGround,
			OnCeiling: state.OnCeiling,
			OnWall:    state.OnWall,
			InFluid:   state.InFluid,
		})
	}
	return snap
}
