// Package physics integrates entity motion and resolves collisions against
// voxel terrain and between entities.
package physics

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/zeusync/voxelphys/internal/core/components"
	"github.com/zeusync/voxelphys/internal/core/events/bus"
	"github.com/zeusync/voxelphys/internal/core/models"
	"github.com/zeusync/voxelphys/internal/core/observability/log"
	"github.com/zeusync/voxelphys/internal/core/system"
	"github.com/zeusync/voxelphys/internal/core/systems"
	"github.com/zeusync/voxelphys/internal/core/terrain"
	"github.com/zeusync/voxelphys/pkg/concurrent"
	"github.com/zeusync/voxelphys/pkg/generic"
	"github.com/zeusync/voxelphys/pkg/sequence"
)

const Name = "physics"

var _ systems.System = (*System)(nil)

// Option is a function that configures the physics system.
type Option func(*Config)

// Config holds the physics system settings.
type Config struct {
	Workers int  // Parallel fan-out width; defaults to GOMAXPROCS
	Debug   bool // Check every written vector for NaN
}

// WithWorkers sets the number of goroutines used for per-entity integration.
func WithWorkers(n int) Option {
	return func(c *Config) { c.Workers = n }
}

// WithDebug enables NaN checks on positions and velocities.
func WithDebug(enabled bool) Option {
	return func(c *Config) { c.Debug = enabled }
}

// batch is what one worker hands back from the parallel pass.
type batch struct {
	landings  []LandOnGround
	processed uint64
	stalls    uint64
	frozen    uint64
}

// System runs once per tick:
//  1. give every physical entity a PhysicsState,
//  2. integrate and resolve terrain collisions in parallel,
//  3. apply entity pushback sequentially,
//  4. publish landing events in entity order.
type System struct {
	cfg     Config
	stepper Stepper
	events  bus.EventBus
	log     log.Log
	buffers *generic.Pool[[]LandOnGround]

	mu      sync.RWMutex
	metrics systems.Metrics
}

func New(sampler terrain.Sampler, events bus.EventBus, logger log.Log, opts ...Option) *System {
	cfg := Config{Workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &System{
		cfg:     cfg,
		stepper: NewStepper(sampler, NewTemplateCache()),
		events:  events,
		log:     logger.With(log.String("system", Name)),
		buffers: generic.NewPool(
			func() []LandOnGround { return make([]LandOnGround, 0, 16) },
			func(b []LandOnGround) []LandOnGround { return b[:0] },
		),
	}
}

func (s *System) Name() string               { return Name }
func (s *System) Priority() systems.Priority { return systems.PriorityHigh }

func (s *System) GetMetrics() systems.Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics
}

func (s *System) Tick(ctx context.Context, dt float32, w *system.World) error {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		s.record(time.Since(start), err, batch{})
		return err
	}
	// Once started, a tick runs to completion.
	ctx = context.WithoutCancel(ctx)

	ensureStates(w)

	ids := sequence.From(w.Entities.Entities()).
		Filter(func(id models.EntityID) bool { return physical(w, id) }).
		Collect()

	parts, err := concurrent.Partition(ctx, ids, s.cfg.Workers, func(_ context.Context, chunk []models.EntityID) (batch, error) {
		return s.simulate(w, dt, chunk), nil
	})
	if err != nil {
		err = fmt.Errorf("physics fan-out: %w", err)
		s.record(time.Since(start), err, batch{})
		return err
	}

	total := concurrent.Fold(parts, batch{}, func(acc batch, b batch) batch {
		acc.landings = append(acc.landings, b.landings...)
		acc.processed += b.processed
		acc.stalls += b.stalls
		acc.frozen += b.frozen
		s.buffers.Put(b.landings)
		return acc
	})

	s.pushback(w)
	s.publish(w, total.landings)

	s.record(time.Since(start), nil, total)
	return nil
}

// simulate steps every entity of one chunk. Each id is written by exactly
// one worker, and terrain is read-only during the pass.
func (s *System) simulate(w *system.World, dt float32, chunk []models.EntityID) batch {
	out := batch{landings: s.buffers.Get()}

	for _, id := range chunk {
		pos, vel, state := w.Pos.Ref(id), w.Vel.Ref(id), w.PhysicsState.Ref(id)
		collider, _ := w.Collider.Get(id)

		next, res := s.stepper.Step(dt, Body{
			Pos:      pos.V,
			Vel:      vel.V,
			Collider: collider,
			Scale:    float32(w.Scale.GetOr(id, 1)),
			Gravity:  float32(w.Gravity.GetOr(id, 0)),
			Sticky:   w.Sticky.Has(id),
			State:    *state,
		})

		if s.cfg.Debug && (hasNaN(next.Pos) || hasNaN(next.Vel)) {
			s.log.Warn("non-finite physics result",
				log.String("entity", id.String()),
				log.Vec3("pos", next.Pos),
				log.Vec3("vel", next.Vel),
			)
		}

		pos.V, vel.V, *state = next.Pos, next.Vel, next.State
		out.processed++

		if res.Frozen {
			out.frozen++
		}
		if res.Stalled {
			out.stalls++
			s.log.Debug("collision resolution did not converge",
				log.String("entity", id.String()),
				log.Vec3("pos", next.Pos),
			)
		}
		if res.Landed {
			out.landings = append(out.landings, LandOnGround{
				Entity:   id,
				Uid:      w.Uid(id),
				Velocity: res.Impact,
				Tick:     w.Tick(),
			})
		}
	}
	return out
}

// pushback gathers every collider-bearing, unmounted entity and applies the
// horizontal separation pass to the active ones.
func (s *System) pushback(w *system.World) {
	var (
		ids    []models.EntityID
		bodies []PushBody
	)
	for _, id := range w.Entities.Entities() {
		if !w.Collider.Has(id) || w.Mounting.Has(id) {
			continue
		}
		pos, ok := w.Pos.Get(id)
		if !ok {
			continue
		}
		scale := w.Scale.GetOr(id, 1)
		body := PushBody{
			Uid:   w.Uid(id),
			Pos:   pos.V,
			Scale: float32(scale),
			Mass:  float32(w.Mass.GetOr(id, components.Mass(scale))),
		}
		body.Group, body.HasGroup = w.Group.Get(id)
		body.Projectile, body.IsProjectile = w.Projectile.Get(id)

		if state, ok := w.PhysicsState.Get(id); ok && w.Vel.Has(id) && physical(w, id) {
			resting := w.Sticky.Has(id) && state.OnSurface()
			body.Active = !resting && terrain.Resident(s.stepper.terrain, pos.V)
		}
		ids = append(ids, id)
		bodies = append(bodies, body)
	}

	results := ResolvePushback(bodies, func(uid components.Uid) (components.Group, bool) {
		owner, ok := w.EntityByUid(uid)
		if !ok {
			return 0, false
		}
		return w.Group.Get(owner)
	})

	for i, id := range ids {
		if !bodies[i].Active {
			continue
		}
		state := w.PhysicsState.Ref(id)
		state.Touching, state.TouchEntity = results[i].Touching, results[i].TouchEntity
		if results[i].Touching {
			vel := w.Vel.Ref(id)
			vel.V = vel.V.Add(results[i].VelDelta)
		}
	}
}

func (s *System) publish(w *system.World, landings []LandOnGround) {
	if len(landings) == 0 || s.events == nil {
		return
	}
	slices.SortFunc(landings, func(a, b LandOnGround) int {
		return int(a.Entity.Index()) - int(b.Entity.Index())
	})

	now := time.Now()
	events := make([]bus.Event, len(landings))
	for i := range landings {
		landings[i].At = now
		events[i] = landings[i]
	}
	if err := s.events.PublishBatch(events...); err != nil {
		s.log.Warn("landing event delivery failed",
			log.Uint64("tick", w.Tick()),
			log.Int("events", len(events)),
			log.Error(err),
		)
	}
}

func (s *System) record(took time.Duration, err error, b batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics.Record(took, err)
	s.metrics.EntitiesProcessed += b.processed
	s.metrics.Landings += uint64(len(b.landings))
	s.metrics.Stalls += b.stalls
	s.metrics.Frozen += b.frozen
}

// ensureStates inserts a default PhysicsState for every entity that has the
// full physics bundle but no state yet. Mounted entities get one too.
func ensureStates(w *system.World) {
	for _, id := range w.Entities.Entities() {
		if w.PhysicsState.Has(id) {
			continue
		}
		if w.Pos.Has(id) && w.Vel.Has(id) && w.Ori.Has(id) && w.Collider.Has(id) {
			w.PhysicsState.Insert(id, components.PhysicsState{})
		}
	}
}

// physical reports whether the entity takes part in integration.
func physical(w *system.World, id models.EntityID) bool {
	return w.Pos.Has(id) && w.Vel.Has(id) && w.Ori.Has(id) &&
		w.Collider.Has(id) && w.PhysicsState.Has(id) && !w.Mounting.Has(id)
}
