package physics

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/voxelphys/internal/core/components"
	"github.com/zeusync/voxelphys/internal/core/events/bus"
	"github.com/zeusync/voxelphys/internal/core/models"
	"github.com/zeusync/voxelphys/internal/core/observability/log"
	"github.com/zeusync/voxelphys/internal/core/system"
	"github.com/zeusync/voxelphys/internal/core/terrain"
)

func spawnBox(w *system.World, pos mgl32.Vec3) models.EntityID {
	id := w.Spawn()
	w.Pos.Insert(id, components.Pos{V: pos})
	w.Vel.Insert(id, components.Vel{})
	w.Ori.Insert(id, components.Ori{})
	w.Collider.Insert(id, components.BoxCollider(0.4, 0, 1.75))
	w.Gravity.Insert(id, 1)
	return id
}

type recorder struct {
	mu     sync.Mutex
	events []LandOnGround
}

func (r *recorder) handle(e bus.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.(LandOnGround))
	return nil
}

func tickN(t *testing.T, s *System, w *system.World, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, s.Tick(context.Background(), dt, w))
		w.Advance()
	}
}

func TestSystemDropOntoFloor(t *testing.T) {
	events := bus.New()
	rec := &recorder{}
	_, err := events.Subscribe(EventLandOnGround, rec.handle)
	require.NoError(t, err)

	w := system.NewWorld()
	id := spawnBox(w, mgl32.Vec3{0, 0, 10})
	s := New(flatFloor(-2, 1), events, log.NewNop(), WithWorkers(2))

	tickN(t, s, w, 300)

	state, ok := w.PhysicsState.Get(id)
	require.True(t, ok)
	assert.True(t, state.OnGround)

	pos, _ := w.Pos.Get(id)
	vel, _ := w.Vel.Get(id)
	assert.InDelta(t, 1.0, pos.V[2], 1e-4)
	assert.Equal(t, float32(0), vel.V[2])

	require.Len(t, rec.events, 1)
	ev := rec.events[0]
	assert.Equal(t, id, ev.Entity)
	assert.Equal(t, w.Uid(id), ev.Uid)
	assert.Less(t, ev.Velocity[2], float32(0))
	assert.Greater(t, ev.Tick, uint64(0))
	assert.Equal(t, Name, ev.Source())

	m := s.GetMetrics()
	assert.Equal(t, uint64(300), m.ExecutionCount)
	assert.Equal(t, uint64(1), m.Landings)
	assert.Equal(t, uint64(300), m.EntitiesProcessed)
}

func TestSystemUnloadedChunkIsFrozen(t *testing.T) {
	w := system.NewWorld()
	id := spawnBox(w, mgl32.Vec3{100, 100, 10})
	w.Vel.Insert(id, components.Vel{V: mgl32.Vec3{0.5, 0, -2}})

	s := New(flatFloor(-2, 1), nil, log.NewNop())

	want := mgl32.Vec3{0.5, 0, -2}
	for i := 0; i < 10; i++ {
		require.NoError(t, s.Tick(context.Background(), dt, w))
		want = want.Mul(LinearDamp(dt, FrictionAir))
		pos, _ := w.Pos.Get(id)
		vel, _ := w.Vel.Get(id)
		assert.Equal(t, mgl32.Vec3{100, 100, 10}, pos.V)
		assert.Equal(t, want, vel.V)
	}
	assert.Equal(t, uint64(10), s.GetMetrics().Frozen)
}

func TestSystemStateAndEligibility(t *testing.T) {
	w := system.NewWorld()

	mounted := spawnBox(w, mgl32.Vec3{0, 0, 5})
	w.Mounting.Insert(mounted, components.Mounting{Mount: 99})

	noOri := spawnBox(w, mgl32.Vec3{0.5, 0.5, 5})
	w.Ori.Remove(noOri)

	s := New(flatFloor(-2, 1), nil, log.NewNop())
	require.NoError(t, s.Tick(context.Background(), dt, w))

	assert.True(t, w.PhysicsState.Has(mounted))
	assert.False(t, w.PhysicsState.Has(noOri))

	pos, _ := w.Pos.Get(mounted)
	assert.Equal(t, mgl32.Vec3{0, 0, 5}, pos.V)
	pos, _ = w.Pos.Get(noOri)
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 5}, pos.V)
}

func TestSystemPushbackBetweenEntities(t *testing.T) {
	w := system.NewWorld()
	a := spawnBox(w, mgl32.Vec3{0, 0.5, 1})
	b := spawnBox(w, mgl32.Vec3{0.5, 0.5, 1})

	s := New(flatFloor(-4, 4), nil, log.NewNop())
	require.NoError(t, s.Tick(context.Background(), dt, w))

	va, _ := w.Vel.Get(a)
	vb, _ := w.Vel.Get(b)
	assert.Less(t, va.V[0], float32(0))
	assert.Greater(t, vb.V[0], float32(0))

	sa, _ := w.PhysicsState.Get(a)
	uid, ok := sa.Touch()
	require.True(t, ok)
	assert.Equal(t, w.Uid(b), uid)
}

func TestSystemBusErrorDoesNotFailTick(t *testing.T) {
	events := bus.New()
	_, err := events.Subscribe(EventLandOnGround, func(bus.Event) error { return errors.New("sink down") })
	require.NoError(t, err)

	w := system.NewWorld()
	spawnBox(w, mgl32.Vec3{0, 0, 1.2})
	s := New(flatFloor(-2, 1), events, log.NewNop())

	tickN(t, s, w, 30)
	assert.Equal(t, uint64(1), s.GetMetrics().Landings)
	assert.Zero(t, s.GetMetrics().ErrorCount)
}

func TestSystemCancelledContext(t *testing.T) {
	w := system.NewWorld()
	id := spawnBox(w, mgl32.Vec3{0, 0, 5})
	s := New(flatFloor(-2, 1), nil, log.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Tick(ctx, dt, w)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, uint64(1), s.GetMetrics().ErrorCount)

	pos, _ := w.Pos.Get(id)
	assert.Equal(t, mgl32.Vec3{0, 0, 5}, pos.V)
	assert.Zero(t, s.GetMetrics().EntitiesProcessed)
}

// cancelOnRead cancels its context on the first voxel read.
type cancelOnRead struct {
	*terrain.Volume
	once   sync.Once
	cancel context.CancelFunc
}

func (c *cancelOnRead) Get(p terrain.Pos) (terrain.Block, error) {
	c.once.Do(c.cancel)
	return c.Volume.Get(p)
}

func TestSystemStartedTickCompletes(t *testing.T) {
	events := bus.New()
	rec := &recorder{}
	_, err := events.Subscribe(EventLandOnGround, rec.handle)
	require.NoError(t, err)

	w := system.NewWorld()
	var ids []models.EntityID
	for i := 0; i < 64; i++ {
		x, y := float32(i%8)*2-8, float32(i/8)*2-8
		ids = append(ids, spawnBox(w, mgl32.Vec3{x, y, 1.001}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sampler := &cancelOnRead{Volume: arena(), cancel: cancel}
	s := New(sampler, events, log.NewNop(), WithWorkers(4))

	require.NoError(t, s.Tick(ctx, dt, w))
	require.Error(t, ctx.Err())

	for _, id := range ids {
		state, ok := w.PhysicsState.Get(id)
		require.True(t, ok)
		assert.True(t, state.OnGround, "entity %v", id)
	}
	assert.Equal(t, uint64(64), s.GetMetrics().EntitiesProcessed)
	assert.Len(t, rec.events, 64)
}

// crowd builds a deterministic scene of falling and walking entities.
func crowd(n int) *system.World {
	rng := rand.New(rand.NewPCG(1, 2))
	w := system.NewWorld()
	for i := 0; i < n; i++ {
		pos := mgl32.Vec3{rng.Float32()*30 - 15, rng.Float32()*30 - 15, 1 + rng.Float32()*8}
		id := spawnBox(w, pos)
		w.Vel.Insert(id, components.Vel{V: mgl32.Vec3{rng.Float32()*6 - 3, rng.Float32()*6 - 3, 0}})
		if i%7 == 0 {
			w.Scale.Insert(id, 1.5)
		}
		if i%11 == 0 {
			w.Collider.Insert(id, components.PointCollider())
		}
	}
	return w
}

func arena() *terrain.Volume { return flatFloor(-24, 24) }

func TestSystemParallelMatchesSequential(t *testing.T) {
	terrainA, terrainB := arena(), arena()
	seq, par := crowd(300), crowd(300)

	eventsA, eventsB := bus.New(), bus.New()
	recA, recB := &recorder{}, &recorder{}
	_, err := eventsA.Subscribe(EventLandOnGround, recA.handle)
	require.NoError(t, err)
	_, err = eventsB.Subscribe(EventLandOnGround, recB.handle)
	require.NoError(t, err)

	one := New(terrainA, eventsA, log.NewNop(), WithWorkers(1))
	many := New(terrainB, eventsB, log.NewNop(), WithWorkers(8))

	tickN(t, one, seq, 90)
	tickN(t, many, par, 90)

	for _, id := range seq.Entities.Entities() {
		pa, _ := seq.Pos.Get(id)
		pb, _ := par.Pos.Get(id)
		require.Equal(t, pa.V, pb.V, "entity %s", id)
		va, _ := seq.Vel.Get(id)
		vb, _ := par.Vel.Get(id)
		require.Equal(t, va.V, vb.V, "entity %s", id)
	}

	require.Equal(t, len(recA.events), len(recB.events))
	for i := range recA.events {
		assert.Equal(t, recA.events[i].Entity, recB.events[i].Entity)
		assert.Equal(t, recA.events[i].Tick, recB.events[i].Tick)
	}
}

func BenchmarkSystemTick(b *testing.B) {
	w := crowd(1000)
	s := New(arena(), nil, log.NewNop())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.Tick(ctx, dt, w); err != nil {
			b.Fatal(err)
		}
		w.Advance()
	}
}
