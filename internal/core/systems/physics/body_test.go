package physics

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/voxelphys/internal/core/components"
	"github.com/zeusync/voxelphys/internal/core/terrain"
)

// flatFloor returns a volume whose solid layer z=0 spans [lo, hi] in x and y,
// so standing entities rest at z=1.
func flatFloor(lo, hi int32) *terrain.Volume {
	v := terrain.NewVolume()
	v.Fill(terrain.Pos{X: lo, Y: lo, Z: 0}, terrain.Pos{X: hi, Y: hi, Z: 0}, terrain.Solid(1))
	return v
}

func humanoid(pos mgl32.Vec3) Body {
	return Body{
		Pos:      pos,
		Collider: components.BoxCollider(0.4, 0, 1.75),
		Scale:    1,
		Gravity:  1,
	}
}

func run(st Stepper, b Body, ticks int) (Body, int) {
	landings := 0
	for i := 0; i < ticks; i++ {
		var out Outcome
		b, out = st.Step(dt, b)
		if out.Landed {
			landings++
		}
	}
	return b, landings
}

func TestFallingBoxComesToRest(t *testing.T) {
	st := NewStepper(flatFloor(-2, 1), nil)

	b, landings := run(st, humanoid(mgl32.Vec3{0, 0, 10}), 300)

	assert.True(t, b.State.OnGround)
	assert.InDelta(t, 1.0, b.Pos[2], 1e-4)
	assert.Equal(t, float32(0), b.Vel[2])
	assert.False(t, b.State.OnWall)
	assert.Equal(t, 1, landings)
}

func TestLandingReportsImpactVelocity(t *testing.T) {
	st := NewStepper(flatFloor(-2, 1), nil)
	b := humanoid(mgl32.Vec3{0, 0, 3})

	for i := 0; i < 300; i++ {
		var out Outcome
		b, out = st.Step(dt, b)
		if out.Landed {
			assert.Less(t, out.Impact[2], float32(0))
			return
		}
	}
	t.Fatal("entity never landed")
}

func TestRestingEntityStaysGrounded(t *testing.T) {
	st := NewStepper(flatFloor(-2, 1), nil)
	b := humanoid(mgl32.Vec3{0, 0, 1})
	b.State.OnGround = true

	for i := 0; i < 120; i++ {
		var out Outcome
		b, out = st.Step(dt, b)
		require.True(t, b.State.OnGround, "tick %d", i)
		require.False(t, out.Landed, "tick %d", i)
		require.Equal(t, float32(1), b.Pos[2], "tick %d", i)
	}
}

func TestFrozenWhenChunkUnloaded(t *testing.T) {
	st := NewStepper(flatFloor(-2, 1), nil)
	b := humanoid(mgl32.Vec3{100, 100, 10})
	b.Vel = mgl32.Vec3{1, 2, -3}
	start := b

	want := start.Vel
	for i := 0; i < 10; i++ {
		var out Outcome
		b, out = st.Step(dt, b)
		require.True(t, out.Frozen)
		want = want.Mul(LinearDamp(dt, FrictionAir))
	}
	assert.Equal(t, start.Pos, b.Pos)
	assert.Equal(t, want, b.Vel)
	assert.Equal(t, start.State, b.State)
}

func TestFrozenFromRestIsUnchanged(t *testing.T) {
	st := NewStepper(flatFloor(-2, 1), nil)
	start := humanoid(mgl32.Vec3{100, 100, 10})

	b, out := st.Step(dt, start)

	assert.True(t, out.Frozen)
	assert.Equal(t, start, b)
}

func TestBlockHopOntoLedge(t *testing.T) {
	v := flatFloor(-4, 4)
	v.Fill(terrain.Pos{X: 1, Y: -4, Z: 1}, terrain.Pos{X: 4, Y: 4, Z: 1}, terrain.Solid(1))
	st := NewStepper(v, nil)

	b := humanoid(mgl32.Vec3{0.2, 0.5, 1})
	b.State.OnGround = true

	for i := 0; i < 40; i++ {
		b.Vel[0] = 4
		b, _ = st.Step(dt, b)
	}

	assert.Greater(t, b.Pos[0], float32(1.4))
	assert.InDelta(t, 2.0, b.Pos[2], 1e-4)
	assert.True(t, b.State.OnGround)
}

func TestTallWallBlocksMovement(t *testing.T) {
	v := flatFloor(-4, 4)
	v.Fill(terrain.Pos{X: 1, Y: -4, Z: 1}, terrain.Pos{X: 1, Y: 4, Z: 3}, terrain.Solid(1))
	st := NewStepper(v, nil)

	b := humanoid(mgl32.Vec3{0.2, 0.5, 1})
	b.State.OnGround = true

	for i := 0; i < 40; i++ {
		b.Vel[0] = 4
		b, _ = st.Step(dt, b)
	}

	assert.LessOrEqual(t, b.Pos[0]+0.4, float32(1.0001))
	assert.InDelta(t, 1.0, b.Pos[2], 1e-4)
	wall, ok := b.State.Wall()
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, wall)
}

func TestWallProbeReportsDirection(t *testing.T) {
	v := flatFloor(-4, 4)
	v.Fill(terrain.Pos{X: 1, Y: -4, Z: 1}, terrain.Pos{X: 1, Y: 4, Z: 3}, terrain.Solid(1))
	st := NewStepper(v, nil)

	b := Body{
		Pos:      mgl32.Vec3{0.625, 0.5, 1},
		Collider: components.BoxCollider(0.375, 0, 1.75),
		Scale:    1,
		Gravity:  1,
		State:    components.PhysicsState{OnGround: true},
	}
	b, _ = st.Step(dt, b)

	assert.True(t, b.State.OnGround)
	assert.True(t, b.State.OnWall)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, b.State.WallDir)
	assert.Equal(t, float32(0.625), b.Pos[0])
}

func TestCeilingStopsAscent(t *testing.T) {
	v := terrain.NewVolume()
	v.Fill(terrain.Pos{X: -2, Y: -2, Z: 5}, terrain.Pos{X: 2, Y: 2, Z: 5}, terrain.Solid(1))
	st := NewStepper(v, nil)

	b := humanoid(mgl32.Vec3{0.5, 0.5, 3})
	b.Gravity = 0
	b.Vel = mgl32.Vec3{0, 0, 10}

	for i := 0; i < 60 && !b.State.OnCeiling; i++ {
		b, _ = st.Step(dt, b)
	}

	require.True(t, b.State.OnCeiling)
	assert.Equal(t, float32(0), b.Vel[2])
	assert.LessOrEqual(t, b.Pos[2]+1.75, float32(5.0001))
	assert.False(t, b.State.OnGround)
}

func TestFluidDepth(t *testing.T) {
	v := terrain.NewVolume()
	v.Fill(terrain.Pos{X: -2, Y: -2, Z: 0}, terrain.Pos{X: 2, Y: 2, Z: 2}, terrain.Fluid())
	st := NewStepper(v, nil)

	b := humanoid(mgl32.Vec3{0.5, 0.5, 0.5})
	b.State = components.PhysicsState{InFluid: true, FluidDepth: 2.5}

	b, _ = st.Step(dt, b)

	depth, ok := b.State.Fluid()
	require.True(t, ok)
	assert.Equal(t, float32(2.5), depth)
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 0.5}, b.Pos)
	assert.False(t, b.State.OnGround)
}

func TestStickyEntityRests(t *testing.T) {
	st := NewStepper(flatFloor(-2, 1), nil)

	b := humanoid(mgl32.Vec3{0, 0, 4})
	b.Sticky = true
	b.Vel = mgl32.Vec3{5, 0, -2}
	b.State = components.PhysicsState{OnWall: true, WallDir: mgl32.Vec3{1, 0, 0}}
	before := b.State

	b, out := st.Step(dt, b)

	assert.True(t, out.Resting)
	assert.Equal(t, mgl32.Vec3{}, b.Vel)
	assert.Equal(t, mgl32.Vec3{0, 0, 4}, b.Pos)
	assert.Equal(t, before, b.State)
}

func TestTouchSurvivesStep(t *testing.T) {
	st := NewStepper(flatFloor(-2, 1), nil)

	b := humanoid(mgl32.Vec3{0, 0, 1})
	b.State = components.PhysicsState{OnGround: true, Touching: true, TouchEntity: 7}

	b, _ = st.Step(dt, b)

	uid, ok := b.State.Touch()
	assert.True(t, ok)
	assert.Equal(t, components.Uid(7), uid)
}

func TestPointColliderLands(t *testing.T) {
	st := NewStepper(flatFloor(-2, 2), nil)

	b := Body{
		Pos:      mgl32.Vec3{0.5, 0.5, 3},
		Vel:      mgl32.Vec3{0, 0, -30},
		Collider: components.PointCollider(),
		Scale:    1,
		Gravity:  1,
	}
	for i := 0; i < 60 && !b.State.OnGround; i++ {
		b, _ = st.Step(dt, b)
	}

	require.True(t, b.State.OnGround)
	assert.InDelta(t, 1.0, b.Pos[2], 1e-4)
	assert.Equal(t, float32(0), b.Vel[2])
}

func TestPointColliderHitsWall(t *testing.T) {
	v := terrain.NewVolume()
	v.Fill(terrain.Pos{X: 3, Y: -2, Z: 0}, terrain.Pos{X: 3, Y: 2, Z: 4}, terrain.Solid(1))
	st := NewStepper(v, nil)

	b := Body{
		Pos:      mgl32.Vec3{1.5, 0.5, 2.5},
		Vel:      mgl32.Vec3{30, 0, 0},
		Collider: components.PointCollider(),
		Scale:    1,
	}
	for i := 0; i < 30 && !b.State.OnWall; i++ {
		b, _ = st.Step(dt, b)
	}

	wall, ok := b.State.Wall()
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, wall)
	assert.Equal(t, float32(0), b.Vel[0])
	assert.InDelta(t, 3.0, b.Pos[0], 1e-4)
}

func TestNoPenetrationAfterResolution(t *testing.T) {
	v := flatFloor(-6, 6)
	for _, wall := range [][2]terrain.Pos{
		{{X: -4, Y: -4, Z: 1}, {X: 4, Y: -4, Z: 3}},
		{{X: -4, Y: 4, Z: 1}, {X: 4, Y: 4, Z: 3}},
		{{X: -4, Y: -4, Z: 1}, {X: -4, Y: 4, Z: 3}},
		{{X: 4, Y: -4, Z: 1}, {X: 4, Y: 4, Z: 3}},
	} {
		v.Fill(wall[0], wall[1], terrain.Solid(1))
	}
	st := NewStepper(v, nil)
	rng := rand.New(rand.NewPCG(7, 11))

	b := humanoid(mgl32.Vec3{0.5, 0.5, 1})
	b.State.OnGround = true
	sh := shapeOf(b.Collider, b.Scale)
	tmpl := st.templates.Get(sh)

	for i := 0; i < 600; i++ {
		b.Vel[0] = rng.Float32()*16 - 8
		b.Vel[1] = rng.Float32()*16 - 8

		var out Outcome
		b, out = st.Step(dt, b)
		if out.Stalled {
			continue
		}
		require.False(t, st.collides(b.Pos, isSolid, sh, tmpl), "tick %d at %v", i, b.Pos)
	}
}

func TestWalkOffStepSnapsDown(t *testing.T) {
	v := flatFloor(-4, 6)
	v.Fill(terrain.Pos{X: -4, Y: -4, Z: 1}, terrain.Pos{X: 0, Y: 4, Z: 1}, terrain.Solid(1))
	st := NewStepper(v, nil)

	b := humanoid(mgl32.Vec3{-1, 0.5, 2})
	b.State.OnGround = true

	for i := 0; i < 60; i++ {
		b.Vel[0] = 4
		var out Outcome
		b, out = st.Step(dt, b)
		require.True(t, b.State.OnGround, "tick %d at %v", i, b.Pos)
		require.False(t, out.Landed, "tick %d", i)
	}

	assert.Greater(t, b.Pos[0], float32(1.4))
	assert.InDelta(t, 1.0, b.Pos[2], 1e-4)
}

// solidEverywhere is a resident world with no free space.
type solidEverywhere struct{}

func (solidEverywhere) Get(terrain.Pos) (terrain.Block, error) { return terrain.Solid(1), nil }

func (solidEverywhere) GetKey(terrain.ChunkKey) (*terrain.Chunk, bool) { return nil, true }

func TestUnresolvableContactStalls(t *testing.T) {
	st := NewStepper(solidEverywhere{}, nil)

	b := humanoid(mgl32.Vec3{0.5, 0.5, 3})
	b.Vel = mgl32.Vec3{2, 0, -1}

	b, out := st.Step(dt, b)

	assert.True(t, out.Stalled)
	assert.Equal(t, mgl32.Vec3{0.5, 0.5, 3}, b.Pos)
	assert.Equal(t, mgl32.Vec3{}, b.Vel)
}

func TestOpposingWallsCancel(t *testing.T) {
	v := flatFloor(-4, 4)
	v.Fill(terrain.Pos{X: -1, Y: -4, Z: 1}, terrain.Pos{X: -1, Y: 4, Z: 3}, terrain.Solid(1))
	v.Fill(terrain.Pos{X: 1, Y: -4, Z: 1}, terrain.Pos{X: 1, Y: 4, Z: 3}, terrain.Solid(1))
	st := NewStepper(v, nil)

	b := Body{
		Pos:      mgl32.Vec3{0.5, 0.5, 1},
		Collider: components.BoxCollider(0.5, 0, 1.75),
		Scale:    1,
		Gravity:  1,
		State:    components.PhysicsState{OnGround: true},
	}
	b, _ = st.Step(dt, b)

	assert.True(t, b.State.OnGround)
	assert.Equal(t, mgl32.Vec3{}, b.State.WallDir)
	_, ok := b.State.Wall()
	assert.False(t, ok)
}

func TestPointColliderSurvivesBadVelocity(t *testing.T) {
	st := NewStepper(flatFloor(-2, 2), nil)
	nan := float32(math.NaN())

	tests := []struct {
		name string
		vel  mgl32.Vec3
	}{
		{name: "nan", vel: mgl32.Vec3{nan, 0, 0}},
		{name: "infinite", vel: mgl32.Vec3{float32(math.Inf(1)), 0, 0}},
		{name: "huge", vel: mgl32.Vec3{1e12, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Body{
				Pos:      mgl32.Vec3{0.5, 0.5, 5},
				Vel:      tt.vel,
				Collider: components.PointCollider(),
				Scale:    1,
			}

			done := make(chan Body, 1)
			go func() {
				next, _ := st.Step(dt, b)
				done <- next
			}()

			select {
			case next := <-done:
				assert.False(t, next.State.OnGround)
			case <-time.After(3 * time.Second):
				t.Fatal("Step did not return")
			}
		})
	}
}
