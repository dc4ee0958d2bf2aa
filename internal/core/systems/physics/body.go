package physics

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/voxelphys/internal/core/components"
	"github.com/zeusync/voxelphys/internal/core/terrain"
)

// Body is the component bundle one entity contributes to a physics step.
type Body struct {
	Pos      mgl32.Vec3
	Vel      mgl32.Vec3
	Collider components.Collider
	Scale    float32
	Gravity  float32
	Sticky   bool
	State    components.PhysicsState
}

// Outcome reports what happened to a Body during Step.
type Outcome struct {
	Landed bool
	// Impact is the velocity at the moment of landing.
	Impact mgl32.Vec3

	Resting bool // sticky and attached to a surface; nothing integrated
	Frozen  bool // chunk not resident; only damping applied
	Stalled bool // collision resolution gave up on a substep
}

// Stepper advances single bodies against a terrain snapshot. It holds no
// per-entity state, so one Stepper may serve any number of goroutines.
type Stepper struct {
	terrain   terrain.Sampler
	templates *TemplateCache
}

func NewStepper(sampler terrain.Sampler, templates *TemplateCache) Stepper {
	if templates == nil {
		templates = NewTemplateCache()
	}
	return Stepper{terrain: sampler, templates: templates}
}

// Step integrates forces and resolves terrain collisions for one body.
func (s Stepper) Step(dt float32, b Body) (Body, Outcome) {
	var out Outcome

	if b.Sticky && b.State.OnSurface() {
		b.Vel = mgl32.Vec3{}
		out.Resting = true
		return b, out
	}

	loaded := terrain.Resident(s.terrain, b.Pos)
	vel, delta := Integrate(IntegrateInput{
		Dt:       dt,
		Vel:      b.Vel,
		Gravity:  b.Gravity,
		OnGround: b.State.OnGround,
		InFluid:  b.State.InFluid,
		Depth:    b.State.FluidDepth,
		Loaded:   loaded,
	})
	b.Vel = vel

	if !loaded {
		out.Frozen = true
		return b, out
	}

	switch b.Collider.Kind {
	case components.ColliderPoint:
		s.resolvePoint(&b, delta)
	default:
		s.resolveBox(&b, delta, &out)
	}
	return b, out
}

// resetState clears everything the resolvers recompute. Touch data belongs
// to the pushback pass and survives.
func resetState(st components.PhysicsState) components.PhysicsState {
	return components.PhysicsState{
		Touching:    st.Touching,
		TouchEntity: st.TouchEntity,
	}
}
