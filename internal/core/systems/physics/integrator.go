package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// IntegrateInput carries what the integrator reads for one entity.
type IntegrateInput struct {
	Dt       float32
	Vel      mgl32.Vec3
	Gravity  float32 // multiplier; 0 when the entity has none
	OnGround bool
	InFluid  bool
	Depth    float32
	Loaded   bool // the entity's chunk is resident
}

// Friction picks the strongest applicable friction coefficient.
func Friction(onGround, inFluid bool) float32 {
	f := FrictionAir
	if onGround {
		f = max(f, FrictionGround)
	}
	if inFluid {
		f = max(f, FrictionFluid)
	}
	return f
}

// LinearDamp is the per-tick velocity factor, normalized to FrictionBaseline.
func LinearDamp(dt, friction float32) float32 {
	return math32.Pow(1-min(friction, 1), dt*FrictionBaseline)
}

// Integrate applies gravity, terminal velocity and damping and derives the
// position delta for this tick. An entity whose chunk is not resident gets
// no gravity and a zero delta, but its velocity is still damped.
func Integrate(in IntegrateInput) (vel, delta mgl32.Vec3) {
	var accel float32
	if in.Loaded {
		accel = Gravity * in.Gravity
		if in.InFluid && in.Depth > SubmergedDepth {
			accel *= 1 - Buoyancy
		}
	}

	vel = in.Vel
	vel[2] = max(vel[2]-accel*in.Dt, TerminalVelocity)
	vel = vel.Mul(LinearDamp(in.Dt, Friction(in.OnGround, in.InFluid)))

	if !in.Loaded {
		return vel, mgl32.Vec3{}
	}
	// lerp(old, new, DeltaLerp)
	delta = in.Vel.Mul(1 - DeltaLerp).Add(vel.Mul(DeltaLerp)).Mul(in.Dt)
	return vel, delta
}
