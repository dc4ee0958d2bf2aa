// Package components holds the plain data the physics engine reads and writes.
package components

import "github.com/go-gl/mathgl/mgl32"

// Uid is the stable, network-visible identity of an entity.
type Uid uint64

type Pos struct{ V mgl32.Vec3 }
type Vel struct{ V mgl32.Vec3 }

// Ori is co-located with Pos/Vel but never touched by physics.
type Ori struct{ V mgl32.Vec3 }

type Scale float32
type Mass float32

// Gravity multiplies the base gravity. Absent means no gravity.
type Gravity float32

// Sticky entities stop dead while resting on any surface.
type Sticky struct{}

// Mounting excludes an entity from physics entirely.
type Mounting struct{ Mount Uid }

type Group uint32

type Projectile struct {
	Owner    Uid
	HasOwner bool
}

type ColliderKind uint8

const (
	ColliderBox ColliderKind = iota
	ColliderPoint
)

// Collider is either a box (square footprint of half-width Radius spanning
// [ZMin, ZMax] above the position) or a zero-extent point.
type Collider struct {
	Kind   ColliderKind
	Radius float32
	ZMin   float32
	ZMax   float32
}

func BoxCollider(radius, zMin, zMax float32) Collider {
	return Collider{Kind: ColliderBox, Radius: radius, ZMin: zMin, ZMax: zMax}
}

func PointCollider() Collider {
	return Collider{Kind: ColliderPoint}
}

// Scaled returns the box bounds multiplied by scale.
func (c Collider) Scaled(scale float32) Collider {
	c.Radius *= scale
	c.ZMin *= scale
	c.ZMax *= scale
	return c
}

// PhysicsState is rewritten every tick. Optional values are a flag plus
// payload so that copying the state never allocates.
type PhysicsState struct {
	OnGround  bool
	OnCeiling bool

	OnWall  bool
	WallDir mgl32.Vec3

	InFluid    bool
	FluidDepth float32

	Touching    bool
	TouchEntity Uid
}

func (s PhysicsState) OnSurface() bool {
	return s.OnGround || s.OnCeiling || s.OnWall
}

// Wall returns the combined wall direction, if any.
func (s PhysicsState) Wall() (mgl32.Vec3, bool) { return s.WallDir, s.OnWall }

// Fluid returns the fluid surface height above the entity base, if submerged.
func (s PhysicsState) Fluid() (float32, bool) { return s.FluidDepth, s.InFluid }

// Touch returns the last entity that pushed this one this tick.
func (s PhysicsState) Touch() (Uid, bool) { return s.TouchEntity, s.Touching }
