package physics

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/voxelphys/internal/core/components"
)

// PushBody is one collider-bearing entity as seen by the pushback pass.
type PushBody struct {
	Uid   components.Uid
	Pos   mgl32.Vec3
	Scale float32
	Mass  float32

	Group    components.Group
	HasGroup bool

	Projectile   components.Projectile
	IsProjectile bool

	// Active bodies receive pushback; inactive ones only push.
	Active bool
}

// PushResult is the velocity change and touch record for one body.
type PushResult struct {
	VelDelta    mgl32.Vec3
	Touching    bool
	TouchEntity components.Uid
}

// GroupLookup resolves the group of the entity with the given Uid.
type GroupLookup func(components.Uid) (components.Group, bool)

// ResolvePushback separates overlapping entities horizontally. Every delta is
// computed from the same snapshot, so the result does not depend on the order
// in which pairs are visited. Touch records report the last pusher in slice
// order.
func ResolvePushback(bodies []PushBody, groupOf GroupLookup) []PushResult {
	out := make([]PushResult, len(bodies))

	for i := range bodies {
		a := &bodies[i]
		if !a.Active || a.Mass < 0 {
			continue
		}

		var (
			ignoreGroup components.Group
			hasIgnore   bool
		)
		if a.IsProjectile && a.Projectile.HasOwner && groupOf != nil {
			ignoreGroup, hasIgnore = groupOf(a.Projectile.Owner)
		}

		for j := range bodies {
			if i == j {
				continue
			}
			b := &bodies[j]
			if a.IsProjectile && a.Projectile.HasOwner && b.Uid == a.Projectile.Owner {
				continue
			}
			if hasIgnore && b.HasGroup && b.Group == ignoreGroup {
				continue
			}
			if b.Mass <= 0 {
				continue
			}

			diff := mgl32.Vec2{a.Pos[0] - b.Pos[0], a.Pos[1] - b.Pos[1]}
			dist := diff.Len()
			reach := PushbackDistance * (a.Scale + b.Scale)
			if dist <= 0 || dist >= reach {
				continue
			}
			if a.Pos[2] >= b.Pos[2]+PushbackHeight*b.Scale || a.Pos[2]+PushbackHeight*a.Scale <= b.Pos[2] {
				continue
			}

			force := (reach - dist) * 2 * b.Mass / (a.Mass + b.Mass)
			push := diff.Normalize().Mul(force)
			out[i].VelDelta = out[i].VelDelta.Add(mgl32.Vec3{push[0], push[1], 0})
			out[i].Touching = true
			out[i].TouchEntity = b.Uid
		}
	}
	return out
}
