package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/voxelphys/internal/core/terrain"
)

func notAir(b terrain.Block) bool { return !b.IsAir() }

// resolvePoint moves a point collider along delta, stopping at the first
// non-air voxel, and classifies the face it hit.
func (s Stepper) resolvePoint(b *Body, delta mgl32.Vec3) {
	state := resetState(b.State)
	defer func() { b.State = state }()

	from := b.Pos
	hit := terrain.Cast(s.terrain, from, from.Add(delta), notAir)
	if l := delta.Len(); l > 0 && !math32.IsInf(l, 0) {
		b.Pos = from.Add(delta.Mul(hit.Dist / l))
	}
	if !hit.Hit {
		return
	}

	rel := b.Pos.Sub(hit.Voxel.Vec().Add(mgl32.Vec3{0.5, 0.5, 0.5}))
	ax, ay, az := math32.Abs(rel[0]), math32.Abs(rel[1]), math32.Abs(rel[2])

	switch {
	case az > max(ax, ay):
		if rel[2] > 0 {
			state.OnGround = true
		} else {
			state.OnCeiling = true
		}
		b.Vel[2] = 0
	case ax > ay:
		state.OnWall = true
		state.WallDir = mgl32.Vec3{-sign(rel[0]), 0, 0}
		b.Vel[0] = 0
	default:
		state.OnWall = true
		state.WallDir = mgl32.Vec3{0, -sign(rel[1]), 0}
		b.Vel[1] = 0
	}
}

func sign(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}
