package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/voxelphys/internal/core/terrain"
)

// AABB is an axis-aligned box in world space.
type AABB struct {
	Min, Max mgl32.Vec3
}

// entityBox is the collider box of an entity standing at pos.
func entityBox(pos mgl32.Vec3, c shape) AABB {
	return AABB{
		Min: pos.Add(mgl32.Vec3{-c.radius, -c.radius, c.zMin}),
		Max: pos.Add(mgl32.Vec3{c.radius, c.radius, c.zMax}),
	}
}

// blockBox is the voxel at p, shortened to the block's height.
func blockBox(p terrain.Pos, b terrain.Block) AABB {
	lo := p.Vec()
	return AABB{Min: lo, Max: lo.Add(mgl32.Vec3{1, 1, b.GetHeight()})}
}

// Intersects reports strict overlap; touching faces do not intersect.
func (a AABB) Intersects(b AABB) bool {
	return a.Min[0] < b.Max[0] && a.Max[0] > b.Min[0] &&
		a.Min[1] < b.Max[1] && a.Max[1] > b.Min[1] &&
		a.Min[2] < b.Max[2] && a.Max[2] > b.Min[2]
}

func (a AABB) Center() mgl32.Vec3 {
	return a.Min.Add(a.Max).Mul(0.5)
}

// Penetration returns, per axis, how far a intrudes into b, signed toward b.
// Pushing a by the negated component on one axis separates them on that axis.
func (a AABB) Penetration(b AABB) mgl32.Vec3 {
	var out mgl32.Vec3
	ca, cb := a.Center(), b.Center()
	for i := 0; i < 3; i++ {
		if cb[i] >= ca[i] {
			out[i] = a.Max[i] - b.Min[i]
		} else {
			out[i] = -(b.Max[i] - a.Min[i])
		}
	}
	return out
}

// minAxis returns the index of the smallest |v[i]|; ties keep the lower axis.
func minAxis(v mgl32.Vec3) int {
	axis := 0
	for i := 1; i < 3; i++ {
		if math32.Abs(v[i]) < math32.Abs(v[axis]) {
			axis = i
		}
	}
	return axis
}

func hasNaN(v mgl32.Vec3) bool {
	return math32.IsNaN(v[0]) || math32.IsNaN(v[1]) || math32.IsNaN(v[2])
}
