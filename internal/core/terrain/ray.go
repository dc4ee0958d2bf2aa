package terrain

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// maxCastLength bounds how many voxels a single Cast may visit.
const maxCastLength = 4096

// RayHit describes where a Cast stopped.
type RayHit struct {
	// Dist is the travelled distance: the entry distance of the hit voxel,
	// or the full segment length when nothing was hit.
	Dist  float32
	Hit   bool
	Voxel Pos
	Block Block
}

// Cast walks the voxels crossed by the segment from -> to (Amanatides-Woo
// traversal) and stops at the first one for which until returns true.
// Voxels that fail to load are skipped as if they were air. A segment with a
// non-finite length hits nothing. Segments longer than maxCastLength stop
// after that many voxels and report the full length.
func Cast(s Sampler, from, to mgl32.Vec3, until func(Block) bool) RayHit {
	voxel := Floor(from)
	if b, err := s.Get(voxel); err == nil && until(b) {
		return RayHit{Hit: true, Voxel: voxel, Block: b}
	}

	dir := to.Sub(from)
	length := dir.Len()
	if !(length > 0) || math32.IsInf(length, 0) {
		return RayHit{}
	}
	dir = dir.Mul(1 / length)

	var (
		cell   = [3]int32{voxel.X, voxel.Y, voxel.Z}
		step   [3]int32
		tMax   [3]float32
		tDelta [3]float32
	)
	for i := 0; i < 3; i++ {
		switch {
		case dir[i] > 0:
			step[i] = 1
			tDelta[i] = 1 / dir[i]
			tMax[i] = (float32(cell[i]) + 1 - from[i]) / dir[i]
		case dir[i] < 0:
			step[i] = -1
			tDelta[i] = -1 / dir[i]
			tMax[i] = (from[i] - float32(cell[i])) / -dir[i]
		default:
			tDelta[i] = math32.Inf(1)
			tMax[i] = math32.Inf(1)
		}
	}

	// A segment of length L crosses at most 3*ceil(L)+3 voxel faces.
	steps := 3*int(min(math32.Ceil(length), maxCastLength)) + 3
	for ; steps > 0; steps-- {
		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		t := tMax[axis]
		if t > length {
			return RayHit{Dist: length}
		}
		cell[axis] += step[axis]
		tMax[axis] += tDelta[axis]

		p := Pos{cell[0], cell[1], cell[2]}
		if b, err := s.Get(p); err == nil && until(b) {
			return RayHit{Dist: t, Hit: true, Voxel: p, Block: b}
		}
	}
	return RayHit{Dist: length}
}
