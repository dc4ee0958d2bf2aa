package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/voxelphys/internal/core/terrain"
)

var (
	unitZ      = mgl32.Vec3{0, 0, 1}
	wallProbes = [4]mgl32.Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}}
)

func isSolid(b terrain.Block) bool { return b.IsSolid() }

// contact is the voxel chosen for resolution in one attempt.
type contact struct {
	pos   terrain.Pos
	block terrain.Block
	box   AABB
}

// resolveBox moves a box collider along delta in substeps, pushing it out of
// solid voxels, and recomputes the support flags.
func (s Stepper) resolveBox(b *Body, delta mgl32.Vec3, out *Outcome) {
	sh := shapeOf(b.Collider, b.Scale)
	tmpl := s.templates.Get(sh)
	wasOnGround := b.State.OnGround
	state := resetState(b.State)

	var onGround, onCeiling bool

	largest := max(math32.Abs(delta[0]), math32.Abs(delta[1]), math32.Abs(delta[2]))
	substeps := max(1, int(math32.Ceil(largest/SubstepLength)))

substep:
	for n := 0; n < substeps; n++ {
		before := b.Pos
		b.Pos = b.Pos.Add(delta.Mul(1 / float32(substeps)))

		for attempts := 0; ; attempts++ {
			hit, colliding := s.pickContact(b.Pos, sh, tmpl)
			if !colliding {
				break
			}
			if attempts == MaxResolveTries {
				b.Pos = before
				b.Vel = mgl32.Vec3{}
				out.Stalled = true
				break substep
			}

			dir := entityBox(b.Pos, sh).Penetration(hit.box)
			axis := minAxis(dir)
			var resolve mgl32.Vec3
			resolve[axis] = -dir[axis]

			if resolve[2] > 0 && b.Vel[2] <= 0 {
				onGround = true
				if !wasOnGround && !out.Landed {
					out.Landed = true
					out.Impact = b.Vel
				}
			} else if resolve[2] < 0 && b.Vel[2] >= 0 {
				onCeiling = true
			}

			if resolve[2] == 0 && s.canBlockHop(b, resolve, dir, sh, tmpl) {
				b.Pos[2] = math32.Floor(b.Pos[2]+StepProbe) + hit.block.GetHeight()
				b.Vel[2] = 0
				onGround = true
				break
			}

			for i := 0; i < 3; i++ {
				if resolve[i] == 0 {
					continue
				}
				if resolve[i]*b.Vel[i] < 0 {
					b.Vel[i] = 0
				}
				delta[i] = 0
			}
			b.Pos = b.Pos.Add(resolve)
		}
	}

	if !onGround && s.shouldSnap(b, wasOnGround, sh, tmpl) {
		below := b.Pos.Sub(unitZ.Mul(SnapProbe))
		var height float32
		if blk, err := s.terrain.Get(terrain.Floor(below)); err == nil && blk.IsSolid() {
			height = blk.GetHeight()
		}
		b.Pos[2] = math32.Floor(below[2]) + height
		onGround = true
	}

	state.OnGround = onGround
	state.OnCeiling = onCeiling

	for _, dir := range wallProbes {
		if s.collides(b.Pos.Add(dir.Mul(WallProbe)), isSolid, sh, tmpl) {
			state.WallDir = state.WallDir.Add(dir)
		}
	}
	state.OnWall = state.WallDir != (mgl32.Vec3{})

	if top, ok := s.fluidSurface(b.Pos, sh, tmpl); ok {
		state.InFluid = true
		state.FluidDepth = top - b.Pos[2]
	}

	b.State = state
}

// pickContact returns the intersecting solid voxel with the lowest score:
// the L1 distance between its center and the collider center raised by
// BlockPickZBias. Equal scores keep the first voxel in template order.
func (s Stepper) pickContact(pos mgl32.Vec3, sh shape, tmpl *Template) (contact, bool) {
	base := terrain.Floor(pos)
	player := entityBox(pos, sh)
	target := player.Center().Add(unitZ.Mul(BlockPickZBias))

	var (
		best      contact
		bestScore float32
		found     bool
	)
	for _, off := range tmpl.offsets {
		p := base.Add(off)
		blk, err := s.terrain.Get(p)
		if err != nil || !blk.IsSolid() {
			continue
		}
		box := blockBox(p, blk)
		if !player.Intersects(box) {
			continue
		}
		d := box.Center().Sub(target)
		score := math32.Abs(d[0]) + math32.Abs(d[1]) + math32.Abs(d[2])
		if !found || score < bestScore {
			best = contact{pos: p, block: blk, box: box}
			bestScore = score
			found = true
		}
	}
	return best, found
}

// canBlockHop decides whether a horizontal push should instead lift the
// collider onto the ledge it ran into.
func (s Stepper) canBlockHop(b *Body, resolve, dir mgl32.Vec3, sh shape, tmpl *Template) bool {
	raised := mgl32.Vec3{b.Pos[0], b.Pos[1], math32.Ceil(b.Pos[2] + StepProbe)}
	if s.collides(raised, isSolid, sh, tmpl) {
		return false
	}
	if -dir[2] <= StepProbe {
		return false
	}
	if b.Vel[2] > 0 && !s.solidAt(b.Pos.Sub(unitZ.Mul(StepProbe))) {
		return false
	}
	return s.collides(b.Pos.Add(resolve).Sub(unitZ.Mul(SupportProbe)), isSolid, sh, tmpl)
}

// shouldSnap keeps a grounded walker glued to shallow downward steps.
func (s Stepper) shouldSnap(b *Body, wasOnGround bool, sh shape, tmpl *Template) bool {
	if !wasOnGround || b.Vel[2] >= 0 || b.Vel[2] <= -SnapMaxFallSpeed {
		return false
	}
	if !s.collides(b.Pos.Sub(unitZ.Mul(SupportProbe)), isSolid, sh, tmpl) {
		return false
	}
	below := b.Pos.Sub(unitZ.Mul(SnapProbe))
	frac := below[2] - math32.Floor(below[2])
	overlapping := s.collides(below, func(blk terrain.Block) bool {
		return blk.IsSolid() && blk.GetHeight() >= frac
	}, sh, tmpl)
	return !overlapping
}

func (s Stepper) collides(pos mgl32.Vec3, hit func(terrain.Block) bool, sh shape, tmpl *Template) bool {
	base := terrain.Floor(pos)
	player := entityBox(pos, sh)
	for _, off := range tmpl.offsets {
		p := base.Add(off)
		blk, err := s.terrain.Get(p)
		if err != nil || !hit(blk) {
			continue
		}
		if player.Intersects(blockBox(p, blk)) {
			return true
		}
	}
	return false
}

func (s Stepper) solidAt(pos mgl32.Vec3) bool {
	blk, err := s.terrain.Get(terrain.Floor(pos))
	return err == nil && blk.IsSolid()
}

// fluidSurface returns the highest top of any fluid voxel the collider overlaps.
func (s Stepper) fluidSurface(pos mgl32.Vec3, sh shape, tmpl *Template) (float32, bool) {
	base := terrain.Floor(pos)
	player := entityBox(pos, sh)
	var (
		top   float32
		found bool
	)
	for _, off := range tmpl.offsets {
		p := base.Add(off)
		blk, err := s.terrain.Get(p)
		if err != nil || !blk.IsFluid() {
			continue
		}
		box := blockBox(p, blk)
		if !player.Intersects(box) {
			continue
		}
		if !found || box.Max[2] > top {
			top = box.Max[2]
			found = true
		}
	}
	return top, found
}
