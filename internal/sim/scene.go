package sim

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/zeusync/voxelphys/internal/config"
	"github.com/zeusync/voxelphys/internal/core/components"
	"github.com/zeusync/voxelphys/internal/core/system"
	"github.com/zeusync/voxelphys/internal/core/terrain"
)

// BuildScene loads the configured terrain into vol and spawns the entities
// into w. It returns the number of spawned entities.
func BuildScene(scene config.Scene, vol *terrain.Volume, w *system.World) (int, error) {
	for _, key := range scene.Chunks {
		vol.Load(terrain.ChunkKey{X: key[0], Y: key[1]})
	}

	for i, f := range scene.Fills {
		block, err := parseBlock(f)
		if err != nil {
			return 0, fmt.Errorf("fill %d: %w", i, err)
		}
		vol.Fill(posOf(f.Min), posOf(f.Max), block)
	}

	spawned := 0
	for i, e := range scene.Entities {
		collider, err := parseCollider(e.Collider)
		if err != nil {
			return spawned, fmt.Errorf("entity %d (%s): %w", i, e.Name, err)
		}
		for c := 0; c < max(1, e.Count); c++ {
			pos := mgl32.Vec3(e.Pos).Add(mgl32.Vec3(e.Spacing).Mul(float32(c)))
			spawnEntity(w, e, collider, pos)
			spawned++
		}
	}
	return spawned, nil
}

func spawnEntity(w *system.World, e config.Entity, collider components.Collider, pos mgl32.Vec3) {
	id := w.Spawn()
	w.Pos.Insert(id, components.Pos{V: pos})
	w.Vel.Insert(id, components.Vel{V: mgl32.Vec3(e.Vel)})
	w.Ori.Insert(id, components.Ori{V: mgl32.Vec3{0, 1, 0}})
	w.Collider.Insert(id, collider)

	if e.Scale > 0 {
		w.Scale.Insert(id, components.Scale(e.Scale))
	}
	if e.Mass != nil {
		w.Mass.Insert(id, components.Mass(*e.Mass))
	}
	if e.Gravity != nil {
		w.Gravity.Insert(id, components.Gravity(*e.Gravity))
	}
	if e.Sticky {
		w.Sticky.Insert(id, components.Sticky{})
	}
	if e.Group != nil {
		w.Group.Insert(id, components.Group(*e.Group))
	}
}

func parseBlock(f config.Fill) (terrain.Block, error) {
	switch f.Block {
	case "solid":
		return terrain.Solid(f.Height), nil
	case "fluid":
		return terrain.Fluid(), nil
	case "air":
		return terrain.Air, nil
	}
	return terrain.Air, fmt.Errorf("%w: %q", config.ErrUnknownBlock, f.Block)
}

func parseCollider(c config.Collider) (components.Collider, error) {
	switch c.Kind {
	case "box":
		return components.BoxCollider(c.Radius, c.ZMin, c.ZMax), nil
	case "point":
		return components.PointCollider(), nil
	}
	return components.Collider{}, fmt.Errorf("%w: %q", config.ErrUnknownCollider, c.Kind)
}

func posOf(v [3]int32) terrain.Pos {
	return terrain.Pos{X: v[0], Y: v[1], Z: v[2]}
}
