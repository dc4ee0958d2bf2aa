package physics

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/chewxy/math32"

	"github.com/zeusync/voxelphys/internal/core/components"
	"github.com/zeusync/voxelphys/internal/core/terrain"
)

const templateShards = 16

// shape is a box collider after scaling; it keys the template cache.
type shape struct {
	radius, zMin, zMax float32
}

func shapeOf(c components.Collider, scale float32) shape {
	s := c.Scaled(scale)
	return shape{radius: s.Radius, zMin: s.ZMin, zMax: s.ZMax}
}

// Template is the immutable list of voxel offsets, relative to the voxel
// holding an entity's position, that a collider of one shape can touch.
type Template struct {
	shape   shape
	offsets []terrain.Pos
}

func newTemplate(s shape) *Template {
	h := int32(math32.Ceil(s.radius))
	kLo := int32(math32.Floor(s.zMin)) - 1
	kHi := int32(math32.Ceil(s.zMax))
	offsets := make([]terrain.Pos, 0, (2*h+1)*(2*h+1)*(kHi-kLo+1))
	for i := -h; i <= h; i++ {
		for j := -h; j <= h; j++ {
			for k := kLo; k <= kHi; k++ {
				offsets = append(offsets, terrain.Pos{X: i, Y: j, Z: k})
			}
		}
	}
	return &Template{shape: s, offsets: offsets}
}

// Len is the number of probed voxels.
func (t *Template) Len() int { return len(t.offsets) }

type templateShard struct {
	mu    sync.RWMutex
	items map[shape]*Template
}

// TemplateCache hands out one shared Template per distinct collider shape.
// Lookups from the parallel pass spread over xxhash-selected shards.
type TemplateCache struct {
	shards [templateShards]templateShard
}

func NewTemplateCache() *TemplateCache {
	c := &TemplateCache{}
	for i := range c.shards {
		c.shards[i].items = make(map[shape]*Template)
	}
	return c
}

func (c *TemplateCache) Get(s shape) *Template {
	sh := &c.shards[shardOf(s)]

	sh.mu.RLock()
	t := sh.items[s]
	sh.mu.RUnlock()
	if t != nil {
		return t
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if t = sh.items[s]; t == nil {
		t = newTemplate(s)
		sh.items[s] = t
	}
	return t
}

// Len returns the number of cached shapes.
func (c *TemplateCache) Len() int {
	n := 0
	for i := range c.shards {
		c.shards[i].mu.RLock()
		n += len(c.shards[i].items)
		c.shards[i].mu.RUnlock()
	}
	return n
}

func shardOf(s shape) uint64 {
	var buf [12]byte
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(s.radius))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(s.zMin))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(s.zMax))
	return xxhash.Sum64(buf[:]) % templateShards
}
