package terrain

import "sync"

var _ Sampler = (*Volume)(nil)

// Chunk is a sparse column: only non-air voxels are stored.
type Chunk struct {
	Key    ChunkKey
	blocks map[Pos]Block
}

func newChunk(key ChunkKey) *Chunk {
	return &Chunk{Key: key, blocks: make(map[Pos]Block)}
}

// Len returns the number of non-air voxels held by the chunk.
func (c *Chunk) Len() int { return len(c.blocks) }

// Volume is an in-memory chunked voxel store. Edits take the write lock and
// must happen between ticks; during a tick it is a read-only snapshot.
type Volume struct {
	mu     sync.RWMutex
	chunks map[ChunkKey]*Chunk
}

func NewVolume() *Volume {
	return &Volume{chunks: make(map[ChunkKey]*Chunk, 64)}
}

func (v *Volume) Get(pos Pos) (Block, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ch := v.chunks[KeyOf(pos)]
	if ch == nil {
		return Air, ErrOutOfBounds
	}
	return ch.blocks[pos], nil
}

func (v *Volume) GetKey(key ChunkKey) (*Chunk, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	ch, ok := v.chunks[key]
	return ch, ok
}

// Load makes a chunk resident (empty if new) and returns it.
func (v *Volume) Load(key ChunkKey) *Chunk {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loadLocked(key)
}

// Unload drops a chunk; voxels inside it become ErrOutOfBounds.
func (v *Volume) Unload(key ChunkKey) {
	v.mu.Lock()
	delete(v.chunks, key)
	v.mu.Unlock()
}

// Set writes a voxel, loading its chunk if needed. Writing Air clears it.
func (v *Volume) Set(pos Pos, b Block) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setLocked(pos, b)
}

// Fill writes b into every voxel of the inclusive box [min, max].
func (v *Volume) Fill(min, max Pos, b Block) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for x := min.X; x <= max.X; x++ {
		for y := min.Y; y <= max.Y; y++ {
			for z := min.Z; z <= max.Z; z++ {
				v.setLocked(Pos{x, y, z}, b)
			}
		}
	}
}

// Chunks returns the number of resident chunks.
func (v *Volume) Chunks() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.chunks)
}

func (v *Volume) setLocked(pos Pos, b Block) {
	ch := v.loadLocked(KeyOf(pos))
	if b.IsAir() {
		delete(ch.blocks, pos)
		return
	}
	ch.blocks[pos] = b
}

func (v *Volume) loadLocked(key ChunkKey) *Chunk {
	ch := v.chunks[key]
	if ch == nil {
		ch = newChunk(key)
		v.chunks[key] = ch
	}
	return ch
}
