package terrain

import (
	"errors"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

var ErrOutOfBounds = errors.New("voxel out of bounds")

// ChunkSize is the horizontal edge of a terrain column chunk.
const ChunkSize = 32

type BlockKind uint8

const (
	BlockAir BlockKind = iota
	BlockSolid
	BlockFluid
	BlockOther
)

// Block is a single voxel. A zero Height means a full-height block.
type Block struct {
	Kind   BlockKind
	Height float32
	Color  [3]uint8
}

var Air = Block{}

func Solid(height float32) Block { return Block{Kind: BlockSolid, Height: height} }
func Fluid() Block               { return Block{Kind: BlockFluid} }

func (b Block) IsSolid() bool { return b.Kind == BlockSolid }
func (b Block) IsFluid() bool { return b.Kind == BlockFluid }
func (b Block) IsAir() bool   { return b.Kind == BlockAir }

// GetHeight returns the sub-voxel height in (0,1], defaulting to 1.
func (b Block) GetHeight() float32 {
	if b.Height <= 0 || b.Height > 1 {
		return 1
	}
	return b.Height
}

// Pos is an integer voxel coordinate.
type Pos struct{ X, Y, Z int32 }

func (p Pos) Add(o Pos) Pos { return Pos{p.X + o.X, p.Y + o.Y, p.Z + o.Z} }

// Vec returns the voxel's minimum corner in world space.
func (p Pos) Vec() mgl32.Vec3 { return mgl32.Vec3{float32(p.X), float32(p.Y), float32(p.Z)} }

// Floor returns the voxel containing v.
func Floor(v mgl32.Vec3) Pos {
	return Pos{
		X: int32(math32.Floor(v[0])),
		Y: int32(math32.Floor(v[1])),
		Z: int32(math32.Floor(v[2])),
	}
}

// ChunkKey addresses a vertical column of ChunkSize x ChunkSize voxels.
type ChunkKey struct{ X, Y int32 }

// KeyOf returns the chunk column holding p.
func KeyOf(p Pos) ChunkKey {
	return ChunkKey{X: floorDiv(p.X, ChunkSize), Y: floorDiv(p.Y, ChunkSize)}
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Sampler is the read-only voxel query surface the physics engine consumes.
// Implementations must be safe for concurrent reads during a tick.
type Sampler interface {
	// Get returns ErrOutOfBounds when the voxel's chunk is not resident.
	Get(pos Pos) (Block, error)
	// GetKey reports chunk residency.
	GetKey(key ChunkKey) (*Chunk, bool)
}

// Resident reports whether the chunk containing v is loaded.
func Resident(s Sampler, v mgl32.Vec3) bool {
	_, ok := s.GetKey(KeyOf(Floor(v)))
	return ok
}
