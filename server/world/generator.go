package world

import (
	"github.com/segmentio/fasthash/fnv1a"

	"github.com/quarry-mc/quarry/server/block"
	"github.com/quarry-mc/quarry/server/block/cube"
	"github.com/quarry-mc/quarry/server/world/chunk"
)

// Generator generates the terrain of a chunk. Implementations must be
// deterministic: regenerating the same coordinates must yield an identical
// chunk, as the action log is replayed on top of generated chunks and the
// combination must reproduce pre-unload state exactly. Generators are called
// from worker goroutines and must be safe for concurrent use.
type Generator interface {
	GenerateChunk(pos cube.ChunkPos) *chunk.Chunk
}

// NopGenerator generates only empty chunks. It is mostly useful for tests.
type NopGenerator struct{}

// GenerateChunk returns an all-air chunk.
func (NopGenerator) GenerateChunk(cube.ChunkPos) *chunk.Chunk {
	return chunk.New()
}

// FlatGenerator generates a flat world: a bedrock floor at the bottom of the
// range, stone up to the surface, dirt and a grass cap.
type FlatGenerator struct {
	// Range is the vertical chunk range of the world.
	Range cube.Range
	// SurfaceY is the world Y coordinate of the grass surface.
	SurfaceY int
}

// GenerateChunk generates the flat terrain slice covered by the chunk at the
// position passed.
func (g FlatGenerator) GenerateChunk(pos cube.ChunkPos) *chunk.Chunk {
	base := cube.BlockPosFromChunkPos(pos)
	return chunk.FromFunc(func(local cube.Pos) block.Block {
		return g.blockAt(base[1] + local[1])
	})
}

func (g FlatGenerator) blockAt(y int) block.Block {
	floor := int(g.Range.Min()) << 4
	switch {
	case y == floor:
		return block.Bedrock
	case y < g.SurfaceY-3:
		return block.Stone
	case y < g.SurfaceY:
		return block.Dirt
	case y == g.SurfaceY:
		return block.Grass
	default:
		return block.Air
	}
}

// HillGenerator generates rolling terrain from a seeded, hashed height
// field. It is the default generator of a server. Heights are derived from
// smoothed corner noise so that regeneration of any chunk is independent of
// generation order.
type HillGenerator struct {
	// Seed determines the terrain layout. The same seed always produces the
	// same world.
	Seed int64
	// Range is the vertical chunk range of the world.
	Range cube.Range
	// BaseY is the average surface height; Amplitude the maximum deviation
	// from it.
	BaseY, Amplitude int
}

// GenerateChunk generates the terrain slice covered by the chunk at the
// position passed.
func (g HillGenerator) GenerateChunk(pos cube.ChunkPos) *chunk.Chunk {
	base := cube.BlockPosFromChunkPos(pos)

	// Surface heights per column, interpolated from hashed lattice corners.
	var heights [cube.ChunkDim][cube.ChunkDim]int
	for x := 0; x < cube.ChunkDim; x++ {
		for z := 0; z < cube.ChunkDim; z++ {
			heights[x][z] = g.height(base[0]+x, base[2]+z)
		}
	}

	floor := int(g.Range.Min()) << 4
	return chunk.FromFunc(func(local cube.Pos) block.Block {
		y, surface := base[1]+local[1], heights[local[0]][local[2]]
		switch {
		case y == floor:
			return block.Bedrock
		case y < surface-3:
			return block.Stone
		case y < surface:
			return block.Dirt
		case y == surface:
			return block.Grass
		default:
			return block.Air
		}
	})
}

// height returns the surface height of the column at the world x, z passed.
func (g HillGenerator) height(x, z int) int {
	const cell = 32
	cx, cz := floorDiv(x, cell), floorDiv(z, cell)
	fx := float64(x-cx*cell) / cell
	fz := float64(z-cz*cell) / cell

	h00 := g.corner(cx, cz)
	h10 := g.corner(cx+1, cz)
	h01 := g.corner(cx, cz+1)
	h11 := g.corner(cx+1, cz+1)

	// Smoothstep interpolation between the four lattice corners.
	sx, sz := fx*fx*(3-2*fx), fz*fz*(3-2*fz)
	top := h00 + (h10-h00)*sx
	bottom := h01 + (h11-h01)*sx
	return g.BaseY + int(top+(bottom-top)*sz)
}

// corner returns the height offset of a lattice corner, hashed from the seed
// and the corner coordinates.
func (g HillGenerator) corner(cx, cz int) float64 {
	h := fnv1a.HashUint64(uint64(g.Seed))
	h = fnv1a.AddUint64(h, uint64(int64(cx)))
	h = fnv1a.AddUint64(h, uint64(int64(cz)))
	amp := float64(g.Amplitude)
	return float64(h%uint64(2*g.Amplitude+1)) - amp
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
