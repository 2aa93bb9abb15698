// Package chunk provides the dense fixed-size block grid that is the unit of
// storage and streaming of the world.
package chunk

import (
	"github.com/quarry-mc/quarry/server/block"
	"github.com/quarry-mc/quarry/server/block/cube"
)

const (
	// Dim is the edge length of a chunk in blocks.
	Dim = cube.ChunkDim
	// Volume is the number of blocks held by a chunk.
	Volume = Dim * Dim * Dim
)

// Chunk is a 16x16x16 dense block grid. It keeps running counts of non-air
// and glowing blocks so emptiness and glow checks are O(1). A chunk whose
// non-air count reaches zero must be removed from its store immediately.
type Chunk struct {
	blocks  [Volume]block.Block
	nonAir  uint16
	glowing uint16
}

// New returns an empty, all-air chunk.
func New() *Chunk {
	return &Chunk{}
}

// FromFunc builds a chunk by calling f for every local position.
func FromFunc(f func(local cube.Pos) block.Block) *Chunk {
	c := New()
	for x := 0; x < Dim; x++ {
		for y := 0; y < Dim; y++ {
			for z := 0; z < Dim; z++ {
				b := f(cube.Pos{x, y, z})
				if b == block.Air {
					continue
				}
				c.blocks[index(cube.Pos{x, y, z})] = b
				c.nonAir++
				if b.Glowing() {
					c.glowing++
				}
			}
		}
	}
	return c
}

// Block returns the block at the local position passed.
func (c *Chunk) Block(local cube.Pos) block.Block {
	return c.blocks[index(local)]
}

// Set writes a block at the local position passed, adjusting the running
// counts.
func (c *Chunk) Set(local cube.Pos, b block.Block) {
	i := index(local)
	c.adjustCounts(c.blocks[i], b)
	c.blocks[i] = b
}

// Apply applies a validated action to the local position passed. It returns
// false if the action was not applicable to the block currently there, in
// which case the chunk is unchanged.
func (c *Chunk) Apply(local cube.Pos, a block.Action) bool {
	i := index(local)
	next, ok := a.Apply(c.blocks[i])
	if !ok {
		return false
	}
	c.adjustCounts(c.blocks[i], next)
	c.blocks[i] = next
	return true
}

// ApplyUnchecked applies an action without validating the previous block. It
// is used to replay the action log onto a freshly generated chunk.
func (c *Chunk) ApplyUnchecked(local cube.Pos, a block.Action) {
	c.Set(local, a.ApplyUnchecked())
}

func (c *Chunk) adjustCounts(prev, next block.Block) {
	if prev != block.Air {
		c.nonAir--
	}
	if next != block.Air {
		c.nonAir++
	}
	if prev.Glowing() {
		c.glowing--
	}
	if next.Glowing() {
		c.glowing++
	}
}

// Empty reports whether the chunk consists of only air.
func (c *Chunk) Empty() bool {
	return c.nonAir == 0
}

// Glowing reports whether any block in the chunk emits light.
func (c *Chunk) Glowing() bool {
	return c.glowing != 0
}

// NonAirCount returns the number of non-air blocks in the chunk.
func (c *Chunk) NonAirCount() int {
	return int(c.nonAir)
}

// Blocks calls f for every non-air block in the chunk.
func (c *Chunk) Blocks(f func(local cube.Pos, b block.Block)) {
	if c.nonAir == 0 {
		return
	}
	for x := 0; x < Dim; x++ {
		for y := 0; y < Dim; y++ {
			for z := 0; z < Dim; z++ {
				if b := c.blocks[x*Dim*Dim+y*Dim+z]; b != block.Air {
					f(cube.Pos{x, y, z}, b)
				}
			}
		}
	}
}

// Positions calls f for every local position of a chunk, in x, y, z order.
func Positions(f func(local cube.Pos)) {
	for x := 0; x < Dim; x++ {
		for y := 0; y < Dim; y++ {
			for z := 0; z < Dim; z++ {
				f(cube.Pos{x, y, z})
			}
		}
	}
}

// index converts a local position to a flat array index. Local positions are
// produced by masking world coordinates and are always in range; an out of
// range position is a programming error and panics through the bounds check.
func index(local cube.Pos) int {
	return local[0]*Dim*Dim + local[1]*Dim + local[2]
}
