// Package mesh derives renderable data from read-only neighbourhood
// snapshots of the world: face visibility, per-corner ambient occlusion and
// smooth light values. Everything in this package is pure and safe to run
// concurrently over disjoint snapshots.
package mesh

import (
	"github.com/quarry-mc/quarry/server/block"
	"github.com/quarry-mc/quarry/server/block/cube"
)

const (
	// AreaPadding is the halo width of a snapshot in blocks.
	AreaPadding = 1
	// BlockAreaDim is the edge length of a block neighbourhood snapshot.
	BlockAreaDim = 1 + AreaPadding*2
	// ChunkAreaDim is the edge length of a chunk neighbourhood snapshot.
	ChunkAreaDim = cube.ChunkDim + AreaPadding*2
)

// BlockArea is a bit-packed opacity snapshot of the 3x3x3 neighbourhood of a
// single block. The block itself sits at delta {0,0,0}. It is built per
// query and never stored.
type BlockArea uint32

// BlockAreaFromFunc builds a BlockArea by calling f for every delta in the
// [-1, 1] cube.
func BlockAreaFromFunc(f func(delta cube.Pos) bool) BlockArea {
	var a BlockArea
	for dx := -AreaPadding; dx <= AreaPadding; dx++ {
		for dy := -AreaPadding; dy <= AreaPadding; dy++ {
			for dz := -AreaPadding; dz <= AreaPadding; dz++ {
				d := cube.Pos{dx, dy, dz}
				if f(d) {
					a |= 1 << blockAreaIndex(d)
				}
			}
		}
	}
	return a
}

// Opaque reports whether the cell at the delta passed is opaque. Deltas
// outside the [-1, 1] cube are a programming error and panic.
func (a BlockArea) Opaque(delta cube.Pos) bool {
	return a>>blockAreaIndex(delta)&1 == 1
}

// Transparent reports whether the cell at the delta passed lets light and
// visibility through.
func (a BlockArea) Transparent(delta cube.Pos) bool {
	return !a.Opaque(delta)
}

// VisibleFaces calls f for every face of the centre block whose neighbouring
// cell is transparent.
func (a BlockArea) VisibleFaces(f func(face cube.Face)) {
	for _, face := range cube.Faces() {
		if a.Transparent(face.Delta()) {
			f(face)
		}
	}
}

// blockAreaIndex converts a delta in [-1, 1]³ to a bit index. The range check
// here guards the unchecked shift arithmetic in Opaque.
func blockAreaIndex(delta cube.Pos) uint {
	for _, c := range delta {
		if c < -AreaPadding || c > AreaPadding {
			panic("mesh: block area delta out of range")
		}
	}
	x, y, z := uint(delta[0]+AreaPadding), uint(delta[1]+AreaPadding), uint(delta[2]+AreaPadding)
	return x*BlockAreaDim*BlockAreaDim + y*BlockAreaDim + z
}

// ChunkArea is a dense snapshot of one chunk's blocks padded with a one
// block halo read from its neighbouring chunks. Cells in unloaded
// neighbours are air. It is the payload of chunk diff events: the halo
// carries exactly the neighbour data needed to mesh the chunk in isolation.
type ChunkArea struct {
	blocks [ChunkAreaDim * ChunkAreaDim * ChunkAreaDim]block.Block
}

// Block returns the block at the local position passed. Components may range
// over [-1, 16] to reach into the halo.
func (a *ChunkArea) Block(local cube.Pos) block.Block {
	return a.blocks[chunkAreaIndex(local)]
}

// SetBlock writes a block into the snapshot at the local position passed.
func (a *ChunkArea) SetBlock(local cube.Pos, b block.Block) {
	a.blocks[chunkAreaIndex(local)] = b
}

// BlockArea derives the opacity snapshot of the 3x3x3 neighbourhood of the
// local position passed. The position must be at least one cell away from
// the snapshot edge, which holds for every non-halo cell.
func (a *ChunkArea) BlockArea(local cube.Pos) BlockArea {
	return BlockAreaFromFunc(func(delta cube.Pos) bool {
		return a.Block(local.Add(delta)).Opaque()
	})
}

// Data returns the raw block grid of the snapshot in index order, for wire
// encoding.
func (a *ChunkArea) Data() []byte {
	out := make([]byte, len(a.blocks))
	for i, b := range a.blocks {
		out[i] = byte(b)
	}
	return out
}

// ChunkAreaFromData rebuilds a snapshot from its wire form. It returns false
// if the data has the wrong length or contains unregistered block tags.
func ChunkAreaFromData(data []byte) (*ChunkArea, bool) {
	a := &ChunkArea{}
	if len(data) != len(a.blocks) {
		return nil, false
	}
	for i, v := range data {
		b := block.Block(v)
		if !b.Valid() {
			return nil, false
		}
		a.blocks[i] = b
	}
	return a, true
}

// chunkAreaIndex converts a padded local position, components in [-1, 16],
// to a flat index. Out of range positions are a programming error.
func chunkAreaIndex(local cube.Pos) int {
	for _, c := range local {
		if c < -AreaPadding || c >= cube.ChunkDim+AreaPadding {
			panic("mesh: chunk area position out of range")
		}
	}
	x, y, z := local[0]+AreaPadding, local[1]+AreaPadding, local[2]+AreaPadding
	return x*ChunkAreaDim*ChunkAreaDim + y*ChunkAreaDim + z
}
