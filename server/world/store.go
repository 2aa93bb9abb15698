package world

import (
	"fmt"

	"github.com/quarry-mc/quarry/server/block"
	"github.com/quarry-mc/quarry/server/block/cube"
	"github.com/quarry-mc/quarry/server/mesh"
	"github.com/quarry-mc/quarry/server/world/chunk"
)

// ChunkStore is the sparse map from chunk coordinates to owned chunks. A
// coordinate is either absent or mapped to a non-empty chunk: all-air chunks
// are never retained. The store is only ever accessed from the simulation
// goroutine that owns the World, so it needs no locking.
type ChunkStore struct {
	chunks map[cube.ChunkPos]*chunk.Chunk
}

// NewChunkStore returns an empty store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{chunks: make(map[cube.ChunkPos]*chunk.Chunk)}
}

// Insert adds a chunk at previously absent coordinates. Inserting over an
// occupied coordinate is a programming error and panics: generation checks
// presence before producing a chunk and merge only synthesises chunks for
// vacant coordinates.
func (s *ChunkStore) Insert(pos cube.ChunkPos, c *chunk.Chunk) {
	if _, ok := s.chunks[pos]; ok {
		panic(fmt.Sprintf("chunk store: insert into occupied position %v", pos))
	}
	s.chunks[pos] = c
}

// Remove deletes the chunk at the coordinates passed, if any.
func (s *ChunkStore) Remove(pos cube.ChunkPos) {
	delete(s.chunks, pos)
}

// Chunk returns the chunk at the coordinates passed, or nil if absent.
func (s *ChunkStore) Chunk(pos cube.ChunkPos) *chunk.Chunk {
	return s.chunks[pos]
}

// Contains reports whether a chunk is present at the coordinates passed.
func (s *ChunkStore) Contains(pos cube.ChunkPos) bool {
	_, ok := s.chunks[pos]
	return ok
}

// Len returns the number of chunks held.
func (s *ChunkStore) Len() int {
	return len(s.chunks)
}

// All calls f for every chunk in the store.
func (s *ChunkStore) All(f func(pos cube.ChunkPos, c *chunk.Chunk)) {
	for pos, c := range s.chunks {
		f(pos, c)
	}
}

// Block returns the block at the world position passed. Positions in absent
// chunks read as air.
func (s *ChunkStore) Block(pos cube.Pos) block.Block {
	c, ok := s.chunks[cube.ChunkPosFromBlockPos(pos)]
	if !ok {
		return block.Air
	}
	return c.Block(cube.LocalPos(pos))
}

// BlockArea assembles the padded opacity snapshot of the 3x3x3 block
// neighbourhood of the position passed, treating unloaded chunks as fully
// transparent.
func (s *ChunkStore) BlockArea(pos cube.Pos) mesh.BlockArea {
	return mesh.BlockAreaFromFunc(func(delta cube.Pos) bool {
		return s.Block(pos.Add(delta)).Opaque()
	})
}

// ChunkArea assembles the padded block snapshot of the chunk at the
// coordinates passed, reading the one block halo from up to 26 neighbouring
// chunks. Unloaded neighbours contribute air.
func (s *ChunkStore) ChunkArea(pos cube.ChunkPos) *mesh.ChunkArea {
	area := &mesh.ChunkArea{}
	base := cube.BlockPosFromChunkPos(pos)
	for x := -mesh.AreaPadding; x < cube.ChunkDim+mesh.AreaPadding; x++ {
		for y := -mesh.AreaPadding; y < cube.ChunkDim+mesh.AreaPadding; y++ {
			for z := -mesh.AreaPadding; z < cube.ChunkDim+mesh.AreaPadding; z++ {
				local := cube.Pos{x, y, z}
				if b := s.Block(base.Add(local)); b != block.Air {
					area.SetBlock(local, b)
				}
			}
		}
	}
	return area
}
