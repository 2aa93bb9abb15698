package world

import (
	"github.com/quarry-mc/quarry/server/block"
	"github.com/quarry-mc/quarry/server/block/cube"
)

// ActionStore is the append-only log of player edits, keyed by chunk and
// local position. Its entries are replayed onto freshly generated chunks so
// edits survive unload/regenerate cycles. The store never shrinks: an entry
// must outlive the chunk it applies to.
type ActionStore struct {
	actions map[cube.ChunkPos]map[cube.Pos]block.Action
}

// NewActionStore returns an empty action log.
func NewActionStore() *ActionStore {
	return &ActionStore{actions: make(map[cube.ChunkPos]map[cube.Pos]block.Action)}
}

// Insert records an edit at the world position passed, replacing any prior
// edit at that voxel and returning it. Edits are idempotent per voxel: last
// write wins.
func (s *ActionStore) Insert(pos cube.Pos, a block.Action) (prev block.Action, replaced bool) {
	chunkPos := cube.ChunkPosFromBlockPos(pos)
	m, ok := s.actions[chunkPos]
	if !ok {
		m = make(map[cube.Pos]block.Action)
		s.actions[chunkPos] = m
	}
	local := cube.LocalPos(pos)
	prev, replaced = m[local]
	m[local] = a
	return prev, replaced
}

// Actions calls f with every logged edit for the chunk at the coordinates
// passed, as local position and action pairs, for replay onto a freshly
// generated chunk.
func (s *ActionStore) Actions(pos cube.ChunkPos, f func(local cube.Pos, a block.Action)) {
	for local, a := range s.actions[pos] {
		f(local, a)
	}
}

// Len returns the number of voxels with a logged edit.
func (s *ActionStore) Len() int {
	n := 0
	for _, m := range s.actions {
		n += len(m)
	}
	return n
}
