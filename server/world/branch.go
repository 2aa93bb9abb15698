package world

import (
	"fmt"

	"github.com/quarry-mc/quarry/server/block"
	"github.com/quarry-mc/quarry/server/block/cube"
	"github.com/quarry-mc/quarry/server/world/chunk"
)

// branch stages the voxel edits caused by one player action before any of
// them touch the world. Staging and merging are separate phases: the branch
// is built by validating the root action and its support cascade against the
// current store, and only a fully built branch is merged. A failed
// validation therefore leaves the world untouched.
type branch struct {
	ra      cube.Range
	actions map[cube.ChunkPos]map[cube.Pos]block.Action
	size    int
}

// newBranch validates the action at the world position passed and stages it
// together with every edit it entails. Destroying a block also destroys the
// surface-mounted blocks standing on it, transitively upwards. The returned
// branch is empty if the root action was not applicable.
func newBranch(store *ChunkStore, ra cube.Range, pos cube.Pos, a block.Action) *branch {
	br := &branch{ra: ra, actions: make(map[cube.ChunkPos]map[cube.Pos]block.Action)}
	if !br.valid(store, pos, a) {
		return br
	}

	type staged struct {
		pos cube.Pos
		a   block.Action
	}
	work := []staged{{pos: pos, a: a}}
	for len(work) > 0 {
		s := work[0]
		work = work[1:]
		br.insert(s.pos, s.a)

		if s.a.Kind != block.ActionDestroy {
			continue
		}
		above := s.pos.Add(cube.Pos{0, 1, 0})
		if b := store.Block(above); b != block.Air && b.Properties().RequiresSurface != block.Air {
			work = append(work, staged{pos: above, a: block.Destroy()})
		}
	}
	return br
}

// valid reports whether the action is applicable at the position passed:
// the position must be in the vertical range, the action must match the
// block currently there, and a surface-mounted block must land on its
// required surface.
func (br *branch) valid(store *ChunkStore, pos cube.Pos, a block.Action) bool {
	if !br.ra.Contains(cube.ChunkPosFromBlockPos(pos)[1]) {
		return false
	}
	if _, ok := a.Apply(store.Block(pos)); !ok {
		return false
	}
	if a.Kind == block.ActionPlace {
		if surface := a.Block.Properties().RequiresSurface; surface != block.Air {
			below := store.Block(pos.Add(cube.Pos{0, -1, 0}))
			return below == surface
		}
	}
	return true
}

// insert stages one edit. The cascade only ever descends into voxels it has
// not visited, so a duplicate insert is a programming error.
func (br *branch) insert(pos cube.Pos, a block.Action) {
	chunkPos := cube.ChunkPosFromBlockPos(pos)
	m, ok := br.actions[chunkPos]
	if !ok {
		m = make(map[cube.Pos]block.Action)
		br.actions[chunkPos] = m
	}
	local := cube.LocalPos(pos)
	if _, ok := m[local]; ok {
		panic(fmt.Sprintf("branch: duplicate edit at %v", pos))
	}
	m[local] = a
	br.size++
}

// Len returns the number of staged edits.
func (br *branch) Len() int {
	return br.size
}

// merge applies the staged edits to the store, records them in the action
// log and relights the affected region. It returns the chunk coordinates
// that gained or lost a chunk and every world position whose block or light
// value changed, which together drive the outgoing diff events.
func (br *branch) merge(store *ChunkStore, log *ActionStore, light *WorldLight) (inserts, removals map[cube.ChunkPos]struct{}, updates []cube.Pos) {
	inserts = make(map[cube.ChunkPos]struct{})
	removals = make(map[cube.ChunkPos]struct{})

	for chunkPos, edits := range br.actions {
		c := store.Chunk(chunkPos)
		base := cube.BlockPosFromChunkPos(chunkPos)

		if c == nil {
			// Vacant coordinates only ever receive place edits; validation
			// rejects destroys against air. The chunk is synthesised and
			// inserted before relighting so light reads the new blocks.
			c = newChunkFromEdits(edits)
			if c.Empty() {
				continue
			}
			store.Insert(chunkPos, c)
			inserts[chunkPos] = struct{}{}
			for local, a := range edits {
				pos := base.Add(local)
				log.Insert(pos, a)
				updates = append(updates, pos)
				updates = append(updates, light.Apply(store, pos, a.ApplyUnchecked())...)
			}
			continue
		}

		for local, a := range edits {
			if !c.Apply(local, a) {
				continue
			}
			pos := base.Add(local)
			log.Insert(pos, a)
			updates = append(updates, pos)
			updates = append(updates, light.Apply(store, pos, a.ApplyUnchecked())...)
		}
		if c.Empty() {
			store.Remove(chunkPos)
			removals[chunkPos] = struct{}{}
		}
	}
	return inserts, removals, updates
}

// newChunkFromEdits builds a chunk holding only the staged place edits.
func newChunkFromEdits(edits map[cube.Pos]block.Action) *chunk.Chunk {
	c := chunk.New()
	for local, a := range edits {
		if a.Kind == block.ActionPlace {
			c.ApplyUnchecked(local, a)
		}
	}
	return c
}
