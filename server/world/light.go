package world

import (
	"github.com/brentp/intintmap"

	"github.com/quarry-mc/quarry/server/block"
	"github.com/quarry-mc/quarry/server/block/cube"
	"github.com/quarry-mc/quarry/server/mesh"
	"github.com/quarry-mc/quarry/server/world/chunk"
)

// WorldLight maintains the derived light field of the world: a light grid
// per chunk and the propagation engine that recomputes affected values after
// generation and edits. Light grids are kept independently of the block
// store, since light flows through air regions that own no chunk. Like the
// other stores it is only touched from the simulation goroutine.
type WorldLight struct {
	ra     cube.Range
	chunks map[cube.ChunkPos]*chunk.LightGrid

	// placeholders records, per (x, z) block column, the Y coordinate of the
	// highest chunk whose insertion applied full skylight under the
	// assumption that everything above it was still ungenerated. When a
	// chunk later materialises above, the partial light below is reconciled
	// instead of recomputed from scratch. Keys are packed column
	// coordinates.
	placeholders *intintmap.Map
}

// NewWorldLight returns an all-dark light field for the vertical range
// passed.
func NewWorldLight(ra cube.Range) *WorldLight {
	return &WorldLight{
		ra:           ra,
		chunks:       make(map[cube.ChunkPos]*chunk.LightGrid),
		placeholders: intintmap.New(1024, 0.6),
	}
}

// lightNode is a BFS queue entry: a position and the light level to expand
// from it.
type lightNode struct {
	pos   cube.Pos
	level uint8
}

// Light returns the light value at the position passed. Positions above the
// world's vertical range read as full skylight, everything else without a
// grid as dark.
func (l *WorldLight) Light(pos cube.Pos) chunk.BlockLight {
	cp := cube.ChunkPosFromBlockPos(pos)
	if cp[1] >= l.ra.Max() {
		return chunk.Light(chunk.MaxLight, 0)
	}
	g, ok := l.chunks[cp]
	if !ok {
		return 0
	}
	return g.At(cube.LocalPos(pos))
}

func (l *WorldLight) channel(pos cube.Pos, ch chunk.LightChannel) uint8 {
	return l.Light(pos).Channel(ch)
}

// set writes one channel at the position passed, creating the chunk grid on
// first write. It returns whether the stored value changed.
func (l *WorldLight) set(pos cube.Pos, ch chunk.LightChannel, v uint8) bool {
	cp := cube.ChunkPosFromBlockPos(pos)
	if !l.ra.Contains(cp[1]) {
		return false
	}
	g, ok := l.chunks[cp]
	if !ok {
		if v == 0 {
			return false
		}
		g = chunk.NewLightGrid()
		l.chunks[cp] = g
	}
	local := cube.LocalPos(pos)
	return g.Set(local, g.At(local).WithChannel(ch, v))
}

// ChunkAreaLight assembles the padded light snapshot of the chunk at the
// coordinates passed, the counterpart of ChunkStore.ChunkArea.
func (l *WorldLight) ChunkAreaLight(pos cube.ChunkPos) *mesh.ChunkAreaLight {
	area := &mesh.ChunkAreaLight{}
	base := cube.BlockPosFromChunkPos(pos)
	for x := -mesh.AreaPadding; x < cube.ChunkDim+mesh.AreaPadding; x++ {
		for y := -mesh.AreaPadding; y < cube.ChunkDim+mesh.AreaPadding; y++ {
			for z := -mesh.AreaPadding; z < cube.ChunkDim+mesh.AreaPadding; z++ {
				local := cube.Pos{x, y, z}
				area.SetLight(local, l.Light(base.Add(local)))
			}
		}
	}
	return area
}

// BlockAreaLight assembles the light snapshot of the 3x3x3 neighbourhood of
// the position passed.
func (l *WorldLight) BlockAreaLight(pos cube.Pos) *mesh.BlockAreaLight {
	return mesh.BlockAreaLightFromFunc(func(delta cube.Pos) chunk.BlockLight {
		return l.Light(pos.Add(delta))
	})
}

// InsertMany lights a batch of freshly inserted chunks. Seed collection per
// chunk is data-parallel on the pool passed, since it only reads the store
// and pre-existing light; the merge of all seeds into the shared grids runs
// sequentially afterwards. It returns every world position whose light value
// changed, which feeds the update halo.
func (l *WorldLight) InsertMany(store *ChunkStore, positions []cube.ChunkPos, pool *workerPool) []cube.Pos {
	if len(positions) == 0 {
		return nil
	}

	// Provisional skylight below the new chunks must be withdrawn before any
	// seed is collected: halo seeds snapshot surrounding light values, and
	// snapshotting light that is about to be removed would smuggle it back
	// in during propagation.
	reconcile := make(map[int64]struct{})
	for _, pos := range positions {
		base := cube.BlockPosFromChunkPos(pos)
		for x := 0; x < cube.ChunkDim; x++ {
			for z := 0; z < cube.ChunkDim; z++ {
				key := packColumn(base[0]+x, base[2]+z)
				if py, ok := l.placeholders.Get(key); ok && int32(py) < pos[1] {
					reconcile[key] = struct{}{}
				}
			}
		}
	}
	var changed []cube.Pos
	for key := range reconcile {
		changed = append(changed, l.reconcileColumn(store, key)...)
	}
	// Light that crossed the volume while it was vacant is withdrawn the
	// same way, then refilled against the inserted blocks.
	for _, pos := range positions {
		changed = append(changed, l.reconcileVolume(store, pos)...)
	}

	seedSets := make([][2][]lightNode, len(positions))
	pool.Batch(len(positions), func(i int) {
		seedSets[i] = l.collectSeeds(store, positions[i])
	})
	for _, seeds := range seedSets {
		changed = append(changed, l.propagate(store, chunk.SkyChannel, seeds[chunk.SkyChannel])...)
		changed = append(changed, l.propagate(store, chunk.BlockChannel, seeds[chunk.BlockChannel])...)
	}
	for _, pos := range positions {
		l.recordPlaceholder(store, pos)
	}
	return changed
}

// collectSeeds gathers the propagation seeds of one newly inserted chunk:
// its glowing voxels, the light already present just outside its boundary,
// and full skylight on columns open to the sky. It does not mutate anything.
func (l *WorldLight) collectSeeds(store *ChunkStore, pos cube.ChunkPos) [2][]lightNode {
	var seeds [2][]lightNode
	c := store.Chunk(pos)
	base := cube.BlockPosFromChunkPos(pos)

	if c != nil && c.Glowing() {
		c.Blocks(func(local cube.Pos, b block.Block) {
			if lum := b.Properties().Luminance; lum > 0 {
				seeds[chunk.BlockChannel] = append(seeds[chunk.BlockChannel], lightNode{pos: base.Add(local), level: lum})
			}
		})
	}

	// Boundary seeds: re-expand the light values already present in the one
	// block halo around the chunk so existing light flows into it.
	forEachHaloPos(base, func(p cube.Pos) {
		v := l.Light(p)
		if sky := v.Sky(); sky > 0 {
			seeds[chunk.SkyChannel] = append(seeds[chunk.SkyChannel], lightNode{pos: p, level: sky})
		}
		if blk := v.Block(); blk > 0 {
			seeds[chunk.BlockChannel] = append(seeds[chunk.BlockChannel], lightNode{pos: p, level: blk})
		}
	})

	// Skylight seeds on the top layer when no generated chunk sits above.
	// The level entering each top voxel is full sky attenuated by that
	// voxel's own filter; opaque voxels receive none.
	if l.openAbove(store, pos) {
		topY := base[1] + cube.ChunkDim - 1
		for x := 0; x < cube.ChunkDim; x++ {
			for z := 0; z < cube.ChunkDim; z++ {
				p := cube.Pos{base[0] + x, topY, base[2] + z}
				level := skyEntryLevel(store.Block(p))
				if level == 0 {
					continue
				}
				seeds[chunk.SkyChannel] = append(seeds[chunk.SkyChannel], lightNode{pos: p, level: level})
			}
		}
	}
	return seeds
}

// skyEntryLevel returns the skylight level inside a voxel directly exposed
// to open sky: full strength through near transparent blocks, otherwise full
// strength less the block's filter.
func skyEntryLevel(b block.Block) uint8 {
	filter := b.Properties().LightFilter
	if filter <= 1 {
		return chunk.MaxLight
	}
	if filter >= chunk.MaxLight {
		return 0
	}
	return chunk.MaxLight - filter
}

// Apply relights the world after a single block mutation at the position
// passed, where next is the block now stored there. The previously dependent
// light region is unlit and then refilled from its frontier, the
// neighbourhood and the mutated block's own emission. It returns every
// position whose light changed.
func (l *WorldLight) Apply(store *ChunkStore, pos cube.Pos, next block.Block) []cube.Pos {
	var changed []cube.Pos
	for _, ch := range [2]chunk.LightChannel{chunk.SkyChannel, chunk.BlockChannel} {
		removed, frontier := l.remove(store, pos, ch)
		changed = append(changed, removed...)

		seeds := frontier
		pos.Neighbours(func(n cube.Pos) {
			if v := l.channel(n, ch); v > 0 {
				seeds = append(seeds, lightNode{pos: n, level: v})
			}
		})
		if ch == chunk.BlockChannel {
			if lum := next.Properties().Luminance; lum > 0 {
				seeds = append(seeds, lightNode{pos: pos, level: lum})
			}
		} else if l.openToSky(store, pos) {
			if level := skyEntryLevel(next); level > 0 {
				seeds = append(seeds, lightNode{pos: pos, level: level})
			}
		}
		changed = append(changed, l.propagate(store, ch, seeds)...)
	}
	return changed
}

// propagate runs the breadth-first light expansion for one channel. Seeds
// are written directly when brighter than the stored value; expansion from a
// node attenuates through each neighbour's filter and continues only while
// strictly increasing stored values, which bounds the search.
func (l *WorldLight) propagate(store *ChunkStore, ch chunk.LightChannel, seeds []lightNode) []cube.Pos {
	var changed []cube.Pos
	queue := make([]lightNode, 0, len(seeds))
	for _, s := range seeds {
		if s.level == 0 || s.level < l.channel(s.pos, ch) {
			continue
		}
		if l.set(s.pos, ch, s.level) {
			changed = append(changed, s.pos)
		}
		queue = append(queue, s)
	}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		n.pos.Neighbours(func(p cube.Pos) {
			att := attenuate(store, ch, n, p)
			if att == 0 || att <= l.channel(p, ch) {
				return
			}
			if l.set(p, ch, att) {
				changed = append(changed, p)
				queue = append(queue, lightNode{pos: p, level: att})
			}
		})
	}
	return changed
}

// remove unlights the region whose light depends on the value at the
// position passed, returning the removed positions and the frontier nodes
// bordering the region that can refill it.
func (l *WorldLight) remove(store *ChunkStore, pos cube.Pos, ch chunk.LightChannel) (changed []cube.Pos, frontier []lightNode) {
	old := l.channel(pos, ch)
	if old == 0 {
		return nil, nil
	}
	l.set(pos, ch, 0)
	changed = append(changed, pos)
	queue := []lightNode{{pos: pos, level: old}}
	border := make(map[cube.Pos]struct{})

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		n.pos.Neighbours(func(p cube.Pos) {
			v := l.channel(p, ch)
			if v == 0 {
				return
			}
			// Full-strength skylight below full-strength skylight descends
			// without loss, so it is a dependant even though it is not
			// dimmer.
			dependant := v < n.level ||
				(ch == chunk.SkyChannel && v == chunk.MaxLight && n.level == chunk.MaxLight && p[1] < n.pos[1])
			if dependant {
				l.set(p, ch, 0)
				changed = append(changed, p)
				queue = append(queue, lightNode{pos: p, level: v})
			} else {
				border[p] = struct{}{}
			}
		})
	}

	// A border cell recorded early may have been unlit by a brighter path
	// afterwards; only values that survived the sweep may refill the region.
	for p := range border {
		if v := l.channel(p, ch); v > 0 {
			frontier = append(frontier, lightNode{pos: p, level: v})
		}
	}
	return changed, frontier
}

// attenuate returns the light level arriving at p when expanding from node
// n. Full-strength skylight travelling straight down through near
// transparent blocks keeps its strength; every other step loses at least
// one level plus the target block's light filter.
func attenuate(store *ChunkStore, ch chunk.LightChannel, n lightNode, p cube.Pos) uint8 {
	filter := store.Block(p).Properties().LightFilter
	if ch == chunk.SkyChannel && n.level == chunk.MaxLight && p[1] == n.pos[1]-1 && filter <= 1 {
		return chunk.MaxLight
	}
	loss := max(filter, 1)
	if loss >= n.level {
		return 0
	}
	return n.level - loss
}

// openAbove reports whether no generated chunk sits above the chunk
// position passed within the vertical range.
func (l *WorldLight) openAbove(store *ChunkStore, pos cube.ChunkPos) bool {
	for y := pos[1] + 1; y < l.ra.Max(); y++ {
		if store.Contains(cube.ChunkPos{pos[0], y, pos[2]}) {
			return false
		}
	}
	return true
}

// openToSky reports whether every voxel above the position passed, within
// generated chunks, is non-opaque.
func (l *WorldLight) openToSky(store *ChunkStore, pos cube.Pos) bool {
	top := int(l.ra.Max())<<4 - 1
	for y := pos[1] + 1; y <= top; y++ {
		p := cube.Pos{pos[0], y, pos[2]}
		if !store.Contains(cube.ChunkPosFromBlockPos(p)) {
			// Ungenerated space reads as air.
			continue
		}
		if store.Block(p).Opaque() {
			return false
		}
	}
	return true
}

// recordPlaceholder stores or refreshes the placeholder entry of every
// column of the chunk passed that is open to the sky above it.
func (l *WorldLight) recordPlaceholder(store *ChunkStore, pos cube.ChunkPos) {
	if !l.openAbove(store, pos) {
		return
	}
	base := cube.BlockPosFromChunkPos(pos)
	for x := 0; x < cube.ChunkDim; x++ {
		for z := 0; z < cube.ChunkDim; z++ {
			key := packColumn(base[0]+x, base[2]+z)
			if py, ok := l.placeholders.Get(key); !ok || int32(py) < pos[1] {
				l.placeholders.Put(key, int64(pos[1]))
			}
		}
	}
}

// reconcileColumn withdraws the provisional skylight below a column once a
// chunk materialised above it: the skylight of the highest previously lit
// chunk in the column is removed and the dependent region refilled from its
// frontier. The actual relighting of the new chunk happens through its own
// seeds afterwards.
func (l *WorldLight) reconcileColumn(store *ChunkStore, key int64) []cube.Pos {
	x, z := unpackColumn(key)
	py, ok := l.placeholders.Get(key)
	if !ok {
		return nil
	}
	topY := (int(py)+1)<<4 - 1

	var changed []cube.Pos
	pos := cube.Pos{x, topY, z}
	removed, frontier := l.remove(store, pos, chunk.SkyChannel)
	changed = append(changed, removed...)
	changed = append(changed, l.propagate(store, chunk.SkyChannel, frontier)...)
	return changed
}

// reconcileVolume withdraws the light stored inside the chunk volume at the
// coordinates passed and refills it from the surviving frontier. The light
// was propagated while the coordinates were vacant and read as air; the
// inserted blocks now attenuate or stop it.
func (l *WorldLight) reconcileVolume(store *ChunkStore, pos cube.ChunkPos) []cube.Pos {
	g, ok := l.chunks[pos]
	if !ok || g.Empty() {
		return nil
	}
	base := cube.BlockPosFromChunkPos(pos)

	var changed []cube.Pos
	chunk.Positions(func(local cube.Pos) {
		p := base.Add(local)
		for _, ch := range [2]chunk.LightChannel{chunk.SkyChannel, chunk.BlockChannel} {
			if l.channel(p, ch) == 0 {
				continue
			}
			removed, frontier := l.remove(store, p, ch)
			changed = append(changed, removed...)
			changed = append(changed, l.propagate(store, ch, frontier)...)
		}
	})
	return changed
}

// forEachHaloPos calls f for every world position in the one block halo
// around the chunk whose lowest corner is base.
func forEachHaloPos(base cube.Pos, f func(pos cube.Pos)) {
	lo, hi := -mesh.AreaPadding, cube.ChunkDim+mesh.AreaPadding-1
	for x := lo; x <= hi; x++ {
		for y := lo; y <= hi; y++ {
			for z := lo; z <= hi; z++ {
				if x != lo && x != hi && y != lo && y != hi && z != lo && z != hi {
					continue
				}
				f(base.Add(cube.Pos{x, y, z}))
			}
		}
	}
}

// packColumn packs world column coordinates into a single map key.
func packColumn(x, z int) int64 {
	return int64(int32(x))<<32 | int64(uint32(int32(z)))
}

func unpackColumn(key int64) (x, z int) {
	return int(int32(key >> 32)), int(int32(uint32(key)))
}
