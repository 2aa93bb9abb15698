// Package world implements the authoritative voxel world state: sparse chunk
// storage, the replayable edit log, derived lighting and the single-goroutine
// simulation that turns client intents into streamed diff events.
package world

import (
	"slices"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/quarry-mc/quarry/server/block"
	"github.com/quarry-mc/quarry/server/block/cube"
	"github.com/quarry-mc/quarry/server/mesh"
	"github.com/quarry-mc/quarry/server/protocol"
	"github.com/quarry-mc/quarry/server/world/chunk"
)

// World holds the chunked block state visible to one viewer and streams its
// changes as server events. All state is owned by the single simulation
// goroutine started by Config.New: client events are queued into it and
// handled strictly in order of arrival, so no part of the world state needs
// locking. A nil *World is not safe to use.
type World struct {
	conf Config
	ra   cube.Range

	store   *ChunkStore
	actions *ActionStore
	light   *WorldLight
	pool    *workerPool

	queue   chan protocol.ClientEvent
	closing chan struct{}
	running sync.WaitGroup
	o       sync.Once

	viewer viewerState
	hover  *Intersection
	time   float64
}

// viewerState is the world-side record of the single viewer: position, aim
// and the chunk area streamed to it. active is false until the first area
// request arrives.
type viewerState struct {
	active   bool
	position mgl64.Vec3
	dir      mgl64.Vec3
	area     Area
}

// Handle queues a client event for the simulation goroutine. It blocks while
// the queue is full and becomes a no-op once the world is closing.
func (w *World) Handle(ev protocol.ClientEvent) {
	select {
	case w.queue <- ev:
	case <-w.closing:
	}
}

// Close stops the simulation goroutine and the worker pool. Queued events
// that were not yet handled are dropped.
func (w *World) Close() error {
	w.o.Do(func() {
		close(w.closing)
		w.running.Wait()
		w.pool.Close()
	})
	return nil
}

// run is the simulation loop. It owns every field of the World past
// construction and is the only goroutine to touch them.
func (w *World) run() {
	defer w.running.Done()
	t := time.NewTicker(w.conf.TickInterval)
	defer t.Stop()
	for {
		select {
		case ev := <-w.queue:
			w.handle(ev)
		case <-t.C:
			w.tick()
		case <-w.closing:
			return
		}
	}
}

func (w *World) handle(ev protocol.ClientEvent) {
	switch ev := ev.(type) {
	case protocol.AreaRequested:
		w.handleAreaRequested(ev)
	case protocol.PositionChanged:
		w.handlePositionChanged(ev)
	case protocol.OrientationChanged:
		w.handleOrientationChanged(ev)
	case protocol.BlockPlaced:
		w.handleBlockEdit(block.Place(ev.Block))
	case protocol.BlockDestroyed:
		w.handleBlockEdit(block.Destroy())
	}
}

// tick advances the world clock by one tick and publishes the new time.
func (w *World) tick() {
	w.time++
	w.publish(protocol.TimeUpdated{Time: w.time})
}

// handleAreaRequested initialises the viewer and streams every chunk of its
// area, closest chunks first. Initial loads are not important: the client
// meshes them at leisure.
func (w *World) handleAreaRequested(ev protocol.AreaRequested) {
	if ev.Radius < 0 {
		w.conf.Log.Error("area request: negative radius", "radius", ev.Radius)
		return
	}
	prev, wasActive := w.viewer.area, w.viewer.active
	w.viewer = viewerState{
		active:   true,
		position: mgl64.Vec3(ev.Position),
		dir:      mgl64.Vec3(ev.Dir),
		area:     Area{Centre: chunkPosFromVec(mgl64.Vec3(ev.Position)), Radius: ev.Radius},
	}

	// A repeated request with a smaller radius or different centre sheds the
	// chunks that fell out of the area.
	var left []cube.ChunkPos
	if wasActive {
		prev.ExclusivePoints(w.viewer.area, func(pos cube.ChunkPos) {
			if w.store.Contains(pos) {
				left = append(left, pos)
			}
		})
		for _, pos := range left {
			w.store.Remove(pos)
		}
	}

	var entered []cube.ChunkPos
	w.viewer.area.Points(func(pos cube.ChunkPos) {
		entered = append(entered, pos)
	})
	w.generateAndLight(entered)

	// Every stored chunk of the area is (re)sent, so a repeated request acts
	// as a full resync rather than a delta.
	var loads []cube.ChunkPos
	for _, pos := range entered {
		if w.store.Contains(pos) {
			loads = append(loads, pos)
		}
	}

	w.publish(protocol.TimeUpdated{Time: w.time})
	w.refreshHover(true)
	for _, pos := range left {
		w.publish(protocol.ChunkUnloaded{Coords: pos})
	}
	w.sortByDistance(loads)
	for _, data := range w.snapshots(loads) {
		w.publish(protocol.ChunkLoaded{Coords: data.Coords, Data: data, Important: false})
	}
}

// handlePositionChanged moves the viewer. If the move crosses a chunk
// boundary, chunks left behind are unloaded and released, chunks entered are
// generated and streamed, and chunks whose padded snapshot was touched by
// new light are re-sent. Area churn is not important to the client.
func (w *World) handlePositionChanged(ev protocol.PositionChanged) {
	w.viewer.position = mgl64.Vec3(ev.Position)
	if !w.viewer.active {
		return
	}
	prev := w.viewer.area
	next := Area{Centre: chunkPosFromVec(w.viewer.position), Radius: prev.Radius}
	w.viewer.area = next
	if next.Centre == prev.Centre {
		w.refreshHover(false)
		return
	}

	var left, entered []cube.ChunkPos
	prev.ExclusivePoints(next, func(pos cube.ChunkPos) {
		if w.store.Contains(pos) {
			left = append(left, pos)
		}
	})
	next.ExclusivePoints(prev, func(pos cube.ChunkPos) {
		entered = append(entered, pos)
	})

	// Chunks left behind are removed from the store; the action log holds
	// everything needed to rebuild them on re-entry. Their light is kept, as
	// regeneration plus replay reproduces the exact same blocks.
	for _, pos := range left {
		w.store.Remove(pos)
	}
	loads, changed := w.generateAndLight(entered)
	updates := w.updatedChunks(changed, loads, loads, nil)

	w.refreshHover(false)
	for _, pos := range left {
		w.publish(protocol.ChunkUnloaded{Coords: pos})
	}
	w.sortByDistance(loads)
	for _, data := range w.snapshots(loads) {
		w.publish(protocol.ChunkLoaded{Coords: data.Coords, Data: data, Important: false})
	}
	for _, data := range w.snapshots(updates) {
		w.publish(protocol.ChunkUpdated{Coords: data.Coords, Data: data, Important: false})
	}
}

func (w *World) handleOrientationChanged(ev protocol.OrientationChanged) {
	w.viewer.dir = mgl64.Vec3(ev.Dir)
	w.refreshHover(false)
}

// handleBlockEdit applies a place or destroy action at the hovered block.
// Without a hovered block the intent is silently dropped. Edits are the one
// event source whose diffs are important: the client prioritises re-meshing
// them to keep edits feeling instant.
func (w *World) handleBlockEdit(a block.Action) {
	if w.hover == nil || !w.viewer.active {
		return
	}
	target := w.hover.Pos
	if a.Kind == block.ActionPlace {
		if !placeable(a.Block, w.hover.Face) {
			return
		}
		target = target.Side(w.hover.Face)
	}

	br := newBranch(w.store, w.ra, target, a)
	if br.Len() == 0 {
		return
	}
	inserts, removals, changed := br.merge(w.store, w.actions, w.light)

	var loads, unloads []cube.ChunkPos
	for pos := range inserts {
		if w.viewer.area.Contains(pos) {
			loads = append(loads, pos)
		}
	}
	for pos := range removals {
		unloads = append(unloads, pos)
	}
	updates := w.updatedChunks(changed, append(loads, unloads...), loads, unloads)

	w.refreshHover(false)
	for _, data := range w.snapshots(updates) {
		w.publish(protocol.ChunkUpdated{Coords: data.Coords, Data: data, Important: true})
	}
	for _, pos := range unloads {
		w.publish(protocol.ChunkUnloaded{Coords: pos})
	}
	for _, data := range w.snapshots(loads) {
		w.publish(protocol.ChunkLoaded{Coords: data.Coords, Data: data, Important: true})
	}
}

// placeable reports whether the block passed may be placed against the
// hovered face. Surface-mounted blocks only attach to the top face of their
// support.
func placeable(b block.Block, face cube.Face) bool {
	return b.Properties().RequiresSurface == block.Air || face == cube.FaceUp
}

// generateAndLight generates the vacant chunks among the positions passed in
// parallel, inserts the non-empty results and relights them. It returns the
// inserted coordinates and every world position whose light changed outside
// of them.
func (w *World) generateAndLight(positions []cube.ChunkPos) (inserted []cube.ChunkPos, changed []cube.Pos) {
	var todo []cube.ChunkPos
	for _, pos := range positions {
		if w.ra.Contains(pos[1]) && !w.store.Contains(pos) {
			todo = append(todo, pos)
		}
	}
	if len(todo) == 0 {
		return nil, nil
	}

	// Generation is pure per chunk: the generator is deterministic and the
	// log replay only reads the action store, so the batch fans out cleanly.
	generated := make([]*chunk.Chunk, len(todo))
	w.pool.Batch(len(todo), func(i int) {
		generated[i] = w.generate(todo[i])
	})
	for i, c := range generated {
		if c == nil {
			continue
		}
		w.store.Insert(todo[i], c)
		inserted = append(inserted, todo[i])
	}
	changed = w.light.InsertMany(w.store, inserted, w.pool)
	return inserted, changed
}

// generate produces the chunk at the position passed by running the
// generator and replaying the logged edits on top. It returns nil for chunks
// that come out all air, which are never stored.
func (w *World) generate(pos cube.ChunkPos) *chunk.Chunk {
	c := w.conf.Generator.GenerateChunk(pos)
	w.actions.Actions(pos, c.ApplyUnchecked)
	if c.Empty() {
		return nil
	}
	return c
}

// updatedChunks computes the chunk coordinates whose snapshot must be
// re-sent: every chunk whose padded snapshot contains a changed block
// position, and every neighbour of a chunk that appeared or disappeared,
// whose halo it contributes to. Chunks already covered by a load or unload,
// outside the viewer's area or not stored are dropped.
func (w *World) updatedChunks(changed []cube.Pos, adjacent, loads, unloads []cube.ChunkPos) []cube.ChunkPos {
	if len(changed) == 0 && len(adjacent) == 0 {
		return nil
	}
	skip := make(map[cube.ChunkPos]struct{}, len(loads)+len(unloads))
	for _, pos := range loads {
		skip[pos] = struct{}{}
	}
	for _, pos := range unloads {
		skip[pos] = struct{}{}
	}

	set := make(map[cube.ChunkPos]struct{})
	var updates []cube.ChunkPos
	add := func(cp cube.ChunkPos) {
		if _, ok := set[cp]; ok {
			return
		}
		set[cp] = struct{}{}
		if _, ok := skip[cp]; ok {
			return
		}
		if !w.viewer.area.Contains(cp) || !w.store.Contains(cp) {
			return
		}
		updates = append(updates, cp)
	}
	for _, pos := range changed {
		for dx := -1; dx <= 1; dx++ {
			for dy := -1; dy <= 1; dy++ {
				for dz := -1; dz <= 1; dz++ {
					add(cube.ChunkPosFromBlockPos(pos.Add(cube.Pos{dx, dy, dz})))
				}
			}
		}
	}
	for _, pos := range adjacent {
		for dx := int32(-1); dx <= 1; dx++ {
			for dy := int32(-1); dy <= 1; dy++ {
				for dz := int32(-1); dz <= 1; dz++ {
					add(pos.Add(cube.ChunkPos{dx, dy, dz}))
				}
			}
		}
	}
	return updates
}

// snapshots builds the diff payloads of the chunks passed, fanned out over
// the pool: snapshot assembly only reads the store and the light field.
func (w *World) snapshots(positions []cube.ChunkPos) []*mesh.ChunkData {
	if len(positions) == 0 {
		return nil
	}
	data := make([]*mesh.ChunkData, len(positions))
	w.pool.Batch(len(positions), func(i int) {
		pos := positions[i]
		data[i] = &mesh.ChunkData{
			Coords: pos,
			Area:   w.store.ChunkArea(pos),
			Light:  w.light.ChunkAreaLight(pos),
		}
	})
	return data
}

// refreshHover recasts the aim ray and publishes the hovered block if it
// changed, or unconditionally when force is set.
func (w *World) refreshHover(force bool) {
	var next *Intersection
	if w.viewer.active && w.viewer.dir != (mgl64.Vec3{}) {
		ray := Ray{Origin: w.viewer.position, Dir: w.viewer.dir}
		if hit, ok := ray.Cast(w.store, w.conf.Reach); ok {
			next = &hit
		}
	}
	if !force && hoverEqual(w.hover, next) {
		return
	}
	w.hover = next
	if next == nil {
		w.publish(protocol.HoverChanged{})
		return
	}
	w.publish(protocol.HoverChanged{Target: &protocol.HoverTarget{Pos: next.Pos, Face: next.Face}})
}

func hoverEqual(a, b *Intersection) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// publish sends a server event to the output channel, giving up silently
// once the consumer signalled it is gone.
func (w *World) publish(ev protocol.ServerEvent) {
	if w.conf.Output == nil {
		return
	}
	select {
	case w.conf.Output <- ev:
	case <-w.conf.Done:
	}
}

// sortByDistance orders chunk coordinates by proximity to the viewer's
// centre chunk, so closer chunks appear first on the wire.
func (w *World) sortByDistance(positions []cube.ChunkPos) {
	centre := w.viewer.area.Centre
	slices.SortFunc(positions, func(a, b cube.ChunkPos) int {
		da, db := centre.DistanceSquared(a), centre.DistanceSquared(b)
		switch {
		case da < db:
			return -1
		case da > db:
			return 1
		default:
			return 0
		}
	})
}

// chunkPosFromVec returns the chunk the world space position passed falls
// in.
func chunkPosFromVec(v mgl64.Vec3) cube.ChunkPos {
	return cube.ChunkPosFromBlockPos(cube.Pos{floorInt(v[0]), floorInt(v[1]), floorInt(v[2])})
}

func floorInt(f float64) int {
	i := int(f)
	if f < float64(i) {
		i--
	}
	return i
}
