package world

import (
	"math/rand"
	"testing"
	"time"

	"github.com/quarry-mc/quarry/server/block"
	"github.com/quarry-mc/quarry/server/block/cube"
	"github.com/quarry-mc/quarry/server/protocol"
	"github.com/quarry-mc/quarry/server/world/chunk"
)

var testRange = cube.Range{-1, 2}

func TestBranchDestroyCascadesToTorch(t *testing.T) {
	store := NewChunkStore()
	c := chunk.New()
	c.Set(cube.Pos{8, 8, 8}, block.Grass)
	c.Set(cube.Pos{8, 9, 8}, block.Torch)
	store.Insert(cube.ChunkPos{0, 0, 0}, c)

	br := newBranch(store, testRange, cube.Pos{8, 8, 8}, block.Destroy())
	if br.Len() != 2 {
		t.Fatalf("staged edits = %v, want 2 (grass and torch)", br.Len())
	}

	actions := NewActionStore()
	light := NewWorldLight(testRange)
	_, removals, _ := br.merge(store, actions, light)
	if _, ok := removals[cube.ChunkPos{0, 0, 0}]; !ok {
		t.Fatalf("emptied chunk was not removed")
	}
	if store.Contains(cube.ChunkPos{0, 0, 0}) {
		t.Fatalf("empty chunk still stored")
	}
	if actions.Len() != 2 {
		t.Fatalf("logged edits = %v, want 2", actions.Len())
	}
}

func TestBranchPlaceRequiresSurface(t *testing.T) {
	store := NewChunkStore()
	c := chunk.New()
	c.Set(cube.Pos{8, 8, 8}, block.Stone)
	store.Insert(cube.ChunkPos{0, 0, 0}, c)

	br := newBranch(store, testRange, cube.Pos{8, 9, 8}, block.Place(block.Torch))
	if br.Len() != 0 {
		t.Fatalf("torch placement on stone staged %v edits, want 0", br.Len())
	}

	c.Set(cube.Pos{8, 8, 8}, block.Grass)
	br = newBranch(store, testRange, cube.Pos{8, 9, 8}, block.Place(block.Torch))
	if br.Len() != 1 {
		t.Fatalf("torch placement on grass staged %v edits, want 1", br.Len())
	}
}

func TestBranchPlaceIntoVacantChunk(t *testing.T) {
	store := NewChunkStore()
	actions := NewActionStore()
	light := NewWorldLight(testRange)

	pos := cube.Pos{20, 5, 3}
	br := newBranch(store, testRange, pos, block.Place(block.Sand))
	inserts, _, _ := br.merge(store, actions, light)
	if _, ok := inserts[cube.ChunkPos{1, 0, 0}]; !ok {
		t.Fatalf("placing into a vacant chunk did not insert one")
	}
	if b := store.Block(pos); b != block.Sand {
		t.Fatalf("block after place = %v, want sand", b)
	}
}

func TestSurfaceBlockPlacementFace(t *testing.T) {
	if placeable(block.Torch, cube.FaceNorth) {
		t.Fatalf("torch placeable against a side face")
	}
	if !placeable(block.Torch, cube.FaceUp) {
		t.Fatalf("torch not placeable on a top face")
	}
	if !placeable(block.Stone, cube.FaceNorth) {
		t.Fatalf("free-standing block rejected against a side face")
	}
}

func TestBranchRejectsOutOfRange(t *testing.T) {
	store := NewChunkStore()
	br := newBranch(store, testRange, cube.Pos{0, 100, 0}, block.Place(block.Stone))
	if br.Len() != 0 {
		t.Fatalf("edit above the world range staged %v edits, want 0", br.Len())
	}
}

func TestEditReplayIsDeterministic(t *testing.T) {
	gen := HillGenerator{Seed: 99, Range: testRange, BaseY: 8, Amplitude: 6}
	store := NewChunkStore()
	actions := NewActionStore()
	light := NewWorldLight(testRange)

	pos := cube.ChunkPos{0, 0, 0}
	c := gen.GenerateChunk(pos)
	store.Insert(pos, c)

	// Edit the chunk: dig two holes, fill one with sand, stack an edit on
	// the same voxel so last-write-wins is exercised.
	edits := []struct {
		pos cube.Pos
		a   block.Action
	}{
		{cube.Pos{3, 8, 3}, block.Destroy()},
		{cube.Pos{3, 7, 3}, block.Destroy()},
		{cube.Pos{3, 8, 3}, block.Place(block.Sand)},
		{cube.Pos{12, 9, 12}, block.Place(block.Glowstone)},
	}
	for _, e := range edits {
		br := newBranch(store, testRange, e.pos, e.a)
		br.merge(store, actions, light)
	}

	var want [chunk.Volume]block.Block
	i := 0
	chunk.Positions(func(local cube.Pos) {
		want[i] = c.Block(local)
		i++
	})

	// Unload and rebuild the chunk the way area re-entry does: regenerate
	// and replay the log.
	store.Remove(pos)
	rebuilt := gen.GenerateChunk(pos)
	actions.Actions(pos, rebuilt.ApplyUnchecked)

	i = 0
	chunk.Positions(func(local cube.Pos) {
		if rebuilt.Block(local) != want[i] {
			t.Fatalf("replayed block at %v = %v, want %v", local, rebuilt.Block(local), want[i])
		}
		i++
	})
}

func TestRandomEditReplayIsDeterministic(t *testing.T) {
	gen := HillGenerator{Seed: 42, Range: testRange, BaseY: 8, Amplitude: 6}
	store := NewChunkStore()
	actions := NewActionStore()
	light := NewWorldLight(testRange)

	pos := cube.ChunkPos{0, 0, 0}
	store.Insert(pos, gen.GenerateChunk(pos))

	// Random places and destroys, torches included so support cascades and
	// rejected placements are part of the sequence.
	blocks := []block.Block{block.Stone, block.Dirt, block.Sand, block.Glowstone, block.Torch}
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		p := cube.Pos{r.Intn(16), r.Intn(15), r.Intn(16)}
		a := block.Destroy()
		if r.Intn(2) == 0 {
			a = block.Place(blocks[r.Intn(len(blocks))])
		}
		br := newBranch(store, testRange, p, a)
		br.merge(store, actions, light)
	}

	var want [chunk.Volume]block.Block
	i := 0
	chunk.Positions(func(local cube.Pos) {
		want[i] = store.Block(local)
		i++
	})

	store.Remove(pos)
	rebuilt := gen.GenerateChunk(pos)
	actions.Actions(pos, rebuilt.ApplyUnchecked)

	i = 0
	chunk.Positions(func(local cube.Pos) {
		if rebuilt.Block(local) != want[i] {
			t.Fatalf("replayed block at %v = %v, want %v", local, rebuilt.Block(local), want[i])
		}
		i++
	})
}

func TestGeneratorIsDeterministic(t *testing.T) {
	gen := HillGenerator{Seed: 7, Range: testRange, BaseY: 8, Amplitude: 6}
	pos := cube.ChunkPos{-3, 0, 5}
	a, b := gen.GenerateChunk(pos), gen.GenerateChunk(pos)
	chunk.Positions(func(local cube.Pos) {
		if a.Block(local) != b.Block(local) {
			t.Fatalf("generator produced different blocks at %v", local)
		}
	})
}

func TestAreaExclusivePoints(t *testing.T) {
	a := Area{Centre: cube.ChunkPos{0, 0, 0}, Radius: 2}
	b := Area{Centre: cube.ChunkPos{1, 0, 0}, Radius: 2}

	seen := make(map[cube.ChunkPos]bool)
	a.ExclusivePoints(b, func(pos cube.ChunkPos) {
		if !a.Contains(pos) || b.Contains(pos) {
			t.Fatalf("exclusive point %v not exclusive to the first area", pos)
		}
		seen[pos] = true
	})
	if !seen[cube.ChunkPos{-2, 0, 0}] {
		t.Fatalf("trailing chunk missing from exclusive points")
	}
	if seen[cube.ChunkPos{0, 0, 0}] {
		t.Fatalf("shared centre reported as exclusive")
	}
}

func nextEvent(t *testing.T, ch <-chan protocol.ServerEvent) protocol.ServerEvent {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for a server event")
		return nil
	}
}

func TestWorldStreamsAreaAndEdits(t *testing.T) {
	out := make(chan protocol.ServerEvent, 256)
	done := make(chan struct{})
	defer close(done)

	w := Config{
		Generator:    FlatGenerator{Range: testRange, SurfaceY: 4},
		Range:        testRange,
		Workers:      2,
		TickInterval: time.Hour,
		Output:       out,
		Done:         done,
	}.New()
	defer w.Close()

	w.Handle(protocol.AreaRequested{Radius: 1, Position: [3]float64{8.5, 10, 8.5}, Dir: [3]float64{0, -1, 0}})

	if _, ok := nextEvent(t, out).(protocol.TimeUpdated); !ok {
		t.Fatalf("first event after area request is not the time")
	}
	hover, ok := nextEvent(t, out).(protocol.HoverChanged)
	if !ok {
		t.Fatalf("hover not streamed before the initial loads")
	}
	if hover.Target == nil || hover.Target.Pos != (cube.Pos{8, 4, 8}) || hover.Target.Face != cube.FaceUp {
		t.Fatalf("initial hover = %+v, want top of the grass at {8 4 8}", hover.Target)
	}
	var loads []protocol.ChunkLoaded
	for i := 0; i < 6; i++ {
		ev := nextEvent(t, out)
		load, ok := ev.(protocol.ChunkLoaded)
		if !ok {
			t.Fatalf("unexpected event %T during initial stream", ev)
		}
		loads = append(loads, load)
	}
	centre := cube.ChunkPos{0, 0, 0}
	if loads[0].Coords != centre {
		t.Fatalf("first load = %v, want the centre chunk", loads[0].Coords)
	}
	prev := int64(0)
	for _, load := range loads {
		if load.Important {
			t.Fatalf("initial load of %v marked important", load.Coords)
		}
		if d := centre.DistanceSquared(load.Coords); d < prev {
			t.Fatalf("loads not ordered by distance: %v after distance %v", load.Coords, prev)
		} else {
			prev = d
		}
	}

	// Destroying the hovered grass block must move the hover one block down
	// and stream an important update of the edited chunk, hover first.
	w.Handle(protocol.BlockDestroyed{})
	hover, ok = nextEvent(t, out).(protocol.HoverChanged)
	if !ok {
		t.Fatalf("hover not streamed before the edit updates")
	}
	if hover.Target == nil || hover.Target.Pos != (cube.Pos{8, 3, 8}) {
		t.Fatalf("hover after digging = %+v, want {8 3 8}", hover.Target)
	}
	for {
		ev := nextEvent(t, out)
		update, ok := ev.(protocol.ChunkUpdated)
		if !ok {
			t.Fatalf("unexpected event %T after edit", ev)
		}
		if !update.Important {
			t.Fatalf("edit update of %v not marked important", update.Coords)
		}
		if update.Coords == centre {
			break
		}
	}
}

func TestEditEmptiedChunkStreamsUnload(t *testing.T) {
	out := make(chan protocol.ServerEvent, 256)
	done := make(chan struct{})
	defer close(done)

	w := Config{
		Generator:    FlatGenerator{Range: testRange, SurfaceY: 15},
		Range:        testRange,
		Workers:      2,
		TickInterval: time.Hour,
		Output:       out,
		Done:         done,
	}.New()
	defer w.Close()

	// The surface tops out the lowest chunk, so a block placed onto it lands
	// in a vacant chunk.
	w.Handle(protocol.AreaRequested{Radius: 1, Position: [3]float64{8.5, 20, 8.5}, Dir: [3]float64{0, -1, 0}})
	for {
		if _, ok := nextEvent(t, out).(protocol.ChunkLoaded); ok {
			break
		}
	}

	w.Handle(protocol.BlockPlaced{Block: block.Stone})
	hover, ok := nextEvent(t, out).(protocol.HoverChanged)
	if !ok || hover.Target == nil || hover.Target.Pos != (cube.Pos{8, 16, 8}) {
		t.Fatalf("hover after placing = %+v, want the placed stone at {8 16 8}", hover.Target)
	}
	for {
		ev := nextEvent(t, out)
		load, ok := ev.(protocol.ChunkLoaded)
		if !ok {
			if _, ok := ev.(protocol.ChunkUpdated); ok {
				continue
			}
			t.Fatalf("unexpected event %T after placing into a vacant chunk", ev)
		}
		if load.Coords != (cube.ChunkPos{0, 1, 0}) || !load.Important {
			t.Fatalf("load after placing = %v important=%v, want {0 1 0} important", load.Coords, load.Important)
		}
		break
	}

	// Destroying the lone block empties the chunk again.
	w.Handle(protocol.BlockDestroyed{})
	hover, ok = nextEvent(t, out).(protocol.HoverChanged)
	if !ok || hover.Target == nil || hover.Target.Pos != (cube.Pos{8, 15, 8}) {
		t.Fatalf("hover after digging = %+v, want the surface at {8 15 8}", hover.Target)
	}
	for {
		ev := nextEvent(t, out)
		unload, ok := ev.(protocol.ChunkUnloaded)
		if !ok {
			if _, ok := ev.(protocol.ChunkUpdated); ok {
				continue
			}
			t.Fatalf("unexpected event %T after emptying a chunk", ev)
		}
		if unload.Coords != (cube.ChunkPos{0, 1, 0}) {
			t.Fatalf("unload after emptying = %v, want {0 1 0}", unload.Coords)
		}
		break
	}
}

func TestAreaShrinkUnloadsDepartedChunks(t *testing.T) {
	out := make(chan protocol.ServerEvent, 256)
	done := make(chan struct{})
	defer close(done)

	w := Config{
		Generator:    FlatGenerator{Range: testRange, SurfaceY: 4},
		Range:        testRange,
		Workers:      2,
		TickInterval: time.Hour,
		Output:       out,
		Done:         done,
	}.New()
	defer w.Close()

	w.Handle(protocol.AreaRequested{Radius: 1, Position: [3]float64{8.5, 10, 8.5}, Dir: [3]float64{0, -1, 0}})
	for seen := 0; seen < 6; {
		if _, ok := nextEvent(t, out).(protocol.ChunkLoaded); ok {
			seen++
		}
	}

	w.Handle(protocol.AreaRequested{Radius: 0, Position: [3]float64{8.5, 10, 8.5}, Dir: [3]float64{0, -1, 0}})
	if _, ok := nextEvent(t, out).(protocol.TimeUpdated); !ok {
		t.Fatalf("first event after a repeated area request is not the time")
	}
	if _, ok := nextEvent(t, out).(protocol.HoverChanged); !ok {
		t.Fatalf("hover not streamed before the shrink unloads")
	}
	unloaded := make(map[cube.ChunkPos]bool)
	var loads []cube.ChunkPos
	for i := 0; i < 6; i++ {
		switch ev := nextEvent(t, out).(type) {
		case protocol.ChunkUnloaded:
			if unloaded[ev.Coords] {
				t.Fatalf("chunk %v unloaded twice", ev.Coords)
			}
			if len(loads) > 0 {
				t.Fatalf("unload of %v streamed after a load", ev.Coords)
			}
			unloaded[ev.Coords] = true
		case protocol.ChunkLoaded:
			loads = append(loads, ev.Coords)
		default:
			t.Fatalf("unexpected event %T after area shrink", ev)
		}
	}
	if len(unloaded) != 5 {
		t.Fatalf("unloads = %v chunks, want 5", len(unloaded))
	}
	if unloaded[cube.ChunkPos{0, 0, 0}] {
		t.Fatalf("centre chunk unloaded on a shrink that keeps it")
	}
	if len(loads) != 1 || loads[0] != (cube.ChunkPos{0, 0, 0}) {
		t.Fatalf("loads after shrink = %v, want only the centre chunk", loads)
	}
}
