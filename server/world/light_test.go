package world

import (
	"testing"

	"github.com/quarry-mc/quarry/server/block"
	"github.com/quarry-mc/quarry/server/block/cube"
	"github.com/quarry-mc/quarry/server/world/chunk"
)

func insertAndLight(t *testing.T, store *ChunkStore, light *WorldLight, pos cube.ChunkPos, c *chunk.Chunk) []cube.Pos {
	t.Helper()
	pool := newWorkerPool(2)
	defer pool.Close()
	store.Insert(pos, c)
	return light.InsertMany(store, []cube.ChunkPos{pos}, pool)
}

func TestBlockLightFallsOffFromSource(t *testing.T) {
	store := NewChunkStore()
	light := NewWorldLight(cube.Range{0, 2})

	c := chunk.New()
	c.Set(cube.Pos{8, 8, 8}, block.Glowstone)
	insertAndLight(t, store, light, cube.ChunkPos{0, 0, 0}, c)

	if v := light.Light(cube.Pos{8, 8, 8}).Block(); v != 15 {
		t.Fatalf("block light at the source = %v, want 15", v)
	}
	for d := 1; d <= 14; d++ {
		want := uint8(15 - d)
		if v := light.Light(cube.Pos{8, 8, 8 + d}).Block(); v != want {
			t.Fatalf("block light %v blocks from the source = %v, want %v", d, v, want)
		}
	}

	// Levels across any face never differ by more than the filter step.
	for x := 0; x < 16; x++ {
		for z := 0; z < 16; z++ {
			p := cube.Pos{x, 8, z}
			v := int(light.Light(p).Block())
			p.Neighbours(func(n cube.Pos) {
				if nv := int(light.Light(n).Block()); nv-v > 1 {
					t.Fatalf("light jumps from %v at %v to %v at %v", v, p, nv, n)
				}
			})
		}
	}
}

func TestSkylightStopsAtSurface(t *testing.T) {
	store := NewChunkStore()
	light := NewWorldLight(cube.Range{0, 1})

	c := chunk.FromFunc(func(local cube.Pos) block.Block {
		if local[1] < 8 {
			return block.Stone
		}
		return block.Air
	})
	insertAndLight(t, store, light, cube.ChunkPos{0, 0, 0}, c)

	for y := 8; y < 16; y++ {
		if v := light.Light(cube.Pos{8, y, 8}).Sky(); v != 15 {
			t.Fatalf("skylight in the open at y=%v = %v, want 15", y, v)
		}
	}
	if v := light.Light(cube.Pos{8, 7, 8}).Sky(); v != 0 {
		t.Fatalf("skylight inside stone = %v, want 0", v)
	}
}

func TestApplyRelightsAfterEdit(t *testing.T) {
	store := NewChunkStore()
	light := NewWorldLight(cube.Range{0, 1})

	c := chunk.FromFunc(func(local cube.Pos) block.Block {
		if local[1] < 8 {
			return block.Stone
		}
		return block.Air
	})
	insertAndLight(t, store, light, cube.ChunkPos{0, 0, 0}, c)

	// Digging out the surface block opens it to the sky.
	pos := cube.Pos{8, 7, 8}
	if !c.Apply(cube.LocalPos(pos), block.Destroy()) {
		t.Fatalf("destroy rejected")
	}
	changed := light.Apply(store, pos, block.Air)
	if len(changed) == 0 {
		t.Fatalf("no light change after opening the surface")
	}
	if v := light.Light(pos).Sky(); v != 15 {
		t.Fatalf("skylight in dug-out voxel = %v, want 15", v)
	}
	if v := light.Light(cube.Pos{8, 6, 8}).Sky(); v != 0 {
		t.Fatalf("skylight below dug-out voxel = %v, want 0", v)
	}

	// Sealing it back restores darkness.
	if !c.Apply(cube.LocalPos(pos), block.Place(block.Stone)) {
		t.Fatalf("place rejected")
	}
	light.Apply(store, pos, block.Stone)
	if v := light.Light(pos).Sky(); v != 0 {
		t.Fatalf("skylight in sealed voxel = %v, want 0", v)
	}
}

func TestBlockLightWithdrawnFromInsertedChunk(t *testing.T) {
	store := NewChunkStore()
	light := NewWorldLight(cube.Range{0, 1})

	// The glowstone lights the vacant chunk next door as if it were air.
	c := chunk.New()
	c.Set(cube.Pos{15, 8, 8}, block.Glowstone)
	insertAndLight(t, store, light, cube.ChunkPos{0, 0, 0}, c)
	if v := light.Light(cube.Pos{20, 8, 8}).Block(); v != 10 {
		t.Fatalf("block light in vacant space = %v, want 10", v)
	}

	// Filling the coordinates with solid stone must withdraw that light.
	solid := chunk.FromFunc(func(cube.Pos) block.Block { return block.Stone })
	insertAndLight(t, store, light, cube.ChunkPos{1, 0, 0}, solid)

	for _, x := range []int{16, 20, 31} {
		if v := light.Light(cube.Pos{x, 8, 8}).Block(); v != 0 {
			t.Fatalf("block light inside stone at x=%v = %v, want 0", x, v)
		}
	}
	if v := light.Light(cube.Pos{15, 8, 8}).Block(); v != 15 {
		t.Fatalf("block light at the source = %v, want 15", v)
	}
}

func TestPlaceholderSkylightReconciled(t *testing.T) {
	store := NewChunkStore()
	light := NewWorldLight(cube.Range{0, 3})

	// The bottom chunk is lit under the assumption that nothing sits above.
	floor := chunk.New()
	floor.Set(cube.Pos{8, 0, 8}, block.Bedrock)
	insertAndLight(t, store, light, cube.ChunkPos{0, 0, 0}, floor)
	if v := light.Light(cube.Pos{8, 15, 8}).Sky(); v != 15 {
		t.Fatalf("provisional skylight = %v, want 15", v)
	}

	// A fully opaque chunk two levels up shadows the whole column.
	lid := chunk.FromFunc(func(cube.Pos) block.Block { return block.Stone })
	insertAndLight(t, store, light, cube.ChunkPos{0, 2, 0}, lid)

	for _, y := range []int{15, 8} {
		if v := light.Light(cube.Pos{8, y, 8}).Sky(); v != 0 {
			t.Fatalf("skylight below opaque chunk at y=%v = %v, want 0", y, v)
		}
	}
	// Above the lid the sky is still open.
	if v := light.Light(cube.Pos{8, 48, 8}).Sky(); v != 15 {
		t.Fatalf("skylight above opaque chunk = %v, want 15", v)
	}
}
