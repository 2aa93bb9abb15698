package world

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/quarry-mc/quarry/server/block"
	"github.com/quarry-mc/quarry/server/block/cube"
	"github.com/quarry-mc/quarry/server/world/chunk"
)

func storeWith(blocks map[cube.Pos]block.Block) *ChunkStore {
	store := NewChunkStore()
	chunks := make(map[cube.ChunkPos]*chunk.Chunk)
	for pos, b := range blocks {
		cp := cube.ChunkPosFromBlockPos(pos)
		c, ok := chunks[cp]
		if !ok {
			c = chunk.New()
			chunks[cp] = c
			store.Insert(cp, c)
		}
		c.Set(cube.LocalPos(pos), b)
	}
	return store
}

func TestRayCastHitsFirstBlock(t *testing.T) {
	store := storeWith(map[cube.Pos]block.Block{
		{5, 0, 0}: block.Stone,
		{7, 0, 0}: block.Stone,
	})
	ray := Ray{Origin: mgl64.Vec3{0.5, 0.5, 0.5}, Dir: mgl64.Vec3{1, 0, 0}}
	hit, ok := ray.Cast(store, 8)
	if !ok {
		t.Fatalf("ray missed")
	}
	if hit.Pos != (cube.Pos{5, 0, 0}) || hit.Face != cube.FaceWest {
		t.Fatalf("hit = %v %v, want {5 0 0} west", hit.Pos, hit.Face)
	}
}

func TestRayCastRespectsReach(t *testing.T) {
	store := storeWith(map[cube.Pos]block.Block{{20, 0, 0}: block.Stone})
	ray := Ray{Origin: mgl64.Vec3{0.5, 0.5, 0.5}, Dir: mgl64.Vec3{1, 0, 0}}
	if _, ok := ray.Cast(store, 8); ok {
		t.Fatalf("ray hit a block beyond its reach")
	}
}

func TestRayCastUsesHitbox(t *testing.T) {
	store := storeWith(map[cube.Pos]block.Block{{5, 0, 0}: block.Torch})

	// Through the middle of the torch stem.
	ray := Ray{Origin: mgl64.Vec3{0, 0.5, 0.5}, Dir: mgl64.Vec3{1, 0, 0}}
	hit, ok := ray.Cast(store, 8)
	if !ok || hit.Pos != (cube.Pos{5, 0, 0}) || hit.Face != cube.FaceWest {
		t.Fatalf("stem hit = %v (%v), want {5 0 0} west", hit.Pos, ok)
	}

	// Above the stem the voxel is intersected but the hitbox is not.
	ray = Ray{Origin: mgl64.Vec3{0, 0.9, 0.5}, Dir: mgl64.Vec3{1, 0, 0}}
	if _, ok := ray.Cast(store, 8); ok {
		t.Fatalf("ray hit the torch above its hitbox")
	}
}

func TestRayCastDownwardEntersTopFace(t *testing.T) {
	store := storeWith(map[cube.Pos]block.Block{{0, -3, 0}: block.Grass})
	ray := Ray{Origin: mgl64.Vec3{0.5, 2, 0.5}, Dir: mgl64.Vec3{0, -1, 0}}
	hit, ok := ray.Cast(store, 8)
	if !ok || hit.Pos != (cube.Pos{0, -3, 0}) || hit.Face != cube.FaceUp {
		t.Fatalf("hit = %v %v (%v), want {0 -3 0} up", hit.Pos, hit.Face, ok)
	}
}
