package mesh

import (
	"math/rand"
	"testing"

	"github.com/quarry-mc/quarry/server/block"
	"github.com/quarry-mc/quarry/server/block/cube"
)

func TestVisibleFaces(t *testing.T) {
	// A single opaque neighbour above hides exactly the up face.
	area := BlockAreaFromFunc(func(delta cube.Pos) bool {
		return delta == cube.Pos{0, 1, 0}
	})
	seen := make(map[cube.Face]bool)
	area.VisibleFaces(func(face cube.Face) {
		seen[face] = true
	})
	if len(seen) != 5 || seen[cube.FaceUp] {
		t.Fatalf("visible faces with opaque block above = %v", seen)
	}
}

func TestCornerAOExtremes(t *testing.T) {
	empty := BlockAreaFromFunc(func(cube.Pos) bool { return false })
	for _, face := range cube.Faces() {
		for _, corner := range cube.Corners() {
			if ao := CornerAO(empty, face, corner); ao != 3 {
				t.Fatalf("AO in empty area, face %v corner %v = %v, want 3", face, corner, ao)
			}
		}
	}

	// Both edge cells of a corner opaque force full occlusion regardless of
	// the diagonal.
	face, corner := cube.FaceUp, cube.CornerLowerLeft
	comps := cube.CornerComponentDeltas(face, corner)
	area := BlockAreaFromFunc(func(delta cube.Pos) bool {
		return delta == comps.Edge1 || delta == comps.Edge2
	})
	if ao := CornerAO(area, face, corner); ao != 0 {
		t.Fatalf("AO with both edges opaque = %v, want 0", ao)
	}
}

func TestCornerAOBounds(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 256; i++ {
		area := BlockArea(r.Uint32())
		for _, face := range cube.Faces() {
			for _, corner := range cube.Corners() {
				if ao := CornerAO(area, face, corner); ao > 3 {
					t.Fatalf("AO out of range: area %#x face %v corner %v = %v", uint32(area), face, corner, ao)
				}
			}
		}
	}
}

func TestVerticesQuadWinding(t *testing.T) {
	// A lone dirt block in an otherwise empty snapshot: every face visible,
	// no occlusion, no diagonal flip.
	area := &ChunkArea{}
	area.SetBlock(cube.Pos{8, 8, 8}, block.Dirt)
	data := &ChunkData{Area: area, Light: &ChunkAreaLight{}}

	verts := data.Vertices()
	if len(verts) != 6*6 {
		t.Fatalf("vertex count = %v, want 36", len(verts))
	}
	for _, v := range verts {
		if v.AO != 3 {
			t.Fatalf("unoccluded corner has AO %v", v.AO)
		}
	}
}

func TestVerticesSkipsHalo(t *testing.T) {
	// Blocks in the halo contribute occlusion but no vertices of their own.
	area := &ChunkArea{}
	area.SetBlock(cube.Pos{-1, 0, 0}, block.Stone)
	data := &ChunkData{Area: area, Light: &ChunkAreaLight{}}
	if verts := data.Vertices(); len(verts) != 0 {
		t.Fatalf("halo block produced %v vertices", len(verts))
	}
}

func TestChunkAreaDataRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	area := &ChunkArea{}
	for i := 0; i < 64; i++ {
		local := cube.Pos{r.Intn(ChunkAreaDim) - 1, r.Intn(ChunkAreaDim) - 1, r.Intn(ChunkAreaDim) - 1}
		area.SetBlock(local, block.Block(r.Intn(int(block.Sand))))
	}
	decoded, ok := ChunkAreaFromData(area.Data())
	if !ok {
		t.Fatalf("decoding valid snapshot data failed")
	}
	if *decoded != *area {
		t.Fatalf("snapshot changed across data round trip")
	}

	if _, ok := ChunkAreaFromData([]byte{1, 2, 3}); ok {
		t.Fatalf("short data decoded")
	}
	bad := area.Data()
	bad[0] = 0xff
	if _, ok := ChunkAreaFromData(bad); ok {
		t.Fatalf("data with unregistered block tag decoded")
	}
}
