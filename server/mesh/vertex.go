package mesh

import (
	"github.com/quarry-mc/quarry/server/block"
	"github.com/quarry-mc/quarry/server/block/cube"
	"github.com/quarry-mc/quarry/server/world/chunk"
)

// Vertex is a single mesh vertex of a block face corner. Coordinates are
// local to the chunk the vertex belongs to.
type Vertex struct {
	// Pos is the vertex position relative to the chunk's lowest corner. Each
	// component is in [0, 16].
	Pos [3]uint8
	// TexIndex is the texture atlas index of the face.
	TexIndex uint8
	// TexCoords are the texture coordinates of the corner within the tile.
	TexCoords [2]uint8
	// Face is the block face the vertex belongs to.
	Face cube.Face
	// AO is the ambient occlusion level of the corner, in [0, 3] where 3 is
	// fully lit.
	AO uint8
	// Light is the smooth light value of the corner.
	Light chunk.BlockLight
}

// ChunkData is the immutable diff payload of a single chunk: its padded
// block and light snapshots. It is built once when a chunk is loaded or
// updated, shared read-only with the outbound stream, and never mutated
// after publication.
type ChunkData struct {
	Coords cube.ChunkPos
	Area   *ChunkArea
	Light  *ChunkAreaLight
}

// Vertices computes the mesh vertices of every visible block face in the
// chunk. The computation depends only on the snapshot, never on mutable
// store state, and may run concurrently with anything else.
func (d *ChunkData) Vertices() []Vertex {
	var out []Vertex
	for x := 0; x < cube.ChunkDim; x++ {
		for y := 0; y < cube.ChunkDim; y++ {
			for z := 0; z < cube.ChunkDim; z++ {
				local := cube.Pos{x, y, z}
				b := d.Area.Block(local)
				if b == block.Air {
					continue
				}
				out = appendBlockVertices(out, local, b, d.Area.BlockArea(local), d.Light.BlockAreaLight(local))
			}
		}
	}
	return out
}

// appendBlockVertices emits the vertices of every visible face of one block.
func appendBlockVertices(out []Vertex, local cube.Pos, b block.Block, area BlockArea, light *BlockAreaLight) []Vertex {
	props := b.Properties()
	area.VisibleFaces(func(face cube.Face) {
		var aos [4]uint8
		for _, corner := range cube.Corners() {
			aos[corner] = CornerAO(area, face, corner)
			if !props.SmoothLighting {
				aos[corner] = 3
			}
		}
		lights := light.CornerLights(face, area)

		order := cube.QuadCorners
		// Flip the quad's diagonal when occlusion across one diagonal
		// dominates the other, so interpolation doesn't produce a seam.
		if aos[cube.CornerLowerLeft]+aos[cube.CornerUpperRight] > aos[cube.CornerLowerRight]+aos[cube.CornerUpperLeft] {
			order = cube.FlippedQuadCorners
		}
		for _, corner := range order {
			vd := cube.CornerVertexDelta(face, corner)
			out = append(out, Vertex{
				Pos:       [3]uint8{uint8(local[0] + vd[0]), uint8(local[1] + vd[1]), uint8(local[2] + vd[2])},
				TexIndex:  props.SideTexIndices[face],
				TexCoords: cube.CornerTexCoords(corner),
				Face:      face,
				AO:        aos[corner],
				Light:     lights[corner],
			})
		}
	})
	return out
}

// CornerAO computes the ambient occlusion level of one corner of a visible
// face: 0 if both edge-adjacent cells are opaque, otherwise 3 minus the
// number of opaque cells among the two edges and the diagonal.
func CornerAO(area BlockArea, face cube.Face, corner cube.Corner) uint8 {
	comps := cube.CornerComponentDeltas(face, corner)
	edge1, edge2 := area.Opaque(comps.Edge1), area.Opaque(comps.Edge2)
	if edge1 && edge2 {
		return 0
	}
	n := uint8(0)
	if edge1 {
		n++
	}
	if edge2 {
		n++
	}
	if area.Opaque(comps.Diagonal) {
		n++
	}
	return 3 - n
}
