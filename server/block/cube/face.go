package cube

const (
	// FaceNorth represents the north face of a block, towards the negative Z.
	FaceNorth Face = iota
	// FaceEast represents the east face of a block, towards the positive X.
	FaceEast
	// FaceSouth represents the south face of a block, towards the positive Z.
	FaceSouth
	// FaceWest represents the west face of a block, towards the negative X.
	FaceWest
	// FaceUp represents the top face of a block, towards the positive Y.
	FaceUp
	// FaceDown represents the bottom face of a block, towards the negative Y.
	FaceDown
)

// Face represents one of the six faces of a block.
type Face uint8

// Faces returns all six faces.
func Faces() [6]Face {
	return [6]Face{FaceNorth, FaceEast, FaceSouth, FaceWest, FaceUp, FaceDown}
}

// Delta returns the unit offset towards the neighbouring block that shares
// this face.
func (f Face) Delta() Pos {
	return faceDeltas[f]
}

// Opposite returns the face on the opposite axis end.
func (f Face) Opposite() Face {
	switch f {
	case FaceNorth:
		return FaceSouth
	case FaceEast:
		return FaceWest
	case FaceSouth:
		return FaceNorth
	case FaceWest:
		return FaceEast
	case FaceUp:
		return FaceDown
	default:
		return FaceUp
	}
}

// String returns the name of the face.
func (f Face) String() string {
	switch f {
	case FaceNorth:
		return "north"
	case FaceEast:
		return "east"
	case FaceSouth:
		return "south"
	case FaceWest:
		return "west"
	case FaceUp:
		return "up"
	}
	return "down"
}

var faceDeltas = [6]Pos{
	FaceNorth: {0, 0, -1},
	FaceEast:  {1, 0, 0},
	FaceSouth: {0, 0, 1},
	FaceWest:  {-1, 0, 0},
	FaceUp:    {0, 1, 0},
	FaceDown:  {0, -1, 0},
}

const (
	// CornerLowerLeft is the lower left corner of a block face, as seen when
	// looking at the face straight on.
	CornerLowerLeft Corner = iota
	CornerLowerRight
	CornerUpperRight
	CornerUpperLeft
)

// Corner identifies one of the four corners of a block face.
type Corner uint8

// Corners returns all four face corners.
func Corners() [4]Corner {
	return [4]Corner{CornerLowerLeft, CornerLowerRight, CornerUpperRight, CornerUpperLeft}
}

// faceCornerFaces maps each face and corner to the two faces whose deltas,
// added to the face's own delta, point at the cells that border the corner.
// This drives both vertex placement and ambient occlusion sampling.
var faceCornerFaces = [6][4][2]Face{
	FaceNorth: {
		CornerLowerLeft:  {FaceWest, FaceDown},
		CornerLowerRight: {FaceEast, FaceDown},
		CornerUpperRight: {FaceEast, FaceUp},
		CornerUpperLeft:  {FaceWest, FaceUp},
	},
	FaceEast: {
		CornerLowerLeft:  {FaceNorth, FaceDown},
		CornerLowerRight: {FaceSouth, FaceDown},
		CornerUpperRight: {FaceSouth, FaceUp},
		CornerUpperLeft:  {FaceNorth, FaceUp},
	},
	FaceSouth: {
		CornerLowerLeft:  {FaceEast, FaceDown},
		CornerLowerRight: {FaceWest, FaceDown},
		CornerUpperRight: {FaceWest, FaceUp},
		CornerUpperLeft:  {FaceEast, FaceUp},
	},
	FaceWest: {
		CornerLowerLeft:  {FaceSouth, FaceDown},
		CornerLowerRight: {FaceNorth, FaceDown},
		CornerUpperRight: {FaceNorth, FaceUp},
		CornerUpperLeft:  {FaceSouth, FaceUp},
	},
	FaceUp: {
		CornerLowerLeft:  {FaceWest, FaceNorth},
		CornerLowerRight: {FaceEast, FaceNorth},
		CornerUpperRight: {FaceEast, FaceSouth},
		CornerUpperLeft:  {FaceWest, FaceSouth},
	},
	FaceDown: {
		CornerLowerLeft:  {FaceWest, FaceSouth},
		CornerLowerRight: {FaceEast, FaceSouth},
		CornerUpperRight: {FaceEast, FaceNorth},
		CornerUpperLeft:  {FaceWest, FaceNorth},
	},
}

// CornerComponents holds the three neighbour cell offsets sampled to compute
// the ambient occlusion of a face corner: the two edge-adjacent cells and the
// diagonal cell.
type CornerComponents struct {
	Edge1, Edge2, Diagonal Pos
}

var (
	cornerVertexDeltas    [6][4]Pos
	cornerComponentDeltas [6][4]CornerComponents
)

func init() {
	for _, face := range Faces() {
		d1 := face.Delta()
		for _, corner := range Corners() {
			pair := faceCornerFaces[face][corner]
			d2, d3 := pair[0].Delta(), pair[1].Delta()
			diag := d1.Add(d2).Add(d3)
			cornerComponentDeltas[face][corner] = CornerComponents{
				Edge1: diag.Add(Pos{-d3[0], -d3[1], -d3[2]}),
				Edge2: diag.Add(Pos{-d2[0], -d2[1], -d2[2]}),
				Diagonal: diag,
			}
			// The vertex sits on the unit cube: map each component of the
			// corner direction from [-1, 1] to {0, 1}.
			cornerVertexDeltas[face][corner] = Pos{(diag[0] + 1) / 2, (diag[1] + 1) / 2, (diag[2] + 1) / 2}
		}
	}
}

// CornerVertexDelta returns the offset in {0,1}³ of the vertex at the corner
// of a face, relative to the block's lowest corner.
func CornerVertexDelta(face Face, corner Corner) Pos {
	return cornerVertexDeltas[face][corner]
}

// CornerComponentDeltas returns the neighbour cell offsets sampled for the
// ambient occlusion of a face corner.
func CornerComponentDeltas(face Face, corner Corner) CornerComponents {
	return cornerComponentDeltas[face][corner]
}

// CornerTexCoords returns the texture coordinates of each face corner.
func CornerTexCoords(corner Corner) [2]uint8 {
	return cornerTexCoords[corner]
}

var cornerTexCoords = [4][2]uint8{
	CornerLowerLeft:  {0, 1},
	CornerLowerRight: {1, 1},
	CornerUpperRight: {1, 0},
	CornerUpperLeft:  {0, 0},
}

// QuadCorners is the order in which face corners are emitted as two
// triangles. FlippedQuadCorners is used instead when the ambient occlusion
// across one diagonal exceeds the other, avoiding a visible seam.
var (
	QuadCorners        = [6]Corner{CornerLowerLeft, CornerLowerRight, CornerUpperLeft, CornerLowerRight, CornerUpperRight, CornerUpperLeft}
	FlippedQuadCorners = [6]Corner{CornerLowerLeft, CornerLowerRight, CornerUpperRight, CornerLowerLeft, CornerUpperRight, CornerUpperLeft}
)
