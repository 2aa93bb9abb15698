package cube

// Pos holds the position of a block in the world. The position is represented
// of an array with an x, y and z value, where the y value is vertical.
type Pos [3]int

// X returns the X coordinate of the block position.
func (p Pos) X() int {
	return p[0]
}

// Y returns the Y coordinate of the block position.
func (p Pos) Y() int {
	return p[1]
}

// Z returns the Z coordinate of the block position.
func (p Pos) Z() int {
	return p[2]
}

// Add adds a delta to the position and returns the result.
func (p Pos) Add(d Pos) Pos {
	return Pos{p[0] + d[0], p[1] + d[1], p[2] + d[2]}
}

// Side returns the position on the side of this block position, at a specific
// face.
func (p Pos) Side(face Face) Pos {
	d := face.Delta()
	return Pos{p[0] + d[0], p[1] + d[1], p[2] + d[2]}
}

// Neighbours calls the function passed for each of the block position's 6
// face-adjacent neighbours.
func (p Pos) Neighbours(f func(neighbour Pos)) {
	for face := Face(0); face < 6; face++ {
		f(p.Side(face))
	}
}

// ChunkPos holds the position of a chunk. Unlike Pos, ChunkPos is
// three-dimensional on the chunk grid: one step on any axis covers 16 blocks.
type ChunkPos [3]int32

// X returns the X coordinate of the chunk position.
func (p ChunkPos) X() int32 {
	return p[0]
}

// Y returns the Y coordinate of the chunk position.
func (p ChunkPos) Y() int32 {
	return p[1]
}

// Z returns the Z coordinate of the chunk position.
func (p ChunkPos) Z() int32 {
	return p[2]
}

// Add adds a delta to the chunk position and returns the result.
func (p ChunkPos) Add(d ChunkPos) ChunkPos {
	return ChunkPos{p[0] + d[0], p[1] + d[1], p[2] + d[2]}
}

// DistanceSquared returns the squared distance between two chunk positions.
// It is used for ordering chunks by proximity without taking square roots.
func (p ChunkPos) DistanceSquared(other ChunkPos) int64 {
	dx, dy, dz := int64(p[0]-other[0]), int64(p[1]-other[1]), int64(p[2]-other[2])
	return dx*dx + dy*dy + dz*dz
}

// ChunkDim is the length in blocks of a chunk edge. Chunks are cubic, so a
// chunk holds ChunkDim³ blocks.
const ChunkDim = 16

// ChunkPosFromBlockPos returns the position of the chunk that the block
// position passed falls in.
func ChunkPosFromBlockPos(p Pos) ChunkPos {
	return ChunkPos{int32(p[0] >> 4), int32(p[1] >> 4), int32(p[2] >> 4)}
}

// BlockPosFromChunkPos returns the world position of the lowest corner of the
// chunk at the chunk position passed.
func BlockPosFromChunkPos(p ChunkPos) Pos {
	return Pos{int(p[0]) << 4, int(p[1]) << 4, int(p[2]) << 4}
}

// LocalPos returns the coordinates of the block position local to the chunk
// it falls in, each in the range [0, 16).
func LocalPos(p Pos) Pos {
	return Pos{p[0] & 15, p[1] & 15, p[2] & 15}
}

// Range represents the vertical range of a world in chunks. The first value
// is the lowest chunk Y coordinate, the second value one above the highest.
type Range [2]int32

// Min returns the lowest chunk Y coordinate within the range.
func (r Range) Min() int32 {
	return r[0]
}

// Max returns the chunk Y coordinate one above the highest within the range.
func (r Range) Max() int32 {
	return r[1]
}

// Contains checks if the chunk Y coordinate passed falls within the range.
func (r Range) Contains(y int32) bool {
	return y >= r[0] && y < r[1]
}
