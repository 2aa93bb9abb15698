package world

import "github.com/quarry-mc/quarry/server/block/cube"

// Area is a viewer's visible window of chunks: a centre chunk and a radius.
// Areas are cheap values recreated whenever the viewer moves.
type Area struct {
	// Centre is the chunk the viewer occupies.
	Centre cube.ChunkPos
	// Radius is the view distance in chunks. An Area with radius zero
	// contains only its centre chunk.
	Radius int32
}

// Contains reports whether the chunk coordinates passed fall within the
// area. Membership is spherical, matching the distance ordering used when
// streaming chunks.
func (a Area) Contains(pos cube.ChunkPos) bool {
	return a.Centre.DistanceSquared(pos) <= int64(a.Radius)*int64(a.Radius)
}

// Points calls f for every chunk coordinate inside the area.
func (a Area) Points(f func(pos cube.ChunkPos)) {
	for dx := -a.Radius; dx <= a.Radius; dx++ {
		for dy := -a.Radius; dy <= a.Radius; dy++ {
			for dz := -a.Radius; dz <= a.Radius; dz++ {
				pos := a.Centre.Add(cube.ChunkPos{dx, dy, dz})
				if a.Contains(pos) {
					f(pos)
				}
			}
		}
	}
}

// ExclusivePoints calls f for every chunk coordinate inside this area but
// outside the other area passed. It is used to compute entered and left
// chunk sets when a viewer moves.
func (a Area) ExclusivePoints(other Area, f func(pos cube.ChunkPos)) {
	a.Points(func(pos cube.ChunkPos) {
		if !other.Contains(pos) {
			f(pos)
		}
	})
}
