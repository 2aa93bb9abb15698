package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/quarry-mc/quarry/server/block"
	"github.com/quarry-mc/quarry/server/block/cube"
)

// Ray is a viewer's aim ray, used to resolve the hovered block.
type Ray struct {
	Origin mgl64.Vec3
	// Dir is the direction of the ray. It does not need to be normalised,
	// but must be non-zero.
	Dir mgl64.Vec3
}

// Intersection is the result of a raycast against the block store: the
// intersected voxel and the face through which the ray entered it.
type Intersection struct {
	Pos  cube.Pos
	Face cube.Face
}

// Cast walks the ray through the voxel grid up to reach blocks away and
// returns the first voxel whose block hitbox the ray intersects. The walk
// uses standard grid traversal; the entry face is derived from the axis
// stepped last.
func (r Ray) Cast(store *ChunkStore, reach float64) (Intersection, bool) {
	dir := r.Dir.Normalize()

	pos := cube.Pos{
		int(math.Floor(r.Origin[0])),
		int(math.Floor(r.Origin[1])),
		int(math.Floor(r.Origin[2])),
	}

	var step cube.Pos
	var tMax, tDelta mgl64.Vec3
	for i := 0; i < 3; i++ {
		if dir[i] > 0 {
			step[i] = 1
			tMax[i] = (math.Floor(r.Origin[i]) + 1 - r.Origin[i]) / dir[i]
			tDelta[i] = 1 / dir[i]
		} else if dir[i] < 0 {
			step[i] = -1
			tMax[i] = (r.Origin[i] - math.Floor(r.Origin[i])) / -dir[i]
			tDelta[i] = -1 / dir[i]
		} else {
			tMax[i] = math.Inf(1)
			tDelta[i] = math.Inf(1)
		}
	}

	entry := cube.FaceDown
	for t := 0.0; t <= reach; {
		if b := store.Block(pos); b != block.Air {
			if hit, face := r.intersectsHitbox(pos, b, dir, entry); hit {
				return Intersection{Pos: pos, Face: face}, true
			}
		}

		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		t = tMax[axis]
		tMax[axis] += tDelta[axis]
		pos[axis] += step[axis]
		entry = entryFace(axis, step[axis])
	}
	return Intersection{}, false
}

// intersectsHitbox tests the ray against the block's hitbox placed at the
// voxel passed, returning the face through which the ray enters the box.
// Full-cube hitboxes always intersect at the voxel entry face.
func (r Ray) intersectsHitbox(pos cube.Pos, b block.Block, dir mgl64.Vec3, entry cube.Face) (bool, cube.Face) {
	box := b.Properties().Hitbox
	if box.Min == ([3]float64{}) && box.Max == ([3]float64{1, 1, 1}) {
		return true, entry
	}

	tMin, tMaxT := math.Inf(-1), math.Inf(1)
	axis := 0
	for i := 0; i < 3; i++ {
		lo := float64(pos[i]) + box.Min[i]
		hi := float64(pos[i]) + box.Max[i]
		if dir[i] == 0 {
			if r.Origin[i] < lo || r.Origin[i] > hi {
				return false, entry
			}
			continue
		}
		t1 := (lo - r.Origin[i]) / dir[i]
		t2 := (hi - r.Origin[i]) / dir[i]
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin, axis = t1, i
		}
		tMaxT = math.Min(tMaxT, t2)
		if tMin > tMaxT {
			return false, entry
		}
	}
	if tMaxT < 0 {
		return false, entry
	}
	sign := 1
	if dir[axis] > 0 {
		sign = -1
	}
	return true, entryFace(axis, -sign)
}

// entryFace returns the face of the voxel entered when stepping along the
// axis passed in the direction passed: stepping +X enters through the west
// face, and so on.
func entryFace(axis, step int) cube.Face {
	switch axis {
	case 0:
		if step > 0 {
			return cube.FaceWest
		}
		return cube.FaceEast
	case 1:
		if step > 0 {
			return cube.FaceDown
		}
		return cube.FaceUp
	default:
		if step > 0 {
			return cube.FaceNorth
		}
		return cube.FaceSouth
	}
}
