package mesh

import (
	"github.com/quarry-mc/quarry/server/block/cube"
	"github.com/quarry-mc/quarry/server/world/chunk"
)

// BlockAreaLight is a snapshot of the light values in the 3x3x3
// neighbourhood of a single block, built alongside a BlockArea.
type BlockAreaLight struct {
	values [BlockAreaDim * BlockAreaDim * BlockAreaDim]chunk.BlockLight
}

// BlockAreaLightFromFunc builds a BlockAreaLight by calling f for every
// delta in the [-1, 1] cube.
func BlockAreaLightFromFunc(f func(delta cube.Pos) chunk.BlockLight) *BlockAreaLight {
	l := &BlockAreaLight{}
	for dx := -AreaPadding; dx <= AreaPadding; dx++ {
		for dy := -AreaPadding; dy <= AreaPadding; dy++ {
			for dz := -AreaPadding; dz <= AreaPadding; dz++ {
				d := cube.Pos{dx, dy, dz}
				l.values[blockAreaIndex(d)] = f(d)
			}
		}
	}
	return l
}

// Light returns the light value at the delta passed.
func (l *BlockAreaLight) Light(delta cube.Pos) chunk.BlockLight {
	return l.values[blockAreaIndex(delta)]
}

// CornerLights computes the smooth light value of each corner of the face
// passed: the average, per channel, of the face-adjacent cell and the three
// corner component cells, skipping cells that are opaque in the area passed.
// The face cell itself is always transparent when the face is visible, so
// the result is defined for every meshed face.
func (l *BlockAreaLight) CornerLights(face cube.Face, area BlockArea) [4]chunk.BlockLight {
	var out [4]chunk.BlockLight
	faceDelta := face.Delta()
	for _, corner := range cube.Corners() {
		comps := cube.CornerComponentDeltas(face, corner)
		var sky, blk, n uint16
		for _, d := range [4]cube.Pos{faceDelta, comps.Edge1, comps.Edge2, comps.Diagonal} {
			if area.Opaque(d) {
				continue
			}
			v := l.Light(d)
			sky += uint16(v.Sky())
			blk += uint16(v.Block())
			n++
		}
		if n == 0 {
			n = 1
		}
		out[corner] = chunk.Light(uint8(sky/n), uint8(blk/n))
	}
	return out
}

// ChunkAreaLight is the light counterpart of ChunkArea: one chunk's light
// values padded with a one block halo.
type ChunkAreaLight struct {
	values [ChunkAreaDim * ChunkAreaDim * ChunkAreaDim]chunk.BlockLight
}

// Light returns the light value at the padded local position passed.
func (l *ChunkAreaLight) Light(local cube.Pos) chunk.BlockLight {
	return l.values[chunkAreaIndex(local)]
}

// SetLight writes a light value into the snapshot.
func (l *ChunkAreaLight) SetLight(local cube.Pos, v chunk.BlockLight) {
	l.values[chunkAreaIndex(local)] = v
}

// BlockAreaLight derives the light snapshot of the 3x3x3 neighbourhood of
// the local position passed.
func (l *ChunkAreaLight) BlockAreaLight(local cube.Pos) *BlockAreaLight {
	return BlockAreaLightFromFunc(func(delta cube.Pos) chunk.BlockLight {
		return l.Light(local.Add(delta))
	})
}

// Data returns the raw light grid in index order, two big-endian bytes per
// value, for wire encoding.
func (l *ChunkAreaLight) Data() []byte {
	out := make([]byte, len(l.values)*2)
	for i, v := range l.values {
		out[i*2] = byte(v >> 8)
		out[i*2+1] = byte(v)
	}
	return out
}

// ChunkAreaLightFromData rebuilds a light snapshot from its wire form.
func ChunkAreaLightFromData(data []byte) (*ChunkAreaLight, bool) {
	l := &ChunkAreaLight{}
	if len(data) != len(l.values)*2 {
		return nil, false
	}
	for i := range l.values {
		l.values[i] = chunk.BlockLight(data[i*2])<<8 | chunk.BlockLight(data[i*2+1])
	}
	return l, true
}
