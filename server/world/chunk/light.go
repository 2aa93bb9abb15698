package chunk

import "github.com/quarry-mc/quarry/server/block/cube"

// BlockLight is the packed light value of a single voxel: a 4-bit skylight
// channel and a 4-bit block light channel, each in [0, MaxLight].
type BlockLight uint16

// MaxLight is the maximum value of a single light channel.
const MaxLight = 15

// Light returns a BlockLight with the channel values passed. Values above
// MaxLight are clamped.
func Light(sky, blk uint8) BlockLight {
	return BlockLight(min(sky, MaxLight))<<4 | BlockLight(min(blk, MaxLight))
}

// Sky returns the skylight channel.
func (l BlockLight) Sky() uint8 {
	return uint8(l >> 4 & 15)
}

// Block returns the block light channel.
func (l BlockLight) Block() uint8 {
	return uint8(l & 15)
}

// WithSky returns the light with the skylight channel replaced.
func (l BlockLight) WithSky(v uint8) BlockLight {
	return l&^(15<<4) | BlockLight(min(v, MaxLight))<<4
}

// WithBlock returns the light with the block light channel replaced.
func (l BlockLight) WithBlock(v uint8) BlockLight {
	return l&^15 | BlockLight(min(v, MaxLight))
}

// Channel returns the value of the light channel passed.
func (l BlockLight) Channel(ch LightChannel) uint8 {
	if ch == SkyChannel {
		return l.Sky()
	}
	return l.Block()
}

// WithChannel returns the light with the channel passed replaced.
func (l BlockLight) WithChannel(ch LightChannel, v uint8) BlockLight {
	if ch == SkyChannel {
		return l.WithSky(v)
	}
	return l.WithBlock(v)
}

// LightChannel identifies one of the two light channels of a BlockLight.
type LightChannel uint8

const (
	// SkyChannel carries light originating from sky exposure.
	SkyChannel LightChannel = iota
	// BlockChannel carries light originating from glowing blocks.
	BlockChannel
)

// LightGrid is a 16x16x16 grid of BlockLight values for one chunk, with a
// running count of non-zero values for O(1) emptiness checks.
type LightGrid struct {
	values  [Volume]BlockLight
	nonZero uint16
}

// NewLightGrid returns an all-dark light grid.
func NewLightGrid() *LightGrid {
	return &LightGrid{}
}

// At returns the light value at the local position passed.
func (l *LightGrid) At(local cube.Pos) BlockLight {
	return l.values[index(local)]
}

// Set writes a light value at the local position passed, returning whether
// the stored value changed.
func (l *LightGrid) Set(local cube.Pos, v BlockLight) bool {
	i := index(local)
	prev := l.values[i]
	if prev == v {
		return false
	}
	if prev == 0 {
		l.nonZero++
	} else if v == 0 {
		l.nonZero--
	}
	l.values[i] = v
	return true
}

// Fill sets every value of the grid to the light passed.
func (l *LightGrid) Fill(v BlockLight) {
	for i := range l.values {
		l.values[i] = v
	}
	if v == 0 {
		l.nonZero = 0
	} else {
		l.nonZero = Volume
	}
}

// Empty reports whether every value in the grid is zero.
func (l *LightGrid) Empty() bool {
	return l.nonZero == 0
}
