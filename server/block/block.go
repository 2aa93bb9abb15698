// Package block defines the voxel block types of the world and the static
// property table describing their behaviour.
package block

// Block is the type tag of a single voxel. The zero value is Air.
type Block uint8

const (
	// Air is the absence of a block. Chunks consisting of only air are never
	// stored.
	Air Block = iota
	Grass
	Dirt
	Stone
	Bedrock
	Sand
	Glowstone
	GlassMagenta
	GlassCyan
	// Torch is a decorative light source that must sit on top of a grass
	// surface and is destroyed together with it.
	Torch

	blockCount
)

// Count returns the number of registered block types, including Air.
func Count() int {
	return int(blockCount)
}

// Properties holds the static behaviour of a block type. Properties values
// are built once at start-up and never mutated afterwards.
type Properties struct {
	// Name is the lowercase identifier of the block.
	Name string
	// Opaque blocks both light and the visibility of block faces behind it.
	Opaque bool
	// Luminance is the amount of block light the block emits, 0-15.
	Luminance uint8
	// LightFilter is the amount of light lost when light passes through the
	// block. Opaque blocks have a filter of 15.
	LightFilter uint8
	// SmoothLighting controls whether mesh corners of the block receive
	// per-corner ambient occlusion. Blocks without it render at full AO.
	SmoothLighting bool
	// RequiresSurface, if non-zero (i.e. not Air), restricts placement to the
	// top face of the block type it names, and causes the block to be
	// destroyed when its support is.
	RequiresSurface Block
	// Hitbox is the axis-aligned bounding box of the block relative to its
	// lowest corner. All components are in [0, 1].
	Hitbox Hitbox
	// SideTexIndices holds the texture atlas index for each of the six faces.
	// Air has no textures and is never meshed.
	SideTexIndices [6]uint8
}

// Hitbox is an axis-aligned box local to a block position, used for raycast
// intersection of hover targets.
type Hitbox struct {
	Min, Max [3]float64
}

func fullCube() Hitbox {
	return Hitbox{Max: [3]float64{1, 1, 1}}
}

func torchBox() Hitbox {
	return Hitbox{Min: [3]float64{0.4, 0, 0.4}, Max: [3]float64{0.6, 0.7, 0.6}}
}

// registry is the dense property table indexed by Block. It is initialised
// once and read-only afterwards.
var registry = [blockCount]Properties{
	Air: {Name: "air", LightFilter: 1},
	Grass: {
		Name: "grass", Opaque: true, LightFilter: 15, SmoothLighting: true,
		Hitbox:         fullCube(),
		SideTexIndices: [6]uint8{3, 3, 3, 3, 0, 2},
	},
	Dirt: {
		Name: "dirt", Opaque: true, LightFilter: 15, SmoothLighting: true,
		Hitbox:         fullCube(),
		SideTexIndices: [6]uint8{2, 2, 2, 2, 2, 2},
	},
	Stone: {
		Name: "stone", Opaque: true, LightFilter: 15, SmoothLighting: true,
		Hitbox:         fullCube(),
		SideTexIndices: [6]uint8{1, 1, 1, 1, 1, 1},
	},
	Bedrock: {
		Name: "bedrock", Opaque: true, LightFilter: 15, SmoothLighting: true,
		Hitbox:         fullCube(),
		SideTexIndices: [6]uint8{4, 4, 4, 4, 4, 4},
	},
	Sand: {
		Name: "sand", Opaque: true, LightFilter: 15, SmoothLighting: true,
		Hitbox:         fullCube(),
		SideTexIndices: [6]uint8{5, 5, 5, 5, 5, 5},
	},
	Glowstone: {
		Name: "glowstone", Opaque: true, Luminance: 15, LightFilter: 15,
		Hitbox:         fullCube(),
		SideTexIndices: [6]uint8{6, 6, 6, 6, 6, 6},
	},
	GlassMagenta: {
		Name: "glass_magenta", LightFilter: 1,
		Hitbox:         fullCube(),
		SideTexIndices: [6]uint8{7, 7, 7, 7, 7, 7},
	},
	GlassCyan: {
		Name: "glass_cyan", LightFilter: 1,
		Hitbox:         fullCube(),
		SideTexIndices: [6]uint8{8, 8, 8, 8, 8, 8},
	},
	Torch: {
		Name: "torch", Luminance: 14, LightFilter: 1,
		RequiresSurface: Grass,
		Hitbox:          torchBox(),
		SideTexIndices:  [6]uint8{9, 9, 9, 9, 9, 9},
	},
}

// Properties returns the static properties of the block. Properties of an
// unregistered tag panic: block tags only enter the system through the
// registry and the wire decoder, both of which validate them.
func (b Block) Properties() *Properties {
	if b >= blockCount {
		panic("block: properties of unregistered block")
	}
	return &registry[b]
}

// Valid reports whether the tag refers to a registered block type.
func (b Block) Valid() bool {
	return b < blockCount
}

// Opaque reports whether the block blocks light and hides faces behind it.
func (b Block) Opaque() bool {
	return b.Properties().Opaque
}

// Glowing reports whether the block emits any block light.
func (b Block) Glowing() bool {
	return b.Properties().Luminance > 0
}

// String returns the identifier of the block.
func (b Block) String() string {
	return b.Properties().Name
}
