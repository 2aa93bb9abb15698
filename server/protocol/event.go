// Package protocol defines the closed sets of events exchanged between the
// simulation and a remote viewer, together with their symmetric binary wire
// encoding. Events are plain tagged values: the world produces ServerEvents
// and consumes ClientEvents without holding any reference to the transport.
package protocol

import (
	"github.com/quarry-mc/quarry/server/block"
	"github.com/quarry-mc/quarry/server/block/cube"
	"github.com/quarry-mc/quarry/server/mesh"
)

// ServerEvent is one of the diff events emitted by the world towards a
// remote viewer. Implementations are value types; chunk payloads they carry
// are immutable after publication and may be shared across goroutines.
type ServerEvent interface {
	serverEvent()
}

// ChunkLoaded reports a chunk entering the viewer's area, carrying its full
// diff payload. Important marks payloads the client should mesh before
// ordinary loads, such as chunks affected by a local edit.
type ChunkLoaded struct {
	Coords    cube.ChunkPos
	Data      *mesh.ChunkData
	Important bool
}

// ChunkUpdated reports new payload data for an already loaded chunk.
type ChunkUpdated struct {
	Coords    cube.ChunkPos
	Data      *mesh.ChunkData
	Important bool
}

// ChunkUnloaded reports a chunk leaving the viewer's area or emptying out.
type ChunkUnloaded struct {
	Coords cube.ChunkPos
}

// HoverChanged reports a change of the block the viewer's aim ray resolves
// to. Target is nil when nothing is hovered.
type HoverChanged struct {
	Target *HoverTarget
}

// HoverTarget identifies a hovered voxel and the face the aim ray entered
// through.
type HoverTarget struct {
	Pos  cube.Pos
	Face cube.Face
}

// TimeUpdated reports the world time of day, in ticks.
type TimeUpdated struct {
	Time float64
}

// Disconnected signals the end of the session. It is the one record carried
// by the priority stream, so it is never reordered behind bulk payloads.
type Disconnected struct{}

func (ChunkLoaded) serverEvent()   {}
func (ChunkUpdated) serverEvent()  {}
func (ChunkUnloaded) serverEvent() {}
func (HoverChanged) serverEvent()  {}
func (TimeUpdated) serverEvent()   {}
func (Disconnected) serverEvent()  {}

// ClientEvent is one of the intents a remote viewer sends to the world.
type ClientEvent interface {
	clientEvent()
}

// AreaRequested asks for the initial streaming of every chunk around the
// viewer. It carries the full viewer state so the world needs no prior
// session knowledge.
type AreaRequested struct {
	Radius   int32
	Position [3]float64
	Dir      [3]float64
}

// PositionChanged reports viewer movement.
type PositionChanged struct {
	Position [3]float64
}

// OrientationChanged reports a change of the viewer's aim direction.
type OrientationChanged struct {
	Dir [3]float64
}

// BlockPlaced asks to place a block against the currently hovered face.
type BlockPlaced struct {
	Block block.Block
}

// BlockDestroyed asks to destroy the currently hovered block.
type BlockDestroyed struct{}

func (AreaRequested) clientEvent()      {}
func (PositionChanged) clientEvent()    {}
func (OrientationChanged) clientEvent() {}
func (BlockPlaced) clientEvent()        {}
func (BlockDestroyed) clientEvent()     {}
