package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/quarry-mc/quarry/server/block"
	"github.com/quarry-mc/quarry/server/block/cube"
	"github.com/quarry-mc/quarry/server/mesh"
)

// Record tags. Server and client tags live in disjoint ranges so a stream
// accidentally cross-wired fails loudly instead of mis-decoding.
const (
	tagChunkLoaded = iota + 0x01
	tagChunkUpdated
	tagChunkUnloaded
	tagHoverChanged
	tagTimeUpdated
	tagDisconnected
)

const (
	tagAreaRequested = iota + 0x41
	tagPositionChanged
	tagOrientationChanged
	tagBlockPlaced
	tagBlockDestroyed
)

// ErrMalformed is returned when a single record could not be decoded: an
// unknown tag, a checksum mismatch or an invalid payload. The stream itself
// stays aligned, so the caller may log the error and continue reading.
var ErrMalformed = errors.New("protocol: malformed record")

// maxPayload bounds the declared length of a single record. Chunk payloads
// compress far below this; anything larger is a corrupt or hostile frame.
const maxPayload = 4 << 20

// Encoder writes tagged, self-delimiting binary records to a byte stream.
// Every record is framed as a one byte tag, a big-endian payload length, the
// payload and an xxhash64 checksum of the payload, identically on both
// sides of the connection.
type Encoder struct {
	w    io.Writer
	zenc *zstd.Encoder
	buf  []byte
}

// NewEncoder returns an Encoder writing records to w.
func NewEncoder(w io.Writer) *Encoder {
	zenc, _ := zstd.NewWriter(nil)
	return &Encoder{w: w, zenc: zenc}
}

// WriteServerEvent encodes and writes a single server event record.
func (e *Encoder) WriteServerEvent(ev ServerEvent) error {
	e.buf = e.buf[:0]
	var tag byte
	switch ev := ev.(type) {
	case ChunkLoaded:
		tag = tagChunkLoaded
		e.appendChunkPayload(ev.Coords, ev.Data, ev.Important)
	case ChunkUpdated:
		tag = tagChunkUpdated
		e.appendChunkPayload(ev.Coords, ev.Data, ev.Important)
	case ChunkUnloaded:
		tag = tagChunkUnloaded
		e.appendChunkPos(ev.Coords)
	case HoverChanged:
		tag = tagHoverChanged
		if ev.Target == nil {
			e.buf = append(e.buf, 0)
		} else {
			e.buf = append(e.buf, 1)
			for _, c := range ev.Target.Pos {
				e.buf = binary.BigEndian.AppendUint64(e.buf, uint64(int64(c)))
			}
			e.buf = append(e.buf, byte(ev.Target.Face))
		}
	case TimeUpdated:
		tag = tagTimeUpdated
		e.buf = binary.BigEndian.AppendUint64(e.buf, math.Float64bits(ev.Time))
	case Disconnected:
		tag = tagDisconnected
	default:
		panic(fmt.Sprintf("protocol: unregistered server event %T", ev))
	}
	return e.writeRecord(tag)
}

// WriteClientEvent encodes and writes a single client event record.
func (e *Encoder) WriteClientEvent(ev ClientEvent) error {
	e.buf = e.buf[:0]
	var tag byte
	switch ev := ev.(type) {
	case AreaRequested:
		tag = tagAreaRequested
		e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(ev.Radius))
		e.appendVec(ev.Position)
		e.appendVec(ev.Dir)
	case PositionChanged:
		tag = tagPositionChanged
		e.appendVec(ev.Position)
	case OrientationChanged:
		tag = tagOrientationChanged
		e.appendVec(ev.Dir)
	case BlockPlaced:
		tag = tagBlockPlaced
		e.buf = append(e.buf, byte(ev.Block))
	case BlockDestroyed:
		tag = tagBlockDestroyed
	default:
		panic(fmt.Sprintf("protocol: unregistered client event %T", ev))
	}
	return e.writeRecord(tag)
}

func (e *Encoder) writeRecord(tag byte) error {
	header := [5]byte{tag}
	binary.BigEndian.PutUint32(header[1:], uint32(len(e.buf)))
	if _, err := e.w.Write(header[:]); err != nil {
		return fmt.Errorf("write record header: %w", err)
	}
	if _, err := e.w.Write(e.buf); err != nil {
		return fmt.Errorf("write record payload: %w", err)
	}
	var sum [8]byte
	binary.BigEndian.PutUint64(sum[:], xxhash.Sum64(e.buf))
	if _, err := e.w.Write(sum[:]); err != nil {
		return fmt.Errorf("write record checksum: %w", err)
	}
	return nil
}

func (e *Encoder) appendChunkPos(pos cube.ChunkPos) {
	for _, c := range pos {
		e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(c))
	}
}

func (e *Encoder) appendVec(v [3]float64) {
	for _, c := range v {
		e.buf = binary.BigEndian.AppendUint64(e.buf, math.Float64bits(c))
	}
}

// appendChunkPayload encodes a chunk diff payload: the coordinates, the
// importance flag and the zstd-compressed concatenation of the block and
// light snapshots.
func (e *Encoder) appendChunkPayload(pos cube.ChunkPos, data *mesh.ChunkData, important bool) {
	e.appendChunkPos(pos)
	if important {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
	raw := append(data.Area.Data(), data.Light.Data()...)
	e.buf = e.zenc.EncodeAll(raw, e.buf)
}

// Decoder reads tagged records from a byte stream, one record per call.
type Decoder struct {
	r    io.Reader
	zdec *zstd.Decoder
}

// NewDecoder returns a Decoder reading records from r.
func NewDecoder(r io.Reader) *Decoder {
	zdec, _ := zstd.NewReader(nil)
	return &Decoder{r: r, zdec: zdec}
}

// readRecord reads one framed record and verifies its checksum. I/O errors
// pass through untouched so the caller can classify connection termination;
// framing violations surface as ErrMalformed.
func (d *Decoder) readRecord() (byte, []byte, error) {
	var header [5]byte
	if _, err := io.ReadFull(d.r, header[:]); err != nil {
		return 0, nil, err
	}
	length := binary.BigEndian.Uint32(header[1:])
	if length > maxPayload {
		return 0, nil, fmt.Errorf("%w: payload length %d", ErrMalformed, length)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(d.r, payload); err != nil {
		return 0, nil, err
	}
	var sum [8]byte
	if _, err := io.ReadFull(d.r, sum[:]); err != nil {
		return 0, nil, err
	}
	if binary.BigEndian.Uint64(sum[:]) != xxhash.Sum64(payload) {
		return 0, nil, fmt.Errorf("%w: checksum mismatch", ErrMalformed)
	}
	return header[0], payload, nil
}

// ReadServerEvent reads and decodes a single server event record.
func (d *Decoder) ReadServerEvent() (ServerEvent, error) {
	tag, payload, err := d.readRecord()
	if err != nil {
		return nil, err
	}
	p := payloadReader{buf: payload}
	switch tag {
	case tagChunkLoaded:
		coords, data, important, err := d.readChunkPayload(&p)
		if err != nil {
			return nil, err
		}
		return ChunkLoaded{Coords: coords, Data: data, Important: important}, nil
	case tagChunkUpdated:
		coords, data, important, err := d.readChunkPayload(&p)
		if err != nil {
			return nil, err
		}
		return ChunkUpdated{Coords: coords, Data: data, Important: important}, nil
	case tagChunkUnloaded:
		return ChunkUnloaded{Coords: p.chunkPos()}, p.done()
	case tagHoverChanged:
		if p.byte() == 0 {
			return HoverChanged{}, p.done()
		}
		var target HoverTarget
		for i := range target.Pos {
			target.Pos[i] = int(int64(p.uint64()))
		}
		face := p.byte()
		if face > 5 {
			return nil, fmt.Errorf("%w: face %d", ErrMalformed, face)
		}
		target.Face = cube.Face(face)
		return HoverChanged{Target: &target}, p.done()
	case tagTimeUpdated:
		return TimeUpdated{Time: math.Float64frombits(p.uint64())}, p.done()
	case tagDisconnected:
		return Disconnected{}, p.done()
	}
	return nil, fmt.Errorf("%w: server tag %#x", ErrMalformed, tag)
}

// ReadClientEvent reads and decodes a single client event record.
func (d *Decoder) ReadClientEvent() (ClientEvent, error) {
	tag, payload, err := d.readRecord()
	if err != nil {
		return nil, err
	}
	p := payloadReader{buf: payload}
	switch tag {
	case tagAreaRequested:
		ev := AreaRequested{Radius: int32(p.uint32())}
		ev.Position = p.vec()
		ev.Dir = p.vec()
		return ev, p.done()
	case tagPositionChanged:
		return PositionChanged{Position: p.vec()}, p.done()
	case tagOrientationChanged:
		return OrientationChanged{Dir: p.vec()}, p.done()
	case tagBlockPlaced:
		b := block.Block(p.byte())
		if !b.Valid() {
			return nil, fmt.Errorf("%w: block tag %d", ErrMalformed, b)
		}
		return BlockPlaced{Block: b}, p.done()
	case tagBlockDestroyed:
		return BlockDestroyed{}, p.done()
	}
	return nil, fmt.Errorf("%w: client tag %#x", ErrMalformed, tag)
}

// readChunkPayload decodes coordinates, importance flag and the compressed
// snapshot blob of a chunk record.
func (d *Decoder) readChunkPayload(p *payloadReader) (cube.ChunkPos, *mesh.ChunkData, bool, error) {
	coords := p.chunkPos()
	important := p.byte() == 1
	if p.err != nil {
		return coords, nil, false, fmt.Errorf("%w: truncated chunk record", ErrMalformed)
	}
	raw, err := d.zdec.DecodeAll(p.rest(), nil)
	if err != nil {
		return coords, nil, false, fmt.Errorf("%w: chunk blob: %v", ErrMalformed, err)
	}
	const areaLen = mesh.ChunkAreaDim * mesh.ChunkAreaDim * mesh.ChunkAreaDim
	if len(raw) != areaLen*3 {
		return coords, nil, false, fmt.Errorf("%w: chunk blob length %d", ErrMalformed, len(raw))
	}
	area, ok := mesh.ChunkAreaFromData(raw[:areaLen])
	if !ok {
		return coords, nil, false, fmt.Errorf("%w: chunk block data", ErrMalformed)
	}
	light, ok := mesh.ChunkAreaLightFromData(raw[areaLen:])
	if !ok {
		return coords, nil, false, fmt.Errorf("%w: chunk light data", ErrMalformed)
	}
	return coords, &mesh.ChunkData{Coords: coords, Area: area, Light: light}, important, nil
}

// payloadReader is a cursor over one record payload. It records rather than
// returns errors so decoding reads stay linear; done reports the first
// error, or a framing error if payload bytes remain.
type payloadReader struct {
	buf []byte
	off int
	err error
}

func (p *payloadReader) take(n int) []byte {
	if p.err != nil || p.off+n > len(p.buf) {
		if p.err == nil {
			p.err = fmt.Errorf("%w: truncated payload", ErrMalformed)
		}
		return make([]byte, n)
	}
	b := p.buf[p.off : p.off+n]
	p.off += n
	return b
}

func (p *payloadReader) byte() byte     { return p.take(1)[0] }
func (p *payloadReader) uint32() uint32 { return binary.BigEndian.Uint32(p.take(4)) }
func (p *payloadReader) uint64() uint64 { return binary.BigEndian.Uint64(p.take(8)) }

func (p *payloadReader) vec() [3]float64 {
	var v [3]float64
	for i := range v {
		v[i] = math.Float64frombits(p.uint64())
	}
	return v
}

func (p *payloadReader) chunkPos() cube.ChunkPos {
	var pos cube.ChunkPos
	for i := range pos {
		pos[i] = int32(p.uint32())
	}
	return pos
}

func (p *payloadReader) rest() []byte {
	b := p.buf[p.off:]
	p.off = len(p.buf)
	return b
}

func (p *payloadReader) done() error {
	if p.err != nil {
		return p.err
	}
	if p.off != len(p.buf) {
		return fmt.Errorf("%w: %d trailing payload bytes", ErrMalformed, len(p.buf)-p.off)
	}
	return nil
}
