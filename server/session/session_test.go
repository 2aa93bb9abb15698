package session

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/quarry-mc/quarry/server/block"
	"github.com/quarry-mc/quarry/server/block/cube"
	"github.com/quarry-mc/quarry/server/protocol"
	"github.com/quarry-mc/quarry/server/world"
)

var testRange = cube.Range{-1, 2}

func testSession(t *testing.T) (*Session, net.Conn, net.Conn) {
	t.Helper()
	pServer, pClient := net.Pipe()
	bServer, bClient := net.Pipe()
	deadline := time.Now().Add(10 * time.Second)
	for _, c := range []net.Conn{pClient, bClient} {
		if err := c.SetDeadline(deadline); err != nil {
			t.Fatalf("set deadline: %v", err)
		}
	}
	s := Config{
		World: world.Config{
			Generator:    world.FlatGenerator{Range: testRange, SurfaceY: 4},
			Range:        testRange,
			Workers:      2,
			TickInterval: time.Hour,
		},
	}.New(pServer, bServer)
	t.Cleanup(func() {
		_ = s.Close()
		_ = pClient.Close()
		_ = bClient.Close()
	})
	return s, pClient, bClient
}

func TestSessionStreamsWorldEvents(t *testing.T) {
	_, pClient, bClient := testSession(t)

	enc := protocol.NewEncoder(pClient)
	if err := enc.WriteClientEvent(protocol.AreaRequested{
		Radius: 0, Position: [3]float64{8.5, 10, 8.5}, Dir: [3]float64{0, -1, 0},
	}); err != nil {
		t.Fatalf("send area request: %v", err)
	}

	dec := protocol.NewDecoder(bufio.NewReader(bClient))
	ev, err := dec.ReadServerEvent()
	if err != nil {
		t.Fatalf("read time event: %v", err)
	}
	if _, ok := ev.(protocol.TimeUpdated); !ok {
		t.Fatalf("first streamed event = %T, want TimeUpdated", ev)
	}

	ev, err = dec.ReadServerEvent()
	if err != nil {
		t.Fatalf("read hover event: %v", err)
	}
	hover, ok := ev.(protocol.HoverChanged)
	if !ok {
		t.Fatalf("second streamed event = %T, want HoverChanged", ev)
	}
	if hover.Target == nil || hover.Target.Pos != (cube.Pos{8, 4, 8}) {
		t.Fatalf("hover target = %+v, want {8 4 8}", hover.Target)
	}

	ev, err = dec.ReadServerEvent()
	if err != nil {
		t.Fatalf("read load event: %v", err)
	}
	load, ok := ev.(protocol.ChunkLoaded)
	if !ok {
		t.Fatalf("third streamed event = %T, want ChunkLoaded", ev)
	}
	if load.Coords != (cube.ChunkPos{0, 0, 0}) {
		t.Fatalf("loaded chunk = %v, want the centre chunk", load.Coords)
	}
	if b := load.Data.Area.Block(cube.Pos{8, 4, 8}); b != block.Grass {
		t.Fatalf("surface block in payload = %v, want grass", b)
	}
}

func TestSessionCloseDespiteStalledPeer(t *testing.T) {
	s, _, _ := testSession(t)

	// The client keeps both connections open but never reads; the disconnect
	// notice cannot be delivered, yet Close must still return.
	done := make(chan struct{})
	go func() {
		_ = s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("Close blocked on a peer that stopped reading")
	}
}

func TestSessionCloseNotifiesOverPriorityStream(t *testing.T) {
	s, pClient, _ := testSession(t)

	go func() {
		_ = s.Close()
	}()

	dec := protocol.NewDecoder(bufio.NewReader(pClient))
	ev, err := dec.ReadServerEvent()
	if err != nil {
		t.Fatalf("read priority stream: %v", err)
	}
	if _, ok := ev.(protocol.Disconnected); !ok {
		t.Fatalf("priority stream carried %T, want Disconnected", ev)
	}
}

func TestSessionEndsWhenClientHangsUp(t *testing.T) {
	s, pClient, bClient := testSession(t)

	// Dropping the priority connection must tear the whole session down,
	// including the bulk stream.
	_ = pClient.Close()

	dec := protocol.NewDecoder(bufio.NewReader(bClient))
	for {
		if _, err := dec.ReadServerEvent(); err != nil {
			break
		}
	}
	if s.World() == nil {
		t.Fatalf("session lost its world")
	}
}
