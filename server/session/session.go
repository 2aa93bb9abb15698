// Package session connects one remote viewer to a world over a pair of
// streams. The bulk stream carries the high-volume chunk diff traffic, the
// priority stream carries client intents and the disconnect notice, so a
// disconnect is never queued behind megabytes of chunk payloads.
package session

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quarry-mc/quarry/server/protocol"
	"github.com/quarry-mc/quarry/server/world"
)

// disconnectTimeout bounds the time Close spends delivering the disconnect
// notice to the client.
const disconnectTimeout = time.Second

// Config may be used to create a new Session.
type Config struct {
	// Log is the Logger used for session-scoped messages. If nil,
	// slog.Default() is set.
	Log *slog.Logger
	// World configures the world served to the session's viewer. Its Output
	// and Done fields are owned by the session and overwritten.
	World world.Config
}

// Session owns one viewer's world and the two connections it is streamed
// over. A session lives until either connection fails or Close is called;
// the world is torn down with it.
type Session struct {
	conf Config
	id   uuid.UUID

	priority, bulk net.Conn
	world          *world.World

	// events is the world's output channel. Disconnect notices are injected
	// into it so they drain in order with the diffs queued before them.
	events chan protocol.ServerEvent
	closed chan struct{}
	once   sync.Once

	// priorityMu serialises writes to the priority stream between the writer
	// goroutine and Close.
	priorityMu sync.Mutex
	priorityW  *bufio.Writer
	priorityE  *protocol.Encoder
}

// New creates a Session streaming a fresh world over the connection pair
// passed. The priority connection carries client events towards the world
// and the disconnect notice towards the client; everything else travels over
// the bulk connection.
func (conf Config) New(priority, bulk net.Conn) *Session {
	if conf.Log == nil {
		conf.Log = slog.Default()
	}
	s := &Session{
		conf:     conf,
		id:       uuid.New(),
		priority: priority,
		bulk:     bulk,
		events:   make(chan protocol.ServerEvent, 256),
		closed:   make(chan struct{}),
	}
	s.conf.Log = conf.Log.With("session", s.id.String())
	s.priorityW = bufio.NewWriter(priority)
	s.priorityE = protocol.NewEncoder(s.priorityW)

	// Both streams carry small, latency-sensitive records; leaving Nagle's
	// algorithm on would batch them behind up to a round trip of delay.
	noDelay(priority)
	noDelay(bulk)

	conf.World.Log = s.conf.Log
	conf.World.Output = s.events
	conf.World.Done = s.closed
	s.world = conf.World.New()

	go s.readLoop()
	go s.writeLoop()
	return s
}

// ID returns the unique identifier of the session.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// World returns the world served to the session's viewer.
func (s *Session) World() *world.World {
	return s.world
}

// Close tells the client the session is over and tears down the world and
// both connections. It is safe to call from any goroutine and more than
// once.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.writeDisconnect()
		close(s.closed)
		_ = s.world.Close()
		_ = s.priority.Close()
		_ = s.bulk.Close()
		s.conf.Log.Debug("session closed")
	})
	return nil
}

// readLoop decodes client events from the priority stream and feeds them to
// the world. Malformed records are logged and skipped; a broken connection
// queues a disconnect notice behind the events already buffered and ends the
// session.
func (s *Session) readLoop() {
	dec := protocol.NewDecoder(bufio.NewReader(s.priority))
	for {
		ev, err := dec.ReadClientEvent()
		if err != nil {
			if isMalformed(err) {
				s.conf.Log.Warn("read client event: " + err.Error())
				continue
			}
			if !closedConn(err) {
				s.conf.Log.Error("read client event: " + err.Error())
			}
			s.queueDisconnect()
			return
		}
		s.world.Handle(ev)
	}
}

// writeLoop encodes world events onto the bulk stream. A queued disconnect
// notice ends the loop and closes the session; so does a write failure,
// which means the client is gone.
func (s *Session) writeLoop() {
	defer s.Close()

	bw := bufio.NewWriter(s.bulk)
	enc := protocol.NewEncoder(bw)
	for {
		select {
		case ev := <-s.events:
			if _, ok := ev.(protocol.Disconnected); ok {
				_ = bw.Flush()
				return
			}
			if err := enc.WriteServerEvent(ev); err != nil {
				if !closedConn(err) {
					s.conf.Log.Error("write server event: " + err.Error())
				}
				return
			}
			// Flush per event only when the queue ran dry, so bursts of chunk
			// payloads coalesce into full packets.
			if len(s.events) == 0 {
				if err := bw.Flush(); err != nil {
					if !closedConn(err) {
						s.conf.Log.Error("flush bulk stream: " + err.Error())
					}
					return
				}
			}
		case <-s.closed:
			return
		}
	}
}

// queueDisconnect injects a disconnect notice into the event queue so it is
// handled after every event queued before it.
func (s *Session) queueDisconnect() {
	select {
	case s.events <- protocol.Disconnected{}:
	case <-s.closed:
	}
}

// writeDisconnect sends the disconnect notice over the priority stream,
// where it overtakes any bulk traffic still in flight. The write is best
// effort under a short deadline: a peer that stopped reading must not be
// able to hold Close hostage, and errors are ignored since the connection
// may well be the reason the session is closing.
func (s *Session) writeDisconnect() {
	s.priorityMu.Lock()
	defer s.priorityMu.Unlock()
	_ = s.priority.SetWriteDeadline(time.Now().Add(disconnectTimeout))
	_ = s.priorityE.WriteServerEvent(protocol.Disconnected{})
	_ = s.priorityW.Flush()
}

func noDelay(conn net.Conn) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
}

func isMalformed(err error) bool {
	return errors.Is(err, protocol.ErrMalformed)
}
