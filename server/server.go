// Package server binds the network listeners of a quarry server and pairs
// incoming connections into sessions, each serving an isolated world.
package server

import (
	"fmt"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/quarry-mc/quarry/server/session"
	"github.com/quarry-mc/quarry/server/world"
)

// Server accepts viewer connections on two TCP listeners and runs one
// session, with its own world, per connected viewer.
type Server struct {
	conf Config

	priority, bulk net.Listener

	mu       sync.Mutex
	sessions map[uuid.UUID]*session.Session

	once sync.Once
}

// Listen binds the priority and bulk listeners. It must be called once
// before Accept.
func (srv *Server) Listen() error {
	var err error
	srv.priority, err = net.Listen("tcp", srv.conf.PriorityAddress)
	if err != nil {
		return fmt.Errorf("listen priority: %w", err)
	}
	srv.bulk, err = net.Listen("tcp", srv.conf.BulkAddress)
	if err != nil {
		_ = srv.priority.Close()
		return fmt.Errorf("listen bulk: %w", err)
	}
	srv.sessions = make(map[uuid.UUID]*session.Session)
	srv.conf.Log.Info("Server listening.", "priority", srv.priority.Addr().String(), "bulk", srv.bulk.Addr().String())
	return nil
}

// Accept blocks until the next viewer connected to both listeners and
// returns its session. Connections are paired by accept order: a client must
// open its priority connection first and its bulk connection right after,
// and must not start its bulk connection before the priority one is
// established. Clients racing this handshake can end up cross-paired into
// each other's sessions; a cross-paired client observes a world that does
// not answer its events and should reconnect. Accept returns false once the
// server is closed.
func (srv *Server) Accept() (*session.Session, bool) {
	pc, err := srv.priority.Accept()
	if err != nil {
		return nil, false
	}
	bc, err := srv.bulk.Accept()
	if err != nil {
		_ = pc.Close()
		return nil, false
	}

	s := session.Config{
		Log: srv.conf.Log,
		World: world.Config{
			Generator:    srv.conf.Generator,
			Range:        srv.conf.Range,
			Workers:      srv.conf.Workers,
			Reach:        srv.conf.Reach,
			TickInterval: srv.conf.TickInterval,
		},
	}.New(pc, bc)

	srv.mu.Lock()
	srv.sessions[s.ID()] = s
	srv.mu.Unlock()
	srv.conf.Log.Info("Session started.", "session", s.ID().String(), "remote", pc.RemoteAddr().String())
	return s, true
}

// Sessions returns the number of sessions currently registered.
func (srv *Server) Sessions() int {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	return len(srv.sessions)
}

// Close stops the listeners and closes every running session.
func (srv *Server) Close() error {
	srv.once.Do(func() {
		if srv.priority != nil {
			_ = srv.priority.Close()
		}
		if srv.bulk != nil {
			_ = srv.bulk.Close()
		}
		srv.mu.Lock()
		sessions := make([]*session.Session, 0, len(srv.sessions))
		for _, s := range srv.sessions {
			sessions = append(sessions, s)
		}
		srv.sessions = nil
		srv.mu.Unlock()
		for _, s := range sessions {
			_ = s.Close()
		}
	})
	return nil
}
