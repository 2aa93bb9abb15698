package session

import (
	"errors"
	"io"
	"net"
	"syscall"
)

// closedConn reports whether an error marks the ordinary end of a
// connection: the peer hung up or the connection was torn down locally.
// Such errors end a session without being logged as failures.
func closedConn(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}
