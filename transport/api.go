// Package transport provides the blocking byte-stream channels messages are
// framed over: unix sockets, TCP, stdio pipes, FIFOs, WebSocket and QUIC.
package transport

import (
	"net"
	"time"
)

// Channel is an ordered, reliable, blocking duplex byte stream.
type Channel interface {
	// Read reads up to len(data) bytes from the channel. It may return
	// fewer bytes than requested.
	Read(data []byte) (int, error)

	// Write writes data to the channel. It may write fewer bytes than
	// requested on some platforms.
	Write(data []byte) (int, error)

	// Close releases the channel. Blocked and subsequent Read and Write
	// calls fail.
	Close() error
}

// Deadliner is implemented by channels that support I/O deadlines.
type Deadliner interface {
	SetDeadline(t time.Time) error
}

// Listener accepts incoming channels.
type Listener interface {
	// Close closes the listener.
	// Any blocked Accept operations will be unblocked and return errors.
	Close() error

	// Accept waits for and returns the next incoming channel.
	Accept() (Channel, error)

	// Addr returns the listener's address, or nil if it has none.
	Addr() net.Addr
}
