package frame

import (
	"io"
	"sync"
)

// Conn pairs a Reader and a Writer over one channel. Reads and writes are
// each serialized, so one goroutine may read while another writes.
type Conn struct {
	rw io.ReadWriteCloser

	rmu sync.Mutex
	r   *Reader

	wmu sync.Mutex
	w   *Writer
}

// NewConn returns a Conn framing messages over rw.
func NewConn(rw io.ReadWriteCloser, ropts []ReaderOption, wopts []WriterOption) *Conn {
	return &Conn{
		rw: rw,
		r:  NewReader(rw, ropts...),
		w:  NewWriter(rw, wopts...),
	}
}

// ReadMessage reads the next logical message.
func (c *Conn) ReadMessage() ([]byte, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()
	return c.r.ReadMessage()
}

// WriteMessage writes p as one logical message.
func (c *Conn) WriteMessage(p []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.w.WriteMessage(p)
}

// Channel returns the underlying channel.
func (c *Conn) Channel() io.ReadWriteCloser {
	return c.rw
}

// Close closes the underlying channel, unblocking any pending read.
func (c *Conn) Close() error {
	return c.rw.Close()
}
