package transport

import (
	"io"
	"net"
	"os"
	"sync"
)

// ioListener hands out a single channel built from separate read and write
// streams, then reports io.EOF once that channel is taken.
type ioListener struct {
	mu     sync.Mutex
	ch     Channel
	closed chan struct{}
	once   sync.Once
}

// Accept returns the wrapped channel on the first call. Later calls block
// until the listener is closed.
func (l *ioListener) Accept() (Channel, error) {
	l.mu.Lock()
	ch := l.ch
	l.ch = nil
	l.mu.Unlock()
	if ch != nil {
		return ch, nil
	}
	<-l.closed
	return nil, io.EOF
}

func (l *ioListener) Close() error {
	l.once.Do(func() {
		close(l.closed)
	})
	return nil
}

func (l *ioListener) Addr() net.Addr {
	return nil
}

// ListenIO returns a Listener yielding one channel over out and in.
func ListenIO(out io.WriteCloser, in io.ReadCloser) (Listener, error) {
	return &ioListener{
		ch:     &ioduplex{out, in},
		closed: make(chan struct{}),
	}, nil
}

// ListenStdio is a convenience for calling ListenIO with Stdout and Stdin.
func ListenStdio() (Listener, error) {
	return ListenIO(os.Stdout, os.Stdin)
}
