//go:build unix

package transport

import (
	"net"
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// FIFOs are the Unix analog of the Windows named pipes the agent uses. A
// channel at path is a pair of FIFOs: the client writes path.in and reads
// path.out.

func init() {
	Dialers["fifo"] = DialFIFO
	Listeners["fifo"] = func(path string) (Listener, error) {
		l, err := ListenFIFO(path)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
}

func fifoPaths(path string) (in, out string) {
	return path + ".in", path + ".out"
}

// DialFIFO opens the client end of the FIFO pair at path. It blocks until
// the listener opens its end.
func DialFIFO(path string) (Channel, error) {
	in, out := fifoPaths(path)
	w, err := os.OpenFile(in, os.O_WRONLY, 0)
	if err != nil {
		return nil, errors.Wrap(err, "transport: open fifo")
	}
	r, err := os.OpenFile(out, os.O_RDONLY, 0)
	if err != nil {
		w.Close()
		return nil, errors.Wrap(err, "transport: open fifo")
	}
	return &ioduplex{w, r}, nil
}

// FIFOListener serves one client at a time over a FIFO pair.
type FIFOListener struct {
	path string

	mu     sync.Mutex
	closed bool
}

// ListenFIFO creates the FIFO pair at path.
func ListenFIFO(path string) (*FIFOListener, error) {
	in, out := fifoPaths(path)
	for _, p := range []string{in, out} {
		if err := unix.Mkfifo(p, 0o600); err != nil {
			return nil, errors.Wrapf(err, "transport: mkfifo %s", p)
		}
	}
	return &FIFOListener{path: path}, nil
}

// Accept blocks until a client opens the FIFO pair.
func (l *FIFOListener) Accept() (Channel, error) {
	in, out := fifoPaths(l.path)
	r, err := os.OpenFile(in, os.O_RDONLY, 0)
	if err != nil {
		return nil, errors.Wrap(err, "transport: open fifo")
	}
	if l.isClosed() {
		r.Close()
		return nil, net.ErrClosed
	}
	w, err := os.OpenFile(out, os.O_WRONLY, 0)
	if err != nil {
		r.Close()
		return nil, errors.Wrap(err, "transport: open fifo")
	}
	return &ioduplex{w, r}, nil
}

func (l *FIFOListener) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// Close removes the FIFO pair and unblocks a pending Accept.
func (l *FIFOListener) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	in, out := fifoPaths(l.path)
	// a pending Accept is blocked opening the read end of in
	if f, err := os.OpenFile(in, os.O_WRONLY|unix.O_NONBLOCK, 0); err == nil {
		f.Close()
	}
	err := os.Remove(in)
	if rerr := os.Remove(out); err == nil {
		err = rerr
	}
	return err
}

// Addr returns nil; FIFOs have no network address.
func (l *FIFOListener) Addr() net.Addr {
	return nil
}
