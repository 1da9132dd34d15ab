package transport

import (
	"io"
	"net"
	"sync"

	"github.com/pkg/errors"
)

// NetListener wraps a net.Listener to return connected channels.
// Channels can also be handed to it by other servers, as ListenWS does.
type NetListener struct {
	net.Listener
	accepted chan Channel
	closer   chan struct{}
	errs     chan error
	once     sync.Once
}

func newNetListener(l net.Listener) *NetListener {
	return &NetListener{
		Listener: l,
		accepted: make(chan Channel),
		closer:   make(chan struct{}),
		errs:     make(chan error, 2),
	}
}

// Accept waits for and returns the next connected channel to the listener.
func (l *NetListener) Accept() (Channel, error) {
	select {
	case <-l.closer:
		return nil, io.EOF
	case err := <-l.errs:
		return nil, err
	case ch := <-l.accepted:
		return ch, nil
	}
}

// Close closes the listener.
// Any blocked Accept operations will be unblocked and return errors.
func (l *NetListener) Close() error {
	l.once.Do(func() {
		close(l.closer)
	})
	return l.Listener.Close()
}

// offer hands ch to a pending Accept. It reports false when the listener
// closed first.
func (l *NetListener) offer(ch Channel) bool {
	select {
	case l.accepted <- ch:
		return true
	case <-l.closer:
		return false
	}
}

func (l *NetListener) acceptLoop() {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			select {
			case l.errs <- err:
			default:
			}
			return
		}
		if !l.offer(conn) {
			conn.Close()
			return
		}
	}
}

func listenNet(proto, addr string) (*NetListener, error) {
	l, err := net.Listen(proto, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: listen %s", proto)
	}
	nl := newNetListener(l)
	go nl.acceptLoop()
	return nl, nil
}

// ListenTCP creates a TCP listener at the given address.
func ListenTCP(addr string) (*NetListener, error) {
	return listenNet("tcp", addr)
}

// ListenUnix creates a Unix domain socket listener at the given path.
func ListenUnix(path string) (*NetListener, error) {
	return listenNet("unix", path)
}
