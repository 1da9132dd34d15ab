package transport

import (
	"github.com/pkg/errors"
	ma "github.com/multiformats/go-multiaddr"
	manet "github.com/multiformats/go-multiaddr-net"
)

// DialMultiaddr connects to a multiaddr such as /ip4/127.0.0.1/tcp/9000 or
// /unix/tmp/agent.sock.
func DialMultiaddr(addr string) (Channel, error) {
	maddr, err := ma.NewMultiaddr(addr)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: parse multiaddr %q", addr)
	}
	conn, err := manet.Dial(maddr)
	if err != nil {
		return nil, errors.Wrap(err, "transport: dial multiaddr")
	}
	return conn, nil
}

// MultiaddrListener accepts channels on a multiaddr.
type MultiaddrListener struct {
	manet.Listener
}

// Accept waits for and returns the next connected channel.
func (l *MultiaddrListener) Accept() (Channel, error) {
	return l.Listener.Accept()
}

// ListenMultiaddr listens on a multiaddr.
func ListenMultiaddr(addr string) (*MultiaddrListener, error) {
	maddr, err := ma.NewMultiaddr(addr)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: parse multiaddr %q", addr)
	}
	l, err := manet.Listen(maddr)
	if err != nil {
		return nil, errors.Wrap(err, "transport: listen multiaddr")
	}
	return &MultiaddrListener{Listener: l}, nil
}
