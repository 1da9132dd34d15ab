package transport

import (
	"net"

	"github.com/pkg/errors"
)

func dialNet(proto, addr string) (Channel, error) {
	conn, err := net.Dial(proto, addr)
	if err != nil {
		return nil, errors.Wrapf(err, "transport: dial %s", proto)
	}
	return conn, nil
}

// DialTCP connects to a TCP address.
func DialTCP(addr string) (Channel, error) {
	return dialNet("tcp", addr)
}

// DialUnix connects to a Unix domain socket at path.
func DialUnix(path string) (Channel, error) {
	return dialNet("unix", path)
}
