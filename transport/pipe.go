package transport

import "net"

// Pipe returns two connected in-memory channels. Writes on one end block
// until read from the other.
func Pipe() (Channel, Channel) {
	a, b := net.Pipe()
	return a, b
}
