package transport

import (
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/net/websocket"
)

// wsChannel tracks when a server side WebSocket channel is closed so its
// handler can return.
type wsChannel struct {
	*websocket.Conn
	done chan struct{}
	once sync.Once
}

func (c *wsChannel) Close() error {
	c.once.Do(func() {
		close(c.done)
	})
	return c.Conn.Close()
}

// DialWS establishes a channel via WebSocket connection.
// The address must be a host and port. Opening a WebSocket
// connection at a particular path is not supported.
func DialWS(addr string) (Channel, error) {
	ws, err := websocket.Dial(fmt.Sprintf("ws://%s/", addr), "", fmt.Sprintf("http://%s/", addr))
	if err != nil {
		return nil, errors.Wrap(err, "transport: dial ws")
	}
	ws.PayloadType = websocket.BinaryFrame
	return ws, nil
}

// HandleWS takes a WebSocket connection, wraps it as a channel and sends it
// to a NetListener to be accepted. It returns once the channel is closed.
func HandleWS(l *NetListener, ws *websocket.Conn) {
	ws.PayloadType = websocket.BinaryFrame
	ch := &wsChannel{Conn: ws, done: make(chan struct{})}
	if !l.offer(ch) {
		return
	}
	select {
	case <-ch.done:
	case <-l.closer:
	}
}

// ListenWS takes a TCP address and returns a NetListener with an
// HTTP+WebSocket server listening on the given address.
func ListenWS(addr string) (*NetListener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "transport: listen ws")
	}
	nl := newNetListener(l)
	s := &http.Server{
		Addr: addr,
		Handler: websocket.Handler(func(ws *websocket.Conn) {
			HandleWS(nl, ws)
		}),
	}
	go func() {
		err := s.Serve(l)
		select {
		case nl.errs <- err:
		default:
		}
	}()
	return nl, nil
}
