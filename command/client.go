package command

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pipeframe/pipeframe/frame"
	"github.com/pipeframe/pipeframe/transport"
	"github.com/pkg/errors"
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the client logger.
func WithClientLogger(logger Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRequestTimeout bounds every call that has no earlier context
// deadline. Zero means no timeout.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithClientFrameOptions sets the options of the frame reader and writer.
func WithClientFrameOptions(ropts []frame.ReaderOption, wopts []frame.WriterOption) ClientOption {
	return func(c *Client) {
		c.ropts = ropts
		c.wopts = wopts
	}
}

// Client makes command calls over a single channel. Calls are serialized:
// one request is in flight at a time.
type Client struct {
	ch      transport.Channel
	conn    *frame.Conn
	logger  Logger
	timeout time.Duration
	ropts   []frame.ReaderOption
	wopts   []frame.WriterOption

	mu sync.Mutex

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewClient returns a client calling over ch.
func NewClient(ch transport.Channel, opts ...ClientOption) *Client {
	c := &Client{
		ch:     ch,
		logger: defaultLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.conn = frame.NewConn(ch, c.ropts, c.wopts)
	return c
}

// Dial connects to addr with transport.Dial and returns a client.
func Dial(addr string, opts ...ClientOption) (*Client, error) {
	ch, err := transport.Dial(addr)
	if err != nil {
		return nil, err
	}
	return NewClient(ch, opts...), nil
}

// Close closes the underlying channel. Later calls return ErrClientClosed.
func (c *Client) Close() error {
	c.closed.Store(true)
	c.closeOnce.Do(func() {
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// Call sends a request and waits for its response. An ERROR or NOT_FOUND
// response is returned along with a RemoteError.
//
// Cancelling ctx sets an immediate deadline on channels that support
// deadlines and closes the channel otherwise. A call that fails on the
// channel, or is ended by ctx, leaves the stream out of step with the peer,
// so the client closes itself and later calls return ErrClientClosed.
func (c *Client) Call(ctx context.Context, name string, params map[string]string) (*Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d, hasDeadline := c.ch.(transport.Deadliner)
	if hasDeadline {
		if deadline, ok := ctx.Deadline(); ok {
			d.SetDeadline(deadline)
		}
	}
	fired := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		defer close(fired)
		if hasDeadline {
			d.SetDeadline(time.Unix(1, 0))
			return
		}
		c.Close()
	})

	resp, err := c.roundTrip(name, params)

	if !stop() {
		<-fired
	}
	if err != nil {
		c.logger.Debug("closing client after failed call", "name", name, "error", err)
		c.Close()
		return nil, c.callErr(ctx, err)
	}
	if hasDeadline {
		// also clears a deadline set by a cancel that raced the response
		d.SetDeadline(time.Time{})
	}
	return resp, resp.Err()
}

// roundTrip writes one request and reads its response. Any error leaves
// the channel unusable.
func (c *Client) roundTrip(name string, params map[string]string) (*Response, error) {
	req := NewRequest(name, params)
	b, err := req.MarshalBinary()
	if err != nil {
		return nil, err
	}
	c.logger.Debug("call", "id", req.ID, "name", name)
	if err := c.conn.WriteMessage(b); err != nil {
		return nil, err
	}

	msg, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := resp.UnmarshalBinary(msg); err != nil {
		return nil, err
	}
	if resp.ID != req.ID {
		return nil, errors.Wrapf(ErrIDMismatch, "sent %s, got %s", req.ID, resp.ID)
	}
	return &resp, nil
}

// callErr reports a call failure as the context error when the context
// ended the call, keeping the underlying error in the chain.
func (c *Client) callErr(ctx context.Context, err error) error {
	ctxErr := ctx.Err()
	if ctxErr == nil {
		if _, ok := ctx.Deadline(); ok && errors.Is(err, os.ErrDeadlineExceeded) {
			// the channel deadline can fire just before the context's timer
			ctxErr = context.DeadlineExceeded
		}
	}
	if ctxErr == nil {
		return err
	}
	return fmt.Errorf("%w: %w", ctxErr, err)
}
