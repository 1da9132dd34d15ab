package frame

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// State is the step a Reader is in while assembling a message.
type State int

const (
	// AwaitMinHeader waits for the first MinHeaderSize header bytes.
	AwaitMinHeader State = iota
	// AwaitFullHeader waits for the rest of the header.
	AwaitFullHeader
	// AwaitPayload waits for the frame payload.
	AwaitPayload
	// FrameComplete is entered once a frame payload is fully read.
	FrameComplete
)

func (s State) String() string {
	switch s {
	case AwaitMinHeader:
		return "AwaitMinHeader"
	case AwaitFullHeader:
		return "AwaitFullHeader"
	case AwaitPayload:
		return "AwaitPayload"
	case FrameComplete:
		return "FrameComplete"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

const (
	// DefaultMaxMessageSize is the default limit on an assembled message.
	DefaultMaxMessageSize = 16 << 20

	maxConsecutiveEmptyReads = 100
)

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// WithMaxMessageSize limits the size of an assembled logical message.
// Zero disables the limit.
func WithMaxMessageSize(n int) ReaderOption {
	return func(r *Reader) {
		r.maxMessageSize = n
	}
}

// Reader assembles logical messages from frames read off a blocking
// channel. A Reader is not safe for concurrent use.
type Reader struct {
	r              io.Reader
	maxMessageSize int

	state  State
	hdr    [DefaultHeaderSize]byte
	hdrLen int
	cur    Header
	msg    []byte
	got    int // payload bytes of the current frame read so far
	frames int
}

// NewReader returns a Reader consuming frames from r.
func NewReader(r io.Reader, opts ...ReaderOption) *Reader {
	fr := &Reader{
		r:              r,
		maxMessageSize: DefaultMaxMessageSize,
	}
	for _, opt := range opts {
		opt(fr)
	}
	return fr
}

// State returns the step the reader is currently in.
func (r *Reader) State() State {
	return r.state
}

// Frames returns the number of frames consumed for the message being
// assembled, or for the last message returned.
func (r *Reader) Frames() int {
	return r.frames
}

// ReadMessage blocks until one complete logical message has been read and
// returns it. A channel closed cleanly between messages yields io.EOF. Any
// other failure discards the partial message.
func (r *Reader) ReadMessage() ([]byte, error) {
	r.reset()
	r.msg = []byte{}
	for {
		switch r.state {
		case AwaitMinHeader:
			if err := r.fill(r.hdr[:MinHeaderSize], &r.hdrLen); err != nil {
				return nil, r.fail(err)
			}
			if err := checkPrefix(r.hdr[:MinHeaderSize]); err != nil {
				return nil, r.fail(err)
			}
			r.state = AwaitFullHeader

		case AwaitFullHeader:
			if err := r.fill(r.hdr[:DefaultHeaderSize], &r.hdrLen); err != nil {
				return nil, r.fail(err)
			}
			h, err := DecodeHeader(r.hdr[:])
			if err != nil {
				return nil, r.fail(err)
			}
			if Debug != nil {
				fmt.Fprintln(Debug, ">>DEC", h)
			}
			if r.maxMessageSize > 0 && len(r.msg)+h.PayloadLength > r.maxMessageSize {
				return nil, r.fail(errors.Wrapf(ErrMessageTooLarge, "%d bytes exceeds limit %d",
					len(r.msg)+h.PayloadLength, r.maxMessageSize))
			}
			r.cur = h
			r.got = 0
			r.msg = grow(r.msg, h.PayloadLength)
			r.state = AwaitPayload

		case AwaitPayload:
			start := len(r.msg) - r.cur.PayloadLength
			if err := r.fill(r.msg[start:], &r.got); err != nil {
				return nil, r.fail(err)
			}
			r.frames++
			r.state = FrameComplete

		case FrameComplete:
			if r.cur.HasMore {
				r.hdrLen = 0
				r.cur = Header{}
				r.state = AwaitMinHeader
				continue
			}
			msg := r.msg
			r.msg = nil
			r.state = AwaitMinHeader
			return msg, nil
		}
	}
}

// fill reads into buf until *n == len(buf). Each Read asks only for the
// bytes still missing so nothing past the current step is consumed.
func (r *Reader) fill(buf []byte, n *int) error {
	empty := 0
	for *n < len(buf) {
		m, err := r.r.Read(buf[*n:])
		*n += m
		if *n == len(buf) {
			return nil
		}
		if err != nil {
			if err == io.EOF {
				if r.atMessageStart() {
					return io.EOF
				}
				return errors.Wrapf(unexpectedClose{}, "frame: read in %s after %d of %d bytes",
					r.state, *n, len(buf))
			}
			return errors.Wrapf(err, "frame: read in %s", r.state)
		}
		if m > 0 {
			empty = 0
			continue
		}
		empty++
		if empty >= maxConsecutiveEmptyReads {
			return io.ErrNoProgress
		}
	}
	return nil
}

// atMessageStart reports whether no byte of the current message has been
// consumed yet.
func (r *Reader) atMessageStart() bool {
	return r.state == AwaitMinHeader && r.hdrLen == 0 && r.frames == 0
}

func (r *Reader) fail(err error) error {
	r.reset()
	return err
}

func (r *Reader) reset() {
	r.state = AwaitMinHeader
	r.hdrLen = 0
	r.cur = Header{}
	r.msg = nil
	r.got = 0
	r.frames = 0
}

// grow extends msg by n bytes, reusing spare capacity when there is enough.
func grow(msg []byte, n int) []byte {
	if n <= cap(msg)-len(msg) {
		return msg[:len(msg)+n]
	}
	next := make([]byte, len(msg)+n, 2*len(msg)+n)
	copy(next, msg)
	return next
}
