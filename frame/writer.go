package frame

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
)

// DefaultMaxFramePayload is the default largest payload carried by one frame.
const DefaultMaxFramePayload = 64 << 10

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithMaxFramePayload sets the largest payload put in a single frame.
// Longer messages are split into several frames.
func WithMaxFramePayload(n int) WriterOption {
	return func(w *Writer) {
		w.maxFramePayload = n
	}
}

// Writer splits logical messages into frames and writes them to a blocking
// channel. A Writer is not safe for concurrent use.
type Writer struct {
	w               io.Writer
	maxFramePayload int
	hdr             []byte
}

// NewWriter returns a Writer producing frames on w.
func NewWriter(w io.Writer, opts ...WriterOption) *Writer {
	fw := &Writer{
		w:               w,
		maxFramePayload: DefaultMaxFramePayload,
		hdr:             make([]byte, 0, DefaultHeaderSize),
	}
	for _, opt := range opts {
		opt(fw)
	}
	if fw.maxFramePayload <= 0 || fw.maxFramePayload > MaxPayloadLength {
		fw.maxFramePayload = DefaultMaxFramePayload
	}
	return fw
}

// WriteMessage writes p as one logical message. An empty p still produces a
// single zero-length frame. A write error leaves the channel in an unknown
// state and is returned without retrying.
func (w *Writer) WriteMessage(p []byte) error {
	for {
		chunk := p
		if len(chunk) > w.maxFramePayload {
			chunk = chunk[:w.maxFramePayload]
		}
		p = p[len(chunk):]

		h := Header{PayloadLength: len(chunk), HasMore: len(p) > 0}
		hdr, err := h.AppendTo(w.hdr[:0])
		if err != nil {
			return err
		}
		if Debug != nil {
			fmt.Fprintln(Debug, "<<ENC", h)
		}
		if err := writeFull(w.w, hdr); err != nil {
			return errors.Wrap(err, "frame: write header")
		}
		if err := writeFull(w.w, chunk); err != nil {
			return errors.Wrap(err, "frame: write payload")
		}
		if !h.HasMore {
			return nil
		}
	}
}

// writeFull loops over short writes until b is written.
func writeFull(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		b = b[n:]
	}
	return nil
}
