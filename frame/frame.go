// Package frame implements the length-prefixed framing of logical messages
// over a blocking byte-stream channel.
//
// A logical message is carried by one or more frames. Each frame is a fixed
// header followed by payloadLength bytes of opaque payload. The header's
// hasMore flag marks that another frame follows to complete the message.
package frame

import (
	"errors"
	"io"
)

var (
	// Debug can be set to get frame headers as they're encoded and decoded
	Debug io.Writer
)

var (
	// ErrMalformedHeader is returned when a header fails validation. The
	// stream cannot be resynchronised after this.
	ErrMalformedHeader = errors.New("frame: malformed header")
	// ErrShortHeader is returned by DecodeHeader when fewer than
	// DefaultHeaderSize bytes are supplied.
	ErrShortHeader = errors.New("frame: short header")
	// ErrPayloadTooLarge is returned when a payload length cannot be
	// represented in a header.
	ErrPayloadTooLarge = errors.New("frame: payload length out of range")
	// ErrMessageTooLarge is returned when a logical message would exceed the
	// reader's configured maximum size.
	ErrMessageTooLarge = errors.New("frame: message too large")
	// ErrChannelClosed is returned when the channel reaches end of stream in
	// the middle of a message.
	ErrChannelClosed = errors.New("frame: channel closed")
)

// unexpectedClose is ErrChannelClosed caused by io.ErrUnexpectedEOF. It
// matches both with errors.Is.
type unexpectedClose struct{}

func (unexpectedClose) Error() string {
	return "frame: channel closed: unexpected EOF"
}

func (unexpectedClose) Is(target error) bool {
	return target == ErrChannelClosed || target == io.ErrUnexpectedEOF
}
