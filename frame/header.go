package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
)

const (
	// MinHeaderSize is the prefix of a header that identifies a frame start:
	// magic, version and flags.
	MinHeaderSize = 4
	// DefaultHeaderSize is the size of a complete header.
	DefaultHeaderSize = 8
	// MaxPayloadLength is the largest payload length a header can carry.
	MaxPayloadLength = 1<<31 - 1
)

const (
	magic0  byte = 'P'
	magic1  byte = 'F'
	version byte = 1

	flagMore  byte = 1 << 0
	flagsMask      = flagMore
)

// Header describes a single frame.
type Header struct {
	PayloadLength int
	HasMore       bool
}

func (h Header) String() string {
	return fmt.Sprintf("{Header PayloadLength:%d HasMore:%t}", h.PayloadLength, h.HasMore)
}

// AppendTo appends the wire encoding of h to dst.
func (h Header) AppendTo(dst []byte) ([]byte, error) {
	if h.PayloadLength < 0 || int64(h.PayloadLength) > MaxPayloadLength {
		return dst, errors.Wrapf(ErrPayloadTooLarge, "length %d", h.PayloadLength)
	}
	var flags byte
	if h.HasMore {
		flags |= flagMore
	}
	dst = append(dst, magic0, magic1, version, flags)
	return binary.BigEndian.AppendUint32(dst, uint32(h.PayloadLength)), nil
}

// EncodeHeader returns exactly DefaultHeaderSize bytes encoding h.
func EncodeHeader(h Header) ([]byte, error) {
	return h.AppendTo(make([]byte, 0, DefaultHeaderSize))
}

// DecodeHeader decodes the first DefaultHeaderSize bytes of b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < DefaultHeaderSize {
		return Header{}, errors.Wrapf(ErrShortHeader, "have %d of %d bytes", len(b), DefaultHeaderSize)
	}
	if err := checkPrefix(b); err != nil {
		return Header{}, err
	}
	length := binary.BigEndian.Uint32(b[4:8])
	if length > MaxPayloadLength {
		return Header{}, errors.Wrapf(ErrMalformedHeader, "payload length %d", length)
	}
	return Header{
		PayloadLength: int(length),
		HasMore:       b[3]&flagMore != 0,
	}, nil
}

// checkPrefix validates the first MinHeaderSize bytes of a header.
func checkPrefix(b []byte) error {
	if b[0] != magic0 || b[1] != magic1 {
		return errors.Wrapf(ErrMalformedHeader, "bad magic %#02x%02x", b[0], b[1])
	}
	if b[2] != version {
		return errors.Wrapf(ErrMalformedHeader, "unsupported version %d", b[2])
	}
	if b[3]&^flagsMask != 0 {
		return errors.Wrapf(ErrMalformedHeader, "reserved flags %#02x", b[3])
	}
	return nil
}
