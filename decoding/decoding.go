// Package decoding decodes length-prefixed strings and parameter blocks from
// buffers that may hold only a prefix of the encoding.
//
// Decoding is all-or-nothing per attempt: an incomplete value is reported as
// a state, never as an error, and the input is left untouched so the caller
// can retry once more bytes have arrived.
package decoding

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"

	pkgerrors "github.com/pkg/errors"
)

// LengthSize is the size of every length and count field.
const LengthSize = 4

var (
	// ErrNegativeLength is returned when a length or count field decodes to
	// a negative value.
	ErrNegativeLength = errors.New("decoding: negative length")
	// ErrInvalidUTF8 is returned when string bytes are not valid UTF-8.
	ErrInvalidUTF8 = errors.New("decoding: invalid utf-8")
)

// State is where a decode attempt stopped.
type State int

const (
	// IncompleteLengthVal means the string length field is not complete.
	IncompleteLengthVal State = iota
	// IncompleteStrVal means the length was read but the string bytes are short.
	IncompleteStrVal
	// ValueRead means a whole string was decoded.
	ValueRead
	// IncompleteParamsLength means the parameter count is not complete.
	IncompleteParamsLength
	// IncompleteParamKVLength means a pair's key or value length is missing.
	IncompleteParamKVLength
	// IncompleteParamKVData means a pair's key or value bytes are short.
	IncompleteParamKVData
	// AllParametersRead means the whole parameter block was decoded.
	AllParametersRead
)

func (s State) String() string {
	switch s {
	case IncompleteLengthVal:
		return "INCOMPLETE_LENGTH_VAL"
	case IncompleteStrVal:
		return "INCOMPLETE_STR_VAL"
	case ValueRead:
		return "VALUE_READ"
	case IncompleteParamsLength:
		return "INCOMPLETE_PARAMS_LENGTH"
	case IncompleteParamKVLength:
		return "INCOMPLETE_PARAM_KV_LENGTH"
	case IncompleteParamKVData:
		return "INCOMPLETE_PARAM_KV_DATA"
	case AllParametersRead:
		return "ALL_PARAMETERS_READ"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Complete reports whether s is a terminal success state.
func (s State) Complete() bool {
	return s == ValueRead || s == AllParametersRead
}

// Context is the outcome of decoding a string.
type Context struct {
	State State
	// BytesRead is the number of bytes consumed, or that would have been
	// consumed, by this attempt.
	BytesRead int
	Value     string
}

// DecodeString decodes a [4-byte length][UTF-8 bytes] value from the start
// of b. b is never modified.
func DecodeString(b []byte) (Context, error) {
	n, ok, err := readLength(b)
	if err != nil {
		return Context{}, err
	}
	if !ok {
		return Context{State: IncompleteLengthVal}, nil
	}
	if len(b)-LengthSize < n {
		return Context{State: IncompleteStrVal, BytesRead: LengthSize}, nil
	}
	data := b[LengthSize : LengthSize+n]
	if !utf8.Valid(data) {
		return Context{}, ErrInvalidUTF8
	}
	return Context{
		State:     ValueRead,
		BytesRead: LengthSize + n,
		Value:     string(data),
	}, nil
}

// ParamsContext is the outcome of decoding a parameter block.
type ParamsContext struct {
	State State
	// BytesRead is the number of bytes consumed, or that would have been
	// consumed, by this attempt.
	BytesRead int
	// Params holds the decoded parameters once State is AllParametersRead.
	Params map[string]string
}

// DecodeParameters decodes a parameter block from the start of b:
//
//	[4-byte count] * { [4-byte key length][4-byte value length][key][value] }
//
// A key appearing more than once keeps its last value. b is never modified.
func DecodeParameters(b []byte) (ParamsContext, error) {
	count, ok, err := readLength(b)
	if err != nil {
		return ParamsContext{}, pkgerrors.Wrap(err, "parameter count")
	}
	if !ok {
		return ParamsContext{State: IncompleteParamsLength}, nil
	}
	off := LengthSize
	params := make(map[string]string, min(count, 64))
	for i := 0; i < count; i++ {
		klen, kok, err := readLength(b[off:])
		if err != nil {
			return ParamsContext{}, pkgerrors.Wrapf(err, "parameter %d key", i)
		}
		vlen, vok, err := readLength(b[min(off+LengthSize, len(b)):])
		if err != nil {
			return ParamsContext{}, pkgerrors.Wrapf(err, "parameter %d value", i)
		}
		if !kok || !vok {
			return ParamsContext{State: IncompleteParamKVLength, BytesRead: off}, nil
		}
		data := off + 2*LengthSize
		if len(b)-data < klen+vlen {
			return ParamsContext{State: IncompleteParamKVData, BytesRead: data}, nil
		}
		key := b[data : data+klen]
		val := b[data+klen : data+klen+vlen]
		if !utf8.Valid(key) || !utf8.Valid(val) {
			return ParamsContext{}, pkgerrors.Wrapf(ErrInvalidUTF8, "parameter %d", i)
		}
		params[string(key)] = string(val)
		off = data + klen + vlen
	}
	return ParamsContext{
		State:     AllParametersRead,
		BytesRead: off,
		Params:    params,
	}, nil
}

// readLength reads a big endian length field. ok is false when b is too
// short to hold one.
func readLength(b []byte) (n int, ok bool, err error) {
	if len(b) < LengthSize {
		return 0, false, nil
	}
	v := int32(binary.BigEndian.Uint32(b))
	if v < 0 {
		return 0, false, pkgerrors.Wrapf(ErrNegativeLength, "%d", v)
	}
	return int(v), true, nil
}
