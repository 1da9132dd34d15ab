// Package codec encodes values as framed logical messages.
package codec

import (
	"io"
)

type Encoder interface {
	// Encode writes an encoding of v to its Writer.
	Encode(v interface{}) error
}

type Decoder interface {
	// Decode reads the next encoded value from its Reader and stores it in the value pointed to by v.
	Decode(v interface{}) error
}

// Codec returns an Encoder or Decoder given a Writer or Reader.
type Codec interface {
	Encoder(w io.Writer) Encoder
	Decoder(r io.Reader) Decoder
}

// ByName returns the codec registered under name: "json" or "cbor".
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSONCodec{}, true
	case "cbor", "":
		return CBORCodec{}, true
	default:
		return nil, false
	}
}
