package codec

import (
	"encoding/json"
	"io"
)

// JSONCodec encodes values as JSON. Numbers decoded into an empty
// interface are kept as json.Number, so integers survive a round trip
// through send and recv unchanged.
type JSONCodec struct{}

func (c JSONCodec) Encoder(w io.Writer) Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

func (c JSONCodec) Decoder(r io.Reader) Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	return dec
}
