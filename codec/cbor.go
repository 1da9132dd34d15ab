package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// decMode decodes CBOR maps into map[string]interface{} when the target is
// an empty interface, so decoded values can be re-encoded as JSON.
var decMode, _ = cbor.DecOptions{
	DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
}.DecMode()

// CBORCodec provides a codec API for a CBOR encoder and decoder.
type CBORCodec struct{}

// Encoder returns a CBOR encoder
func (c CBORCodec) Encoder(w io.Writer) Encoder {
	return cbor.NewEncoder(w)
}

// Decoder returns a CBOR decoder
func (c CBORCodec) Decoder(r io.Reader) Decoder {
	return decMode.NewDecoder(r)
}
