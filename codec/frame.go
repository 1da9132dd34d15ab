package codec

import (
	"bytes"
	"io"

	"github.com/pipeframe/pipeframe/frame"
	"github.com/pkg/errors"
)

// FrameCodec carries each value encoded by the embedded codec as one framed
// logical message, split into as many frames as the writer options require.
type FrameCodec struct {
	Codec
	ReaderOptions []frame.ReaderOption
	WriterOptions []frame.WriterOption
}

// Encoder returns a frame encoder that first encodes a value to a buffer
// using the embedded codec, then writes the buffer as one message.
func (c *FrameCodec) Encoder(w io.Writer) Encoder {
	return &frameEncoder{
		w: frame.NewWriter(w, c.WriterOptions...),
		c: c.Codec,
	}
}

type frameEncoder struct {
	w   *frame.Writer
	c   Codec
	buf bytes.Buffer
}

func (e *frameEncoder) Encode(v interface{}) error {
	e.buf.Reset()
	if err := e.c.Encoder(&e.buf).Encode(v); err != nil {
		return errors.Wrap(err, "codec: encode")
	}
	return e.w.WriteMessage(e.buf.Bytes())
}

// Decoder returns a frame decoder that reads one message and uses the
// embedded codec to decode its bytes into a value.
func (c *FrameCodec) Decoder(r io.Reader) Decoder {
	return &frameDecoder{
		r: frame.NewReader(r, c.ReaderOptions...),
		c: c.Codec,
	}
}

type frameDecoder struct {
	r *frame.Reader
	c Codec
}

func (d *frameDecoder) Decode(v interface{}) error {
	msg, err := d.r.ReadMessage()
	if err != nil {
		return err
	}
	if err := d.c.Decoder(bytes.NewReader(msg)).Decode(v); err != nil {
		return errors.Wrap(err, "codec: decode")
	}
	return nil
}
