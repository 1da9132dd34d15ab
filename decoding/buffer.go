package decoding

// Buffer accumulates bytes as they trickle in and decodes values from its
// read cursor. The cursor only moves when a value decodes completely.
type Buffer struct {
	buf []byte
	off int
}

// Write appends p to the unread bytes. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.off > 0 && b.off == len(b.buf) {
		b.buf = b.buf[:0]
		b.off = 0
	}
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// Len returns the number of unread bytes.
func (b *Buffer) Len() int {
	return len(b.buf) - b.off
}

// Bytes returns the unread bytes. The slice is only valid until the next
// Write.
func (b *Buffer) Bytes() []byte {
	return b.buf[b.off:]
}

// NextString decodes a string at the cursor. The cursor advances only when
// the returned state is ValueRead.
func (b *Buffer) NextString() (Context, error) {
	ctx, err := DecodeString(b.Bytes())
	if err == nil && ctx.State == ValueRead {
		b.off += ctx.BytesRead
	}
	return ctx, err
}

// NextParameters decodes a parameter block at the cursor. The cursor
// advances only when the returned state is AllParametersRead.
func (b *Buffer) NextParameters() (ParamsContext, error) {
	ctx, err := DecodeParameters(b.Bytes())
	if err == nil && ctx.State == AllParametersRead {
		b.off += ctx.BytesRead
	}
	return ctx, err
}
