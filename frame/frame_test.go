package frame

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
)

// chunkedReader hands out data one chunk per Read, split at the given
// offsets, then returns io.EOF.
type chunkedReader struct {
	data   []byte
	splits []int
	off    int
	calls  int
}

func newChunkedReader(data []byte, splits ...int) *chunkedReader {
	return &chunkedReader{data: data, splits: splits}
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	c.calls++
	if c.off >= len(c.data) {
		return 0, io.EOF
	}
	end := len(c.data)
	for _, s := range c.splits {
		if s > c.off && s < end {
			end = s
		}
	}
	if end-c.off > len(p) {
		end = c.off + len(p)
	}
	n := copy(p, c.data[c.off:end])
	c.off += n
	return n, nil
}

// byteReader returns at most one byte per Read.
type byteReader struct {
	r io.Reader
}

func (b byteReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	return b.r.Read(p[:1])
}

func rawFrame(t *testing.T, payload string, more bool) []byte {
	t.Helper()
	hdr, err := EncodeHeader(Header{PayloadLength: len(payload), HasMore: more})
	if err != nil {
		t.Fatal(err)
	}
	return append(hdr, payload...)
}

func TestHeaderEncodeDecode(t *testing.T) {
	tests := []Header{
		{PayloadLength: 0},
		{PayloadLength: 0, HasMore: true},
		{PayloadLength: 5},
		{PayloadLength: 70000, HasMore: true},
		{PayloadLength: MaxPayloadLength},
	}
	for _, in := range tests {
		b, err := EncodeHeader(in)
		if err != nil {
			t.Fatal(err)
		}
		if len(b) != DefaultHeaderSize {
			t.Fatalf("encoded %d bytes, want %d", len(b), DefaultHeaderSize)
		}
		out, err := DecodeHeader(b)
		if err != nil {
			t.Fatal(err)
		}
		if out != in {
			t.Fatalf("decoded %v, want %v", out, in)
		}
		if in.String() == "" {
			t.Fatal("empty string representation")
		}
	}
}

func TestHeaderSizes(t *testing.T) {
	if MinHeaderSize > DefaultHeaderSize {
		t.Fatal("minimum header size larger than default header size")
	}
}

func TestEncodeHeaderOutOfRange(t *testing.T) {
	for _, n := range []int{-1, MaxPayloadLength + 1} {
		_, err := EncodeHeader(Header{PayloadLength: n})
		if !errors.Is(err, ErrPayloadTooLarge) {
			t.Fatalf("length %d: unexpected error %v", n, err)
		}
	}
}

func TestDecodeHeaderErrors(t *testing.T) {
	good, err := EncodeHeader(Header{PayloadLength: 3})
	if err != nil {
		t.Fatal(err)
	}
	corrupt := func(i int, v byte) []byte {
		b := append([]byte(nil), good...)
		b[i] = v
		return b
	}
	tests := []struct {
		name string
		in   []byte
		err  error
	}{
		{"short", good[:DefaultHeaderSize-1], ErrShortHeader},
		{"magic", corrupt(0, 'X'), ErrMalformedHeader},
		{"version", corrupt(2, 9), ErrMalformedHeader},
		{"reserved flags", corrupt(3, 0x80), ErrMalformedHeader},
		{"negative length", corrupt(4, 0x80), ErrMalformedHeader},
	}
	for _, test := range tests {
		_, err := DecodeHeader(test.in)
		if !errors.Is(err, test.err) {
			t.Fatalf("%s: got %v, want %v", test.name, err, test.err)
		}
	}
}

func TestReadChunkBoundaries(t *testing.T) {
	data := rawFrame(t, "hello", false)
	splits := []int{
		MinHeaderSize - 3,
		MinHeaderSize,
		DefaultHeaderSize - 3,
		DefaultHeaderSize,
		DefaultHeaderSize + 3,
	}
	cr := newChunkedReader(data, splits...)
	r := NewReader(cr)
	msg, err := r.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if string(msg) != "hello" {
		t.Fatalf("unexpected message: %q", msg)
	}
	if cr.calls != len(splits)+1 {
		t.Fatalf("expected %d reads, got %d", len(splits)+1, cr.calls)
	}
	if r.State() != AwaitMinHeader {
		t.Fatalf("unexpected state after message: %s", r.State())
	}
}

func TestReadEverySplit(t *testing.T) {
	data := rawFrame(t, "hello", false)
	for i := 1; i < len(data); i++ {
		for j := i; j < len(data); j++ {
			msg, err := NewReader(newChunkedReader(data, i, j)).ReadMessage()
			if err != nil {
				t.Fatalf("splits %d,%d: %v", i, j, err)
			}
			if string(msg) != "hello" {
				t.Fatalf("splits %d,%d: unexpected message %q", i, j, msg)
			}
		}
	}
}

func TestReadMultiPart(t *testing.T) {
	data := append(rawFrame(t, "hello", true), rawFrame(t, " world", false)...)
	first := len("hello") + DefaultHeaderSize
	for _, splits := range [][]int{
		nil,
		{first},
		{first - 2, first + 2},
		{first + 1, first + MinHeaderSize, first + DefaultHeaderSize + 1},
		{3, 9, first + 5},
	} {
		r := NewReader(newChunkedReader(data, splits...))
		msg, err := r.ReadMessage()
		if err != nil {
			t.Fatal(err)
		}
		if string(msg) != "hello world" {
			t.Fatalf("splits %v: unexpected message %q", splits, msg)
		}
		if r.Frames() != 2 {
			t.Fatalf("expected 2 frames, got %d", r.Frames())
		}
	}

	msg, err := NewReader(byteReader{bytes.NewReader(data)}).ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if string(msg) != "hello world" {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestRoundTrip(t *testing.T) {
	payload := make([]byte, 1000)
	for i := range payload {
		payload[i] = byte(i * 7)
	}
	tests := []struct {
		size     int
		maxFrame int
		frames   int
	}{
		{0, 16, 1},
		{1, 16, 1},
		{16, 16, 1},
		{17, 16, 2},
		{1000, 16, 63},
		{1000, 1000, 1},
		{1000, 999, 2},
	}
	for _, test := range tests {
		var buf bytes.Buffer
		w := NewWriter(&buf, WithMaxFramePayload(test.maxFrame))
		if err := w.WriteMessage(payload[:test.size]); err != nil {
			t.Fatal(err)
		}
		if want := test.size + test.frames*DefaultHeaderSize; buf.Len() != want {
			t.Fatalf("size %d: wrote %d bytes, want %d", test.size, buf.Len(), want)
		}
		r := NewReader(byteReader{&buf})
		msg, err := r.ReadMessage()
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(msg, payload[:test.size]) {
			t.Fatalf("size %d: payload mismatch", test.size)
		}
		if r.Frames() != test.frames {
			t.Fatalf("size %d: read %d frames, want %d", test.size, r.Frames(), test.frames)
		}
	}
}

func TestEmptyMessage(t *testing.T) {
	var buf bytes.Buffer
	if err := NewWriter(&buf).WriteMessage(nil); err != nil {
		t.Fatal(err)
	}
	h, err := DecodeHeader(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if h.PayloadLength != 0 || h.HasMore {
		t.Fatalf("unexpected header %v", h)
	}
	if buf.Len() != DefaultHeaderSize {
		t.Fatalf("expected a single header, got %d bytes", buf.Len())
	}

	r := NewReader(&buf)
	msg, err := r.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if msg == nil || len(msg) != 0 {
		t.Fatalf("expected empty non-nil message, got %#v", msg)
	}
	_, err = r.ReadMessage()
	if err != io.EOF {
		t.Fatalf("expected io.EOF for no message, got %v", err)
	}
}

func TestReadSequentialMessages(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, WithMaxFramePayload(3))
	for _, m := range []string{"one", "", "three", "four"} {
		if err := w.WriteMessage([]byte(m)); err != nil {
			t.Fatal(err)
		}
	}
	// a fresh reader per message must not lose bytes of the next one
	for _, want := range []string{"one", "", "three", "four"} {
		msg, err := NewReader(&buf).ReadMessage()
		if err != nil {
			t.Fatal(err)
		}
		if string(msg) != want {
			t.Fatalf("got %q, want %q", msg, want)
		}
	}
}

func TestReadEOFMidFrame(t *testing.T) {
	data := append(rawFrame(t, "hello", true), rawFrame(t, " world", false)...)
	for _, cut := range []int{1, MinHeaderSize, DefaultHeaderSize, DefaultHeaderSize + 2, DefaultHeaderSize + 5, len(data) - 1} {
		r := NewReader(newChunkedReader(data[:cut], 2))
		msg, err := r.ReadMessage()
		if msg != nil {
			t.Fatalf("cut %d: partial message returned", cut)
		}
		if !errors.Is(err, ErrChannelClosed) || !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Fatalf("cut %d: unexpected error %v", cut, err)
		}
		if errors.Is(err, io.EOF) || !strings.Contains(err.Error(), "bytes: frame: channel closed") {
			t.Fatalf("cut %d: unexpected error text %q", cut, err)
		}
	}
}

type errReader struct {
	r   io.Reader
	err error
}

func (e *errReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err == io.EOF {
		return n, e.err
	}
	return n, err
}

func TestReadErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	data := rawFrame(t, "hello", false)
	r := NewReader(&errReader{r: bytes.NewReader(data[:6]), err: boom})
	msg, err := r.ReadMessage()
	if msg != nil {
		t.Fatal("partial message returned")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("unexpected error %v", err)
	}
	if r.State() != AwaitMinHeader {
		t.Fatalf("reader not reset: %s", r.State())
	}
}

func TestReadMalformedPrefix(t *testing.T) {
	data := rawFrame(t, "hello", false)
	data[0] = 'X'
	cr := newChunkedReader(data, MinHeaderSize)
	_, err := NewReader(cr).ReadMessage()
	if !errors.Is(err, ErrMalformedHeader) {
		t.Fatalf("unexpected error %v", err)
	}
	if cr.off != MinHeaderSize {
		t.Fatalf("read %d bytes before rejecting the header", cr.off)
	}
}

func TestReadMessageTooLarge(t *testing.T) {
	data := append(rawFrame(t, "hello", true), rawFrame(t, " world", false)...)
	_, err := NewReader(bytes.NewReader(data), WithMaxMessageSize(8)).ReadMessage()
	if !errors.Is(err, ErrMessageTooLarge) {
		t.Fatalf("unexpected error %v", err)
	}

	msg, err := NewReader(bytes.NewReader(data), WithMaxMessageSize(0)).ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if string(msg) != "hello world" {
		t.Fatalf("unexpected message %q", msg)
	}
}

type emptyReader struct{}

func (emptyReader) Read(p []byte) (int, error) { return 0, nil }

func TestReadNoProgress(t *testing.T) {
	_, err := NewReader(emptyReader{}).ReadMessage()
	if err != io.ErrNoProgress {
		t.Fatalf("unexpected error %v", err)
	}
}

// shortWriter accepts at most n bytes per Write.
type shortWriter struct {
	buf   bytes.Buffer
	n     int
	calls int
}

func (s *shortWriter) Write(p []byte) (int, error) {
	s.calls++
	if len(p) > s.n {
		p = p[:s.n]
	}
	return s.buf.Write(p)
}

func TestWriteShortWrites(t *testing.T) {
	sw := &shortWriter{n: 3}
	if err := NewWriter(sw, WithMaxFramePayload(4)).WriteMessage([]byte("hello world")); err != nil {
		t.Fatal(err)
	}
	if sw.calls <= 6 {
		t.Fatalf("expected short writes to be looped, got %d calls", sw.calls)
	}
	msg, err := NewReader(&sw.buf).ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	if string(msg) != "hello world" {
		t.Fatalf("unexpected message %q", msg)
	}
}

type failWriter struct {
	after int
	err   error
}

func (f *failWriter) Write(p []byte) (int, error) {
	if f.after <= 0 {
		return 0, f.err
	}
	f.after--
	return len(p), nil
}

func TestWriteErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	fw := &failWriter{after: 1, err: boom}
	err := NewWriter(fw).WriteMessage([]byte("hello"))
	if !errors.Is(err, boom) {
		t.Fatalf("unexpected error %v", err)
	}

	stuck := &shortWriter{n: 0}
	err = NewWriter(stuck).WriteMessage([]byte("hello"))
	if !errors.Is(err, io.ErrShortWrite) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDebug(t *testing.T) {
	var trace bytes.Buffer
	Debug = &trace
	defer func() { Debug = nil }()

	var buf bytes.Buffer
	if err := NewWriter(&buf).WriteMessage([]byte("hi")); err != nil {
		t.Fatal(err)
	}
	if _, err := NewReader(&buf).ReadMessage(); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(trace.Bytes(), []byte("<<ENC")) || !bytes.Contains(trace.Bytes(), []byte(">>DEC")) {
		t.Fatalf("unexpected trace %q", trace.String())
	}
}
