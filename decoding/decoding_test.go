package decoding

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func u32(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

func TestDecodeStringEmptyBuffer(t *testing.T) {
	ctx, err := DecodeString(nil)
	if err != nil {
		t.Fatal(err)
	}
	if ctx.State != IncompleteLengthVal || ctx.BytesRead != 0 {
		t.Fatalf("unexpected context %+v", ctx)
	}
}

func TestDecodeStringIncomplete(t *testing.T) {
	full := AppendString(nil, "testing")
	for i := 0; i < len(full); i++ {
		in := append([]byte(nil), full[:i]...)
		ctx, err := DecodeString(in)
		if err != nil {
			t.Fatal(err)
		}
		want := IncompleteLengthVal
		wantRead := 0
		if i >= LengthSize {
			want = IncompleteStrVal
			wantRead = LengthSize
		}
		if ctx.State != want || ctx.BytesRead != wantRead {
			t.Fatalf("prefix %d: unexpected context %+v", i, ctx)
		}
		if !bytes.Equal(in, full[:i]) {
			t.Fatalf("prefix %d: input modified", i)
		}
	}
}

func TestDecodeString(t *testing.T) {
	tests := []string{"", "a", "testing", "héllo wörld"}
	for _, s := range tests {
		in := append(AppendString(nil, s), "trailing"...)
		ctx, err := DecodeString(in)
		if err != nil {
			t.Fatal(err)
		}
		if ctx.State != ValueRead {
			t.Fatalf("%q: unexpected state %s", s, ctx.State)
		}
		if ctx.Value != s {
			t.Fatalf("got %q, want %q", ctx.Value, s)
		}
		if ctx.BytesRead != LengthSize+len(s) {
			t.Fatalf("%q: read %d bytes", s, ctx.BytesRead)
		}
	}
}

func TestDecodeStringErrors(t *testing.T) {
	_, err := DecodeString(u32(0xffffffff))
	if !errors.Is(err, ErrNegativeLength) {
		t.Fatalf("unexpected error %v", err)
	}
	_, err = DecodeString(append(u32(2), 0xff, 0xfe))
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDecodeParametersZero(t *testing.T) {
	ctx, err := DecodeParameters(u32(0))
	if err != nil {
		t.Fatal(err)
	}
	if ctx.State != AllParametersRead || ctx.BytesRead != 4 {
		t.Fatalf("unexpected context %+v", ctx)
	}
	if ctx.Params == nil || len(ctx.Params) != 0 {
		t.Fatalf("expected empty parameters, got %#v", ctx.Params)
	}
}

func TestDecodeParameters(t *testing.T) {
	params := map[string]string{
		"pid":     "1234",
		"vmId":    "abc-def",
		"empty":   "",
		"unicode": "ünï",
	}
	in := AppendParameters(nil, params)
	ctx, err := DecodeParameters(in)
	if err != nil {
		t.Fatal(err)
	}
	if ctx.State != AllParametersRead || ctx.BytesRead != len(in) {
		t.Fatalf("unexpected context %v %d", ctx.State, ctx.BytesRead)
	}
	if len(ctx.Params) != len(params) {
		t.Fatalf("decoded %d parameters, want %d", len(ctx.Params), len(params))
	}
	for k, v := range params {
		if ctx.Params[k] != v {
			t.Fatalf("%s: got %q, want %q", k, ctx.Params[k], v)
		}
	}
}

func pair(k, v string) []byte {
	b := append(u32(uint32(len(k))), u32(uint32(len(v)))...)
	return append(append(b, k...), v...)
}

func TestDecodeParametersPartial(t *testing.T) {
	first := pair("key1", "value1")
	second := pair("key2", "value2")
	header := u32(2)
	complete := append(append(append([]byte(nil), header...), first...), second...)

	tests := []struct {
		name  string
		in    []byte
		state State
		read  int
	}{
		{"no count", header[:3], IncompleteParamsLength, 0},
		{"no pairs", header, IncompleteParamKVLength, 4},
		{"half key length", complete[:4+2], IncompleteParamKVLength, 4},
		{"key length only", complete[:4+4], IncompleteParamKVLength, 4},
		{"first pair lengths", complete[:4+8], IncompleteParamKVData, 4 + 8},
		{"first pair partial data", complete[:4+12], IncompleteParamKVData, 4 + 8},
		{"one pair", complete[:4+len(first)], IncompleteParamKVLength, 4 + len(first)},
		{"second pair lengths", complete[:4+len(first)+8], IncompleteParamKVData, 4 + len(first) + 8},
		{"missing last byte", complete[:len(complete)-1], IncompleteParamKVData, 4 + len(first) + 8},
	}
	for _, test := range tests {
		in := append([]byte(nil), test.in...)
		ctx, err := DecodeParameters(in)
		if err != nil {
			t.Fatalf("%s: %v", test.name, err)
		}
		if ctx.State != test.state || ctx.BytesRead != test.read {
			t.Fatalf("%s: got %s/%d, want %s/%d", test.name, ctx.State, ctx.BytesRead, test.state, test.read)
		}
		if ctx.Params != nil {
			t.Fatalf("%s: parameters returned for incomplete block", test.name)
		}
		if !bytes.Equal(in, test.in) {
			t.Fatalf("%s: input modified", test.name)
		}
	}

	ctx, err := DecodeParameters(complete)
	if err != nil {
		t.Fatal(err)
	}
	if ctx.State != AllParametersRead || ctx.BytesRead != len(complete) {
		t.Fatalf("unexpected context %s/%d", ctx.State, ctx.BytesRead)
	}
	if ctx.Params["key1"] != "value1" || ctx.Params["key2"] != "value2" {
		t.Fatalf("unexpected parameters %v", ctx.Params)
	}
}

func TestDecodeParametersDuplicateKey(t *testing.T) {
	in := append(u32(2), pair("k", "first")...)
	in = append(in, pair("k", "second")...)
	ctx, err := DecodeParameters(in)
	if err != nil {
		t.Fatal(err)
	}
	if len(ctx.Params) != 1 || ctx.Params["k"] != "second" {
		t.Fatalf("unexpected parameters %v", ctx.Params)
	}
}

func TestDecodeParametersErrors(t *testing.T) {
	tests := []struct {
		in  []byte
		err error
	}{
		{u32(0x80000000), ErrNegativeLength},
		{append(u32(1), u32(0xffffffff)...), ErrNegativeLength},
		{append(append(u32(1), u32(1)...), u32(0xfffffff0)...), ErrNegativeLength},
		{append(u32(1), pair("k", "\xff")...), ErrInvalidUTF8},
	}
	for _, test := range tests {
		_, err := DecodeParameters(test.in)
		if !errors.Is(err, test.err) {
			t.Fatalf("got %v, want %v", err, test.err)
		}
	}
}

func TestAppendParametersDeterministic(t *testing.T) {
	params := map[string]string{"b": "2", "a": "1", "c": "3"}
	first := AppendParameters(nil, params)
	for i := 0; i < 10; i++ {
		if !bytes.Equal(first, AppendParameters(nil, params)) {
			t.Fatal("encoding not deterministic")
		}
	}
	want := append(u32(3), pair("a", "1")...)
	want = append(want, pair("b", "2")...)
	want = append(want, pair("c", "3")...)
	if !bytes.Equal(first, want) {
		t.Fatalf("unexpected encoding %x", first)
	}
}

func TestStateString(t *testing.T) {
	if IncompleteStrVal.String() != "INCOMPLETE_STR_VAL" {
		t.Fatal("unexpected state name")
	}
	if !ValueRead.Complete() || !AllParametersRead.Complete() || IncompleteParamKVData.Complete() {
		t.Fatal("unexpected completion")
	}
}
