package decoding

import (
	"encoding/binary"
	"sort"
)

// AppendString appends the length-prefixed encoding of s to dst.
func AppendString(dst []byte, s string) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(s)))
	return append(dst, s...)
}

// AppendParameters appends the parameter block encoding of params to dst.
// Keys are written in sorted order so equal maps encode identically.
func AppendParameters(dst []byte, params map[string]string) []byte {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	dst = binary.BigEndian.AppendUint32(dst, uint32(len(keys)))
	for _, k := range keys {
		v := params[k]
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(k)))
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(v)))
		dst = append(dst, k...)
		dst = append(dst, v...)
	}
	return dst
}
