package fom

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Wire sizes of the raw scalar encoding.
const (
	floatSize = 8
	intSize   = 4
	boolSize  = 1
)

// EncodeValue returns the raw wire bytes of the attribute's active kind.
//
// The encoding is the host's native byte order with no normalization, so it
// is only valid between hosts of the same endianness. An attribute that was
// never set is sent as a float64.
func EncodeValue(a *Attribute) []byte {
	switch a.kind {
	case KindInt:
		buf := make([]byte, intSize)
		binary.NativeEndian.PutUint32(buf, uint32(a.i))
		return buf
	case KindBool:
		if a.b {
			return []byte{1}
		}
		return []byte{0}
	}
	buf := make([]byte, floatSize)
	binary.NativeEndian.PutUint64(buf, math.Float64bits(a.f))
	return buf
}

// DecodeInto stores raw into a, choosing the kind by length, and marks a
// fresh.
func DecodeInto(a *Attribute, raw []byte) error {
	switch len(raw) {
	case floatSize:
		a.SetFloat(math.Float64frombits(binary.NativeEndian.Uint64(raw)))
	case intSize:
		a.SetInt(int32(binary.NativeEndian.Uint32(raw)))
	case boolSize:
		a.SetBool(raw[0] != 0)
	default:
		return fmt.Errorf("attribute %q: unsupported value length %d", a.name, len(raw))
	}
	return nil
}
