package encoding

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// MaxVarintLen32 is the longest encoding of a 32-bit value.
const MaxVarintLen32 = 5

var (
	ErrVarintOverflow  = errors.New("varint overflows 32 bits")
	ErrVarintTruncated = errors.New("varint truncated")
	ErrTrailingBytes   = errors.New("trailing bytes after varint array")
)

// AppendUvarint32 appends v as base-128 groups, low group first, with the
// continuation bit set on every byte but the last.
func AppendUvarint32(dst []byte, v uint32) []byte {
	return binary.AppendUvarint(dst, uint64(v))
}

// PutUvarint32 encodes v into a fresh slice.
func PutUvarint32(v uint32) []byte {
	var tmp [MaxVarintLen32]byte
	n := binary.PutUvarint(tmp[:], uint64(v))
	out := make([]byte, n)
	copy(out, tmp[:n])
	return out
}

// Uvarint32 decodes one value from the front of buf and returns it with the
// number of bytes consumed. Sequences longer than MaxVarintLen32 bytes, or
// whose fifth byte carries bits above 2^32, fail with ErrVarintOverflow.
func Uvarint32(buf []byte) (uint32, int, error) {
	var v uint32
	var shift uint
	for i := 0; i < len(buf); i++ {
		if i == MaxVarintLen32 {
			return 0, 0, ErrVarintOverflow
		}
		b := buf[i]
		if i == MaxVarintLen32-1 && b > 0x0f {
			return 0, 0, ErrVarintOverflow
		}
		v |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return v, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, ErrVarintTruncated
}

// EncodeVarInts concatenates the varint encodings of ids.
func EncodeVarInts(ids []uint32) []byte {
	out := make([]byte, 0, len(ids))
	for _, id := range ids {
		out = AppendUvarint32(out, id)
	}
	return out
}

// DecodeVarInts decodes exactly n values from buf. Running out of input early
// or leaving bytes behind is an error. Every value takes at least one byte, so
// n is checked against len(buf) before anything is allocated.
func DecodeVarInts(buf []byte, n int) ([]uint32, error) {
	if n < 0 {
		return nil, errors.Newf("negative varint count %d", n)
	}
	if n > len(buf) {
		return nil, errors.Wrapf(ErrVarintTruncated, "%d values declared, %d bytes present", n, len(buf))
	}
	out := make([]uint32, 0, n)
	i := 0
	for len(out) < n {
		v, k, err := Uvarint32(buf[i:])
		if err != nil {
			return nil, errors.Wrapf(err, "varint %d at byte %d", len(out), i)
		}
		out = append(out, v)
		i += k
	}
	if i != len(buf) {
		return nil, errors.Wrapf(ErrTrailingBytes, "%d bytes after %d values", len(buf)-i, n)
	}
	return out, nil
}
