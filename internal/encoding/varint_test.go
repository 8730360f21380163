package encoding

import (
	"testing"

	"github.com/cockroachdb/errors"
)

func TestUvarint32_RoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 300, 16383, 16384, 1<<31 - 1, 1<<32 - 1} {
		enc := PutUvarint32(v)
		got, n, err := Uvarint32(enc)
		if err != nil {
			t.Fatalf("Uvarint32(%d): %v", v, err)
		}
		if got != v || n != len(enc) {
			t.Fatalf("round trip %d: got %d (n=%d, len=%d)", v, got, n, len(enc))
		}
	}
}

func TestPutUvarint32_Lengths(t *testing.T) {
	cases := []struct {
		v    uint32
		want int
	}{
		{0, 1},
		{127, 1},
		{128, 2},
		{16383, 2},
		{16384, 3},
		{1<<31 - 1, 5},
	}
	for _, c := range cases {
		if got := len(PutUvarint32(c.v)); got != c.want {
			t.Fatalf("len(PutUvarint32(%d))=%d want %d", c.v, got, c.want)
		}
	}
	if b := PutUvarint32(128); b[0] != 0x80 || b[1] != 0x01 {
		t.Fatalf("PutUvarint32(128)=%x want 8001", b)
	}
}

func TestUvarint32_RejectsOverflow(t *testing.T) {
	_, _, err := Uvarint32([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x01})
	if !errors.Is(err, ErrVarintOverflow) {
		t.Fatalf("six-byte varint: got %v want overflow", err)
	}
	_, _, err = Uvarint32([]byte{0xff, 0xff, 0xff, 0xff, 0x1f})
	if !errors.Is(err, ErrVarintOverflow) {
		t.Fatalf("33-bit varint: got %v want overflow", err)
	}
}

func TestUvarint32_RejectsTruncated(t *testing.T) {
	_, _, err := Uvarint32([]byte{0x80, 0x80})
	if !errors.Is(err, ErrVarintTruncated) {
		t.Fatalf("got %v want truncated", err)
	}
	_, _, err = Uvarint32(nil)
	if !errors.Is(err, ErrVarintTruncated) {
		t.Fatalf("empty input: got %v want truncated", err)
	}
}

func TestDecodeVarInts(t *testing.T) {
	in := []uint32{0, 1, 1, 200, 70000, 3}
	buf := EncodeVarInts(in)
	out, err := DecodeVarInts(buf, len(in))
	if err != nil {
		t.Fatalf("DecodeVarInts: %v", err)
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, out[i], in[i])
		}
	}

	if _, err := DecodeVarInts(buf, len(in)-1); !errors.Is(err, ErrTrailingBytes) {
		t.Fatalf("short count: got %v want trailing bytes", err)
	}
	if _, err := DecodeVarInts(buf, len(in)+1); !errors.Is(err, ErrVarintTruncated) {
		t.Fatalf("long count: got %v want truncated", err)
	}
}

func TestDecodeVarInts_CountBeyondBuffer(t *testing.T) {
	_, err := DecodeVarInts([]byte{0}, 1<<40)
	if !errors.Is(err, ErrVarintTruncated) {
		t.Fatalf("got %v want truncated", err)
	}
	if _, err := DecodeVarInts([]byte{0}, -1); err == nil {
		t.Fatalf("negative count should fail")
	}
}
