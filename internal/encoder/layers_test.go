package encoder

import (
	"bytes"
	"testing"
)

func TestMaskIsSelfInverse(t *testing.T) {
	input := allBytes()
	for k := 0; k <= 255; k++ {
		once := make([]byte, len(input))
		Mask(once, input, byte(k))
		twice := make([]byte, len(input))
		Mask(twice, once, byte(k))
		if !bytes.Equal(twice, input) {
			t.Fatalf("key %d: mask is not self-inverse", k)
		}
	}
}

func TestRotateInverse(t *testing.T) {
	input := allBytes()
	for r := uint8(MinRotation); r <= MaxRotation; r++ {
		left := make([]byte, len(input))
		RotateLeft(left, input, r)
		back := make([]byte, len(input))
		RotateRight(back, left, r)
		if !bytes.Equal(back, input) {
			t.Fatalf("rotation %d: rotate right does not undo rotate left", r)
		}
	}
}

func TestRotateLeftMatchesShiftFormula(t *testing.T) {
	for r := uint8(MinRotation); r <= MaxRotation; r++ {
		for v := 0; v < 256; v++ {
			b := byte(v)
			want := (b << r) | (b >> (8 - r))
			got := make([]byte, 1)
			RotateLeft(got, []byte{b}, r)
			if got[0] != want {
				t.Fatalf("rotl(%#02x, %d): expected %#02x, got %#02x", b, r, want, got[0])
			}
			RotateRight(got, []byte{b}, r)
			want = (b >> r) | (b << (8 - r))
			if got[0] != want {
				t.Fatalf("rotr(%#02x, %d): expected %#02x, got %#02x", b, r, want, got[0])
			}
		}
	}
}

func TestRotateKnownValues(t *testing.T) {
	out := make([]byte, 2)
	RotateLeft(out, []byte{0x44, 0x47}, 3)
	if !bytes.Equal(out, []byte{0x22, 0x3A}) {
		t.Fatalf("expected 22 3a, got % x", out)
	}
}

func TestSubstituteInverse(t *testing.T) {
	input := allBytes()
	tbl := NewTable(seeded(9, 9))
	sub := make([]byte, len(input))
	Substitute(sub, input, &tbl)
	for i, b := range input {
		if sub[i] != tbl[b] {
			t.Fatalf("index %d: expected %#02x, got %#02x", i, tbl[b], sub[i])
		}
	}
	back := make([]byte, len(input))
	Unsubstitute(back, sub, &tbl)
	if !bytes.Equal(back, input) {
		t.Fatal("unsubstitute did not restore input")
	}
}

func TestLayersOnEmptyBuffer(t *testing.T) {
	tbl := Identity()
	var dst []byte
	Mask(dst, nil, 7)
	Substitute(dst, nil, &tbl)
	Unsubstitute(dst, nil, &tbl)
	RotateLeft(dst, nil, 3)
	RotateRight(dst, nil, 3)
}

func TestLayersInPlace(t *testing.T) {
	buf := []byte("in place")
	want := append([]byte(nil), buf...)
	Mask(buf, buf, 0x3C)
	RotateLeft(buf, buf, 5)
	RotateRight(buf, buf, 5)
	Mask(buf, buf, 0x3C)
	if !bytes.Equal(buf, want) {
		t.Fatalf("expected %q, got %q", want, buf)
	}
}
