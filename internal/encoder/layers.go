package encoder

import "math/bits"

// The layer functions write len(src) bytes into dst. dst may alias src; it
// must be at least as long as src.

// Mask XORs every byte of src with key. It is its own inverse.
func Mask(dst, src []byte, key byte) {
	for i, b := range src {
		dst[i] = b ^ key
	}
}

// Substitute replaces every byte b of src with t[b].
func Substitute(dst, src []byte, t *Table) {
	for i, b := range src {
		dst[i] = t[b]
	}
}

// Unsubstitute undoes Substitute. The inverse table is built once per call.
func Unsubstitute(dst, src []byte, t *Table) {
	inv := t.Inverse()
	Substitute(dst, src, &inv)
}

// RotateLeft rotates every byte of src left by r bits. Bits never cross byte
// boundaries.
func RotateLeft(dst, src []byte, r uint8) {
	k := int(r % 8)
	for i, b := range src {
		dst[i] = bits.RotateLeft8(b, k)
	}
}

// RotateRight undoes RotateLeft.
func RotateRight(dst, src []byte, r uint8) {
	k := -int(r % 8)
	for i, b := range src {
		dst[i] = bits.RotateLeft8(b, k)
	}
}
