// Package encoder implements the layered byte transform used by glyphpack.
//
// # Layers
//
// Three independent, invertible transforms are applied to every byte of the
// input buffer in a fixed order:
//
//  1. Mask: XOR with a single-byte key in [1,255].
//  2. Substitute: lookup through a random permutation of 0..255.
//  3. RotateLeft: circular left rotation of each byte by 1..7 bits.
//
// Decoding applies the inverses in reverse order: RotateRight, Unsubstitute,
// Mask.
//
// # Quick Start
//
//	enc := encoder.NewDefault()
//	out, params := enc.Encode([]byte("payload"), "python")
//	raw := encoder.Decode(out, params)
//
// # Randomness
//
// Encoders draw their parameters from an explicit Rand handle. Tests pass a
// seeded *rand.Rand to get reproducible tables:
//
//	enc := encoder.New(rand.New(rand.NewPCG(1, 2)))
//
// An Encoder is not safe for concurrent use. The layer functions themselves
// are pure and may be called from any goroutine.
//
// This is obfuscation, not encryption: anyone holding the record holds the
// parameters needed to invert it.
package encoder
