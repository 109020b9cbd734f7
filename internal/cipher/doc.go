// Package cipher exposes glyphpack's byte transforms as named, reversible
// operations that can be chained into pipelines.
//
// # Overview
//
// Every layer of the glyphpack encoding is registered as an Operation with a
// known inverse, next to the Base64 text encoding used for record payloads:
//
//	xor_mask        key=0..255       (its own reverse)
//	substitute      table=<256 B>    <-> unsubstitute
//	rotate_left     rotation=0..7    <-> rotate_right
//	base64_encode                    <-> base64_decode
//
// # Pipelines
//
// LayeredPipeline builds the forward pipeline for a parameter set. Reverse
// flips the order and swaps each step for its inverse, keeping parameters:
//
//	p := cipher.LayeredPipeline(params)
//	encoded, _ := p.Execute(ctx, raw)
//
//	back, _ := p.Reverse()
//	decoded, _ := back.Execute(ctx, encoded)
//
// RecordPipeline appends base64_encode, so its output is the record's "p"
// field and its Reverse turns that field back into the original bytes.
//
// Pipelines marshal to JSON. Parameters decoded from JSON arrive as float64
// numbers and Base64 strings; the layer operations accept both.
//
// # Thread Safety
//
// Registries are safe for concurrent use. Operations are stateless.
package cipher
