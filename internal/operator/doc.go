// Package operator implements the compression operators applied to stored
// blocks.
//
// An [Operator] transforms one typed N-D block into a self-describing frame
// and back. Every frame starts with a header naming the codec, the element
// type, the block dimensions, the raw size and the tier it carries, followed
// by the codec params as JSON and an xxh3-checked payload. Decompressing a
// frame whose header does not match the expected codec, type or dimensions
// fails with status.ErrCorruptInput.
//
// # Codecs
//
//   - deflate: zlib compression, param level.
//   - shuffle: byte shuffle grouping byte i of every element together.
//   - checksum: Fletcher-32 checksum appended to the block.
//   - tiered: splits a block into tier_count frames emitted by successive
//     calls. Its state lives in a [TierSession] that callers may share.
//
// # Pipeline
//
// A [Pipeline] runs operators in order on write and in reverse order on
// read:
//
//	p, err := operator.NewPipeline([]operator.Spec{{Name: "shuffle"}, {Name: "deflate"}})
//	frames, err := p.Encode(block, dims, dtype.Float64)
//	block, err = p.Decode(frames, dims, dtype.Float64)
package operator
