// Package gshard splits a blob into erasure-coded shards
// and reassembles the blob from any sufficient subset of them.
//
// A blob is first padded to a multiple of the data shard count,
// so that the padding can be removed again without any side information,
// then split into K contiguous data shards.
// F parity shards are computed from the data shards
// by a [gerasure.ShardCodec].
// Any K of the resulting N = K+F shards reconstruct the blob.
package gshard
