// Package gfield contains a self-contained Reed-Solomon erasure codec
// over GF(2^8).
//
// The field uses the reducing polynomial x^8 + x^4 + x^3 + x^2 + 1 (0x11D)
// with generator 2, and the generator matrix is a Vandermonde matrix
// normalized so that its top square is the identity.
// That is the same construction used by [github.com/klauspost/reedsolomon]
// with default options, so both codecs produce identical parity shards
// for the same configuration.
//
// Every byte column of a shard set is coded independently,
// so large shards are split into column ranges that are coded concurrently.
package gfield
