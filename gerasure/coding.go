package gerasure

import (
	"context"
	"errors"
)

// Encoder encodes data into a set of erasure-corrected shards of bytes.
// The precise set of byte slices returned,
// and which of them are required to reconstitute the original data,
// are determined by the implementation.
//
// Settings for the encoder are typically also applied to the [Reconstructor],
// but the source of those settings is out of scope of these interfaces.
type Encoder interface {
	Encode(ctx context.Context, data []byte) ([][]byte, error)
}

// Reconstructor manages reconstructing the original data
// from a series of erasure-coded shards,
// typically produced from an instance of [Encoder].
//
// This interface is focused on reconstructing only the data shards.
// Use [ShardCodec] when parity shards must be repopulated too.
type Reconstructor interface {
	// ReconstructData attempts to use the shard to reconstruct the original data,
	// and the returned error value indicates:
	//   - whether the shard was invalid, by an implementation-specific error
	//   - whether the shard was valid but insufficient to reconstruct the original data,
	//     by returning [ErrIncompleteSet]
	//   - or whether the shard was accepted and the data is able to be reconstructed
	//     with a call to Data, by returning nil.
	//
	// Callers should preferably track which indices are passed in,
	// and ensure each index is only passed to ReconstructData once.
	ReconstructData(ctx context.Context, idx int, shard []byte) error

	// Data appends the reconstructed data to dst,
	// returning the modified dst slice if dst has sufficient capacity,
	// otherwise returning a newly allocated slice.
	//
	// The dataSize parameter is required because the reconstructor cannot
	// determine the size from shards alone,
	// as the final data shard may be padded with zeros.
	Data(dst []byte, dataSize int) ([]byte, error)
}

// ShardCodec operates on a complete, ordered set of shards in place.
// The first DataShards entries are data shards and the remaining
// ParityShards entries are parity shards.
// A nil or zero-length entry denotes a missing shard.
type ShardCodec interface {
	DataShards() int
	ParityShards() int

	// EncodeParity overwrites every parity shard
	// with values computed from the data shards.
	// All data shards must be present and of equal length.
	EncodeParity(shards [][]byte) error

	// ReconstructData fills in any missing data shards.
	// Missing parity shards may be left missing.
	// If fewer than DataShards entries are present,
	// the returned error wraps [ErrIncompleteSet].
	ReconstructData(shards [][]byte) error

	// Reconstruct fills in every missing shard, data and parity.
	Reconstruct(shards [][]byte) error
}

// ErrIncompleteSet is returned by [Reconstructor.ReconstructData] when a shard was accepted
// but was not sufficient to fully restore the original data.
var ErrIncompleteSet = errors.New("insufficient shard received to reconstruct data")

// ErrSingularMatrix indicates that a generator submatrix could not be inverted.
// A correctly built generator never produces a singular submatrix,
// so this error signals a bug rather than bad input.
var ErrSingularMatrix = errors.New("generator submatrix is singular")
