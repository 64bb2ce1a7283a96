package gshard

import (
	"errors"
	"fmt"

	"github.com/gordian-engine/gavid/gerasure"
	"github.com/gordian-engine/gavid/gerasure/gereedsolomon"
)

// MaxNodes is the largest shard count supported by the GF(2^8) codecs.
const MaxNodes = 256

var (
	// ErrConfig is returned for an invalid node or fault count.
	ErrConfig = errors.New("invalid shard configuration")

	// ErrPaddingOverflow is returned when a blob cannot be padded
	// under the configured padding scheme.
	ErrPaddingOverflow = errors.New("padding length not representable")

	// ErrShape is returned when a shard set has the wrong number of entries
	// or its present shards differ in length.
	ErrShape = errors.New("malformed shard set")

	// ErrInsufficientShards is returned when fewer than K shards are present.
	// It wraps [gerasure.ErrIncompleteSet].
	ErrInsufficientShards = fmt.Errorf("too few shards to reconstruct: %w", gerasure.ErrIncompleteSet)

	// ErrInvalidPadding is returned when reassembled data
	// does not end in a well-formed padding trailer.
	ErrInvalidPadding = errors.New("invalid padding trailer")
)

// CodecFactory creates the codec used to compute and recover parity.
type CodecFactory func(nData, nParity int) (gerasure.ShardCodec, error)

// ReedSolomonCodec is the default [CodecFactory].
func ReedSolomonCodec(nData, nParity int) (gerasure.ShardCodec, error) {
	return gereedsolomon.NewCodec(nData, nParity)
}

// Config holds the parameters of a shard set.
type Config struct {
	// Total number of shards, one per storage node.
	NumNodes int

	// Number of shards that may be missing at reconstruction time.
	NumFaults int

	Padding PaddingScheme

	// NewCodec defaults to [ReedSolomonCodec] when nil.
	NewCodec CodecFactory
}

// DefaultConfig returns a 16-node configuration tolerating 7 faults.
func DefaultConfig() Config {
	return Config{
		NumNodes:  16,
		NumFaults: 7,
		Padding:   PaddingSelfDescribing,
	}
}

// DataShards returns K, the number of data shards.
func (c Config) DataShards() int {
	return c.NumNodes - c.NumFaults
}

// Validate reports whether c describes a usable shard set.
func (c Config) Validate() error {
	if c.NumFaults < 0 {
		return fmt.Errorf("%w: fault count %d is negative", ErrConfig, c.NumFaults)
	}
	if c.NumFaults >= c.NumNodes {
		return fmt.Errorf("%w: fault count %d must be less than node count %d", ErrConfig, c.NumFaults, c.NumNodes)
	}
	if c.NumNodes > MaxNodes {
		return fmt.Errorf("%w: node count %d exceeds %d", ErrConfig, c.NumNodes, MaxNodes)
	}
	if c.Padding != PaddingSelfDescribing && c.Padding != PaddingLengthSuffix {
		return fmt.Errorf("%w: unknown padding scheme %d", ErrConfig, c.Padding)
	}
	return nil
}
