package gshard

import (
	"context"
	"errors"
	"fmt"

	"github.com/gordian-engine/gavid/gerasure"
)

// Sharder encodes blobs into shard sets and decodes them again,
// for one fixed [Config].
// A Sharder is safe for concurrent use.
type Sharder struct {
	cfg   Config
	codec gerasure.ShardCodec
}

var _ gerasure.Encoder = (*Sharder)(nil)

// NewSharder validates cfg and returns a Sharder for it.
func NewSharder(cfg Config) (*Sharder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	newCodec := cfg.NewCodec
	if newCodec == nil {
		newCodec = ReedSolomonCodec
	}
	codec, err := newCodec(cfg.DataShards(), cfg.NumFaults)
	if err != nil {
		return nil, fmt.Errorf("failed to create codec: %w", err)
	}

	return &Sharder{cfg: cfg, codec: codec}, nil
}

// Config returns the configuration s was created with.
func (s *Sharder) Config() Config {
	return s.cfg
}

// Encode pads blob, splits it into data shards, and computes parity shards.
// The returned shard set has exactly NumNodes entries of equal length.
// Encode satisfies [gerasure.Encoder]; it never blocks, so ctx is unused.
func (s *Sharder) Encode(_ context.Context, blob []byte) ([][]byte, error) {
	k := s.cfg.DataShards()

	padded, shardSize, err := s.cfg.Padding.Pad(blob, k)
	if err != nil {
		return nil, err
	}

	shards := make([][]byte, s.cfg.NumNodes)
	for i := range k {
		start := i * shardSize
		// Cap each data shard so that nothing appended to it
		// can overwrite its neighbor.
		shards[i] = padded[start : start+shardSize : start+shardSize]
	}

	if err := s.codec.EncodeParity(shards); err != nil {
		return nil, fmt.Errorf("failed to compute parity shards: %w", err)
	}

	return shards, nil
}

// Decode reassembles the blob from a shard set
// in which missing shards are nil.
//
// Decode takes ownership of shards:
// missing entries may be filled in and present entries may be reused,
// so the caller must not use the slice afterwards.
func (s *Sharder) Decode(_ context.Context, shards [][]byte) ([]byte, error) {
	if len(shards) != s.cfg.NumNodes {
		return nil, fmt.Errorf("%w: got %d shards, want %d", ErrShape, len(shards), s.cfg.NumNodes)
	}

	k := s.cfg.DataShards()
	size := 0
	present := 0
	dataMissing := false
	for i, shard := range shards {
		if len(shard) == 0 {
			if i < k {
				dataMissing = true
			}
			continue
		}
		if size == 0 {
			size = len(shard)
		} else if len(shard) != size {
			return nil, fmt.Errorf("%w: shard %d has %d bytes, want %d", ErrShape, i, len(shard), size)
		}
		present++
	}

	if present < k {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientShards, present, k)
	}

	if dataMissing {
		if err := s.codec.ReconstructData(shards); err != nil {
			if errors.Is(err, gerasure.ErrIncompleteSet) {
				return nil, fmt.Errorf("%w: %w", ErrInsufficientShards, err)
			}
			return nil, fmt.Errorf("failed to reconstruct data shards: %w", err)
		}
	}

	joined := make([]byte, 0, k*size)
	for _, shard := range shards[:k] {
		joined = append(joined, shard...)
	}

	return s.cfg.Padding.Unpad(joined)
}

// Encode shards blob across numNodes shards tolerating numFaults missing shards,
// using self-describing padding and the Reed-Solomon codec.
func Encode(blob []byte, numNodes, numFaults int) ([][]byte, error) {
	s, err := NewSharder(Config{NumNodes: numNodes, NumFaults: numFaults})
	if err != nil {
		return nil, err
	}
	return s.Encode(context.Background(), blob)
}

// Decode is the inverse of [Encode].
// Missing shards are nil; shards is consumed as in [Sharder.Decode].
func Decode(shards [][]byte, numNodes, numFaults int) ([]byte, error) {
	s, err := NewSharder(Config{NumNodes: numNodes, NumFaults: numFaults})
	if err != nil {
		return nil, err
	}
	return s.Decode(context.Background(), shards)
}
