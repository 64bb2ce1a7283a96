package gereedsolomon

import (
	"context"
	"fmt"

	"github.com/gordian-engine/gavid/gerasure"
	"github.com/klauspost/reedsolomon"
)

// Reconstructor accepts shards one at a time
// and restores the data shards as soon as enough have arrived.
// It satisfies [gerasure.Reconstructor].
//
// Like [Codec], it permits zero parity shards,
// in which case every data shard must be supplied.
type Reconstructor struct {
	codec *Codec

	// allShards holds every data and parity shard, in order.
	// Entries stay zero-length until their shard arrives,
	// so the codec treats them as missing.
	allShards [][]byte

	shardSize int
}

var _ gerasure.Reconstructor = (*Reconstructor)(nil)

// NewReconstructor returns a new Reconstructor.
// The shardSize must be discovered out of band,
// typically from the length of the first shard received.
func NewReconstructor(dataShards, parityShards, shardSize int, opts ...reedsolomon.Option) (*Reconstructor, error) {
	if shardSize <= 0 {
		return nil, fmt.Errorf("shard size must be > 0")
	}

	c, err := NewCodec(dataShards, parityShards, opts...)
	if err != nil {
		return nil, err
	}

	var allShards [][]byte
	if c.rs != nil {
		// All reedsolomon.Encoder instances satisfy reedsolomon.Extensions,
		// and aligned allocations give better throughput.
		allShards = c.rs.(reedsolomon.Extensions).AllocAligned(shardSize)
	} else {
		allShards = make([][]byte, dataShards)
		for i := range allShards {
			allShards[i] = make([]byte, shardSize)
		}
	}

	// Full-length entries would be taken as present,
	// so truncate until the data actually arrives.
	for i, s := range allShards {
		allShards[i] = s[:0]
	}

	return &Reconstructor{
		codec:     c,
		allShards: allShards,

		shardSize: shardSize,
	}, nil
}

// ReconstructData satisfies [gerasure.Reconstructor].
// Supplying the same index more than once is harmless.
func (r *Reconstructor) ReconstructData(_ context.Context, idx int, shard []byte) error {
	if idx < 0 || idx >= len(r.allShards) {
		return fmt.Errorf("shard index %d out of range [0, %d)", idx, len(r.allShards))
	}
	if len(shard) != r.shardSize {
		return fmt.Errorf("shard %d has size %d, want %d", idx, len(shard), r.shardSize)
	}

	r.allShards[idx] = r.allShards[idx][:r.shardSize]
	_ = copy(r.allShards[idx], shard)

	// On ErrIncompleteSet the codec leaves present shards untouched,
	// so the next call can try again with one more.
	return r.codec.ReconstructData(r.allShards)
}

// Data satisfies [gerasure.Reconstructor].
// It must only be called after ReconstructData has returned nil.
func (r *Reconstructor) Data(dst []byte, dataSize int) ([]byte, error) {
	nData := r.codec.DataShards()
	if limit := nData * r.shardSize; dataSize > limit {
		return nil, fmt.Errorf("data size %d exceeds %d data shards of %d bytes", dataSize, nData, r.shardSize)
	}

	if cap(dst)-len(dst) < dataSize {
		dst = append(make([]byte, 0, len(dst)+dataSize), dst...)
	}

	remaining := dataSize
	for i, s := range r.allShards[:nData] {
		if len(s) != r.shardSize {
			return nil, fmt.Errorf("data shard %d not reconstructed: %w", i, gerasure.ErrIncompleteSet)
		}
		n := min(remaining, r.shardSize)
		dst = append(dst, s[:n]...)
		remaining -= n
		if remaining == 0 {
			break
		}
	}

	return dst, nil
}
