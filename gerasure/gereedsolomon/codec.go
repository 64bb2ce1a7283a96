package gereedsolomon

import (
	"errors"
	"fmt"

	"github.com/gordian-engine/gavid/gerasure"
	"github.com/klauspost/reedsolomon"
)

// Codec is a wrapper around [reedsolomon.Encoder]
// satisfying the [gerasure.ShardCodec] interface.
//
// Like [Reconstructor], a Codec permits zero parity shards,
// in which case it only checks shard shapes.
type Codec struct {
	// rs is nil when there are no parity shards.
	rs reedsolomon.Encoder

	nData, nParity int
}

var _ gerasure.ShardCodec = (*Codec)(nil)

// NewCodec returns a new Codec.
func NewCodec(dataShards, parityShards int, opts ...reedsolomon.Option) (*Codec, error) {
	if dataShards <= 0 {
		return nil, fmt.Errorf("data shards must be > 0")
	}
	if parityShards < 0 {
		return nil, fmt.Errorf("parity shards must be >= 0")
	}

	c := &Codec{nData: dataShards, nParity: parityShards}
	if parityShards == 0 {
		return c, nil
	}

	rs, err := reedsolomon.New(dataShards, parityShards, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create reed-solomon codec: %w", err)
	}
	c.rs = rs
	return c, nil
}

// DataShards satisfies [gerasure.ShardCodec].
func (c *Codec) DataShards() int { return c.nData }

// ParityShards satisfies [gerasure.ShardCodec].
func (c *Codec) ParityShards() int { return c.nParity }

// EncodeParity satisfies [gerasure.ShardCodec].
func (c *Codec) EncodeParity(shards [][]byte) error {
	if err := c.checkCount(shards); err != nil {
		return err
	}

	size := len(shards[0])
	for i := range c.nData {
		if len(shards[i]) == 0 || len(shards[i]) != size {
			return fmt.Errorf("data shard %d has size %d, want %d: %w", i, len(shards[i]), size, reedsolomon.ErrShardSize)
		}
	}
	if c.rs == nil {
		return nil
	}

	// The reedsolomon encoder requires every parity shard to be sized already.
	for i := c.nData; i < len(shards); i++ {
		if cap(shards[i]) >= size {
			shards[i] = shards[i][:size]
		} else {
			shards[i] = make([]byte, size)
		}
	}

	if err := c.rs.Encode(shards); err != nil {
		return fmt.Errorf("failed to encode parity: %w", err)
	}
	return nil
}

// ReconstructData satisfies [gerasure.ShardCodec].
func (c *Codec) ReconstructData(shards [][]byte) error {
	if err := c.checkCount(shards); err != nil {
		return err
	}
	if c.rs == nil {
		return c.checkAllData(shards)
	}
	if err := c.checkPresent(shards); err != nil {
		return err
	}
	return c.wrap(c.rs.ReconstructData(shards))
}

// Reconstruct satisfies [gerasure.ShardCodec].
func (c *Codec) Reconstruct(shards [][]byte) error {
	if err := c.checkCount(shards); err != nil {
		return err
	}
	if c.rs == nil {
		return c.checkAllData(shards)
	}
	if err := c.checkPresent(shards); err != nil {
		return err
	}
	return c.wrap(c.rs.Reconstruct(shards))
}

func (c *Codec) checkCount(shards [][]byte) error {
	if want := c.nData + c.nParity; len(shards) != want {
		return fmt.Errorf("expected %d total shards, got %d", want, len(shards))
	}
	return nil
}

// checkPresent reports ErrIncompleteSet for fewer than DataShards non-empty shards.
// The reedsolomon library reports an empty set as ErrShardNoData instead.
func (c *Codec) checkPresent(shards [][]byte) error {
	present := 0
	for _, s := range shards {
		if len(s) != 0 {
			present++
		}
	}
	if present < c.nData {
		return fmt.Errorf("have %d shards, need %d: %w", present, c.nData, gerasure.ErrIncompleteSet)
	}
	return nil
}

// checkAllData is the zero-parity reconstruction:
// nothing can be recovered, so every data shard must be present.
func (c *Codec) checkAllData(shards [][]byte) error {
	size := 0
	for i, s := range shards {
		if len(s) == 0 {
			return fmt.Errorf("data shard %d missing without parity: %w", i, gerasure.ErrIncompleteSet)
		}
		if size == 0 {
			size = len(s)
		} else if len(s) != size {
			return fmt.Errorf("shard %d has size %d, want %d: %w", i, len(s), size, reedsolomon.ErrShardSize)
		}
	}
	return nil
}

// wrap translates reedsolomon errors into gerasure errors.
func (c *Codec) wrap(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, reedsolomon.ErrTooFewShards), errors.Is(err, reedsolomon.ErrShardNoData):
		return fmt.Errorf("%w: %w", gerasure.ErrIncompleteSet, err)
	case errors.Is(err, reedsolomon.ErrShardSize):
		return fmt.Errorf("failed to reconstruct: %w", err)
	default:
		// Anything else means the decode matrix could not be built.
		return fmt.Errorf("failed to reconstruct: %w: %w", gerasure.ErrSingularMatrix, err)
	}
}
