package gerasuretest

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/gordian-engine/gavid/gerasure"
	"github.com/stretchr/testify/require"
)

// FixedRateFactory is the factory function used for [TestFixedRateErasureReconstructionCompliance].
type FixedRateFactory func(
	origData []byte,
	nDataShards, nParityShards int,
) (gerasure.Encoder, gerasure.Reconstructor)

// TestFixedRateErasureReconstructionCompliance is the compliance test
// for the pairing of [gerasure.Encoder] and [gerasure.Reconstructor],
// when using a fixed-rate erasure coding.
func TestFixedRateErasureReconstructionCompliance(t *testing.T, f FixedRateFactory) {
	t.Helper()

	for _, shardCounts := range [][2]int{
		// Equal counts:
		{4, 4}, {8, 8}, {16, 16},

		// Different counts:
		{4, 8}, {8, 4}, {9, 7}, {20, 10},
	} {
		dataCount := shardCounts[0]
		parityCount := shardCounts[1]
		t.Run(fmt.Sprintf("%d data and %d parity shards", dataCount, parityCount), func(t *testing.T) {
			for _, dataSize := range []int{
				// Some powers of two:
				1024, 1024 * 16, 1024 * 128,

				// And some non-powers-of-two:
				300, 1000, 25_000, 100_000,
			} {
				t.Run(fmt.Sprintf("data size = %d", dataSize), func(t *testing.T) {
					t.Parallel()

					ctx, cancel := context.WithCancel(context.Background())
					defer cancel()

					chacha := newChaCha(dataCount, parityCount, dataSize)
					origData := make([]byte, dataSize)
					_, _ = chacha.Read(origData) // ChaCha8 seeds don't error on Read.

					enc, r := f(origData, dataCount, parityCount)

					allShards, err := enc.Encode(ctx, origData)
					require.NoError(t, err)

					// Randomly iterate through allShards until we can reconstruct.
					rng := rand.New(chacha)
					for _, idx := range rng.Perm(len(allShards)) {
						err = r.ReconstructData(ctx, idx, allShards[idx])
						if err == nil {
							break
						}

						require.ErrorIs(t, err, gerasure.ErrIncompleteSet)
					}

					require.NoError(t, err)

					t.Run("reconstruct with new allocation", func(t *testing.T) {
						dataCopy, err := r.Data(nil, dataSize)
						require.NoError(t, err)
						require.True(t, bytes.Equal(dataCopy, origData))
					})

					t.Run("reconstruct with presized allocation", func(t *testing.T) {
						backing := make([]byte, dataSize)
						result, err := r.Data(backing[:0], dataSize)
						require.NoError(t, err)
						require.True(t, bytes.Equal(result, origData))
						require.True(t, bytes.Equal(result, backing))
					})
				})
			}
		})
	}
}

// ShardCodecFactory is the factory function used for [TestShardCodecCompliance].
type ShardCodecFactory func(nDataShards, nParityShards int) (gerasure.ShardCodec, error)

// TestShardCodecCompliance is the compliance test for [gerasure.ShardCodec].
func TestShardCodecCompliance(t *testing.T, f ShardCodecFactory) {
	t.Helper()

	for _, tc := range []struct {
		nData, nParity int
		shardSizes     []int
	}{
		{nData: 1, nParity: 1, shardSizes: []int{1, 100}},
		{nData: 3, nParity: 2, shardSizes: []int{1, 33, 100_000}},
		{nData: 4, nParity: 4, shardSizes: []int{64, 4096}},
		{nData: 9, nParity: 7, shardSizes: []int{1, 17, 1000}},
		{nData: 10, nParity: 20, shardSizes: []int{128}},
		{nData: 200, nParity: 56, shardSizes: []int{8}},
	} {
		t.Run(fmt.Sprintf("%d data and %d parity shards", tc.nData, tc.nParity), func(t *testing.T) {
			for _, shardSize := range tc.shardSizes {
				t.Run(fmt.Sprintf("shard size = %d", shardSize), func(t *testing.T) {
					t.Parallel()

					c, err := f(tc.nData, tc.nParity)
					require.NoError(t, err)
					require.Equal(t, tc.nData, c.DataShards())
					require.Equal(t, tc.nParity, c.ParityShards())

					chacha := newChaCha(tc.nData, tc.nParity, shardSize)
					rng := rand.New(chacha)

					orig := make([][]byte, tc.nData+tc.nParity)
					for i := range tc.nData {
						orig[i] = make([]byte, shardSize)
						_, _ = chacha.Read(orig[i])
					}
					require.NoError(t, c.EncodeParity(orig))
					for i := range orig {
						require.Len(t, orig[i], shardSize)
					}

					t.Run("encoding is deterministic", func(t *testing.T) {
						again := cloneShards(orig)
						for i := tc.nData; i < len(again); i++ {
							again[i] = nil
						}
						require.NoError(t, c.EncodeParity(again))
						require.Equal(t, orig, again)
					})

					t.Run("any data-count subset restores data", func(t *testing.T) {
						for range 5 {
							shards := cloneShards(orig)
							for _, idx := range rng.Perm(len(shards))[:tc.nParity] {
								shards[idx] = nil
							}

							require.NoError(t, c.ReconstructData(shards))
							require.Equal(t, orig[:tc.nData], shards[:tc.nData])
						}
					})

					t.Run("any data-count subset restores everything", func(t *testing.T) {
						shards := cloneShards(orig)
						for _, idx := range rng.Perm(len(shards))[:tc.nParity] {
							shards[idx] = nil
						}

						require.NoError(t, c.Reconstruct(shards))
						require.Equal(t, orig, shards)
					})

					t.Run("one shard too few", func(t *testing.T) {
						shards := cloneShards(orig)
						for _, idx := range rng.Perm(len(shards))[:tc.nParity+1] {
							shards[idx] = nil
						}

						require.ErrorIs(t, c.ReconstructData(shards), gerasure.ErrIncompleteSet)
					})

					t.Run("no shards", func(t *testing.T) {
						shards := make([][]byte, len(orig))
						require.ErrorIs(t, c.ReconstructData(shards), gerasure.ErrIncompleteSet)
						require.ErrorIs(t, c.Reconstruct(shards), gerasure.ErrIncompleteSet)
					})

					t.Run("inconsistent shard sizes", func(t *testing.T) {
						if len(orig) < 3 {
							t.Skip("need two present shards besides the missing one")
						}

						shards := cloneShards(orig)
						shards[0] = append(shards[0], 0)
						shards[1] = nil
						require.Error(t, c.ReconstructData(shards))
					})
				})
			}
		})
	}
}

// newChaCha makes an RNG based on the shard counts and size,
// so each test case has different source data.
func newChaCha(nData, nParity, size int) *rand.ChaCha8 {
	seed := [32]byte{}
	binary.LittleEndian.PutUint32(seed[:8], uint32(nData))
	binary.LittleEndian.PutUint32(seed[8:16], uint32(nParity))
	binary.LittleEndian.PutUint64(seed[16:], uint64(size))
	return rand.NewChaCha8(seed)
}

func cloneShards(in [][]byte) [][]byte {
	out := make([][]byte, len(in))
	for i, s := range in {
		out[i] = bytes.Clone(s)
	}
	return out
}
