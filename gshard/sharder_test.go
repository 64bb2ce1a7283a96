package gshard_test

import (
	"bytes"
	"context"
	"fmt"
	"math/bits"
	"math/rand/v2"
	"testing"

	"github.com/gordian-engine/gavid/gerasure"
	"github.com/gordian-engine/gavid/gerasure/gfield"
	"github.com/gordian-engine/gavid/gshard"
	"github.com/stretchr/testify/require"
)

var codecs = map[string]gshard.CodecFactory{
	"reedsolomon": gshard.ReedSolomonCodec,
	"gfield": func(nData, nParity int) (gerasure.ShardCodec, error) {
		return gfield.New(nData, nParity)
	},
}

func TestEncodeDecode_hello(t *testing.T) {
	t.Parallel()

	shards, err := gshard.Encode([]byte("Hello"), 16, 7)
	require.NoError(t, err)
	require.Len(t, shards, 16)
	for _, s := range shards {
		require.Len(t, s, 1)
	}

	// Data shards hold "Hello" followed by four bytes of value 4.
	for i, want := range []byte{'H', 'e', 'l', 'l', 'o', 4, 4, 4, 4} {
		require.Equal(t, []byte{want}, shards[i])
	}

	for _, idx := range []int{0, 2, 4, 6, 8, 10, 12} {
		shards[idx] = nil
	}

	got, err := gshard.Decode(shards, 16, 7)
	require.NoError(t, err)
	require.Equal(t, []byte("Hello"), got)
}

func TestRoundTrip_everySubset(t *testing.T) {
	t.Parallel()

	for codecName, newCodec := range codecs {
		for _, padding := range []gshard.PaddingScheme{gshard.PaddingSelfDescribing, gshard.PaddingLengthSuffix} {
			for _, counts := range [][2]int{{1, 0}, {3, 1}, {5, 2}, {6, 3}, {7, 4}} {
				cfg := gshard.Config{
					NumNodes:  counts[0],
					NumFaults: counts[1],
					Padding:   padding,
					NewCodec:  newCodec,
				}
				name := fmt.Sprintf("%s/%s/%d nodes %d faults", codecName, padding, cfg.NumNodes, cfg.NumFaults)
				t.Run(name, func(t *testing.T) {
					t.Parallel()

					s, err := gshard.NewSharder(cfg)
					require.NoError(t, err)

					k := cfg.DataShards()
					for _, size := range []int{0, 1, k - 1, k, k + 1, 257, 1000} {
						blob := randomBlob(uint64(size), size)

						shards, err := s.Encode(context.Background(), blob)
						require.NoError(t, err)
						require.Len(t, shards, cfg.NumNodes)

						for mask := range uint(1) << cfg.NumNodes {
							if bits.OnesCount(mask) != k {
								continue
							}

							subset := make([][]byte, len(shards))
							for i := range shards {
								if mask&(1<<i) != 0 {
									subset[i] = bytes.Clone(shards[i])
								}
							}

							got, err := s.Decode(context.Background(), subset)
							require.NoError(t, err, "size=%d mask=%b", size, mask)
							require.True(t, bytes.Equal(blob, got), "size=%d mask=%b", size, mask)
						}
					}
				})
			}
		}
	}
}

func TestRoundTrip_randomSubsets(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(16, 7))
	for _, size := range []int{1, 5, 100, 2000, 100_000} {
		blob := randomBlob(uint64(size), size)

		shards, err := gshard.Encode(blob, 16, 7)
		require.NoError(t, err)

		for range 10 {
			subset := make([][]byte, len(shards))
			copy(subset, shards)
			for _, idx := range rng.Perm(16)[:7] {
				subset[idx] = nil
			}

			// Decode may reuse buffers, so work on copies.
			for i, s := range subset {
				subset[i] = bytes.Clone(s)
			}

			got, err := gshard.Decode(subset, 16, 7)
			require.NoError(t, err)
			require.True(t, bytes.Equal(blob, got))
		}
	}
}

func TestEncode_deterministic(t *testing.T) {
	t.Parallel()

	blob := randomBlob(1, 4321)
	a, err := gshard.Encode(blob, 10, 3)
	require.NoError(t, err)
	b, err := gshard.Encode(blob, 10, 3)
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestDecode_underProvisioned(t *testing.T) {
	t.Parallel()

	shards, err := gshard.Encode([]byte("under provisioned"), 5, 2)
	require.NoError(t, err)

	for mask := range uint(1) << 5 {
		if bits.OnesCount(mask) >= 3 {
			continue
		}

		subset := make([][]byte, len(shards))
		for i := range shards {
			if mask&(1<<i) != 0 {
				subset[i] = bytes.Clone(shards[i])
			}
		}

		_, err := gshard.Decode(subset, 5, 2)
		require.ErrorIs(t, err, gshard.ErrInsufficientShards, "mask=%b", mask)
		require.ErrorIs(t, err, gerasure.ErrIncompleteSet)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	for _, cfg := range []gshard.Config{
		{NumNodes: 0, NumFaults: 0},
		{NumNodes: 3, NumFaults: 3},
		{NumNodes: 3, NumFaults: 4},
		{NumNodes: 3, NumFaults: -1},
		{NumNodes: 257, NumFaults: 1},
		{NumNodes: 3, NumFaults: 1, Padding: 9},
	} {
		require.ErrorIs(t, cfg.Validate(), gshard.ErrConfig, "%+v", cfg)

		_, err := gshard.NewSharder(cfg)
		require.ErrorIs(t, err, gshard.ErrConfig)
	}

	require.NoError(t, gshard.DefaultConfig().Validate())
	require.Equal(t, 9, gshard.DefaultConfig().DataShards())
}

func TestEncode_paddingOverflow(t *testing.T) {
	t.Parallel()

	// 256 data shards of one byte each need 256 trailer bytes for an empty blob.
	_, err := gshard.Encode(nil, 256, 0)
	require.ErrorIs(t, err, gshard.ErrPaddingOverflow)

	// The length suffix scheme has no such limit.
	s, err := gshard.NewSharder(gshard.Config{
		NumNodes:  256,
		NumFaults: 0,
		Padding:   gshard.PaddingLengthSuffix,
	})
	require.NoError(t, err)

	shards, err := s.Encode(context.Background(), nil)
	require.NoError(t, err)
	got, err := s.Decode(context.Background(), shards)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDecode_shapeErrors(t *testing.T) {
	t.Parallel()

	shards, err := gshard.Encode([]byte("shape"), 4, 1)
	require.NoError(t, err)

	_, err = gshard.Decode(shards[:3], 4, 1)
	require.ErrorIs(t, err, gshard.ErrShape)

	uneven := [][]byte{shards[0], shards[1], append(bytes.Clone(shards[2]), 0), nil}
	_, err = gshard.Decode(uneven, 4, 1)
	require.ErrorIs(t, err, gshard.ErrShape)
}

func TestDecode_invalidPadding(t *testing.T) {
	t.Parallel()

	shards, err := gshard.Encode([]byte("abc"), 2, 0)
	require.NoError(t, err)

	// "abc" plus one trailer byte of value 1, in two shards of two bytes.
	require.Equal(t, [][]byte{[]byte("ab"), {'c', 1}}, shards)

	shards[1][1] = 0
	_, err = gshard.Decode(shards, 2, 0)
	require.ErrorIs(t, err, gshard.ErrInvalidPadding)

	shards[1][1] = 3
	_, err = gshard.Decode(shards, 2, 0)
	require.ErrorIs(t, err, gshard.ErrInvalidPadding)
}

func TestPaddingScheme_Unpad_lengthSuffix(t *testing.T) {
	t.Parallel()

	padded, shardSize, err := gshard.PaddingLengthSuffix.Pad([]byte("xyz"), 3)
	require.NoError(t, err)
	require.Equal(t, 3, shardSize)
	require.Equal(t, []byte{'x', 'y', 'z', 0, 0, 0, 0, 0, 3}, padded)

	got, err := gshard.PaddingLengthSuffix.Unpad(padded)
	require.NoError(t, err)
	require.Equal(t, []byte("xyz"), got)

	padded[4] = 1
	_, err = gshard.PaddingLengthSuffix.Unpad(padded)
	require.ErrorIs(t, err, gshard.ErrInvalidPadding)

	_, err = gshard.PaddingLengthSuffix.Unpad([]byte{0, 0, 9})
	require.ErrorIs(t, err, gshard.ErrInvalidPadding)

	_, err = gshard.PaddingLengthSuffix.Unpad([]byte{0, 0, 0, 0, 0, 3})
	require.ErrorIs(t, err, gshard.ErrInvalidPadding)
}

func randomBlob(seed uint64, size int) []byte {
	rng := rand.New(rand.NewPCG(seed, uint64(size)))
	b := make([]byte, size)
	for i := range b {
		b[i] = byte(rng.Uint32())
	}
	return b
}
