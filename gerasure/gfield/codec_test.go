package gfield_test

import (
	"bytes"
	"math/rand/v2"
	"testing"

	"github.com/gordian-engine/gavid/gerasure"
	"github.com/gordian-engine/gavid/gerasure/gerasuretest"
	"github.com/gordian-engine/gavid/gerasure/gereedsolomon"
	"github.com/gordian-engine/gavid/gerasure/gfield"
	"github.com/stretchr/testify/require"
)

func TestCodecCompliance(t *testing.T) {
	gerasuretest.TestShardCodecCompliance(
		t,
		func(nData, nParity int) (gerasure.ShardCodec, error) {
			return gfield.New(nData, nParity)
		},
	)
}

func TestNew_limits(t *testing.T) {
	t.Parallel()

	_, err := gfield.New(0, 1)
	require.Error(t, err)

	_, err = gfield.New(1, -1)
	require.Error(t, err)

	_, err = gfield.New(200, 57)
	require.Error(t, err)

	c, err := gfield.New(200, 56)
	require.NoError(t, err)
	require.Equal(t, 200, c.DataShards())
}

func TestCodec_Generator_systematic(t *testing.T) {
	t.Parallel()

	c, err := gfield.New(9, 7)
	require.NoError(t, err)

	gen := c.Generator()
	require.Len(t, gen, 16)
	require.Equal(t, gfield.Identity(9), gen.SubMatrix(0, 0, 9, 9))
}

func TestCodec_zeroParity(t *testing.T) {
	t.Parallel()

	c, err := gfield.New(3, 0)
	require.NoError(t, err)

	shards := [][]byte{{1}, {2}, {3}}
	require.NoError(t, c.EncodeParity(shards))
	require.NoError(t, c.ReconstructData(shards))

	shards[1] = nil
	require.ErrorIs(t, c.ReconstructData(shards), gerasure.ErrIncompleteSet)
}

func TestCodec_matchesReedSolomon(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	for _, counts := range [][2]int{{1, 1}, {3, 2}, {9, 7}, {10, 4}, {17, 3}} {
		nData, nParity := counts[0], counts[1]

		gf, err := gfield.New(nData, nParity)
		require.NoError(t, err)
		rs, err := gereedsolomon.NewCodec(nData, nParity)
		require.NoError(t, err)

		a := make([][]byte, nData+nParity)
		b := make([][]byte, nData+nParity)
		for i := range nData {
			a[i] = make([]byte, 96)
			for j := range a[i] {
				a[i][j] = byte(rng.Uint32())
			}
			b[i] = bytes.Clone(a[i])
		}

		require.NoError(t, gf.EncodeParity(a))
		require.NoError(t, rs.EncodeParity(b))
		require.Equal(t, b, a, "parity differs for %d+%d", nData, nParity)

		// Shards from one codec are recoverable by the other.
		for i := range nParity {
			a[i] = nil
		}
		require.NoError(t, rs.ReconstructData(a))
		require.Equal(t, b[:nData], a[:nData])
	}
}
