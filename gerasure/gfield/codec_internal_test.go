package gfield

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodec_codeRows_shapeErrors(t *testing.T) {
	t.Parallel()

	c, err := New(2, 1)
	require.NoError(t, err)
	rows := c.gen[2:]

	for _, size := range []int{16, 2 * parallelMinBytes} {
		inputs := [][]byte{
			bytes.Repeat([]byte{1}, size),
			bytes.Repeat([]byte{2}, size),
		}

		out := [][]byte{make([]byte, size)}
		require.NoError(t, c.codeRows(rows, inputs, out, size))

		short := [][]byte{make([]byte, size-1)}
		require.ErrorIs(t, c.codeRows(rows, inputs, short, size), ErrShardSize)

		shortIn := [][]byte{inputs[0], inputs[1][:size/2]}
		require.ErrorIs(t, c.codeRows(rows, shortIn, out, size), ErrShardSize)

		require.Error(t, c.codeRows(rows, inputs, [][]byte{out[0], out[0]}, size))
	}
}
