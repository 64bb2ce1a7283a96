package gfield_test

import (
	"testing"

	"github.com/gordian-engine/gavid/gerasure"
	"github.com/gordian-engine/gavid/gerasure/gfield"
	"github.com/stretchr/testify/require"
)

func TestMatrix_Invert(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 5, 16} {
		m := gfield.Vandermonde(n, n)
		inv, err := m.Invert()
		require.NoError(t, err)

		prod, err := m.Multiply(inv)
		require.NoError(t, err)
		require.Equal(t, gfield.Identity(n), prod)
	}
}

func TestMatrix_Invert_singular(t *testing.T) {
	t.Parallel()

	m := gfield.Matrix{
		{1, 2},
		{1, 2},
	}
	_, err := m.Invert()
	require.ErrorIs(t, err, gerasure.ErrSingularMatrix)

	_, err = gfield.NewMatrix(2, 3).Invert()
	require.Error(t, err)
}

func TestMatrix_Multiply_shapeMismatch(t *testing.T) {
	t.Parallel()

	_, err := gfield.NewMatrix(2, 3).Multiply(gfield.NewMatrix(2, 3))
	require.Error(t, err)
}

func TestMatrix_SelectRows(t *testing.T) {
	t.Parallel()

	m := gfield.Vandermonde(4, 2)
	sel := m.SelectRows([]int{3, 1})
	require.Equal(t, gfield.Matrix{m[3], m[1]}, sel)

	// SelectRows copies.
	sel[0][0] = 0xaa
	require.Equal(t, byte(1), m[3][0])
}
