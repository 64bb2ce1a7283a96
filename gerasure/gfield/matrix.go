package gfield

import (
	"fmt"

	"github.com/gordian-engine/gavid/gerasure"
)

// Matrix is a row-major matrix over GF(2^8).
type Matrix [][]byte

// NewMatrix returns a zeroed matrix with the given dimensions.
func NewMatrix(rows, cols int) Matrix {
	backing := make([]byte, rows*cols)
	m := make(Matrix, rows)
	for r := range m {
		m[r] = backing[r*cols : (r+1)*cols : (r+1)*cols]
	}
	return m
}

// Identity returns the n×n identity matrix.
func Identity(n int) Matrix {
	m := NewMatrix(n, n)
	for i := range n {
		m[i][i] = 1
	}
	return m
}

// Vandermonde returns the matrix whose entry at (r, c) is r^c.
// Any cols rows of it are linearly independent while rows <= 256.
func Vandermonde(rows, cols int) Matrix {
	m := NewMatrix(rows, cols)
	for r := range rows {
		for c := range cols {
			m[r][c] = Exp(byte(r), c)
		}
	}
	return m
}

// Multiply returns m×o.
func (m Matrix) Multiply(o Matrix) (Matrix, error) {
	if len(m) == 0 || len(o) == 0 {
		return nil, fmt.Errorf("cannot multiply empty matrix")
	}
	if len(m[0]) != len(o) {
		return nil, fmt.Errorf(
			"column count on left (%d) differs from row count on right (%d)",
			len(m[0]), len(o),
		)
	}

	out := NewMatrix(len(m), len(o[0]))
	for r := range m {
		for c := range o[0] {
			var v byte
			for i := range o {
				v ^= Mul(m[r][i], o[i][c])
			}
			out[r][c] = v
		}
	}
	return out, nil
}

// SubMatrix returns a copy of the rows [rmin, rmax) and columns [cmin, cmax).
func (m Matrix) SubMatrix(rmin, cmin, rmax, cmax int) Matrix {
	out := NewMatrix(rmax-rmin, cmax-cmin)
	for r := rmin; r < rmax; r++ {
		copy(out[r-rmin], m[r][cmin:cmax])
	}
	return out
}

// SelectRows returns a copy of the rows at the given indices, in order.
func (m Matrix) SelectRows(indices []int) Matrix {
	out := NewMatrix(len(indices), len(m[0]))
	for i, idx := range indices {
		copy(out[i], m[idx])
	}
	return out
}

// Invert returns the inverse of the square matrix m,
// computed by Gauss-Jordan elimination.
// It returns an error wrapping [gerasure.ErrSingularMatrix]
// if m has no inverse.
func (m Matrix) Invert() (Matrix, error) {
	n := len(m)
	if n == 0 || len(m[0]) != n {
		return nil, fmt.Errorf("only square matrices can be inverted")
	}

	// Work on [m | I]; once the left half is I, the right half is the inverse.
	work := NewMatrix(n, 2*n)
	for r := range n {
		copy(work[r], m[r])
		work[r][n+r] = 1
	}

	for c := range n {
		if work[c][c] == 0 {
			swapped := false
			for r := c + 1; r < n; r++ {
				if work[r][c] != 0 {
					work[c], work[r] = work[r], work[c]
					swapped = true
					break
				}
			}
			if !swapped {
				return nil, fmt.Errorf("column %d has no pivot: %w", c, gerasure.ErrSingularMatrix)
			}
		}

		if p := work[c][c]; p != 1 {
			s := Inv(p)
			for j := range work[c] {
				work[c][j] = Mul(work[c][j], s)
			}
		}

		for r := range n {
			if r == c {
				continue
			}
			if f := work[r][c]; f != 0 {
				mulAddSlice(f, work[c], work[r], 0, 2*n)
			}
		}
	}

	return work.SubMatrix(0, n, n, 2*n), nil
}
