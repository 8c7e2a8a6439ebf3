package fec

import (
	"fmt"

	"github.com/pkg/errors"
)

// matrix is a row-major matrix over GF(256).
type matrix [][]byte

func newMatrix(rows, cols int) matrix {
	m := make(matrix, rows)
	data := make([]byte, rows*cols)
	for r := range m {
		m[r] = data[r*cols : (r+1)*cols : (r+1)*cols]
	}
	return m
}

func identityMatrix(size int) matrix {
	m := newMatrix(size, size)
	for i := range m {
		m[i][i] = 1
	}
	return m
}

// vandermonde returns the rows x cols matrix with m[r][c] = r^c. Any cols
// rows of it are linearly independent because the evaluation points differ.
func vandermonde(f *Field, rows, cols int) matrix {
	m := newMatrix(rows, cols)
	for r := range m {
		for c := range m[r] {
			m[r][c] = f.Exp(byte(r), c)
		}
	}
	return m
}

func (m matrix) String() string {
	s := "["
	for i, row := range m {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprint([]byte(row))
	}
	return s + "]"
}

// Multiply returns m x right.
func (m matrix) Multiply(f *Field, right matrix) (matrix, error) {
	if len(m) == 0 || len(right) == 0 {
		return nil, errors.New("fec: empty matrix")
	}
	if len(m[0]) != len(right) {
		return nil, errors.Errorf("fec: column count on left (%d) differs from row count on right (%d)", len(m[0]), len(right))
	}
	out := newMatrix(len(m), len(right[0]))
	for r := range out {
		for c := range out[r] {
			var acc byte
			for i := range m[r] {
				acc ^= f.Mul(m[r][i], right[i][c])
			}
			out[r][c] = acc
		}
	}
	return out, nil
}

// SubMatrix returns a copy of rows [rmin, rmax) and columns [cmin, cmax).
func (m matrix) SubMatrix(rmin, cmin, rmax, cmax int) matrix {
	out := newMatrix(rmax-rmin, cmax-cmin)
	for r := rmin; r < rmax; r++ {
		copy(out[r-rmin], m[r][cmin:cmax])
	}
	return out
}

// SelectRows returns a copy of the listed rows in order.
func (m matrix) SelectRows(rows []int) matrix {
	out := newMatrix(len(rows), len(m[0]))
	for i, r := range rows {
		copy(out[i], m[r])
	}
	return out
}

func (m matrix) SwapRows(r1, r2 int) {
	m[r1], m[r2] = m[r2], m[r1]
}

func (m matrix) IsSquare() bool {
	return len(m) == len(m[0])
}

// Invert returns the inverse of a square matrix using Gauss-Jordan
// elimination on [m | I]. A zero pivot is replaced by swapping in a lower row
// with a nonzero entry in the pivot column.
func (m matrix) Invert(f *Field) (matrix, error) {
	if !m.IsSquare() {
		return nil, errors.New("fec: only square matrices can be inverted")
	}
	n := len(m)
	work := newMatrix(n, 2*n)
	for r := 0; r < n; r++ {
		copy(work[r], m[r])
		work[r][n+r] = 1
	}
	for col := 0; col < n; col++ {
		if work[col][col] == 0 {
			pivot := -1
			for r := col + 1; r < n; r++ {
				if work[r][col] != 0 {
					pivot = r
					break
				}
			}
			if pivot < 0 {
				return nil, ErrSingular
			}
			work.SwapRows(col, pivot)
		}
		if p := work[col][col]; p != 1 {
			scale := f.Inv(p)
			f.mulSlice(scale, work[col], work[col])
		}
		for r := 0; r < n; r++ {
			if r == col {
				continue
			}
			if factor := work[r][col]; factor != 0 {
				f.mulSliceXor(factor, work[col], work[r])
			}
		}
	}
	return work.SubMatrix(0, n, n, 2*n), nil
}
