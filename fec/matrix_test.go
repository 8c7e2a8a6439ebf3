package fec

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatrixInvert(t *testing.T) {
	f := GF256()
	tests := []struct {
		name string
		m    matrix
	}{
		{"identity", identityMatrix(4)},
		{"zero pivot needs swap", matrix{{0, 1}, {1, 0}}},
		{"zero pivot deeper", matrix{{0, 0, 1}, {0, 1, 0}, {7, 3, 2}}},
		{"vandermonde top", vandermonde(f, 5, 5)},
		{"dense", matrix{{56, 23, 98}, {3, 100, 200}, {45, 201, 123}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := tt.m.Invert(f)
			require.NoError(t, err)
			prod, err := tt.m.Multiply(f, inv)
			require.NoError(t, err)
			require.Equal(t, identityMatrix(len(tt.m)), prod, "%s x %s", tt.m, inv)
		})
	}
}

func TestMatrixInvertDoesNotModifyInput(t *testing.T) {
	f := GF256()
	m := matrix{{0, 1}, {1, 0}}
	_, err := m.Invert(f)
	require.NoError(t, err)
	require.Equal(t, matrix{{0, 1}, {1, 0}}, m)
	require.Equal(t, "[[0 1], [1 0]]", m.String())
}

func TestMatrixSingular(t *testing.T) {
	f := GF256()
	_, err := matrix{{4, 2}, {12, 6}}.Invert(f)
	require.ErrorIs(t, err, ErrSingular)

	_, err = matrix{{1, 2, 3}, {0, 0, 0}, {5, 6, 7}}.Invert(f)
	require.ErrorIs(t, err, ErrSingular)

	_, err = matrix{{1, 2, 3}}.Invert(f)
	require.Error(t, err)
}

func TestMatrixMultiply(t *testing.T) {
	f := GF256()
	a := matrix{{1, 2}, {3, 4}}
	b := matrix{{5, 6}, {7, 8}}
	got, err := a.Multiply(f, b)
	require.NoError(t, err)
	require.Equal(t, matrix{{11, 22}, {19, 42}}, got)

	_, err = a.Multiply(f, matrix{{1, 2}})
	require.Error(t, err)
}

func TestMatrixSubAndSelect(t *testing.T) {
	m := matrix{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	require.Equal(t, matrix{{5, 6}, {8, 9}}, m.SubMatrix(1, 1, 3, 3))
	require.Equal(t, matrix{{7, 8, 9}, {1, 2, 3}}, m.SelectRows([]int{2, 0}))

	sub := m.SubMatrix(0, 0, 1, 3)
	sub[0][0] = 99
	require.Equal(t, byte(1), m[0][0])
}

func TestVandermonde(t *testing.T) {
	f := GF256()
	v := vandermonde(f, 4, 3)
	require.Equal(t, matrix{{1, 0, 0}, {1, 1, 1}, {1, 2, 4}, {1, 3, 5}}, v)
}
