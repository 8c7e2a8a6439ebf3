// Package fec implements systematic Reed-Solomon erasure coding over GF(256)
// for fixed-size shards, and the planner that sizes shard groups for a frame.
//
// A Context is built once per (data, parity) pair and is safe for concurrent
// use. Shards are caller-owned byte slices that Encode and Reconstruct modify
// in place; nothing is retained after a call returns.
package fec

import (
	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"
)

var log = logging.Logger("fec")

// MaxShards is the largest data+parity count of one coding group.
const MaxShards = 255

// Context is an immutable Reed-Solomon coding context.
type Context struct {
	dataShards   int
	parityShards int
	field        *Field
	// m is the (data+parity) x data generating matrix; its top block is identity.
	m matrix
	// parity aliases the parity rows of m.
	parity matrix
}

// NewContext builds the generating matrix for the given shard counts.
// The matrix is a Vandermonde matrix multiplied by the inverse of its top
// square, which keeps every data-sized row subset invertible.
func NewContext(dataShards, parityShards int) (*Context, error) {
	if dataShards < 1 || parityShards < 0 {
		return nil, errors.Wrapf(ErrInvShardNum, "data=%d parity=%d", dataShards, parityShards)
	}
	if dataShards+parityShards > MaxShards {
		return nil, errors.Wrapf(ErrMaxShardNum, "data=%d parity=%d", dataShards, parityShards)
	}
	f := GF256()
	total := dataShards + parityShards
	vm := vandermonde(f, total, dataShards)
	top := vm.SubMatrix(0, 0, dataShards, dataShards)
	topInv, err := top.Invert(f)
	if err != nil {
		return nil, errors.Wrap(err, "invert vandermonde top")
	}
	m, err := vm.Multiply(f, topInv)
	if err != nil {
		return nil, err
	}
	log.Debugw("coding context built", "data", dataShards, "parity", parityShards)
	return &Context{
		dataShards:   dataShards,
		parityShards: parityShards,
		field:        f,
		m:            m,
		parity:       m[dataShards:],
	}, nil
}

func (c *Context) DataShards() int   { return c.dataShards }
func (c *Context) ParityShards() int { return c.parityShards }
func (c *Context) TotalShards() int  { return c.dataShards + c.parityShards }

// checkShards validates shape and returns the common shard size. Empty
// shards are valid; every operation on them is a no-op.
func (c *Context) checkShards(shards [][]byte) (int, error) {
	if len(shards) != c.TotalShards() {
		return 0, errors.Wrapf(ErrShardCount, "got %d, want %d", len(shards), c.TotalShards())
	}
	size := len(shards[0])
	for i, s := range shards[1:] {
		if len(s) != size {
			return 0, errors.Wrapf(ErrShardSize, "shard %d has %d bytes, shard 0 has %d", i+1, len(s), size)
		}
	}
	return size, nil
}

// Encode computes the parity shards from the data shards. shards must hold
// DataShards()+ParityShards() slices of identical length; the data shards are
// only read and every parity shard is overwritten.
func (c *Context) Encode(shards [][]byte) error {
	size, err := c.checkShards(shards)
	if err != nil || size == 0 {
		return err
	}
	c.codeSomeShards(c.parity, shards[:c.dataShards], shards[c.dataShards:])
	return nil
}

// codeSomeShards writes outputs[r] = sum_i rows[r][i] * inputs[i].
func (c *Context) codeSomeShards(rows matrix, inputs, outputs [][]byte) {
	f := c.field
	for r, out := range outputs {
		row := rows[r]
		f.mulSlice(row[0], inputs[0], out)
		for i := 1; i < len(inputs); i++ {
			f.mulSliceXor(row[i], inputs[i], out)
		}
	}
}

// Verify reports whether the parity shards match the data shards.
func (c *Context) Verify(shards [][]byte) (bool, error) {
	size, err := c.checkShards(shards)
	if err != nil {
		return false, err
	}
	scratch := make([][]byte, c.parityShards)
	for i := range scratch {
		scratch[i] = make([]byte, size)
	}
	c.codeSomeShards(c.parity, shards[:c.dataShards], scratch)
	for i, p := range scratch {
		got := shards[c.dataShards+i]
		for j := range p {
			if p[j] != got[j] {
				return false, nil
			}
		}
	}
	return true, nil
}

// Reconstruct recomputes every shard whose missing flag is set, data or
// parity, from the shards that are present. The contents of missing shards
// on input are ignored; present shards are trusted and never written.
//
// If more shards are missing than there are parity shards, ErrTooFewShards
// is returned and no shard is modified.
func (c *Context) Reconstruct(shards [][]byte, missing []bool) error {
	if len(missing) != len(shards) {
		return errors.Wrapf(ErrMaskLen, "mask %d, shards %d", len(missing), len(shards))
	}
	size, err := c.checkShards(shards)
	if err != nil || size == 0 {
		return err
	}

	numMissing := 0
	for _, m := range missing {
		if m {
			numMissing++
		}
	}
	if numMissing == 0 {
		return nil
	}
	if numMissing > c.parityShards {
		log.Debugw("reconstruct failed", "missing", numMissing, "parity", c.parityShards)
		return errors.Wrapf(ErrTooFewShards, "missing %d, parity %d", numMissing, c.parityShards)
	}

	// Pick the first dataShards present shards and the matching rows of m.
	validIndices := make([]int, 0, c.dataShards)
	subShards := make([][]byte, 0, c.dataShards)
	for i := 0; i < len(shards) && len(validIndices) < c.dataShards; i++ {
		if !missing[i] {
			validIndices = append(validIndices, i)
			subShards = append(subShards, shards[i])
		}
	}
	decode, err := c.m.SelectRows(validIndices).Invert(c.field)
	if err != nil {
		// Any dataShards rows of m are independent, so this is a broken matrix.
		return errors.Wrap(err, "invert surviving rows")
	}

	// Missing data shard i is row i of the inverse applied to the survivors.
	var rows matrix
	var outputs [][]byte
	for i := 0; i < c.dataShards; i++ {
		if missing[i] {
			rows = append(rows, decode[i])
			outputs = append(outputs, shards[i])
		}
	}
	// Missing parity shard r is row r of m x inverse applied to the survivors.
	for i := c.dataShards; i < len(shards); i++ {
		if !missing[i] {
			continue
		}
		row := make([]byte, c.dataShards)
		for j := range row {
			var acc byte
			for k, coef := range c.m[i] {
				acc ^= c.field.Mul(coef, decode[k][j])
			}
			row[j] = acc
		}
		rows = append(rows, row)
		outputs = append(outputs, shards[i])
	}
	c.codeSomeShards(rows, subShards, outputs)
	return nil
}
