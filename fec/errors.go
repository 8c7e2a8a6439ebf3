package fec

import "github.com/pkg/errors"

var (
	// ErrInvShardNum is returned by NewContext when data shards < 1 or parity shards < 0.
	ErrInvShardNum = errors.New("fec: cannot create context with less than one data shard or negative parity shards")

	// ErrMaxShardNum is returned by NewContext when data+parity exceeds MaxShards.
	ErrMaxShardNum = errors.New("fec: cannot create context with more than 255 data+parity shards")

	// ErrTooFewShards is returned by Reconstruct when more shards are missing
	// than there are parity shards. The shards are left untouched.
	ErrTooFewShards = errors.New("fec: too few shards given to reconstruct")

	// ErrShardCount is returned when the number of shards differs from the context.
	ErrShardCount = errors.New("fec: wrong number of shards")

	// ErrShardSize is returned when shards differ in length.
	ErrShardSize = errors.New("fec: shard sizes do not match")

	// ErrMaskLen is returned when the erasure mask length differs from the shard count.
	ErrMaskLen = errors.New("fec: erasure mask length does not match shard count")

	// ErrSingular is returned when inverting a matrix with no inverse.
	ErrSingular = errors.New("fec: matrix is singular")

	// ErrInvalidPlan is returned by Planner.Plan for negative sizes or an out of range redundancy.
	ErrInvalidPlan = errors.New("fec: invalid frame size or redundancy")
)
