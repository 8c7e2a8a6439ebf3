package fec

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShardPacketCountBoundaries(t *testing.T) {
	const U = DefaultShardUnit
	tests := []struct {
		size, pct, want int
	}{
		{0, 0, 1},
		{1, 0, 1},
		{2, 0, 1},
		{1*U - 1, 0, 1},
		{1 * U, 0, 1},
		{253*U - 1, 0, 1},
		{253 * U, 0, 1},
		{253*U + 1, 0, 2},
		{255 * U, 0, 2},
		{256 * U, 0, 2},
		{506 * U, 0, 2},
		{506*U + 1, 0, 3},

		{250 * U, 1, 1},
		{250*U + 1, 1, 1},
		{251 * U, 1, 1},
		{251*U + 1, 1, 2},
		{253 * U, 1, 2},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("size=%d/pct=%d", tt.size, tt.pct), func(t *testing.T) {
			require.Equal(t, tt.want, ShardPacketCount(tt.size, tt.pct))
		})
	}
}

func TestShardPacketCountOtherUnit(t *testing.T) {
	p := Planner{Unit: 1000}
	require.Equal(t, 1, p.ShardPacketCount(253*1000, 0))
	require.Equal(t, 2, p.ShardPacketCount(253*1000+1, 0))
	require.Equal(t, 2, p.ShardPacketCount(251*1000+1, 1))
}

func TestShardPacketCountMonotonic(t *testing.T) {
	for _, pct := range []int{0, 1, 5, 10, 25, 50, 100, 200} {
		prev := 0
		for size := 0; size < 2000*DefaultShardUnit; size += 997 {
			got := ShardPacketCount(size, pct)
			require.GreaterOrEqual(t, got, prev, "pct=%d size=%d", pct, size)
			require.GreaterOrEqual(t, got, 1)
			prev = got
		}
	}
	for _, size := range []int{0, 1, 100 * DefaultShardUnit, 300 * DefaultShardUnit, 5000 * DefaultShardUnit} {
		prev := 0
		for pct := 0; pct <= 1000; pct++ {
			got := ShardPacketCount(size, pct)
			require.GreaterOrEqual(t, got, prev, "pct=%d size=%d", pct, size)
			prev = got
		}
	}
}

func TestMaxDataShards(t *testing.T) {
	require.Equal(t, 253, MaxDataShards(0))
	require.Equal(t, 251, MaxDataShards(1))
	require.Equal(t, 253, MaxDataShards(-5))
	require.Equal(t, 1, MaxDataShards(MaxRedundancy))

	prev := MaxDataShards(0)
	for pct := 1; pct <= MaxRedundancy; pct += 7 {
		d := MaxDataShards(pct)
		require.LessOrEqual(t, d, prev, "pct=%d", pct)
		require.LessOrEqual(t, d+ParityShards(d, pct), MaxGroupShards, "pct=%d", pct)
		prev = d
	}
	require.Less(t, MaxDataShards(50), MaxDataShards(10))
}

func TestParityShards(t *testing.T) {
	require.Equal(t, 0, ParityShards(10, 0))
	require.Equal(t, 1, ParityShards(10, 1))
	require.Equal(t, 1, ParityShards(10, 10))
	require.Equal(t, 2, ParityShards(10, 11))
	require.Equal(t, 3, ParityShards(251, 1))
	require.Equal(t, 20, ParityShards(100, 20))
}

func TestPlan(t *testing.T) {
	const U = DefaultShardUnit
	tests := []struct {
		name string
		size int
		pct  int
		want Plan
	}{
		{"empty", 0, 10, Plan{ShardPackets: 1, BlockSize: U, DataShards: 1, ParityShards: 1, DataPackets: 1}},
		{"one byte", 1, 0, Plan{ShardPackets: 1, BlockSize: U, DataShards: 1, ParityShards: 0, DataPackets: 1}},
		{"three packets", 3*U - 10, 20, Plan{ShardPackets: 1, BlockSize: U, DataShards: 3, ParityShards: 1, DataPackets: 3}},
		{"two packets per shard", 300*U + 5, 10, Plan{ShardPackets: 2, BlockSize: 2 * U, DataShards: 151, ParityShards: 16, DataPackets: 301}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DefaultPlanner.Plan(tt.size, tt.pct)
			require.NoError(t, err)
			tt.want.FrameSize = tt.size
			tt.want.Redundancy = tt.pct
			tt.want.Unit = U
			require.Equal(t, tt.want, got)
			require.LessOrEqual(t, got.TotalShards(), MaxGroupShards)
			require.GreaterOrEqual(t, got.PaddingPackets(), 0)
			require.Less(t, got.PaddingPackets(), got.ShardPackets)
		})
	}
}

func TestPlanPackets(t *testing.T) {
	p, err := DefaultPlanner.Plan(300*DefaultShardUnit+5, 10)
	require.NoError(t, err)
	require.Equal(t, 167, p.TotalShards())
	require.Equal(t, 1, p.PaddingPackets())
	require.Equal(t, 301+16*2, p.TotalPackets())

	shard, col := p.Locate(p.FECIndex(150, 1))
	require.Equal(t, 150, shard)
	require.Equal(t, 1, col)
}

func TestPlanInvalid(t *testing.T) {
	_, err := DefaultPlanner.Plan(-1, 0)
	require.ErrorIs(t, err, ErrInvalidPlan)
	_, err = DefaultPlanner.Plan(10, -1)
	require.ErrorIs(t, err, ErrInvalidPlan)
	_, err = DefaultPlanner.Plan(10, MaxRedundancy+1)
	require.ErrorIs(t, err, ErrInvalidPlan)
	_, err = Planner{}.Plan(10, 0)
	require.ErrorIs(t, err, ErrInvalidPlan)
}

// Every plan yields a group the codec accepts.
func TestPlanFitsContext(t *testing.T) {
	for _, pct := range []int{0, 1, 10, 50, 100, 400} {
		for _, size := range []int{0, 1, 5000, 253 * DefaultShardUnit, 1 << 20, 8 << 20} {
			p, err := DefaultPlanner.Plan(size, pct)
			require.NoError(t, err)
			_, err = NewContext(p.DataShards, p.ParityShards)
			require.NoError(t, err, "size=%d pct=%d plan=%+v", size, pct, p)
		}
	}
}
