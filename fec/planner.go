package fec

import "github.com/pkg/errors"

const (
	// MaxGroupShards is the data+parity ceiling of one coding group.
	MaxGroupShards = MaxShards

	// reservedShards keeps the data-shard budget two below the ceiling at
	// zero redundancy.
	reservedShards = 2

	// DefaultShardUnit is the largest shard payload carried by one packet.
	DefaultShardUnit = 1360

	// MaxRedundancy is the highest percentage for which a one-data-shard
	// group still fits under MaxGroupShards.
	MaxRedundancy = (MaxGroupShards - 1) * 100
)

// ParityShards returns ceil(dataShards * percentage / 100).
func ParityShards(dataShards, percentage int) int {
	return (dataShards*percentage + 99) / 100
}

// MaxDataShards returns how many data shards one group may hold at the given
// redundancy percentage while leaving room for its parity.
func MaxDataShards(percentage int) int {
	if percentage < 0 {
		percentage = 0
	}
	d := ((MaxGroupShards-reservedShards)*100 + 99 + percentage) / (100 + percentage)
	for d > 1 && d+ParityShards(d, percentage) > MaxGroupShards {
		d--
	}
	if d < 1 {
		d = 1
	}
	return d
}

// Planner maps frame sizes to shard layouts for a given per-packet payload.
type Planner struct {
	// Unit is the shard payload carried by one packet.
	Unit int
}

// DefaultPlanner uses DefaultShardUnit.
var DefaultPlanner = Planner{Unit: DefaultShardUnit}

// ShardPacketCount returns how many packets make up one shard so that a
// payload of size bytes fits in a single coding group at the given
// redundancy. A shard is always at least one packet, even for size 0.
func (p Planner) ShardPacketCount(size, percentage int) int {
	if size < 0 {
		size = 0
	}
	maxData := MaxDataShards(percentage)
	minBlockSize := (size + maxData - 1) / maxData
	packets := (minBlockSize + p.Unit - 1) / p.Unit
	if packets < 1 {
		packets = 1
	}
	return packets
}

// ShardPacketCount uses DefaultPlanner.
func ShardPacketCount(size, percentage int) int {
	return DefaultPlanner.ShardPacketCount(size, percentage)
}

// Plan describes how one frame is split into shards and packets.
type Plan struct {
	FrameSize  int
	Redundancy int
	Unit       int
	// ShardPackets is the number of packets per shard.
	ShardPackets int
	// BlockSize is the shard length, ShardPackets*Unit.
	BlockSize    int
	DataShards   int
	ParityShards int
	// DataPackets is the number of data packets actually sent; the rest of
	// the last data shard is zero padding.
	DataPackets int
}

// Plan lays out a frame of size bytes at the given redundancy percentage.
func (p Planner) Plan(size, percentage int) (Plan, error) {
	if size < 0 || percentage < 0 || percentage > MaxRedundancy {
		return Plan{}, errors.Wrapf(ErrInvalidPlan, "size=%d redundancy=%d", size, percentage)
	}
	if p.Unit <= 0 {
		return Plan{}, errors.Wrapf(ErrInvalidPlan, "unit=%d", p.Unit)
	}
	sp := p.ShardPacketCount(size, percentage)
	plan := Plan{
		FrameSize:    size,
		Redundancy:   percentage,
		Unit:         p.Unit,
		ShardPackets: sp,
		BlockSize:    sp * p.Unit,
	}
	plan.DataShards = max(1, (size+plan.BlockSize-1)/plan.BlockSize)
	plan.DataPackets = max(1, (size+p.Unit-1)/p.Unit)
	plan.ParityShards = ParityShards(plan.DataShards, percentage)
	return plan, nil
}

func (p Plan) TotalShards() int { return p.DataShards + p.ParityShards }

// TotalPackets is the number of packets put on the wire for the frame.
func (p Plan) TotalPackets() int { return p.DataPackets + p.ParityShards*p.ShardPackets }

// PaddingPackets is the number of never-sent packets at the end of the last
// data shard.
func (p Plan) PaddingPackets() int { return p.DataShards*p.ShardPackets - p.DataPackets }

// FECIndex returns the wire index of packet column col of shard.
func (p Plan) FECIndex(shard, col int) int { return shard*p.ShardPackets + col }

// Locate splits a wire index into its shard and packet column.
func (p Plan) Locate(fecIndex int) (shard, col int) {
	return fecIndex / p.ShardPackets, fecIndex % p.ShardPackets
}
