// Package frame turns video frames into FEC shard datagrams and back.
package frame

import (
	"sync"

	logging "github.com/ipfs/go-log/v2"
	"github.com/pkg/errors"

	"github.com/shardfec/shardfec/fec"
	"github.com/shardfec/shardfec/internal/fecwire"
)

var log = logging.Logger("frame")

// Frame is one encoded video frame.
type Frame struct {
	VideoFrameIndex    uint64
	TrackingFrameIndex uint64
	SentTimeUs         uint64
	Data               []byte
}

// Planner sizes shards so that every shard column fits one datagram payload.
var Planner = fec.Planner{Unit: fecwire.MaxPayloadLen}

// Packetizer splits frames into data and parity datagrams. It is safe for
// concurrent use; the packet counter is shared by all frames.
type Packetizer struct {
	cache *fec.Cache

	mu         sync.Mutex
	redundancy int
	counter    uint32
}

// NewPacketizer returns a Packetizer sending at the given redundancy
// percentage. A nil cache gets a private one.
func NewPacketizer(redundancy int, cache *fec.Cache) (*Packetizer, error) {
	if cache == nil {
		cache = fec.NewCache()
	}
	p := &Packetizer{cache: cache}
	if err := p.SetRedundancy(redundancy); err != nil {
		return nil, err
	}
	return p, nil
}

// SetRedundancy changes the parity percentage used for subsequent frames.
func (p *Packetizer) SetRedundancy(pct int) error {
	if pct < 0 || pct > fec.MaxRedundancy {
		return errors.Wrapf(fec.ErrInvalidPlan, "redundancy %d", pct)
	}
	p.mu.Lock()
	p.redundancy = pct
	p.mu.Unlock()
	return nil
}

func (p *Packetizer) Redundancy() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.redundancy
}

// Packetize encodes f and returns its datagrams in send order: data packets
// first, then every parity packet. The padding packets at the end of the
// last data shard are not emitted.
func (p *Packetizer) Packetize(f Frame) ([][]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	plan, err := Planner.Plan(len(f.Data), p.redundancy)
	if err != nil {
		return nil, err
	}
	ctx, err := p.cache.Get(plan.DataShards, plan.ParityShards)
	if err != nil {
		return nil, errors.Wrapf(err, "frame %d", f.VideoFrameIndex)
	}

	buf := make([]byte, plan.TotalShards()*plan.BlockSize)
	copy(buf, f.Data)
	shards := make([][]byte, plan.TotalShards())
	for i := range shards {
		shards[i] = buf[i*plan.BlockSize : (i+1)*plan.BlockSize]
	}
	if err := ctx.Encode(shards); err != nil {
		return nil, err
	}

	hdr := fecwire.ShardHeader{
		Version:            fecwire.Version,
		Redundancy:         uint16(plan.Redundancy),
		TrackingFrameIndex: f.TrackingFrameIndex,
		VideoFrameIndex:    f.VideoFrameIndex,
		SentTimeUs:         f.SentTimeUs,
		FrameSize:          uint32(plan.FrameSize),
	}
	out := make([][]byte, 0, plan.TotalPackets())
	emit := func(fecIndex int, payload []byte) error {
		hdr.PacketCounter = p.counter
		hdr.FECIndex = uint32(fecIndex)
		pkt, err := fecwire.AppendPacket(&hdr, payload)
		if err != nil {
			return err
		}
		p.counter++
		out = append(out, pkt)
		return nil
	}

	// Shards are contiguous in buf, so data packet k starts at k*Unit.
	for k := 0; k < plan.DataPackets; k++ {
		start := k * plan.Unit
		end := min(start+plan.Unit, plan.FrameSize)
		if err := emit(k, buf[start:end]); err != nil {
			return nil, err
		}
	}
	hdr.Flags |= fecwire.FlagParity
	for s := plan.DataShards; s < plan.TotalShards(); s++ {
		for c := 0; c < plan.ShardPackets; c++ {
			off := s*plan.BlockSize + c*plan.Unit
			if err := emit(plan.FECIndex(s, c), buf[off:off+plan.Unit]); err != nil {
				return nil, err
			}
		}
	}
	log.Debugw("frame packetized", "frame", f.VideoFrameIndex, "size", plan.FrameSize,
		"data", plan.DataShards, "parity", plan.ParityShards, "packets", len(out))
	return out, nil
}
