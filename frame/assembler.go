package frame

import (
	"github.com/pkg/errors"

	"github.com/shardfec/shardfec/fec"
	"github.com/shardfec/shardfec/internal/fecwire"
)

// MaxFrameSize bounds the frame size a header may announce.
const MaxFrameSize = 64 << 20

var (
	ErrFrameSize      = errors.New("frame: announced frame size too large")
	ErrFECIndex       = errors.New("frame: fec index out of range")
	ErrHeaderMismatch = errors.New("frame: header disagrees with frame in progress")
	ErrPayloadSize    = errors.New("frame: unexpected payload size")
)

// Stats counts what an Assembler has seen.
type Stats struct {
	FramesDelivered     uint64
	FramesLost          uint64
	PacketsReceived     uint64
	// PacketsLost is net of late arrivals, so it can decrease between
	// snapshots; Sub then wraps and the delta reads as negative via int64.
	PacketsLost         uint64
	PacketsDuplicate    uint64
	PacketsStale        uint64
	ShardsReconstructed uint64
	ReconstructFailures uint64
}

// Sub returns the counters accumulated since prev.
func (s Stats) Sub(prev Stats) Stats {
	return Stats{
		FramesDelivered:     s.FramesDelivered - prev.FramesDelivered,
		FramesLost:          s.FramesLost - prev.FramesLost,
		PacketsReceived:     s.PacketsReceived - prev.PacketsReceived,
		PacketsLost:         s.PacketsLost - prev.PacketsLost,
		PacketsDuplicate:    s.PacketsDuplicate - prev.PacketsDuplicate,
		PacketsStale:        s.PacketsStale - prev.PacketsStale,
		ShardsReconstructed: s.ShardsReconstructed - prev.ShardsReconstructed,
		ReconstructFailures: s.ReconstructFailures - prev.ReconstructFailures,
	}
}

// pending is the frame currently being collected.
type pending struct {
	index uint64
	hdr   fecwire.ShardHeader
	plan  fec.Plan
	ctx   *fec.Context
	buf   []byte
	// received is indexed by fec index; padding packets start out set.
	received []bool
	colCount []int
	colDone  []bool
	doneCols int
	done     bool
}

// Assembler collects shard datagrams of the newest frame and rebuilds it
// once every packet column can be decoded. It is not safe for concurrent
// use; one Assembler serves one packet stream.
type Assembler struct {
	cache *fec.Cache
	cur   *pending

	haveCounter bool
	lastCounter uint32
	// gaps has bit i set while counter lastCounter-i is counted lost.
	gaps uint64

	stats Stats
}

// NewAssembler returns an empty Assembler. A nil cache gets a private one.
func NewAssembler(cache *fec.Cache) *Assembler {
	if cache == nil {
		cache = fec.NewCache()
	}
	return &Assembler{cache: cache}
}

func (a *Assembler) Stats() Stats { return a.stats }

// Add feeds one datagram. It returns the frame and true when this packet
// completed it; a frame is returned at most once.
func (a *Assembler) Add(h fecwire.ShardHeader, payload []byte) (Frame, bool, error) {
	a.stats.PacketsReceived++

	if a.cur == nil || h.VideoFrameIndex > a.cur.index {
		// A header that cannot start a frame leaves the current one alone.
		p, err := a.start(h)
		if err != nil {
			return Frame{}, false, err
		}
		if a.cur != nil {
			a.abandon(h.VideoFrameIndex)
		}
		a.cur = p
	}
	a.trackCounter(h.PacketCounter)
	if h.VideoFrameIndex < a.cur.index {
		a.stats.PacketsStale++
		return Frame{}, false, nil
	}

	p := a.cur
	if p.done {
		// surplus packet of a frame already delivered
		return Frame{}, false, nil
	}
	if h.FrameSize != p.hdr.FrameSize || h.Redundancy != p.hdr.Redundancy {
		return Frame{}, false, errors.Wrapf(ErrHeaderMismatch, "frame %d: size %d/%d redundancy %d/%d",
			p.index, h.FrameSize, p.hdr.FrameSize, h.Redundancy, p.hdr.Redundancy)
	}
	fi := int(h.FECIndex)
	if fi >= len(p.received) {
		return Frame{}, false, errors.Wrapf(ErrFECIndex, "frame %d index %d of %d", p.index, fi, len(p.received))
	}
	shard, col := p.plan.Locate(fi)
	if err := checkPayload(p.plan, fi, shard, len(payload)); err != nil {
		return Frame{}, false, errors.Wrapf(err, "frame %d index %d", p.index, fi)
	}
	if p.received[fi] {
		a.stats.PacketsDuplicate++
		return Frame{}, false, nil
	}

	copy(p.buf[shard*p.plan.BlockSize+col*p.plan.Unit:], payload)
	p.received[fi] = true
	p.colCount[col]++

	if !p.colDone[col] && p.colCount[col] >= p.plan.DataShards {
		if err := a.recoverColumn(p, col); err != nil {
			return Frame{}, false, err
		}
	}
	if p.doneCols < p.plan.ShardPackets {
		return Frame{}, false, nil
	}
	p.done = true
	a.stats.FramesDelivered++
	return Frame{
		VideoFrameIndex:    p.index,
		TrackingFrameIndex: p.hdr.TrackingFrameIndex,
		SentTimeUs:         p.hdr.SentTimeUs,
		Data:               p.buf[:p.plan.FrameSize],
	}, true, nil
}

// trackCounter counts skipped packet counters as lost. A late packet within
// the last 64 counters takes its loss back.
func (a *Assembler) trackCounter(c uint32) {
	if !a.haveCounter {
		a.haveCounter = true
		a.lastCounter = c
		return
	}
	switch d := c - a.lastCounter; {
	case d == 0:
	case d < 1<<31:
		a.stats.PacketsLost += uint64(d - 1)
		if d >= 64 {
			a.gaps = 0
		} else {
			a.gaps <<= d
		}
		for i := uint32(1); i < d && i < 64; i++ {
			a.gaps |= 1 << i
		}
		a.lastCounter = c
	default:
		back := a.lastCounter - c
		if back < 64 && a.gaps&(1<<back) != 0 {
			a.gaps &^= 1 << back
			a.stats.PacketsLost--
		}
	}
}

// abandon drops the frame in progress in favour of next, counting it and any
// skipped frame indices as lost.
func (a *Assembler) abandon(next uint64) {
	if !a.cur.done {
		a.stats.FramesLost++
		log.Debugw("frame lost", "frame", a.cur.index, "columns", a.cur.doneCols, "of", a.cur.plan.ShardPackets)
	}
	a.stats.FramesLost += next - a.cur.index - 1
}

func (a *Assembler) start(h fecwire.ShardHeader) (*pending, error) {
	if h.FrameSize > MaxFrameSize {
		return nil, errors.Wrapf(ErrFrameSize, "frame %d: %d bytes", h.VideoFrameIndex, h.FrameSize)
	}
	plan, err := Planner.Plan(int(h.FrameSize), int(h.Redundancy))
	if err != nil {
		return nil, err
	}
	ctx, err := a.cache.Get(plan.DataShards, plan.ParityShards)
	if err != nil {
		return nil, err
	}
	total := plan.TotalShards() * plan.ShardPackets
	p := &pending{
		index:    h.VideoFrameIndex,
		hdr:      h,
		plan:     plan,
		ctx:      ctx,
		buf:      make([]byte, plan.TotalShards()*plan.BlockSize),
		received: make([]bool, total),
		colCount: make([]int, plan.ShardPackets),
		colDone:  make([]bool, plan.ShardPackets),
	}
	for fi := plan.DataPackets; fi < plan.DataShards*plan.ShardPackets; fi++ {
		p.received[fi] = true
		p.colCount[fi%plan.ShardPackets]++
	}
	return p, nil
}

// checkPayload enforces that data packets stop at the frame end and every
// other packet carries a full unit.
func checkPayload(plan fec.Plan, fi, shard, n int) error {
	want := plan.Unit
	if shard < plan.DataShards {
		if fi >= plan.DataPackets {
			return errors.Wrap(ErrFECIndex, "padding packet")
		}
		want = min(plan.Unit, plan.FrameSize-fi*plan.Unit)
	}
	if n != want {
		return errors.Wrapf(ErrPayloadSize, "got %d, want %d", n, want)
	}
	return nil
}

// recoverColumn rebuilds the missing packets of one column. RS is linear
// per byte position, so each column decodes on its own with shard size Unit.
func (a *Assembler) recoverColumn(p *pending, col int) error {
	plan := p.plan
	shards := make([][]byte, plan.TotalShards())
	missing := make([]bool, plan.TotalShards())
	lost := 0
	for s := range shards {
		off := s*plan.BlockSize + col*plan.Unit
		shards[s] = p.buf[off : off+plan.Unit]
		missing[s] = !p.received[plan.FECIndex(s, col)]
		if missing[s] && s < plan.DataShards {
			lost++
		}
	}
	if err := p.ctx.Reconstruct(shards, missing); err != nil {
		a.stats.ReconstructFailures++
		log.Warnw("column reconstruct failed", "frame", p.index, "column", col, "err", err)
		return errors.Wrapf(err, "frame %d column %d", p.index, col)
	}
	a.stats.ShardsReconstructed += uint64(lost)
	p.colDone[col] = true
	p.doneCols++
	return nil
}
