package main

import (
	"bytes"
	"math/rand"

	"github.com/francoispqt/gojay"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/shardfec/shardfec/fec"
	"github.com/shardfec/shardfec/frame"
	"github.com/shardfec/shardfec/internal/config"
	"github.com/shardfec/shardfec/internal/dropper"
	"github.com/shardfec/shardfec/internal/fecwire"
)

type simParams struct {
	Frames     int
	Size       int
	Jitter     float64
	Seed       int64
	Redundancy int
	Loss       config.Loss
}

// simReport is the outcome of one in-memory run.
type simReport struct {
	Model         string
	Redundancy    int
	Frames        int
	Delivered     int
	Lost          int
	Datagrams     int
	Dropped       int
	Reconstructed uint64
	FrameBytes    int
	WireBytes     int
}

func (r *simReport) LossRate() float64 { return ratio(r.Dropped, r.Datagrams) }

func (r *simReport) FrameLossRate() float64 { return ratio(r.Lost, r.Frames) }

// GoodputRatio is delivered frame bytes over bytes put on the wire.
func (r *simReport) GoodputRatio() float64 { return ratio(r.FrameBytes, r.WireBytes) }

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func (r *simReport) MarshalJSONObject(enc *gojay.Encoder) {
	enc.StringKey("model", r.Model)
	enc.IntKey("redundancy", r.Redundancy)
	enc.IntKey("frames", r.Frames)
	enc.IntKey("delivered", r.Delivered)
	enc.IntKey("lost", r.Lost)
	enc.IntKey("datagrams", r.Datagrams)
	enc.IntKey("dropped", r.Dropped)
	enc.Uint64Key("reconstructed_shards", r.Reconstructed)
	enc.Float64Key("loss_rate", r.LossRate())
	enc.Float64Key("frame_loss_rate", r.FrameLossRate())
	enc.Float64Key("goodput_ratio", r.GoodputRatio())
}

func (r *simReport) IsNil() bool { return r == nil }

// simulate pushes random frames through packetizer, loss model and
// assembler without touching the network.
func simulate(p simParams) (*simReport, error) {
	drop, err := dropper.FromConfig(p.Loss, p.Seed)
	if err != nil {
		return nil, err
	}
	cache := fec.NewCache()
	pkt, err := frame.NewPacketizer(p.Redundancy, cache)
	if err != nil {
		return nil, err
	}
	asm := frame.NewAssembler(cache)
	rng := rand.New(rand.NewSource(p.Seed))

	model := p.Loss.Model
	if model == "" {
		model = config.LossNone
	}
	r := &simReport{Model: model, Redundancy: p.Redundancy, Frames: p.Frames}
	for i := 0; i < p.Frames; i++ {
		size := p.Size
		if p.Jitter > 0 {
			size += int(float64(p.Size) * p.Jitter * (2*rng.Float64() - 1))
		}
		data := make([]byte, max(size, 0))
		rng.Read(data)
		f := frame.Frame{VideoFrameIndex: uint64(i), SentTimeUs: uint64(i) * 16667, Data: data}

		pkts, err := pkt.Packetize(f)
		if err != nil {
			return nil, err
		}
		for _, b := range pkts {
			r.Datagrams++
			r.WireBytes += len(b)
			if drop.Drop() {
				r.Dropped++
				continue
			}
			h, payload, err := fecwire.Split(b)
			if err != nil {
				return nil, err
			}
			got, ok, err := asm.Add(h, payload)
			if err != nil {
				return nil, errors.Wrapf(err, "frame %d", i)
			}
			if !ok {
				continue
			}
			if !bytes.Equal(got.Data, f.Data) {
				return nil, errors.Errorf("frame %d reassembled with wrong content", i)
			}
			r.Delivered++
			r.FrameBytes += len(got.Data)
		}
	}
	r.Lost = r.Frames - r.Delivered
	r.Reconstructed = asm.Stats().ShardsReconstructed
	return r, nil
}

func newSimulateCmd(o *options) *cobra.Command {
	var (
		p          simParams
		model      string
		rate       float64
		burstEnter float64
		burstExit  float64
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run frames through a simulated lossy link and print a JSON report",
		Args:  cobra.NoArgs,
	}
	applyRedundancy := redundancyFlag(cmd, o)
	cmd.Flags().IntVar(&p.Frames, "frames", 600, "number of frames")
	cmd.Flags().IntVar(&p.Size, "size", 40000, "mean frame size in bytes")
	cmd.Flags().Float64Var(&p.Jitter, "jitter", 0.25, "relative frame size variation")
	cmd.Flags().Int64Var(&p.Seed, "seed", 1, "random seed")
	cmd.Flags().StringVar(&model, "loss-model", "", "loss model (none, bernoulli, gilbert); defaults to the config")
	cmd.Flags().Float64Var(&rate, "loss-rate", 0, "loss probability")
	cmd.Flags().Float64Var(&burstEnter, "burst-enter", 0, "gilbert good to bad probability")
	cmd.Flags().Float64Var(&burstExit, "burst-exit", 0, "gilbert bad to good probability")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		fl := cmd.Flags()
		if fl.Changed("loss-model") {
			o.cfg.Loss.Model = model
		}
		if fl.Changed("loss-rate") {
			o.cfg.Loss.Rate = rate
		}
		if fl.Changed("burst-enter") {
			o.cfg.Loss.BurstEnter = burstEnter
		}
		if fl.Changed("burst-exit") {
			o.cfg.Loss.BurstExit = burstExit
		}
		if err := applyRedundancy(); err != nil {
			return err
		}
		if p.Frames < 0 || p.Size < 0 {
			return errors.New("frames and size must not be negative")
		}
		p.Redundancy = o.cfg.Redundancy
		p.Loss = o.cfg.Loss

		r, err := simulate(p)
		if err != nil {
			return err
		}
		b, err := gojay.MarshalJSONObject(r)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(append(b, '\n'))
		return err
	}
	return cmd
}
