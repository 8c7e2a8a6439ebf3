package videoquic

import (
	"context"
	"crypto/tls"

	"github.com/pkg/errors"
	quic "github.com/quic-go/quic-go"
	"golang.org/x/sync/errgroup"

	"github.com/shardfec/shardfec/fec"
	"github.com/shardfec/shardfec/frame"
	"github.com/shardfec/shardfec/internal/config"
	"github.com/shardfec/shardfec/internal/fecwire"
)

// DeliverFunc receives every reassembled frame. Serve calls it from one
// goroutine per connection.
type DeliverFunc func(frame.Frame)

// Receiver reads shard datagrams from one connection and reassembles frames.
type Receiver struct {
	conn    DatagramConn
	asm     *frame.Assembler
	metrics *Metrics
	last    frame.Stats
}

// NewReceiver wraps conn. A nil m gets unregistered metrics.
func NewReceiver(conn DatagramConn, cache *fec.Cache, m *Metrics) *Receiver {
	if m == nil {
		m = NewMetrics(nil)
	}
	return &Receiver{conn: conn, asm: frame.NewAssembler(cache), metrics: m}
}

// Run receives until ctx is done, which returns nil, or the connection
// fails. Malformed datagrams are counted and skipped.
func (r *Receiver) Run(ctx context.Context, deliver DeliverFunc) error {
	for {
		b, err := r.conn.ReceiveDatagram(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "receive datagram")
		}
		r.metrics.DatagramsReceived.Inc()

		h, payload, err := fecwire.Split(b)
		if err != nil {
			r.metrics.DatagramsDropped.WithLabelValues(DropInvalid).Inc()
			log.Debugw("bad datagram", "len", len(b), "err", err)
			continue
		}
		f, ok, err := r.asm.Add(h, payload)
		r.observe()
		if err != nil {
			r.metrics.DatagramsDropped.WithLabelValues(DropInvalid).Inc()
			log.Debugw("rejected shard", "frame", h.VideoFrameIndex, "fec_index", h.FECIndex, "err", err)
			continue
		}
		if ok {
			deliver(f)
		}
	}
}

func (r *Receiver) observe() {
	st := r.asm.Stats()
	r.metrics.observe(st.Sub(r.last))
	r.last = st
}

// Stats returns the assembler counters. Call it only after Run returned.
func (r *Receiver) Stats() frame.Stats { return r.asm.Stats() }

// Listen opens the QUIC listener for cfg.Listen.
func Listen(cfg *config.Config, tlsConf *tls.Config) (*quic.Listener, error) {
	if tlsConf == nil {
		return nil, errors.New("tls config required")
	}
	ln, err := quic.ListenAddr(cfg.Listen, tlsConf, QUICConfig(cfg))
	if err != nil {
		return nil, errors.Wrapf(err, "listen %s", cfg.Listen)
	}
	return ln, nil
}

// ServeListener accepts connections until ctx is done and runs one Receiver
// per connection. It closes ln before returning.
func ServeListener(ctx context.Context, ln *quic.Listener, m *Metrics, deliver DeliverFunc) error {
	defer ln.Close()
	if m == nil {
		m = NewMetrics(nil)
	}
	cache := fec.NewCache()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		for {
			conn, err := ln.Accept(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return errors.Wrap(err, "accept")
			}
			log.Infow("accepted connection", "remote", conn.RemoteAddr())
			g.Go(func() error {
				defer conn.CloseWithError(0, "")
				err := NewReceiver(conn, cache, m).Run(ctx, deliver)
				if err != nil {
					// A peer closing its connection ends only that receiver.
					log.Infow("connection closed", "remote", conn.RemoteAddr(), "err", err)
				}
				return nil
			})
		}
	})
	return g.Wait()
}

// Serve listens on cfg.Listen and serves until ctx is done.
func Serve(ctx context.Context, cfg *config.Config, tlsConf *tls.Config, m *Metrics, deliver DeliverFunc) error {
	ln, err := Listen(cfg, tlsConf)
	if err != nil {
		return err
	}
	log.Infow("listening", "addr", ln.Addr())
	return ServeListener(ctx, ln, m, deliver)
}
