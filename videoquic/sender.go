package videoquic

import (
	"context"
	"time"

	"github.com/pkg/errors"
	quic "github.com/quic-go/quic-go"

	"github.com/shardfec/shardfec/fec"
	"github.com/shardfec/shardfec/frame"
	"github.com/shardfec/shardfec/internal/config"
	"github.com/shardfec/shardfec/internal/dropper"
)

// Sender packetizes frames and writes every shard as one datagram.
type Sender struct {
	conn    DatagramConn
	pkt     *frame.Packetizer
	metrics *Metrics
	drop    dropper.Dropper
	pace    time.Duration
}

type SenderOption func(*Sender)

// WithDropper discards datagrams chosen by d before they are sent.
func WithDropper(d dropper.Dropper) SenderOption {
	return func(s *Sender) { s.drop = d }
}

// WithPace waits d after every datagram.
func WithPace(d time.Duration) SenderOption {
	return func(s *Sender) { s.pace = d }
}

// NewSender wraps conn. A nil m gets unregistered metrics.
func NewSender(conn DatagramConn, pkt *frame.Packetizer, m *Metrics, opts ...SenderOption) *Sender {
	if m == nil {
		m = NewMetrics(nil)
	}
	s := &Sender{conn: conn, pkt: pkt, metrics: m, drop: dropper.None{}}
	for _, o := range opts {
		o(s)
	}
	m.Redundancy.Set(float64(pkt.Redundancy()))
	return s
}

// SetRedundancy changes the parity percentage for the next frames.
func (s *Sender) SetRedundancy(pct int) error {
	if err := s.pkt.SetRedundancy(pct); err != nil {
		return err
	}
	s.metrics.Redundancy.Set(float64(pct))
	return nil
}

// SendFrame sends all datagrams of f. Datagrams the path cannot carry are
// counted and skipped; any other send error aborts the frame.
func (s *Sender) SendFrame(ctx context.Context, f frame.Frame) error {
	pkts, err := s.pkt.Packetize(f)
	if err != nil {
		return err
	}
	for i, b := range pkts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.drop.Drop() {
			s.metrics.DatagramsDropped.WithLabelValues(DropLoss).Inc()
			continue
		}
		if err := s.conn.SendDatagram(b); err != nil {
			var tooLarge *quic.DatagramTooLargeError
			if errors.As(err, &tooLarge) {
				s.metrics.OversizeDatagrams.Inc()
				log.Warnw("datagram too large", "frame", f.VideoFrameIndex, "size", len(b),
					"max", tooLarge.MaxDatagramPayloadSize)
				continue
			}
			return errors.Wrapf(err, "send frame %d packet %d", f.VideoFrameIndex, i)
		}
		s.metrics.DatagramsSent.Inc()
		if s.pace > 0 {
			if err := sleepCtx(ctx, s.pace); err != nil {
				return err
			}
		}
	}
	s.metrics.FramesSent.Inc()
	return nil
}

// Close closes the underlying connection when it is a QUIC connection.
func (s *Sender) Close() error {
	if c, ok := s.conn.(quic.Connection); ok {
		return c.CloseWithError(0, "done")
	}
	return nil
}

// Dial connects to cfg.Addr and returns a Sender configured from cfg.
func Dial(ctx context.Context, cfg *config.Config, m *Metrics) (*Sender, error) {
	pkt, err := frame.NewPacketizer(cfg.Redundancy, fec.NewCache())
	if err != nil {
		return nil, err
	}
	drop, err := dropper.FromConfig(cfg.Loss, time.Now().UnixNano())
	if err != nil {
		return nil, err
	}
	conn, err := quic.DialAddr(ctx, cfg.Addr, ClientTLSConfig(cfg), QUICConfig(cfg))
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", cfg.Addr)
	}
	log.Infow("connected", "addr", conn.RemoteAddr(), "redundancy", cfg.Redundancy)
	return NewSender(conn, pkt, m, WithDropper(drop), WithPace(cfg.Pace)), nil
}
