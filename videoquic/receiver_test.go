package videoquic

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"

	"github.com/shardfec/shardfec/fec"
	"github.com/shardfec/shardfec/frame"
	"github.com/shardfec/shardfec/internal/config"
	"github.com/shardfec/shardfec/internal/fecwire"
)

// pipeConn is an in-memory DatagramConn: what is sent is received.
type pipeConn struct {
	ch chan []byte
}

func newPipeConn() *pipeConn { return &pipeConn{ch: make(chan []byte, 1024)} }

func (p *pipeConn) SendDatagram(b []byte) error {
	select {
	case p.ch <- append([]byte(nil), b...):
		return nil
	default:
		return errors.New("pipe full")
	}
}

func (p *pipeConn) ReceiveDatagram(ctx context.Context) ([]byte, error) {
	select {
	case b := <-p.ch:
		return b, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func runReceiver(ctx context.Context, r *Receiver) (<-chan frame.Frame, <-chan error) {
	frames := make(chan frame.Frame, 64)
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, func(f frame.Frame) { frames <- f }) }()
	return frames, done
}

func TestPipeRoundtripWithLoss(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := newPipeConn()
	sm, rm := NewMetrics(nil), NewMetrics(nil)
	// Each frame is 8 data + 2 parity datagrams; this loses data packet 4
	// of every frame.
	s := NewSender(conn, newPacketizer(t, 25), sm, WithDropper(&everyNth{n: 10, i: 5}))
	r := NewReceiver(conn, fec.NewCache(), rm)

	ctx, cancel := context.WithCancel(context.Background())
	frames, done := runReceiver(ctx, r)

	var sent []frame.Frame
	for i := uint64(1); i <= 5; i++ {
		f := testFrame(i, 8*fecwire.MaxPayloadLen)
		sent = append(sent, f)
		require.NoError(t, s.SendFrame(ctx, f))
	}
	for _, want := range sent {
		select {
		case got := <-frames:
			require.Equal(t, want.VideoFrameIndex, got.VideoFrameIndex)
			require.Equal(t, want.SentTimeUs, got.SentTimeUs)
			require.Equal(t, want.Data, got.Data)
		case <-time.After(5 * time.Second):
			t.Fatalf("frame %d not delivered", want.VideoFrameIndex)
		}
	}
	cancel()
	require.NoError(t, <-done)

	require.Equal(t, 5.0, testutil.ToFloat64(sm.DatagramsDropped.WithLabelValues(DropLoss)))
	require.Equal(t, 45.0, testutil.ToFloat64(rm.DatagramsReceived))
	require.Equal(t, 5.0, testutil.ToFloat64(rm.FramesReceived))
	require.Zero(t, testutil.ToFloat64(rm.FramesLost))
	require.Equal(t, 5.0, testutil.ToFloat64(rm.PacketsLost))
	require.Equal(t, 5.0, testutil.ToFloat64(rm.ShardsReconstructed))
	require.EqualValues(t, 5, r.Stats().FramesDelivered)
}

func TestReceiverCountsInvalidDatagrams(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := newPipeConn()
	m := NewMetrics(nil)
	r := NewReceiver(conn, nil, m)

	require.NoError(t, conn.SendDatagram([]byte("short")))
	bad := (&fecwire.ShardHeader{Version: fecwire.Version, FrameSize: 10, FECIndex: 99}).MarshalBinary(nil)
	require.NoError(t, conn.SendDatagram(bad))

	ctx, cancel := context.WithCancel(context.Background())
	_, done := runReceiver(ctx, r)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.DatagramsReceived) == 2
	}, 5*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	require.Equal(t, 2.0, testutil.ToFloat64(m.DatagramsDropped.WithLabelValues(DropInvalid)))
}

func TestReceiverConnectionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	conn := NewMockDatagramConn(ctrl)
	boom := errors.New("peer went away")
	conn.EXPECT().ReceiveDatagram(gomock.Any()).Return(nil, boom)

	err := NewReceiver(conn, nil, nil).Run(context.Background(), func(frame.Frame) {
		t.Fatal("unexpected frame")
	})
	require.ErrorIs(t, err, boom)
}

func TestQUICLoopback(t *testing.T) {
	if testing.Short() {
		t.Skip("opens UDP sockets")
	}
	tlsConf, err := GenerateServerTLSConfig("shardfec-test")
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Listen = "127.0.0.1:0"
	cfg.ALPN = "shardfec-test"
	cfg.Redundancy = 50

	ln, err := Listen(cfg, tlsConf)
	require.NoError(t, err)
	cfg.Addr = ln.Addr().String()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	srvCtx, stop := context.WithCancel(ctx)
	frames := make(chan frame.Frame, 16)
	served := make(chan error, 1)
	go func() {
		served <- ServeListener(srvCtx, ln, NewMetrics(nil), func(f frame.Frame) { frames <- f })
	}()

	m := NewMetrics(nil)
	s, err := Dial(ctx, cfg, m)
	require.NoError(t, err)
	defer s.Close()

	for i := uint64(1); i <= 3; i++ {
		f := testFrame(i, 3000)
		require.NoError(t, s.SendFrame(ctx, f))
		select {
		case got := <-frames:
			require.Equal(t, f.VideoFrameIndex, got.VideoFrameIndex)
			require.Equal(t, f.Data, got.Data)
		case <-ctx.Done():
			t.Fatalf("frame %d not delivered", i)
		}
	}
	require.Zero(t, testutil.ToFloat64(m.OversizeDatagrams))

	stop()
	require.NoError(t, <-served)
}
