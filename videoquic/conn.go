// Package videoquic carries FEC-protected video frames over QUIC datagrams.
package videoquic

import (
	"context"
	"crypto/tls"
	"time"

	logging "github.com/ipfs/go-log/v2"
	quic "github.com/quic-go/quic-go"

	"github.com/shardfec/shardfec/internal/config"
)

var log = logging.Logger("videoquic")

// initialPacketSize lets a full 1400 byte shard datagram fit from the first
// packet on a 1500 byte MTU path.
const initialPacketSize = 1452

//go:generate sh -c "go run go.uber.org/mock/mockgen -package videoquic -destination mock_datagram_conn_test.go github.com/shardfec/shardfec/videoquic DatagramConn"

// DatagramConn is the unreliable datagram side of a connection.
// quic.Connection satisfies it.
type DatagramConn interface {
	SendDatagram(payload []byte) error
	ReceiveDatagram(context.Context) ([]byte, error)
}

var _ DatagramConn = quic.Connection(nil)

// QUICConfig returns the transport settings for cfg.
func QUICConfig(cfg *config.Config) *quic.Config {
	return &quic.Config{
		EnableDatagrams:   true,
		InitialPacketSize: initialPacketSize,
		KeepAlivePeriod:   cfg.KeepAlive,
		MaxIdleTimeout:    cfg.IdleTimeout,
	}
}

// ClientTLSConfig returns the TLS settings used when dialing.
func ClientTLSConfig(cfg *config.Config) *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: cfg.InsecureTLS,
		NextProtos:         []string{cfg.ALPN},
	}
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
