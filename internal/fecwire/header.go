package fecwire

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Version is the only header version understood on the wire.
const Version uint8 = 1

// Header flags.
const (
	FlagParity uint8 = 1 << 0
)

const (
	// HeaderLen is the encoded size of ShardHeader.
	HeaderLen = 1 + 1 + 2 + 4 + 8 + 8 + 8 + 4 + 4
	// MaxPacketSize bounds one datagram, header included.
	MaxPacketSize = 1400
	// MaxPayloadLen is the shard payload carried by a full packet.
	MaxPayloadLen = MaxPacketSize - HeaderLen
)

var (
	ErrShortHeader = errors.New("fecwire: short header")
	ErrBadVersion  = errors.New("fecwire: unsupported header version")
	ErrPayloadLen  = errors.New("fecwire: payload exceeds packet size")
)

// ShardHeader prefixes every video shard datagram.
//
//	VERSION        u8
//	FLAGS          u8
//	REDUNDANCY     u16  parity percentage used for the frame
//	PACKETCOUNTER  u32  per-sender datagram sequence
//	TRACKINGINDEX  u64
//	VIDEOINDEX     u64  frame sequence number
//	SENTTIME       u64  microseconds
//	FRAMESIZE      u32  exact frame length in bytes
//	FECINDEX       u32  shard*shardPackets + column
type ShardHeader struct {
	Version            uint8
	Flags              uint8
	Redundancy         uint16
	PacketCounter      uint32
	TrackingFrameIndex uint64
	VideoFrameIndex    uint64
	SentTimeUs         uint64
	FrameSize          uint32
	FECIndex           uint32
}

// IsParity reports whether the packet carries parity bytes.
func (h *ShardHeader) IsParity() bool { return h.Flags&FlagParity != 0 }

// MarshalBinary encodes h into b, allocating when b is too short, and
// returns the HeaderLen-byte prefix.
func (h *ShardHeader) MarshalBinary(b []byte) []byte {
	if len(b) < HeaderLen {
		b = make([]byte, HeaderLen)
	}
	b[0] = h.Version
	b[1] = h.Flags
	binary.LittleEndian.PutUint16(b[2:4], h.Redundancy)
	binary.LittleEndian.PutUint32(b[4:8], h.PacketCounter)
	binary.LittleEndian.PutUint64(b[8:16], h.TrackingFrameIndex)
	binary.LittleEndian.PutUint64(b[16:24], h.VideoFrameIndex)
	binary.LittleEndian.PutUint64(b[24:32], h.SentTimeUs)
	binary.LittleEndian.PutUint32(b[32:36], h.FrameSize)
	binary.LittleEndian.PutUint32(b[36:40], h.FECIndex)
	return b[:HeaderLen]
}

func (h *ShardHeader) UnmarshalBinary(b []byte) error {
	if len(b) < HeaderLen {
		return errors.Wrapf(ErrShortHeader, "%d bytes", len(b))
	}
	if b[0] != Version {
		return errors.Wrapf(ErrBadVersion, "version %d", b[0])
	}
	h.Version = b[0]
	h.Flags = b[1]
	h.Redundancy = binary.LittleEndian.Uint16(b[2:4])
	h.PacketCounter = binary.LittleEndian.Uint32(b[4:8])
	h.TrackingFrameIndex = binary.LittleEndian.Uint64(b[8:16])
	h.VideoFrameIndex = binary.LittleEndian.Uint64(b[16:24])
	h.SentTimeUs = binary.LittleEndian.Uint64(b[24:32])
	h.FrameSize = binary.LittleEndian.Uint32(b[32:36])
	h.FECIndex = binary.LittleEndian.Uint32(b[36:40])
	return nil
}

// AppendPacket returns a datagram holding h followed by payload.
func AppendPacket(h *ShardHeader, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadLen {
		return nil, errors.Wrapf(ErrPayloadLen, "%d bytes", len(payload))
	}
	b := make([]byte, HeaderLen+len(payload))
	h.MarshalBinary(b)
	copy(b[HeaderLen:], payload)
	return b, nil
}

// Split decodes the header of a datagram and returns the payload that
// follows it. The payload aliases b.
func Split(b []byte) (ShardHeader, []byte, error) {
	var h ShardHeader
	if err := h.UnmarshalBinary(b); err != nil {
		return h, nil, err
	}
	if len(b)-HeaderLen > MaxPayloadLen {
		return h, nil, errors.Wrapf(ErrPayloadLen, "%d bytes", len(b)-HeaderLen)
	}
	return h, b[HeaderLen:], nil
}
