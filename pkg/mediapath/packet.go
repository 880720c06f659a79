package mediapath

import (
	"github.com/backkem/avpolicy/pkg/a2dp"
	"github.com/pion/rtp"
)

// DefaultPayloadType is the dynamic RTP payload type used for media packets.
const DefaultPayloadType uint8 = 96

// SCMS-T content protection header bits (A2DP 1.3 Section 3.2.1.2).
const (
	scmstCopyNever uint8 = 0x01
	scmstCopyOnce  uint8 = 0x02
	scmstCopyFree  uint8 = 0x00
)

// maxSBCFrames is the frame count field width of the SBC payload header.
const maxSBCFrames = 0x0F

// Packet is a decoded media packet.
type Packet struct {
	// Header is set when the packet carries a media header.
	Header *rtp.Header

	// Protect is the SCMS-T header byte, when present.
	Protect *uint8

	// Frames is the SBC frame count, when the payload header is present.
	Frames int

	// Payload is the encoded media.
	Payload []byte
}

// Layout describes how a stream's media packets are built.
type Layout struct {
	// MediaHeader adds the RTP media header.
	MediaHeader bool

	// Protect adds the SCMS-T content protection header.
	Protect bool

	// CodecType selects the codec payload header; SBC frames carry a
	// one-byte frame count.
	CodecType a2dp.CodecType
}

// NewLayout returns the layout for a stream configured with codec.
func NewLayout(codec a2dp.CodecInfo, mediaHeader, protect bool) Layout {
	return Layout{
		MediaHeader: mediaHeader,
		Protect:     protect,
		CodecType:   codec.CodecType(),
	}
}

// overhead returns the bytes added around the payload, excluding RTP.
func (l Layout) overhead() int {
	n := 0
	if l.Protect {
		n++
	}
	if l.CodecType == a2dp.CodecTypeSBC {
		n++
	}
	return n
}

func scmstHeader(mode a2dp.CopyMode) uint8 {
	switch mode {
	case a2dp.CopyOnce:
		return scmstCopyOnce
	case a2dp.CopyNever:
		return scmstCopyNever
	default:
		return scmstCopyFree
	}
}

// build assembles the packet payload behind the optional RTP header.
func (l Layout) build(payload []byte, mode a2dp.CopyMode) []byte {
	out := make([]byte, 0, l.overhead()+len(payload))
	if l.Protect {
		out = append(out, scmstHeader(mode))
	}
	if l.CodecType == a2dp.CodecTypeSBC {
		out = append(out, 1)
	}
	return append(out, payload...)
}

// Parse decodes a media packet built with layout l.
func (l Layout) Parse(b []byte) (Packet, error) {
	var p Packet
	if l.MediaHeader {
		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(b); err != nil {
			return Packet{}, err
		}
		p.Header = &pkt.Header
		b = pkt.Payload
	}
	if len(b) < l.overhead() {
		return Packet{}, ErrShortPacket
	}
	if l.Protect {
		v := b[0]
		p.Protect = &v
		b = b[1:]
	}
	if l.CodecType == a2dp.CodecTypeSBC {
		p.Frames = int(b[0] & maxSBCFrames)
		b = b[1:]
	}
	p.Payload = b
	return p, nil
}
