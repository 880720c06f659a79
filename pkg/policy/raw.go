package policy

import (
	"github.com/backkem/avpolicy/pkg/a2dp"
	"github.com/backkem/avpolicy/pkg/selector"
	"github.com/backkem/avpolicy/pkg/stream"
)

// RawSelection is a Selection laid out the way the control state machine
// carries it: a fixed-size codec buffer and a counted protection list.
type RawSelection struct {
	SEPIndex   int
	SEID       uint8
	CodecIndex a2dp.CodecIndex
	Codec      [a2dp.MaxCodecInfoLen]byte
	NumProtect int
	Protect    []byte
}

// RawRequest is an inbound configuration as received from the control
// state machine. Codec may be longer than the element it holds.
type RawRequest struct {
	Codec           []byte
	SEID            uint8
	PeerAddr        a2dp.BDAddr
	NumProtect      int
	Protect         []byte
	TransportHandle uint8
}

// Request decodes r. A malformed codec element decodes to an empty one
// and a malformed protection list to a single empty element, so that
// applying the request rejects it with the matching status.
func (r RawRequest) Request() selector.Request {
	req := selector.Request{
		SEID:            r.SEID,
		PeerAddr:        r.PeerAddr,
		TransportHandle: r.TransportHandle,
	}
	if codec, err := a2dp.ParseCodecInfo(r.Codec); err == nil {
		req.Codec = codec
	}
	if list, err := a2dp.ParseProtectList(r.NumProtect, r.Protect); err == nil {
		req.Protect = list
	} else {
		req.Protect = []a2dp.ProtectInfo{nil}
	}
	return req
}

// NewRawSelection encodes sel.
func NewRawSelection(sel selector.Selection) RawSelection {
	raw := RawSelection{
		SEPIndex:   sel.SEPIndex,
		SEID:       sel.SEID,
		CodecIndex: sel.CodecIndex,
	}
	copy(raw.Codec[:], sel.Codec)
	raw.NumProtect, raw.Protect = a2dp.EncodeProtectList(sel.Protect)
	return raw
}

// GetConfigRaw is GetConfig with the result in wire layout.
func (p *Policy) GetConfigRaw(h stream.Handle, seid uint8) (RawSelection, error) {
	sel, err := p.GetConfig(h, seid)
	if err != nil {
		return RawSelection{}, err
	}
	return NewRawSelection(sel), nil
}

// SetConfigRaw decodes req and applies it like SetConfig.
func (p *Policy) SetConfigRaw(h stream.Handle, req RawRequest) error {
	return p.SetConfig(h, req.Request())
}
