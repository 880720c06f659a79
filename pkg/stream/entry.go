package stream

import "github.com/backkem/avpolicy/pkg/a2dp"

// Discovery holds the outcome of AVDTP stream endpoint discovery.
type Discovery struct {
	NumSEPs      uint8
	NumSink      uint8
	NumSource    uint8
	PeerAddr     a2dp.BDAddr
	ServiceClass uint16
}

// Config is an accepted stream configuration.
type Config struct {
	// SEP is the peer endpoint the stream is configured against.
	SEP a2dp.SEPRecord

	// LocalType is the local endpoint type; it determines the audio direction.
	LocalType a2dp.SEPType

	// PeerAddr is the peer device address.
	PeerAddr a2dp.BDAddr

	// TransportHandle is the transport layer's stream handle.
	TransportHandle uint8

	// Codec is the negotiated codec element.
	Codec a2dp.CodecInfo

	// Protect holds the negotiated content protection elements.
	Protect []a2dp.ProtectInfo

	// CopyMode is the copy-control mode in effect when Protect holds SCMS-T.
	CopyMode a2dp.CopyMode
}

// Entry is the registry's record for one stream.
//
// Entries returned by the registry are copies; modifying them has no effect
// on the registry.
type Entry struct {
	Handle Handle
	State  State

	// Rejected is set when the most recent configuration failed validation.
	// A rejected stream cannot be opened or started until a configuration is
	// accepted.
	Rejected bool

	Discovery Discovery

	Config

	// ConfigSeq orders accepted configurations across all streams.
	// Zero means the stream was never configured.
	ConfigSeq uint64

	// MTU is the link MTU reported when the transport opened.
	MTU uint16

	// Delay is the most recent peer delay report in 1/10 ms.
	Delay uint16
}

// Direction returns the audio direction of the stream.
func (e *Entry) Direction() a2dp.SEPType {
	return e.LocalType
}

// HasProtection returns true if the stream negotiated SCMS-T.
func (e *Entry) HasProtection() bool {
	_, ok := a2dp.FindProtect(e.Protect, a2dp.ProtectTypeSCMST)
	return ok
}

// ProtectionEnforced returns true if the stream negotiated SCMS-T with a mode
// that restricts copying.
func (e *Entry) ProtectionEnforced() bool {
	return e.HasProtection() && e.CopyMode.Protected()
}

func (e *Entry) clone() Entry {
	out := *e
	out.SEP = e.SEP.Clone()
	out.Codec = e.Codec.Clone()
	out.Protect = a2dp.CloneProtectList(e.Protect)
	return out
}
