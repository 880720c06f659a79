package a2dp

// Codec is a local codec implementation that takes part in stream
// configuration. Implementations are immutable and safe for concurrent use.
type Codec interface {
	// Index identifies the codec implementation.
	Index() CodecIndex

	// Name returns a human-readable codec name.
	Name() string

	// Type returns the local endpoint type this codec serves.
	Type() SEPType

	// Capability returns the local capability element advertised to peers.
	Capability() CodecInfo

	// Matches returns true if info describes this codec (codec type, and for
	// vendor codecs the vendor and codec ids). Parameters are not checked.
	Matches(info CodecInfo) bool

	// Select intersects the peer capability element with the local
	// capability and returns one fully specified configuration.
	// Returns a Status error naming the first field with an empty
	// intersection.
	Select(peer CodecInfo) (CodecInfo, error)

	// Validate checks an inbound configuration against the local capability.
	// Returns a Status error on rejection.
	Validate(cfg CodecInfo) error

	// UsesMediaHeader returns true if media packets for this codec carry the
	// RTP media header. cpActive reports whether content protection is in
	// effect for the stream.
	UsesMediaHeader(cpActive bool) bool

	// SampleRate returns the sampling frequency selected by cfg in Hz,
	// or 0 if cfg does not select exactly one.
	SampleRate(cfg CodecInfo) uint32

	// FrameSamples returns the PCM samples per channel covered by an
	// encoded frame of payloadLen bytes under cfg, or 0 if unknown.
	FrameSamples(cfg CodecInfo, payloadLen int) uint32
}

// NewDefaultCodec returns the implementation for index with the default
// local capabilities. Returns false for unknown indices.
func NewDefaultCodec(index CodecIndex) (Codec, bool) {
	switch index {
	case CodecIndexSourceSBC:
		return NewSBC(index, SEPTypeSource, DefaultSBCSourceCaps), true
	case CodecIndexSinkSBC:
		return NewSBC(index, SEPTypeSink, DefaultSBCSinkCaps), true
	case CodecIndexSourceAAC:
		return NewAAC(index, SEPTypeSource, DefaultAACSourceCaps), true
	case CodecIndexSinkAAC:
		return NewAAC(index, SEPTypeSink, DefaultAACSinkCaps), true
	case CodecIndexSourceAptX:
		return NewAptX(index, DefaultAptXCaps), true
	default:
		return nil, false
	}
}

// timingCodecs parse configurations for frame timing. Only field decoding
// is used, so the capabilities are irrelevant.
var timingCodecs = []Codec{
	NewSBC(CodecIndexSourceSBC, SEPTypeSource, DefaultSBCSourceCaps),
	NewAAC(CodecIndexSourceAAC, SEPTypeSource, DefaultAACSourceCaps),
	NewAptX(CodecIndexSourceAptX, DefaultAptXCaps),
}

// FrameTiming returns the samples per channel of an encoded frame and the
// sampling frequency for a configuration. Both are 0 for codecs the package
// does not implement.
func FrameTiming(cfg CodecInfo, payloadLen int) (samples, rate uint32) {
	for _, c := range timingCodecs {
		if c.Matches(cfg) {
			return c.FrameSamples(cfg, payloadLen), c.SampleRate(cfg)
		}
	}
	return 0, 0
}
