package a2dp

// MediaType is the AVDTP media type carried in the upper nibble of byte 1
// of the codec information element.
type MediaType uint8

const (
	// MediaTypeAudio is the only media type A2DP uses.
	MediaTypeAudio MediaType = 0x00

	// MediaTypeVideo is defined by AVDTP for VDP.
	MediaTypeVideo MediaType = 0x01

	// MediaTypeMultimedia is defined by AVDTP.
	MediaTypeMultimedia MediaType = 0x02
)

// String returns a human-readable name for the media type.
func (m MediaType) String() string {
	switch m {
	case MediaTypeAudio:
		return "Audio"
	case MediaTypeVideo:
		return "Video"
	case MediaTypeMultimedia:
		return "Multimedia"
	default:
		return "Unknown"
	}
}

// CodecType is the media codec type from byte 2 of the codec element.
type CodecType uint8

const (
	CodecTypeSBC    CodecType = 0x00
	CodecTypeMPEG12 CodecType = 0x01
	CodecTypeAAC    CodecType = 0x02
	CodecTypeATRAC  CodecType = 0x04
	CodecTypeVendor CodecType = 0xFF
)

// String returns a human-readable name for the codec type.
func (c CodecType) String() string {
	switch c {
	case CodecTypeSBC:
		return "SBC"
	case CodecTypeMPEG12:
		return "MPEG-1,2"
	case CodecTypeAAC:
		return "AAC"
	case CodecTypeATRAC:
		return "ATRAC"
	case CodecTypeVendor:
		return "Vendor"
	default:
		return "Unknown"
	}
}

// SEPType is the type of a stream endpoint: source or sink.
type SEPType uint8

const (
	// SEPTypeSource is an endpoint that sends media.
	SEPTypeSource SEPType = 0x00

	// SEPTypeSink is an endpoint that receives media.
	SEPTypeSink SEPType = 0x01
)

// String returns a human-readable name for the endpoint type.
func (t SEPType) String() string {
	switch t {
	case SEPTypeSource:
		return "Source"
	case SEPTypeSink:
		return "Sink"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the endpoint type is a defined value.
func (t SEPType) IsValid() bool {
	return t == SEPTypeSource || t == SEPTypeSink
}

// Peer returns the endpoint type a stream with this local type connects to.
func (t SEPType) Peer() SEPType {
	if t == SEPTypeSource {
		return SEPTypeSink
	}
	return SEPTypeSource
}

// CodecIndex identifies a local codec implementation. The ordering of the
// values carries no priority; priority is assigned by the catalog.
type CodecIndex int

const (
	CodecIndexSourceSBC CodecIndex = iota
	CodecIndexSourceAAC
	CodecIndexSourceAptX
	CodecIndexSinkSBC
	CodecIndexSinkAAC

	// CodecIndexMax is one past the last defined index.
	CodecIndexMax
)

// String returns a human-readable name for the codec index.
func (i CodecIndex) String() string {
	switch i {
	case CodecIndexSourceSBC:
		return "SBC"
	case CodecIndexSourceAAC:
		return "AAC"
	case CodecIndexSourceAptX:
		return "aptX"
	case CodecIndexSinkSBC:
		return "SBC (Sink)"
	case CodecIndexSinkAAC:
		return "AAC (Sink)"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the codec index is a defined value.
func (i CodecIndex) IsValid() bool {
	return i >= CodecIndexSourceSBC && i < CodecIndexMax
}

// CopyMode is the SCMS-T copy-control mode.
type CopyMode uint8

const (
	// CopyFree permits unrestricted copying. A stream in this mode is not
	// considered protected.
	CopyFree CopyMode = 0

	// CopyOnce permits one generation of copies.
	CopyOnce CopyMode = 1

	// CopyNever forbids copying.
	CopyNever CopyMode = 2
)

// String returns a human-readable name for the copy mode.
func (m CopyMode) String() string {
	switch m {
	case CopyFree:
		return "CopyFree"
	case CopyOnce:
		return "CopyOnce"
	case CopyNever:
		return "CopyNever"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the copy mode is a defined value.
func (m CopyMode) IsValid() bool {
	return m <= CopyNever
}

// Protected returns true if the mode restricts copying.
func (m CopyMode) Protected() bool {
	return m == CopyOnce || m == CopyNever
}
