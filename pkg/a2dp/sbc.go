package a2dp

// SBC codec specific information field bits (A2DP 1.3 Section 4.3.2).
const (
	SBCSampleFreq16   uint8 = 0x80
	SBCSampleFreq32   uint8 = 0x40
	SBCSampleFreq44   uint8 = 0x20
	SBCSampleFreq48   uint8 = 0x10
	sbcSampleFreqMask uint8 = 0xF0

	SBCChannelMono   uint8 = 0x08
	SBCChannelDual   uint8 = 0x04
	SBCChannelStereo uint8 = 0x02
	SBCChannelJoint  uint8 = 0x01
	sbcChannelMask   uint8 = 0x0F

	SBCBlock4    uint8 = 0x80
	SBCBlock8    uint8 = 0x40
	SBCBlock12   uint8 = 0x20
	SBCBlock16   uint8 = 0x10
	sbcBlockMask uint8 = 0xF0

	SBCSubbands4    uint8 = 0x08
	SBCSubbands8    uint8 = 0x04
	sbcSubbandsMask uint8 = 0x0C

	SBCAllocSNR      uint8 = 0x02
	SBCAllocLoudness uint8 = 0x01
	sbcAllocMask     uint8 = 0x03

	SBCMinBitpool uint8 = 2
	SBCMaxBitpool uint8 = 250

	sbcInfoLen = 4
)

// Preference orders used when picking one value out of an intersection.
var (
	sbcFreqOrder     = []uint8{SBCSampleFreq44, SBCSampleFreq48, SBCSampleFreq32, SBCSampleFreq16}
	sbcChannelOrder  = []uint8{SBCChannelJoint, SBCChannelStereo, SBCChannelDual, SBCChannelMono}
	sbcBlockOrder    = []uint8{SBCBlock16, SBCBlock12, SBCBlock8, SBCBlock4}
	sbcSubbandsOrder = []uint8{SBCSubbands8, SBCSubbands4}
	sbcAllocOrder    = []uint8{SBCAllocLoudness, SBCAllocSNR}
)

// SBCParams holds SBC information fields. In a capability each field is a
// bitmask of supported values; in a configuration exactly one bit is set.
type SBCParams struct {
	SampleFreq  uint8
	ChannelMode uint8
	BlockLength uint8
	Subbands    uint8
	Allocation  uint8
	MinBitpool  uint8
	MaxBitpool  uint8
}

// Default local SBC capabilities.
var (
	DefaultSBCSourceCaps = SBCParams{
		SampleFreq:  SBCSampleFreq44 | SBCSampleFreq48,
		ChannelMode: SBCChannelMono | SBCChannelDual | SBCChannelStereo | SBCChannelJoint,
		BlockLength: SBCBlock16,
		Subbands:    SBCSubbands8,
		Allocation:  SBCAllocLoudness,
		MinBitpool:  SBCMinBitpool,
		MaxBitpool:  53,
	}

	DefaultSBCSinkCaps = SBCParams{
		SampleFreq:  SBCSampleFreq16 | SBCSampleFreq32 | SBCSampleFreq44 | SBCSampleFreq48,
		ChannelMode: SBCChannelMono | SBCChannelDual | SBCChannelStereo | SBCChannelJoint,
		BlockLength: SBCBlock4 | SBCBlock8 | SBCBlock12 | SBCBlock16,
		Subbands:    SBCSubbands4 | SBCSubbands8,
		Allocation:  SBCAllocSNR | SBCAllocLoudness,
		MinBitpool:  SBCMinBitpool,
		MaxBitpool:  SBCMaxBitpool,
	}
)

// ParseSBC decodes the SBC fields of a codec element.
func ParseSBC(info CodecInfo) (SBCParams, error) {
	if err := checkHeader(info, CodecTypeSBC, sbcInfoLen); err != nil {
		return SBCParams{}, err
	}
	b := info[CodecInfoHeaderLen:]
	return SBCParams{
		SampleFreq:  b[0] & sbcSampleFreqMask,
		ChannelMode: b[0] & sbcChannelMask,
		BlockLength: b[1] & sbcBlockMask,
		Subbands:    b[1] & sbcSubbandsMask,
		Allocation:  b[1] & sbcAllocMask,
		MinBitpool:  b[2],
		MaxBitpool:  b[3],
	}, nil
}

// Encode builds the codec element for the fields.
func (p SBCParams) Encode() CodecInfo {
	info := newCodecInfo(CodecTypeSBC, sbcInfoLen)
	b := info[CodecInfoHeaderLen:]
	b[0] = p.SampleFreq&sbcSampleFreqMask | p.ChannelMode&sbcChannelMask
	b[1] = p.BlockLength&sbcBlockMask | p.Subbands&sbcSubbandsMask | p.Allocation&sbcAllocMask
	b[2] = p.MinBitpool
	b[3] = p.MaxBitpool
	return info
}

// Blocks returns the block length for a single-bit BlockLength.
func (p SBCParams) Blocks() uint32 {
	switch p.BlockLength {
	case SBCBlock4:
		return 4
	case SBCBlock8:
		return 8
	case SBCBlock12:
		return 12
	case SBCBlock16:
		return 16
	default:
		return 0
	}
}

// SubbandCount returns the number of subbands for a single-bit Subbands.
func (p SBCParams) SubbandCount() uint32 {
	switch p.Subbands {
	case SBCSubbands4:
		return 4
	case SBCSubbands8:
		return 8
	default:
		return 0
	}
}

// SampleRate returns the frequency in Hz for a single-bit SampleFreq.
func (p SBCParams) SampleRate() uint32 {
	switch p.SampleFreq {
	case SBCSampleFreq16:
		return 16000
	case SBCSampleFreq32:
		return 32000
	case SBCSampleFreq44:
		return 44100
	case SBCSampleFreq48:
		return 48000
	default:
		return 0
	}
}

// SBC implements Codec for the mandatory SBC codec.
type SBC struct {
	index CodecIndex
	sep   SEPType
	caps  SBCParams
}

// NewSBC creates an SBC codec serving endpoints of type sep.
func NewSBC(index CodecIndex, sep SEPType, caps SBCParams) *SBC {
	return &SBC{index: index, sep: sep, caps: caps}
}

func (c *SBC) Index() CodecIndex     { return c.index }
func (c *SBC) Name() string          { return "SBC" }
func (c *SBC) Type() SEPType         { return c.sep }
func (c *SBC) Capability() CodecInfo { return c.caps.Encode() }

// Caps returns the local capability fields.
func (c *SBC) Caps() SBCParams { return c.caps }

// Matches implements Codec.
func (c *SBC) Matches(info CodecInfo) bool {
	return info.MediaType() == MediaTypeAudio && info.CodecType() == CodecTypeSBC
}

// Select implements Codec.
//
// The bitpool range of the result is the overlap of both ranges. A peer
// reporting a minimum above our maximum cannot be served.
func (c *SBC) Select(peer CodecInfo) (CodecInfo, error) {
	pc, err := ParseSBC(peer)
	if err != nil {
		return nil, err
	}

	var cfg SBCParams
	if cfg.SampleFreq = pickBit(c.caps.SampleFreq&pc.SampleFreq, sbcFreqOrder); cfg.SampleFreq == 0 {
		return nil, StatusNotSupportedSampleFreq
	}
	if cfg.ChannelMode = pickBit(c.caps.ChannelMode&pc.ChannelMode, sbcChannelOrder); cfg.ChannelMode == 0 {
		return nil, StatusNotSupportedChannelMode
	}
	if cfg.BlockLength = pickBit(c.caps.BlockLength&pc.BlockLength, sbcBlockOrder); cfg.BlockLength == 0 {
		return nil, StatusInvalidBlockLength
	}
	if cfg.Subbands = pickBit(c.caps.Subbands&pc.Subbands, sbcSubbandsOrder); cfg.Subbands == 0 {
		return nil, StatusNotSupportedSubbands
	}
	if cfg.Allocation = pickBit(c.caps.Allocation&pc.Allocation, sbcAllocOrder); cfg.Allocation == 0 {
		return nil, StatusNotSupportedAllocation
	}

	cfg.MinBitpool = max(c.caps.MinBitpool, pc.MinBitpool, SBCMinBitpool)
	cfg.MaxBitpool = min(c.caps.MaxBitpool, pc.MaxBitpool, SBCMaxBitpool)
	if cfg.MinBitpool > c.caps.MaxBitpool {
		return nil, StatusNotSupportedMinBitpool
	}
	if cfg.MaxBitpool < cfg.MinBitpool {
		return nil, StatusNotSupportedMaxBitpool
	}

	return cfg.Encode(), nil
}

// Validate implements Codec.
func (c *SBC) Validate(cfg CodecInfo) error {
	p, err := ParseSBC(cfg)
	if err != nil {
		return err
	}

	if !singleBit(p.SampleFreq) {
		return StatusInvalidSampleFreq
	}
	if p.SampleFreq&c.caps.SampleFreq == 0 {
		return StatusNotSupportedSampleFreq
	}
	if !singleBit(p.ChannelMode) {
		return StatusInvalidChannelMode
	}
	if p.ChannelMode&c.caps.ChannelMode == 0 {
		return StatusNotSupportedChannelMode
	}
	if !singleBit(p.BlockLength) || p.BlockLength&c.caps.BlockLength == 0 {
		return StatusInvalidBlockLength
	}
	if !singleBit(p.Subbands) {
		return StatusInvalidSubbands
	}
	if p.Subbands&c.caps.Subbands == 0 {
		return StatusNotSupportedSubbands
	}
	if !singleBit(p.Allocation) {
		return StatusInvalidAllocation
	}
	if p.Allocation&c.caps.Allocation == 0 {
		return StatusNotSupportedAllocation
	}

	if p.MinBitpool < SBCMinBitpool || p.MinBitpool > SBCMaxBitpool {
		return StatusInvalidMinBitpool
	}
	if p.MaxBitpool < SBCMinBitpool || p.MaxBitpool > SBCMaxBitpool || p.MaxBitpool < p.MinBitpool {
		return StatusInvalidMaxBitpool
	}
	if p.MinBitpool < c.caps.MinBitpool {
		return StatusNotSupportedMinBitpool
	}
	if p.MaxBitpool > c.caps.MaxBitpool {
		return StatusNotSupportedMaxBitpool
	}
	return nil
}

// UsesMediaHeader implements Codec. SBC media packets always carry the
// media header.
func (c *SBC) UsesMediaHeader(bool) bool { return true }

// SampleRate implements Codec.
func (c *SBC) SampleRate(cfg CodecInfo) uint32 {
	p, err := ParseSBC(cfg)
	if err != nil {
		return 0
	}
	return p.SampleRate()
}

// FrameSamples implements Codec. An SBC frame covers blocks x subbands
// samples.
func (c *SBC) FrameSamples(cfg CodecInfo, _ int) uint32 {
	p, err := ParseSBC(cfg)
	if err != nil {
		return 0
	}
	return p.Blocks() * p.SubbandCount()
}
