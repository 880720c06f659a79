package a2dp

// AAC codec specific information field bits (A2DP 1.3 Section 4.5.2).
const (
	AACObjectMPEG2LC   uint8 = 0x80
	AACObjectMPEG4LC   uint8 = 0x40
	AACObjectMPEG4LTP  uint8 = 0x20
	AACObjectMPEG4Scal uint8 = 0x10

	AACSampleFreq8000  uint16 = 0x8000
	AACSampleFreq11025 uint16 = 0x4000
	AACSampleFreq12000 uint16 = 0x2000
	AACSampleFreq16000 uint16 = 0x1000
	AACSampleFreq22050 uint16 = 0x0800
	AACSampleFreq24000 uint16 = 0x0400
	AACSampleFreq32000 uint16 = 0x0200
	AACSampleFreq44100 uint16 = 0x0100
	AACSampleFreq48000 uint16 = 0x0080
	AACSampleFreq64000 uint16 = 0x0040
	AACSampleFreq88200 uint16 = 0x0020
	AACSampleFreq96000 uint16 = 0x0010
	aacSampleFreqMask  uint16 = 0xFFF0

	AACChannels1   uint8 = 0x08
	AACChannels2   uint8 = 0x04
	aacChannelMask uint8 = 0x0C

	aacVBRBit      uint8  = 0x80
	aacBitRateMask uint32 = 0x7FFFFF

	aacInfoLen = 6
)

var (
	aacObjectOrder  = []uint8{AACObjectMPEG2LC, AACObjectMPEG4LC}
	aacChannelOrder = []uint8{AACChannels2, AACChannels1}
	aacFreqOrder    = []uint16{
		AACSampleFreq44100, AACSampleFreq48000, AACSampleFreq96000, AACSampleFreq88200,
		AACSampleFreq64000, AACSampleFreq32000, AACSampleFreq24000, AACSampleFreq22050,
		AACSampleFreq16000, AACSampleFreq12000, AACSampleFreq11025, AACSampleFreq8000,
	}
	aacFreqRates = map[uint16]uint32{
		AACSampleFreq8000:  8000,
		AACSampleFreq11025: 11025,
		AACSampleFreq12000: 12000,
		AACSampleFreq16000: 16000,
		AACSampleFreq22050: 22050,
		AACSampleFreq24000: 24000,
		AACSampleFreq32000: 32000,
		AACSampleFreq44100: 44100,
		AACSampleFreq48000: 48000,
		AACSampleFreq64000: 64000,
		AACSampleFreq88200: 88200,
		AACSampleFreq96000: 96000,
	}
)

// AACParams holds the MPEG-2/4 AAC information fields. BitRate is in bits
// per second; 0 means unspecified.
type AACParams struct {
	ObjectType uint8
	SampleFreq uint16
	Channels   uint8
	VBR        bool
	BitRate    uint32
}

// Default local AAC capabilities.
var (
	DefaultAACSourceCaps = AACParams{
		ObjectType: AACObjectMPEG2LC,
		SampleFreq: AACSampleFreq44100 | AACSampleFreq48000,
		Channels:   AACChannels1 | AACChannels2,
		VBR:        false,
		BitRate:    320000,
	}

	DefaultAACSinkCaps = AACParams{
		ObjectType: AACObjectMPEG2LC | AACObjectMPEG4LC,
		SampleFreq: AACSampleFreq44100 | AACSampleFreq48000,
		Channels:   AACChannels1 | AACChannels2,
		VBR:        true,
		BitRate:    320000,
	}
)

// ParseAAC decodes the AAC fields of a codec element.
func ParseAAC(info CodecInfo) (AACParams, error) {
	if err := checkHeader(info, CodecTypeAAC, aacInfoLen); err != nil {
		return AACParams{}, err
	}
	b := info[CodecInfoHeaderLen:]
	return AACParams{
		ObjectType: b[0],
		SampleFreq: (uint16(b[1])<<8 | uint16(b[2])) & aacSampleFreqMask,
		Channels:   b[2] & aacChannelMask,
		VBR:        b[3]&aacVBRBit != 0,
		BitRate:    (uint32(b[3])<<16 | uint32(b[4])<<8 | uint32(b[5])) & aacBitRateMask,
	}, nil
}

// Encode builds the codec element for the fields.
func (p AACParams) Encode() CodecInfo {
	info := newCodecInfo(CodecTypeAAC, aacInfoLen)
	b := info[CodecInfoHeaderLen:]
	freq := p.SampleFreq & aacSampleFreqMask
	rate := p.BitRate & aacBitRateMask
	b[0] = p.ObjectType
	b[1] = byte(freq >> 8)
	b[2] = byte(freq) | p.Channels&aacChannelMask
	b[3] = byte(rate >> 16)
	if p.VBR {
		b[3] |= aacVBRBit
	}
	b[4] = byte(rate >> 8)
	b[5] = byte(rate)
	return info
}

// SampleRate returns the frequency in Hz for a single-bit SampleFreq.
func (p AACParams) SampleRate() uint32 {
	return aacFreqRates[p.SampleFreq]
}

// AAC implements Codec for MPEG-2/4 AAC.
type AAC struct {
	index CodecIndex
	sep   SEPType
	caps  AACParams
}

// NewAAC creates an AAC codec serving endpoints of type sep.
func NewAAC(index CodecIndex, sep SEPType, caps AACParams) *AAC {
	return &AAC{index: index, sep: sep, caps: caps}
}

func (c *AAC) Index() CodecIndex     { return c.index }
func (c *AAC) Name() string          { return "AAC" }
func (c *AAC) Type() SEPType         { return c.sep }
func (c *AAC) Capability() CodecInfo { return c.caps.Encode() }

// Caps returns the local capability fields.
func (c *AAC) Caps() AACParams { return c.caps }

// Matches implements Codec.
func (c *AAC) Matches(info CodecInfo) bool {
	return info.MediaType() == MediaTypeAudio && info.CodecType() == CodecTypeAAC
}

// Select implements Codec.
func (c *AAC) Select(peer CodecInfo) (CodecInfo, error) {
	pc, err := ParseAAC(peer)
	if err != nil {
		return nil, err
	}

	var cfg AACParams
	if cfg.ObjectType = pickBit(c.caps.ObjectType&pc.ObjectType, aacObjectOrder); cfg.ObjectType == 0 {
		return nil, StatusNotSupportedObjectType
	}
	freqs := c.caps.SampleFreq & pc.SampleFreq
	for _, f := range aacFreqOrder {
		if freqs&f != 0 {
			cfg.SampleFreq = f
			break
		}
	}
	if cfg.SampleFreq == 0 {
		return nil, StatusNotSupportedSampleFreq
	}
	if cfg.Channels = pickBit(c.caps.Channels&pc.Channels, aacChannelOrder); cfg.Channels == 0 {
		return nil, StatusNotSupportedChannels
	}
	cfg.VBR = c.caps.VBR && pc.VBR

	cfg.BitRate = c.caps.BitRate
	if pc.BitRate != 0 && (cfg.BitRate == 0 || pc.BitRate < cfg.BitRate) {
		cfg.BitRate = pc.BitRate
	}

	return cfg.Encode(), nil
}

// Validate implements Codec.
func (c *AAC) Validate(cfg CodecInfo) error {
	p, err := ParseAAC(cfg)
	if err != nil {
		return err
	}

	if !singleBit(p.ObjectType) {
		return StatusInvalidObjectType
	}
	if p.ObjectType&c.caps.ObjectType == 0 {
		return StatusNotSupportedObjectType
	}
	if _, ok := aacFreqRates[p.SampleFreq]; !ok {
		return StatusInvalidSampleFreq
	}
	if p.SampleFreq&c.caps.SampleFreq == 0 {
		return StatusNotSupportedSampleFreq
	}
	if !singleBit(p.Channels) {
		return StatusInvalidChannels
	}
	if p.Channels&c.caps.Channels == 0 {
		return StatusNotSupportedChannels
	}
	if p.VBR && !c.caps.VBR {
		return StatusNotSupportedVBR
	}
	if c.caps.BitRate != 0 && p.BitRate > c.caps.BitRate {
		return StatusNotSupportedBitRate
	}
	return nil
}

// UsesMediaHeader implements Codec.
func (c *AAC) UsesMediaHeader(bool) bool { return true }

// SampleRate implements Codec.
func (c *AAC) SampleRate(cfg CodecInfo) uint32 {
	p, err := ParseAAC(cfg)
	if err != nil {
		return 0
	}
	return p.SampleRate()
}

// aacFrameSamples is the length of an AAC-LC access unit.
const aacFrameSamples = 1024

// FrameSamples implements Codec.
func (c *AAC) FrameSamples(cfg CodecInfo, _ int) uint32 {
	if _, err := ParseAAC(cfg); err != nil {
		return 0
	}
	return aacFrameSamples
}
