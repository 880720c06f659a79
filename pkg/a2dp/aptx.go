package a2dp

// aptX vendor codec identifiers and field bits.
const (
	AptXVendorID uint32 = 0x0000004F
	AptXCodecID  uint16 = 0x0001

	AptXSampleFreq44   uint8 = 0x20
	AptXSampleFreq48   uint8 = 0x10
	aptxSampleFreqMask uint8 = 0xF0

	AptXChannelMono   uint8 = 0x01
	AptXChannelStereo uint8 = 0x02
	aptxChannelMask   uint8 = 0x0F

	aptxInfoLen = 1
)

var aptxFreqOrder = []uint8{AptXSampleFreq44, AptXSampleFreq48}

// AptXParams holds the aptX information fields.
type AptXParams struct {
	SampleFreq  uint8
	ChannelMode uint8
}

// DefaultAptXCaps are the default local aptX capabilities.
var DefaultAptXCaps = AptXParams{
	SampleFreq:  AptXSampleFreq44 | AptXSampleFreq48,
	ChannelMode: AptXChannelStereo,
}

// ParseAptX decodes the aptX fields of a codec element.
func ParseAptX(info CodecInfo) (AptXParams, error) {
	if len(info) >= vendorHeaderLen && info.CodecType() == CodecTypeVendor &&
		(info.VendorID() != AptXVendorID || info.VendorCodecID() != AptXCodecID) {
		return AptXParams{}, StatusWrongCodec
	}
	if err := checkHeader(info, CodecTypeVendor, vendorHeaderLen-CodecInfoHeaderLen+aptxInfoLen); err != nil {
		return AptXParams{}, err
	}
	b := info[vendorHeaderLen:]
	return AptXParams{
		SampleFreq:  b[0] & aptxSampleFreqMask,
		ChannelMode: b[0] & aptxChannelMask,
	}, nil
}

// Encode builds the codec element for the fields.
func (p AptXParams) Encode() CodecInfo {
	info := newVendorCodecInfo(AptXVendorID, AptXCodecID, aptxInfoLen)
	info[vendorHeaderLen] = p.SampleFreq&aptxSampleFreqMask | p.ChannelMode&aptxChannelMask
	return info
}

// SampleRate returns the frequency in Hz for a single-bit SampleFreq.
func (p AptXParams) SampleRate() uint32 {
	switch p.SampleFreq {
	case AptXSampleFreq44:
		return 44100
	case AptXSampleFreq48:
		return 48000
	default:
		return 0
	}
}

// AptX implements Codec for the aptX vendor codec. It is source only.
type AptX struct {
	index CodecIndex
	caps  AptXParams
}

// NewAptX creates an aptX source codec.
func NewAptX(index CodecIndex, caps AptXParams) *AptX {
	return &AptX{index: index, caps: caps}
}

func (c *AptX) Index() CodecIndex     { return c.index }
func (c *AptX) Name() string          { return "aptX" }
func (c *AptX) Type() SEPType         { return SEPTypeSource }
func (c *AptX) Capability() CodecInfo { return c.caps.Encode() }

// Matches implements Codec.
func (c *AptX) Matches(info CodecInfo) bool {
	return info.MediaType() == MediaTypeAudio &&
		info.CodecType() == CodecTypeVendor &&
		info.VendorID() == AptXVendorID &&
		info.VendorCodecID() == AptXCodecID
}

// Select implements Codec.
func (c *AptX) Select(peer CodecInfo) (CodecInfo, error) {
	pc, err := ParseAptX(peer)
	if err != nil {
		return nil, err
	}

	var cfg AptXParams
	if cfg.SampleFreq = pickBit(c.caps.SampleFreq&pc.SampleFreq, aptxFreqOrder); cfg.SampleFreq == 0 {
		return nil, StatusNotSupportedSampleFreq
	}
	if c.caps.ChannelMode&pc.ChannelMode&AptXChannelStereo == 0 {
		return nil, StatusNotSupportedChannelMode
	}
	cfg.ChannelMode = AptXChannelStereo

	return cfg.Encode(), nil
}

// Validate implements Codec.
func (c *AptX) Validate(cfg CodecInfo) error {
	p, err := ParseAptX(cfg)
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
	return nil
}

// UsesMediaHeader implements Codec. aptX frames are sent without a media
// header unless content protection is active, in which case the header
// carries the SCMS-T byte.
func (c *AptX) UsesMediaHeader(cpActive bool) bool { return cpActive }

// SampleRate implements Codec.
func (c *AptX) SampleRate(cfg CodecInfo) uint32 {
	p, err := ParseAptX(cfg)
	if err != nil {
		return 0
	}
	return p.SampleRate()
}

// FrameSamples implements Codec. aptX has no framing: every 16-bit
// codeword per channel encodes four samples, so a stereo payload covers one
// sample per byte.
func (c *AptX) FrameSamples(cfg CodecInfo, payloadLen int) uint32 {
	p, err := ParseAptX(cfg)
	if err != nil || payloadLen <= 0 {
		return 0
	}
	channels := 1
	if p.ChannelMode == AptXChannelStereo {
		channels = 2
	}
	return uint32(payloadLen * 4 / (2 * channels))
}
