package a2dp

import (
	"bytes"
	"errors"
	"testing"
)

// headsetSBCCaps is the capability element reported by a typical headset:
// every field fully populated, bitpool 2-53.
var headsetSBCCaps = CodecInfo{0x06, 0x00, 0x00, 0xFF, 0xFF, 0x02, 0x35}

func TestSBC_Select(t *testing.T) {
	c := NewSBC(CodecIndexSourceSBC, SEPTypeSource, DefaultSBCSourceCaps)

	t.Run("full peer capability", func(t *testing.T) {
		cfg, err := c.Select(headsetSBCCaps)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		want := CodecInfo{0x06, 0x00, 0x00, 0x21, 0x15, 0x02, 0x35}
		if !bytes.Equal(cfg, want) {
			t.Errorf("Select() = % X, want % X", []byte(cfg), []byte(want))
		}
		if err := c.Validate(cfg); err != nil {
			t.Errorf("Validate(Select()) error = %v", err)
		}
	})

	t.Run("bitpool clamped to peer maximum", func(t *testing.T) {
		peer := SBCParams{
			SampleFreq:  SBCSampleFreq48,
			ChannelMode: SBCChannelStereo,
			BlockLength: SBCBlock16,
			Subbands:    SBCSubbands8,
			Allocation:  SBCAllocLoudness,
			MinBitpool:  10,
			MaxBitpool:  35,
		}.Encode()

		cfg, err := c.Select(peer)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		p, _ := ParseSBC(cfg)
		if p.SampleFreq != SBCSampleFreq48 || p.ChannelMode != SBCChannelStereo {
			t.Errorf("Select() freq/mode = %#x/%#x", p.SampleFreq, p.ChannelMode)
		}
		if p.MinBitpool != 10 || p.MaxBitpool != 35 {
			t.Errorf("Select() bitpool = %d-%d, want 10-35", p.MinBitpool, p.MaxBitpool)
		}
	})

	tests := []struct {
		name string
		peer SBCParams
		want Status
	}{
		{
			name: "no common sampling frequency",
			peer: SBCParams{SampleFreq: SBCSampleFreq16, ChannelMode: 0x0F, BlockLength: 0xF0, Subbands: 0x0C, Allocation: 0x03, MinBitpool: 2, MaxBitpool: 53},
			want: StatusNotSupportedSampleFreq,
		},
		{
			name: "no common subbands",
			peer: SBCParams{SampleFreq: 0xF0, ChannelMode: 0x0F, BlockLength: 0xF0, Subbands: SBCSubbands4, Allocation: 0x03, MinBitpool: 2, MaxBitpool: 53},
			want: StatusNotSupportedSubbands,
		},
		{
			name: "peer minimum bitpool above local maximum",
			peer: SBCParams{SampleFreq: 0xF0, ChannelMode: 0x0F, BlockLength: 0xF0, Subbands: 0x0C, Allocation: 0x03, MinBitpool: 60, MaxBitpool: 80},
			want: StatusNotSupportedMinBitpool,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Select(tt.peer.Encode())
			if got := StatusOf(err); got != tt.want {
				t.Errorf("Select() status = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("wrong codec type", func(t *testing.T) {
		_, err := c.Select(DefaultAACSinkCaps.Encode())
		if !errors.Is(err, StatusWrongCodec) {
			t.Errorf("Select(AAC) error = %v, want %v", err, StatusWrongCodec)
		}
	})
}

func TestSBC_Validate(t *testing.T) {
	c := NewSBC(CodecIndexSourceSBC, SEPTypeSource, DefaultSBCSourceCaps)

	valid := SBCParams{
		SampleFreq:  SBCSampleFreq44,
		ChannelMode: SBCChannelJoint,
		BlockLength: SBCBlock16,
		Subbands:    SBCSubbands8,
		Allocation:  SBCAllocLoudness,
		MinBitpool:  2,
		MaxBitpool:  53,
	}

	tests := []struct {
		name   string
		modify func(p *SBCParams)
		want   Status
	}{
		{"valid", func(p *SBCParams) {}, StatusSuccess},
		{"two sampling frequencies", func(p *SBCParams) { p.SampleFreq = SBCSampleFreq44 | SBCSampleFreq48 }, StatusInvalidSampleFreq},
		{"sampling frequency outside capability", func(p *SBCParams) { p.SampleFreq = SBCSampleFreq16 }, StatusNotSupportedSampleFreq},
		{"no channel mode", func(p *SBCParams) { p.ChannelMode = 0 }, StatusInvalidChannelMode},
		{"block length outside capability", func(p *SBCParams) { p.BlockLength = SBCBlock4 }, StatusInvalidBlockLength},
		{"subbands outside capability", func(p *SBCParams) { p.Subbands = SBCSubbands4 }, StatusNotSupportedSubbands},
		{"allocation outside capability", func(p *SBCParams) { p.Allocation = SBCAllocSNR }, StatusNotSupportedAllocation},
		{"minimum bitpool too low", func(p *SBCParams) { p.MinBitpool = 1 }, StatusInvalidMinBitpool},
		{"maximum below minimum", func(p *SBCParams) { p.MinBitpool = 40; p.MaxBitpool = 30 }, StatusInvalidMaxBitpool},
		{"maximum bitpool above capability", func(p *SBCParams) { p.MaxBitpool = 64 }, StatusNotSupportedMaxBitpool},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.modify(&p)
			if got := StatusOf(c.Validate(p.Encode())); got != tt.want {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("truncated element", func(t *testing.T) {
		if got := StatusOf(c.Validate(CodecInfo{0x04, 0x00, 0x00, 0x21, 0x15})); got != StatusInvalidCodecParameter {
			t.Errorf("Validate() = %v, want %v", got, StatusInvalidCodecParameter)
		}
	})

	t.Run("video media type", func(t *testing.T) {
		cfg := valid.Encode()
		cfg[1] = byte(MediaTypeVideo) << 4
		if got := StatusOf(c.Validate(cfg)); got != StatusInvalidCodecType {
			t.Errorf("Validate() = %v, want %v", got, StatusInvalidCodecType)
		}
	})
}

func TestSBC_SampleRate(t *testing.T) {
	c := NewSBC(CodecIndexSinkSBC, SEPTypeSink, DefaultSBCSinkCaps)
	cfg := SBCParams{SampleFreq: SBCSampleFreq48, ChannelMode: SBCChannelMono, BlockLength: SBCBlock4, Subbands: SBCSubbands4, Allocation: SBCAllocSNR, MinBitpool: 2, MaxBitpool: 32}.Encode()
	if got := c.SampleRate(cfg); got != 48000 {
		t.Errorf("SampleRate() = %d, want 48000", got)
	}
	if got := c.SampleRate(headsetSBCCaps); got != 0 {
		t.Errorf("SampleRate(capability) = %d, want 0", got)
	}
	if !c.UsesMediaHeader(false) {
		t.Error("UsesMediaHeader() should be true for SBC")
	}
}
