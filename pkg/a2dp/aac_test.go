package a2dp

import (
	"bytes"
	"testing"
)

func TestAACParams_Encode(t *testing.T) {
	p := AACParams{
		ObjectType: AACObjectMPEG2LC,
		SampleFreq: AACSampleFreq44100 | AACSampleFreq48000,
		Channels:   AACChannels1 | AACChannels2,
		VBR:        true,
		BitRate:    320000,
	}
	want := CodecInfo{0x08, 0x00, 0x02, 0x80, 0x01, 0x8C, 0x84, 0xE2, 0x00}
	if got := p.Encode(); !bytes.Equal(got, want) {
		t.Fatalf("Encode() = % X, want % X", []byte(got), []byte(want))
	}

	parsed, err := ParseAAC(want)
	if err != nil {
		t.Fatalf("ParseAAC() error = %v", err)
	}
	if parsed != p {
		t.Errorf("ParseAAC() = %+v, want %+v", parsed, p)
	}
}

func TestAAC_Select(t *testing.T) {
	c := NewAAC(CodecIndexSourceAAC, SEPTypeSource, DefaultAACSourceCaps)

	t.Run("prefers 44.1kHz stereo and lower bit rate", func(t *testing.T) {
		peer := AACParams{
			ObjectType: AACObjectMPEG2LC | AACObjectMPEG4LC,
			SampleFreq: AACSampleFreq32000 | AACSampleFreq44100 | AACSampleFreq48000,
			Channels:   AACChannels1 | AACChannels2,
			VBR:        true,
			BitRate:    256000,
		}.Encode()

		cfg, err := c.Select(peer)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		p, _ := ParseAAC(cfg)
		want := AACParams{
			ObjectType: AACObjectMPEG2LC,
			SampleFreq: AACSampleFreq44100,
			Channels:   AACChannels2,
			VBR:        false,
			BitRate:    256000,
		}
		if p != want {
			t.Errorf("Select() = %+v, want %+v", p, want)
		}
		if err := c.Validate(cfg); err != nil {
			t.Errorf("Validate(Select()) error = %v", err)
		}
		if got := c.SampleRate(cfg); got != 44100 {
			t.Errorf("SampleRate() = %d, want 44100", got)
		}
	})

	t.Run("unspecified peer bit rate keeps local", func(t *testing.T) {
		peer := AACParams{ObjectType: AACObjectMPEG2LC, SampleFreq: AACSampleFreq48000, Channels: AACChannels2}.Encode()
		cfg, err := c.Select(peer)
		if err != nil {
			t.Fatalf("Select() error = %v", err)
		}
		p, _ := ParseAAC(cfg)
		if p.BitRate != DefaultAACSourceCaps.BitRate {
			t.Errorf("BitRate = %d, want %d", p.BitRate, DefaultAACSourceCaps.BitRate)
		}
	})

	t.Run("MPEG-4 only peer", func(t *testing.T) {
		peer := AACParams{ObjectType: AACObjectMPEG4LC, SampleFreq: AACSampleFreq44100, Channels: AACChannels2}.Encode()
		_, err := c.Select(peer)
		if got := StatusOf(err); got != StatusNotSupportedObjectType {
			t.Errorf("Select() status = %v, want %v", got, StatusNotSupportedObjectType)
		}
	})
}

func TestAAC_Validate(t *testing.T) {
	c := NewAAC(CodecIndexSourceAAC, SEPTypeSource, DefaultAACSourceCaps)
	valid := AACParams{ObjectType: AACObjectMPEG2LC, SampleFreq: AACSampleFreq48000, Channels: AACChannels2, BitRate: 320000}

	tests := []struct {
		name   string
		modify func(p *AACParams)
		want   Status
	}{
		{"valid", func(p *AACParams) {}, StatusSuccess},
		{"two object types", func(p *AACParams) { p.ObjectType |= AACObjectMPEG4LC }, StatusInvalidObjectType},
		{"96kHz not supported", func(p *AACParams) { p.SampleFreq = AACSampleFreq96000 }, StatusNotSupportedSampleFreq},
		{"two frequencies", func(p *AACParams) { p.SampleFreq |= AACSampleFreq44100 }, StatusInvalidSampleFreq},
		{"no channels", func(p *AACParams) { p.Channels = 0 }, StatusInvalidChannels},
		{"VBR not supported", func(p *AACParams) { p.VBR = true }, StatusNotSupportedVBR},
		{"bit rate above capability", func(p *AACParams) { p.BitRate = 512000 }, StatusNotSupportedBitRate},
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
}
