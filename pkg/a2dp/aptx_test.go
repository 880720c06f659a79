package a2dp

import (
	"bytes"
	"testing"
)

func TestAptX_Element(t *testing.T) {
	want := CodecInfo{0x09, 0x00, 0xFF, 0x4F, 0x00, 0x00, 0x00, 0x01, 0x00, 0x32}
	got := DefaultAptXCaps.Encode()
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode() = % X, want % X", []byte(got), []byte(want))
	}
	if got.VendorID() != AptXVendorID || got.VendorCodecID() != AptXCodecID {
		t.Errorf("vendor = 0x%08X/0x%04X", got.VendorID(), got.VendorCodecID())
	}
}

func TestAptX_Matches(t *testing.T) {
	c := NewAptX(CodecIndexSourceAptX, DefaultAptXCaps)

	if !c.Matches(DefaultAptXCaps.Encode()) {
		t.Error("Matches(aptX) should be true")
	}
	if c.Matches(headsetSBCCaps) {
		t.Error("Matches(SBC) should be false")
	}

	other := newVendorCodecInfo(0x0000012D, 0x00AA, 4) // LDAC
	if c.Matches(other) {
		t.Error("Matches(other vendor) should be false")
	}
	if _, err := c.Select(other); StatusOf(err) != StatusWrongCodec {
		t.Errorf("Select(other vendor) = %v, want %v", err, StatusWrongCodec)
	}
}

func TestAptX_Select(t *testing.T) {
	c := NewAptX(CodecIndexSourceAptX, DefaultAptXCaps)

	peer := AptXParams{SampleFreq: AptXSampleFreq48, ChannelMode: AptXChannelStereo | AptXChannelMono}.Encode()
	cfg, err := c.Select(peer)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	p, _ := ParseAptX(cfg)
	if p.SampleFreq != AptXSampleFreq48 || p.ChannelMode != AptXChannelStereo {
		t.Errorf("Select() = %+v", p)
	}
	if err := c.Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	mono := AptXParams{SampleFreq: AptXSampleFreq44, ChannelMode: AptXChannelMono}.Encode()
	if _, err := c.Select(mono); StatusOf(err) != StatusNotSupportedChannelMode {
		t.Errorf("Select(mono) = %v, want %v", err, StatusNotSupportedChannelMode)
	}
}

func TestAptX_UsesMediaHeader(t *testing.T) {
	c := NewAptX(CodecIndexSourceAptX, DefaultAptXCaps)
	if c.UsesMediaHeader(false) {
		t.Error("UsesMediaHeader(false) should be false")
	}
	if !c.UsesMediaHeader(true) {
		t.Error("UsesMediaHeader(true) should be true")
	}
}
