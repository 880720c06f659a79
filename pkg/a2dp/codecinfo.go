package a2dp

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Codec information element offsets.
const (
	codecInfoLOSC      = 0
	codecInfoMediaType = 1
	codecInfoCodecType = 2

	// CodecInfoHeaderLen is LOSC + media type + codec type.
	CodecInfoHeaderLen = 3

	// MaxCodecInfoLen is the largest codec element the stack exchanges
	// (AVDT_CODEC_SIZE).
	MaxCodecInfoLen = 20

	vendorIDOffset      = 3
	vendorCodecIDOffset = 7
	vendorHeaderLen     = 9
)

// CodecInfo is a codec information element in wire format, exactly
// LOSC+1 bytes long. A CodecInfo is treated as immutable: operations that
// produce a new configuration return a new slice.
type CodecInfo []byte

// ParseCodecInfo extracts a codec element from buf, which may be longer than
// the element (fixed-size buffers are common at the call-out boundary).
// The returned element is a copy.
func ParseCodecInfo(buf []byte) (CodecInfo, error) {
	if len(buf) < CodecInfoHeaderLen {
		return nil, ErrElementTooShort
	}
	n := int(buf[codecInfoLOSC]) + 1
	if n < CodecInfoHeaderLen || n > len(buf) {
		return nil, fmt.Errorf("%w: LOSC %d, buffer %d", ErrLengthMismatch, buf[codecInfoLOSC], len(buf))
	}
	info := make(CodecInfo, n)
	copy(info, buf[:n])
	return info, nil
}

// Valid returns true if the element header is well formed.
func (c CodecInfo) Valid() bool {
	return len(c) >= CodecInfoHeaderLen && int(c[codecInfoLOSC])+1 == len(c)
}

// MediaType returns the media type nibble.
func (c CodecInfo) MediaType() MediaType {
	if len(c) <= codecInfoMediaType {
		return MediaType(0xFF)
	}
	return MediaType(c[codecInfoMediaType] >> 4)
}

// CodecType returns the media codec type.
func (c CodecInfo) CodecType() CodecType {
	if len(c) <= codecInfoCodecType {
		return CodecType(0xFE)
	}
	return CodecType(c[codecInfoCodecType])
}

// VendorID returns the vendor id of a vendor specific codec element.
// Returns 0 for non-vendor or truncated elements.
func (c CodecInfo) VendorID() uint32 {
	if c.CodecType() != CodecTypeVendor || len(c) < vendorHeaderLen {
		return 0
	}
	return binary.LittleEndian.Uint32(c[vendorIDOffset:])
}

// VendorCodecID returns the vendor codec id of a vendor specific element.
func (c CodecInfo) VendorCodecID() uint16 {
	if c.CodecType() != CodecTypeVendor || len(c) < vendorHeaderLen {
		return 0
	}
	return binary.LittleEndian.Uint16(c[vendorCodecIDOffset:])
}

// Equal reports whether two elements are byte-identical.
func (c CodecInfo) Equal(other CodecInfo) bool {
	return bytes.Equal(c, other)
}

// Clone returns a copy of the element.
func (c CodecInfo) Clone() CodecInfo {
	if c == nil {
		return nil
	}
	out := make(CodecInfo, len(c))
	copy(out, c)
	return out
}

// String returns a short description for logging.
func (c CodecInfo) String() string {
	if !c.Valid() {
		return fmt.Sprintf("CodecInfo(invalid % X)", []byte(c))
	}
	if c.CodecType() == CodecTypeVendor {
		return fmt.Sprintf("%s[vendor=0x%08X codec=0x%04X % X]",
			c.CodecType(), c.VendorID(), c.VendorCodecID(), []byte(c[CodecInfoHeaderLen:]))
	}
	return fmt.Sprintf("%s[% X]", c.CodecType(), []byte(c[CodecInfoHeaderLen:]))
}

// newCodecInfo allocates an element with the header filled in for a
// codec-specific payload of n bytes.
func newCodecInfo(codecType CodecType, n int) CodecInfo {
	info := make(CodecInfo, CodecInfoHeaderLen+n)
	info[codecInfoLOSC] = byte(len(info) - 1)
	info[codecInfoMediaType] = byte(MediaTypeAudio) << 4
	info[codecInfoCodecType] = byte(codecType)
	return info
}

// newVendorCodecInfo allocates a vendor element with n bytes of
// vendor-specific payload after the vendor and codec ids.
func newVendorCodecInfo(vendorID uint32, codecID uint16, n int) CodecInfo {
	info := newCodecInfo(CodecTypeVendor, 6+n)
	binary.LittleEndian.PutUint32(info[vendorIDOffset:], vendorID)
	binary.LittleEndian.PutUint16(info[vendorCodecIDOffset:], codecID)
	return info
}

// checkHeader validates the generic header of an element expected to hold
// a codec of the given type with a payload of n bytes.
func checkHeader(c CodecInfo, codecType CodecType, n int) error {
	if len(c) < CodecInfoHeaderLen {
		return StatusInvalidCodecType
	}
	if c.MediaType() != MediaTypeAudio {
		return StatusInvalidCodecType
	}
	if c.CodecType() != codecType {
		return StatusWrongCodec
	}
	if !c.Valid() || len(c) != CodecInfoHeaderLen+n {
		return StatusInvalidCodecParameter
	}
	return nil
}

// singleBit reports whether exactly one bit of v is set.
func singleBit(v uint8) bool {
	return v != 0 && v&(v-1) == 0
}

// pickBit returns the first bit in order that is set in mask, or 0.
func pickBit(mask uint8, order []uint8) uint8 {
	for _, b := range order {
		if mask&b != 0 {
			return b
		}
	}
	return 0
}
