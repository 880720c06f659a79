package a2dp

import (
	"errors"
	"fmt"
)

// Status is an A2DP result code. Values in the 0xC1-0xE3 range are the
// AVDTP/A2DP configuration error codes that are reported to the peer.
//
// Status implements error so that codec operations can return it directly;
// StatusSuccess is never returned as an error.
type Status uint8

const (
	StatusSuccess       Status = 0x00
	StatusFail          Status = 0x0A
	StatusBusy          Status = 0x0B
	StatusInvalidParams Status = 0x0C
	StatusWrongCodec    Status = 0x0D

	StatusInvalidCodecType           Status = 0xC1
	StatusNotSupportedCodecType      Status = 0xC2
	StatusInvalidSampleFreq          Status = 0xC3
	StatusNotSupportedSampleFreq     Status = 0xC4
	StatusInvalidChannelMode         Status = 0xC5
	StatusNotSupportedChannelMode    Status = 0xC6
	StatusInvalidSubbands            Status = 0xC7
	StatusNotSupportedSubbands       Status = 0xC8
	StatusInvalidAllocation          Status = 0xC9
	StatusNotSupportedAllocation     Status = 0xCA
	StatusInvalidMinBitpool          Status = 0xCB
	StatusNotSupportedMinBitpool     Status = 0xCC
	StatusInvalidMaxBitpool          Status = 0xCD
	StatusNotSupportedMaxBitpool     Status = 0xCE
	StatusNotSupportedVBR            Status = 0xD3
	StatusInvalidBitRate             Status = 0xD4
	StatusNotSupportedBitRate        Status = 0xD5
	StatusInvalidObjectType          Status = 0xD6
	StatusNotSupportedObjectType     Status = 0xD7
	StatusInvalidChannels            Status = 0xD8
	StatusNotSupportedChannels       Status = 0xD9
	StatusInvalidBlockLength         Status = 0xDD
	StatusInvalidCPType              Status = 0xE0
	StatusInvalidCPFormat            Status = 0xE1
	StatusInvalidCodecParameter      Status = 0xE2
	StatusNotSupportedCodecParameter Status = 0xE3
)

var statusNames = map[Status]string{
	StatusSuccess:                    "success",
	StatusFail:                       "fail",
	StatusBusy:                       "busy",
	StatusInvalidParams:              "invalid parameters",
	StatusWrongCodec:                 "wrong codec",
	StatusInvalidCodecType:           "invalid codec type",
	StatusNotSupportedCodecType:      "codec type not supported",
	StatusInvalidSampleFreq:          "invalid sampling frequency",
	StatusNotSupportedSampleFreq:     "sampling frequency not supported",
	StatusInvalidChannelMode:         "invalid channel mode",
	StatusNotSupportedChannelMode:    "channel mode not supported",
	StatusInvalidSubbands:            "invalid subbands",
	StatusNotSupportedSubbands:       "subbands not supported",
	StatusInvalidAllocation:          "invalid allocation method",
	StatusNotSupportedAllocation:     "allocation method not supported",
	StatusInvalidMinBitpool:          "invalid minimum bitpool",
	StatusNotSupportedMinBitpool:     "minimum bitpool not supported",
	StatusInvalidMaxBitpool:          "invalid maximum bitpool",
	StatusNotSupportedMaxBitpool:     "maximum bitpool not supported",
	StatusNotSupportedVBR:            "VBR not supported",
	StatusInvalidBitRate:             "invalid bit rate",
	StatusNotSupportedBitRate:        "bit rate not supported",
	StatusInvalidObjectType:          "invalid object type",
	StatusNotSupportedObjectType:     "object type not supported",
	StatusInvalidChannels:            "invalid channels",
	StatusNotSupportedChannels:       "channels not supported",
	StatusInvalidBlockLength:         "invalid block length",
	StatusInvalidCPType:              "invalid content protection type",
	StatusInvalidCPFormat:            "invalid content protection format",
	StatusInvalidCodecParameter:      "invalid codec parameter",
	StatusNotSupportedCodecParameter: "codec parameter not supported",
}

// String returns a human-readable description of the status.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status 0x%02X", uint8(s))
}

// Error implements error.
func (s Status) Error() string {
	return fmt.Sprintf("a2dp: %s (0x%02X)", s.String(), uint8(s))
}

// IsSuccess returns true for StatusSuccess.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}

// StatusOf extracts the Status carried by err.
// Returns StatusSuccess for a nil error and StatusFail for errors that
// carry no Status.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var s Status
	if errors.As(err, &s) {
		return s
	}
	return StatusFail
}
