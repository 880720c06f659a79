// Package a2dp implements the A2DP codec and content-protection element
// formats used during stream configuration.
//
// The package is wire-level only. It knows how to read, build, compare and
// validate the codec information element (the Media Codec service capability
// of AVDTP) and the Content Protection element, and it provides the local
// codec implementations that intersect a peer's capabilities with our own.
//
// Codec information element layout:
//
//	byte 0   LOSC, length of the following bytes
//	byte 1   media type in the upper nibble (audio = 0x0)
//	byte 2   media codec type (SBC 0x00, MPEG-2/4 AAC 0x02, vendor 0xFF)
//	byte 3.. codec specific information
//
// Content protection element layout:
//
//	byte 0   LOSC
//	byte 1-2 content protection type, little endian (SCMS-T = 0x0002)
//	byte 3.. type specific value
//
// Spec References:
//   - A2DP 1.3 Section 4.3: SBC codec specific information elements
//   - A2DP 1.3 Section 4.5: MPEG-2/4 AAC codec specific information elements
//   - A2DP 1.3 Section 4.7: Vendor specific A2DP codec
//   - A2DP 1.3 Section 3.2.3 and AVDTP 1.3 Section 8.21.2: Content Protection
package a2dp
