package a2dp

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// ProtectType is the content protection type identifier.
type ProtectType uint16

const (
	// ProtectTypeDTCP is the DTCP content protection type.
	ProtectTypeDTCP ProtectType = 0x0001

	// ProtectTypeSCMST is the SCMS-T content protection type.
	ProtectTypeSCMST ProtectType = 0x0002
)

// String returns a human-readable name for the protection type.
func (t ProtectType) String() string {
	switch t {
	case ProtectTypeDTCP:
		return "DTCP"
	case ProtectTypeSCMST:
		return "SCMS-T"
	default:
		return fmt.Sprintf("CP(0x%04X)", uint16(t))
	}
}

// ProtectHeaderLen is LOSC + the 2-byte protection type.
const ProtectHeaderLen = 3

// ProtectInfo is one content protection element in wire format:
// LOSC, type (little endian), then type-specific value bytes.
type ProtectInfo []byte

// NewProtectInfo builds an element of the given type and value.
func NewProtectInfo(t ProtectType, value []byte) ProtectInfo {
	p := make(ProtectInfo, ProtectHeaderLen+len(value))
	p[0] = byte(len(p) - 1)
	binary.LittleEndian.PutUint16(p[1:], uint16(t))
	copy(p[ProtectHeaderLen:], value)
	return p
}

// SCMST returns the SCMS-T element without a mode byte, as advertised in
// capabilities.
func SCMST() ProtectInfo {
	return NewProtectInfo(ProtectTypeSCMST, nil)
}

// SCMSTWithMode returns an SCMS-T element carrying a copy-control mode byte.
func SCMSTWithMode(mode CopyMode) ProtectInfo {
	return NewProtectInfo(ProtectTypeSCMST, []byte{byte(mode)})
}

// Valid returns true if the header is well formed.
func (p ProtectInfo) Valid() bool {
	return len(p) >= ProtectHeaderLen && int(p[0])+1 == len(p)
}

// Type returns the content protection type.
func (p ProtectInfo) Type() ProtectType {
	if len(p) < ProtectHeaderLen {
		return 0
	}
	return ProtectType(binary.LittleEndian.Uint16(p[1:]))
}

// Value returns the type-specific value bytes.
func (p ProtectInfo) Value() []byte {
	if len(p) <= ProtectHeaderLen {
		return nil
	}
	return p[ProtectHeaderLen:]
}

// CopyMode returns the SCMS-T mode byte and true if the element is SCMS-T
// and carries one.
func (p ProtectInfo) CopyMode() (CopyMode, bool) {
	if p.Type() != ProtectTypeSCMST {
		return 0, false
	}
	v := p.Value()
	if len(v) != 1 || !CopyMode(v[0]).IsValid() {
		return 0, false
	}
	return CopyMode(v[0]), true
}

// Equal reports whether two elements are byte-identical.
func (p ProtectInfo) Equal(other ProtectInfo) bool {
	return bytes.Equal(p, other)
}

// Clone returns a copy of the element.
func (p ProtectInfo) Clone() ProtectInfo {
	if p == nil {
		return nil
	}
	out := make(ProtectInfo, len(p))
	copy(out, p)
	return out
}

// ParseProtectList splits num concatenated elements from buf.
// Bytes after the last element are ignored.
func ParseProtectList(num int, buf []byte) ([]ProtectInfo, error) {
	if num == 0 {
		return nil, nil
	}
	list := make([]ProtectInfo, 0, num)
	off := 0
	for i := 0; i < num; i++ {
		if off >= len(buf) {
			return nil, fmt.Errorf("%w: have %d of %d", ErrProtectCount, i, num)
		}
		n := int(buf[off]) + 1
		if n < ProtectHeaderLen {
			return nil, ErrElementTooShort
		}
		if off+n > len(buf) {
			return nil, ErrLengthMismatch
		}
		list = append(list, ProtectInfo(buf[off:off+n]).Clone())
		off += n
	}
	return list, nil
}

// EncodeProtectList concatenates elements into wire format and returns the
// element count alongside the bytes.
func EncodeProtectList(list []ProtectInfo) (int, []byte) {
	var buf []byte
	for _, p := range list {
		buf = append(buf, p...)
	}
	return len(list), buf
}

// FindProtect returns the first element of type t.
func FindProtect(list []ProtectInfo, t ProtectType) (ProtectInfo, bool) {
	for _, p := range list {
		if p.Type() == t {
			return p, true
		}
	}
	return nil, false
}

// CloneProtectList deep-copies a list of elements.
func CloneProtectList(list []ProtectInfo) []ProtectInfo {
	if list == nil {
		return nil
	}
	out := make([]ProtectInfo, len(list))
	for i, p := range list {
		out[i] = p.Clone()
	}
	return out
}
