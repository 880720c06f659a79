package a2dp

// SEPRecord is one stream endpoint advertised by the peer, assembled from
// the AVDTP Discover and Get Capabilities responses.
type SEPRecord struct {
	// SEID is the peer's stream endpoint identifier (1-62).
	SEID uint8

	// Type is the peer endpoint type.
	Type SEPType

	// InUse is set when the peer reported the endpoint as in use.
	InUse bool

	// Codec is the peer's codec capability element.
	Codec CodecInfo

	// Protect lists the content protection schemes the endpoint supports,
	// in the order advertised.
	Protect []ProtectInfo
}

// Clone returns a deep copy of the record.
func (r SEPRecord) Clone() SEPRecord {
	r.Codec = r.Codec.Clone()
	r.Protect = CloneProtectList(r.Protect)
	return r
}

// Supports returns true if the endpoint advertises protection type t.
func (r SEPRecord) Supports(t ProtectType) bool {
	_, ok := FindProtect(r.Protect, t)
	return ok
}

// SEID bounds.
const (
	MinSEID uint8 = 0x01
	MaxSEID uint8 = 0x3E
)
