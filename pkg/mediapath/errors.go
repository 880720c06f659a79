package mediapath

import "errors"

var (
	// ErrDropped is returned by a Link endpoint when the simulated link
	// discards a packet.
	ErrDropped = errors.New("mediapath: packet dropped by link")

	// ErrPacketTooLarge is returned when a packet exceeds the link's
	// maximum packet size.
	ErrPacketTooLarge = errors.New("mediapath: packet exceeds link MTU")

	// ErrNoFeed is returned when a Driver is created without a feed.
	ErrNoFeed = errors.New("mediapath: feed is required")

	// ErrNoConn is returned when a Driver is created without a connection.
	ErrNoConn = errors.New("mediapath: connection is required")

	// ErrShortPacket is returned when parsing a truncated media packet.
	ErrShortPacket = errors.New("mediapath: short packet")
)
