// Package stream implements the stream registry: the per-handle state of
// every audio stream known to the policy.
//
// Each stream moves through a fixed lifecycle:
//
//	Idle → Configuring → Configured → Open → Started ⇄ Stopped → Closed
//
// Configuring is entered when discovery results arrive, Configured when an
// inbound or locally selected configuration is accepted, Open when the
// transport channel is established, and Started/Stopped under streaming
// control. Closed is terminal: the entry is released together with every
// record scoped to the handle.
//
// Apart from Started ⇄ Stopped, transitions only move forward. A stream that
// is already Open or Stopped may be reconfigured without leaving its state.
package stream

// Handle is the opaque stream identifier assigned by the control state
// machine. It is unique for the stream's lifetime.
type Handle uint8

// State is a stream lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConfiguring
	StateConfigured
	StateOpen
	StateStarted
	StateStopped
	StateClosed
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateConfiguring:
		return "Configuring"
	case StateConfigured:
		return "Configured"
	case StateOpen:
		return "Open"
	case StateStarted:
		return "Started"
	case StateStopped:
		return "Stopped"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// IsValid returns true if the state is a defined value.
func (s State) IsValid() bool {
	return s >= StateIdle && s <= StateClosed
}

// IsConfigured returns true for states that hold an accepted configuration.
func (s State) IsConfigured() bool {
	return s >= StateConfigured && s < StateClosed
}

// IsOpen returns true while the transport channel is established.
func (s State) IsOpen() bool {
	return s == StateOpen || s == StateStarted || s == StateStopped
}

// CanConfigure returns true if a configuration may be applied in this state.
func (s State) CanConfigure() bool {
	switch s {
	case StateIdle, StateConfiguring, StateConfigured, StateOpen, StateStopped:
		return true
	default:
		return false
	}
}

// CanTransition returns true if the lifecycle permits moving to next.
// Closing is permitted from every state.
func (s State) CanTransition(next State) bool {
	if next == StateClosed {
		return true
	}
	switch s {
	case StateIdle:
		return next == StateConfiguring || next == StateConfigured
	case StateConfiguring:
		return next == StateConfiguring || next == StateConfigured
	case StateConfigured:
		return next == StateConfigured || next == StateOpen
	case StateOpen:
		return next == StateStarted
	case StateStarted:
		return next == StateStopped
	case StateStopped:
		return next == StateStarted
	default:
		return false
	}
}
