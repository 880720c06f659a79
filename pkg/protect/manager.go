// Package protect answers content protection queries for the stream
// policy.
//
// The copy-control flag is the outcome of the most recent accepted SCMS-T
// negotiation and outlives the stream that negotiated it. The active
// indication is computed from the registry on every call, so it clears as
// soon as the enforcing streams stop or close.
package protect

import (
	"sync"

	"github.com/backkem/avpolicy/pkg/a2dp"
	"github.com/backkem/avpolicy/pkg/stream"
)

// Config configures a Manager.
type Config struct {
	// Registry is the stream registry to project over. Required.
	Registry *stream.Registry

	// Enabled advertises SCMS-T in local capabilities.
	Enabled bool

	// DefaultMode is the copy-control mode reported when no stream has
	// negotiated SCMS-T, and the mode applied to SCMS-T elements that carry
	// no mode byte. Defaults to CopyNever.
	DefaultMode *a2dp.CopyMode
}

// Manager answers content protection queries.
type Manager struct {
	registry    *stream.Registry
	enabled     bool
	defaultMode a2dp.CopyMode

	mu      sync.Mutex
	last    a2dp.CopyMode
	hasLast bool
}

// NewManager creates a content protection manager.
func NewManager(config Config) *Manager {
	mode := a2dp.CopyNever
	if config.DefaultMode != nil && config.DefaultMode.IsValid() {
		mode = *config.DefaultMode
	}
	return &Manager{
		registry:    config.Registry,
		enabled:     config.Enabled,
		defaultMode: mode,
	}
}

// Supported returns true if the local device offers SCMS-T.
func (m *Manager) Supported() bool {
	return m.enabled
}

// Capability returns the local content protection elements.
func (m *Manager) Capability() []a2dp.ProtectInfo {
	if !m.enabled {
		return nil
	}
	return []a2dp.ProtectInfo{a2dp.SCMST()}
}

// DefaultMode returns the fallback copy-control mode.
func (m *Manager) DefaultMode() a2dp.CopyMode {
	return m.defaultMode
}

// ModeOf returns the copy-control mode carried by an SCMS-T element list.
// Returns false when the list holds no SCMS-T element.
func (m *Manager) ModeOf(list []a2dp.ProtectInfo) (a2dp.CopyMode, bool) {
	p, ok := a2dp.FindProtect(list, a2dp.ProtectTypeSCMST)
	if !ok {
		return a2dp.CopyFree, false
	}
	if mode, ok := p.CopyMode(); ok {
		return mode, true
	}
	return m.defaultMode, true
}

// Accept records an accepted stream configuration. Configurations that
// negotiated SCMS-T set the copy-control flag.
func (m *Manager) Accept(cfg stream.Config) {
	if _, ok := a2dp.FindProtect(cfg.Protect, a2dp.ProtectTypeSCMST); !ok {
		return
	}
	m.mu.Lock()
	m.last = cfg.CopyMode
	m.hasLast = true
	m.mu.Unlock()
}

// Flag returns the copy-control mode of the most recent accepted
// configuration that negotiated SCMS-T, or the default mode if none did.
// Closing the stream does not reset it.
func (m *Manager) Flag() a2dp.CopyMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasLast {
		return m.defaultMode
	}
	return m.last
}

// IsActive returns true if any Started stream negotiated SCMS-T with a mode
// other than copy-free.
func (m *Manager) IsActive() bool {
	active := false
	m.registry.ForEach(func(e *stream.Entry) bool {
		if e.State == stream.StateStarted && e.ProtectionEnforced() {
			active = true
			return false
		}
		return true
	})
	return active
}

// ActiveFor returns true if the stream with handle h is enforcing content
// protection.
func (m *Manager) ActiveFor(h stream.Handle) bool {
	e, ok := m.registry.Get(h)
	return ok && e.ProtectionEnforced()
}
