// Package mtu arbitrates the transport MTU shared by concurrently open
// streams.
//
// Each audio direction has its own table of reported link MTUs. The
// effective MTU of a direction is the minimum over its table, or 0 when no
// stream of that direction is open. Recomputation happens under the
// arbiter's lock, so a close on one stream is atomic with respect to an
// open on another.
package mtu

import (
	"sync"

	"github.com/backkem/avpolicy/pkg/a2dp"
	"github.com/backkem/avpolicy/pkg/stream"
	"github.com/pion/logging"
)

// ChangeFunc is called when the effective MTU of a direction changes.
// It runs after the arbiter's lock is released.
type ChangeFunc func(dir a2dp.SEPType, mtu uint16)

// Config configures an Arbiter.
type Config struct {
	// OnChange is notified whenever a direction's effective MTU changes.
	// Optional.
	OnChange ChangeFunc

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

type table struct {
	streams   map[stream.Handle]uint16
	effective uint16
}

// Arbiter holds one MTU table per direction.
type Arbiter struct {
	onChange ChangeFunc
	log      logging.LeveledLogger

	mu     sync.Mutex
	tables [2]table
	dirs   map[stream.Handle]a2dp.SEPType
}

// NewArbiter creates an empty arbiter.
func NewArbiter(config Config) *Arbiter {
	a := &Arbiter{
		onChange: config.OnChange,
		dirs:     make(map[stream.Handle]a2dp.SEPType),
	}
	for i := range a.tables {
		a.tables[i].streams = make(map[stream.Handle]uint16)
	}
	if config.LoggerFactory != nil {
		a.log = config.LoggerFactory.NewLogger("mtu")
	}
	return a
}

// OnOpen inserts h into the table for dir and returns the effective MTU
// the stream must use. Reopening a handle moves it to dir with the new
// value. An invalid direction yields mtu unchanged and no table update.
func (a *Arbiter) OnOpen(h stream.Handle, dir a2dp.SEPType, mtu uint16) uint16 {
	if !dir.IsValid() {
		return mtu
	}

	a.mu.Lock()
	var changes []change
	if old, ok := a.dirs[h]; ok && old != dir {
		changes = a.remove(h, old, changes)
	}
	a.dirs[h] = dir
	a.tables[dir].streams[h] = mtu
	changes = a.recompute(dir, changes)
	eff := a.tables[dir].effective
	a.mu.Unlock()

	if a.log != nil {
		a.log.Debugf("stream %d open %s: reported=%d effective=%d", h, dir, mtu, eff)
	}
	a.notify(changes)
	return eff
}

// OnClose removes h and returns its direction and the recomputed effective
// MTU of that direction (0 once the table is empty). Remaining streams are
// not notified here; the OnChange listener or the caller propagates the
// new value.
func (a *Arbiter) OnClose(h stream.Handle) (a2dp.SEPType, uint16, error) {
	a.mu.Lock()
	dir, ok := a.dirs[h]
	if !ok {
		a.mu.Unlock()
		return 0, 0, ErrUnknownStream
	}
	changes := a.remove(h, dir, nil)
	eff := a.tables[dir].effective
	a.mu.Unlock()

	if a.log != nil {
		a.log.Debugf("stream %d closed %s: effective=%d", h, dir, eff)
	}
	a.notify(changes)
	return dir, eff, nil
}

// OnUpdate replaces the reported MTU of an open stream and returns the
// recomputed effective MTU of its direction.
func (a *Arbiter) OnUpdate(h stream.Handle, mtu uint16) (uint16, error) {
	a.mu.Lock()
	dir, ok := a.dirs[h]
	if !ok {
		a.mu.Unlock()
		return 0, ErrUnknownStream
	}
	a.tables[dir].streams[h] = mtu
	changes := a.recompute(dir, nil)
	eff := a.tables[dir].effective
	a.mu.Unlock()

	a.notify(changes)
	return eff, nil
}

// Effective returns the effective MTU of dir.
func (a *Arbiter) Effective(dir a2dp.SEPType) uint16 {
	if !dir.IsValid() {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.tables[dir].effective
}

// Reported returns the MTU reported for h at open or last update.
func (a *Arbiter) Reported(h stream.Handle) (uint16, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	dir, ok := a.dirs[h]
	if !ok {
		return 0, false
	}
	return a.tables[dir].streams[h], true
}

// Len returns the number of open streams in dir.
func (a *Arbiter) Len(dir a2dp.SEPType) int {
	if !dir.IsValid() {
		return 0
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.tables[dir].streams)
}

type change struct {
	dir a2dp.SEPType
	mtu uint16
}

// remove deletes h from dir's table. Caller holds the lock.
func (a *Arbiter) remove(h stream.Handle, dir a2dp.SEPType, changes []change) []change {
	delete(a.tables[dir].streams, h)
	delete(a.dirs, h)
	return a.recompute(dir, changes)
}

// recompute refreshes dir's effective MTU and records a change.
// Caller holds the lock.
func (a *Arbiter) recompute(dir a2dp.SEPType, changes []change) []change {
	t := &a.tables[dir]
	var eff uint16
	first := true
	for _, m := range t.streams {
		if first || m < eff {
			eff = m
			first = false
		}
	}
	if eff != t.effective {
		t.effective = eff
		changes = append(changes, change{dir: dir, mtu: eff})
	}
	return changes
}

func (a *Arbiter) notify(changes []change) {
	if a.onChange == nil {
		return
	}
	for _, c := range changes {
		a.onChange(c.dir, c.mtu)
	}
}
