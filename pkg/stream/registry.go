package stream

import (
	"fmt"
	"sync"

	"github.com/backkem/avpolicy/pkg/a2dp"
	"github.com/pion/logging"
)

// DefaultMaxStreams is the default maximum number of concurrent streams.
const DefaultMaxStreams = 8

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	// MaxStreams limits the number of tracked streams.
	// Defaults to DefaultMaxStreams if 0.
	MaxStreams int

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Registry tracks every stream by handle.
//
// Entries live in an arena of slots. The handle index maps a handle to its
// slot, and released slots are recycled through a free list, so an entry is
// only reachable between its creation and Remove.
//
// All methods are safe for concurrent use. Every method holds the lock for
// a constant amount of work, so a handle's state is never observed
// mid-transition.
type Registry struct {
	maxStreams int
	log        logging.LeveledLogger

	mu      sync.RWMutex
	slots   []slot
	index   map[Handle]int
	free    []int
	nextSeq uint64
}

type slot struct {
	entry Entry
	used  bool
}

// NewRegistry creates a new stream registry.
func NewRegistry(config RegistryConfig) *Registry {
	maxStreams := config.MaxStreams
	if maxStreams <= 0 {
		maxStreams = DefaultMaxStreams
	}

	r := &Registry{
		maxStreams: maxStreams,
		index:      make(map[Handle]int),
	}
	if config.LoggerFactory != nil {
		r.log = config.LoggerFactory.NewLogger("stream")
	}
	return r
}

// lookup returns the live entry for h. Caller holds the lock.
func (r *Registry) lookup(h Handle) *Entry {
	i, ok := r.index[h]
	if !ok {
		return nil
	}
	return &r.slots[i].entry
}

// create allocates a slot for h. Caller holds the write lock.
func (r *Registry) create(h Handle) (*Entry, error) {
	if len(r.index) >= r.maxStreams {
		return nil, ErrRegistryFull
	}

	var i int
	if n := len(r.free); n > 0 {
		i = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		r.slots = append(r.slots, slot{})
		i = len(r.slots) - 1
	}

	r.slots[i] = slot{entry: Entry{Handle: h, State: StateIdle}, used: true}
	r.index[h] = i
	return &r.slots[i].entry, nil
}

// lookupOrCreate returns the entry for h, creating it when absent.
func (r *Registry) lookupOrCreate(h Handle) (*Entry, error) {
	if e := r.lookup(h); e != nil {
		return e, nil
	}
	return r.create(h)
}

// Discover records discovery results for h and moves it to Configuring.
// The entry is created if absent. Streams past Configuring keep their state.
func (r *Registry) Discover(h Handle, d Discovery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookupOrCreate(h)
	if err != nil {
		return err
	}
	e.Discovery = d
	if e.State < StateConfiguring {
		e.State = StateConfiguring
	}
	return nil
}

// Configure stores an accepted configuration, replacing any previous one,
// and clears the rejected flag. The entry is created if absent.
//
// Fresh streams move to Configured. Open and Stopped streams are
// reconfigured in place. Returns ErrInvalidTransition for Started streams.
func (r *Registry) Configure(h Handle, cfg Config) error {
	if len(cfg.Codec) == 0 {
		return ErrEmptyConfig
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookupOrCreate(h)
	if err != nil {
		return err
	}
	if !e.State.CanConfigure() {
		return fmt.Errorf("%w: configure in %s", ErrInvalidTransition, e.State)
	}

	r.nextSeq++
	e.Config = Config{
		SEP:             cfg.SEP.Clone(),
		LocalType:       cfg.LocalType,
		PeerAddr:        cfg.PeerAddr,
		TransportHandle: cfg.TransportHandle,
		Codec:           cfg.Codec.Clone(),
		Protect:         a2dp.CloneProtectList(cfg.Protect),
		CopyMode:        cfg.CopyMode,
	}
	e.ConfigSeq = r.nextSeq
	e.Rejected = false
	if e.State < StateConfigured {
		e.State = StateConfigured
	}

	if r.log != nil {
		r.log.Debugf("stream %d configured: codec=%v seid=%d state=%s", h, e.Codec, e.SEP.SEID, e.State)
	}
	return nil
}

// Reject marks the most recent configuration of h as rejected. The entry is
// created if absent so that the handle remains visible until closed.
func (r *Registry) Reject(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.lookupOrCreate(h)
	if err != nil {
		return err
	}
	e.Rejected = true
	return nil
}

// Transition moves h to state next and returns the previous state.
// Open requires an accepted configuration.
func (r *Registry) Transition(h Handle, next State) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.lookup(h)
	if e == nil {
		return StateIdle, ErrStreamNotFound
	}
	prev := e.State
	if !prev.CanTransition(next) {
		return prev, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, prev, next)
	}
	if (next == StateOpen || next == StateStarted) && (e.Rejected || !prev.IsConfigured()) {
		return prev, ErrNotConfigured
	}
	e.State = next

	if r.log != nil {
		r.log.Debugf("stream %d: %s -> %s", h, prev, next)
	}
	return prev, nil
}

// SetMTU records the reported link MTU of h.
func (r *Registry) SetMTU(h Handle, mtu uint16) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.lookup(h)
	if e == nil {
		return ErrStreamNotFound
	}
	e.MTU = mtu
	return nil
}

// SetDelay records the peer delay report of h in 1/10 ms.
func (r *Registry) SetDelay(h Handle, delay uint16) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.lookup(h)
	if e == nil {
		return ErrStreamNotFound
	}
	e.Delay = delay
	return nil
}

// Remove releases the entry for h and returns it with State set to Closed.
// No error is returned if the handle doesn't exist.
func (r *Registry) Remove(h Handle) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i, ok := r.index[h]
	if !ok {
		return Entry{}, false
	}
	e := r.slots[i].entry
	e.State = StateClosed

	r.slots[i] = slot{}
	delete(r.index, h)
	r.free = append(r.free, i)
	return e, true
}

// Get returns a copy of the entry for h.
func (r *Registry) Get(h Handle) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e := r.lookup(h)
	if e == nil {
		return Entry{}, false
	}
	return e.clone(), true
}

// State returns the lifecycle state of h. Unknown handles report Idle.
func (r *Registry) State(h Handle) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e := r.lookup(h)
	if e == nil {
		return StateIdle, false
	}
	return e.State, true
}

// Count returns the number of tracked streams.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.index)
}

// MaxStreams returns the maximum number of streams allowed.
func (r *Registry) MaxStreams() int {
	return r.maxStreams
}

// ForEach calls fn for each stream until fn returns false.
// Entries are passed by pointer for efficiency; fn must not modify them,
// retain them beyond the call, or call back into the registry.
func (r *Registry) ForEach(fn func(*Entry) bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.forEach(fn)
}

// TryForEach is ForEach without waiting: if the registry is locked for
// writing it returns false immediately without calling fn.
func (r *Registry) TryForEach(fn func(*Entry) bool) bool {
	if !r.mu.TryRLock() {
		return false
	}
	defer r.mu.RUnlock()
	r.forEach(fn)
	return true
}

func (r *Registry) forEach(fn func(*Entry) bool) {
	for i := range r.slots {
		if !r.slots[i].used {
			continue
		}
		if !fn(&r.slots[i].entry) {
			return
		}
	}
}
