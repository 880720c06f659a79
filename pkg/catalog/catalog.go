package catalog

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/backkem/avpolicy/pkg/a2dp"
	"github.com/pion/logging"
	"golang.org/x/sync/singleflight"
)

// Default codec priorities. Higher values are preferred.
const (
	PrioritySBC  = 1000
	PriorityAAC  = 2000
	PriorityAptX = 3000
)

// Backend initializes codecs in the device codec engine.
// InitCodec may block; it is only called from Initialize.
type Backend interface {
	InitCodec(ctx context.Context, index a2dp.CodecIndex) error
}

// BackendFunc adapts a function to Backend.
type BackendFunc func(ctx context.Context, index a2dp.CodecIndex) error

// InitCodec implements Backend.
func (f BackendFunc) InitCodec(ctx context.Context, index a2dp.CodecIndex) error {
	return f(ctx, index)
}

// Definition describes one codec the catalog can offer.
type Definition struct {
	// Codec is the codec implementation, carrying the local capability.
	Codec a2dp.Codec

	// Priority orders codecs during selection. Higher is preferred.
	Priority int
}

// DefaultDefinitions returns every built-in codec with its default
// capability and priority.
func DefaultDefinitions() []Definition {
	prio := map[a2dp.CodecIndex]int{
		a2dp.CodecIndexSourceSBC:  PrioritySBC,
		a2dp.CodecIndexSourceAAC:  PriorityAAC,
		a2dp.CodecIndexSourceAptX: PriorityAptX,
		a2dp.CodecIndexSinkSBC:    PrioritySBC,
		a2dp.CodecIndexSinkAAC:    PriorityAAC,
	}

	defs := make([]Definition, 0, a2dp.CodecIndexMax)
	for i := a2dp.CodecIndexSourceSBC; i < a2dp.CodecIndexMax; i++ {
		c, ok := a2dp.NewDefaultCodec(i)
		if !ok {
			continue
		}
		defs = append(defs, Definition{Codec: c, Priority: prio[i]})
	}
	return defs
}

// Config configures a Catalog.
type Config struct {
	// Definitions lists the codecs available for initialization.
	// Defaults to DefaultDefinitions if empty.
	Definitions []Definition

	// Backend initializes codecs in the device codec engine.
	// Optional - if nil, initialization always succeeds.
	Backend Backend

	// ContentProtection advertises SCMS-T support in every capability.
	ContentProtection bool

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Capability is the local capability set advertised for one codec.
type Capability struct {
	Index    a2dp.CodecIndex
	Name     string
	Type     a2dp.SEPType
	Codec    a2dp.CodecInfo
	Protect  []a2dp.ProtectInfo
	Priority int
}

// Entry is a registered codec with its priority.
type Entry struct {
	Codec    a2dp.Codec
	Priority int
}

// Catalog is the codec capability catalog.
// All methods are safe for concurrent use.
type Catalog struct {
	defs     map[a2dp.CodecIndex]Definition
	backend  Backend
	cp       bool
	inflight singleflight.Group
	log      logging.LeveledLogger

	mu         sync.RWMutex
	registered map[a2dp.CodecIndex]*Capability
	ordered    []Entry
}

// New creates a catalog. Returns ErrDuplicateCodec if two definitions share
// an index.
func New(config Config) (*Catalog, error) {
	defs := config.Definitions
	if len(defs) == 0 {
		defs = DefaultDefinitions()
	}

	c := &Catalog{
		defs:       make(map[a2dp.CodecIndex]Definition, len(defs)),
		backend:    config.Backend,
		cp:         config.ContentProtection,
		registered: make(map[a2dp.CodecIndex]*Capability),
	}
	for _, d := range defs {
		idx := d.Codec.Index()
		if _, exists := c.defs[idx]; exists {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateCodec, idx)
		}
		c.defs[idx] = d
	}

	if config.LoggerFactory != nil {
		c.log = config.LoggerFactory.NewLogger("catalog")
	}
	return c, nil
}

// Initialize builds the local capability for a codec and registers it for
// negotiation. Repeated calls return the registered capability without
// calling the backend again.
//
// Returns ErrUnknownCodec for indices without a definition, or an error
// wrapping ErrBackendInit when the backend fails.
func (c *Catalog) Initialize(ctx context.Context, index a2dp.CodecIndex) (*Capability, error) {
	def, ok := c.defs[index]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownCodec, index)
	}

	v, err, _ := c.inflight.Do(strconv.Itoa(int(index)), func() (interface{}, error) {
		if capab := c.capability(index); capab != nil {
			return capab, nil
		}

		if c.backend != nil {
			if err := c.backend.InitCodec(ctx, index); err != nil {
				if c.log != nil {
					c.log.Warnf("codec %v backend init failed: %v", index, err)
				}
				return nil, fmt.Errorf("%w: %v: %w", ErrBackendInit, index, err)
			}
		}

		capab := c.buildCapability(def)
		c.register(def, capab)
		if c.log != nil {
			c.log.Infof("codec %s registered, priority=%d caps=%v", capab.Name, capab.Priority, capab.Codec)
		}
		return capab, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneCapability(v.(*Capability)), nil
}

func (c *Catalog) buildCapability(def Definition) *Capability {
	capab := &Capability{
		Index:    def.Codec.Index(),
		Name:     def.Codec.Name(),
		Type:     def.Codec.Type(),
		Codec:    def.Codec.Capability(),
		Priority: def.Priority,
	}
	if c.cp {
		capab.Protect = []a2dp.ProtectInfo{a2dp.SCMST()}
	}
	return capab
}

func (c *Catalog) capability(index a2dp.CodecIndex) *Capability {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.registered[index]
}

func (c *Catalog) register(def Definition, capab *Capability) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.registered[capab.Index] = capab
	c.ordered = append(c.ordered, Entry{Codec: def.Codec, Priority: def.Priority})
	sort.SliceStable(c.ordered, func(i, j int) bool {
		if c.ordered[i].Priority != c.ordered[j].Priority {
			return c.ordered[i].Priority > c.ordered[j].Priority
		}
		return c.ordered[i].Codec.Index() < c.ordered[j].Codec.Index()
	})
}

// IsRegistered returns true if the codec has been initialized.
func (c *Catalog) IsRegistered(index a2dp.CodecIndex) bool {
	return c.capability(index) != nil
}

// Capability returns the registered capability for a codec, or nil.
func (c *Catalog) Capability(index a2dp.CodecIndex) *Capability {
	return cloneCapability(c.capability(index))
}

// Codecs returns the registered codecs in priority order.
func (c *Catalog) Codecs() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// CodecsFor returns the registered codecs serving local endpoints of type
// sep, in priority order.
func (c *Catalog) CodecsFor(sep a2dp.SEPType) []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Entry
	for _, e := range c.ordered {
		if e.Codec.Type() == sep {
			out = append(out, e)
		}
	}
	return out
}

// Lookup returns the registered codec for local endpoint type sep that
// handles the codec element info.
func (c *Catalog) Lookup(sep a2dp.SEPType, info a2dp.CodecInfo) (a2dp.Codec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, e := range c.ordered {
		if e.Codec.Type() == sep && e.Codec.Matches(info) {
			return e.Codec, true
		}
	}
	return nil, false
}

// ContentProtection returns true if SCMS-T is advertised.
func (c *Catalog) ContentProtection() bool {
	return c.cp
}

// Count returns the number of registered codecs.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.registered)
}

func cloneCapability(capab *Capability) *Capability {
	if capab == nil {
		return nil
	}
	out := *capab
	out.Codec = capab.Codec.Clone()
	out.Protect = a2dp.CloneProtectList(capab.Protect)
	return &out
}
