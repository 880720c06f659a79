// Package policy is the call-out surface between an A2DP control state
// machine and the device stream policy.
//
// Policy wires the codec catalog, SEP selector, stream registry, MTU
// arbiter, content protection manager and data path feeder behind the
// StreamPolicy interface. Control calls are synchronous and expected one
// at a time per handle; NextFrame and FrameDropped may be called
// concurrently from the media path and never wait on control calls.
//
// No call tears a stream down on its own. A failed negotiation or a
// rejected configuration is reported through a status or through the
// stream never reaching the configured state; the caller closes it.
package policy

import (
	"context"

	"github.com/backkem/avpolicy/pkg/a2dp"
	"github.com/backkem/avpolicy/pkg/catalog"
	"github.com/backkem/avpolicy/pkg/feeder"
	"github.com/backkem/avpolicy/pkg/metrics"
	"github.com/backkem/avpolicy/pkg/mtu"
	"github.com/backkem/avpolicy/pkg/protect"
	"github.com/backkem/avpolicy/pkg/selector"
	"github.com/backkem/avpolicy/pkg/stream"
	"github.com/pion/logging"
)

// Discovery is the outcome of endpoint discovery on one stream.
type Discovery struct {
	NumSEPs      uint8
	NumSink      uint8
	NumSource    uint8
	PeerAddr     a2dp.BDAddr
	ServiceClass uint16

	// Endpoints lists the peer endpoints with their capabilities, in
	// discovery order.
	Endpoints []a2dp.SEPRecord
}

// StreamPolicy is the set of calls the control state machine and the
// media path make into the policy.
type StreamPolicy interface {
	// Init builds and registers the local capability of a codec.
	Init(ctx context.Context, index a2dp.CodecIndex) (*catalog.Capability, error)

	// DiscoveryResult records the endpoints found on the peer.
	DiscoveryResult(h stream.Handle, d Discovery)

	// GetConfig selects an endpoint and configuration for h. A non-zero
	// seid constrains selection to that endpoint. The error is an a2dp.Status.
	GetConfig(h stream.Handle, seid uint8) (selector.Selection, error)

	// SetConfig applies a negotiated configuration. A rejected
	// configuration leaves h unconfigured and returns its a2dp.Status.
	SetConfig(h stream.Handle, req selector.Request) error

	// Open records the transport connection of h and returns the
	// effective MTU the stream must use.
	Open(h stream.Handle, mtu uint16) (uint16, error)

	// Close tears down all state of h. It always succeeds.
	Close(h stream.Handle)

	// Start begins streaming on h. noHeader reports that media packets are
	// sent without a media header.
	Start(h stream.Handle, codec a2dp.CodecInfo) (noHeader bool, err error)

	// Stop suspends streaming on h.
	Stop(h stream.Handle) error

	// UpdateMTU re-arbitrates after the link MTU of h changed.
	UpdateMTU(h stream.Handle, mtu uint16) (uint16, error)

	// DelayReport records the peer's delay report for h in 1/10 ms.
	DelayReport(h stream.Handle, delay uint16)

	// NextFrame returns the next frame for cfg without blocking.
	NextFrame(cfg a2dp.CodecInfo) (feeder.Frame, bool)

	// FrameDropped reports that a frame of h was not delivered.
	FrameDropped(h stream.Handle)

	// CPGetFlag returns the copy-control mode in effect.
	CPGetFlag() a2dp.CopyMode

	// CPIsActive reports whether content protection is enforced.
	CPIsActive() bool

	// IsConfigured reports whether h holds an accepted configuration.
	IsConfigured(h stream.Handle) bool

	// State returns the lifecycle state of h.
	State(h stream.Handle) stream.State

	// EffectiveMTU returns the shared MTU of a direction.
	EffectiveMTU(dir a2dp.SEPType) uint16
}

var _ StreamPolicy = (*Policy)(nil)

// Policy implements StreamPolicy.
type Policy struct {
	config Config
	log    logging.LeveledLogger

	catalog  *catalog.Catalog
	registry *stream.Registry
	arbiter  *mtu.Arbiter
	protect  *protect.Manager
	selector *selector.Selector
	feeder   *feeder.Feeder
	metrics  *metrics.Metrics
}

// New creates a policy with the given configuration.
func New(config Config) (*Policy, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.applyDefaults()

	p := &Policy{
		config:  config,
		metrics: config.Metrics,
	}
	if config.LoggerFactory != nil {
		p.log = config.LoggerFactory.NewLogger("policy")
	}

	var err error
	p.catalog, err = catalog.New(catalog.Config{
		Definitions:       config.Codecs,
		Backend:           config.Backend,
		ContentProtection: config.ContentProtection,
		LoggerFactory:     config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}

	p.registry = stream.NewRegistry(stream.RegistryConfig{
		MaxStreams:    config.MaxStreams,
		LoggerFactory: config.LoggerFactory,
	})

	p.arbiter = mtu.NewArbiter(mtu.Config{
		OnChange:      p.mtuChanged,
		LoggerFactory: config.LoggerFactory,
	})

	p.protect = protect.NewManager(protect.Config{
		Registry:    p.registry,
		Enabled:     config.ContentProtection,
		DefaultMode: config.DefaultCopyMode,
	})

	p.selector, err = selector.New(selector.Config{
		Catalog:                  p.catalog,
		Registry:                 p.registry,
		Protect:                  p.protect,
		RequireContentProtection: config.RequireContentProtection,
		LoggerFactory:            config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}

	p.feeder = feeder.New(feeder.Config{
		Registry:      p.registry,
		Source:        config.Source,
		MaxLevel:      config.MaxLevel,
		RecoverAfter:  config.RecoverAfter,
		Metrics:       config.Metrics,
		LoggerFactory: config.LoggerFactory,
	})

	return p, nil
}

func (p *Policy) mtuChanged(dir a2dp.SEPType, value uint16) {
	p.metrics.SetMTU(dir.String(), value)
	p.metrics.SetOpen(dir.String(), p.arbiter.Len(dir))
	if p.config.OnMTUChange != nil {
		p.config.OnMTUChange(dir, value)
	}
}

// Init implements StreamPolicy.
func (p *Policy) Init(ctx context.Context, index a2dp.CodecIndex) (*catalog.Capability, error) {
	capab, err := p.catalog.Initialize(ctx, index)
	if err != nil {
		if p.log != nil {
			p.log.Errorf("codec %v init failed: %v", index, err)
		}
		return nil, err
	}
	p.metrics.SetCodecs(p.catalog.Count())
	return capab, nil
}

// DiscoveryResult implements StreamPolicy.
func (p *Policy) DiscoveryResult(h stream.Handle, d Discovery) {
	err := p.registry.Discover(h, stream.Discovery{
		NumSEPs:      d.NumSEPs,
		NumSink:      d.NumSink,
		NumSource:    d.NumSource,
		PeerAddr:     d.PeerAddr,
		ServiceClass: d.ServiceClass,
	})
	if err != nil {
		if p.log != nil {
			p.log.Warnf("stream %d: discovery not recorded: %v", h, err)
		}
		return
	}
	p.selector.Record(h, d.Endpoints, p.config.LocalType.Peer())

	if p.log != nil {
		p.log.Infof("stream %d: discovered %d endpoints (%d sink, %d source) on %v",
			h, d.NumSEPs, d.NumSink, d.NumSource, d.PeerAddr)
	}
}

// GetConfig implements StreamPolicy.
func (p *Policy) GetConfig(h stream.Handle, seid uint8) (selector.Selection, error) {
	sel, err := p.selector.Select(h, seid)
	p.metrics.Selection(a2dp.StatusOf(err).String())
	return sel, err
}

// SetConfig implements StreamPolicy. The local endpoint type is always
// the policy's LocalType.
func (p *Policy) SetConfig(h stream.Handle, req selector.Request) error {
	req.LocalType = p.config.LocalType
	err := p.selector.Apply(h, req)
	p.metrics.Configuration(err == nil)
	return err
}

// Open implements StreamPolicy.
func (p *Policy) Open(h stream.Handle, reported uint16) (uint16, error) {
	if _, err := p.registry.Transition(h, stream.StateOpen); err != nil {
		if p.log != nil {
			p.log.Warnf("stream %d: open refused: %v", h, err)
		}
		return 0, err
	}
	p.metrics.Transition(stream.StateOpen.String())

	e, _ := p.registry.Get(h)
	if err := p.registry.SetMTU(h, reported); err != nil {
		return 0, err
	}
	eff := p.arbiter.OnOpen(h, e.Direction(), reported)
	p.metrics.SetOpen(e.Direction().String(), p.arbiter.Len(e.Direction()))
	return eff, nil
}

// Close implements StreamPolicy.
func (p *Policy) Close(h stream.Handle) {
	if dir, eff, err := p.arbiter.OnClose(h); err == nil {
		p.metrics.SetOpen(dir.String(), p.arbiter.Len(dir))
		if p.log != nil {
			p.log.Debugf("stream %d: %s effective MTU now %d", h, dir, eff)
		}
	}
	if _, ok := p.registry.Remove(h); ok {
		p.metrics.Transition(stream.StateClosed.String())
	}
	p.selector.Forget(h)
	p.feeder.Forget(h)
	p.metrics.SetProtection(p.protect.IsActive())
}

// Start implements StreamPolicy. The stream's accepted configuration is
// authoritative; a differing codec argument is logged and ignored.
func (p *Policy) Start(h stream.Handle, codec a2dp.CodecInfo) (bool, error) {
	othersStarted := p.startedExcept(h)

	if _, err := p.registry.Transition(h, stream.StateStarted); err != nil {
		if p.log != nil {
			p.log.Warnf("stream %d: start refused: %v", h, err)
		}
		return false, err
	}
	p.metrics.Transition(stream.StateStarted.String())

	e, _ := p.registry.Get(h)
	if len(codec) > 0 && !codec.Equal(e.Codec) && p.log != nil {
		p.log.Warnf("stream %d: start with %v, configured %v", h, codec, e.Codec)
	}
	if !othersStarted {
		p.feeder.Reset()
	}
	p.metrics.SetProtection(p.protect.IsActive())

	c, ok := p.catalog.Lookup(e.LocalType, e.Codec)
	if !ok {
		return false, nil
	}
	return !c.UsesMediaHeader(e.HasProtection()), nil
}

func (p *Policy) startedExcept(h stream.Handle) bool {
	found := false
	p.registry.ForEach(func(e *stream.Entry) bool {
		if e.Handle != h && e.State == stream.StateStarted {
			found = true
			return false
		}
		return true
	})
	return found
}

// Stop implements StreamPolicy.
func (p *Policy) Stop(h stream.Handle) error {
	if _, err := p.registry.Transition(h, stream.StateStopped); err != nil {
		if p.log != nil {
			p.log.Warnf("stream %d: stop refused: %v", h, err)
		}
		return err
	}
	p.metrics.Transition(stream.StateStopped.String())
	p.metrics.SetProtection(p.protect.IsActive())
	return nil
}

// UpdateMTU implements StreamPolicy.
func (p *Policy) UpdateMTU(h stream.Handle, reported uint16) (uint16, error) {
	eff, err := p.arbiter.OnUpdate(h, reported)
	if err != nil {
		return 0, err
	}
	if err := p.registry.SetMTU(h, reported); err != nil {
		return 0, err
	}
	return eff, nil
}

// DelayReport implements StreamPolicy.
func (p *Policy) DelayReport(h stream.Handle, delay uint16) {
	if err := p.registry.SetDelay(h, delay); err != nil && p.log != nil {
		p.log.Debugf("stream %d: delay report ignored: %v", h, err)
	}
}

// NextFrame implements StreamPolicy.
func (p *Policy) NextFrame(cfg a2dp.CodecInfo) (feeder.Frame, bool) {
	return p.feeder.NextFrame(cfg)
}

// FrameDropped implements StreamPolicy.
func (p *Policy) FrameDropped(h stream.Handle) {
	p.feeder.OnDrop(h)
}

// CPGetFlag implements StreamPolicy.
func (p *Policy) CPGetFlag() a2dp.CopyMode {
	return p.protect.Flag()
}

// CPIsActive implements StreamPolicy.
func (p *Policy) CPIsActive() bool {
	return p.protect.IsActive()
}

// IsConfigured implements StreamPolicy.
func (p *Policy) IsConfigured(h stream.Handle) bool {
	e, ok := p.registry.Get(h)
	return ok && !e.Rejected && e.State.IsConfigured()
}

// State implements StreamPolicy.
func (p *Policy) State(h stream.Handle) stream.State {
	s, _ := p.registry.State(h)
	return s
}

// EffectiveMTU implements StreamPolicy.
func (p *Policy) EffectiveMTU(dir a2dp.SEPType) uint16 {
	return p.arbiter.Effective(dir)
}

// Entry returns a copy of the registry entry for h.
func (p *Policy) Entry(h stream.Handle) (stream.Entry, bool) {
	return p.registry.Get(h)
}

// Catalog returns the codec catalog.
func (p *Policy) Catalog() *catalog.Catalog {
	return p.catalog
}

// Level returns the data path quality reduction level.
func (p *Policy) Level() int {
	return p.feeder.Level()
}
