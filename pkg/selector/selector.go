// Package selector negotiates the stream endpoint and codec configuration
// of a stream.
//
// Record stores the endpoints a peer advertised. Select walks the local
// catalog in priority order and, for each codec, the recorded endpoints in
// discovery order; the first endpoint whose capabilities intersect with the
// codec's yields the configuration. Equal-priority candidates therefore
// resolve to the first-discovered endpoint.
//
// Apply validates an inbound configuration and stores it in the stream
// registry. A rejected configuration marks the stream rejected; the stream
// stays out of the configured set until a later configuration is accepted.
package selector

import (
	"sync"

	"github.com/backkem/avpolicy/pkg/a2dp"
	"github.com/backkem/avpolicy/pkg/catalog"
	"github.com/backkem/avpolicy/pkg/protect"
	"github.com/backkem/avpolicy/pkg/stream"
	"github.com/pion/logging"
)

// Config configures a Selector.
type Config struct {
	// Catalog is the local codec catalog. Required.
	Catalog *catalog.Catalog

	// Registry receives accepted configurations. Required.
	Registry *stream.Registry

	// Protect answers content protection support. Required.
	Protect *protect.Manager

	// RequireContentProtection skips endpoints without SCMS-T during
	// selection and rejects inbound configurations without it.
	RequireContentProtection bool

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Selection is the outcome of Select.
type Selection struct {
	// SEPIndex is the position of the chosen endpoint in the recorded list.
	SEPIndex int

	// SEID is the chosen endpoint's identifier.
	SEID uint8

	// CodecIndex identifies the local codec that produced the configuration.
	CodecIndex a2dp.CodecIndex

	// Codec is the fully specified configuration element.
	Codec a2dp.CodecInfo

	// Protect lists the content protection elements to configure.
	Protect []a2dp.ProtectInfo
}

// Request is an inbound stream configuration.
type Request struct {
	Codec           a2dp.CodecInfo
	SEID            uint8
	PeerAddr        a2dp.BDAddr
	Protect         []a2dp.ProtectInfo
	LocalType       a2dp.SEPType
	TransportHandle uint8
}

type discovery struct {
	seps     []a2dp.SEPRecord
	peerType a2dp.SEPType
}

// Selector is the endpoint negotiation engine.
// All methods are safe for concurrent use.
type Selector struct {
	catalog   *catalog.Catalog
	registry  *stream.Registry
	protect   *protect.Manager
	requireCP bool
	log       logging.LeveledLogger

	mu          sync.Mutex
	discoveries map[stream.Handle]discovery
}

// New creates a selector.
func New(config Config) (*Selector, error) {
	switch {
	case config.Catalog == nil:
		return nil, ErrNoCatalog
	case config.Registry == nil:
		return nil, ErrNoRegistry
	case config.Protect == nil:
		return nil, ErrNoProtect
	}

	s := &Selector{
		catalog:     config.Catalog,
		registry:    config.Registry,
		protect:     config.Protect,
		requireCP:   config.RequireContentProtection,
		discoveries: make(map[stream.Handle]discovery),
	}
	if config.LoggerFactory != nil {
		s.log = config.LoggerFactory.NewLogger("selector")
	}
	return s, nil
}

// Record stores the endpoints advertised by the peer for h, replacing any
// earlier record. peerType is the endpoint type the local side connects to.
func (s *Selector) Record(h stream.Handle, seps []a2dp.SEPRecord, peerType a2dp.SEPType) {
	d := discovery{
		seps:     make([]a2dp.SEPRecord, len(seps)),
		peerType: peerType,
	}
	for i, sep := range seps {
		d.seps[i] = sep.Clone()
	}

	s.mu.Lock()
	s.discoveries[h] = d
	s.mu.Unlock()

	if s.log != nil {
		s.log.Debugf("stream %d: recorded %d %s endpoints", h, len(seps), peerType)
	}
}

// Recorded returns a copy of the endpoints recorded for h.
func (s *Selector) Recorded(h stream.Handle) ([]a2dp.SEPRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.discoveries[h]
	if !ok {
		return nil, false
	}
	out := make([]a2dp.SEPRecord, len(d.seps))
	for i, sep := range d.seps {
		out[i] = sep.Clone()
	}
	return out, true
}

// Forget drops the discovery record for h.
func (s *Selector) Forget(h stream.Handle) {
	s.mu.Lock()
	delete(s.discoveries, h)
	s.mu.Unlock()
}

// Select picks the endpoint and configuration for h. A non-zero seid
// constrains selection to that endpoint.
//
// The returned error is an a2dp.Status:
//   - StatusFail when nothing is recorded or no endpoint is eligible,
//   - StatusInvalidCPType when every eligible endpoint lacks required SCMS-T,
//   - StatusNotSupportedCodecType when no endpoint carries a local codec,
//   - otherwise the first failed intersection's status.
func (s *Selector) Select(h stream.Handle, seid uint8) (Selection, error) {
	s.mu.Lock()
	d, ok := s.discoveries[h]
	s.mu.Unlock()
	if !ok || len(d.seps) == 0 {
		return Selection{}, a2dp.StatusFail
	}

	eligible := make([]int, 0, len(d.seps))
	cpMissing := 0
	for i, sep := range d.seps {
		if seid != 0 && sep.SEID != seid {
			continue
		}
		if sep.InUse || sep.Type != d.peerType {
			continue
		}
		if s.requireCP && !sep.Supports(a2dp.ProtectTypeSCMST) {
			cpMissing++
			continue
		}
		eligible = append(eligible, i)
	}
	if len(eligible) == 0 {
		if cpMissing > 0 {
			return Selection{}, a2dp.StatusInvalidCPType
		}
		return Selection{}, a2dp.StatusFail
	}

	var firstErr error
	for _, entry := range s.catalog.CodecsFor(d.peerType.Peer()) {
		codec := entry.Codec
		for _, i := range eligible {
			sep := d.seps[i]
			if !codec.Matches(sep.Codec) {
				continue
			}
			cfg, err := codec.Select(sep.Codec)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				if s.log != nil {
					s.log.Tracef("stream %d: %s on seid %d: %v", h, codec.Name(), sep.SEID, err)
				}
				continue
			}

			sel := Selection{
				SEPIndex:   i,
				SEID:       sep.SEID,
				CodecIndex: codec.Index(),
				Codec:      cfg,
				Protect:    s.negotiateProtect(sep),
			}
			if s.log != nil {
				s.log.Infof("stream %d: selected %s on seid %d: %v", h, codec.Name(), sep.SEID, cfg)
			}
			return sel, nil
		}
	}

	if firstErr == nil {
		firstErr = a2dp.StatusNotSupportedCodecType
	}
	if s.log != nil {
		s.log.Warnf("stream %d: no configuration: %v", h, firstErr)
	}
	return Selection{}, a2dp.StatusOf(firstErr)
}

func (s *Selector) negotiateProtect(sep a2dp.SEPRecord) []a2dp.ProtectInfo {
	if !s.protect.Supported() || !sep.Supports(a2dp.ProtectTypeSCMST) {
		return nil
	}
	return []a2dp.ProtectInfo{a2dp.SCMST()}
}

// Apply validates req and stores it as the configuration of h. On rejection
// the stream is marked rejected and the Status describing the first
// violated bound is returned.
func (s *Selector) Apply(h stream.Handle, req Request) error {
	cfg, err := s.validate(h, req)
	if err != nil {
		if s.log != nil {
			s.log.Warnf("stream %d: configuration %v rejected: %v", h, req.Codec, err)
		}
		if rerr := s.registry.Reject(h); rerr != nil {
			return rerr
		}
		return err
	}
	if err := s.registry.Configure(h, cfg); err != nil {
		return err
	}
	s.protect.Accept(cfg)
	return nil
}

func (s *Selector) validate(h stream.Handle, req Request) (stream.Config, error) {
	if !req.LocalType.IsValid() {
		return stream.Config{}, a2dp.StatusInvalidParams
	}
	if !req.Codec.Valid() {
		return stream.Config{}, a2dp.StatusInvalidCodecType
	}

	codec, ok := s.catalog.Lookup(req.LocalType, req.Codec)
	if !ok {
		return stream.Config{}, a2dp.StatusNotSupportedCodecType
	}
	if err := codec.Validate(req.Codec); err != nil {
		return stream.Config{}, a2dp.StatusOf(err)
	}

	mode, err := s.validateProtect(req.Protect)
	if err != nil {
		return stream.Config{}, err
	}

	sep, ok := s.recordedSEP(h, req.SEID)
	if !ok {
		// Configured by the peer without local discovery.
		sep = a2dp.SEPRecord{
			SEID:    req.SEID,
			Type:    req.LocalType.Peer(),
			Codec:   req.Codec,
			Protect: req.Protect,
		}
	}

	return stream.Config{
		SEP:             sep,
		LocalType:       req.LocalType,
		PeerAddr:        req.PeerAddr,
		TransportHandle: req.TransportHandle,
		Codec:           req.Codec,
		Protect:         req.Protect,
		CopyMode:        mode,
	}, nil
}

func (s *Selector) validateProtect(list []a2dp.ProtectInfo) (a2dp.CopyMode, error) {
	if len(list) == 0 {
		if s.requireCP {
			return a2dp.CopyFree, a2dp.StatusInvalidCPType
		}
		return a2dp.CopyFree, nil
	}
	if len(list) > 1 {
		return a2dp.CopyFree, a2dp.StatusInvalidCPType
	}

	p := list[0]
	if !p.Valid() {
		return a2dp.CopyFree, a2dp.StatusInvalidCPFormat
	}
	if p.Type() != a2dp.ProtectTypeSCMST || !s.protect.Supported() {
		return a2dp.CopyFree, a2dp.StatusInvalidCPType
	}
	if v := p.Value(); len(v) > 1 || (len(v) == 1 && !a2dp.CopyMode(v[0]).IsValid()) {
		return a2dp.CopyFree, a2dp.StatusInvalidCPFormat
	}

	mode, _ := s.protect.ModeOf(list)
	return mode, nil
}

func (s *Selector) recordedSEP(h stream.Handle, seid uint8) (a2dp.SEPRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.discoveries[h]
	if !ok {
		return a2dp.SEPRecord{}, false
	}
	for _, sep := range d.seps {
		if sep.SEID == seid {
			return sep.Clone(), true
		}
	}
	return a2dp.SEPRecord{}, false
}
