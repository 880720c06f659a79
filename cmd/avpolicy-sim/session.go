package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/backkem/avpolicy/pkg/a2dp"
	"github.com/backkem/avpolicy/pkg/config"
	"github.com/backkem/avpolicy/pkg/feeder"
	"github.com/backkem/avpolicy/pkg/mediapath"
	"github.com/backkem/avpolicy/pkg/metrics"
	"github.com/backkem/avpolicy/pkg/policy"
	"github.com/backkem/avpolicy/pkg/stream"
	"github.com/pion/logging"
	"golang.org/x/sync/errgroup"
)

// simHandle is the stream handle of the simulated peer.
const simHandle stream.Handle = 1

// simPeer is the address reported for the simulated peer.
var simPeer = a2dp.BDAddr{0x00, 0x1A, 0x7D, 0xDA, 0x71, 0x13}

// Summary reports the outcome of a session.
type Summary struct {
	Codec     a2dp.CodecInfo
	MTU       uint16
	Produced  int
	Evicted   uint64
	Sent      uint64
	Dropped   uint64
	Received  int
	Level     int
	PeerDelay time.Duration
	CopyMode  a2dp.CopyMode
	Protected bool
}

// Session drives one simulated stream from negotiation to teardown.
type Session struct {
	opts   Options
	policy *policy.Policy
	queue  *feeder.Queue
	link   *mediapath.Link
	driver *mediapath.Driver
	layout mediapath.Layout
	codec  a2dp.CodecInfo
	mtu    uint16
	log    logging.LeveledLogger
}

// NewSession builds the policy from cfg and negotiates a stream with a
// simulated peer.
func NewSession(ctx context.Context, cfg *config.Config, opts Options, lf logging.LoggerFactory, m *metrics.Metrics) (*Session, error) {
	pc, err := policyConfig(cfg)
	if err != nil {
		return nil, err
	}
	queueSize := cfg.Feeder.QueueSize
	if queueSize == 0 {
		queueSize = feeder.DefaultQueueSize
	}

	s := &Session{
		opts:  opts,
		queue: feeder.NewQueue(queueSize),
		log:   lf.NewLogger("sim"),
	}
	pc.Source = s.queue
	pc.Metrics = m
	pc.LoggerFactory = lf
	pc.OnMTUChange = func(dir a2dp.SEPType, mtu uint16) {
		s.log.Infof("effective %v MTU is now %d", dir, mtu)
	}

	if s.policy, err = policy.New(pc); err != nil {
		return nil, fmt.Errorf("create policy: %w", err)
	}
	for _, idx := range cfg.Indices() {
		if _, err := s.policy.Init(ctx, idx); err != nil {
			return nil, fmt.Errorf("init %v: %w", idx, err)
		}
	}

	if err := s.negotiate(pc.LocalType, pc.ContentProtection); err != nil {
		s.policy.Close(simHandle)
		return nil, err
	}
	return s, nil
}

func policyConfig(cfg *config.Config) (policy.Config, error) {
	local, err := cfg.LocalType()
	if err != nil {
		return policy.Config{}, err
	}
	defs, err := cfg.Definitions()
	if err != nil {
		return policy.Config{}, err
	}
	mode, err := cfg.Protection.Mode()
	if err != nil {
		return policy.Config{}, err
	}
	return policy.Config{
		LocalType:                local,
		Codecs:                   defs,
		ContentProtection:        cfg.Protection.Enabled,
		RequireContentProtection: cfg.Protection.Required,
		DefaultCopyMode:          &mode,
		MaxStreams:               cfg.Streams.MaxStreams,
		MaxLevel:                 cfg.Feeder.MaxLevel,
		RecoverAfter:             cfg.Feeder.RecoverAfter,
	}, nil
}

// peerEndpoints describes a peer mirroring every default codec of the
// local role, in codec index order.
func peerEndpoints(local a2dp.SEPType, cp bool) []a2dp.SEPRecord {
	var seps []a2dp.SEPRecord
	for idx := a2dp.CodecIndex(0); idx < a2dp.CodecIndexMax; idx++ {
		codec, ok := a2dp.NewDefaultCodec(idx)
		if !ok || codec.Type() != local {
			continue
		}
		rec := a2dp.SEPRecord{
			SEID:  uint8(len(seps) + 1),
			Type:  local.Peer(),
			Codec: codec.Capability(),
		}
		if cp {
			rec.Protect = []a2dp.ProtectInfo{a2dp.SCMST()}
		}
		seps = append(seps, rec)
	}
	return seps
}

func (s *Session) negotiate(local a2dp.SEPType, cp bool) error {
	seps := peerEndpoints(local, cp)
	d := policy.Discovery{
		NumSEPs:   uint8(len(seps)),
		PeerAddr:  simPeer,
		Endpoints: seps,
	}
	if local == a2dp.SEPTypeSource {
		d.NumSink = d.NumSEPs
	} else {
		d.NumSource = d.NumSEPs
	}
	s.policy.DiscoveryResult(simHandle, d)

	// The selection travels to the peer and back in wire layout.
	raw, err := s.policy.GetConfigRaw(simHandle, 0)
	if err != nil {
		return fmt.Errorf("select configuration: %w", err)
	}
	err = s.policy.SetConfigRaw(simHandle, policy.RawRequest{
		Codec:      raw.Codec[:],
		SEID:       raw.SEID,
		PeerAddr:   simPeer,
		NumProtect: raw.NumProtect,
		Protect:    raw.Protect,
	})
	if err != nil {
		return fmt.Errorf("set configuration: %w", err)
	}
	if s.codec, err = a2dp.ParseCodecInfo(raw.Codec[:]); err != nil {
		return fmt.Errorf("selected codec: %w", err)
	}

	if s.mtu, err = s.policy.Open(simHandle, s.opts.MTU); err != nil {
		return fmt.Errorf("open: %w", err)
	}
	noHeader, err := s.policy.Start(simHandle, s.codec)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	s.policy.DelayReport(simHandle, 1500)

	entry, _ := s.policy.Entry(simHandle)
	s.layout = mediapath.NewLayout(s.codec, !noHeader, entry.HasProtection())
	s.link = mediapath.NewLink(mediapath.LinkConfig{AutoProcess: true})
	s.driver, err = mediapath.NewDriver(mediapath.DriverConfig{
		Feed:     s.policy,
		Conn:     s.link.Sender(),
		Handle:   simHandle,
		Codec:    s.codec,
		Layout:   s.layout,
		CopyMode: s.policy.CPGetFlag,
		MTU:      func() uint16 { return s.policy.EffectiveMTU(local) },
		Interval: s.opts.Interval,
		SSRC:     uint32(raw.CodecIndex) + 1,
	})
	if err != nil {
		return err
	}

	s.log.Infof("streaming %v to SEID %d, mtu=%d, media header=%v, protected=%v",
		raw.CodecIndex, raw.SEID, s.mtu, !noHeader, entry.HasProtection())
	return nil
}

// Run streams opts.Frames frames and tears the stream down.
func (s *Session) Run(ctx context.Context) (Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		produced int
		received int
	)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		produced = s.produce(ctx)
		return nil
	})
	g.Go(func() error {
		if err := s.driver.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		received = s.receive()
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return s.link.Close()
	})

	err := g.Wait()

	sum := Summary{
		Codec:     s.codec,
		MTU:       s.mtu,
		Produced:  produced,
		Evicted:   s.queue.Evicted(),
		Sent:      s.driver.Sent(),
		Dropped:   s.driver.Dropped(),
		Received:  received,
		Level:     s.policy.Level(),
		PeerDelay: s.driver.PeerDelay(),
		CopyMode:  s.policy.CPGetFlag(),
		Protected: s.policy.CPIsActive(),
	}

	if stopErr := s.policy.Stop(simHandle); stopErr != nil && err == nil {
		err = stopErr
	}
	s.policy.Close(simHandle)
	return sum, err
}

// produce queues frames at the stream cadence, shrinking them while the
// feeder asks for reduced quality, and waits for the queue to drain.
func (s *Session) produce(ctx context.Context) int {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()

	n := 0
	for n < s.opts.Frames || s.queue.Len() > 0 {
		select {
		case <-ctx.Done():
			return n
		case <-ticker.C:
		}
		if n < s.opts.Frames {
			s.queue.Push(feeder.Frame{
				Payload: make([]byte, frameSize(s.opts.FrameSize, s.queue.Level())),
				Samples: 128,
			})
			n++
		}
	}

	// Let the last packet cross the link.
	select {
	case <-ctx.Done():
	case <-time.After(2 * s.opts.Interval):
	}
	return n
}

// frameSize reduces size by one eighth per quality level.
func frameSize(size, level int) int {
	if reduced := size - level*size/8; reduced > 0 {
		return reduced
	}
	return 1
}

func (s *Session) receive() int {
	n := 0
	buf := make([]byte, 65535)
	for {
		m, err := s.link.Receiver().Read(buf)
		if err != nil {
			return n
		}
		if _, err := s.layout.Parse(buf[:m]); err != nil {
			s.log.Warnf("malformed media packet: %v", err)
			continue
		}
		n++
	}
}
