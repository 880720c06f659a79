// Package feeder supplies encoded frames to the real-time media path.
//
// NextFrame never waits on the control path: it reads the stream registry
// with a try-lock and answers not ready when the registry is busy, when no
// started stream uses the requested configuration, or when the source has
// nothing queued. Drop notifications raise a quality reduction level that
// is passed to sources implementing RateAdapter and decays after a run of
// clean frames.
package feeder

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/backkem/avpolicy/pkg/a2dp"
	"github.com/backkem/avpolicy/pkg/metrics"
	"github.com/backkem/avpolicy/pkg/stream"
	"github.com/pion/logging"
)

// Defaults for Config.
const (
	DefaultMaxLevel     = 3
	DefaultRecoverAfter = 128
)

// Frame is one encoded media frame.
type Frame struct {
	// Payload is the encoded frame data.
	Payload []byte

	// Samples is the number of PCM samples per channel the frame covers.
	// If zero, the feeder derives it from the stream configuration.
	Samples uint32

	// Duration is the playback time the frame covers, set by the feeder
	// when the configuration's sampling frequency is known.
	Duration time.Duration

	// Timestamp is the presentation timestamp in sample clock units, set
	// by the feeder.
	Timestamp uint32

	// Delay is the largest delay report among the streams the frame is
	// destined for, in 1/10 ms. Set by the feeder.
	Delay uint16
}

// Config configures a Feeder.
type Config struct {
	// Registry is the stream registry. Required.
	Registry *stream.Registry

	// Source supplies frames. Required.
	Source Source

	// MaxLevel caps the quality reduction level.
	// Defaults to DefaultMaxLevel if 0.
	MaxLevel int

	// RecoverAfter is the number of consecutive clean frames after which
	// the level is lowered by one. Defaults to DefaultRecoverAfter if 0.
	RecoverAfter int

	// Metrics records data path counters. Optional.
	Metrics *metrics.Metrics

	// LoggerFactory is the factory for creating loggers.
	// If nil, logging is disabled.
	LoggerFactory logging.LoggerFactory
}

// Feeder is the non-blocking frame supplier.
type Feeder struct {
	registry     *stream.Registry
	source       Source
	adapter      RateAdapter
	maxLevel     int32
	recoverAfter uint32
	metrics      *metrics.Metrics
	log          logging.LeveledLogger

	clock atomic.Uint32
	level atomic.Int32
	clean atomic.Uint32

	// drops maps stream.Handle to *atomic.Uint64. Counters exist only for
	// handles the registry knows.
	drops sync.Map
}

// New creates a feeder.
func New(config Config) *Feeder {
	f := &Feeder{
		registry:     config.Registry,
		source:       config.Source,
		maxLevel:     int32(config.MaxLevel),
		recoverAfter: uint32(config.RecoverAfter),
		metrics:      config.Metrics,
	}
	if f.maxLevel <= 0 {
		f.maxLevel = DefaultMaxLevel
	}
	if f.recoverAfter == 0 {
		f.recoverAfter = DefaultRecoverAfter
	}
	if ra, ok := config.Source.(RateAdapter); ok {
		f.adapter = ra
	}
	if config.LoggerFactory != nil {
		f.log = config.LoggerFactory.NewLogger("feeder")
	}
	return f
}

// NextFrame returns the next frame for streams configured with cfg, or
// false if none is ready.
func (f *Feeder) NextFrame(cfg a2dp.CodecInfo) (Frame, bool) {
	var (
		matched bool
		delay   uint16
	)
	ok := f.registry.TryForEach(func(e *stream.Entry) bool {
		if e.State == stream.StateStarted && e.Codec.Equal(cfg) {
			matched = true
			if e.Delay > delay {
				delay = e.Delay
			}
		}
		return true
	})
	if !ok {
		f.metrics.NotReady(metrics.ReasonLocked)
		return Frame{}, false
	}
	if !matched {
		f.metrics.NotReady(metrics.ReasonNoStream)
		return Frame{}, false
	}

	fr, ok := f.source.Poll()
	if !ok {
		f.metrics.NotReady(metrics.ReasonEmpty)
		return Frame{}, false
	}

	samples, rate := a2dp.FrameTiming(cfg, len(fr.Payload))
	if fr.Samples == 0 {
		fr.Samples = samples
	}
	if rate > 0 {
		fr.Duration = time.Duration(fr.Samples) * time.Second / time.Duration(rate)
	}
	fr.Timestamp = f.clock.Add(fr.Samples) - fr.Samples
	fr.Delay = delay
	f.decay()
	f.metrics.FrameSupplied(len(fr.Payload))
	return fr, true
}

// decay lowers the level after RecoverAfter clean frames.
func (f *Feeder) decay() {
	if f.level.Load() == 0 {
		return
	}
	if f.clean.Add(1) < f.recoverAfter {
		return
	}
	f.clean.Store(0)
	for {
		cur := f.level.Load()
		if cur == 0 {
			return
		}
		if f.level.CompareAndSwap(cur, cur-1) {
			f.setLevel(int(cur - 1))
			return
		}
	}
}

// OnDrop records that a frame for h was not delivered. Drops for handles
// the registry does not know are ignored. OnDrop never waits on the
// control path: while the registry is busy only already tracked handles
// are counted.
func (f *Feeder) OnDrop(h stream.Handle) {
	known := false
	ran := f.registry.TryForEach(func(e *stream.Entry) bool {
		if e.Handle != h {
			return true
		}
		known = true
		c, _ := f.drops.LoadOrStore(h, new(atomic.Uint64))
		c.(*atomic.Uint64).Add(1)
		return false
	})
	if ran && !known {
		if f.log != nil {
			f.log.Debugf("stream %d: drop for unknown stream ignored", h)
		}
		return
	}
	if !ran {
		if c, ok := f.drops.Load(h); ok {
			c.(*atomic.Uint64).Add(1)
		}
	}

	f.clean.Store(0)
	level := f.level.Load()
	for level < f.maxLevel {
		if f.level.CompareAndSwap(level, level+1) {
			level++
			f.setLevel(int(level))
			break
		}
		level = f.level.Load()
	}
	f.metrics.Dropped(int(level))

	if f.log != nil {
		f.log.Debugf("stream %d: frame dropped, level=%d", h, level)
	}
}

func (f *Feeder) setLevel(level int) {
	if f.adapter != nil {
		f.adapter.AdjustRate(level)
	}
	f.metrics.SetLevel(level)
}

// Reset rewinds the sample clock. Called when streaming starts.
func (f *Feeder) Reset() {
	f.clock.Store(0)
	f.clean.Store(0)
	if r, ok := f.source.(interface{ Restart() }); ok {
		r.Restart()
	}
}

// Forget discards the drop counter of h. Call it after h left the
// registry.
func (f *Feeder) Forget(h stream.Handle) {
	f.drops.Delete(h)
}

// Drops returns the number of drops reported for h.
func (f *Feeder) Drops(h stream.Handle) uint64 {
	c, ok := f.drops.Load(h)
	if !ok {
		return 0
	}
	return c.(*atomic.Uint64).Load()
}

// Level returns the current quality reduction level.
func (f *Feeder) Level() int {
	return int(f.level.Load())
}

// Clock returns the timestamp the next frame will carry.
func (f *Feeder) Clock() uint32 {
	return f.clock.Load()
}
